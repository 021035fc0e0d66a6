package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"user-api/internal/model"
)

const (
	SubjectUserCreated = "user.created"
	SubjectUserUpdated = "user.updated"
	SubjectUserDeleted = "user.deleted"
)

type EventPublisher interface {
	PublishUserCreated(user model.User) error
	PublishUserUpdated(user model.User) error
	PublishUserDeleted(userID int64) error
}

type UserEvent struct {
	EventID    uuid.UUID   `json:"event_id"`
	EventType  string      `json:"event_type"`
	UserID     int64       `json:"user_id"`
	User       *model.User `json:"user,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func NewUserEvent(eventType string, userID int64, user *model.User) UserEvent {
	return UserEvent{
		EventID:    uuid.New(),
		EventType:  eventType,
		UserID:     userID,
		User:       user,
		OccurredAt: time.Now().UTC(),
	}
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("user-api"))

	if err != nil {
		return nil, err
	}

	return &NatsPublisher{conn: nc}, nil
}

func (p *NatsPublisher) PublishUserCreated(user model.User) error {
	return p.publish(NewUserEvent(SubjectUserCreated, user.ID, &user))
}

func (p *NatsPublisher) PublishUserUpdated(user model.User) error {
	return p.publish(NewUserEvent(SubjectUserUpdated, user.ID, &user))
}

func (p *NatsPublisher) PublishUserDeleted(userID int64) error {
	return p.publish(NewUserEvent(SubjectUserDeleted, userID, nil))
}

func (p *NatsPublisher) Close() {
	p.conn.Close()
}

func (p *NatsPublisher) publish(event UserEvent) error {
	eventJSON, err := json.Marshal(event)

	if err != nil {
		slog.Error("Error marshalling event JSON", slog.String("error", err.Error()))
		return err
	}

	err = p.conn.Publish(event.EventType, eventJSON)

	if err != nil {
		slog.Error("Error publishing to NATS", slog.String("subject", event.EventType), slog.String("error", err.Error()))
		return err
	}

	slog.Info("Published event to NATS", slog.String("subject", event.EventType), slog.Int64("user_id", event.UserID))

	return nil
}

// NoopPublisher is used when no NATS server is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishUserCreated(model.User) error { return nil }
func (NoopPublisher) PublishUserUpdated(model.User) error { return nil }
func (NoopPublisher) PublishUserDeleted(int64) error { return nil }
