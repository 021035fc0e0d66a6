package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"user-api/internal/events"
	"user-api/internal/model"
	"user-api/internal/repository"
	"user-api/internal/validation"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already exists")
)

// ValidationError reports every field that failed validation, in field order.
type ValidationError struct {
	Violations []validation.Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var defaultUsers = []validation.CreateUserInput{
	{Name: "John Doe", Email: "john@example.com"},
	{Name: "Jane Smith", Email: "jane@example.com"},
}

type UserService interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	CreateUser(ctx context.Context, in validation.CreateUserInput) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, in validation.UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	SeedDefaults(ctx context.Context) (int, error)
}

type userService struct {
	userRepo  repository.UserRepository
	validator *validation.Validator
	publisher events.EventPublisher
}

func NewUserService(repo repository.UserRepository, v *validation.Validator, pub events.EventPublisher) UserService {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &userService{userRepo: repo, validator: v, publisher: pub}
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.userRepo.List(ctx)
}

func (s *userService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)

	if err != nil {
		return nil, translate(err)
	}

	return user, nil
}

func (s *userService) CreateUser(ctx context.Context, in validation.CreateUserInput) (*model.User, error) {
	if violations := s.validator.ValidateCreate(in); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	created, err := s.userRepo.Create(ctx, &model.User{Name: in.Name, Email: in.Email})

	if err != nil {
		return nil, translate(err)
	}

	go s.publisher.PublishUserCreated(*created)

	return created, nil
}

func (s *userService) UpdateUser(ctx context.Context, id int64, in validation.UpdateUserInput) (*model.User, error) {
	if violations := s.validator.ValidateUpdate(in); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	existing, err := s.userRepo.FindByID(ctx, id)

	if err != nil {
		return nil, translate(err)
	}

	merged := *existing
	if in.Name != nil {
		merged.Name = *in.Name
	}
	if in.Email != nil {
		merged.Email = *in.Email
	}

	violations := s.validator.ValidateCreate(validation.CreateUserInput{Name: merged.Name, Email: merged.Email})
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	updated, err := s.userRepo.Update(ctx, &merged)

	if err != nil {
		return nil, translate(err)
	}

	go s.publisher.PublishUserUpdated(*updated)

	return updated, nil
}

func (s *userService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return translate(err)
	}

	go s.publisher.PublishUserDeleted(id)

	return nil
}

// SeedDefaults inserts the demo users into an empty table and reports how
// many were created.
func (s *userService) SeedDefaults(ctx context.Context) (int, error) {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		return 0, nil
	}

	seeded := 0
	for _, in := range defaultUsers {
		_, err := s.userRepo.Create(ctx, &model.User{Name: in.Name, Email: in.Email})

		if errors.Is(err, repository.ErrDuplicateEmail) {
			slog.WarnContext(ctx, "Seed user already exists", slog.String("email", in.Email))
			continue
		}
		if err != nil {
			return seeded, fmt.Errorf("seed %s: %w", in.Email, err)
		}
		seeded++
	}

	return seeded, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicateEmail):
		return fmt.Errorf("%w: %w", ErrEmailTaken, err)
	default:
		return err
	}
}
