package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"user-api/internal/config"
	"user-api/internal/database"
	"user-api/internal/model"
	"user-api/internal/repository"
	"user-api/internal/service"
	"user-api/internal/validation"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events chan string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(chan string, 16)}
}

func (p *recordingPublisher) PublishUserCreated(u model.User) error {
	p.events <- "created"
	return nil
}

func (p *recordingPublisher) PublishUserUpdated(u model.User) error {
	p.events <- "updated"
	return nil
}

func (p *recordingPublisher) PublishUserDeleted(id int64) error {
	p.events <- "deleted"
	return nil
}

func (p *recordingPublisher) next(t *testing.T) string {
	t.Helper()
	select {
	case ev := <-p.events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return ""
	}
}

// failingRepo reports storage unavailability on every call.
type failingRepo struct{ err error }

func (r failingRepo) List(context.Context) ([]model.User, error) { return nil, r.err }
func (r failingRepo) FindByID(context.Context, int64) (*model.User, error) { return nil, r.err }
func (r failingRepo) Create(context.Context, *model.User) (*model.User, error) { return nil, r.err }
func (r failingRepo) Update(context.Context, *model.User) (*model.User, error) { return nil, r.err }
func (r failingRepo) Delete(context.Context, int64) error { return r.err }
func (r failingRepo) Count(context.Context) (int, error) { return 0, r.err }

func newService(t *testing.T) (service.UserService, *recordingPublisher) {
	t.Helper()

	db, err := database.Connect(config.DBConfig{Driver: config.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.Migrate(context.Background(), db)
	require.NoError(t, err)

	pub := newRecordingPublisher()
	return service.NewUserService(repository.NewSQLUserRepository(db), validation.New(), pub), pub
}

func strPtr(s string) *string { return &s }

func TestUserService_CreateThenGet(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, validation.CreateUserInput{Name: "Test User", Email: "test@example.com"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "created", pub.next(t))

	got, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Test User", got.Name)
	require.Equal(t, "test@example.com", got.Email)
}

func TestUserService_CreateInvalidPersistsNothing(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, in := range []validation.CreateUserInput{
		{Name: "No Email"},
		{Name: "Bad Email", Email: "not-an-email"},
		{Email: "noname@example.com"},
	} {
		_, err := svc.CreateUser(ctx, in)

		var verr *service.ValidationError
		require.ErrorAs(t, err, &verr)
		require.NotEmpty(t, verr.Violations)
	}

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestUserService_DuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, validation.CreateUserInput{Name: "One", Email: "dup@example.com"})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, validation.CreateUserInput{Name: "Two", Email: "dup@example.com"})
	require.ErrorIs(t, err, service.ErrEmailTaken)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestUserService_NotFound(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.GetUser(ctx, 999999)
	require.ErrorIs(t, err, service.ErrUserNotFound)

	require.ErrorIs(t, svc.DeleteUser(ctx, 999999), service.ErrUserNotFound)

	_, err = svc.UpdateUser(ctx, 999999, validation.UpdateUserInput{Name: strPtr("x")})
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserService_UpdateChangesOnlySuppliedFields(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, validation.CreateUserInput{Name: "Test User", Email: "test@example.com"})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	updated, err := svc.UpdateUser(ctx, created.ID, validation.UpdateUserInput{Name: strPtr("Updated Name")})
	require.NoError(t, err)
	require.Equal(t, "Updated Name", updated.Name)
	require.Equal(t, "test@example.com", updated.Email)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	require.True(t, updated.CreatedAt.Equal(created.CreatedAt))
}

func TestUserService_UpdateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, validation.CreateUserInput{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, created.ID, validation.UpdateUserInput{Email: strPtr("broken")})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "email", verr.Violations[0].Field)

	// Validation runs before the existence check.
	_, err = svc.UpdateUser(ctx, 999999, validation.UpdateUserInput{Name: strPtr("")})
	require.ErrorAs(t, err, &verr)

	got, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", got.Email)
}

func TestUserService_UpdateEmailConflict(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, validation.CreateUserInput{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, validation.CreateUserInput{Name: "B", Email: "b@example.com"})
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, a.ID, validation.UpdateUserInput{Email: strPtr("b@example.com")})
	require.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestUserService_Lifecycle(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, validation.CreateUserInput{Name: "John Doe", Email: "john@example.com"})
	require.NoError(t, err)
	require.Equal(t, "created", pub.next(t))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, a.ID, users[0].ID)

	_, err = svc.UpdateUser(ctx, a.ID, validation.UpdateUserInput{Name: strPtr("Johnny")})
	require.NoError(t, err)
	require.Equal(t, "updated", pub.next(t))

	got, err := svc.GetUser(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "Johnny", got.Name)
	require.Equal(t, "john@example.com", got.Email)

	require.NoError(t, svc.DeleteUser(ctx, a.ID))
	require.Equal(t, "deleted", pub.next(t))

	_, err = svc.GetUser(ctx, a.ID)
	require.ErrorIs(t, err, service.ErrUserNotFound)

	users, err = svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestUserService_SeedDefaults(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, err := svc.SeedDefaults(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = svc.SeedDefaults(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "john@example.com", users[0].Email)
	require.Equal(t, "jane@example.com", users[1].Email)
}

func TestUserService_StorageErrorsPropagate(t *testing.T) {
	svc := service.NewUserService(failingRepo{err: sql.ErrConnDone}, validation.New(), nil)
	ctx := context.Background()

	_, err := svc.ListUsers(ctx)
	require.ErrorIs(t, err, sql.ErrConnDone)

	_, err = svc.GetUser(ctx, 1)
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.False(t, errors.Is(err, service.ErrUserNotFound))

	_, err = svc.CreateUser(ctx, validation.CreateUserInput{Name: "A", Email: "a@example.com"})
	require.ErrorIs(t, err, sql.ErrConnDone)

	require.ErrorIs(t, svc.DeleteUser(ctx, 1), sql.ErrConnDone)
}

func TestValidationError_Message(t *testing.T) {
	err := &service.ValidationError{Violations: []validation.Violation{
		{Field: "name", Message: "Name is required"},
		{Field: "email", Message: "Invalid email format"},
	}}
	require.Equal(t, "validation failed: name: Name is required; email: Invalid email format", err.Error())
}
