package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"user-api/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

const pgUniqueViolation = "23505"

const (
	queryListUsers  = `SELECT id, name, email, created_at, updated_at FROM users ORDER BY id ASC`
	queryFindByID   = `SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?`
	queryInsertUser = `INSERT INTO users (name, email, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id`
	queryUpdateUser = `UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`
	queryDeleteUser = `DELETE FROM users WHERE id = ?`
	queryCountUsers = `SELECT COUNT(*) FROM users`
)

type UserRepository interface {
	List(ctx context.Context) ([]model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, user *model.User) (*model.User, error)
	Update(ctx context.Context, user *model.User) (*model.User, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

type Option func(*sqlUserRepository)

// WithQueryTimeout bounds every statement whose context has no deadline yet.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *sqlUserRepository) { r.timeout = d }
}

func WithQueryLogging(enabled bool) Option {
	return func(r *sqlUserRepository) { r.logQueries = enabled }
}

type sqlUserRepository struct {
	db         *sqlx.DB
	timeout    time.Duration
	logQueries bool
	now        func() time.Time
}

func NewSQLUserRepository(db *sqlx.DB, opts ...Option) UserRepository {
	r := &sqlUserRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *sqlUserRepository) List(ctx context.Context) ([]model.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	users := []model.User{}
	query := r.prepare(ctx, queryListUsers)

	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (r *sqlUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var user model.User
	query := r.prepare(ctx, queryFindByID, id)

	err := r.db.GetContext(ctx, &user, query, id)

	if err != nil {
		return nil, mapError(err)
	}

	return &user, nil
}

func (r *sqlUserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := r.now()
	query := r.prepare(ctx, queryInsertUser, user.Name, user.Email, now, now)

	var newID int64
	err := r.db.QueryRowxContext(ctx, query, user.Name, user.Email, now, now).Scan(&newID)

	if err != nil {
		return nil, mapError(err)
	}

	return &model.User{
		ID:        newID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *sqlUserRepository) Update(ctx context.Context, user *model.User) (*model.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := r.now()
	query := r.prepare(ctx, queryUpdateUser, user.Name, user.Email, now, user.ID)

	res, err := r.db.ExecContext(ctx, query, user.Name, user.Email, now, user.ID)
	if err != nil {
		return nil, mapError(err)
	}

	if err := requireAffected(res); err != nil {
		return nil, err
	}

	updated := *user
	updated.UpdatedAt = now

	return &updated, nil
}

func (r *sqlUserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := r.prepare(ctx, queryDeleteUser, id)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}

	return requireAffected(res)
}

func (r *sqlUserRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	query := r.prepare(ctx, queryCountUsers)

	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// prepare rebinds placeholders for the connected driver and logs the
// statement when query logging is on.
func (r *sqlUserRepository) prepare(ctx context.Context, query string, args ...any) string {
	query = r.db.Rebind(query)

	if r.logQueries {
		slog.InfoContext(ctx, "Executing SQL", slog.String("query", query), slog.Any("args", args))
	}

	return query
}

func (r *sqlUserRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", ErrDuplicateEmail, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}
