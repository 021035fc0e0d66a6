package repository

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"user-api/internal/database"
	"user-api/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type UserRepositoryIntegrationTestSuite struct {
	suite.Suite
	db   *sqlx.DB
	repo UserRepository
	pgc  *postgres.PostgresContainer
	ctx  context.Context
}

func (s *UserRepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	pgc, err := postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	s.pgc = pgc

	connStr, err := pgc.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("pgx", connStr)
	s.Require().NoError(err)
	s.db = db

	_, err = database.Migrate(s.ctx, db)
	s.Require().NoError(err)

	s.repo = NewSQLUserRepository(s.db)
}

func (s *UserRepositoryIntegrationTestSuite) TearDownSuite() {
	s.db.Close()
	if err := s.pgc.Terminate(s.ctx); err != nil {
		log.Fatalf("failed to terminate pg container: %s", err)
	}
}

func (s *UserRepositoryIntegrationTestSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, `DELETE FROM users`)
	s.Require().NoError(err)
}

func (s *UserRepositoryIntegrationTestSuite) TestCreateAndFindByID() {
	// Arrange
	user := &model.User{Name: "Integration Test User", Email: "integration@test.com"}

	// Act
	created, err := s.repo.Create(s.ctx, user)

	// Assert
	assert.NoError(s.T(), err)
	assert.NotZero(s.T(), created.ID)

	found, err := s.repo.FindByID(s.ctx, created.ID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), "integration@test.com", found.Email)
}

func (s *UserRepositoryIntegrationTestSuite) TestDuplicateEmail() {
	_, err := s.repo.Create(s.ctx, &model.User{Name: "A", Email: "dup@test.com"})
	assert.NoError(s.T(), err)

	_, err = s.repo.Create(s.ctx, &model.User{Name: "B", Email: "dup@test.com"})
	assert.ErrorIs(s.T(), err, ErrDuplicateEmail)
}

func (s *UserRepositoryIntegrationTestSuite) TestDelete_NotFound() {
	err := s.repo.Delete(s.ctx, 999999)
	assert.ErrorIs(s.T(), err, ErrUserNotFound)
}

func TestUserRepositoryIntegration(t *testing.T) {
	if os.Getenv("DOCKER_HOST") == "" {
		t.Skip("Docker is not available, skipping integration test.")
	}
	suite.Run(t, new(UserRepositoryIntegrationTestSuite))
}
