package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	pgtc "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// BaseIntegrationSuite starts one PostgreSQL container for the whole suite.
// Repository suites embed it and connect their own repo in SetupTest.
type BaseIntegrationSuite struct {
	suite.Suite
	Postgres    testcontainers.Container
	PostgresDSN string
	Ctx         context.Context
	cancel      context.CancelFunc
}

// SetupSuite runs once before the tests in the suite are run.
func (s *BaseIntegrationSuite) SetupSuite() {
	s.Ctx, s.cancel = context.WithCancel(context.Background())
	log.Println("Setting up BaseIntegrationSuite...")
	startTime := time.Now()

	pgContainer, err := pgtc.Run(s.Ctx,
		"postgres:17-bookworm",
		pgtc.WithDatabase("dialer_engine"),
		pgtc.WithUsername("postgres"),
		pgtc.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		s.T().Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	s.Postgres = pgContainer

	dsn, err := pgContainer.ConnectionString(s.Ctx, "sslmode=disable")
	if err != nil {
		s.T().Fatalf("Failed to get PostgreSQL connection string: %v", err)
	}
	s.PostgresDSN = dsn

	log.Printf("BaseIntegrationSuite setup complete in %v", time.Since(startTime))
}

// TearDownSuite runs once after all tests in the suite have finished.
func (s *BaseIntegrationSuite) TearDownSuite() {
	log.Println("Tearing down BaseIntegrationSuite...")

	if s.Postgres != nil {
		if err := s.Postgres.Terminate(s.Ctx); err != nil {
			s.T().Logf("Error terminating PostgreSQL container: %v", err)
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
}

// SetupTest truncates all engine tables. Embedding suites call it after
// their repo has run its migration, so the tables exist.
func (s *BaseIntegrationSuite) SetupTest() {
	err := truncateTables(s.Ctx, s.PostgresDSN)
	s.Require().NoError(err, "Failed to truncate PostgreSQL tables")
}

func truncateTables(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx,
		`TRUNCATE TABLE call_history, campaign_agents, contacts, campaigns, users CASCADE`)
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// countRows returns the number of rows in table matching the where clause.
func countRows(ctx context.Context, dsn, table, whereClause string, args ...interface{}) (int, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, whereClause)
	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to execute count query: %w", err)
	}
	return count, nil
}
