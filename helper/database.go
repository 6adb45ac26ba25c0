package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabaseName     = "database"
	testDatabaseUser     = "user"
	testDatabasePassword = "password"
	postgresImage        = "pgvector/pgvector:pg17"
)

// DatabaseConfiguration holds the connection settings for Postgres.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the connection settings from HOPRAG_DB_* variables.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	config := &DatabaseConfiguration{
		Host:     GetEnvString("HOPRAG_DB_HOST", "localhost"),
		Port:     GetEnvString("HOPRAG_DB_PORT", "5432"),
		Database: GetEnvString("HOPRAG_DB_DATABASE", ""),
		Username: GetEnvString("HOPRAG_DB_USERNAME", ""),
		Password: GetEnvString("HOPRAG_DB_PASSWORD", ""),
		Schema:   GetEnvString("HOPRAG_DB_SCHEMA", "public"),
		SSLMode:  GetEnvString("HOPRAG_DB_SSLMODE", "disable"),
	}

	if config.Database == "" || config.Username == "" {
		return nil, NewError("database configuration", fmt.Errorf("HOPRAG_DB_DATABASE and HOPRAG_DB_USERNAME must be set"))
	}

	return config, nil
}

// ConnectionString returns the lib/pq DSN for the configuration.
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
	)
}

// Database bundles the connection pool with the logger of its owner.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings the connection. It panics if the database
// cannot be reached after a few attempts.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	if logger == nil {
		logger = NewLogger(slog.LevelInfo)
	}

	instance, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		log.Panicf("error opening database %s: %v", name, err)
	}

	_, err = RetryWithContext(context.Background(), 5, logger, func(ctx context.Context, attempt int) (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := instance.PingContext(pingCtx)
		if err != nil {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
		return struct{}{}, err
	})
	if err != nil {
		log.Panicf("error connecting to database %s: %v", name, err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host), slog.String("port", config.Port))

	return &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger,
	}
}

// NewTestDatabase opens a database with a debug logger for tests.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	return NewDatabase("test", config, NewLogger(slog.LevelDebug))
}

// MustStartPostgresContainer starts a pgvector enabled postgres container and
// returns its terminate function and the mapped port.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		postgresImage,
		postgres.WithDatabase(testDatabaseName),
		postgres.WithUsername(testDatabaseUser),
		postgres.WithPassword(testDatabasePassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", err
	}

	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container.Terminate, "", err
	}

	return container.Terminate, port.Port(), nil
}

// SetTestDatabaseConfigEnvs points NewDatabaseConfiguration at a test container.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("HOPRAG_DB_HOST", "localhost")
	t.Setenv("HOPRAG_DB_PORT", port)
	t.Setenv("HOPRAG_DB_DATABASE", testDatabaseName)
	t.Setenv("HOPRAG_DB_USERNAME", testDatabaseUser)
	t.Setenv("HOPRAG_DB_PASSWORD", testDatabasePassword)
	t.Setenv("HOPRAG_DB_SCHEMA", "public")
	t.Setenv("HOPRAG_DB_SSLMODE", "disable")
}

// TestDatabaseConfiguration returns the configuration for a container on port.
func TestDatabaseConfiguration(port string) *DatabaseConfiguration {
	return &DatabaseConfiguration{
		Host:     "localhost",
		Port:     port,
		Database: testDatabaseName,
		Username: testDatabaseUser,
		Password: testDatabasePassword,
		Schema:   "public",
		SSLMode:  "disable",
	}
}

// Close closes the connection pool.
func (d *Database) Close() error {
	return d.Instance.Close()
}
