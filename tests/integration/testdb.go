// Package integration runs the purchase order engine against a real PostgreSQL.
// It uses testcontainers to start the database and applies the embedded migrations.
package integration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/config"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/migration"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

var (
	// Shared container for all tests in the package
	sharedContainer   *tcpostgres.PostgresContainer
	sharedContainerMu sync.Mutex
	sharedHost        string
	sharedPort        int
)

// TestDB is a migrated connection to the shared container
type TestDB struct {
	*persistence.Database
	t *testing.T
}

// NewTestDB returns a fresh connection to the shared PostgreSQL container, starting and migrating it on first use.
// Tests are skipped with -short or when INTEGRATION_SKIP is set.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() || os.Getenv("INTEGRATION_SKIP") != "" {
		t.Skip("integration tests need docker")
	}

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	ctx := context.Background()
	if sharedContainer == nil {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("po_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "Failed to start PostgreSQL container")

		host, err := container.Host(ctx)
		require.NoError(t, err)
		port, err := container.MappedPort(ctx, "5432/tcp")
		require.NoError(t, err)
		sharedHost, sharedPort = host, port.Int()
		sharedContainer = container

		// Close on the migrator also closes this connection
		sqlDB, err := connect(t).DB.DB()
		require.NoError(t, err)
		m, err := migration.New(sqlDB, "", zap.NewNop())
		require.NoError(t, err, "Failed to create migrator")
		require.NoError(t, m.Up(), "Failed to run migrations")
		require.NoError(t, m.Close())
	}

	tdb := &TestDB{Database: connect(t), t: t}
	t.Cleanup(func() {
		_ = tdb.Close()
	})
	return tdb
}

func connect(t *testing.T) *persistence.Database {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            sharedHost,
		Port:            sharedPort,
		User:            "postgres",
		Password:        "postgres",
		DBName:          "po_test",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 5,
	}

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := persistence.NewDatabase(&cfg, logger.Default.LogMode(level))
	require.NoError(t, err, "Failed to connect to database")
	return db
}

// CleanTables empties the engine's tables
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	require.NoError(tdb.t, tdb.DB.Exec(`TRUNCATE TABLE outbox_events, purchase_orders CASCADE`).Error)
}

// CleanupSharedContainer terminates the shared container.
// Call it from TestMain after m.Run.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
	}
}
