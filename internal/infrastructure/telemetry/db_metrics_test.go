package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sampleRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&sampleRow{}))
	return db
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	reader, provider := newManualMeter(t)
	m, err := telemetry.NewDBMetrics(provider.Meter("db"), telemetry.DBMetricsConfig{
		SlowQueryThreshold: 50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordQuery(ctx, "SELECT", "purchase_orders", time.Millisecond)
	m.RecordQuery(ctx, "UPDATE", "purchase_orders", 80*time.Millisecond)
	m.RecordQuery(ctx, "", "", 90*time.Millisecond)

	metrics := collect(t, reader)
	assert.Equal(t, int64(3), sumInt64(t, metrics["db_query_total"]))
	assert.Equal(t, int64(2), sumInt64(t, metrics["db_slow_query_total"]))
}

func TestDBMetricsPlugin_CountsGormOperations(t *testing.T) {
	reader, provider := newManualMeter(t)
	m, err := telemetry.NewDBMetrics(provider.Meter("db"), telemetry.DefaultDBMetricsConfig(), nil)
	require.NoError(t, err)

	db := openSQLite(t)
	require.NoError(t, db.Use(telemetry.NewDBMetricsPlugin(m)))

	require.NoError(t, db.Create(&sampleRow{Name: "a"}).Error)
	var rows []sampleRow
	require.NoError(t, db.Find(&rows).Error)
	require.NoError(t, db.Model(&sampleRow{}).Where("name = ?", "a").Update("name", "b").Error)
	require.NoError(t, db.Exec("DELETE FROM sample_rows").Error)

	sum := collect(t, reader)["db_query_total"]
	assert.Equal(t, int64(4), sumInt64(t, sum))
}

func TestDBMetrics_PoolStatsCollection(t *testing.T) {
	reader, provider := newManualMeter(t)
	m, err := telemetry.NewDBMetrics(provider.Meter("db"), telemetry.DBMetricsConfig{
		PoolStatsInterval: time.Hour,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	sqlDB, err := openSQLite(t).DB()
	require.NoError(t, err)
	m.SetSQLDB(sqlDB)
	m.StartPoolStatsCollection(context.Background())

	assert.Eventually(t, func() bool {
		_, ok := collect(t, reader)["db_pool_connections"]
		return ok
	}, time.Second, 10*time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestRegisterDBMetrics_DisabledProvider(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	m, err := telemetry.RegisterDBMetrics(openSQLite(t), mp, telemetry.DefaultDBMetricsConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRegisterDBMetrics_WithReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	db := openSQLite(t)
	m, err := telemetry.RegisterDBMetrics(db, mp, telemetry.DefaultDBMetricsConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, m)
	defer m.Stop()

	require.NoError(t, db.Create(&sampleRow{Name: "x"}).Error)
	assert.Equal(t, int64(1), sumInt64(t, collect(t, reader)["db_query_total"]))
}
