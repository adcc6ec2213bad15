package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/finance/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestSetup_Disabled(t *testing.T) {
	tel, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "finance"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tel.Enabled())
	assert.NotNil(t, tel.Meter(MeterName))
	assert.False(t, tel.LogCore(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetup_DisabledMeterAcceptsFinanceMetrics(t *testing.T) {
	tel, err := Setup(context.Background(), config.TelemetryConfig{}, nil)
	require.NoError(t, err)

	m, err := NewFinanceMetrics(tel.Meter(MeterName))
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestInstrumentGORM(t *testing.T) {
	t.Run("disabled tracing leaves the db untouched", func(t *testing.T) {
		db := openSQLite(t)
		cfg := config.TelemetryConfig{Enabled: true, DBTraceEnabled: false}

		require.NoError(t, InstrumentGORM(db, cfg, "sqlite", zap.NewNop()))
		assert.Empty(t, db.Config.Plugins)
	})

	t.Run("registers otelgorm and keeps queries working", func(t *testing.T) {
		db := openSQLite(t)
		cfg := config.TelemetryConfig{
			Enabled:           true,
			DBTraceEnabled:    true,
			DBSlowQueryThresh: time.Nanosecond,
		}

		require.NoError(t, InstrumentGORM(db, cfg, "sqlite", zap.NewNop()))
		assert.Contains(t, db.Config.Plugins, "otelgorm")

		var one int
		require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
		assert.Equal(t, 1, one)
	})
}
