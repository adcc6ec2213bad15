package telemetry

import (
	"errors"
	"time"

	"github.com/erp/finance/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const startedAtKey = "telemetry:started_at"

// InstrumentGORM registers the otelgorm plugin and a callback that flags slow
// statements on their span. Query variables stay out of spans unless
// DBLogFullSQL is set.
func InstrumentGORM(db *gorm.DB, cfg config.TelemetryConfig, dbSystem string, logger *zap.Logger) error {
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(dbSystem)}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	slow := slowQueryMarker(cfg.DBSlowQueryThresh)
	cb := db.Callback()
	err := errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:start_create", markStart),
		cb.Query().Before("gorm:query").Register("telemetry:start_query", markStart),
		cb.Update().Before("gorm:update").Register("telemetry:start_update", markStart),
		cb.Delete().Before("gorm:delete").Register("telemetry:start_delete", markStart),
		cb.Row().Before("gorm:row").Register("telemetry:start_row", markStart),
		cb.Raw().Before("gorm:raw").Register("telemetry:start_raw", markStart),
		cb.Create().After("gorm:create").Register("telemetry:slow_create", slow),
		cb.Query().After("gorm:query").Register("telemetry:slow_query", slow),
		cb.Update().After("gorm:update").Register("telemetry:slow_update", slow),
		cb.Delete().After("gorm:delete").Register("telemetry:slow_delete", slow),
		cb.Row().After("gorm:row").Register("telemetry:slow_row", slow),
		cb.Raw().After("gorm:raw").Register("telemetry:slow_raw", slow),
	)
	if err != nil {
		return err
	}

	if logger != nil {
		logger.Info("Database tracing enabled",
			zap.String("db_system", dbSystem),
			zap.Bool("log_full_sql", cfg.DBLogFullSQL),
			zap.Duration("slow_query_threshold", cfg.DBSlowQueryThresh),
		)
	}
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

func slowQueryMarker(threshold time.Duration) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.Context == nil {
			return
		}
		span := trace.SpanFromContext(db.Statement.Context)
		if !span.IsRecording() {
			return
		}
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
		}
		v, ok := db.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}
		if elapsed := time.Since(started); threshold > 0 && elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
