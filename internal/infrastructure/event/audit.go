package event

import (
	"context"

	"github.com/erp/finance/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogger writes one structured log line per domain event. It subscribes
// to every event type.
type AuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger creates a new AuditLogger
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{logger: logger.Named("audit")}
}

// EventTypes returns nil so the handler receives all events
func (a *AuditLogger) EventTypes() []string { return nil }

// Handle logs the event envelope
func (a *AuditLogger) Handle(_ context.Context, event shared.DomainEvent) error {
	a.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

var _ shared.EventHandler = (*AuditLogger)(nil)
