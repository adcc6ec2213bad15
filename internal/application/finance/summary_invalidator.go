package finance

import (
	"context"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"go.uber.org/zap"
)

// SummaryInvalidator drops cached title summaries whenever a title or its
// ledger changes.
type SummaryInvalidator struct {
	cache  SummaryCache
	logger *zap.Logger
}

// NewSummaryInvalidator creates a new SummaryInvalidator
func NewSummaryInvalidator(cache SummaryCache, logger *zap.Logger) *SummaryInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryInvalidator{cache: cache, logger: logger}
}

// EventTypes returns the events that change summary totals
func (h *SummaryInvalidator) EventTypes() []string {
	return []string{
		finance.EventTypeTitleCreated,
		finance.EventTypeTitleCancelled,
		finance.EventTypeTitleStatusChanged,
		finance.EventTypePaymentRecorded,
		finance.EventTypePaymentReversed,
	}
}

// Handle invalidates every cached period of the event's tenant and direction
func (h *SummaryInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	direction, ok := eventDirection(event)
	if !ok {
		return nil
	}
	invalidateSummary(ctx, h.cache, h.logger, event.TenantID(), direction)
	return nil
}

func eventDirection(event shared.DomainEvent) (finance.Direction, bool) {
	switch e := event.(type) {
	case *finance.TitleCreatedEvent:
		return e.Direction, true
	case *finance.TitleCancelledEvent:
		return e.Direction, true
	case *finance.TitleStatusChangedEvent:
		return e.Direction, true
	case *finance.PaymentRecordedEvent:
		return e.Direction, true
	case *finance.PaymentReversedEvent:
		return e.Direction, true
	}
	return "", false
}

var _ shared.EventHandler = (*SummaryInvalidator)(nil)
