package telemetry

import (
	"context"
	"fmt"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the finance metrics
const MeterName = "github.com/erp/finance"

// FinanceMetrics turns domain events into OTLP counters. It is subscribed to
// the event bus like any other handler.
type FinanceMetrics struct {
	titlesCreated    metric.Int64Counter
	titlesCancelled  metric.Int64Counter
	titlesOverdue    metric.Int64Counter
	paymentsRecorded metric.Int64Counter
	paymentsReversed metric.Int64Counter
	paymentAmount    metric.Float64Histogram
	statementsImport metric.Int64Counter
	statementEntries metric.Int64Counter
}

// NewFinanceMetrics registers the instruments on meter
func NewFinanceMetrics(meter metric.Meter) (*FinanceMetrics, error) {
	m := &FinanceMetrics{}
	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.titlesCreated, "finance.titles.created", "Financial titles created"},
		{&m.titlesCancelled, "finance.titles.cancelled", "Financial titles cancelled"},
		{&m.titlesOverdue, "finance.titles.overdue", "Titles moved to overdue by the daily refresh"},
		{&m.paymentsRecorded, "finance.payments.recorded", "Payments appended to the ledger"},
		{&m.paymentsReversed, "finance.payments.reversed", "Payments compensated by a reversal entry"},
		{&m.statementsImport, "finance.statements.imported", "Bank statements imported"},
		{&m.statementEntries, "finance.statement_entries.imported", "Bank statement entries imported"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("{item}"))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}
	m.paymentAmount, err = meter.Float64Histogram("finance.payments.amount",
		metric.WithDescription("Amount of recorded payments"),
		metric.WithUnit("{BRL}"),
		metric.WithExplicitBucketBoundaries(10, 50, 100, 500, 1000, 5000, 10000, 50000),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram finance.payments.amount: %w", err)
	}
	return m, nil
}

// EventTypes lists the events that feed a metric
func (m *FinanceMetrics) EventTypes() []string {
	return []string{
		finance.EventTypeTitleCreated,
		finance.EventTypeTitleCancelled,
		finance.EventTypeTitleStatusChanged,
		finance.EventTypePaymentRecorded,
		finance.EventTypePaymentReversed,
		finance.EventTypeStatementImported,
	}
}

// Handle records the event
func (m *FinanceMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *finance.TitleCreatedEvent:
		m.titlesCreated.Add(ctx, 1, direction(e.Direction))
	case *finance.TitleCancelledEvent:
		m.titlesCancelled.Add(ctx, 1, direction(e.Direction))
	case *finance.TitleStatusChangedEvent:
		if e.To == finance.TitleStatusOverdue {
			m.titlesOverdue.Add(ctx, 1, direction(e.Direction))
		}
	case *finance.PaymentRecordedEvent:
		m.paymentsRecorded.Add(ctx, 1, direction(e.Direction),
			metric.WithAttributes(attribute.Bool("fully_paid", e.FullyPaid)))
		m.paymentAmount.Record(ctx, e.Amount.InexactFloat64(), direction(e.Direction))
	case *finance.PaymentReversedEvent:
		m.paymentsReversed.Add(ctx, 1, direction(e.Direction))
	case *finance.StatementImportedEvent:
		format := metric.WithAttributes(attribute.String("format", string(e.Format)))
		m.statementsImport.Add(ctx, 1, format)
		m.statementEntries.Add(ctx, int64(e.EntriesCount), format)
	}
	return nil
}

func direction(d finance.Direction) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("direction", string(d)))
}

var _ shared.EventHandler = (*FinanceMetrics)(nil)
