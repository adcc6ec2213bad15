package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*FinanceMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewFinanceMetrics(provider.Meter(MeterName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func sampleTitle(t *testing.T, direction finance.Direction) *finance.FinancialTitle {
	t.Helper()
	params := finance.NewTitleParams{
		Direction:   direction,
		Description: "Mensalidade",
		Amount:      decimal.NewFromInt(250),
		DueDate:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	if direction == finance.DirectionReceivable {
		customer := uuid.New()
		params.CounterpartyID = &customer
	}
	title, err := finance.NewFinancialTitle(uuid.New(), params, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return title
}

func TestFinanceMetrics_CountsTitleEvents(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	receivable := sampleTitle(t, finance.DirectionReceivable)
	payable := sampleTitle(t, finance.DirectionPayable)

	require.NoError(t, m.Handle(ctx, finance.NewTitleCreatedEvent(receivable)))
	require.NoError(t, m.Handle(ctx, finance.NewTitleCreatedEvent(receivable)))
	require.NoError(t, m.Handle(ctx, finance.NewTitleCreatedEvent(payable)))

	payable.Status = finance.TitleStatusOverdue
	require.NoError(t, m.Handle(ctx, finance.NewTitleStatusChangedEvent(payable, finance.TitleStatusPending)))
	payable.Status = finance.TitleStatusPending
	require.NoError(t, m.Handle(ctx, finance.NewTitleStatusChangedEvent(payable, finance.TitleStatusOverdue)))

	metrics := collect(t, reader)
	created := metrics["finance.titles.created"]
	assert.Equal(t, int64(2), sumFor(t, created, "direction", "receivable"))
	assert.Equal(t, int64(1), sumFor(t, created, "direction", "payable"))
	assert.Equal(t, int64(1), sumFor(t, metrics["finance.titles.overdue"], "direction", "payable"))
}

func TestFinanceMetrics_PaymentsAndStatements(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	title := sampleTitle(t, finance.DirectionReceivable)
	payment := &finance.Payment{
		BaseEntity:  shared.BaseEntity{ID: uuid.New()},
		Amount:      decimal.NewFromInt(120),
		PaymentDate: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, m.Handle(ctx, finance.NewPaymentRecordedEvent(title, payment)))

	statement, err := finance.NewBankStatement(title.TenantID, "extrato.ofx", finance.FormatOFX, "abc", uuid.New(), time.Now())
	require.NoError(t, err)
	statement.EntriesCount = 7
	require.NoError(t, m.Handle(ctx, finance.NewStatementImportedEvent(statement)))

	metrics := collect(t, reader)
	assert.Equal(t, int64(1), sumFor(t, metrics["finance.payments.recorded"], "direction", "receivable"))
	assert.Equal(t, int64(1), sumFor(t, metrics["finance.statements.imported"], "format", "ofx"))
	assert.Equal(t, int64(7), sumFor(t, metrics["finance.statement_entries.imported"], "format", "ofx"))

	hist, ok := metrics["finance.payments.amount"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 120.0, hist.DataPoints[0].Sum, 0.001)
}

func TestFinanceMetrics_EventTypes(t *testing.T) {
	m, _ := newTestMetrics(t)
	assert.Contains(t, m.EventTypes(), finance.EventTypePaymentRecorded)
	assert.Contains(t, m.EventTypes(), finance.EventTypeStatementImported)
}
