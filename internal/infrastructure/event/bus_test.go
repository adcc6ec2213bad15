package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	eventTypes []string
	err        error
	panicWith  any

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func sampleTitle(t *testing.T) *finance.FinancialTitle {
	t.Helper()
	customer := uuid.New()
	title, err := finance.NewFinancialTitle(uuid.New(), finance.NewTitleParams{
		Direction:      finance.DirectionReceivable,
		CounterpartyID: &customer,
		Description:    "Service invoice",
		Amount:         decimal.NewFromInt(100),
		DueDate:        time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return title
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	created := newRecordingHandler(finance.EventTypeTitleCreated)
	cancelled := newRecordingHandler(finance.EventTypeTitleCancelled)
	bus.Subscribe(created)
	bus.Subscribe(cancelled)

	title := sampleTitle(t)
	require.NoError(t, bus.Publish(context.Background(),
		finance.NewTitleCreatedEvent(title),
		finance.NewTitleCreatedEvent(title),
	))

	assert.Equal(t, 2, created.count())
	assert.Zero(t, cancelled.count())
	assert.Equal(t, int64(2), bus.Stats().Published)
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := newRecordingHandler(finance.EventTypeTitleCreated)
	bus.Subscribe(handler, finance.EventTypeTitleCancelled)

	title := sampleTitle(t)
	_ = bus.Publish(context.Background(), finance.NewTitleCreatedEvent(title))
	assert.Zero(t, handler.count())

	require.NoError(t, title.Cancel("duplicate", time.Now()))
	_ = bus.Publish(context.Background(), finance.NewTitleCancelledEvent(title))
	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_FailuresDoNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newRecordingHandler(finance.EventTypeTitleCreated)
	failing.err = errors.New("cache unavailable")
	panicking := newRecordingHandler(finance.EventTypeTitleCreated)
	panicking.panicWith = "boom"
	healthy := newRecordingHandler(finance.EventTypeTitleCreated)

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), finance.NewTitleCreatedEvent(sampleTitle(t)))

	require.NoError(t, err)
	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, int64(2), bus.Stats().Failed)
}

func TestInMemoryEventBus_WildcardAndUnsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	all := newRecordingHandler()
	bus.Subscribe(all)
	assert.Equal(t, 1, bus.Stats().Handlers)

	title := sampleTitle(t)
	_ = bus.Publish(context.Background(), finance.NewTitleCreatedEvent(title))
	assert.Equal(t, 1, all.count())

	bus.Unsubscribe(all)
	_ = bus.Publish(context.Background(), finance.NewTitleCreatedEvent(title))
	assert.Equal(t, 1, all.count())
	assert.Zero(t, bus.Stats().Handlers)
}

type deadlineHandler struct {
	deadline time.Time
	ok       bool
	ctxErr   error
}

func (h *deadlineHandler) EventTypes() []string { return nil }

func (h *deadlineHandler) Handle(ctx context.Context, _ shared.DomainEvent) error {
	h.deadline, h.ok = ctx.Deadline()
	h.ctxErr = ctx.Err()
	return nil
}

func TestInMemoryEventBus_HandlerContext(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithHandlerTimeout(time.Minute))
	handler := &deadlineHandler{}
	bus.Subscribe(handler)

	// a request context cancelled right after commit must not abort handlers
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = bus.Publish(ctx, finance.NewTitleCreatedEvent(sampleTitle(t)))

	assert.True(t, handler.ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), handler.deadline, 5*time.Second)
	assert.NoError(t, handler.ctxErr)
}
