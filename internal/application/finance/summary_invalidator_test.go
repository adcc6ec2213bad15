package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSummaryInvalidator_Handle(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	cache := new(MockSummaryCache)
	handler := NewSummaryInvalidator(cache, nil)
	title := newTestTitle(t, tenantID, finance.DirectionPayable, "10", testDay(1))

	cache.On("DeletePrefix", ctx, SummaryCachePrefix(tenantID, finance.DirectionPayable)).Return(nil).Once()

	require.NoError(t, handler.Handle(ctx, finance.NewTitleCreatedEvent(title)))
	cache.AssertExpectations(t)
}

func TestSummaryInvalidator_CacheErrorIsSwallowed(t *testing.T) {
	ctx := context.Background()
	cache := new(MockSummaryCache)
	handler := NewSummaryInvalidator(cache, nil)
	title := newTestTitle(t, uuid.New(), finance.DirectionReceivable, "10", testDay(1))

	cache.On("DeletePrefix", ctx, mock.AnythingOfType("string")).Return(errors.New("timeout"))

	assert.NoError(t, handler.Handle(ctx, finance.NewTitleStatusChangedEvent(title, finance.TitleStatusPending)))
}

func TestSummaryInvalidator_IgnoresOtherEvents(t *testing.T) {
	cache := new(MockSummaryCache)
	handler := NewSummaryInvalidator(cache, nil)
	statement := newTestStatement(t, uuid.New())

	require.NoError(t, handler.Handle(context.Background(), finance.NewStatementImportedEvent(statement)))
	cache.AssertNotCalled(t, "DeletePrefix", mock.Anything, mock.Anything)
	assert.NotContains(t, handler.EventTypes(), finance.EventTypeStatementImported)
}
