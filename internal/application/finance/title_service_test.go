package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestTitle(t *testing.T, tenantID uuid.UUID, direction finance.Direction, amount string, due time.Time) *finance.FinancialTitle {
	t.Helper()
	customerID := uuid.New()
	title, err := finance.NewFinancialTitle(tenantID, finance.NewTitleParams{
		Direction:        direction,
		CounterpartyID:   &customerID,
		CounterpartyName: "Cliente Teste",
		Description:      "Serviço",
		Amount:           decimal.RequireFromString(amount),
		DueDate:          due,
	}, testNow)
	require.NoError(t, err)
	title.ClearDomainEvents()
	return title
}

func errorCode(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		return shared.CodeValidation
	}
	return ""
}

func TestTitleService_Create_Success(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	customerID := uuid.New()
	repos := newTestRepos()
	publisher := &recordingPublisher{}
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock(), WithEventPublisher(publisher))

	repos.titles.On("Save", ctx, mock.AnythingOfType("*finance.FinancialTitle")).Return(nil)

	resp, err := svc.Create(ctx, tenantID, Actor{UserID: uuid.New()}, finance.DirectionReceivable, CreateTitleRequest{
		CounterpartyID: &customerID,
		Description:    "Troca de óleo",
		Amount:         decimal.NewFromInt(250),
		DueDate:        "2026-03-20",
	})

	require.NoError(t, err)
	assert.Equal(t, finance.TitleStatusPending, resp.Status)
	assert.True(t, resp.AmountPaid.IsZero())
	assert.True(t, resp.RemainingAmount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, []string{finance.EventTypeTitleCreated}, publisher.types)
	repos.titles.AssertExpectations(t)
}

func TestTitleService_Create_UnknownChartOfAccount(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	customerID := uuid.New()
	accountID := uuid.New()
	repos := newTestRepos()
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock())

	repos.accounts.On("FindByIDForTenant", ctx, tenantID, accountID).Return(nil, shared.ErrNotFound)

	_, err := svc.Create(ctx, tenantID, Actor{}, finance.DirectionReceivable, CreateTitleRequest{
		CounterpartyID:   &customerID,
		Description:      "Revisão",
		Amount:           decimal.NewFromInt(100),
		DueDate:          "2026-03-20",
		ChartOfAccountID: &accountID,
	})

	var v *shared.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "chart_of_account_id")
	repos.titles.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTitleService_Create_InvalidDueDate(t *testing.T) {
	repos := newTestRepos()
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock())

	_, err := svc.Create(context.Background(), uuid.New(), Actor{}, finance.DirectionPayable, CreateTitleRequest{
		Description: "Aluguel",
		Amount:      decimal.NewFromInt(100),
		DueDate:     "20/03/2026",
	})

	assert.True(t, shared.IsValidation(err))
}

func TestTitleService_Get_WrongDirection(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := newTestRepos()
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock())
	payable := newTestTitle(t, tenantID, finance.DirectionPayable, "80", testDay(5))

	repos.titles.On("FindByIDForTenant", ctx, tenantID, payable.ID).Return(payable, nil)

	_, err := svc.Get(ctx, tenantID, finance.ReceivableRef{ID: payable.ID})

	assert.True(t, shared.IsNotFound(err))
}

func TestTitleService_Get_DerivesOverdue(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := newTestRepos()
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock())
	title := newTestTitle(t, tenantID, finance.DirectionReceivable, "80", testDay(-3))
	// stored status is stale
	title.Status = finance.TitleStatusPending

	repos.titles.On("FindByIDForTenant", ctx, tenantID, title.ID).Return(title, nil)

	resp, err := svc.Get(ctx, tenantID, title.Ref())

	require.NoError(t, err)
	assert.Equal(t, finance.TitleStatusOverdue, resp.Status)
	assert.Equal(t, 3, resp.DaysOverdue)
}

func TestTitleService_Delete_RequiresCapability(t *testing.T) {
	repos := newTestRepos()
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock())

	err := svc.Delete(context.Background(), uuid.New(), Actor{Permissions: []string{"receivable:update"}}, finance.ReceivableRef{ID: uuid.New()})

	assert.Equal(t, shared.CodeForbidden, errorCode(err))
	repos.titles.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestTitleService_Delete_WithPayments(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := newTestRepos()
	cache := new(MockSummaryCache)
	svc := NewTitleService(repos.repositories(), repos.scope(), cache, fixedClock())
	title := newTestTitle(t, tenantID, finance.DirectionReceivable, "100", testDay(10))
	ref := title.Ref()

	repos.titles.On("FindForUpdate", ctx, tenantID, title.ID).Return(title, nil)
	repos.payments.On("CountByTitle", ctx, tenantID, ref).Return(int64(2), nil)

	err := svc.Delete(ctx, tenantID, Actor{Permissions: []string{"receivable:delete"}}, ref)

	assert.True(t, shared.IsConflict(err))
	repos.titles.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "DeletePrefix", mock.Anything, mock.Anything)
}

func TestTitleService_Delete_Success(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := newTestRepos()
	cache := new(MockSummaryCache)
	svc := NewTitleService(repos.repositories(), repos.scope(), cache, fixedClock())
	title := newTestTitle(t, tenantID, finance.DirectionPayable, "100", testDay(10))
	ref := title.Ref()

	repos.titles.On("FindForUpdate", ctx, tenantID, title.ID).Return(title, nil)
	repos.payments.On("CountByTitle", ctx, tenantID, ref).Return(int64(0), nil)
	repos.titles.On("Delete", ctx, tenantID, title.ID).Return(nil)
	cache.On("DeletePrefix", ctx, SummaryCachePrefix(tenantID, finance.DirectionPayable)).Return(nil)

	err := svc.Delete(ctx, tenantID, Actor{Permissions: []string{"payable:*"}}, ref)

	require.NoError(t, err)
	repos.titles.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestTitleService_Cancel(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := newTestRepos()
	publisher := &recordingPublisher{}
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock(), WithEventPublisher(publisher))
	title := newTestTitle(t, tenantID, finance.DirectionReceivable, "100", testDay(10))

	repos.titles.On("FindForUpdate", ctx, tenantID, title.ID).Return(title, nil)
	repos.titles.On("SaveWithLock", ctx, title).Return(nil)

	resp, err := svc.Cancel(ctx, tenantID, title.Ref(), CancelTitleRequest{Reason: "duplicado"})

	require.NoError(t, err)
	assert.Equal(t, finance.TitleStatusCancelled, resp.Status)
	assert.Equal(t, "duplicado", resp.CancelReason)
	assert.Contains(t, publisher.types, finance.EventTypeTitleCancelled)
}

func TestTitleService_GenerateFromWorkOrder_AlreadyBilled(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	workOrderID := uuid.New()
	repos := newTestRepos()
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock())

	repos.titles.On("ExistsForWorkOrder", ctx, tenantID, workOrderID).Return(true, nil)

	_, err := svc.GenerateFromWorkOrder(ctx, tenantID, Actor{}, WorkOrderTitleRequest{
		WorkOrderID: workOrderID,
		CustomerID:  uuid.New(),
		Amount:      decimal.NewFromInt(300),
	})

	assert.True(t, shared.IsConflict(err))
	repos.titles.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTitleService_GenerateFromWorkOrder_DefaultDueDate(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	workOrderID := uuid.New()
	repos := newTestRepos()
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock())

	repos.titles.On("ExistsForWorkOrder", ctx, tenantID, workOrderID).Return(false, nil)
	repos.titles.On("Save", ctx, mock.AnythingOfType("*finance.FinancialTitle")).Return(nil)

	resp, err := svc.GenerateFromWorkOrder(ctx, tenantID, Actor{}, WorkOrderTitleRequest{
		WorkOrderID: workOrderID,
		CustomerID:  uuid.New(),
		Number:      "1234",
		Amount:      decimal.NewFromInt(300),
	})

	require.NoError(t, err)
	assert.Equal(t, "OS 1234", resp.Description)
	assert.Equal(t, testDay(30), resp.DueDate)
	assert.Equal(t, finance.SourceTypeWorkOrder, resp.SourceType)
	assert.Equal(t, &workOrderID, resp.WorkOrderID)
}

func TestTitleService_GenerateInstallments_SplitsRemainderIntoLast(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := newTestRepos()
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock())

	var saved []*finance.FinancialTitle
	repos.titles.On("SaveBatch", ctx, mock.AnythingOfType("[]*finance.FinancialTitle")).
		Run(func(args mock.Arguments) { saved = args.Get(1).([]*finance.FinancialTitle) }).
		Return(nil)

	resp, err := svc.GenerateInstallments(ctx, tenantID, Actor{}, InstallmentRequest{
		CustomerID:   uuid.New(),
		Description:  "Retífica",
		TotalAmount:  decimal.NewFromInt(100),
		Installments: 3,
		FirstDueDate: "2026-04-10",
	})

	require.NoError(t, err)
	require.Len(t, resp, 3)
	require.Len(t, saved, 3)
	assert.Equal(t, "33.33", resp[0].Amount.StringFixed(2))
	assert.Equal(t, "33.33", resp[1].Amount.StringFixed(2))
	assert.Equal(t, "33.34", resp[2].Amount.StringFixed(2))
	assert.Equal(t, "Retífica - Parcela 2/3", resp[1].Description)
	assert.Equal(t, time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), resp[2].DueDate)
	assert.Equal(t, 3, resp[2].InstallmentTotal)
}

func TestTitleService_GenerateInstallments_FirstDueInPast(t *testing.T) {
	repos := newTestRepos()
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock())

	_, err := svc.GenerateInstallments(context.Background(), uuid.New(), Actor{}, InstallmentRequest{
		CustomerID:   uuid.New(),
		Description:  "Retífica",
		TotalAmount:  decimal.NewFromInt(100),
		Installments: 3,
		FirstDueDate: "2026-03-01",
	})

	var v *shared.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "first_due_date")
}

func TestTitleService_Summary_CacheHit(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := newTestRepos()
	cache := new(MockSummaryCache)
	svc := NewTitleService(repos.repositories(), repos.scope(), cache, fixedClock())
	cached := &finance.TitleSummary{Pending: decimal.NewFromInt(10)}

	cache.On("Get", ctx, SummaryCacheKey(tenantID, finance.DirectionReceivable, testNow)).Return(cached, nil)

	summary, err := svc.Summary(ctx, tenantID, finance.DirectionReceivable)

	require.NoError(t, err)
	assert.Same(t, cached, summary)
	repos.titles.AssertNotCalled(t, "Summary", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTitleService_Summary_CacheMissFillsCache(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := newTestRepos()
	cache := new(MockSummaryCache)
	svc := NewTitleService(repos.repositories(), repos.scope(), cache, fixedClock())
	summary := &finance.TitleSummary{Overdue: decimal.NewFromInt(42)}
	key := SummaryCacheKey(tenantID, finance.DirectionPayable, testNow)

	cache.On("Get", ctx, key).Return(nil, nil)
	repos.titles.On("Summary", ctx, tenantID, finance.DirectionPayable, testNow).Return(summary, nil)
	cache.On("Set", ctx, key, summary).Return(nil)

	got, err := svc.Summary(ctx, tenantID, finance.DirectionPayable)

	require.NoError(t, err)
	assert.True(t, got.Overdue.Equal(decimal.NewFromInt(42)))
	cache.AssertExpectations(t)
}

func TestTitleService_Summary_CacheErrorFallsBackToRepository(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := newTestRepos()
	cache := new(MockSummaryCache)
	svc := NewTitleService(repos.repositories(), repos.scope(), cache, fixedClock())
	summary := &finance.TitleSummary{}
	key := SummaryCacheKey(tenantID, finance.DirectionPayable, testNow)

	cache.On("Get", ctx, key).Return(nil, errors.New("connection refused"))
	repos.titles.On("Summary", ctx, tenantID, finance.DirectionPayable, testNow).Return(summary, nil)
	cache.On("Set", ctx, key, summary).Return(errors.New("connection refused"))

	got, err := svc.Summary(ctx, tenantID, finance.DirectionPayable)

	require.NoError(t, err)
	assert.Same(t, summary, got)
}

func TestTitleService_RefreshOverdue(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repos := newTestRepos()
	cache := new(MockSummaryCache)
	publisher := &recordingPublisher{}
	svc := NewTitleService(repos.repositories(), repos.scope(), cache, fixedClock(), WithEventPublisher(publisher))

	late := newTestTitle(t, tenantID, finance.DirectionReceivable, "100", testDay(-1))
	late.Status = finance.TitleStatusPending
	gone := newTestTitle(t, tenantID, finance.DirectionPayable, "50", testDay(-2))
	gone.Status = finance.TitleStatusPending

	repos.titles.On("FindStale", ctx, tenantID, testDay(0)).Return([]finance.FinancialTitle{*late, *gone}, nil)
	repos.titles.On("FindForUpdate", ctx, tenantID, late.ID).Return(late, nil)
	repos.titles.On("FindForUpdate", ctx, tenantID, gone.ID).Return(nil, shared.ErrNotFound)
	repos.titles.On("SaveWithLock", ctx, late).Return(nil)
	cache.On("DeletePrefix", ctx, mock.AnythingOfType("string")).Return(nil)

	changed, err := svc.RefreshOverdue(ctx, tenantID)

	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, finance.TitleStatusOverdue, late.Status)
	assert.Equal(t, []string{finance.EventTypeTitleStatusChanged}, publisher.types)
	cache.AssertNumberOfCalls(t, "DeletePrefix", 2)
}

func TestTitleService_List_InvalidFilter(t *testing.T) {
	repos := newTestRepos()
	svc := NewTitleService(repos.repositories(), repos.scope(), nil, fixedClock())
	bad := "not-a-uuid"

	_, _, err := svc.List(context.Background(), uuid.New(), finance.DirectionReceivable, TitleListFilter{
		Status:         "bogus",
		CounterpartyID: &bad,
		DueFrom:        "yesterday",
	})

	var v *shared.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Fields, "status")
	assert.Contains(t, v.Fields, "counterparty_id")
	assert.Contains(t, v.Fields, "due_from")
}

func TestSummaryCacheKey(t *testing.T) {
	tenantID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	key := SummaryCacheKey(tenantID, finance.DirectionReceivable, testNow)

	assert.Equal(t, "finance:summary:00000000-0000-0000-0000-000000000001:receivable:2026-03", key)
	assert.Contains(t, key, SummaryCachePrefix(tenantID, finance.DirectionReceivable))
}
