package finance

import (
	"testing"
	"time"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(offset int) time.Time {
	return DateOnly(testNow).AddDate(0, 0, offset)
}

func newTestTitle(t *testing.T, direction Direction, amount string, due time.Time) *FinancialTitle {
	t.Helper()
	customer := uuid.New()
	title, err := NewFinancialTitle(uuid.New(), NewTitleParams{
		Direction:        direction,
		CounterpartyID:   &customer,
		CounterpartyName: "Cliente Teste",
		Description:      "OS 1001",
		Amount:           dec(amount),
		DueDate:          due,
	}, testNow)
	require.NoError(t, err)
	return title
}

func TestTitleStatus_IsOpen(t *testing.T) {
	tests := []struct {
		status   TitleStatus
		expected bool
	}{
		{TitleStatusPending, true},
		{TitleStatusPartial, true},
		{TitleStatusOverdue, true},
		{TitleStatusPaid, false},
		{TitleStatusCancelled, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.status.IsOpen())
			assert.Equal(t, !tc.expected, tc.status.IsTerminal())
		})
	}
}

func TestDeriveTitleStatus(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		paid      string
		due       time.Time
		cancelled bool
		expected  TitleStatus
	}{
		{"nothing paid, due later", "100", "0", day(5), false, TitleStatusPending},
		{"nothing paid, due today", "100", "0", day(0), false, TitleStatusPending},
		{"nothing paid, due yesterday", "100", "0", day(-1), false, TitleStatusOverdue},
		{"partially paid, not due", "100", "40", day(1), false, TitleStatusPartial},
		{"partially paid, past due", "100", "40", day(-3), false, TitleStatusOverdue},
		{"fully paid, past due", "100", "100", day(-3), false, TitleStatusPaid},
		{"cancel overrides everything", "100", "0", day(-3), true, TitleStatusCancelled},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveTitleStatus(dec(tc.amount), dec(tc.paid), tc.due, tc.cancelled, testNow)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestNewFinancialTitle(t *testing.T) {
	t.Run("starts pending with nothing paid", func(t *testing.T) {
		title := newTestTitle(t, DirectionReceivable, "250.00", day(10))

		assert.Equal(t, TitleStatusPending, title.Status)
		assert.True(t, title.AmountPaid.IsZero())
		assert.Equal(t, SourceTypeManual, title.SourceType)
		assert.Equal(t, 1, title.GetVersion())
		require.Len(t, title.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeTitleCreated, title.GetDomainEvents()[0].EventType())
	})

	t.Run("past due date starts overdue", func(t *testing.T) {
		title := newTestTitle(t, DirectionPayable, "500.00", day(-1))
		assert.Equal(t, TitleStatusOverdue, title.Status)
	})

	t.Run("payable without supplier is allowed", func(t *testing.T) {
		title, err := NewFinancialTitle(uuid.New(), NewTitleParams{
			Direction:   DirectionPayable,
			Description: "Energia",
			Amount:      dec("80"),
			DueDate:     day(3),
		}, testNow)
		require.NoError(t, err)
		assert.Nil(t, title.CounterpartyID)
	})

	t.Run("collects every invalid field", func(t *testing.T) {
		_, err := NewFinancialTitle(uuid.New(), NewTitleParams{
			Direction: DirectionReceivable,
			Amount:    dec("0"),
		}, testNow)

		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "amount")
		assert.Contains(t, verr.Fields, "due_date")
		assert.Contains(t, verr.Fields, "description")
		assert.Contains(t, verr.Fields, "customer_id")
	})

	t.Run("negative amount is rejected", func(t *testing.T) {
		_, err := NewFinancialTitle(uuid.New(), NewTitleParams{
			Direction:   DirectionPayable,
			Description: "x",
			Amount:      dec("-1"),
			DueDate:     day(1),
		}, testNow)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestFinancialTitle_ApplyPayment(t *testing.T) {
	t.Run("partial then full payment", func(t *testing.T) {
		title := newTestTitle(t, DirectionReceivable, "100.00", day(5))

		require.NoError(t, title.ApplyPayment(dec("30.00"), testNow))
		assert.Equal(t, TitleStatusPartial, title.Status)
		assert.True(t, title.RemainingAmount().Equal(dec("70")))
		assert.Nil(t, title.PaidAt)

		require.NoError(t, title.ApplyPayment(dec("70.00"), testNow))
		assert.Equal(t, TitleStatusPaid, title.Status)
		require.NotNil(t, title.PaidAt)
		assert.True(t, title.AmountPaid.Equal(title.Amount))
		assert.Equal(t, 3, title.GetVersion())
	})

	t.Run("overpayment is rejected without mutation", func(t *testing.T) {
		title := newTestTitle(t, DirectionPayable, "100.00", day(5))
		require.NoError(t, title.ApplyPayment(dec("60"), testNow))
		version := title.GetVersion()

		err := title.ApplyPayment(dec("40.01"), testNow)

		assert.True(t, shared.IsValidation(err))
		assert.True(t, title.AmountPaid.Equal(dec("60")))
		assert.Equal(t, version, title.GetVersion())
	})

	t.Run("non positive amount", func(t *testing.T) {
		title := newTestTitle(t, DirectionPayable, "100.00", day(5))
		assert.True(t, shared.IsValidation(title.ApplyPayment(dec("0"), testNow)))
		assert.True(t, shared.IsValidation(title.ApplyPayment(dec("-5"), testNow)))
	})

	t.Run("cancelled title conflicts", func(t *testing.T) {
		title := newTestTitle(t, DirectionPayable, "100.00", day(5))
		require.NoError(t, title.Cancel("duplicada", testNow))
		assert.True(t, shared.IsConflict(title.ApplyPayment(dec("10"), testNow)))
	})

	t.Run("paid title conflicts", func(t *testing.T) {
		title := newTestTitle(t, DirectionPayable, "100.00", day(5))
		require.NoError(t, title.ApplyPayment(dec("100"), testNow))
		assert.True(t, shared.IsConflict(title.ApplyPayment(dec("1"), testNow)))
	})

	t.Run("overdue payable paid in full leaves overdue state", func(t *testing.T) {
		title := newTestTitle(t, DirectionPayable, "500.00", day(-1))
		require.Equal(t, TitleStatusOverdue, title.Status)

		require.NoError(t, title.ApplyPayment(dec("500.00"), testNow))
		assert.Equal(t, TitleStatusPaid, title.Status)
		assert.NotNil(t, title.PaidAt)
	})
}

func TestFinancialTitle_RevertPayment(t *testing.T) {
	title := newTestTitle(t, DirectionReceivable, "100.00", day(5))
	require.NoError(t, title.ApplyPayment(dec("100"), testNow))

	require.NoError(t, title.RevertPayment(dec("40"), testNow))
	assert.Equal(t, TitleStatusPartial, title.Status)
	assert.Nil(t, title.PaidAt)

	assert.True(t, shared.IsConflict(title.RevertPayment(dec("61"), testNow)))
}

func TestFinancialTitle_Edit(t *testing.T) {
	t.Run("amount may not drop below paid", func(t *testing.T) {
		title := newTestTitle(t, DirectionReceivable, "100.00", day(5))
		require.NoError(t, title.ApplyPayment(dec("50"), testNow))

		lower := dec("49.99")
		err := title.Edit(EditTitleParams{Amount: &lower}, testNow)
		assert.True(t, shared.IsValidation(err))
		assert.True(t, title.Amount.Equal(dec("100")))
	})

	t.Run("moving the due date recomputes status", func(t *testing.T) {
		title := newTestTitle(t, DirectionReceivable, "100.00", day(5))
		past := day(-2)
		require.NoError(t, title.Edit(EditTitleParams{DueDate: &past}, testNow))
		assert.Equal(t, TitleStatusOverdue, title.Status)
	})

	t.Run("paid and cancelled titles conflict", func(t *testing.T) {
		desc := "novo"

		paid := newTestTitle(t, DirectionReceivable, "10.00", day(5))
		require.NoError(t, paid.ApplyPayment(dec("10"), testNow))
		assert.True(t, shared.IsConflict(paid.Edit(EditTitleParams{Description: &desc}, testNow)))

		cancelled := newTestTitle(t, DirectionReceivable, "10.00", day(5))
		require.NoError(t, cancelled.Cancel("", testNow))
		assert.True(t, shared.IsConflict(cancelled.Edit(EditTitleParams{Description: &desc}, testNow)))
	})
}

func TestFinancialTitle_CancelAndDelete(t *testing.T) {
	title := newTestTitle(t, DirectionPayable, "100.00", day(5))
	require.NoError(t, title.EnsureDeletable())

	require.NoError(t, title.ApplyPayment(dec("1"), testNow))
	assert.True(t, shared.IsConflict(title.EnsureDeletable()))
	assert.True(t, shared.IsConflict(title.Cancel("x", testNow)))

	fresh := newTestTitle(t, DirectionPayable, "100.00", day(5))
	require.NoError(t, fresh.Cancel("erro de digitação", testNow))
	assert.Equal(t, TitleStatusCancelled, fresh.Status)
	assert.True(t, shared.IsConflict(fresh.Cancel("again", testNow)))
}

func TestFinancialTitle_RefreshStatus(t *testing.T) {
	title := newTestTitle(t, DirectionReceivable, "100.00", day(0))
	title.ClearDomainEvents()
	version := title.Version

	assert.False(t, title.RefreshStatus(testNow))
	assert.Equal(t, version, title.Version)
	assert.True(t, title.RefreshStatus(testNow.AddDate(0, 0, 1)))
	assert.Equal(t, TitleStatusOverdue, title.Status)
	assert.Equal(t, version+1, title.Version)
	assert.False(t, title.RefreshStatus(testNow.AddDate(0, 0, 2)))
	assert.Equal(t, version+1, title.Version)
	require.Len(t, title.GetDomainEvents(), 1)
}

func TestTitleRef(t *testing.T) {
	id := uuid.New()

	ref, err := NewTitleRef(DirectionPayable, id)
	require.NoError(t, err)
	assert.IsType(t, PayableRef{}, ref)
	assert.Equal(t, id, ref.TitleID())

	assert.True(t, SameRef(ref, PayableRef{ID: id}))
	assert.False(t, SameRef(ref, ReceivableRef{ID: id}))

	_, err = NewTitleRef("loan", id)
	assert.True(t, shared.IsValidation(err))

	d, err := ParseDirection("accounts-receivable")
	require.NoError(t, err)
	assert.Equal(t, DirectionReceivable, d)
	assert.Equal(t, "receivable:delete", d.DeleteCapability())
}
