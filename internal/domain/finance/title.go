package finance

import (
	"strings"
	"time"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TitleStatus represents the settlement status of a financial title
type TitleStatus string

const (
	TitleStatusPending   TitleStatus = "pending"
	TitleStatusPartial   TitleStatus = "partial"
	TitleStatusPaid      TitleStatus = "paid"
	TitleStatusOverdue   TitleStatus = "overdue"
	TitleStatusCancelled TitleStatus = "cancelled"
)

// IsValid checks if the status is a valid value
func (s TitleStatus) IsValid() bool {
	switch s {
	case TitleStatusPending, TitleStatusPartial, TitleStatusPaid, TitleStatusOverdue, TitleStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of TitleStatus
func (s TitleStatus) String() string {
	return string(s)
}

// IsOpen returns true while the title still has a balance to settle
func (s TitleStatus) IsOpen() bool {
	return s == TitleStatusPending || s == TitleStatusPartial || s == TitleStatusOverdue
}

// IsTerminal returns true for paid and cancelled titles
func (s TitleStatus) IsTerminal() bool {
	return s == TitleStatusPaid || s == TitleStatusCancelled
}

// OpenStatuses lists the statuses of titles with an outstanding balance
func OpenStatuses() []TitleStatus {
	return []TitleStatus{TitleStatusPending, TitleStatusPartial, TitleStatusOverdue}
}

// SourceType records how a title came to exist
type SourceType string

const (
	SourceTypeManual       SourceType = "manual"
	SourceTypeWorkOrder    SourceType = "work_order"
	SourceTypeInstallment  SourceType = "installment"
	SourceTypeFundTransfer SourceType = "fund_transfer"
)

// IsValid checks if the source type is a valid value
func (s SourceType) IsValid() bool {
	return s == SourceTypeManual || s == SourceTypeWorkOrder || s == SourceTypeInstallment || s == SourceTypeFundTransfer
}

const (
	maxDescriptionLength   = 255
	maxPaymentMethodLength = 30
)

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (b - a)
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// DeriveTitleStatus computes the status of a title from its balance and due
// date. It is the only place the status rules live; the persisted status
// column is a cache of this function.
func DeriveTitleStatus(amount, amountPaid decimal.Decimal, dueDate time.Time, cancelled bool, today time.Time) TitleStatus {
	switch {
	case cancelled:
		return TitleStatusCancelled
	case amountPaid.GreaterThanOrEqual(amount):
		return TitleStatusPaid
	case DateOnly(dueDate).Before(DateOnly(today)):
		return TitleStatusOverdue
	case amountPaid.IsPositive():
		return TitleStatusPartial
	default:
		return TitleStatusPending
	}
}

// FinancialTitle is a receivable or payable with a face value and a running
// settled amount. amount_paid only moves through ApplyPayment and
// RevertPayment.
type FinancialTitle struct {
	shared.TenantAggregateRoot
	Direction         Direction
	CounterpartyID    *uuid.UUID
	CounterpartyName  string
	Description       string
	Amount            decimal.Decimal
	AmountPaid        decimal.Decimal
	DueDate           time.Time
	PaidAt            *time.Time
	Status            TitleStatus
	CancelledAt       *time.Time
	CancelReason      string
	ChartOfAccountID  *uuid.UUID
	PaymentMethod     string
	Notes             string
	SourceType        SourceType
	WorkOrderID       *uuid.UUID
	InstallmentNumber int
	InstallmentTotal  int
}

// NewTitleParams holds the caller supplied fields of a new title
type NewTitleParams struct {
	Direction         Direction
	CounterpartyID    *uuid.UUID
	CounterpartyName  string
	Description       string
	Amount            decimal.Decimal
	DueDate           time.Time
	ChartOfAccountID  *uuid.UUID
	PaymentMethod     string
	Notes             string
	SourceType        SourceType
	WorkOrderID       *uuid.UUID
	InstallmentNumber int
	InstallmentTotal  int
	CreatedBy         uuid.UUID
}

// Validate collects every field problem of the params
func (p NewTitleParams) Validate() *shared.ValidationError {
	v := &shared.ValidationError{}
	if !p.Direction.IsValid() {
		v.Add("direction", "must be receivable or payable")
	}
	if p.Direction == DirectionReceivable && (p.CounterpartyID == nil || *p.CounterpartyID == uuid.Nil) {
		v.Add("customer_id", "is required")
	}
	if strings.TrimSpace(p.Description) == "" {
		v.Add("description", "is required")
	} else if len(p.Description) > maxDescriptionLength {
		v.Add("description", "may not be greater than 255 characters")
	}
	if !p.Amount.IsPositive() {
		v.Add("amount", "must be greater than zero")
	}
	if p.DueDate.IsZero() {
		v.Add("due_date", "is required")
	}
	if len(p.PaymentMethod) > maxPaymentMethodLength {
		v.Add("payment_method", "may not be greater than 30 characters")
	}
	if p.SourceType != "" && !p.SourceType.IsValid() {
		v.Add("source_type", "is invalid")
	}
	return v
}

// NewFinancialTitle creates a new title with nothing paid
func NewFinancialTitle(tenantID uuid.UUID, p NewTitleParams, now time.Time) (*FinancialTitle, error) {
	if err := p.Validate().OrNil(); err != nil {
		return nil, err
	}
	if p.SourceType == "" {
		p.SourceType = SourceTypeManual
	}

	t := &FinancialTitle{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Direction:           p.Direction,
		CounterpartyID:      p.CounterpartyID,
		CounterpartyName:    p.CounterpartyName,
		Description:         strings.TrimSpace(p.Description),
		Amount:              p.Amount.Round(MoneyPlaces),
		AmountPaid:          decimal.Zero,
		DueDate:             DateOnly(p.DueDate),
		ChartOfAccountID:    p.ChartOfAccountID,
		PaymentMethod:       p.PaymentMethod,
		Notes:               p.Notes,
		SourceType:          p.SourceType,
		WorkOrderID:         p.WorkOrderID,
		InstallmentNumber:   p.InstallmentNumber,
		InstallmentTotal:    p.InstallmentTotal,
	}
	t.SetCreatedBy(p.CreatedBy)
	t.Status = t.DeriveStatus(now)

	t.AddDomainEvent(NewTitleCreatedEvent(t))
	return t, nil
}

// Ref returns the tagged reference to this title
func (t *FinancialTitle) Ref() TitleRef {
	ref, _ := NewTitleRef(t.Direction, t.ID)
	return ref
}

// RemainingAmount returns amount - amount_paid
func (t *FinancialTitle) RemainingAmount() decimal.Decimal {
	return t.Amount.Sub(t.AmountPaid)
}

// IsCancelled returns true once the cancel override is set
func (t *FinancialTitle) IsCancelled() bool {
	return t.CancelledAt != nil
}

// HasPayments returns true if any amount was ever settled
func (t *FinancialTitle) HasPayments() bool {
	return t.AmountPaid.IsPositive()
}

// DeriveStatus computes the status as of now without mutating the title
func (t *FinancialTitle) DeriveStatus(now time.Time) TitleStatus {
	return DeriveTitleStatus(t.Amount, t.AmountPaid, t.DueDate, t.IsCancelled(), now)
}

// RefreshStatus recomputes the cached status and bumps the version when it
// changed. It returns true if it changed.
func (t *FinancialTitle) RefreshStatus(now time.Time) bool {
	next := t.DeriveStatus(now)
	if next == t.Status {
		return false
	}
	prev := t.Status
	t.Status = next
	t.Touch(now)
	t.IncrementVersion()
	t.AddDomainEvent(NewTitleStatusChangedEvent(t, prev))
	return true
}

// DaysOverdue returns the days past due as of today; zero or negative means not yet due
func (t *FinancialTitle) DaysOverdue(today time.Time) int {
	return DaysBetween(t.DueDate, today)
}

// EditTitleParams holds the editable fields; nil means unchanged
type EditTitleParams struct {
	CounterpartyID   *uuid.UUID
	CounterpartyName *string
	Description      *string
	Amount           *decimal.Decimal
	DueDate          *time.Time
	ChartOfAccountID *uuid.UUID
	ClearChart       bool
	PaymentMethod    *string
	Notes            *string
}

// Edit updates the descriptive fields and the face value of an open title
func (t *FinancialTitle) Edit(p EditTitleParams, now time.Time) error {
	if !t.DeriveStatus(now).IsOpen() {
		return shared.NewConflictError("title already settled or cancelled")
	}

	v := &shared.ValidationError{}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		if d == "" {
			v.Add("description", "is required")
		} else if len(d) > maxDescriptionLength {
			v.Add("description", "may not be greater than 255 characters")
		}
	}
	if p.Amount != nil {
		if !p.Amount.IsPositive() {
			v.Add("amount", "must be greater than zero")
		} else if p.Amount.LessThan(t.AmountPaid) {
			v.Add("amount", "cannot be lower than the amount already paid")
		}
	}
	if p.PaymentMethod != nil && len(*p.PaymentMethod) > maxPaymentMethodLength {
		v.Add("payment_method", "may not be greater than 30 characters")
	}
	if p.CounterpartyID != nil && *p.CounterpartyID == uuid.Nil && t.Direction == DirectionReceivable {
		v.Add("customer_id", "is required")
	}
	if err := v.OrNil(); err != nil {
		return err
	}

	if p.CounterpartyID != nil {
		t.CounterpartyID = p.CounterpartyID
	}
	if p.CounterpartyName != nil {
		t.CounterpartyName = *p.CounterpartyName
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		t.Amount = p.Amount.Round(MoneyPlaces)
	}
	if p.DueDate != nil {
		t.DueDate = DateOnly(*p.DueDate)
	}
	if p.ClearChart {
		t.ChartOfAccountID = nil
	} else if p.ChartOfAccountID != nil {
		t.ChartOfAccountID = p.ChartOfAccountID
	}
	if p.PaymentMethod != nil {
		t.PaymentMethod = *p.PaymentMethod
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}

	t.Status = t.DeriveStatus(now)
	if t.Status == TitleStatusPaid && t.PaidAt == nil {
		paidAt := now
		t.PaidAt = &paidAt
	}
	t.Touch(now)
	t.IncrementVersion()
	return nil
}

// ApplyPayment settles amount against the balance. A rejected call leaves the
// title untouched.
func (t *FinancialTitle) ApplyPayment(amount decimal.Decimal, now time.Time) error {
	if t.IsCancelled() {
		return shared.NewConflictError("cannot pay a cancelled title")
	}
	if !t.RemainingAmount().IsPositive() {
		return shared.NewConflictError("title is already paid")
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("amount", "must be greater than zero")
	}
	if amount.GreaterThan(t.RemainingAmount()) {
		return shared.NewValidationError("amount", "exceeds the remaining balance of "+t.RemainingAmount().StringFixed(2))
	}

	t.AmountPaid = t.AmountPaid.Add(amount)
	if t.AmountPaid.Equal(t.Amount) {
		paidAt := now
		t.PaidAt = &paidAt
	}
	t.Status = t.DeriveStatus(now)
	t.Touch(now)
	t.IncrementVersion()
	return nil
}

// RevertPayment takes amount back out of amount_paid when a payment is reversed
func (t *FinancialTitle) RevertPayment(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("amount", "must be greater than zero")
	}
	if amount.GreaterThan(t.AmountPaid) {
		return shared.NewConflictError("reversal exceeds the amount paid")
	}

	t.AmountPaid = t.AmountPaid.Sub(amount)
	t.PaidAt = nil
	t.Status = t.DeriveStatus(now)
	t.Touch(now)
	t.IncrementVersion()
	return nil
}

// Cancel sets the cancel override. Titles with payments cannot be cancelled.
func (t *FinancialTitle) Cancel(reason string, now time.Time) error {
	if t.IsCancelled() {
		return shared.NewConflictError("title is already cancelled")
	}
	if t.HasPayments() {
		return shared.NewConflictError("cannot cancel a title with payments; reverse them first")
	}

	cancelledAt := now
	t.CancelledAt = &cancelledAt
	t.CancelReason = reason
	t.Status = TitleStatusCancelled
	t.Touch(now)
	t.IncrementVersion()
	t.AddDomainEvent(NewTitleCancelledEvent(t))
	return nil
}

// EnsureDeletable rejects deletion once any payment exists
func (t *FinancialTitle) EnsureDeletable() error {
	if t.HasPayments() {
		return shared.NewConflictError("title has payments and cannot be deleted")
	}
	return nil
}
