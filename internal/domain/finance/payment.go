package finance

import (
	"strings"
	"time"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an immutable settlement record against one title. Reversals are
// recorded as a new Payment with a negative amount pointing at the original.
type Payment struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	Title         TitleRef
	Amount        decimal.Decimal
	PaymentMethod string
	PaymentDate   time.Time
	Notes         string
	ReceivedBy    *uuid.UUID
	ReversalOf    *uuid.UUID
	Reversed      bool
}

// RecordPaymentParams are the inputs of a payment against a title
type RecordPaymentParams struct {
	Amount        decimal.Decimal
	PaymentMethod string
	PaymentDate   time.Time
	Notes         string
	ReceivedBy    uuid.UUID
}

// Validate checks the fields that do not depend on the title balance
func (p RecordPaymentParams) Validate() *shared.ValidationError {
	v := &shared.ValidationError{}
	if !p.Amount.IsPositive() {
		v.Add("amount", "must be greater than zero")
	}
	if strings.TrimSpace(p.PaymentMethod) == "" {
		v.Add("payment_method", "is required")
	} else if len(p.PaymentMethod) > maxPaymentMethodLength {
		v.Add("payment_method", "may not be greater than 30 characters")
	}
	if p.PaymentDate.IsZero() {
		v.Add("payment_date", "is required")
	}
	return v
}

// NewPayment builds a ledger entry for ref
func NewPayment(tenantID uuid.UUID, ref TitleRef, p RecordPaymentParams) (*Payment, error) {
	if ref == nil {
		return nil, shared.NewValidationError("title", "is required")
	}
	if err := p.Validate().OrNil(); err != nil {
		return nil, err
	}

	payment := &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		Title:         ref,
		Amount:        p.Amount.Round(MoneyPlaces),
		PaymentMethod: strings.TrimSpace(p.PaymentMethod),
		PaymentDate:   DateOnly(p.PaymentDate),
		Notes:         p.Notes,
	}
	if p.ReceivedBy != uuid.Nil {
		receivedBy := p.ReceivedBy
		payment.ReceivedBy = &receivedBy
	}
	return payment, nil
}

// IsReversal returns true for compensating entries
func (p *Payment) IsReversal() bool {
	return p.ReversalOf != nil
}

// Reverse marks the payment as reversed and returns the compensating entry
func (p *Payment) Reverse(reason string, by uuid.UUID, now time.Time) (*Payment, error) {
	if p.IsReversal() {
		return nil, shared.NewConflictError("a reversal entry cannot be reversed")
	}
	if p.Reversed {
		return nil, shared.NewConflictError("payment was already reversed")
	}

	originalID := p.ID
	compensation := &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      p.TenantID,
		Title:         p.Title,
		Amount:        p.Amount.Neg(),
		PaymentMethod: p.PaymentMethod,
		PaymentDate:   DateOnly(now),
		Notes:         reason,
		ReversalOf:    &originalID,
	}
	if by != uuid.Nil {
		compensation.ReceivedBy = &by
	}
	p.Reversed = true
	return compensation, nil
}

// SumPayments returns the net settled amount of a ledger
func SumPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
