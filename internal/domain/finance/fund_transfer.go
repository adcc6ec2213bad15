package finance

import (
	"strings"
	"time"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundTransferStatus is the lifecycle state of a fund transfer
type FundTransferStatus string

const (
	FundTransferCompleted FundTransferStatus = "completed"
	FundTransferCancelled FundTransferStatus = "cancelled"
)

// IsValid checks if the status is a valid value
func (s FundTransferStatus) IsValid() bool {
	return s == FundTransferCompleted || s == FundTransferCancelled
}

// FundTransfer moves money from a company bank account to a technician's cash
// fund. The outflow is booked as a payable that is settled on creation, so the
// transfer shows up in aging, cash flow and the payment ledger like any other
// payment.
type FundTransfer struct {
	shared.TenantAggregateRoot
	BankAccountID uuid.UUID
	ToUserID      uuid.UUID
	RecipientName string
	Amount        decimal.Decimal
	TransferDate  time.Time
	PaymentMethod string
	Description   string
	PayableID     *uuid.UUID
	PaymentID     *uuid.UUID
	Status        FundTransferStatus
	CancelledAt   *time.Time
	CancelReason  string
}

// NewFundTransferParams holds the caller supplied fields of a transfer
type NewFundTransferParams struct {
	BankAccountID uuid.UUID
	ToUserID      uuid.UUID
	RecipientName string
	Amount        decimal.Decimal
	TransferDate  time.Time
	PaymentMethod string
	Description   string
	CreatedBy     uuid.UUID
}

// Validate collects every field problem of the params
func (p NewFundTransferParams) Validate() *shared.ValidationError {
	v := &shared.ValidationError{}
	if p.BankAccountID == uuid.Nil {
		v.Add("bank_account_id", "is required")
	}
	if p.ToUserID == uuid.Nil {
		v.Add("to_user_id", "is required")
	}
	if !p.Amount.Round(MoneyPlaces).IsPositive() {
		v.Add("amount", "must be at least 0.01")
	}
	if p.TransferDate.IsZero() {
		v.Add("transfer_date", "is required")
	}
	if strings.TrimSpace(p.PaymentMethod) == "" {
		v.Add("payment_method", "is required")
	} else if len(p.PaymentMethod) > maxPaymentMethodLength {
		v.Add("payment_method", "may not be greater than 30 characters")
	}
	if strings.TrimSpace(p.Description) == "" {
		v.Add("description", "is required")
	} else if len(p.Description) > maxDescriptionLength {
		v.Add("description", "may not be greater than 255 characters")
	}
	return v
}

// NewFundTransfer creates a completed transfer. The payable and payment are
// linked with Settle once they are written.
func NewFundTransfer(tenantID uuid.UUID, p NewFundTransferParams) (*FundTransfer, error) {
	if err := p.Validate().OrNil(); err != nil {
		return nil, err
	}
	t := &FundTransfer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BankAccountID:       p.BankAccountID,
		ToUserID:            p.ToUserID,
		RecipientName:       strings.TrimSpace(p.RecipientName),
		Amount:              p.Amount.Round(MoneyPlaces),
		TransferDate:        DateOnly(p.TransferDate),
		PaymentMethod:       strings.TrimSpace(p.PaymentMethod),
		Description:         strings.TrimSpace(p.Description),
		Status:              FundTransferCompleted,
	}
	t.SetCreatedBy(p.CreatedBy)
	return t, nil
}

// PayableParams describes the payable that books the outflow. It is due and
// paid on the transfer date.
func (t *FundTransfer) PayableParams() NewTitleParams {
	recipient := t.ToUserID
	return NewTitleParams{
		Direction:        DirectionPayable,
		CounterpartyID:   &recipient,
		CounterpartyName: t.RecipientName,
		Description:      t.Description,
		Amount:           t.Amount,
		DueDate:          t.TransferDate,
		PaymentMethod:    t.PaymentMethod,
		Notes:            "Transferência automática para caixa do técnico",
		SourceType:       SourceTypeFundTransfer,
		CreatedBy:        derefID(t.CreatedBy),
	}
}

// PaymentParams settles the whole payable on the transfer date
func (t *FundTransfer) PaymentParams() RecordPaymentParams {
	return RecordPaymentParams{
		Amount:        t.Amount,
		PaymentMethod: t.PaymentMethod,
		PaymentDate:   t.TransferDate,
		Notes:         "Transferência " + t.ID.String(),
		ReceivedBy:    derefID(t.CreatedBy),
	}
}

// Settle links the payable and the payment that book the transfer
func (t *FundTransfer) Settle(payableID, paymentID uuid.UUID) {
	t.PayableID = &payableID
	t.PaymentID = &paymentID
}

// IsCancelled returns true once the transfer was reversed
func (t *FundTransfer) IsCancelled() bool {
	return t.Status == FundTransferCancelled
}

// Cancel marks the transfer reversed. The caller reverses the payment and
// cancels the payable in the same transaction.
func (t *FundTransfer) Cancel(reason string, now time.Time) error {
	if t.IsCancelled() {
		return shared.NewConflictError("transfer is already cancelled")
	}
	cancelledAt := now
	t.CancelledAt = &cancelledAt
	t.CancelReason = strings.TrimSpace(reason)
	t.Status = FundTransferCancelled
	t.Touch(now)
	t.IncrementVersion()
	return nil
}

// CancelNote is the reason recorded on the reversed payment and the payable
func (t *FundTransfer) CancelNote() string {
	note := "Cancelada por estorno de transferência " + t.ID.String()
	if t.CancelReason != "" {
		note += ": " + t.CancelReason
	}
	return note
}

func derefID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
