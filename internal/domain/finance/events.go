package finance

import (
	"time"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeTitleCreated       = "TitleCreated"
	EventTypeTitleCancelled     = "TitleCancelled"
	EventTypeTitleStatusChanged = "TitleStatusChanged"
	EventTypePaymentRecorded    = "PaymentRecorded"
	EventTypePaymentReversed    = "PaymentReversed"
	EventTypeStatementImported  = "StatementImported"

	aggregateTypeTitle     = "FinancialTitle"
	aggregateTypeStatement = "BankStatement"
)

// TitleCreatedEvent is raised when a new title is created
type TitleCreatedEvent struct {
	shared.BaseDomainEvent
	Direction Direction       `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   time.Time       `json:"due_date"`
}

// NewTitleCreatedEvent creates a new TitleCreatedEvent
func NewTitleCreatedEvent(t *FinancialTitle) *TitleCreatedEvent {
	return &TitleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTitleCreated, aggregateTypeTitle, t.ID, t.TenantID),
		Direction:       t.Direction,
		Amount:          t.Amount,
		DueDate:         t.DueDate,
	}
}

// TitleCancelledEvent is raised when the cancel override is set
type TitleCancelledEvent struct {
	shared.BaseDomainEvent
	Direction Direction `json:"direction"`
	Reason    string    `json:"reason"`
}

// NewTitleCancelledEvent creates a new TitleCancelledEvent
func NewTitleCancelledEvent(t *FinancialTitle) *TitleCancelledEvent {
	return &TitleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTitleCancelled, aggregateTypeTitle, t.ID, t.TenantID),
		Direction:       t.Direction,
		Reason:          t.CancelReason,
	}
}

// TitleStatusChangedEvent is raised by the overdue refresh
type TitleStatusChangedEvent struct {
	shared.BaseDomainEvent
	Direction Direction   `json:"direction"`
	From      TitleStatus `json:"from"`
	To        TitleStatus `json:"to"`
}

// NewTitleStatusChangedEvent creates a new TitleStatusChangedEvent
func NewTitleStatusChangedEvent(t *FinancialTitle, from TitleStatus) *TitleStatusChangedEvent {
	return &TitleStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTitleStatusChanged, aggregateTypeTitle, t.ID, t.TenantID),
		Direction:       t.Direction,
		From:            from,
		To:              t.Status,
	}
}

// PaymentRecordedEvent is raised after a payment is appended to the ledger.
// Summary caches are keyed by the payment period, so the event carries it.
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID       `json:"payment_id"`
	Direction   Direction       `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	DueDate     time.Time       `json:"due_date"`
	FullyPaid   bool            `json:"fully_paid"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(t *FinancialTitle, p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, aggregateTypeTitle, t.ID, t.TenantID),
		PaymentID:       p.ID,
		Direction:       t.Direction,
		Amount:          p.Amount,
		PaymentDate:     p.PaymentDate,
		DueDate:         t.DueDate,
		FullyPaid:       t.Status == TitleStatusPaid,
	}
}

// PaymentReversedEvent is raised when a compensating entry is appended
type PaymentReversedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID       `json:"payment_id"`
	ReversalID  uuid.UUID       `json:"reversal_id"`
	Direction   Direction       `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
}

// NewPaymentReversedEvent creates a new PaymentReversedEvent
func NewPaymentReversedEvent(t *FinancialTitle, original, reversal *Payment) *PaymentReversedEvent {
	return &PaymentReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReversed, aggregateTypeTitle, t.ID, t.TenantID),
		PaymentID:       original.ID,
		ReversalID:      reversal.ID,
		Direction:       t.Direction,
		Amount:          original.Amount,
		PaymentDate:     original.PaymentDate,
	}
}

// StatementImportedEvent is raised once a statement and its entries are persisted
type StatementImportedEvent struct {
	shared.BaseDomainEvent
	Format       StatementFormat `json:"format"`
	EntriesCount int             `json:"entries_count"`
}

// NewStatementImportedEvent creates a new StatementImportedEvent
func NewStatementImportedEvent(s *BankStatement) *StatementImportedEvent {
	return &StatementImportedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStatementImported, aggregateTypeStatement, s.ID, s.TenantID),
		Format:          s.Format,
		EntriesCount:    s.EntriesCount,
	}
}
