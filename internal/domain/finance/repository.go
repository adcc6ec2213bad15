package finance

import (
	"context"
	"time"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TitleFilter defines filtering options for title list queries
type TitleFilter struct {
	shared.Filter
	Direction        Direction
	Status           *TitleStatus
	CounterpartyID   *uuid.UUID
	ChartOfAccountID *uuid.UUID
	DueFrom          *time.Time
	DueTo            *time.Time
}

// OpenTitleQuery selects titles with an outstanding balance
type OpenTitleQuery struct {
	Direction      Direction // empty means both
	CounterpartyID *uuid.UUID
	DueFrom        *time.Time
	DueTo          *time.Time
	MinAmount      *decimal.Decimal
	MaxAmount      *decimal.Decimal
	Search         string
	Limit          int
}

// TitleSummary is the dashboard aggregate of one direction for one period
type TitleSummary struct {
	Pending         decimal.Decimal `json:"pending"`
	Overdue         decimal.Decimal `json:"overdue"`
	BilledThisMonth decimal.Decimal `json:"billed_this_month"`
	PaidThisMonth   decimal.Decimal `json:"paid_this_month"`
	Total           decimal.Decimal `json:"total"`
	TotalOpen       decimal.Decimal `json:"total_open"`
}

// TitleRepository persists financial titles
type TitleRepository interface {
	// FindByIDForTenant finds a title by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*FinancialTitle, error)

	// FindForUpdate loads a title holding a row lock until the surrounding
	// transaction ends
	FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*FinancialTitle, error)

	// FindAllForTenant finds titles with filtering and pagination
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter TitleFilter) ([]FinancialTitle, error)

	// CountForTenant counts titles matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter TitleFilter) (int64, error)

	// FindOpen finds titles with an outstanding balance ordered by due date
	FindOpen(ctx context.Context, tenantID uuid.UUID, query OpenTitleQuery) ([]FinancialTitle, error)

	// FindStale finds open titles whose cached status no longer matches the
	// due date as of today
	FindStale(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]FinancialTitle, error)

	// ExistsForWorkOrder reports whether titles were generated for the work order
	ExistsForWorkOrder(ctx context.Context, tenantID, workOrderID uuid.UUID) (bool, error)

	// CountByChartOfAccount counts titles classified under an account
	CountByChartOfAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error)

	// Summary aggregates one direction for the month containing period
	Summary(ctx context.Context, tenantID uuid.UUID, direction Direction, period time.Time) (*TitleSummary, error)

	// Save creates or updates a title
	Save(ctx context.Context, title *FinancialTitle) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, title *FinancialTitle) error

	// SaveBatch creates several titles at once
	SaveBatch(ctx context.Context, titles []*FinancialTitle) error

	// Delete soft deletes a title
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// TenantIDs lists every tenant that owns titles
	TenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// PaymentRepository persists the payment ledger. Payments are only ever
// inserted; the reversed marker is the one column updated afterwards.
type PaymentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindByTitle(ctx context.Context, tenantID uuid.UUID, ref TitleRef) ([]Payment, error)
	CountByTitle(ctx context.Context, tenantID uuid.UUID, ref TitleRef) (int64, error)
	Create(ctx context.Context, payment *Payment) error
	MarkReversed(ctx context.Context, tenantID, id uuid.UUID) error
}

// StatementFilter defines filtering options for statement lists
type StatementFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID
}

// EntryFilter defines filtering options for entry lists
type EntryFilter struct {
	shared.Filter
	Status *EntryStatus
}

// BankStatementRepository persists statements and their entries
type BankStatementRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankStatement, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter StatementFilter) ([]BankStatement, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter StatementFilter) (int64, error)
	ExistsByFingerprint(ctx context.Context, tenantID uuid.UUID, fingerprint string) (bool, error)
	Save(ctx context.Context, statement *BankStatement) error

	// RefreshCounters recomputes entries_count and matched_count from the entries
	RefreshCounters(ctx context.Context, tenantID, statementID uuid.UUID) error
}

// BankStatementEntryRepository persists statement entries
type BankStatementEntryRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankStatementEntry, error)
	FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*BankStatementEntry, error)
	FindByStatement(ctx context.Context, tenantID, statementID uuid.UUID, filter EntryFilter) ([]BankStatementEntry, error)
	CountByStatement(ctx context.Context, tenantID, statementID uuid.UUID, filter EntryFilter) (int64, error)

	// FindPending returns pending entries; a nil statementID means every statement
	FindPending(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) ([]BankStatementEntry, error)

	// FindByDates returns the stored entries dated on any of dates
	FindByDates(ctx context.Context, tenantID uuid.UUID, dates []time.Time) ([]BankStatementEntry, error)

	// FindAllForTenant returns every entry, optionally of one statement
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) ([]BankStatementEntry, error)

	CreateBatch(ctx context.Context, entries []*BankStatementEntry) error
	Save(ctx context.Context, entry *BankStatementEntry) error
}

// RuleFilter defines filtering options for rule lists
type RuleFilter struct {
	shared.Filter
	ActiveOnly bool
}

// ReconciliationRuleRepository persists reconciliation rules
type ReconciliationRuleRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ReconciliationRule, error)

	// FindAllForTenant returns rules ordered by priority, created_at, id.
	// A zero page returns every rule.
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter RuleFilter) ([]ReconciliationRule, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter RuleFilter) (int64, error)
	Save(ctx context.Context, rule *ReconciliationRule) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// IncrementTimesApplied adds n to times_applied atomically
	IncrementTimesApplied(ctx context.Context, tenantID, id uuid.UUID, n int) error
}

// ChartOfAccountRepository persists the chart of accounts
type ChartOfAccountRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ChartOfAccount, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]ChartOfAccount, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error)
	CountChildren(ctx context.Context, tenantID, id uuid.UUID) (int64, error)

	// Ancestors returns the ids from id's parent up to the root
	Ancestors(ctx context.Context, tenantID, id uuid.UUID) ([]uuid.UUID, error)
	Save(ctx context.Context, account *ChartOfAccount) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// CollectionRuleRepository persists collection rules
type CollectionRuleRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*CollectionRule, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]CollectionRule, error)
	Save(ctx context.Context, rule *CollectionRule) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// CollectionLogRepository persists sent reminders
type CollectionLogRepository interface {
	// CreateIfAbsent inserts the log unless one exists for the same rule,
	// title and run date. It returns true when a row was inserted.
	CreateIfAbsent(ctx context.Context, log *CollectionLog) (bool, error)
}

// FundTransferFilter defines filtering options for fund transfer lists
type FundTransferFilter struct {
	shared.Filter
	ToUserID      *uuid.UUID
	BankAccountID *uuid.UUID
	Status        *FundTransferStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// RecipientTotal is the completed amount sent to one recipient
type RecipientTotal struct {
	ToUserID      uuid.UUID       `json:"to_user_id"`
	RecipientName string          `json:"recipient_name"`
	Total         decimal.Decimal `json:"total"`
}

// FundTransferSummary totals completed transfers
type FundTransferSummary struct {
	MonthTotal  decimal.Decimal  `json:"month_total"`
	TotalAll    decimal.Decimal  `json:"total_all"`
	ByRecipient []RecipientTotal `json:"by_recipient"`
}

// FundTransferRepository persists fund transfers
type FundTransferRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*FundTransfer, error)
	FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*FundTransfer, error)

	// FindAllForTenant lists transfers, latest transfer date first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter FundTransferFilter) ([]FundTransfer, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter FundTransferFilter) (int64, error)

	// Summary totals completed transfers overall and for the month containing period
	Summary(ctx context.Context, tenantID uuid.UUID, period time.Time) (*FundTransferSummary, error)
	Save(ctx context.Context, transfer *FundTransfer) error
}
