package finance

import (
	"strings"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or an RFC 3339 timestamp
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, shared.NewValidationError(field, "is required")
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return finance.DateOnly(t), nil
	}
	return time.Time{}, shared.NewValidationError(field, "must be a date in YYYY-MM-DD format")
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ===================== Titles =====================

// TitleResponse represents a receivable or payable in API responses
type TitleResponse struct {
	ID                uuid.UUID           `json:"id"`
	TenantID          uuid.UUID           `json:"tenant_id"`
	Direction         finance.Direction   `json:"direction"`
	CounterpartyID    *uuid.UUID          `json:"counterparty_id,omitempty"`
	CounterpartyName  string              `json:"counterparty_name"`
	Description       string              `json:"description"`
	Amount            decimal.Decimal     `json:"amount"`
	AmountPaid        decimal.Decimal     `json:"amount_paid"`
	RemainingAmount   decimal.Decimal     `json:"remaining_amount"`
	DueDate           time.Time           `json:"due_date"`
	PaidAt            *time.Time          `json:"paid_at,omitempty"`
	Status            finance.TitleStatus `json:"status"`
	DaysOverdue       int                 `json:"days_overdue"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason      string              `json:"cancel_reason,omitempty"`
	ChartOfAccountID  *uuid.UUID          `json:"chart_of_account_id,omitempty"`
	PaymentMethod     string              `json:"payment_method,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	SourceType        finance.SourceType  `json:"source_type"`
	WorkOrderID       *uuid.UUID          `json:"work_order_id,omitempty"`
	InstallmentNumber int                 `json:"installment_number,omitempty"`
	InstallmentTotal  int                 `json:"installment_total,omitempty"`
	CreatedBy         *uuid.UUID          `json:"created_by,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	Version           int                 `json:"version"`
}

// ToTitleResponse converts a title, reporting the status derived as of now
func ToTitleResponse(t *finance.FinancialTitle, now time.Time) TitleResponse {
	status := t.DeriveStatus(now)
	days := 0
	if status == finance.TitleStatusOverdue {
		days = t.DaysOverdue(now)
	}
	return TitleResponse{
		ID:                t.ID,
		TenantID:          t.TenantID,
		Direction:         t.Direction,
		CounterpartyID:    t.CounterpartyID,
		CounterpartyName:  t.CounterpartyName,
		Description:       t.Description,
		Amount:            t.Amount,
		AmountPaid:        t.AmountPaid,
		RemainingAmount:   t.RemainingAmount(),
		DueDate:           t.DueDate,
		PaidAt:            t.PaidAt,
		Status:            status,
		DaysOverdue:       days,
		CancelledAt:       t.CancelledAt,
		CancelReason:      t.CancelReason,
		ChartOfAccountID:  t.ChartOfAccountID,
		PaymentMethod:     t.PaymentMethod,
		Notes:             t.Notes,
		SourceType:        t.SourceType,
		WorkOrderID:       t.WorkOrderID,
		InstallmentNumber: t.InstallmentNumber,
		InstallmentTotal:  t.InstallmentTotal,
		CreatedBy:         t.CreatedBy,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		Version:           t.Version,
	}
}

// ToTitleResponses converts a slice of titles
func ToTitleResponses(titles []finance.FinancialTitle, now time.Time) []TitleResponse {
	out := make([]TitleResponse, len(titles))
	for i := range titles {
		out[i] = ToTitleResponse(&titles[i], now)
	}
	return out
}

// CreateTitleRequest is the body of a new receivable or payable
type CreateTitleRequest struct {
	CounterpartyID   *uuid.UUID      `json:"customer_id"`
	SupplierID       *uuid.UUID      `json:"supplier_id"`
	CounterpartyName string          `json:"counterparty_name" binding:"max=200"`
	Description      string          `json:"description" binding:"required,max=255"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	DueDate          string          `json:"due_date" binding:"required"`
	ChartOfAccountID *uuid.UUID      `json:"chart_of_account_id"`
	PaymentMethod    string          `json:"payment_method" binding:"max=30"`
	Notes            string          `json:"notes" binding:"max=2000"`
}

// counterparty returns customer_id for receivables and supplier_id for
// payables, falling back to whichever one was sent.
func (r CreateTitleRequest) counterparty(direction finance.Direction) *uuid.UUID {
	if direction == finance.DirectionPayable && r.SupplierID != nil {
		return r.SupplierID
	}
	if r.CounterpartyID != nil {
		return r.CounterpartyID
	}
	return r.SupplierID
}

// UpdateTitleRequest carries the fields to change; absent fields are kept
type UpdateTitleRequest struct {
	CounterpartyID   *uuid.UUID       `json:"customer_id"`
	SupplierID       *uuid.UUID       `json:"supplier_id"`
	CounterpartyName *string          `json:"counterparty_name" binding:"omitempty,max=200"`
	Description      *string          `json:"description" binding:"omitempty,max=255"`
	Amount           *decimal.Decimal `json:"amount"`
	DueDate          *string          `json:"due_date"`
	ChartOfAccountID *uuid.UUID       `json:"chart_of_account_id"`
	ClearChart       bool             `json:"clear_chart_of_account"`
	PaymentMethod    *string          `json:"payment_method" binding:"omitempty,max=30"`
	Notes            *string          `json:"notes"`
}

// CancelTitleRequest is the body of a cancel call
type CancelTitleRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// TitleListFilter is the query string of title lists
type TitleListFilter struct {
	Search           string  `form:"search"`
	Status           string  `form:"status"`
	CounterpartyID   *string `form:"counterparty_id"`
	ChartOfAccountID *string `form:"chart_of_account_id"`
	DueFrom          string  `form:"due_from"`
	DueTo            string  `form:"due_to"`
	Page             int     `form:"page" binding:"omitempty,min=1"`
	PageSize         int     `form:"per_page" binding:"omitempty,min=1,max=100"`
	OrderBy          string  `form:"order_by" binding:"omitempty,oneof=due_date amount created_at description status"`
	OrderDir         string  `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SearchFilter is the query string of the open title search
type SearchFilter struct {
	Query          string `form:"q"`
	CounterpartyID string `form:"counterparty_id"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// WorkOrderTitleRequest generates the receivable of a finished work order
type WorkOrderTitleRequest struct {
	WorkOrderID      uuid.UUID       `json:"work_order_id" binding:"required"`
	CustomerID       uuid.UUID       `json:"customer_id" binding:"required"`
	CounterpartyName string          `json:"customer_name" binding:"max=200"`
	Number           string          `json:"number" binding:"max=50"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	DueDate          string          `json:"due_date"`
	PaymentMethod    string          `json:"payment_method" binding:"max=30"`
}

// InstallmentRequest splits a total into monthly receivables
type InstallmentRequest struct {
	WorkOrderID      *uuid.UUID      `json:"work_order_id"`
	CustomerID       uuid.UUID       `json:"customer_id" binding:"required"`
	CounterpartyName string          `json:"customer_name" binding:"max=200"`
	Description      string          `json:"description" binding:"required,max=200"`
	TotalAmount      decimal.Decimal `json:"total_amount" binding:"required"`
	Installments     int             `json:"installments" binding:"required,min=2,max=48"`
	FirstDueDate     string          `json:"first_due_date" binding:"required"`
	ChartOfAccountID *uuid.UUID      `json:"chart_of_account_id"`
	PaymentMethod    string          `json:"payment_method" binding:"max=30"`
}

// ===================== Payments =====================

// PaymentResponse represents a ledger entry
type PaymentResponse struct {
	ID            uuid.UUID         `json:"id"`
	TitleID       uuid.UUID         `json:"title_id"`
	Direction     finance.Direction `json:"direction"`
	Amount        decimal.Decimal   `json:"amount"`
	PaymentMethod string            `json:"payment_method"`
	PaymentDate   time.Time         `json:"payment_date"`
	Notes         string            `json:"notes,omitempty"`
	ReceivedBy    *uuid.UUID        `json:"received_by,omitempty"`
	ReversalOf    *uuid.UUID        `json:"reversal_of,omitempty"`
	Reversed      bool              `json:"reversed"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ToPaymentResponse converts a payment
func ToPaymentResponse(p *finance.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		TitleID:       p.Title.TitleID(),
		Direction:     p.Title.Direction(),
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		PaymentDate:   p.PaymentDate,
		Notes:         p.Notes,
		ReceivedBy:    p.ReceivedBy,
		ReversalOf:    p.ReversalOf,
		Reversed:      p.Reversed,
		CreatedAt:     p.CreatedAt,
	}
}

// RecordPaymentRequest is the body of a pay call
type RecordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required,max=30"`
	PaymentDate   string          `json:"payment_date"`
	Notes         string          `json:"notes" binding:"max=500"`
}

// PaymentResult is the outcome of a recorded or reversed payment
type PaymentResult struct {
	Payment PaymentResponse `json:"payment"`
	Title   TitleResponse   `json:"title"`
}

// ReversePaymentRequest is the body of a reversal
type ReversePaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// BatchSettleRequest settles several titles for their full balance
type BatchSettleRequest struct {
	IDs           []uuid.UUID `json:"ids" binding:"required,min=1,max=200"`
	Type          string      `json:"type" binding:"omitempty,oneof=receivable payable"`
	PaymentMethod string      `json:"payment_method" binding:"required,max=30"`
	PaymentDate   string      `json:"payment_date"`
	Notes         string      `json:"notes" binding:"max=500"`
}

// BatchSettleResult reports the settled and skipped members of a batch
type BatchSettleResult struct {
	ProcessedCount int             `json:"processed_count"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Settled        []uuid.UUID     `json:"settled"`
	Skipped        []uuid.UUID     `json:"skipped"`
	Message        string          `json:"message"`
}

// BatchCandidatesFilter is the query string of the approval list
type BatchCandidatesFilter struct {
	Type      string `form:"type" binding:"omitempty,oneof=receivable payable"`
	DueBefore string `form:"due_before"`
	MinAmount string `form:"min_amount"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// BatchCandidates is the approval list with its total
type BatchCandidates struct {
	Items []TitleResponse `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// ===================== Reports =====================

// CashFlowRequest is the query string of the cash-flow projection
type CashFlowRequest struct {
	Weeks           int    `form:"weeks" binding:"omitempty,min=1,max=26"`
	From            string `form:"from"`
	To              string `form:"to"`
	InitialBalance  string `form:"initial_balance"`
	MarginThreshold string `form:"margin_threshold"`
}

// ===================== Reconciliation =====================

// StatementResponse represents an imported statement
type StatementResponse struct {
	ID             uuid.UUID               `json:"id"`
	BankAccountID  *uuid.UUID              `json:"bank_account_id,omitempty"`
	Filename       string                  `json:"filename"`
	Format         finance.StatementFormat `json:"format"`
	ImportedAt     time.Time               `json:"imported_at"`
	CreatedBy      *uuid.UUID              `json:"created_by,omitempty"`
	EntriesCount   int                     `json:"entries_count"`
	MatchedCount   int                     `json:"matched_count"`
	DuplicateCount int                     `json:"duplicate_count,omitempty"`
	Archived       bool                    `json:"archived"`
}

// ToStatementResponse converts a statement header
func ToStatementResponse(s *finance.BankStatement) StatementResponse {
	return StatementResponse{
		ID:            s.ID,
		BankAccountID: s.BankAccountID,
		Filename:      s.Filename,
		Format:        s.Format,
		ImportedAt:    s.ImportedAt,
		CreatedBy:     s.CreatedBy,
		EntriesCount:  s.EntriesCount,
		MatchedCount:  s.MatchedCount,
		Archived:      s.StorageKey != "",
	}
}

// EntryResponse represents a statement entry
type EntryResponse struct {
	ID                uuid.UUID            `json:"id"`
	StatementID       uuid.UUID            `json:"bank_statement_id"`
	Date              time.Time            `json:"date"`
	Description       string               `json:"description"`
	Amount            decimal.Decimal      `json:"amount"`
	Type              finance.EntryType    `json:"type"`
	Status            finance.EntryStatus  `json:"status"`
	MatchedType       string               `json:"matched_type,omitempty"`
	MatchedID         *uuid.UUID           `json:"matched_id,omitempty"`
	Category          string               `json:"category,omitempty"`
	RuleID            *uuid.UUID           `json:"rule_id,omitempty"`
	ReconciledBy      finance.ReconciledBy `json:"reconciled_by,omitempty"`
	ReconciledAt      *time.Time           `json:"reconciled_at,omitempty"`
	PossibleDuplicate bool                 `json:"possible_duplicate"`
}

// ToEntryResponse converts an entry
func ToEntryResponse(e *finance.BankStatementEntry) EntryResponse {
	r := EntryResponse{
		ID:                e.ID,
		StatementID:       e.StatementID,
		Date:              e.Date,
		Description:       e.Description,
		Amount:            e.Amount,
		Type:              e.Type(),
		Status:            e.Status,
		Category:          e.Category,
		RuleID:            e.RuleID,
		ReconciledBy:      e.ReconciledBy,
		ReconciledAt:      e.ReconciledAt,
		PossibleDuplicate: e.PossibleDuplicate,
	}
	if e.Matched != nil {
		id := e.Matched.TitleID()
		r.MatchedType = e.Matched.Direction().String()
		r.MatchedID = &id
	}
	return r
}

// ToEntryResponses converts a slice of entries
func ToEntryResponses(entries []finance.BankStatementEntry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i := range entries {
		out[i] = ToEntryResponse(&entries[i])
	}
	return out
}

// StatementDetail is a statement with its entries
type StatementDetail struct {
	StatementResponse
	Entries []EntryResponse `json:"entries"`
}

// ImportStatementRequest carries an uploaded statement file
type ImportStatementRequest struct {
	Filename      string
	Content       []byte
	BankAccountID *uuid.UUID
	AutoReconcile bool
}

// ImportResult reports what an import created
type ImportResult struct {
	Statement    StatementResponse `json:"statement"`
	Duplicates   int               `json:"duplicates"`
	AutoMatched  int               `json:"auto_matched"`
	RulesApplied int               `json:"rules_applied"`
}

// StatementListFilter is the query string of statement lists
type StatementListFilter struct {
	BankAccountID string `form:"bank_account_id"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// EntryListFilter is the query string of entry lists
type EntryListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending matched ignored"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// MatchEntryRequest links an entry to a title
type MatchEntryRequest struct {
	MatchedType string    `json:"matched_type" binding:"required"`
	MatchedID   uuid.UUID `json:"matched_id" binding:"required"`
}

// EngineResult reports how many entries an engine run changed
type EngineResult struct {
	Processed int `json:"processed"`
	Applied   int `json:"applied"`
}

// StatementReport is the data of the printable statement report
type StatementReport struct {
	Statement   StatementResponse             `json:"statement"`
	Entries     []EntryResponse               `json:"entries"`
	Summary     finance.ReconciliationSummary `json:"summary"`
	GeneratedAt time.Time                     `json:"generated_at"`
}

// ===================== Rules =====================

// RuleRequest is the body of rule create/update and dry runs
type RuleRequest struct {
	Name           string           `json:"name" binding:"required,max=255"`
	MatchField     string           `json:"match_field" binding:"required,oneof=description amount cnpj combined"`
	MatchOperator  string           `json:"match_operator" binding:"required,oneof=contains equals regex between"`
	MatchValue     string           `json:"match_value" binding:"max=500"`
	MatchAmountMin *decimal.Decimal `json:"match_amount_min"`
	MatchAmountMax *decimal.Decimal `json:"match_amount_max"`
	Action         string           `json:"action" binding:"required,oneof=match_receivable match_payable ignore categorize"`
	Category       string           `json:"category" binding:"max=100"`
	TargetID       *uuid.UUID       `json:"target_id"`
	CounterpartyID *uuid.UUID       `json:"counterparty_id"`
	Priority       *int             `json:"priority"`
	IsActive       *bool            `json:"is_active"`
}

func (r RuleRequest) params() finance.RuleParams {
	return finance.RuleParams{
		Name:           r.Name,
		MatchField:     finance.MatchField(r.MatchField),
		MatchOperator:  finance.MatchOperator(r.MatchOperator),
		MatchValue:     r.MatchValue,
		MatchAmountMin: r.MatchAmountMin,
		MatchAmountMax: r.MatchAmountMax,
		Action:         finance.RuleAction(r.Action),
		Category:       r.Category,
		TargetID:       r.TargetID,
		CounterpartyID: r.CounterpartyID,
		Priority:       r.Priority,
		IsActive:       r.IsActive,
	}
}

// RuleResponse represents a reconciliation rule
type RuleResponse struct {
	ID             uuid.UUID             `json:"id"`
	Name           string                `json:"name"`
	MatchField     finance.MatchField    `json:"match_field"`
	MatchOperator  finance.MatchOperator `json:"match_operator"`
	MatchValue     string                `json:"match_value,omitempty"`
	MatchAmountMin *decimal.Decimal      `json:"match_amount_min,omitempty"`
	MatchAmountMax *decimal.Decimal      `json:"match_amount_max,omitempty"`
	Action         finance.RuleAction    `json:"action"`
	Category       string                `json:"category,omitempty"`
	TargetID       *uuid.UUID            `json:"target_id,omitempty"`
	CounterpartyID *uuid.UUID            `json:"counterparty_id,omitempty"`
	Priority       int                   `json:"priority"`
	IsActive       bool                  `json:"is_active"`
	TimesApplied   int                   `json:"times_applied"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// ToRuleResponse converts a rule
func ToRuleResponse(r *finance.ReconciliationRule) RuleResponse {
	return RuleResponse{
		ID:             r.ID,
		Name:           r.Name,
		MatchField:     r.MatchField,
		MatchOperator:  r.MatchOperator,
		MatchValue:     r.MatchValue,
		MatchAmountMin: r.MatchAmountMin,
		MatchAmountMax: r.MatchAmountMax,
		Action:         r.Action,
		Category:       r.Category,
		TargetID:       r.TargetID,
		CounterpartyID: r.CounterpartyID,
		Priority:       r.Priority,
		IsActive:       r.IsActive,
		TimesApplied:   r.TimesApplied,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// RuleListFilter is the query string of rule lists
type RuleListFilter struct {
	ActiveOnly bool `form:"active_only"`
	Page       int  `form:"page" binding:"omitempty,min=1"`
	PageSize   int  `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// LearnedRule is the rule created from a manual match
type LearnedRule struct {
	Rule    RuleResponse `json:"rule"`
	Message string       `json:"message"`
}

// ===================== Chart of accounts =====================

// AccountRequest is the body of account create/update
type AccountRequest struct {
	Code     string     `json:"code" binding:"required,max=20"`
	Name     string     `json:"name" binding:"required,max=255"`
	Type     string     `json:"type" binding:"omitempty,oneof=asset liability equity revenue expense"`
	ParentID *uuid.UUID `json:"parent_id"`
	IsActive *bool      `json:"is_active"`
}

func (r AccountRequest) params() finance.AccountParams {
	return finance.AccountParams{
		Code:     r.Code,
		Name:     r.Name,
		Type:     finance.AccountType(r.Type),
		ParentID: r.ParentID,
		IsActive: r.IsActive,
	}
}

// AccountResponse represents a chart of accounts node without children
type AccountResponse struct {
	ID        uuid.UUID           `json:"id"`
	Code      string              `json:"code"`
	Name      string              `json:"name"`
	Type      finance.AccountType `json:"type"`
	ParentID  *uuid.UUID          `json:"parent_id,omitempty"`
	IsActive  bool                `json:"is_active"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// ToAccountResponse converts an account
func ToAccountResponse(a *finance.ChartOfAccount) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      a.Type,
		ParentID:  a.ParentID,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// ===================== Collection =====================

// CollectionRuleRequest is the body of collection rule create/update
type CollectionRuleRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	DaysBeforeDue int    `json:"days_before_due"`
	Channel       string `json:"channel" binding:"required,oneof=email sms whatsapp"`
	IsActive      *bool  `json:"is_active"`
}

func (r CollectionRuleRequest) params() finance.CollectionRuleParams {
	return finance.CollectionRuleParams{
		Name:          r.Name,
		DaysBeforeDue: r.DaysBeforeDue,
		Channel:       finance.CollectionChannel(r.Channel),
		IsActive:      r.IsActive,
	}
}

// CollectionRuleResponse represents a collection rule
type CollectionRuleResponse struct {
	ID            uuid.UUID                 `json:"id"`
	Name          string                    `json:"name"`
	DaysBeforeDue int                       `json:"days_before_due"`
	Channel       finance.CollectionChannel `json:"channel"`
	IsActive      bool                      `json:"is_active"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// ToCollectionRuleResponse converts a collection rule
func ToCollectionRuleResponse(r *finance.CollectionRule) CollectionRuleResponse {
	return CollectionRuleResponse{
		ID:            r.ID,
		Name:          r.Name,
		DaysBeforeDue: r.DaysBeforeDue,
		Channel:       r.Channel,
		IsActive:      r.IsActive,
		CreatedAt:     r.CreatedAt,
	}
}

// CollectionRunResult reports one collection run of a tenant
type CollectionRunResult struct {
	RunDate time.Time `json:"run_date"`
	Rules   int       `json:"rules"`
	Sent    int       `json:"sent"`
	Skipped int       `json:"skipped"`
}

// ===================== Fund transfers =====================

// CreateFundTransferRequest is the body of a fund transfer
type CreateFundTransferRequest struct {
	BankAccountID uuid.UUID       `json:"bank_account_id" binding:"required"`
	ToUserID      uuid.UUID       `json:"to_user_id" binding:"required"`
	RecipientName string          `json:"recipient_name" binding:"max=200"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	TransferDate  string          `json:"transfer_date" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required,max=30"`
	Description   string          `json:"description" binding:"required,max=255"`
}

// CancelFundTransferRequest is the body of a transfer cancellation
type CancelFundTransferRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// FundTransferListFilter is the query string of transfer lists
type FundTransferListFilter struct {
	Search        string  `form:"search"`
	Status        string  `form:"status" binding:"omitempty,oneof=completed cancelled"`
	ToUserID      *string `form:"to_user_id"`
	BankAccountID *string `form:"bank_account_id"`
	DateFrom      string  `form:"date_from"`
	DateTo        string  `form:"date_to"`
	Page          int     `form:"page" binding:"omitempty,min=1"`
	PageSize      int     `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// FundTransferResponse represents a fund transfer
type FundTransferResponse struct {
	ID            uuid.UUID                  `json:"id"`
	BankAccountID uuid.UUID                  `json:"bank_account_id"`
	ToUserID      uuid.UUID                  `json:"to_user_id"`
	RecipientName string                     `json:"recipient_name,omitempty"`
	Amount        decimal.Decimal            `json:"amount"`
	TransferDate  time.Time                  `json:"transfer_date"`
	PaymentMethod string                     `json:"payment_method"`
	Description   string                     `json:"description"`
	PayableID     *uuid.UUID                 `json:"account_payable_id,omitempty"`
	PaymentID     *uuid.UUID                 `json:"payment_id,omitempty"`
	Status        finance.FundTransferStatus `json:"status"`
	CancelledAt   *time.Time                 `json:"cancelled_at,omitempty"`
	CancelReason  string                     `json:"cancel_reason,omitempty"`
	CreatedBy     *uuid.UUID                 `json:"created_by,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
}

// ToFundTransferResponse converts a fund transfer
func ToFundTransferResponse(t *finance.FundTransfer) FundTransferResponse {
	return FundTransferResponse{
		ID:            t.ID,
		BankAccountID: t.BankAccountID,
		ToUserID:      t.ToUserID,
		RecipientName: t.RecipientName,
		Amount:        t.Amount,
		TransferDate:  t.TransferDate,
		PaymentMethod: t.PaymentMethod,
		Description:   t.Description,
		PayableID:     t.PayableID,
		PaymentID:     t.PaymentID,
		Status:        t.Status,
		CancelledAt:   t.CancelledAt,
		CancelReason:  t.CancelReason,
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
	}
}
