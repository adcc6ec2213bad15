package models

import (
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FinancialTitleModel is the persistence model for receivables and payables.
// Both directions share one table; the direction column tells them apart.
type FinancialTitleModel struct {
	TenantAggregateModel
	Direction         finance.Direction   `gorm:"type:varchar(20);not null;index"`
	CounterpartyID    *uuid.UUID          `gorm:"type:uuid;index"`
	CounterpartyName  string              `gorm:"type:varchar(200)"`
	Description       string              `gorm:"type:varchar(255);not null"`
	Amount            decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	AmountPaid        decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	DueDate           time.Time           `gorm:"type:date;not null;index"`
	PaidAt            *time.Time
	Status            finance.TitleStatus `gorm:"type:varchar(20);not null;index"`
	CancelledAt       *time.Time
	CancelReason      string             `gorm:"type:varchar(500)"`
	ChartOfAccountID  *uuid.UUID         `gorm:"type:uuid;index"`
	PaymentMethod     string             `gorm:"type:varchar(30)"`
	Notes             string             `gorm:"type:text"`
	SourceType        finance.SourceType `gorm:"type:varchar(20);not null;default:'manual'"`
	WorkOrderID       *uuid.UUID         `gorm:"type:uuid;index"`
	InstallmentNumber int                `gorm:"not null;default:0"`
	InstallmentTotal  int                `gorm:"not null;default:0"`
	DeletedAt         gorm.DeletedAt     `gorm:"index"`
}

// TableName returns the table name for GORM
func (FinancialTitleModel) TableName() string {
	return "financial_titles"
}

// ToDomain converts the persistence model to a domain FinancialTitle
func (m *FinancialTitleModel) ToDomain() *finance.FinancialTitle {
	return &finance.FinancialTitle{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Direction:           m.Direction,
		CounterpartyID:      m.CounterpartyID,
		CounterpartyName:    m.CounterpartyName,
		Description:         m.Description,
		Amount:              m.Amount,
		AmountPaid:          m.AmountPaid,
		DueDate:             finance.DateOnly(m.DueDate),
		PaidAt:              m.PaidAt,
		Status:              m.Status,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
		ChartOfAccountID:    m.ChartOfAccountID,
		PaymentMethod:       m.PaymentMethod,
		Notes:               m.Notes,
		SourceType:          m.SourceType,
		WorkOrderID:         m.WorkOrderID,
		InstallmentNumber:   m.InstallmentNumber,
		InstallmentTotal:    m.InstallmentTotal,
	}
}

// FinancialTitleModelFromDomain creates a persistence model from a domain title
func FinancialTitleModelFromDomain(t *finance.FinancialTitle) *FinancialTitleModel {
	m := &FinancialTitleModel{
		Direction:         t.Direction,
		CounterpartyID:    t.CounterpartyID,
		CounterpartyName:  t.CounterpartyName,
		Description:       t.Description,
		Amount:            t.Amount,
		AmountPaid:        t.AmountPaid,
		DueDate:           finance.DateOnly(t.DueDate),
		PaidAt:            t.PaidAt,
		Status:            t.Status,
		CancelledAt:       t.CancelledAt,
		CancelReason:      t.CancelReason,
		ChartOfAccountID:  t.ChartOfAccountID,
		PaymentMethod:     t.PaymentMethod,
		Notes:             t.Notes,
		SourceType:        t.SourceType,
		WorkOrderID:       t.WorkOrderID,
		InstallmentNumber: t.InstallmentNumber,
		InstallmentTotal:  t.InstallmentTotal,
	}
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	return m
}

// PaymentModel is one row of the payment ledger
type PaymentModel struct {
	BaseModel
	TenantID       uuid.UUID         `gorm:"type:uuid;not null;index:idx_payments_title,priority:1"`
	TitleDirection finance.Direction `gorm:"type:varchar(20);not null;index:idx_payments_title,priority:2"`
	TitleID        uuid.UUID         `gorm:"type:uuid;not null;index:idx_payments_title,priority:3"`
	Amount         decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	PaymentMethod  string            `gorm:"type:varchar(30)"`
	PaymentDate    time.Time         `gorm:"type:date;not null;index"`
	Notes          string            `gorm:"type:text"`
	ReceivedBy     *uuid.UUID        `gorm:"type:uuid"`
	ReversalOf     *uuid.UUID        `gorm:"type:uuid;index"`
	Reversed       bool              `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the row to a domain Payment
func (m *PaymentModel) ToDomain() (*finance.Payment, error) {
	ref, err := finance.NewTitleRef(m.TitleDirection, m.TitleID)
	if err != nil {
		return nil, err
	}
	return &finance.Payment{
		BaseEntity:    m.BaseModel.ToDomain(),
		TenantID:      m.TenantID,
		Title:         ref,
		Amount:        m.Amount,
		PaymentMethod: m.PaymentMethod,
		PaymentDate:   finance.DateOnly(m.PaymentDate),
		Notes:         m.Notes,
		ReceivedBy:    m.ReceivedBy,
		ReversalOf:    m.ReversalOf,
		Reversed:      m.Reversed,
	}, nil
}

// PaymentModelFromDomain creates a ledger row from a domain Payment
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{
		TenantID:       p.TenantID,
		TitleDirection: p.Title.Direction(),
		TitleID:        p.Title.TitleID(),
		Amount:         p.Amount,
		PaymentMethod:  p.PaymentMethod,
		PaymentDate:    finance.DateOnly(p.PaymentDate),
		Notes:          p.Notes,
		ReceivedBy:     p.ReceivedBy,
		ReversalOf:     p.ReversalOf,
		Reversed:       p.Reversed,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// BankStatementModel is the persistence model for an imported statement
type BankStatementModel struct {
	TenantAggregateModel
	BankAccountID *uuid.UUID              `gorm:"type:uuid;index"`
	Filename      string                  `gorm:"type:varchar(255);not null"`
	Format        finance.StatementFormat `gorm:"type:varchar(20);not null"`
	Fingerprint   string                  `gorm:"type:varchar(64);not null;index"`
	StorageKey    string                  `gorm:"type:varchar(500)"`
	ImportedAt    time.Time               `gorm:"not null;index"`
	EntriesCount  int                     `gorm:"not null;default:0"`
	MatchedCount  int                     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (BankStatementModel) TableName() string {
	return "bank_statements"
}

// ToDomain converts the persistence model to a domain BankStatement
func (m *BankStatementModel) ToDomain() *finance.BankStatement {
	return &finance.BankStatement{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		BankAccountID:       m.BankAccountID,
		Filename:            m.Filename,
		Format:              m.Format,
		Fingerprint:         m.Fingerprint,
		StorageKey:          m.StorageKey,
		ImportedAt:          m.ImportedAt,
		EntriesCount:        m.EntriesCount,
		MatchedCount:        m.MatchedCount,
	}
}

// BankStatementModelFromDomain creates a persistence model from a domain statement
func BankStatementModelFromDomain(s *finance.BankStatement) *BankStatementModel {
	m := &BankStatementModel{
		BankAccountID: s.BankAccountID,
		Filename:      s.Filename,
		Format:        s.Format,
		Fingerprint:   s.Fingerprint,
		StorageKey:    s.StorageKey,
		ImportedAt:    s.ImportedAt,
		EntriesCount:  s.EntriesCount,
		MatchedCount:  s.MatchedCount,
	}
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	return m
}

// BankStatementEntryModel is one statement line
type BankStatementEntryModel struct {
	BaseModel
	TenantID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	StatementID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	Date              time.Time            `gorm:"type:date;not null;index"`
	Description       string               `gorm:"type:varchar(500);not null"`
	Amount            decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Status            finance.EntryStatus  `gorm:"type:varchar(20);not null;index"`
	MatchedDirection  *finance.Direction   `gorm:"type:varchar(20)"`
	MatchedID         *uuid.UUID           `gorm:"type:uuid;index"`
	Category          string               `gorm:"type:varchar(100)"`
	RuleID            *uuid.UUID           `gorm:"type:uuid"`
	ReconciledBy      finance.ReconciledBy `gorm:"type:varchar(20)"`
	ReconciledAt      *time.Time
	PossibleDuplicate bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (BankStatementEntryModel) TableName() string {
	return "bank_statement_entries"
}

// ToDomain converts the row to a domain entry
func (m *BankStatementEntryModel) ToDomain() (*finance.BankStatementEntry, error) {
	e := &finance.BankStatementEntry{
		BaseEntity:        m.BaseModel.ToDomain(),
		TenantID:          m.TenantID,
		StatementID:       m.StatementID,
		Date:              finance.DateOnly(m.Date),
		Description:       m.Description,
		Amount:            m.Amount,
		Status:            m.Status,
		Category:          m.Category,
		RuleID:            m.RuleID,
		ReconciledBy:      m.ReconciledBy,
		ReconciledAt:      m.ReconciledAt,
		PossibleDuplicate: m.PossibleDuplicate,
	}
	if m.MatchedDirection != nil && m.MatchedID != nil {
		ref, err := finance.NewTitleRef(*m.MatchedDirection, *m.MatchedID)
		if err != nil {
			return nil, err
		}
		e.Matched = ref
	}
	return e, nil
}

// BankStatementEntryModelFromDomain creates a row from a domain entry
func BankStatementEntryModelFromDomain(e *finance.BankStatementEntry) *BankStatementEntryModel {
	m := &BankStatementEntryModel{
		TenantID:          e.TenantID,
		StatementID:       e.StatementID,
		Date:              finance.DateOnly(e.Date),
		Description:       e.Description,
		Amount:            e.Amount,
		Status:            e.Status,
		Category:          e.Category,
		RuleID:            e.RuleID,
		ReconciledBy:      e.ReconciledBy,
		ReconciledAt:      e.ReconciledAt,
		PossibleDuplicate: e.PossibleDuplicate,
	}
	if e.Matched != nil {
		direction := e.Matched.Direction()
		id := e.Matched.TitleID()
		m.MatchedDirection = &direction
		m.MatchedID = &id
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}

// ReconciliationRuleModel is the persistence model for a reconciliation rule
type ReconciliationRuleModel struct {
	TenantAggregateModel
	Name           string                `gorm:"type:varchar(255);not null"`
	MatchField     finance.MatchField    `gorm:"type:varchar(20);not null"`
	MatchOperator  finance.MatchOperator `gorm:"type:varchar(20);not null"`
	MatchValue     string                `gorm:"type:varchar(500)"`
	MatchAmountMin *decimal.Decimal      `gorm:"type:decimal(18,4)"`
	MatchAmountMax *decimal.Decimal      `gorm:"type:decimal(18,4)"`
	Action         finance.RuleAction    `gorm:"type:varchar(30);not null"`
	Category       string                `gorm:"type:varchar(100)"`
	TargetID       *uuid.UUID            `gorm:"type:uuid"`
	CounterpartyID *uuid.UUID            `gorm:"type:uuid"`
	Priority       int                   `gorm:"not null;index"`
	IsActive       bool                  `gorm:"not null"`
	TimesApplied   int                   `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ReconciliationRuleModel) TableName() string {
	return "reconciliation_rules"
}

// ToDomain converts the persistence model to a domain rule
func (m *ReconciliationRuleModel) ToDomain() *finance.ReconciliationRule {
	return &finance.ReconciliationRule{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Name:                m.Name,
		MatchField:          m.MatchField,
		MatchOperator:       m.MatchOperator,
		MatchValue:          m.MatchValue,
		MatchAmountMin:      m.MatchAmountMin,
		MatchAmountMax:      m.MatchAmountMax,
		Action:              m.Action,
		Category:            m.Category,
		TargetID:            m.TargetID,
		CounterpartyID:      m.CounterpartyID,
		Priority:            m.Priority,
		IsActive:            m.IsActive,
		TimesApplied:        m.TimesApplied,
	}
}

// ReconciliationRuleModelFromDomain creates a persistence model from a domain rule
func ReconciliationRuleModelFromDomain(r *finance.ReconciliationRule) *ReconciliationRuleModel {
	m := &ReconciliationRuleModel{
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
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	return m
}

// ChartOfAccountModel is the persistence model for a chart of accounts node
type ChartOfAccountModel struct {
	TenantAggregateModel
	Code     string              `gorm:"type:varchar(30);not null;index"`
	Name     string              `gorm:"type:varchar(255);not null"`
	Type     finance.AccountType `gorm:"type:varchar(20);not null"`
	ParentID *uuid.UUID          `gorm:"type:uuid;index"`
	IsActive bool                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ChartOfAccountModel) TableName() string {
	return "chart_of_accounts"
}

// ToDomain converts the persistence model to a domain account
func (m *ChartOfAccountModel) ToDomain() *finance.ChartOfAccount {
	return &finance.ChartOfAccount{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		Type:                m.Type,
		ParentID:            m.ParentID,
		IsActive:            m.IsActive,
	}
}

// ChartOfAccountModelFromDomain creates a persistence model from a domain account
func ChartOfAccountModelFromDomain(a *finance.ChartOfAccount) *ChartOfAccountModel {
	m := &ChartOfAccountModel{
		Code:     a.Code,
		Name:     a.Name,
		Type:     a.Type,
		ParentID: a.ParentID,
		IsActive: a.IsActive,
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}

// CollectionRuleModel is the persistence model for a collection rule
type CollectionRuleModel struct {
	TenantAggregateModel
	Name          string                    `gorm:"type:varchar(255);not null"`
	DaysBeforeDue int                       `gorm:"not null"`
	Channel       finance.CollectionChannel `gorm:"type:varchar(20);not null"`
	IsActive      bool                      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CollectionRuleModel) TableName() string {
	return "collection_rules"
}

// ToDomain converts the persistence model to a domain collection rule
func (m *CollectionRuleModel) ToDomain() *finance.CollectionRule {
	return &finance.CollectionRule{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Name:                m.Name,
		DaysBeforeDue:       m.DaysBeforeDue,
		Channel:             m.Channel,
		IsActive:            m.IsActive,
	}
}

// CollectionRuleModelFromDomain creates a persistence model from a domain collection rule
func CollectionRuleModelFromDomain(r *finance.CollectionRule) *CollectionRuleModel {
	m := &CollectionRuleModel{
		Name:          r.Name,
		DaysBeforeDue: r.DaysBeforeDue,
		Channel:       r.Channel,
		IsActive:      r.IsActive,
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	return m
}

// CollectionLogModel records one reminder
type CollectionLogModel struct {
	BaseModel
	TenantID uuid.UUID                   `gorm:"type:uuid;not null;index"`
	RuleID   uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_collection_logs_once,priority:1"`
	TitleID  uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_collection_logs_once,priority:2"`
	RunDate  time.Time                   `gorm:"type:date;not null;uniqueIndex:idx_collection_logs_once,priority:3"`
	Channel  finance.CollectionChannel   `gorm:"type:varchar(20);not null"`
	Status   finance.CollectionLogStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (CollectionLogModel) TableName() string {
	return "collection_logs"
}

// CollectionLogModelFromDomain creates a row from a domain log
func CollectionLogModelFromDomain(l *finance.CollectionLog) *CollectionLogModel {
	m := &CollectionLogModel{
		TenantID: l.TenantID,
		RuleID:   l.RuleID,
		TitleID:  l.TitleID,
		RunDate:  finance.DateOnly(l.RunDate),
		Channel:  l.Channel,
		Status:   l.Status,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}

// FundTransferModel is the persistence model for a fund transfer
type FundTransferModel struct {
	TenantAggregateModel
	BankAccountID uuid.UUID                  `gorm:"type:uuid;not null"`
	ToUserID      uuid.UUID                  `gorm:"type:uuid;not null;index"`
	RecipientName string                     `gorm:"type:varchar(200)"`
	Amount        decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	TransferDate  time.Time                  `gorm:"type:date;not null;index"`
	PaymentMethod string                     `gorm:"type:varchar(30);not null"`
	Description   string                     `gorm:"type:varchar(255);not null"`
	PayableID     *uuid.UUID                 `gorm:"type:uuid"`
	PaymentID     *uuid.UUID                 `gorm:"type:uuid"`
	Status        finance.FundTransferStatus `gorm:"type:varchar(20);not null"`
	CancelledAt   *time.Time
	CancelReason  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (FundTransferModel) TableName() string {
	return "fund_transfers"
}

// ToDomain converts the persistence model to a domain transfer
func (m *FundTransferModel) ToDomain() *finance.FundTransfer {
	return &finance.FundTransfer{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		BankAccountID:       m.BankAccountID,
		ToUserID:            m.ToUserID,
		RecipientName:       m.RecipientName,
		Amount:              m.Amount,
		TransferDate:        finance.DateOnly(m.TransferDate),
		PaymentMethod:       m.PaymentMethod,
		Description:         m.Description,
		PayableID:           m.PayableID,
		PaymentID:           m.PaymentID,
		Status:              m.Status,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
	}
}

// FundTransferModelFromDomain creates a persistence model from a domain transfer
func FundTransferModelFromDomain(t *finance.FundTransfer) *FundTransferModel {
	m := &FundTransferModel{
		BankAccountID: t.BankAccountID,
		ToUserID:      t.ToUserID,
		RecipientName: t.RecipientName,
		Amount:        t.Amount,
		TransferDate:  finance.DateOnly(t.TransferDate),
		PaymentMethod: t.PaymentMethod,
		Description:   t.Description,
		PayableID:     t.PayableID,
		PaymentID:     t.PaymentID,
		Status:        t.Status,
		CancelledAt:   t.CancelledAt,
		CancelReason:  t.CancelReason,
	}
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	return m
}

// FinanceModels lists every model, in dependency order, for AutoMigrate in
// tests and the sqlite driver.
func FinanceModels() []any {
	return []any{
		&ChartOfAccountModel{},
		&FinancialTitleModel{},
		&PaymentModel{},
		&BankStatementModel{},
		&BankStatementEntryModel{},
		&ReconciliationRuleModel{},
		&CollectionRuleModel{},
		&CollectionLogModel{},
		&FundTransferModel{},
	}
}

