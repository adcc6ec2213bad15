package persistence

import (
	"context"

	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/domain/finance"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. A returned error rolls the
// transaction back; otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// NewRepositories builds the non-transactional repository set over db
func NewRepositories(db *gorm.DB) appfinance.Repositories {
	return appfinance.Repositories{
		Titles:          NewGormTitleRepository(db),
		Payments:        NewGormPaymentRepository(db),
		Statements:      NewGormStatementRepository(db),
		Entries:         NewGormEntryRepository(db),
		Rules:           NewGormRuleRepository(db),
		Accounts:        NewGormAccountRepository(db),
		CollectionRules: NewGormCollectionRuleRepository(db),
		CollectionLogs:  NewGormCollectionLogRepository(db),
		FundTransfers:   NewGormFundTransferRepository(db),
	}
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) TitleRepo() finance.TitleRepository {
	return NewGormTitleRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() finance.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) StatementRepo() finance.BankStatementRepository {
	return NewGormStatementRepository(r.tx)
}

func (r *gormTransactionalRepositories) EntryRepo() finance.BankStatementEntryRepository {
	return NewGormEntryRepository(r.tx)
}

func (r *gormTransactionalRepositories) RuleRepo() finance.ReconciliationRuleRepository {
	return NewGormRuleRepository(r.tx)
}

func (r *gormTransactionalRepositories) AccountRepo() finance.ChartOfAccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) CollectionRuleRepo() finance.CollectionRuleRepository {
	return NewGormCollectionRuleRepository(r.tx)
}

func (r *gormTransactionalRepositories) CollectionLogRepo() finance.CollectionLogRepository {
	return NewGormCollectionLogRepository(r.tx)
}

func (r *gormTransactionalRepositories) FundTransferRepo() finance.FundTransferRepository {
	return NewGormFundTransferRepository(r.tx)
}

var (
	_ appfinance.TransactionScope          = (*GormTransactionScope)(nil)
	_ appfinance.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
