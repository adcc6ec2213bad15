package finance

import (
	"context"

	"github.com/erp/finance/internal/domain/finance"
)

// TransactionScope provides transactional access to finance repositories.
// All repository operations inside Execute are committed or rolled back
// together.
type TransactionScope interface {
	// Execute runs fn within a database transaction. A non-nil error from fn
	// rolls the transaction back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the finance repositories bound to one
// transaction.
//
// Aggregate notes:
//   - TitleRepo: FinancialTitle aggregate. amount_paid changes must be saved
//     with SaveWithLock after FindForUpdate.
//   - PaymentRepo: append-only ledger; only the reversed marker is updated.
//   - StatementRepo/EntryRepo: entries are stored apart from the statement
//     header so they can be locked one by one.
//   - FundTransferRepo: a transfer and its payable are written together.
type TransactionalRepositories interface {
	TitleRepo() finance.TitleRepository
	PaymentRepo() finance.PaymentRepository
	StatementRepo() finance.BankStatementRepository
	EntryRepo() finance.BankStatementEntryRepository
	RuleRepo() finance.ReconciliationRuleRepository
	AccountRepo() finance.ChartOfAccountRepository
	CollectionRuleRepo() finance.CollectionRuleRepository
	CollectionLogRepo() finance.CollectionLogRepository
	FundTransferRepo() finance.FundTransferRepository
}

// Repositories groups the non-transactional repositories handed to services
type Repositories struct {
	Titles          finance.TitleRepository
	Payments        finance.PaymentRepository
	Statements      finance.BankStatementRepository
	Entries         finance.BankStatementEntryRepository
	Rules           finance.ReconciliationRuleRepository
	Accounts        finance.ChartOfAccountRepository
	CollectionRules finance.CollectionRuleRepository
	CollectionLogs  finance.CollectionLogRepository
	FundTransfers   finance.FundTransferRepository
}

// NoOpTransactionScope runs functions against plain repositories without a
// transaction. Used in unit tests.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over repos
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs fn without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) TitleRepo() finance.TitleRepository {
	return s.repos.Titles
}

func (s *NoOpTransactionScope) PaymentRepo() finance.PaymentRepository {
	return s.repos.Payments
}

func (s *NoOpTransactionScope) StatementRepo() finance.BankStatementRepository {
	return s.repos.Statements
}

func (s *NoOpTransactionScope) EntryRepo() finance.BankStatementEntryRepository {
	return s.repos.Entries
}

func (s *NoOpTransactionScope) RuleRepo() finance.ReconciliationRuleRepository {
	return s.repos.Rules
}

func (s *NoOpTransactionScope) AccountRepo() finance.ChartOfAccountRepository {
	return s.repos.Accounts
}

func (s *NoOpTransactionScope) CollectionRuleRepo() finance.CollectionRuleRepository {
	return s.repos.CollectionRules
}

func (s *NoOpTransactionScope) CollectionLogRepo() finance.CollectionLogRepository {
	return s.repos.CollectionLogs
}

func (s *NoOpTransactionScope) FundTransferRepo() finance.FundTransferRepository {
	return s.repos.FundTransfers
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
