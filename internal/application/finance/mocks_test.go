package finance

import (
	"context"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock repositories
// =============================================================================

type MockTitleRepository struct {
	mock.Mock
}

func (m *MockTitleRepository) title(args mock.Arguments) (*finance.FinancialTitle, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FinancialTitle), args.Error(1)
}

func (m *MockTitleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.FinancialTitle, error) {
	return m.title(m.Called(ctx, tenantID, id))
}

func (m *MockTitleRepository) FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.FinancialTitle, error) {
	return m.title(m.Called(ctx, tenantID, id))
}

func (m *MockTitleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.TitleFilter) ([]finance.FinancialTitle, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]finance.FinancialTitle), args.Error(1)
}

func (m *MockTitleRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.TitleFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTitleRepository) FindOpen(ctx context.Context, tenantID uuid.UUID, query finance.OpenTitleQuery) ([]finance.FinancialTitle, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).([]finance.FinancialTitle), args.Error(1)
}

func (m *MockTitleRepository) FindStale(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]finance.FinancialTitle, error) {
	args := m.Called(ctx, tenantID, today)
	return args.Get(0).([]finance.FinancialTitle), args.Error(1)
}

func (m *MockTitleRepository) ExistsForWorkOrder(ctx context.Context, tenantID, workOrderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, workOrderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTitleRepository) CountByChartOfAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTitleRepository) Summary(ctx context.Context, tenantID uuid.UUID, direction finance.Direction, period time.Time) (*finance.TitleSummary, error) {
	args := m.Called(ctx, tenantID, direction, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.TitleSummary), args.Error(1)
}

func (m *MockTitleRepository) Save(ctx context.Context, title *finance.FinancialTitle) error {
	return m.Called(ctx, title).Error(0)
}

func (m *MockTitleRepository) SaveWithLock(ctx context.Context, title *finance.FinancialTitle) error {
	return m.Called(ctx, title).Error(0)
}

func (m *MockTitleRepository) SaveBatch(ctx context.Context, titles []*finance.FinancialTitle) error {
	return m.Called(ctx, titles).Error(0)
}

func (m *MockTitleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockTitleRepository) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByTitle(ctx context.Context, tenantID uuid.UUID, ref finance.TitleRef) ([]finance.Payment, error) {
	args := m.Called(ctx, tenantID, ref)
	return args.Get(0).([]finance.Payment), args.Error(1)
}

func (m *MockPaymentRepository) CountByTitle(ctx context.Context, tenantID uuid.UUID, ref finance.TitleRef) (int64, error) {
	args := m.Called(ctx, tenantID, ref)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockPaymentRepository) MarkReversed(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type MockStatementRepository struct {
	mock.Mock
}

func (m *MockStatementRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankStatement, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.BankStatement), args.Error(1)
}

func (m *MockStatementRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.StatementFilter) ([]finance.BankStatement, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]finance.BankStatement), args.Error(1)
}

func (m *MockStatementRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.StatementFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatementRepository) ExistsByFingerprint(ctx context.Context, tenantID uuid.UUID, fingerprint string) (bool, error) {
	args := m.Called(ctx, tenantID, fingerprint)
	return args.Bool(0), args.Error(1)
}

func (m *MockStatementRepository) Save(ctx context.Context, statement *finance.BankStatement) error {
	return m.Called(ctx, statement).Error(0)
}

func (m *MockStatementRepository) RefreshCounters(ctx context.Context, tenantID, statementID uuid.UUID) error {
	return m.Called(ctx, tenantID, statementID).Error(0)
}

type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) entry(args mock.Arguments) (*finance.BankStatementEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.BankStatementEntry), args.Error(1)
}

func (m *MockEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankStatementEntry, error) {
	return m.entry(m.Called(ctx, tenantID, id))
}

func (m *MockEntryRepository) FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankStatementEntry, error) {
	return m.entry(m.Called(ctx, tenantID, id))
}

func (m *MockEntryRepository) FindByStatement(ctx context.Context, tenantID, statementID uuid.UUID, filter finance.EntryFilter) ([]finance.BankStatementEntry, error) {
	args := m.Called(ctx, tenantID, statementID, filter)
	return args.Get(0).([]finance.BankStatementEntry), args.Error(1)
}

func (m *MockEntryRepository) CountByStatement(ctx context.Context, tenantID, statementID uuid.UUID, filter finance.EntryFilter) (int64, error) {
	args := m.Called(ctx, tenantID, statementID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEntryRepository) FindPending(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) ([]finance.BankStatementEntry, error) {
	args := m.Called(ctx, tenantID, statementID)
	return args.Get(0).([]finance.BankStatementEntry), args.Error(1)
}

func (m *MockEntryRepository) FindByDates(ctx context.Context, tenantID uuid.UUID, dates []time.Time) ([]finance.BankStatementEntry, error) {
	args := m.Called(ctx, tenantID, dates)
	return args.Get(0).([]finance.BankStatementEntry), args.Error(1)
}

func (m *MockEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) ([]finance.BankStatementEntry, error) {
	args := m.Called(ctx, tenantID, statementID)
	return args.Get(0).([]finance.BankStatementEntry), args.Error(1)
}

func (m *MockEntryRepository) CreateBatch(ctx context.Context, entries []*finance.BankStatementEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *MockEntryRepository) Save(ctx context.Context, entry *finance.BankStatementEntry) error {
	return m.Called(ctx, entry).Error(0)
}

type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.ReconciliationRule, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ReconciliationRule), args.Error(1)
}

func (m *MockRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.RuleFilter) ([]finance.ReconciliationRule, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]finance.ReconciliationRule), args.Error(1)
}

func (m *MockRuleRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.RuleFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRuleRepository) Save(ctx context.Context, rule *finance.ReconciliationRule) error {
	return m.Called(ctx, rule).Error(0)
}

func (m *MockRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockRuleRepository) IncrementTimesApplied(ctx context.Context, tenantID, id uuid.UUID, n int) error {
	return m.Called(ctx, tenantID, id, n).Error(0)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.ChartOfAccount, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ChartOfAccount), args.Error(1)
}

func (m *MockAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]finance.ChartOfAccount, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]finance.ChartOfAccount), args.Error(1)
}

func (m *MockAccountRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, code, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) CountChildren(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) Ancestors(ctx context.Context, tenantID, id uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *finance.ChartOfAccount) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type MockCollectionRuleRepository struct {
	mock.Mock
}

func (m *MockCollectionRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.CollectionRule, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.CollectionRule), args.Error(1)
}

func (m *MockCollectionRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]finance.CollectionRule, error) {
	args := m.Called(ctx, tenantID, activeOnly)
	return args.Get(0).([]finance.CollectionRule), args.Error(1)
}

func (m *MockCollectionRuleRepository) Save(ctx context.Context, rule *finance.CollectionRule) error {
	return m.Called(ctx, rule).Error(0)
}

func (m *MockCollectionRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type MockCollectionLogRepository struct {
	mock.Mock
}

func (m *MockCollectionLogRepository) CreateIfAbsent(ctx context.Context, log *finance.CollectionLog) (bool, error) {
	args := m.Called(ctx, log)
	return args.Bool(0), args.Error(1)
}

type MockFundTransferRepository struct {
	mock.Mock
}

func (m *MockFundTransferRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.FundTransfer, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FundTransfer), args.Error(1)
}

func (m *MockFundTransferRepository) FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.FundTransfer, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FundTransfer), args.Error(1)
}

func (m *MockFundTransferRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.FundTransferFilter) ([]finance.FundTransfer, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]finance.FundTransfer), args.Error(1)
}

func (m *MockFundTransferRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.FundTransferFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFundTransferRepository) Summary(ctx context.Context, tenantID uuid.UUID, period time.Time) (*finance.FundTransferSummary, error) {
	args := m.Called(ctx, tenantID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FundTransferSummary), args.Error(1)
}

func (m *MockFundTransferRepository) Save(ctx context.Context, transfer *finance.FundTransfer) error {
	return m.Called(ctx, transfer).Error(0)
}

// =============================================================================
// Mock ports
// =============================================================================

type MockSummaryCache struct {
	mock.Mock
}

func (m *MockSummaryCache) Get(ctx context.Context, key string) (*finance.TitleSummary, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.TitleSummary), args.Error(1)
}

func (m *MockSummaryCache) Set(ctx context.Context, key string, summary *finance.TitleSummary) error {
	return m.Called(ctx, key, summary).Error(0)
}

func (m *MockSummaryCache) DeletePrefix(ctx context.Context, prefix string) error {
	return m.Called(ctx, prefix).Error(0)
}

type MockStatementParser struct {
	mock.Mock
}

func (m *MockStatementParser) Detect(filename string, content []byte) (finance.StatementFormat, error) {
	args := m.Called(filename, content)
	return args.Get(0).(finance.StatementFormat), args.Error(1)
}

func (m *MockStatementParser) Parse(format finance.StatementFormat, content []byte) ([]finance.ParsedEntry, error) {
	args := m.Called(format, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.ParsedEntry), args.Error(1)
}

func (m *MockStatementParser) Fingerprint(content []byte) string {
	return m.Called(content).String(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := make([]any, 0, len(events)+1)
	args = append(args, ctx)
	for _, e := range events {
		args = append(args, e)
	}
	return m.Called(args...).Error(0)
}

// recordingPublisher keeps published event types in order
type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		p.types = append(p.types, e.EventType())
	}
	return nil
}

// =============================================================================
// Fixtures
// =============================================================================

var testNow = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func fixedClock() Option {
	return WithClock(func() time.Time { return testNow })
}

func testDay(offset int) time.Time {
	return finance.DateOnly(testNow).AddDate(0, 0, offset)
}

type testRepos struct {
	titles          *MockTitleRepository
	payments        *MockPaymentRepository
	statements      *MockStatementRepository
	entries         *MockEntryRepository
	rules           *MockRuleRepository
	accounts        *MockAccountRepository
	collectionRules *MockCollectionRuleRepository
	collectionLogs  *MockCollectionLogRepository
	fundTransfers   *MockFundTransferRepository
}

func newTestRepos() *testRepos {
	return &testRepos{
		titles:          new(MockTitleRepository),
		payments:        new(MockPaymentRepository),
		statements:      new(MockStatementRepository),
		entries:         new(MockEntryRepository),
		rules:           new(MockRuleRepository),
		accounts:        new(MockAccountRepository),
		collectionRules: new(MockCollectionRuleRepository),
		collectionLogs:  new(MockCollectionLogRepository),
		fundTransfers:   new(MockFundTransferRepository),
	}
}

func (r *testRepos) repositories() Repositories {
	return Repositories{
		Titles:          r.titles,
		Payments:        r.payments,
		Statements:      r.statements,
		Entries:         r.entries,
		Rules:           r.rules,
		Accounts:        r.accounts,
		CollectionRules: r.collectionRules,
		CollectionLogs:  r.collectionLogs,
		FundTransfers:   r.fundTransfers,
	}
}

func (r *testRepos) scope() TransactionScope {
	return NewNoOpTransactionScope(r.repositories())
}
