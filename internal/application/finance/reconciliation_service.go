package finance

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/erp/finance/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	operationImportStatement = "finance_import_statement"
	operationApplyRules      = "finance_apply_rules"
	operationAutoMatch       = "finance_auto_match"

	defaultSuggestionLimit = 5
	suggestionCandidateCap = 50
)

var suggestionAmountBand = decimal.RequireFromString("0.20")

// ReconciliationService imports bank statements and links their entries to
// titles, manually, by amount and date, or through rules. Linking never
// records a payment.
type ReconciliationService struct {
	repos    Repositories
	txScope  TransactionScope
	parser   StatementParser
	archiver FileArchiver
	renderer ReportRenderer
	options
}

// NewReconciliationService creates a new ReconciliationService. archiver and
// renderer may be nil.
func NewReconciliationService(
	repos Repositories,
	txScope TransactionScope,
	parser StatementParser,
	archiver FileArchiver,
	renderer ReportRenderer,
	opts ...Option,
) *ReconciliationService {
	return &ReconciliationService{
		repos:    repos,
		txScope:  txScope,
		parser:   parser,
		archiver: archiver,
		renderer: renderer,
		options:  newOptions(opts),
	}
}

// Import parses a statement file and stores the statement with all of its
// entries in one transaction. A malformed record rejects the whole file.
func (s *ReconciliationService) Import(ctx context.Context, tenantID uuid.UUID, actor Actor, req ImportStatementRequest) (*ImportResult, error) {
	var (
		result *ImportResult
		opErr  error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(operationImportStatement, nil), func(c context.Context) {
		result, opErr = s.importStatement(c, tenantID, actor, req)
	})
	if opErr != nil {
		return nil, opErr
	}

	if req.AutoReconcile {
		statementID := result.Statement.ID
		matched, err := s.AutoMatch(ctx, tenantID, statementID)
		if err != nil {
			s.logger.Warn("auto match after import failed", zap.Error(err), zap.String("statement_id", statementID.String()))
		} else {
			result.AutoMatched = matched.Applied
		}
		applied, err := s.ApplyRules(ctx, tenantID, &statementID)
		if err != nil {
			s.logger.Warn("rule engine after import failed", zap.Error(err), zap.String("statement_id", statementID.String()))
		} else {
			result.RulesApplied = applied.Applied
		}
		if stmt, err := s.repos.Statements.FindByIDForTenant(ctx, tenantID, statementID); err == nil {
			result.Statement = ToStatementResponse(stmt)
			result.Statement.DuplicateCount = result.Duplicates
		}
	}
	return result, nil
}

func (s *ReconciliationService) importStatement(ctx context.Context, tenantID uuid.UUID, actor Actor, req ImportStatementRequest) (*ImportResult, error) {
	if len(req.Content) == 0 {
		return nil, shared.NewValidationError("file", "is required")
	}
	format, err := s.parser.Detect(req.Filename, req.Content)
	if err != nil {
		return nil, asFileError(err)
	}
	parsed, err := s.parser.Parse(format, req.Content)
	if err != nil {
		return nil, asFileError(err)
	}
	if len(parsed) == 0 {
		return nil, shared.NewValidationError("file", "no entries found in the statement")
	}

	fingerprint := s.parser.Fingerprint(req.Content)
	exists, err := s.repos.Statements.ExistsByFingerprint(ctx, tenantID, fingerprint)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewConflictError("this statement file was already imported")
	}

	now := s.now()
	statement, err := finance.NewBankStatement(tenantID, path.Base(req.Filename), format, fingerprint, actor.UserID, now)
	if err != nil {
		return nil, err
	}
	statement.BankAccountID = req.BankAccountID

	entries := make([]*finance.BankStatementEntry, len(parsed))
	dates := make([]time.Time, 0, len(parsed))
	seen := map[time.Time]bool{}
	for i, p := range parsed {
		entries[i] = finance.NewBankStatementEntry(statement, p)
		if d := entries[i].Date; !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}

	existing, err := s.repos.Entries.FindByDates(ctx, tenantID, dates)
	if err != nil {
		return nil, err
	}
	duplicates := 0
	for _, e := range entries {
		for j := range existing {
			if e.IsDuplicateOf(&existing[j]) {
				e.PossibleDuplicate = true
				duplicates++
				break
			}
		}
	}
	statement.EntriesCount = len(entries)

	if s.archiver != nil {
		key := fmt.Sprintf("statements/%s/%s/%s", tenantID, statement.ID, statement.Filename)
		if err := s.archiver.Upload(ctx, key, req.Content, "application/octet-stream"); err != nil {
			s.logger.Warn("statement archive upload failed", zap.Error(err), zap.String("key", key))
		} else {
			statement.StorageKey = key
		}
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.StatementRepo().Save(ctx, statement); err != nil {
			return err
		}
		return repos.EntryRepo().CreateBatch(ctx, entries)
	})
	if err != nil {
		s.discardArchive(ctx, statement.StorageKey)
		return nil, err
	}

	s.publish(ctx, finance.NewStatementImportedEvent(statement))
	s.logger.Info("bank statement imported",
		zap.String("tenant_id", tenantID.String()),
		zap.String("statement_id", statement.ID.String()),
		zap.String("format", string(format)),
		zap.Int("entries", len(entries)),
		zap.Int("duplicates", duplicates))

	resp := ToStatementResponse(statement)
	resp.DuplicateCount = duplicates
	return &ImportResult{Statement: resp, Duplicates: duplicates}, nil
}

// discardArchive removes an uploaded file whose statement was never stored
func (s *ReconciliationService) discardArchive(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.archiver.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("orphaned statement archive left behind", zap.Error(err), zap.String("key", key))
	}
}

// asFileError reports parser failures against the uploaded file field
func asFileError(err error) error {
	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		return err
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code != shared.CodeUnsupportedFormat {
		return err
	}
	return shared.NewValidationError("file", err.Error())
}

// ListStatements returns a page of statements, newest first
func (s *ReconciliationService) ListStatements(ctx context.Context, tenantID uuid.UUID, filter StatementListFilter) ([]StatementResponse, int64, error) {
	f := finance.StatementFilter{
		Filter: shared.Filter{Page: filter.Page, PageSize: filter.PageSize, OrderBy: "imported_at", OrderDir: "desc"}.Normalize(),
	}
	if filter.BankAccountID != "" {
		id, err := uuid.Parse(filter.BankAccountID)
		if err != nil {
			return nil, 0, shared.NewValidationError("bank_account_id", "must be a valid UUID")
		}
		f.BankAccountID = &id
	}

	statements, err := s.repos.Statements.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.Statements.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]StatementResponse, len(statements))
	for i := range statements {
		out[i] = ToStatementResponse(&statements[i])
	}
	return out, total, nil
}

// GetStatement returns a statement with every entry
func (s *ReconciliationService) GetStatement(ctx context.Context, tenantID, id uuid.UUID) (*StatementDetail, error) {
	statement, err := s.repos.Statements.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.repos.Entries.FindAllForTenant(ctx, tenantID, &id)
	if err != nil {
		return nil, err
	}
	return &StatementDetail{
		StatementResponse: ToStatementResponse(statement),
		Entries:           ToEntryResponses(entries),
	}, nil
}

// ListEntries returns a page of a statement's entries, optionally by status
func (s *ReconciliationService) ListEntries(ctx context.Context, tenantID, statementID uuid.UUID, filter EntryListFilter) ([]EntryResponse, int64, error) {
	if _, err := s.repos.Statements.FindByIDForTenant(ctx, tenantID, statementID); err != nil {
		return nil, 0, err
	}
	f := finance.EntryFilter{
		Filter: shared.Filter{Page: filter.Page, PageSize: filter.PageSize, OrderBy: "date", OrderDir: "asc"}.Normalize(),
	}
	if filter.Status != "" {
		status := finance.EntryStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("status", "must be pending, matched or ignored")
		}
		f.Status = &status
	}

	entries, err := s.repos.Entries.FindByStatement(ctx, tenantID, statementID, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.Entries.CountByStatement(ctx, tenantID, statementID, f)
	if err != nil {
		return nil, 0, err
	}
	return ToEntryResponses(entries), total, nil
}

// MatchEntry links an entry to a title. Repeating the same link returns the
// entry unchanged.
func (s *ReconciliationService) MatchEntry(ctx context.Context, tenantID, entryID uuid.UUID, req MatchEntryRequest) (*EntryResponse, error) {
	direction, err := finance.ParseDirection(req.MatchedType)
	if err != nil {
		return nil, shared.NewValidationError("matched_type", "must be receivable or payable")
	}
	ref, err := finance.NewTitleRef(direction, req.MatchedID)
	if err != nil {
		return nil, shared.NewValidationError("matched_id", "is required")
	}

	now := s.now()
	var entry *finance.BankStatementEntry
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = repos.EntryRepo().FindForUpdate(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		title, err := repos.TitleRepo().FindByIDForTenant(ctx, tenantID, ref.TitleID())
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.NewValidationError("matched_id", fmt.Sprintf("%s does not exist", direction))
			}
			return err
		}
		if title.Direction != direction {
			return shared.NewValidationError("matched_id", fmt.Sprintf("%s does not exist", direction))
		}
		if title.IsCancelled() {
			return shared.NewConflictError("cannot match an entry to a cancelled title")
		}

		changed, err := entry.Match(ref, finance.ReconciledManual, now)
		if err != nil || !changed {
			return err
		}
		if err := repos.EntryRepo().Save(ctx, entry); err != nil {
			return err
		}
		return repos.StatementRepo().RefreshCounters(ctx, tenantID, entry.StatementID)
	})
	if err != nil {
		return nil, err
	}

	resp := ToEntryResponse(entry)
	return &resp, nil
}

// IgnoreEntry marks an entry as not needing reconciliation
func (s *ReconciliationService) IgnoreEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*EntryResponse, error) {
	now := s.now()
	var entry *finance.BankStatementEntry
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = repos.EntryRepo().FindForUpdate(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		changed, err := entry.Ignore(finance.ReconciledManual, now)
		if err != nil || !changed {
			return err
		}
		return repos.EntryRepo().Save(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	resp := ToEntryResponse(entry)
	return &resp, nil
}

// AutoMatch links the statement's pending entries to open titles with the
// same balance (within tolerance) due around the entry date. A title is
// used for at most one entry per run.
func (s *ReconciliationService) AutoMatch(ctx context.Context, tenantID, statementID uuid.UUID) (*EngineResult, error) {
	var (
		result *EngineResult
		opErr  error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(operationAutoMatch, nil), func(c context.Context) {
		result, opErr = s.autoMatch(c, tenantID, statementID)
	})
	return result, opErr
}

func (s *ReconciliationService) autoMatch(ctx context.Context, tenantID, statementID uuid.UUID) (*EngineResult, error) {
	if _, err := s.repos.Statements.FindByIDForTenant(ctx, tenantID, statementID); err != nil {
		return nil, err
	}
	pending, err := s.repos.Entries.FindPending(ctx, tenantID, &statementID)
	if err != nil {
		return nil, err
	}
	result := &EngineResult{Processed: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	from, to := pending[0].Date, pending[0].Date
	for i := range pending {
		if pending[i].Date.Before(from) {
			from = pending[i].Date
		}
		if pending[i].Date.After(to) {
			to = pending[i].Date
		}
	}
	from = from.AddDate(0, 0, -finance.AutoMatchWindowDays)
	to = to.AddDate(0, 0, finance.AutoMatchWindowDays)
	candidates, err := s.repos.Titles.FindOpen(ctx, tenantID, finance.OpenTitleQuery{DueFrom: &from, DueTo: &to})
	if err != nil {
		return nil, err
	}

	now := s.now()
	used := map[uuid.UUID]bool{}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		for i := range pending {
			available := make([]finance.FinancialTitle, 0, len(candidates))
			for j := range candidates {
				if !used[candidates[j].ID] {
					available = append(available, candidates[j])
				}
			}
			title := finance.FindAutoMatch(&pending[i], available)
			if title == nil {
				continue
			}

			entry, err := repos.EntryRepo().FindForUpdate(ctx, tenantID, pending[i].ID)
			if err != nil {
				return err
			}
			if entry.Status != finance.EntryStatusPending {
				continue
			}
			if _, err := entry.Match(title.Ref(), finance.ReconciledAuto, now); err != nil {
				return err
			}
			if err := repos.EntryRepo().Save(ctx, entry); err != nil {
				return err
			}
			used[title.ID] = true
			result.Applied++
		}
		if result.Applied == 0 {
			return nil
		}
		return repos.StatementRepo().RefreshCounters(ctx, tenantID, statementID)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyRules runs the active rules over pending entries that no rule has
// processed yet, optionally limited to one statement. The first rule that
// matches and resolves wins; reruns leave processed entries alone.
func (s *ReconciliationService) ApplyRules(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) (*EngineResult, error) {
	var (
		result *EngineResult
		opErr  error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(operationApplyRules, nil), func(c context.Context) {
		result, opErr = s.applyRules(c, tenantID, statementID)
	})
	return result, opErr
}

func (s *ReconciliationService) applyRules(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) (*EngineResult, error) {
	if statementID != nil {
		if _, err := s.repos.Statements.FindByIDForTenant(ctx, tenantID, *statementID); err != nil {
			return nil, err
		}
	}
	rules, err := s.repos.Rules.FindAllForTenant(ctx, tenantID, finance.RuleFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	finance.SortRules(rules)

	pending, err := s.repos.Entries.FindPending(ctx, tenantID, statementID)
	if err != nil {
		return nil, err
	}

	result := &EngineResult{}
	if len(rules) == 0 {
		return result, nil
	}

	now := s.now()
	touched := map[uuid.UUID]bool{}
	applications := map[uuid.UUID]int{}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		for i := range pending {
			if pending[i].RuleApplied() {
				continue
			}
			result.Processed++

			entry, err := repos.EntryRepo().FindForUpdate(ctx, tenantID, pending[i].ID)
			if err != nil {
				return err
			}
			if entry.Status != finance.EntryStatusPending || entry.RuleApplied() {
				continue
			}

			for r := range rules {
				rule := &rules[r]
				if !rule.IsActive || !rule.Matches(entry) {
					continue
				}
				applied, err := s.applyRule(ctx, repos, tenantID, rule, entry, now)
				if err != nil {
					return err
				}
				if !applied {
					continue
				}
				entry.MarkRule(rule.ID, now)
				if err := repos.EntryRepo().Save(ctx, entry); err != nil {
					return err
				}
				applications[rule.ID]++
				touched[entry.StatementID] = true
				result.Applied++
				break
			}
		}

		for ruleID, n := range applications {
			if err := repos.RuleRepo().IncrementTimesApplied(ctx, tenantID, ruleID, n); err != nil {
				return err
			}
		}
		for id := range touched {
			if err := repos.StatementRepo().RefreshCounters(ctx, tenantID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("reconciliation rules applied",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("processed", result.Processed),
		zap.Int("applied", result.Applied))
	return result, nil
}

// applyRule performs the rule action on entry. It returns false when a match
// action cannot resolve a title, so the next rule gets its turn.
func (s *ReconciliationService) applyRule(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, rule *finance.ReconciliationRule, entry *finance.BankStatementEntry, now time.Time) (bool, error) {
	switch rule.Action {
	case finance.ActionIgnore:
		_, err := entry.Ignore(finance.ReconciledRule, now)
		return err == nil, err
	case finance.ActionCategorize:
		err := entry.Categorize(rule.Category, now)
		return err == nil, err
	}

	direction, ok := rule.Action.MatchDirection()
	if !ok {
		return false, nil
	}
	title, err := s.resolveRuleTarget(ctx, repos, tenantID, rule, entry, direction)
	if err != nil || title == nil {
		return false, err
	}
	if _, err := entry.Match(title.Ref(), finance.ReconciledRule, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ReconciliationService) resolveRuleTarget(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, rule *finance.ReconciliationRule, entry *finance.BankStatementEntry, direction finance.Direction) (*finance.FinancialTitle, error) {
	if rule.TargetID != nil {
		title, err := repos.TitleRepo().FindByIDForTenant(ctx, tenantID, *rule.TargetID)
		if err != nil {
			if shared.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		if title.Direction != direction || title.IsCancelled() || !title.RemainingAmount().IsPositive() {
			return nil, nil
		}
		return title, nil
	}
	if rule.CounterpartyID == nil {
		return nil, nil
	}

	candidates, err := repos.TitleRepo().FindOpen(ctx, tenantID, finance.OpenTitleQuery{
		Direction:      direction,
		CounterpartyID: rule.CounterpartyID,
	})
	if err != nil {
		return nil, err
	}
	return finance.FindCounterpartyMatch(entry, direction, *rule.CounterpartyID, candidates), nil
}

// TestRule evaluates a draft rule against the tenant's pending entries
// without saving anything.
func (s *ReconciliationService) TestRule(ctx context.Context, tenantID uuid.UUID, req RuleRequest) (*finance.RuleTestResult, error) {
	draft, err := finance.NewReconciliationRule(tenantID, req.params())
	if err != nil {
		return nil, err
	}
	entries, err := s.repos.Entries.FindPending(ctx, tenantID, nil)
	if err != nil {
		return nil, err
	}
	result := finance.DryRunRule(draft, entries)
	return &result, nil
}

// Suggestions ranks open titles that could settle an entry
func (s *ReconciliationService) Suggestions(ctx context.Context, tenantID, entryID uuid.UUID, limit int) ([]finance.Suggestion, error) {
	if limit <= 0 {
		limit = s.suggestionLimit
	}
	entry, err := s.repos.Entries.FindByIDForTenant(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}

	amount := entry.Amount.Abs()
	minAmount := amount.Mul(decimal.NewFromInt(1).Sub(suggestionAmountBand))
	maxAmount := amount.Mul(decimal.NewFromInt(1).Add(suggestionAmountBand))
	candidates, err := s.repos.Titles.FindOpen(ctx, tenantID, finance.OpenTitleQuery{
		Direction: entry.TargetDirection(),
		MinAmount: &minAmount,
		MaxAmount: &maxAmount,
		Limit:     suggestionCandidateCap,
	})
	if err != nil {
		return nil, err
	}
	return finance.ScoreSuggestions(entry, candidates, limit), nil
}

// Summary aggregates the tenant's entries, optionally of one statement
func (s *ReconciliationService) Summary(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) (*finance.ReconciliationSummary, error) {
	entries, err := s.repos.Entries.FindAllForTenant(ctx, tenantID, statementID)
	if err != nil {
		return nil, err
	}
	summary := finance.Summarize(entries)
	return &summary, nil
}

// LearnRule turns a manual match into a rule that reproduces it
func (s *ReconciliationService) LearnRule(ctx context.Context, tenantID uuid.UUID, actor Actor, entryID uuid.UUID) (*LearnedRule, error) {
	entry, err := s.repos.Entries.FindByIDForTenant(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Matched == nil {
		return nil, shared.NewConflictError("only matched entries can be learned")
	}

	var counterparty *uuid.UUID
	title, err := s.repos.Titles.FindByIDForTenant(ctx, tenantID, entry.Matched.TitleID())
	switch {
	case err == nil:
		counterparty = title.CounterpartyID
	case !shared.IsNotFound(err):
		return nil, err
	}

	params, err := finance.LearnRuleFromEntry(entry, counterparty)
	if err != nil {
		return nil, err
	}
	rule, err := finance.NewReconciliationRule(tenantID, params)
	if err != nil {
		return nil, err
	}
	rule.SetCreatedBy(actor.UserID)
	if err := s.repos.Rules.Save(ctx, rule); err != nil {
		return nil, err
	}

	return &LearnedRule{
		Rule:    ToRuleResponse(rule),
		Message: fmt.Sprintf("Regra '%s' criada", rule.Name),
	}, nil
}

// RenderedReport is a rendered statement report ready for download
type RenderedReport struct {
	Content     []byte
	ContentType string
	Filename    string
}

// StatementReport renders the reconciliation report of a statement
func (s *ReconciliationService) StatementReport(ctx context.Context, tenantID, statementID uuid.UUID) (*RenderedReport, error) {
	if s.renderer == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "statement reports are disabled")
	}
	statement, err := s.repos.Statements.FindByIDForTenant(ctx, tenantID, statementID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repos.Entries.FindAllForTenant(ctx, tenantID, &statementID)
	if err != nil {
		return nil, err
	}

	report := &StatementReport{
		Statement:   ToStatementResponse(statement),
		Entries:     ToEntryResponses(entries),
		Summary:     finance.Summarize(entries),
		GeneratedAt: s.now(),
	}
	content, contentType, err := s.renderer.RenderStatementReport(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("render statement report: %w", err)
	}
	return &RenderedReport{
		Content:     content,
		ContentType: contentType,
		Filename:    reportFilename(statement.Filename, contentType),
	}, nil
}

func reportFilename(statement, contentType string) string {
	base := strings.TrimSuffix(statement, path.Ext(statement))
	if strings.HasPrefix(contentType, "text/html") {
		return "conciliacao-" + base + ".html"
	}
	return "conciliacao-" + base + ".pdf"
}
