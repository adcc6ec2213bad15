package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultWorkOrderDueDays = 30
	defaultSearchLimit      = 20
)

// TitleService manages receivables and payables
type TitleService struct {
	repos   Repositories
	txScope TransactionScope
	cache   SummaryCache
	options
}

// NewTitleService creates a new TitleService. cache may be nil.
func NewTitleService(repos Repositories, txScope TransactionScope, cache SummaryCache, opts ...Option) *TitleService {
	return &TitleService{
		repos:   repos,
		txScope: txScope,
		cache:   cache,
		options: newOptions(opts),
	}
}

// Create creates a title of the given direction
func (s *TitleService) Create(ctx context.Context, tenantID uuid.UUID, actor Actor, direction finance.Direction, req CreateTitleRequest) (*TitleResponse, error) {
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccount(ctx, tenantID, req.ChartOfAccountID); err != nil {
		return nil, err
	}

	now := s.now()
	title, err := finance.NewFinancialTitle(tenantID, finance.NewTitleParams{
		Direction:        direction,
		CounterpartyID:   req.counterparty(direction),
		CounterpartyName: req.CounterpartyName,
		Description:      req.Description,
		Amount:           req.Amount,
		DueDate:          due,
		ChartOfAccountID: req.ChartOfAccountID,
		PaymentMethod:    req.PaymentMethod,
		Notes:            req.Notes,
		SourceType:       finance.SourceTypeManual,
		CreatedBy:        actor.UserID,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Titles.Save(ctx, title); err != nil {
		return nil, fmt.Errorf("save title: %w", err)
	}

	s.publish(ctx, title.GetDomainEvents()...)
	title.ClearDomainEvents()

	resp := ToTitleResponse(title, now)
	return &resp, nil
}

// Get returns one title of the given direction
func (s *TitleService) Get(ctx context.Context, tenantID uuid.UUID, ref finance.TitleRef) (*TitleResponse, error) {
	title, err := s.load(ctx, s.repos.Titles, tenantID, ref)
	if err != nil {
		return nil, err
	}
	resp := ToTitleResponse(title, s.now())
	return &resp, nil
}

// List returns a page of titles of one direction
func (s *TitleService) List(ctx context.Context, tenantID uuid.UUID, direction finance.Direction, filter TitleListFilter) ([]TitleResponse, int64, error) {
	domainFilter, err := s.toDomainFilter(direction, filter)
	if err != nil {
		return nil, 0, err
	}

	titles, err := s.repos.Titles.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.Titles.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToTitleResponses(titles, s.now()), total, nil
}

func (s *TitleService) toDomainFilter(direction finance.Direction, filter TitleListFilter) (finance.TitleFilter, error) {
	v := &shared.ValidationError{}
	f := finance.TitleFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   strings.TrimSpace(filter.Search),
		}.Normalize(),
		Direction: direction,
	}
	if filter.Status != "" {
		status := finance.TitleStatus(filter.Status)
		if !status.IsValid() {
			v.Add("status", "is invalid")
		}
		f.Status = &status
	}
	if id, ok := parseOptionalUUID(v, "counterparty_id", filter.CounterpartyID); ok {
		f.CounterpartyID = id
	}
	if id, ok := parseOptionalUUID(v, "chart_of_account_id", filter.ChartOfAccountID); ok {
		f.ChartOfAccountID = id
	}
	if from, err := parseOptionalDate("due_from", filter.DueFrom); err != nil {
		v.Add("due_from", "must be a date in YYYY-MM-DD format")
	} else {
		f.DueFrom = from
	}
	if to, err := parseOptionalDate("due_to", filter.DueTo); err != nil {
		v.Add("due_to", "must be a date in YYYY-MM-DD format")
	} else {
		f.DueTo = to
	}
	return f, v.OrNil()
}

func parseOptionalUUID(v *shared.ValidationError, field string, raw *string) (*uuid.UUID, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		v.Add(field, "must be a valid UUID")
		return nil, false
	}
	return &id, true
}

// Update edits an open title
func (s *TitleService) Update(ctx context.Context, tenantID uuid.UUID, ref finance.TitleRef, req UpdateTitleRequest) (*TitleResponse, error) {
	params := finance.EditTitleParams{
		CounterpartyName: req.CounterpartyName,
		Description:      req.Description,
		Amount:           req.Amount,
		ChartOfAccountID: req.ChartOfAccountID,
		ClearChart:       req.ClearChart,
		PaymentMethod:    req.PaymentMethod,
		Notes:            req.Notes,
	}
	if ref.Direction() == finance.DirectionPayable && req.SupplierID != nil {
		params.CounterpartyID = req.SupplierID
	} else {
		params.CounterpartyID = req.CounterpartyID
	}
	if req.DueDate != nil {
		due, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			return nil, err
		}
		params.DueDate = &due
	}
	if !req.ClearChart {
		if err := s.checkAccount(ctx, tenantID, req.ChartOfAccountID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	var title *finance.FinancialTitle
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		title, err = s.loadForUpdate(ctx, repos.TitleRepo(), tenantID, ref)
		if err != nil {
			return err
		}
		if err := title.Edit(params, now); err != nil {
			return err
		}
		return repos.TitleRepo().SaveWithLock(ctx, title)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, tenantID, title.Direction)
	resp := ToTitleResponse(title, now)
	return &resp, nil
}

// Delete soft deletes a title. The actor needs the delete capability of the
// direction and the title must have no payment at all.
func (s *TitleService) Delete(ctx context.Context, tenantID uuid.UUID, actor Actor, ref finance.TitleRef) error {
	if !actor.Can(ref.Direction().DeleteCapability()) {
		return shared.NewForbiddenError(fmt.Sprintf("permission %s is required to delete titles", ref.Direction().DeleteCapability()))
	}

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		title, err := s.loadForUpdate(ctx, repos.TitleRepo(), tenantID, ref)
		if err != nil {
			return err
		}
		if err := title.EnsureDeletable(); err != nil {
			return err
		}
		count, err := repos.PaymentRepo().CountByTitle(ctx, tenantID, ref)
		if err != nil {
			return err
		}
		if count > 0 {
			return shared.NewConflictError("cannot delete a title with payments")
		}
		return repos.TitleRepo().Delete(ctx, tenantID, title.ID)
	})
	if err != nil {
		return err
	}

	s.invalidateSummary(ctx, tenantID, ref.Direction())
	return nil
}

// Cancel cancels a title without payments
func (s *TitleService) Cancel(ctx context.Context, tenantID uuid.UUID, ref finance.TitleRef, req CancelTitleRequest) (*TitleResponse, error) {
	now := s.now()
	var title *finance.FinancialTitle
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		title, err = s.loadForUpdate(ctx, repos.TitleRepo(), tenantID, ref)
		if err != nil {
			return err
		}
		if err := title.Cancel(req.Reason, now); err != nil {
			return err
		}
		return repos.TitleRepo().SaveWithLock(ctx, title)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, title.GetDomainEvents()...)
	title.ClearDomainEvents()
	s.invalidateSummary(ctx, tenantID, title.Direction)

	resp := ToTitleResponse(title, now)
	return &resp, nil
}

// GenerateFromWorkOrder creates the receivable of a work order. A work order
// is billed once.
func (s *TitleService) GenerateFromWorkOrder(ctx context.Context, tenantID uuid.UUID, actor Actor, req WorkOrderTitleRequest) (*TitleResponse, error) {
	now := s.now()
	due := finance.DateOnly(now).AddDate(0, 0, s.defaultDueDays)
	if strings.TrimSpace(req.DueDate) != "" {
		var err error
		if due, err = parseDate("due_date", req.DueDate); err != nil {
			return nil, err
		}
	}

	number := req.Number
	if number == "" {
		number = req.WorkOrderID.String()[:8]
	}

	customerID := req.CustomerID
	workOrderID := req.WorkOrderID
	var title *finance.FinancialTitle
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.TitleRepo().ExistsForWorkOrder(ctx, tenantID, workOrderID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewConflictError("titles were already generated for this work order")
		}
		title, err = finance.NewFinancialTitle(tenantID, finance.NewTitleParams{
			Direction:        finance.DirectionReceivable,
			CounterpartyID:   &customerID,
			CounterpartyName: req.CounterpartyName,
			Description:      fmt.Sprintf("OS %s", number),
			Amount:           req.Amount,
			DueDate:          due,
			PaymentMethod:    req.PaymentMethod,
			SourceType:       finance.SourceTypeWorkOrder,
			WorkOrderID:      &workOrderID,
			CreatedBy:        actor.UserID,
		}, now)
		if err != nil {
			return err
		}
		return repos.TitleRepo().Save(ctx, title)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, title.GetDomainEvents()...)
	title.ClearDomainEvents()

	resp := ToTitleResponse(title, now)
	return &resp, nil
}

// GenerateInstallments splits a total into monthly receivables. Each part is
// truncated to cents and the last one absorbs the remainder.
func (s *TitleService) GenerateInstallments(ctx context.Context, tenantID uuid.UUID, actor Actor, req InstallmentRequest) ([]TitleResponse, error) {
	now := s.now()
	first, err := parseDate("first_due_date", req.FirstDueDate)
	if err != nil {
		return nil, err
	}
	v := &shared.ValidationError{}
	if first.Before(finance.DateOnly(now)) {
		v.Add("first_due_date", "must be today or later")
	}
	if req.Installments < 2 || req.Installments > 48 {
		v.Add("installments", "must be between 2 and 48")
	}
	if !req.TotalAmount.IsPositive() {
		v.Add("total_amount", "must be greater than zero")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if err := s.checkAccount(ctx, tenantID, req.ChartOfAccountID); err != nil {
		return nil, err
	}

	parts, err := finance.SplitInstallments(req.TotalAmount, req.Installments)
	if err != nil {
		return nil, shared.NewValidationError("total_amount", err.Error())
	}

	customerID := req.CustomerID
	titles := make([]*finance.FinancialTitle, 0, len(parts))
	for i, amount := range parts {
		title, err := finance.NewFinancialTitle(tenantID, finance.NewTitleParams{
			Direction:         finance.DirectionReceivable,
			CounterpartyID:    &customerID,
			CounterpartyName:  req.CounterpartyName,
			Description:       fmt.Sprintf("%s - Parcela %d/%d", strings.TrimSpace(req.Description), i+1, len(parts)),
			Amount:            amount,
			DueDate:           first.AddDate(0, i, 0),
			ChartOfAccountID:  req.ChartOfAccountID,
			PaymentMethod:     req.PaymentMethod,
			SourceType:        finance.SourceTypeInstallment,
			WorkOrderID:       req.WorkOrderID,
			InstallmentNumber: i + 1,
			InstallmentTotal:  len(parts),
			CreatedBy:         actor.UserID,
		}, now)
		if err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.TitleRepo().SaveBatch(ctx, titles)
	})
	if err != nil {
		return nil, err
	}

	out := make([]TitleResponse, len(titles))
	for i, t := range titles {
		s.publish(ctx, t.GetDomainEvents()...)
		t.ClearDomainEvents()
		out[i] = ToTitleResponse(t, now)
	}
	return out, nil
}

// Summary returns the dashboard totals of a direction for the current month,
// read through the summary cache.
func (s *TitleService) Summary(ctx context.Context, tenantID uuid.UUID, direction finance.Direction) (*finance.TitleSummary, error) {
	now := s.now()
	key := SummaryCacheKey(tenantID, direction, now)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("summary cache read failed", zap.Error(err), zap.String("key", key))
		} else if cached != nil {
			return cached, nil
		}
	}

	summary, err := s.repos.Titles.Summary(ctx, tenantID, direction, now)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary); err != nil {
			s.logger.Warn("summary cache write failed", zap.Error(err), zap.String("key", key))
		}
	}
	return summary, nil
}

// Search finds open titles by description or counterparty for manual matching
func (s *TitleService) Search(ctx context.Context, tenantID uuid.UUID, direction finance.Direction, filter SearchFilter) ([]TitleResponse, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	query := finance.OpenTitleQuery{
		Direction: direction,
		Search:    strings.TrimSpace(filter.Query),
		Limit:     limit,
	}
	if filter.CounterpartyID != "" {
		id, err := uuid.Parse(filter.CounterpartyID)
		if err != nil {
			return nil, shared.NewValidationError("counterparty_id", "must be a valid UUID")
		}
		query.CounterpartyID = &id
	}

	titles, err := s.repos.Titles.FindOpen(ctx, tenantID, query)
	if err != nil {
		return nil, err
	}
	return ToTitleResponses(titles, s.now()), nil
}

// RefreshOverdue recomputes the cached status of the tenant's open titles
// whose due date has passed. Running it twice on the same day changes
// nothing the second time.
func (s *TitleService) RefreshOverdue(ctx context.Context, tenantID uuid.UUID) (int, error) {
	now := s.now()
	stale, err := s.repos.Titles.FindStale(ctx, tenantID, finance.DateOnly(now))
	if err != nil {
		return 0, err
	}

	changed, conflicts := 0, 0
	for i := range stale {
		ref := stale[i].Ref()
		var events []shared.DomainEvent
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			title, err := repos.TitleRepo().FindForUpdate(ctx, tenantID, ref.TitleID())
			if err != nil {
				return err
			}
			if !title.RefreshStatus(now) {
				return nil
			}
			if err := repos.TitleRepo().SaveWithLock(ctx, title); err != nil {
				return err
			}
			events = title.GetDomainEvents()
			title.ClearDomainEvents()
			return nil
		})
		switch {
		case err == nil:
			if len(events) > 0 {
				changed++
				s.publish(ctx, events...)
			}
		case shared.IsNotFound(err):
			s.logger.Debug("title vanished during overdue refresh", zap.String("title_id", ref.TitleID().String()))
		case shared.IsConflict(err):
			conflicts++
			s.logger.Warn("overdue refresh lost a write race", zap.String("title_id", ref.TitleID().String()), zap.Error(err))
		default:
			return changed, err
		}
	}
	if conflicts > 0 {
		s.logger.Warn("overdue refresh left titles for the next run",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("conflicts", conflicts),
		)
	}

	if changed > 0 {
		s.invalidateSummary(ctx, tenantID, finance.DirectionReceivable)
		s.invalidateSummary(ctx, tenantID, finance.DirectionPayable)
	}
	return changed, nil
}

func (s *TitleService) checkAccount(ctx context.Context, tenantID uuid.UUID, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.repos.Accounts.FindByIDForTenant(ctx, tenantID, *id); err != nil {
		if shared.IsNotFound(err) {
			return shared.NewValidationError("chart_of_account_id", "does not exist")
		}
		return err
	}
	return nil
}

func (s *TitleService) load(ctx context.Context, repo finance.TitleRepository, tenantID uuid.UUID, ref finance.TitleRef) (*finance.FinancialTitle, error) {
	title, err := repo.FindByIDForTenant(ctx, tenantID, ref.TitleID())
	if err != nil {
		return nil, err
	}
	return checkDirection(title, ref)
}

func (s *TitleService) loadForUpdate(ctx context.Context, repo finance.TitleRepository, tenantID uuid.UUID, ref finance.TitleRef) (*finance.FinancialTitle, error) {
	title, err := repo.FindForUpdate(ctx, tenantID, ref.TitleID())
	if err != nil {
		return nil, err
	}
	return checkDirection(title, ref)
}

func (s *TitleService) invalidateSummary(ctx context.Context, tenantID uuid.UUID, direction finance.Direction) {
	invalidateSummary(ctx, s.cache, s.logger, tenantID, direction)
}

// checkDirection hides titles of the other direction behind a not found
func checkDirection(title *finance.FinancialTitle, ref finance.TitleRef) (*finance.FinancialTitle, error) {
	if title == nil || title.Direction != ref.Direction() {
		return nil, shared.NewNotFoundError(fmt.Sprintf("%s not found", ref.Direction()))
	}
	return title, nil
}

// SummaryCacheKey is the cache key of a tenant/direction/month summary
func SummaryCacheKey(tenantID uuid.UUID, direction finance.Direction, period time.Time) string {
	return SummaryCachePrefix(tenantID, direction) + period.UTC().Format("2006-01")
}

// SummaryCachePrefix covers every period of a tenant and direction
func SummaryCachePrefix(tenantID uuid.UUID, direction finance.Direction) string {
	return fmt.Sprintf("finance:summary:%s:%s:", tenantID, direction)
}

func invalidateSummary(ctx context.Context, cache SummaryCache, logger *zap.Logger, tenantID uuid.UUID, direction finance.Direction) {
	if cache == nil {
		return
	}
	if err := cache.DeletePrefix(ctx, SummaryCachePrefix(tenantID, direction)); err != nil {
		logger.Warn("summary cache invalidation failed",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
			zap.String("direction", direction.String()))
	}
}
