package persistence

import (
	"context"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const remainingExpr = "(amount - amount_paid)"

// GormTitleRepository implements finance.TitleRepository using GORM
type GormTitleRepository struct {
	db *gorm.DB
}

// NewGormTitleRepository creates a new GormTitleRepository
func NewGormTitleRepository(db *gorm.DB) *GormTitleRepository {
	return &GormTitleRepository{db: db}
}

// FindByIDForTenant finds a title by ID for a specific tenant
func (r *GormTitleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.FinancialTitle, error) {
	var model models.FinancialTitleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindForUpdate loads a title with SELECT ... FOR UPDATE
func (r *GormTitleRepository) FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.FinancialTitle, error) {
	var model models.FinancialTitleModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds titles with filtering and pagination
func (r *GormTitleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.TitleFilter) ([]finance.FinancialTitle, error) {
	var rows []models.FinancialTitleModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.FinancialTitleModel{}).Where("tenant_id = ?", tenantID), filter)
	query = query.Order(orderClause(filter.OrderBy, TitleSortFields, "due_date", filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return titlesToDomain(rows), nil
}

// CountForTenant counts titles matching the filter
func (r *GormTitleRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.TitleFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.FinancialTitleModel{}).Where("tenant_id = ?", tenantID), filter).
		Count(&count).Error
	return count, err
}

func (r *GormTitleRepository) applyFilter(query *gorm.DB, filter finance.TitleFilter) *gorm.DB {
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CounterpartyID != nil {
		query = query.Where("counterparty_id = ?", *filter.CounterpartyID)
	}
	if filter.ChartOfAccountID != nil {
		query = query.Where("chart_of_account_id = ?", *filter.ChartOfAccountID)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", finance.DateOnly(*filter.DueFrom))
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", finance.DateOnly(*filter.DueTo))
	}
	if filter.Search != "" {
		query = whereSearch(query, filter.Search)
	}
	return query
}

func whereSearch(query *gorm.DB, search string) *gorm.DB {
	pattern := likePattern(search)
	return query.Where("(LOWER(description) LIKE ? OR LOWER(counterparty_name) LIKE ?)", pattern, pattern)
}

// FindOpen finds titles with an outstanding balance ordered by due date.
// Amount bounds apply to the remaining balance.
func (r *GormTitleRepository) FindOpen(ctx context.Context, tenantID uuid.UUID, q finance.OpenTitleQuery) ([]finance.FinancialTitle, error) {
	query := r.db.WithContext(ctx).Model(&models.FinancialTitleModel{}).
		Where("tenant_id = ? AND status IN ? AND "+remainingExpr+" > 0", tenantID, finance.OpenStatuses())
	if q.Direction != "" {
		query = query.Where("direction = ?", q.Direction)
	}
	if q.CounterpartyID != nil {
		query = query.Where("counterparty_id = ?", *q.CounterpartyID)
	}
	if q.DueFrom != nil {
		query = query.Where("due_date >= ?", finance.DateOnly(*q.DueFrom))
	}
	if q.DueTo != nil {
		query = query.Where("due_date <= ?", finance.DateOnly(*q.DueTo))
	}
	if q.MinAmount != nil {
		query = query.Where(remainingExpr+" >= ?", *q.MinAmount)
	}
	if q.MaxAmount != nil {
		query = query.Where(remainingExpr+" <= ?", *q.MaxAmount)
	}
	if q.Search != "" {
		query = whereSearch(query, q.Search)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []models.FinancialTitleModel
	if err := query.Order("due_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return titlesToDomain(rows), nil
}

// FindStale finds open titles whose cached status disagrees with the due
// date: overdue ones not yet flagged and flagged ones whose due date moved.
func (r *GormTitleRepository) FindStale(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]finance.FinancialTitle, error) {
	today = finance.DateOnly(today)
	var rows []models.FinancialTitleModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("(status IN ? AND due_date < ?) OR (status = ? AND due_date >= ?)",
			[]finance.TitleStatus{finance.TitleStatusPending, finance.TitleStatusPartial}, today,
			finance.TitleStatusOverdue, today).
		Order("due_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return titlesToDomain(rows), nil
}

// ExistsForWorkOrder reports whether titles were generated for the work order
func (r *GormTitleRepository) ExistsForWorkOrder(ctx context.Context, tenantID, workOrderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FinancialTitleModel{}).
		Where("tenant_id = ? AND work_order_id = ? AND status <> ?", tenantID, workOrderID, finance.TitleStatusCancelled).
		Count(&count).Error
	return count > 0, err
}

// CountByChartOfAccount counts titles classified under an account
func (r *GormTitleRepository) CountByChartOfAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FinancialTitleModel{}).
		Where("tenant_id = ? AND chart_of_account_id = ?", tenantID, accountID).
		Count(&count).Error
	return count, err
}

// Summary aggregates one direction for the month containing period. The
// pending/overdue split uses the period's date, not the cached status.
func (r *GormTitleRepository) Summary(ctx context.Context, tenantID uuid.UUID, direction finance.Direction, period time.Time) (*finance.TitleSummary, error) {
	today := finance.DateOnly(period)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var open struct {
		Pending decimal.Decimal
		Overdue decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.FinancialTitleModel{}).
		Select("COALESCE(SUM(CASE WHEN due_date >= ? THEN "+remainingExpr+" ELSE 0 END), 0) AS pending, "+
			"COALESCE(SUM(CASE WHEN due_date < ? THEN "+remainingExpr+" ELSE 0 END), 0) AS overdue", today, today).
		Where("tenant_id = ? AND direction = ? AND status IN ?", tenantID, direction, finance.OpenStatuses()).
		Scan(&open).Error
	if err != nil {
		return nil, err
	}

	var billed decimal.Decimal
	err = r.db.WithContext(ctx).Model(&models.FinancialTitleModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("tenant_id = ? AND direction = ? AND status <> ?", tenantID, direction, finance.TitleStatusCancelled).
		Where("created_at >= ? AND created_at < ?", monthStart, monthEnd).
		Scan(&billed).Error
	if err != nil {
		return nil, err
	}

	var paid decimal.Decimal
	err = r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("tenant_id = ? AND title_direction = ?", tenantID, direction).
		Where("payment_date >= ? AND payment_date < ?", monthStart, monthEnd).
		Scan(&paid).Error
	if err != nil {
		return nil, err
	}

	totalOpen := open.Pending.Add(open.Overdue)
	return &finance.TitleSummary{
		Pending:         open.Pending,
		Overdue:         open.Overdue,
		BilledThisMonth: billed,
		PaidThisMonth:   paid,
		Total:           totalOpen,
		TotalOpen:       totalOpen,
	}, nil
}

// Save creates or updates a title
func (r *GormTitleRepository) Save(ctx context.Context, title *finance.FinancialTitle) error {
	model := models.FinancialTitleModelFromDomain(title)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// SaveWithLock updates a title only if the stored version is the one it was
// loaded with. The aggregate has already bumped its own version.
func (r *GormTitleRepository) SaveWithLock(ctx context.Context, title *finance.FinancialTitle) error {
	model := models.FinancialTitleModelFromDomain(title)
	result := r.db.WithContext(ctx).
		Model(&models.FinancialTitleModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", title.TenantID, title.ID, title.Version-1).
		Select("*").
		Omit("id", "tenant_id", "created_at", "created_by", "deleted_at").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return optimisticLockError()
	}
	return nil
}

// SaveBatch creates several titles at once
func (r *GormTitleRepository) SaveBatch(ctx context.Context, titles []*finance.FinancialTitle) error {
	if len(titles) == 0 {
		return nil
	}
	rows := make([]*models.FinancialTitleModel, len(titles))
	for i, t := range titles {
		rows[i] = models.FinancialTitleModelFromDomain(t)
	}
	return translateError(r.db.WithContext(ctx).Create(&rows).Error)
}

// Delete soft deletes a title
func (r *GormTitleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &models.FinancialTitleModel{}, tenantID, id)
}

// TenantIDs lists every tenant that owns titles
func (r *GormTitleRepository) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.FinancialTitleModel{}).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &ids).Error
	return ids, err
}

func titlesToDomain(rows []models.FinancialTitleModel) []finance.FinancialTitle {
	titles := make([]finance.FinancialTitle, len(rows))
	for i := range rows {
		titles[i] = *rows[i].ToDomain()
	}
	return titles
}

var _ finance.TitleRepository = (*GormTitleRepository)(nil)
