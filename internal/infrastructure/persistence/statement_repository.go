package persistence

import (
	"context"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entryInsertBatchSize = 500

// GormStatementRepository implements finance.BankStatementRepository
type GormStatementRepository struct {
	db *gorm.DB
}

// NewGormStatementRepository creates a new GormStatementRepository
func NewGormStatementRepository(db *gorm.DB) *GormStatementRepository {
	return &GormStatementRepository{db: db}
}

// FindByIDForTenant finds a statement by ID for a specific tenant
func (r *GormStatementRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankStatement, error) {
	var model models.BankStatementModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists statements, newest first by default
func (r *GormStatementRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.StatementFilter) ([]finance.BankStatement, error) {
	dir := filter.OrderDir
	if filter.OrderBy == "" {
		dir = "desc"
	}
	query := r.applyFilter(r.db.WithContext(ctx).Where("tenant_id = ?", tenantID), filter).
		Order(orderClause(filter.OrderBy, StatementSortFields, "imported_at", dir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.BankStatementModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	statements := make([]finance.BankStatement, len(rows))
	for i := range rows {
		statements[i] = *rows[i].ToDomain()
	}
	return statements, nil
}

// CountForTenant counts statements matching the filter
func (r *GormStatementRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.StatementFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.BankStatementModel{}).Where("tenant_id = ?", tenantID), filter).
		Count(&count).Error
	return count, err
}

func (r *GormStatementRepository) applyFilter(query *gorm.DB, filter finance.StatementFilter) *gorm.DB {
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(filename) LIKE ?", likePattern(filter.Search))
	}
	return query
}

// ExistsByFingerprint reports whether an identical file was imported before
func (r *GormStatementRepository) ExistsByFingerprint(ctx context.Context, tenantID uuid.UUID, fingerprint string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BankStatementModel{}).
		Where("tenant_id = ? AND fingerprint = ?", tenantID, fingerprint).
		Count(&count).Error
	return count > 0, err
}

// Save creates or updates a statement header
func (r *GormStatementRepository) Save(ctx context.Context, statement *finance.BankStatement) error {
	return translateError(r.db.WithContext(ctx).Save(models.BankStatementModelFromDomain(statement)).Error)
}

// RefreshCounters recomputes entries_count and matched_count from the entries
func (r *GormStatementRepository) RefreshCounters(ctx context.Context, tenantID, statementID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	entries := db.Model(&models.BankStatementEntryModel{}).Select("COUNT(*)").
		Where("tenant_id = ? AND statement_id = ?", tenantID, statementID)
	matched := db.Model(&models.BankStatementEntryModel{}).Select("COUNT(*)").
		Where("tenant_id = ? AND statement_id = ? AND status = ?", tenantID, statementID, finance.EntryStatusMatched)

	result := db.Model(&models.BankStatementModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, statementID).
		Updates(map[string]any{
			"entries_count": entries,
			"matched_count": matched,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound)
	}
	return nil
}

var _ finance.BankStatementRepository = (*GormStatementRepository)(nil)

// GormEntryRepository implements finance.BankStatementEntryRepository
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

// FindByIDForTenant finds an entry by ID for a specific tenant
func (r *GormEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankStatementEntry, error) {
	var model models.BankStatementEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// FindForUpdate loads an entry with a row lock
func (r *GormEntryRepository) FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankStatementEntry, error) {
	var model models.BankStatementEntryModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// FindByStatement pages through the entries of one statement
func (r *GormEntryRepository) FindByStatement(ctx context.Context, tenantID, statementID uuid.UUID, filter finance.EntryFilter) ([]finance.BankStatementEntry, error) {
	query := r.statementQuery(ctx, tenantID, statementID, filter).
		Order(orderClause(filter.OrderBy, EntrySortFields, "date", filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return r.find(query)
}

// CountByStatement counts entries of one statement matching the filter
func (r *GormEntryRepository) CountByStatement(ctx context.Context, tenantID, statementID uuid.UUID, filter finance.EntryFilter) (int64, error) {
	var count int64
	err := r.statementQuery(ctx, tenantID, statementID, filter).Count(&count).Error
	return count, err
}

func (r *GormEntryRepository) statementQuery(ctx context.Context, tenantID, statementID uuid.UUID, filter finance.EntryFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.BankStatementEntryModel{}).
		Where("tenant_id = ? AND statement_id = ?", tenantID, statementID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(description) LIKE ?", likePattern(filter.Search))
	}
	return query
}

// FindPending returns pending entries; a nil statementID means every statement
func (r *GormEntryRepository) FindPending(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) ([]finance.BankStatementEntry, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ? AND status = ?", tenantID, finance.EntryStatusPending)
	if statementID != nil {
		query = query.Where("statement_id = ?", *statementID)
	}
	return r.find(query.Order("date ASC, id ASC"))
}

// FindByDates returns the stored entries dated on any of dates
func (r *GormEntryRepository) FindByDates(ctx context.Context, tenantID uuid.UUID, dates []time.Time) ([]finance.BankStatementEntry, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	days := make([]time.Time, len(dates))
	for i, d := range dates {
		days[i] = finance.DateOnly(d)
	}
	return r.find(r.db.WithContext(ctx).Where("tenant_id = ? AND date IN ?", tenantID, days))
}

// FindAllForTenant returns every entry, optionally of one statement
func (r *GormEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) ([]finance.BankStatementEntry, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if statementID != nil {
		query = query.Where("statement_id = ?", *statementID)
	}
	return r.find(query.Order("date ASC, id ASC"))
}

// CreateBatch inserts the entries of an import
func (r *GormEntryRepository) CreateBatch(ctx context.Context, entries []*finance.BankStatementEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.BankStatementEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.BankStatementEntryModelFromDomain(e)
	}
	return translateError(r.db.WithContext(ctx).CreateInBatches(&rows, entryInsertBatchSize).Error)
}

// Save updates an entry
func (r *GormEntryRepository) Save(ctx context.Context, entry *finance.BankStatementEntry) error {
	return translateError(r.db.WithContext(ctx).Save(models.BankStatementEntryModelFromDomain(entry)).Error)
}

func (r *GormEntryRepository) find(query *gorm.DB) ([]finance.BankStatementEntry, error) {
	var rows []models.BankStatementEntryModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]finance.BankStatementEntry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

var _ finance.BankStatementEntryRepository = (*GormEntryRepository)(nil)
