package persistence

import (
	"context"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCollectionRuleRepository implements finance.CollectionRuleRepository
type GormCollectionRuleRepository struct {
	db *gorm.DB
}

// NewGormCollectionRuleRepository creates a new GormCollectionRuleRepository
func NewGormCollectionRuleRepository(db *gorm.DB) *GormCollectionRuleRepository {
	return &GormCollectionRuleRepository{db: db}
}

// FindByIDForTenant finds a collection rule by ID for a specific tenant
func (r *GormCollectionRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.CollectionRule, error) {
	var model models.CollectionRuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant returns collection rules ordered by days before due
func (r *GormCollectionRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]finance.CollectionRule, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.CollectionRuleModel
	if err := query.Order("days_before_due DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	rules := make([]finance.CollectionRule, len(rows))
	for i := range rows {
		rules[i] = *rows[i].ToDomain()
	}
	return rules, nil
}

// Save creates or updates a collection rule
func (r *GormCollectionRuleRepository) Save(ctx context.Context, rule *finance.CollectionRule) error {
	return translateError(r.db.WithContext(ctx).Save(models.CollectionRuleModelFromDomain(rule)).Error)
}

// Delete removes a collection rule
func (r *GormCollectionRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &models.CollectionRuleModel{}, tenantID, id)
}

var _ finance.CollectionRuleRepository = (*GormCollectionRuleRepository)(nil)

// GormCollectionLogRepository implements finance.CollectionLogRepository
type GormCollectionLogRepository struct {
	db *gorm.DB
}

// NewGormCollectionLogRepository creates a new GormCollectionLogRepository
func NewGormCollectionLogRepository(db *gorm.DB) *GormCollectionLogRepository {
	return &GormCollectionLogRepository{db: db}
}

// CreateIfAbsent inserts the log unless the (rule, title, run date) triple
// already exists. It reports whether a row was written.
func (r *GormCollectionLogRepository) CreateIfAbsent(ctx context.Context, log *finance.CollectionLog) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.CollectionLogModelFromDomain(log))
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

var _ finance.CollectionLogRepository = (*GormCollectionLogRepository)(nil)
