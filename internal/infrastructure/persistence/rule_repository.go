package persistence

import (
	"context"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRuleRepository implements finance.ReconciliationRuleRepository
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GormRuleRepository
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// FindByIDForTenant finds a rule by ID for a specific tenant
func (r *GormRuleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.ReconciliationRule, error) {
	var model models.ReconciliationRuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant returns rules in evaluation order. A zero page size
// returns every matching rule.
func (r *GormRuleRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.RuleFilter) ([]finance.ReconciliationRule, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Where("tenant_id = ?", tenantID), filter).
		Order("priority ASC, created_at ASC, id ASC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.ReconciliationRuleModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	rules := make([]finance.ReconciliationRule, len(rows))
	for i := range rows {
		rules[i] = *rows[i].ToDomain()
	}
	return rules, nil
}

// CountForTenant counts rules matching the filter
func (r *GormRuleRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.RuleFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.ReconciliationRuleModel{}).Where("tenant_id = ?", tenantID), filter).
		Count(&count).Error
	return count, err
}

func (r *GormRuleRepository) applyFilter(query *gorm.DB, filter finance.RuleFilter) *gorm.DB {
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(filter.Search))
	}
	return query
}

// Save creates or updates a rule
func (r *GormRuleRepository) Save(ctx context.Context, rule *finance.ReconciliationRule) error {
	return translateError(r.db.WithContext(ctx).Save(models.ReconciliationRuleModelFromDomain(rule)).Error)
}

// Delete removes a rule
func (r *GormRuleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &models.ReconciliationRuleModel{}, tenantID, id)
}

// IncrementTimesApplied adds n to the usage counter without touching the version
func (r *GormRuleRepository) IncrementTimesApplied(ctx context.Context, tenantID, id uuid.UUID, n int) error {
	if n <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.ReconciliationRuleModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		UpdateColumn("times_applied", gorm.Expr("times_applied + ?", n)).Error
}

var _ finance.ReconciliationRuleRepository = (*GormRuleRepository)(nil)
