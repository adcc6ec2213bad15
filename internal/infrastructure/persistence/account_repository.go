package persistence

import (
	"context"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxAccountDepth bounds the parent walk in Ancestors
const maxAccountDepth = 64

// GormAccountRepository implements finance.ChartOfAccountRepository
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByIDForTenant finds an account by ID for a specific tenant
func (r *GormAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.ChartOfAccount, error) {
	var model models.ChartOfAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant returns the whole chart ordered by code
func (r *GormAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]finance.ChartOfAccount, error) {
	var rows []models.ChartOfAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]finance.ChartOfAccount, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// ExistsByCode checks code uniqueness within a tenant, optionally ignoring one account
func (r *GormAccountRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.ChartOfAccountModel{}).
		Where("tenant_id = ? AND code = ?", tenantID, code)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

// CountChildren counts the direct children of an account
func (r *GormAccountRepository) CountChildren(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChartOfAccountModel{}).
		Where("tenant_id = ? AND parent_id = ?", tenantID, id).
		Count(&count).Error
	return count, err
}

// Ancestors walks parent links from the parent of id up to the root.
// The walk stops on a repeated id so a corrupt chart cannot loop.
func (r *GormAccountRepository) Ancestors(ctx context.Context, tenantID, id uuid.UUID) ([]uuid.UUID, error) {
	var ancestors []uuid.UUID
	seen := map[uuid.UUID]bool{id: true}
	current := id
	for range maxAccountDepth {
		var parent struct{ ParentID *uuid.UUID }
		err := r.db.WithContext(ctx).Model(&models.ChartOfAccountModel{}).
			Select("parent_id").
			Where("tenant_id = ? AND id = ?", tenantID, current).
			Take(&parent).Error
		if err != nil {
			return nil, translateError(err)
		}
		if parent.ParentID == nil || seen[*parent.ParentID] {
			break
		}
		seen[*parent.ParentID] = true
		ancestors = append(ancestors, *parent.ParentID)
		current = *parent.ParentID
	}
	return ancestors, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *finance.ChartOfAccount) error {
	return translateError(r.db.WithContext(ctx).Save(models.ChartOfAccountModelFromDomain(account)).Error)
}

// Delete removes an account
func (r *GormAccountRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &models.ChartOfAccountModel{}, tenantID, id)
}

var _ finance.ChartOfAccountRepository = (*GormAccountRepository)(nil)
