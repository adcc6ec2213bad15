package persistence

import (
	"context"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/erp/finance/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements finance.PaymentRepository using GORM.
// Ledger rows are inserted once; MarkReversed is the only update.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByIDForTenant finds a payment by ID for a specific tenant
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain()
}

// FindByTitle returns the ledger of one title in insertion order
func (r *GormPaymentRepository) FindByTitle(ctx context.Context, tenantID uuid.UUID, ref finance.TitleRef) ([]finance.Payment, error) {
	var rows []models.PaymentModel
	if err := r.byTitle(ctx, tenantID, ref).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	payments := make([]finance.Payment, 0, len(rows))
	for i := range rows {
		p, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, nil
}

// CountByTitle counts ledger rows of one title, reversals included
func (r *GormPaymentRepository) CountByTitle(ctx context.Context, tenantID uuid.UUID, ref finance.TitleRef) (int64, error) {
	var count int64
	err := r.byTitle(ctx, tenantID, ref).Count(&count).Error
	return count, err
}

func (r *GormPaymentRepository) byTitle(ctx context.Context, tenantID uuid.UUID, ref finance.TitleRef) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("tenant_id = ? AND title_direction = ? AND title_id = ?", tenantID, ref.Direction(), ref.TitleID())
}

// Create appends a payment to the ledger
func (r *GormPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	return translateError(r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error)
}

// MarkReversed flags a payment as reversed. A payment that is already
// reversed is reported as a conflict.
func (r *GormPaymentRepository) MarkReversed(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("tenant_id = ? AND id = ? AND reversed = ?", tenantID, id, false).
		Update("reversed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConflict, "Payment was already reversed")
	}
	return nil
}

var _ finance.PaymentRepository = (*GormPaymentRepository)(nil)
