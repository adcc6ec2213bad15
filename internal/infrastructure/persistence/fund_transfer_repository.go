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

// FundTransferSortFields contains allowed sort fields for fund transfers
var FundTransferSortFields = map[string]bool{
	"transfer_date": true,
	"amount":        true,
	"status":        true,
	"created_at":    true,
}

// GormFundTransferRepository implements finance.FundTransferRepository
type GormFundTransferRepository struct {
	db *gorm.DB
}

// NewGormFundTransferRepository creates a new GormFundTransferRepository
func NewGormFundTransferRepository(db *gorm.DB) *GormFundTransferRepository {
	return &GormFundTransferRepository{db: db}
}

// FindByIDForTenant finds a transfer by ID for a specific tenant
func (r *GormFundTransferRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.FundTransfer, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindForUpdate loads a transfer holding a row lock
func (r *GormFundTransferRepository) FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.FundTransfer, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormFundTransferRepository) find(query *gorm.DB, tenantID, id uuid.UUID) (*finance.FundTransfer, error) {
	var model models.FundTransferModel
	if err := query.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists transfers, latest transfer date first by default
func (r *GormFundTransferRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.FundTransferFilter) ([]finance.FundTransfer, error) {
	dir := filter.OrderDir
	if filter.OrderBy == "" {
		dir = "desc"
	}
	query := r.applyFilter(r.db.WithContext(ctx).Where("tenant_id = ?", tenantID), filter).
		Order(orderClause(filter.OrderBy, FundTransferSortFields, "transfer_date", dir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.FundTransferModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	transfers := make([]finance.FundTransfer, len(rows))
	for i := range rows {
		transfers[i] = *rows[i].ToDomain()
	}
	return transfers, nil
}

// CountForTenant counts transfers matching the filter
func (r *GormFundTransferRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.FundTransferFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.FundTransferModel{}).Where("tenant_id = ?", tenantID), filter).
		Count(&count).Error
	return count, err
}

func (r *GormFundTransferRepository) applyFilter(query *gorm.DB, filter finance.FundTransferFilter) *gorm.DB {
	if filter.ToUserID != nil {
		query = query.Where("to_user_id = ?", *filter.ToUserID)
	}
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("transfer_date >= ?", finance.DateOnly(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where("transfer_date <= ?", finance.DateOnly(*filter.DateTo))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("(LOWER(description) LIKE ? OR LOWER(recipient_name) LIKE ?)", pattern, pattern)
	}
	return query
}

// Summary totals completed transfers overall and for the month of period
func (r *GormFundTransferRepository) Summary(ctx context.Context, tenantID uuid.UUID, period time.Time) (*finance.FundTransferSummary, error) {
	day := finance.DateOnly(period)
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	completed := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.FundTransferModel{}).
			Where("tenant_id = ? AND status = ?", tenantID, finance.FundTransferCompleted)
	}

	out := &finance.FundTransferSummary{ByRecipient: []finance.RecipientTotal{}}
	if err := completed().Select("COALESCE(SUM(amount), 0)").Scan(&out.TotalAll).Error; err != nil {
		return nil, err
	}
	inMonth := func() *gorm.DB {
		return completed().Where("transfer_date >= ? AND transfer_date < ?", monthStart, monthEnd)
	}
	if err := inMonth().Select("COALESCE(SUM(amount), 0)").Scan(&out.MonthTotal).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		ToUserID      uuid.UUID
		RecipientName string
		Total         decimal.Decimal
	}
	err := inMonth().
		Select("to_user_id, MAX(recipient_name) AS recipient_name, SUM(amount) AS total").
		Group("to_user_id").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out.ByRecipient = append(out.ByRecipient, finance.RecipientTotal{
			ToUserID:      row.ToUserID,
			RecipientName: row.RecipientName,
			Total:         row.Total,
		})
	}
	return out, nil
}

// Save inserts a new transfer or updates a loaded one with a version check
func (r *GormFundTransferRepository) Save(ctx context.Context, transfer *finance.FundTransfer) error {
	model := models.FundTransferModelFromDomain(transfer)
	if transfer.Version <= 1 {
		return translateError(r.db.WithContext(ctx).Create(model).Error)
	}
	result := r.db.WithContext(ctx).
		Model(&models.FundTransferModel{}).
		Where("tenant_id = ? AND id = ? AND version = ?", transfer.TenantID, transfer.ID, transfer.Version-1).
		Select("*").
		Omit("id", "tenant_id", "created_at", "created_by").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return optimisticLockError()
	}
	return nil
}

var _ finance.FundTransferRepository = (*GormFundTransferRepository)(nil)
