package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dailyGuardTTL = 26 * time.Hour

// DailyJob refreshes overdue statuses and then runs collection for every
// tenant. The idempotency store lets each tenant run once per day across
// replicas.
type DailyJob struct {
	titles     *TitleService
	collection *CollectionService
	tenants    finance.TitleRepository
	guard      shared.IdempotencyStore
	options
}

// NewDailyJob creates a new DailyJob. guard may be nil.
func NewDailyJob(titles *TitleService, collection *CollectionService, tenants finance.TitleRepository, guard shared.IdempotencyStore, opts ...Option) *DailyJob {
	return &DailyJob{
		titles:     titles,
		collection: collection,
		tenants:    tenants,
		guard:      guard,
		options:    newOptions(opts),
	}
}

// Name identifies the job in scheduler logs
func (j *DailyJob) Name() string {
	return "finance-daily"
}

// Run processes every tenant. A failing tenant does not stop the others;
// the joined error reports all of them.
func (j *DailyJob) Run(ctx context.Context) error {
	tenantIDs, err := j.tenants.TenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	day := finance.DateOnly(j.now()).Format(dateLayout)
	var errs []error
	for _, tenantID := range tenantIDs {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if !j.claim(ctx, tenantID, day) {
			continue
		}
		if err := j.runTenant(ctx, tenantID); err != nil {
			j.logger.Error("daily finance job failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
		}
	}
	return errors.Join(errs...)
}

func (j *DailyJob) runTenant(ctx context.Context, tenantID uuid.UUID) error {
	refreshed, err := j.titles.RefreshOverdue(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("refresh overdue: %w", err)
	}
	result, err := j.collection.Run(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	j.logger.Info("daily finance job done",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("status_refreshed", refreshed),
		zap.Int("reminders_sent", result.Sent),
		zap.Int("reminders_skipped", result.Skipped))
	return nil
}

// claim reports whether this replica owns the tenant's run for day. Without a
// guard, or when the guard is unreachable, the run proceeds; both steps are
// idempotent on their own.
func (j *DailyJob) claim(ctx context.Context, tenantID uuid.UUID, day string) bool {
	if j.guard == nil {
		return true
	}
	key := fmt.Sprintf("finance:daily:%s:%s", tenantID, day)
	ok, err := j.guard.MarkProcessed(ctx, key, dailyGuardTTL)
	if err != nil {
		j.logger.Warn("daily job guard unavailable", zap.Error(err), zap.String("key", key))
		return true
	}
	return ok
}
