package finance

import (
	"context"
	"errors"
	"fmt"
	"slices"
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
	operationRecordPayment = "finance_record_payment"
	operationBatchSettle   = "finance_batch_settle"

	defaultBatchCandidateLimit = 200
)

// PaymentService owns every write to amount_paid: single payments,
// reversals and batch settlement.
type PaymentService struct {
	repos   Repositories
	txScope TransactionScope
	options
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(repos Repositories, txScope TransactionScope, opts ...Option) *PaymentService {
	return &PaymentService{
		repos:   repos,
		txScope: txScope,
		options: newOptions(opts),
	}
}

// RecordPayment settles part or all of a title's balance. The title row is
// locked for the duration of the transaction and saved with a version check.
func (s *PaymentService) RecordPayment(ctx context.Context, tenantID uuid.UUID, actor Actor, ref finance.TitleRef, req RecordPaymentRequest) (*PaymentResult, error) {
	now := s.now()
	paymentDate := finance.DateOnly(now)
	if strings.TrimSpace(req.PaymentDate) != "" {
		var err error
		if paymentDate, err = parseDate("payment_date", req.PaymentDate); err != nil {
			return nil, err
		}
	}
	params := finance.RecordPaymentParams{
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PaymentDate:   paymentDate,
		Notes:         req.Notes,
		ReceivedBy:    actor.UserID,
	}
	if err := params.Validate().OrNil(); err != nil {
		return nil, err
	}

	var (
		title   *finance.FinancialTitle
		payment *finance.Payment
		opErr   error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(operationRecordPayment, nil), func(c context.Context) {
		opErr = s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			title, err = repos.TitleRepo().FindForUpdate(c, tenantID, ref.TitleID())
			if err != nil {
				return err
			}
			if title, err = checkDirection(title, ref); err != nil {
				return err
			}
			payment, err = settle(c, repos, title, params, now)
			return err
		})
	})
	if opErr != nil {
		return nil, opErr
	}

	s.publish(ctx, title.GetDomainEvents()...)
	title.ClearDomainEvents()

	return &PaymentResult{
		Payment: ToPaymentResponse(payment),
		Title:   ToTitleResponse(title, now),
	}, nil
}

// settle applies a payment to a title already locked by the caller and
// appends the ledger entry. Nothing is written when the title rejects it.
func settle(ctx context.Context, repos TransactionalRepositories, title *finance.FinancialTitle, params finance.RecordPaymentParams, now time.Time) (*finance.Payment, error) {
	payment, err := finance.NewPayment(title.TenantID, title.Ref(), params)
	if err != nil {
		return nil, err
	}
	prevStatus := title.Status
	if err := title.ApplyPayment(payment.Amount, now); err != nil {
		return nil, err
	}
	if err := repos.PaymentRepo().Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("append payment: %w", err)
	}
	if err := repos.TitleRepo().SaveWithLock(ctx, title); err != nil {
		return nil, err
	}

	title.AddDomainEvent(finance.NewPaymentRecordedEvent(title, payment))
	if prevStatus != title.Status {
		title.AddDomainEvent(finance.NewTitleStatusChangedEvent(title, prevStatus))
	}
	return payment, nil
}

// ListPayments returns the ledger of one title, oldest first
func (s *PaymentService) ListPayments(ctx context.Context, tenantID uuid.UUID, ref finance.TitleRef) ([]PaymentResponse, error) {
	title, err := s.repos.Titles.FindByIDForTenant(ctx, tenantID, ref.TitleID())
	if err != nil {
		return nil, err
	}
	if _, err := checkDirection(title, ref); err != nil {
		return nil, err
	}

	payments, err := s.repos.Payments.FindByTitle(ctx, tenantID, ref)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out, nil
}

// ReversePayment appends a compensating entry for a payment and takes its
// amount back out of the title. A payment is reversed at most once.
func (s *PaymentService) ReversePayment(ctx context.Context, tenantID uuid.UUID, actor Actor, paymentID uuid.UUID, req ReversePaymentRequest) (*PaymentResult, error) {
	now := s.now()
	var (
		title    *finance.FinancialTitle
		reversal *finance.Payment
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		original, err := repos.PaymentRepo().FindByIDForTenant(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		title, err = repos.TitleRepo().FindForUpdate(ctx, tenantID, original.Title.TitleID())
		if err != nil {
			return err
		}
		if title, err = checkDirection(title, original.Title); err != nil {
			return err
		}

		reversal, err = reverse(ctx, repos, title, original, strings.TrimSpace(req.Reason), actor.UserID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, title.GetDomainEvents()...)
	title.ClearDomainEvents()

	return &PaymentResult{
		Payment: ToPaymentResponse(reversal),
		Title:   ToTitleResponse(title, now),
	}, nil
}

// reverse appends the compensating entry of original and takes its amount back
// out of title, which the caller has locked.
func reverse(ctx context.Context, repos TransactionalRepositories, title *finance.FinancialTitle, original *finance.Payment, reason string, by uuid.UUID, now time.Time) (*finance.Payment, error) {
	reversal, err := original.Reverse(reason, by, now)
	if err != nil {
		return nil, err
	}
	prevStatus := title.Status
	if err := title.RevertPayment(original.Amount, now); err != nil {
		return nil, err
	}
	if err := repos.PaymentRepo().Create(ctx, reversal); err != nil {
		return nil, fmt.Errorf("append reversal: %w", err)
	}
	if err := repos.PaymentRepo().MarkReversed(ctx, title.TenantID, original.ID); err != nil {
		return nil, err
	}
	if err := repos.TitleRepo().SaveWithLock(ctx, title); err != nil {
		return nil, err
	}

	title.AddDomainEvent(finance.NewPaymentReversedEvent(title, original, reversal))
	if prevStatus != title.Status {
		title.AddDomainEvent(finance.NewTitleStatusChangedEvent(title, prevStatus))
	}
	return reversal, nil
}

// BatchSettle pays the full remaining balance of every listed title in one
// transaction. Titles are locked in id order. A title with nothing left to pay
// is skipped; any other failure rolls back the whole batch and names the
// failing title.
func (s *PaymentService) BatchSettle(ctx context.Context, tenantID uuid.UUID, actor Actor, req BatchSettleRequest) (*BatchSettleResult, error) {
	direction := finance.DirectionPayable
	if req.Type != "" {
		d, err := finance.ParseDirection(req.Type)
		if err != nil {
			return nil, shared.NewValidationError("type", "must be receivable or payable")
		}
		direction = d
	}

	now := s.now()
	paymentDate := finance.DateOnly(now)
	if strings.TrimSpace(req.PaymentDate) != "" {
		var err error
		if paymentDate, err = parseDate("payment_date", req.PaymentDate); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, shared.NewValidationError("payment_method", "is required")
	}

	ids := sortedUniqueIDs(req.IDs)
	if len(ids) == 0 {
		return nil, shared.NewValidationError("ids", "at least one title is required")
	}

	result := &BatchSettleResult{
		TotalAmount: decimal.Zero,
		Settled:     []uuid.UUID{},
		Skipped:     []uuid.UUID{},
	}
	var (
		settled []*finance.FinancialTitle
		opErr   error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(operationBatchSettle, nil), func(c context.Context) {
		opErr = s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			for _, id := range ids {
				title, err := repos.TitleRepo().FindForUpdate(c, tenantID, id)
				if err != nil {
					return batchMemberError(id, err)
				}
				if title.Direction != direction {
					return batchMemberError(id, shared.NewNotFoundError(fmt.Sprintf("%s not found", direction)))
				}
				if title.IsCancelled() {
					return batchMemberError(id, shared.NewConflictError("title is cancelled"))
				}
				remaining := title.RemainingAmount()
				if !remaining.IsPositive() {
					result.Skipped = append(result.Skipped, id)
					continue
				}

				_, err = settle(c, repos, title, finance.RecordPaymentParams{
					Amount:        remaining,
					PaymentMethod: req.PaymentMethod,
					PaymentDate:   paymentDate,
					Notes:         req.Notes,
					ReceivedBy:    actor.UserID,
				}, now)
				if err != nil {
					return batchMemberError(id, err)
				}
				settled = append(settled, title)
				result.Settled = append(result.Settled, id)
				result.TotalAmount = result.TotalAmount.Add(remaining)
			}
			return nil
		})
	})
	if opErr != nil {
		s.logger.Info("batch settlement rolled back",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("titles", len(ids)),
			zap.Error(opErr))
		return nil, opErr
	}

	for _, t := range settled {
		s.publish(ctx, t.GetDomainEvents()...)
		t.ClearDomainEvents()
	}

	result.ProcessedCount = len(result.Settled)
	result.Message = fmt.Sprintf("%d títulos baixados com sucesso", result.ProcessedCount)
	return result, nil
}

// ListBatchCandidates lists open titles awaiting approval, earliest due first
func (s *PaymentService) ListBatchCandidates(ctx context.Context, tenantID uuid.UUID, filter BatchCandidatesFilter) (*BatchCandidates, error) {
	query := finance.OpenTitleQuery{
		Direction: finance.DirectionPayable,
		Limit:     filter.Limit,
	}
	if query.Limit <= 0 {
		query.Limit = defaultBatchCandidateLimit
	}
	if filter.Type != "" {
		d, err := finance.ParseDirection(filter.Type)
		if err != nil {
			return nil, shared.NewValidationError("type", "must be receivable or payable")
		}
		query.Direction = d
	}
	v := &shared.ValidationError{}
	if due, err := parseOptionalDate("due_before", filter.DueBefore); err != nil {
		v.Add("due_before", "must be a date in YYYY-MM-DD format")
	} else {
		query.DueTo = due
	}
	if filter.MinAmount != "" {
		minAmount, err := decimal.NewFromString(filter.MinAmount)
		if err != nil {
			v.Add("min_amount", "must be a number")
		} else {
			query.MinAmount = &minAmount
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	titles, err := s.repos.Titles.FindOpen(ctx, tenantID, query)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := &BatchCandidates{Items: ToTitleResponses(titles, now), Total: decimal.Zero, Count: len(titles)}
	for i := range titles {
		out.Total = out.Total.Add(titles[i].RemainingAmount())
	}
	return out, nil
}

func sortedUniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return slices.Compact(out)
}

// batchMemberError keeps the error kind and prefixes the failing title id
func batchMemberError(id uuid.UUID, err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return shared.NewDomainError(domainErr.Code, fmt.Sprintf("title %s: %s", id, domainErr.Message))
	}
	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		return shared.NewValidationError("ids", fmt.Sprintf("title %s: %s", id, validationErr.Error()))
	}
	return fmt.Errorf("settle title %s: %w", id, err)
}
