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

// FundTransferService advances money to technicians. Every transfer books a
// payable that is paid on creation; cancelling reverses that payment and
// cancels the payable.
type FundTransferService struct {
	repos   Repositories
	txScope TransactionScope
	options
}

// NewFundTransferService creates a new FundTransferService
func NewFundTransferService(repos Repositories, txScope TransactionScope, opts ...Option) *FundTransferService {
	return &FundTransferService{
		repos:   repos,
		txScope: txScope,
		options: newOptions(opts),
	}
}

// Create records a completed transfer together with its settled payable
func (s *FundTransferService) Create(ctx context.Context, tenantID uuid.UUID, actor Actor, req CreateFundTransferRequest) (*FundTransferResponse, error) {
	transferDate, err := parseDate("transfer_date", req.TransferDate)
	if err != nil {
		return nil, err
	}
	transfer, err := finance.NewFundTransfer(tenantID, finance.NewFundTransferParams{
		BankAccountID: req.BankAccountID,
		ToUserID:      req.ToUserID,
		RecipientName: req.RecipientName,
		Amount:        req.Amount,
		TransferDate:  transferDate,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		CreatedBy:     actor.UserID,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	var payable *finance.FinancialTitle
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		payable, err = finance.NewFinancialTitle(tenantID, transfer.PayableParams(), now)
		if err != nil {
			return err
		}
		if err := repos.TitleRepo().Save(ctx, payable); err != nil {
			return err
		}
		payment, err := settle(ctx, repos, payable, transfer.PaymentParams(), now)
		if err != nil {
			return err
		}
		transfer.Settle(payable.ID, payment.ID)
		return repos.FundTransferRepo().Save(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, payable.GetDomainEvents()...)
	payable.ClearDomainEvents()
	s.logger.Info("fund transfer recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transfer_id", transfer.ID.String()),
		zap.String("to_user_id", transfer.ToUserID.String()),
		zap.String("amount", transfer.Amount.StringFixed(finance.MoneyPlaces)))

	resp := ToFundTransferResponse(transfer)
	return &resp, nil
}

// Cancel reverses a completed transfer. The payment is reversed and the
// payable cancelled in the same transaction.
func (s *FundTransferService) Cancel(ctx context.Context, tenantID uuid.UUID, actor Actor, id uuid.UUID, req CancelFundTransferRequest) (*FundTransferResponse, error) {
	now := s.now()
	var (
		transfer *finance.FundTransfer
		payable  *finance.FinancialTitle
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		transfer, err = repos.FundTransferRepo().FindForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := transfer.Cancel(req.Reason, now); err != nil {
			return err
		}
		if transfer.PayableID != nil {
			if payable, err = s.cancelPayable(ctx, repos, transfer, actor, now); err != nil {
				return err
			}
		}
		return repos.FundTransferRepo().Save(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	if payable != nil {
		s.publish(ctx, payable.GetDomainEvents()...)
		payable.ClearDomainEvents()
	}
	s.logger.Info("fund transfer cancelled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transfer_id", transfer.ID.String()))

	resp := ToFundTransferResponse(transfer)
	return &resp, nil
}

func (s *FundTransferService) cancelPayable(ctx context.Context, repos TransactionalRepositories, transfer *finance.FundTransfer, actor Actor, now time.Time) (*finance.FinancialTitle, error) {
	payable, err := repos.TitleRepo().FindForUpdate(ctx, transfer.TenantID, *transfer.PayableID)
	if err != nil {
		return nil, fmt.Errorf("load transfer payable: %w", err)
	}
	note := transfer.CancelNote()
	if transfer.PaymentID != nil {
		original, err := repos.PaymentRepo().FindByIDForTenant(ctx, transfer.TenantID, *transfer.PaymentID)
		if err != nil {
			return nil, fmt.Errorf("load transfer payment: %w", err)
		}
		if !original.Reversed {
			if _, err := reverse(ctx, repos, payable, original, note, actor.UserID, now); err != nil {
				return nil, err
			}
		}
	}
	if payable.IsCancelled() {
		return payable, nil
	}
	if err := payable.Cancel(note, now); err != nil {
		return nil, err
	}
	if err := repos.TitleRepo().SaveWithLock(ctx, payable); err != nil {
		return nil, err
	}
	return payable, nil
}

// Get returns one transfer
func (s *FundTransferService) Get(ctx context.Context, tenantID, id uuid.UUID) (*FundTransferResponse, error) {
	transfer, err := s.repos.FundTransfers.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToFundTransferResponse(transfer)
	return &resp, nil
}

// List returns a page of transfers, latest first
func (s *FundTransferService) List(ctx context.Context, tenantID uuid.UUID, filter FundTransferListFilter) ([]FundTransferResponse, int64, error) {
	v := &shared.ValidationError{}
	f := finance.FundTransferFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  "transfer_date",
			OrderDir: "desc",
			Search:   strings.TrimSpace(filter.Search),
		}.Normalize(),
	}
	if filter.Status != "" {
		status := finance.FundTransferStatus(filter.Status)
		if !status.IsValid() {
			v.Add("status", "is invalid")
		}
		f.Status = &status
	}
	if id, ok := parseOptionalUUID(v, "to_user_id", filter.ToUserID); ok {
		f.ToUserID = id
	}
	if id, ok := parseOptionalUUID(v, "bank_account_id", filter.BankAccountID); ok {
		f.BankAccountID = id
	}
	if from, err := parseOptionalDate("date_from", filter.DateFrom); err != nil {
		v.Add("date_from", "must be a date in YYYY-MM-DD format")
	} else {
		f.DateFrom = from
	}
	if to, err := parseOptionalDate("date_to", filter.DateTo); err != nil {
		v.Add("date_to", "must be a date in YYYY-MM-DD format")
	} else {
		f.DateTo = to
	}
	if err := v.OrNil(); err != nil {
		return nil, 0, err
	}

	transfers, err := s.repos.FundTransfers.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.FundTransfers.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]FundTransferResponse, len(transfers))
	for i := range transfers {
		out[i] = ToFundTransferResponse(&transfers[i])
	}
	return out, total, nil
}

// Summary totals completed transfers for the current month and overall
func (s *FundTransferService) Summary(ctx context.Context, tenantID uuid.UUID) (*finance.FundTransferSummary, error) {
	summary, err := s.repos.FundTransfers.Summary(ctx, tenantID, s.now())
	if err != nil {
		return nil, err
	}
	summary.MonthTotal = summary.MonthTotal.Round(finance.MoneyPlaces)
	summary.TotalAll = summary.TotalAll.Round(finance.MoneyPlaces)
	return summary, nil
}
