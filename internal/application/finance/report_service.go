package finance

import (
	"context"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultCashFlowWeeks = 4
	maxCashFlowDays      = 186
)

// ReportService builds the read-only finance reports
type ReportService struct {
	titles finance.TitleRepository
	options
}

// NewReportService creates a new ReportService
func NewReportService(titles finance.TitleRepository, opts ...Option) *ReportService {
	return &ReportService{titles: titles, options: newOptions(opts)}
}

// Aging classifies the open titles of a direction by days overdue
func (s *ReportService) Aging(ctx context.Context, tenantID uuid.UUID, direction finance.Direction) (*finance.AgingReport, error) {
	titles, err := s.titles.FindOpen(ctx, tenantID, finance.OpenTitleQuery{Direction: direction})
	if err != nil {
		return nil, err
	}
	report := finance.ClassifyAging(titles, s.now())
	return &report, nil
}

// CashFlow projects the daily balance of open titles. Without explicit dates
// the window starts today and spans req.Weeks weeks.
func (s *ReportService) CashFlow(ctx context.Context, tenantID uuid.UUID, req CashFlowRequest) (*finance.CashFlowProjection, error) {
	now := s.now()
	today := finance.DateOnly(now)
	weeks := req.Weeks
	if weeks <= 0 {
		weeks = defaultCashFlowWeeks
	}

	v := &shared.ValidationError{}
	from, to := today, today.AddDate(0, 0, weeks*7-1)
	if f, err := parseOptionalDate("from", req.From); err != nil {
		v.Add("from", "must be a date in YYYY-MM-DD format")
	} else if f != nil {
		from = *f
		if req.To == "" {
			to = from.AddDate(0, 0, weeks*7-1)
		}
	}
	if t, err := parseOptionalDate("to", req.To); err != nil {
		v.Add("to", "must be a date in YYYY-MM-DD format")
	} else if t != nil {
		to = *t
	}
	if to.Before(from) {
		v.Add("to", "must not be before from")
	} else if finance.DaysBetween(from, to) > maxCashFlowDays {
		v.Add("to", "window may not exceed 186 days")
	}

	balance := decimal.Zero
	if req.InitialBalance != "" {
		b, err := decimal.NewFromString(req.InitialBalance)
		if err != nil {
			v.Add("initial_balance", "must be a number")
		}
		balance = b
	}
	threshold := finance.DefaultMarginThreshold
	if req.MarginThreshold != "" {
		m, err := decimal.NewFromString(req.MarginThreshold)
		if err != nil || m.IsNegative() {
			v.Add("margin_threshold", "must be a non negative number")
		} else {
			threshold = m
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	titles, err := s.titles.FindOpen(ctx, tenantID, finance.OpenTitleQuery{DueFrom: &from, DueTo: &to})
	if err != nil {
		return nil, err
	}
	projection := finance.ProjectCashFlow(titles, finance.ProjectionParams{
		From:            from,
		To:              to,
		InitialBalance:  balance,
		MarginThreshold: threshold,
		Today:           now,
	})
	return &projection, nil
}
