package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashAlert flags the projected balance of a day
type CashAlert string

const (
	CashAlertOK       CashAlert = "ok"
	CashAlertTight    CashAlert = "tight"
	CashAlertShortage CashAlert = "shortage"
)

// DefaultMarginThreshold is the relative margin under which a day is tight
var DefaultMarginThreshold = decimal.RequireFromString("0.15")

// CashFlowDay is one projected day
type CashFlowDay struct {
	Date             time.Time       `json:"date"`
	Label            string          `json:"label"`
	Inflows          decimal.Decimal `json:"inflows"`
	Outflows         decimal.Decimal `json:"outflows"`
	ObligationsTotal decimal.Decimal `json:"obligations_total"`
	BalanceProjected decimal.Decimal `json:"balance_projected"`
	Alert            CashAlert       `json:"alert"`
	IsToday          bool            `json:"is_today"`
}

// CashFlowSummary aggregates the alerts of a projection
type CashFlowSummary struct {
	DaysShortage   int             `json:"days_shortage"`
	DaysTight      int             `json:"days_tight"`
	MinBalance     decimal.Decimal `json:"min_balance"`
	MinBalanceDate *time.Time      `json:"min_balance_date"`
}

// CashFlowProjection is the day by day projection of open titles
type CashFlowProjection struct {
	Days    []CashFlowDay   `json:"days"`
	Summary CashFlowSummary `json:"summary"`
}

// ProjectionParams configures ProjectCashFlow
type ProjectionParams struct {
	From            time.Time
	To              time.Time
	InitialBalance  decimal.Decimal
	MarginThreshold decimal.Decimal
	Today           time.Time
}

// ProjectCashFlow walks each day from From to To, adding the remaining
// balance of receivables due that day and subtracting payables. A day is a
// shortage when the opening balance cannot cover the obligations of the day,
// and tight when the leftover margin is under the threshold.
func ProjectCashFlow(titles []FinancialTitle, p ProjectionParams) CashFlowProjection {
	from, to := DateOnly(p.From), DateOnly(p.To)
	threshold := p.MarginThreshold
	if threshold.IsZero() {
		threshold = DefaultMarginThreshold
	}

	inflows := map[time.Time]decimal.Decimal{}
	outflows := map[time.Time]decimal.Decimal{}
	for i := range titles {
		t := &titles[i]
		if t.IsCancelled() || !t.RemainingAmount().IsPositive() {
			continue
		}
		due := DateOnly(t.DueDate)
		if due.Before(from) || due.After(to) {
			continue
		}
		if t.Direction == DirectionReceivable {
			inflows[due] = inflows[due].Add(t.RemainingAmount())
		} else {
			outflows[due] = outflows[due].Add(t.RemainingAmount())
		}
	}

	projection := CashFlowProjection{Days: []CashFlowDay{}}
	balance := p.InitialBalance
	minBalance := balance
	var minDate *time.Time
	today := DateOnly(p.Today)

	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		in, out := inflows[d], outflows[d]
		alert := CashAlertOK
		if out.IsPositive() {
			available := balance.Add(in)
			switch {
			case available.LessThan(out):
				alert = CashAlertShortage
				projection.Summary.DaysShortage++
			case available.Sub(out).Div(out).LessThan(threshold):
				alert = CashAlertTight
				projection.Summary.DaysTight++
			}
		}
		balance = balance.Add(in).Sub(out)

		day := d
		if minDate == nil || balance.LessThan(minBalance) {
			minBalance = balance
			minDate = &day
		}
		projection.Days = append(projection.Days, CashFlowDay{
			Date:             d,
			Label:            d.Format("02/01"),
			Inflows:          in,
			Outflows:         out,
			ObligationsTotal: out,
			BalanceProjected: balance,
			Alert:            alert,
			IsToday:          d.Equal(today),
		})
	}

	projection.Summary.MinBalance = minBalance
	projection.Summary.MinBalanceDate = minDate
	return projection
}
