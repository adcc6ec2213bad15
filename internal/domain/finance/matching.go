package finance

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchTolerance bounds the amount difference accepted by automatic matching
var MatchTolerance = decimal.RequireFromString("0.05")

// AutoMatchWindowDays bounds the due date distance accepted by automatic matching
const AutoMatchWindowDays = 5

// FindAutoMatch picks the open title whose remaining balance equals the entry
// amount within MatchTolerance and whose due date lies within
// AutoMatchWindowDays of the entry date. The earliest due date wins.
// Candidates must already be of the entry's target direction.
func FindAutoMatch(e *BankStatementEntry, candidates []FinancialTitle) *FinancialTitle {
	amount := e.Amount.Abs()
	var best *FinancialTitle
	for i := range candidates {
		t := &candidates[i]
		if t.Direction != e.TargetDirection() || t.IsCancelled() || !t.RemainingAmount().IsPositive() {
			continue
		}
		if t.RemainingAmount().Sub(amount).Abs().GreaterThan(MatchTolerance) {
			continue
		}
		if abs(DaysBetween(e.Date, t.DueDate)) > AutoMatchWindowDays {
			continue
		}
		if best == nil || t.DueDate.Before(best.DueDate) {
			best = t
		}
	}
	return best
}

// FindCounterpartyMatch resolves the target of a match rule that names a
// counterparty instead of a title: the open title of that counterparty whose
// remaining balance equals the entry amount, closest due date first.
func FindCounterpartyMatch(e *BankStatementEntry, direction Direction, counterpartyID uuid.UUID, candidates []FinancialTitle) *FinancialTitle {
	amount := e.Amount.Abs()
	var best *FinancialTitle
	bestDistance := 0
	for i := range candidates {
		t := &candidates[i]
		if t.Direction != direction || t.CounterpartyID == nil || *t.CounterpartyID != counterpartyID {
			continue
		}
		if t.IsCancelled() || !t.RemainingAmount().IsPositive() {
			continue
		}
		if t.RemainingAmount().Sub(amount).Abs().GreaterThan(MatchTolerance) {
			continue
		}
		distance := abs(DaysBetween(e.Date, t.DueDate))
		if best == nil || distance < bestDistance {
			best, bestDistance = t, distance
		}
	}
	return best
}

// Suggestion is a candidate title for manual reconciliation with its score
type Suggestion struct {
	TitleID          uuid.UUID       `json:"id"`
	Direction        Direction       `json:"type"`
	CounterpartyName string          `json:"customer_name"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          time.Time       `json:"due_date"`
	Score            float64         `json:"score"`
}

const (
	scoreValueWeight       = 50.0
	scoreDateWeight        = 30.0
	scoreDatePenaltyPerDay = 3.0
	scoreTextWeight        = 20.0
)

// ScoreSuggestions ranks candidates for an entry by amount closeness, due
// date proximity and description similarity, returning the best limit.
func ScoreSuggestions(e *BankStatementEntry, candidates []FinancialTitle, limit int) []Suggestion {
	entryAmount, _ := e.Amount.Abs().Float64()
	out := make([]Suggestion, 0, len(candidates))
	for i := range candidates {
		t := &candidates[i]
		if t.IsCancelled() || !t.RemainingAmount().IsPositive() {
			continue
		}
		remaining, _ := t.RemainingAmount().Float64()

		score := 0.0
		if entryAmount > 0 {
			diffPct := absf(entryAmount-remaining) / entryAmount * 100
			score += maxf(0, scoreValueWeight-diffPct)
		}
		days := float64(abs(DaysBetween(e.Date, t.DueDate)))
		score += maxf(0, scoreDateWeight-days*scoreDatePenaltyPerDay)
		score += SimilarityPercent(FoldText(e.Description), FoldText(t.Description+" "+t.CounterpartyName)) / 100 * scoreTextWeight

		out = append(out, Suggestion{
			TitleID:          t.ID,
			Direction:        t.Direction,
			CounterpartyName: t.CounterpartyName,
			Description:      t.Description,
			Amount:           t.RemainingAmount(),
			DueDate:          t.DueDate,
			Score:            float64(int(score*10+0.5)) / 10,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SimilarityPercent measures how much two strings share, as the percentage of
// characters covered by recursively taking the longest common substring.
func SimilarityPercent(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 0
	}
	common := commonChars(ra, rb)
	return float64(common*2) * 100 / float64(len(ra)+len(rb))
}

func commonChars(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	posA, posB, longest := 0, 0, 0
	for i := range a {
		for j := range b {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > longest {
				posA, posB, longest = i, j, k
			}
		}
	}
	if longest == 0 {
		return 0
	}
	return longest + commonChars(a[:posA], b[:posB]) + commonChars(a[posA+longest:], b[posB+longest:])
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
