package finance

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgingBucketKey identifies an aging bucket
type AgingBucketKey string

const (
	AgingCurrent AgingBucketKey = "current"
	Aging1To30   AgingBucketKey = "1_30"
	Aging31To60  AgingBucketKey = "31_60"
	Aging61To90  AgingBucketKey = "61_90"
	AgingOver90  AgingBucketKey = "over_90"
)

type agingBand struct {
	key   AgingBucketKey
	label string
	// inclusive bounds on days overdue; max < 0 means unbounded
	min, max int
}

var agingBands = []agingBand{
	{AgingCurrent, "A vencer", -1 << 31, 0},
	{Aging1To30, "1-30 dias", 1, 30},
	{Aging31To60, "31-60 dias", 31, 60},
	{Aging61To90, "61-90 dias", 61, 90},
	{AgingOver90, "> 90 dias", 91, -1},
}

// AgingBucketKeys lists the buckets in report order
func AgingBucketKeys() []AgingBucketKey {
	keys := make([]AgingBucketKey, len(agingBands))
	for i, b := range agingBands {
		keys[i] = b.key
	}
	return keys
}

// BucketFor returns the bucket of a title that is daysOverdue days past due
func BucketFor(daysOverdue int) AgingBucketKey {
	for _, b := range agingBands[1:] {
		if daysOverdue >= b.min && (b.max < 0 || daysOverdue <= b.max) {
			return b.key
		}
	}
	return AgingCurrent
}

// AgingItem is one open title inside a bucket
type AgingItem struct {
	ID               uuid.UUID       `json:"id"`
	CounterpartyName string          `json:"customer_name"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          time.Time       `json:"due_date"`
	DaysOverdue      int             `json:"days_overdue"`
}

// AgingBucket aggregates the titles of one band
type AgingBucket struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
	Items []AgingItem     `json:"items"`
}

// AgingReport is the output of ClassifyAging
type AgingReport struct {
	Buckets          map[AgingBucketKey]*AgingBucket `json:"buckets"`
	TotalOutstanding decimal.Decimal                 `json:"total_outstanding"`
	TotalOverdue     decimal.Decimal                 `json:"total_overdue"`
	TotalRecords     int                             `json:"total_records"`
}

// ClassifyAging partitions the open titles into aging buckets as of today.
// Paid, cancelled and zero-balance titles are left out; every other title
// lands in exactly one bucket.
func ClassifyAging(titles []FinancialTitle, today time.Time) AgingReport {
	report := AgingReport{
		Buckets:          make(map[AgingBucketKey]*AgingBucket, len(agingBands)),
		TotalOutstanding: decimal.Zero,
		TotalOverdue:     decimal.Zero,
	}
	for _, b := range agingBands {
		report.Buckets[b.key] = &AgingBucket{Label: b.label, Total: decimal.Zero, Items: []AgingItem{}}
	}

	sorted := make([]FinancialTitle, len(titles))
	copy(sorted, titles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DueDate.Before(sorted[j].DueDate)
	})

	for i := range sorted {
		t := &sorted[i]
		if t.IsCancelled() {
			continue
		}
		remaining := t.RemainingAmount()
		if !remaining.IsPositive() {
			continue
		}

		days := t.DaysOverdue(today)
		key := BucketFor(days)
		if days < 0 {
			days = 0
		}

		bucket := report.Buckets[key]
		bucket.Total = bucket.Total.Add(remaining)
		bucket.Count++
		bucket.Items = append(bucket.Items, AgingItem{
			ID:               t.ID,
			CounterpartyName: t.CounterpartyName,
			Description:      t.Description,
			Amount:           remaining,
			DueDate:          t.DueDate,
			DaysOverdue:      days,
		})

		report.TotalOutstanding = report.TotalOutstanding.Add(remaining)
		if key != AgingCurrent {
			report.TotalOverdue = report.TotalOverdue.Add(remaining)
		}
		report.TotalRecords++
	}
	return report
}
