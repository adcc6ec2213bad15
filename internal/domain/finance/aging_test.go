package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketFor(t *testing.T) {
	tests := []struct {
		days     int
		expected AgingBucketKey
	}{
		{-10, AgingCurrent},
		{0, AgingCurrent},
		{1, Aging1To30},
		{30, Aging1To30},
		{31, Aging31To60},
		{60, Aging31To60},
		{61, Aging61To90},
		{90, Aging61To90},
		{91, AgingOver90},
		{400, AgingOver90},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, BucketFor(tc.days), "days=%d", tc.days)
	}
}

func TestClassifyAging(t *testing.T) {
	current := newTestTitle(t, DirectionReceivable, "100.00", day(3))
	late5 := newTestTitle(t, DirectionReceivable, "200.00", day(-5))
	late45 := newTestTitle(t, DirectionReceivable, "300.00", day(-45))
	late120 := newTestTitle(t, DirectionReceivable, "400.00", day(-120))

	partial := newTestTitle(t, DirectionReceivable, "1000.00", day(-61))
	require.NoError(t, partial.ApplyPayment(dec("250.00"), testNow))

	paid := newTestTitle(t, DirectionReceivable, "50.00", day(-10))
	require.NoError(t, paid.ApplyPayment(dec("50.00"), testNow))

	cancelled := newTestTitle(t, DirectionReceivable, "70.00", day(-10))
	require.NoError(t, cancelled.Cancel("", testNow))

	titles := []FinancialTitle{*current, *late5, *late45, *late120, *partial, *paid, *cancelled}
	report := ClassifyAging(titles, testNow)

	assert.Equal(t, 5, report.TotalRecords)
	assert.Equal(t, "1750", report.TotalOutstanding.String())
	assert.Equal(t, "1650", report.TotalOverdue.String())

	assert.Equal(t, 1, report.Buckets[AgingCurrent].Count)
	assert.Equal(t, 1, report.Buckets[Aging1To30].Count)
	assert.Equal(t, 1, report.Buckets[Aging31To60].Count)
	assert.Equal(t, 1, report.Buckets[Aging61To90].Count)
	assert.Equal(t, 1, report.Buckets[AgingOver90].Count)

	partialItem := report.Buckets[Aging61To90].Items[0]
	assert.Equal(t, partial.ID, partialItem.ID)
	assert.Equal(t, "750", partialItem.Amount.String())
	assert.Equal(t, 61, partialItem.DaysOverdue)
	assert.Equal(t, 0, report.Buckets[AgingCurrent].Items[0].DaysOverdue)
	assert.Equal(t, "A vencer", report.Buckets[AgingCurrent].Label)
}

func TestClassifyAging_PartitionsOpenSet(t *testing.T) {
	var titles []FinancialTitle
	for offset := -200; offset <= 20; offset += 7 {
		titles = append(titles, *newTestTitle(t, DirectionPayable, "10.00", day(offset)))
	}

	report := ClassifyAging(titles, testNow)

	seen := map[string]int{}
	sum := dec("0")
	count := 0
	for _, key := range AgingBucketKeys() {
		b := report.Buckets[key]
		sum = sum.Add(b.Total)
		count += b.Count
		for _, item := range b.Items {
			seen[item.ID.String()]++
		}
	}

	assert.Equal(t, len(titles), count)
	assert.Len(t, seen, len(titles))
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
	assert.True(t, sum.Equal(report.TotalOutstanding))
}

func TestClassifyAging_PaidTitleLeavesReport(t *testing.T) {
	payable := newTestTitle(t, DirectionPayable, "500.00", day(-1))

	before := ClassifyAging([]FinancialTitle{*payable}, testNow)
	require.Equal(t, 1, before.Buckets[Aging1To30].Count)
	assert.GreaterOrEqual(t, before.Buckets[Aging1To30].Items[0].DaysOverdue, 1)

	require.NoError(t, payable.ApplyPayment(dec("500.00"), testNow))
	after := ClassifyAging([]FinancialTitle{*payable}, testNow)
	assert.Equal(t, 0, after.TotalRecords)
	assert.True(t, after.TotalOutstanding.IsZero())
}
