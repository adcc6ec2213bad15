package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCashFlow(t *testing.T) {
	in := newTestTitle(t, DirectionReceivable, "500.00", day(1))
	rent := newTestTitle(t, DirectionPayable, "1000.00", day(2))
	tight := newTestTitle(t, DirectionPayable, "90.00", day(3))
	outside := newTestTitle(t, DirectionPayable, "9999.00", day(30))

	projection := ProjectCashFlow([]FinancialTitle{*in, *rent, *tight, *outside}, ProjectionParams{
		From:           day(0),
		To:             day(3),
		InitialBalance: dec("600.00"),
		Today:          testNow,
	})

	require.Len(t, projection.Days, 4)

	d0, d1, d2, d3 := projection.Days[0], projection.Days[1], projection.Days[2], projection.Days[3]
	assert.True(t, d0.IsToday)
	assert.Equal(t, CashAlertOK, d0.Alert)
	assert.Equal(t, "600", d0.BalanceProjected.String())

	assert.Equal(t, "1100", d1.BalanceProjected.String())
	assert.Equal(t, CashAlertOK, d1.Alert)

	// 1100 available covers 1000 but the 10% margin is under 15%
	assert.Equal(t, CashAlertTight, d2.Alert)
	assert.Equal(t, "100", d2.BalanceProjected.String())

	// 100 available covers 90 with an 11% margin
	assert.Equal(t, CashAlertTight, d3.Alert)
	assert.Equal(t, "10", d3.BalanceProjected.String())

	assert.Equal(t, 2, projection.Summary.DaysTight)
	assert.Equal(t, 0, projection.Summary.DaysShortage)
	assert.Equal(t, "10", projection.Summary.MinBalance.String())
	require.NotNil(t, projection.Summary.MinBalanceDate)
	assert.True(t, projection.Summary.MinBalanceDate.Equal(day(3)))
}

func TestProjectCashFlow_Shortage(t *testing.T) {
	bill := newTestTitle(t, DirectionPayable, "300.00", day(0))

	projection := ProjectCashFlow([]FinancialTitle{*bill}, ProjectionParams{
		From:           day(0),
		To:             day(0),
		InitialBalance: dec("100.00"),
		Today:          testNow,
	})

	require.Len(t, projection.Days, 1)
	assert.Equal(t, CashAlertShortage, projection.Days[0].Alert)
	assert.Equal(t, "-200", projection.Days[0].BalanceProjected.String())
	assert.Equal(t, 1, projection.Summary.DaysShortage)
}
