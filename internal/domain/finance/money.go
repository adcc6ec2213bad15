package finance

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the precision titles, payments and statement entries are
// stored in.
const MoneyPlaces int32 = 2

// SplitInstallments divides total into n parts truncated to cents. The last
// part takes the remainder so the parts always add back to total.
func SplitInstallments(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, errors.New("installment count must be positive")
	}
	total = total.Round(MoneyPlaces)
	share := total.Div(decimal.NewFromInt(int64(n))).Truncate(MoneyPlaces)
	parts := make([]decimal.Decimal, n)
	for i := range n - 1 {
		parts[i] = share
	}
	parts[n-1] = total.Sub(share.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts, nil
}
