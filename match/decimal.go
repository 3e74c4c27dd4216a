package match

import "github.com/shopspring/decimal"

func parseDecimalArg(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
