package database

import (
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// amountScale is the number of decimal places carried by INTEGER amount columns.
const amountScale = models.MaxCurrencyPrecision

// toUnits converts a decimal amount to the integer units stored in the database.
// An amount finer than amountScale or beyond int64 range is rejected.
func toUnits(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(amountScale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d.String(), amountScale)
	}
	bi := shifted.BigInt()
	if !bi.IsInt64() {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return bi.Int64(), nil
}

func fromUnits(units int64) decimal.Decimal {
	return decimal.New(units, -amountScale)
}

func toStamp(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromStamp(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
