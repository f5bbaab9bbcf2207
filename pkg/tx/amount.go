package tx

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/suffix-labs/dag-keystore/pkg/keyerr"
)

// Decimals is the number of fractional digits in a DAG amount.
const Decimals = 8

// ToUnits converts a decimal DAG amount such as "1.5" into 10^-8 units.
// Digits past the eighth decimal are dropped.
//
// Returns an INVALID_TRANSACTION error if the amount is not a number, is
// negative, or does not fit in 64 bits once scaled.
func ToUnits(amount string) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, keyerr.Wrap(keyerr.CodeInvalidTransaction, "amount is not a valid number", err)
	}
	if d.IsNegative() {
		return 0, keyerr.Newf(keyerr.CodeInvalidTransaction, "amount %s cannot be negative", amount)
	}

	units := d.Shift(Decimals).Truncate(0).BigInt()
	if !units.IsUint64() {
		return 0, keyerr.Newf(keyerr.CodeInvalidTransaction, "amount %s is too large", amount)
	}
	return units.Uint64(), nil
}

// FromUnits formats 10^-8 units as a decimal DAG amount with trailing zeros
// removed.
func FromUnits(units uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -Decimals).String()
}
