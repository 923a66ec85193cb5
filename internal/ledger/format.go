package ledger

import "math/big"

// FormatAmount renders a raw token amount with the mint's decimals.
func FormatAmount(amount uint64, decimals uint8) string {
	value := new(big.Int).SetUint64(amount)
	if decimals == 0 {
		return value.String()
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(value, denom)
	return rat.FloatString(int(decimals))
}
