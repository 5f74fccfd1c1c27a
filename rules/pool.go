package rules

import "github.com/shopspring/decimal"

// ComputePoolPrize is the prize of a pool with a uniform entry fee.
func ComputePoolPrize(entryFee decimal.Decimal, participantCount int) decimal.Decimal {
	return entryFee.Mul(decimal.NewFromInt(int64(participantCount)))
}
