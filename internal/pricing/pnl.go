package pricing

import (
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"

	"github.com/shopspring/decimal"
)

// PnL returns the signed profit/loss of a leveraged exposure marked at
// currentPrice. Leverage at or below zero is treated as 1. A non-positive
// current price (no quote available) yields zero rather than an error;
// callers fall back to the entry price in that case.
func PnL(direction types.TradeDirection, size, leverage, entryPrice, currentPrice decimal.Decimal) decimal.Decimal {
	if size.LessThanOrEqual(decimal.Zero) || entryPrice.LessThanOrEqual(decimal.Zero) || currentPrice.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if leverage.LessThanOrEqual(decimal.Zero) {
		leverage = decimal.NewFromInt(1)
	}
	diff := currentPrice.Sub(entryPrice)
	if direction == types.DirectionShort {
		diff = entryPrice.Sub(currentPrice)
	}
	return size.Mul(leverage).Mul(diff)
}
