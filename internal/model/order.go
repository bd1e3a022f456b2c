package model

import (
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"

	"github.com/shopspring/decimal"
)

type PendingOrder struct {
	ID           string               `json:"id"`
	AccountID    string               `json:"account_id"`
	Symbol       string               `json:"symbol"`
	Direction    types.TradeDirection `json:"direction"`
	Size         decimal.Decimal      `json:"size"`
	Leverage     decimal.Decimal      `json:"leverage"`
	Kind         types.OrderKind      `json:"kind"`
	TriggerPrice decimal.Decimal      `json:"trigger_price"`
	StopLoss     *decimal.Decimal     `json:"stop_loss"`
	TakeProfit   *decimal.Decimal     `json:"take_profit"`
	Status       types.OrderStatus    `json:"status"`
	ExpiresAt    *time.Time           `json:"expires_at"`
	CreatedAt    time.Time            `json:"created_at"`
	FilledAt     *time.Time           `json:"filled_at"`
}
