package model

import (
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"

	"github.com/shopspring/decimal"
)

type Trade struct {
	ID          string               `json:"id"`
	AccountID   string               `json:"account_id"`
	Symbol      string               `json:"symbol"`
	Direction   types.TradeDirection `json:"direction"`
	Size        decimal.Decimal      `json:"size"`
	Leverage    decimal.Decimal      `json:"leverage"`
	EntryPrice  decimal.Decimal      `json:"entry_price"`
	Margin      decimal.Decimal      `json:"margin"`
	Status      types.TradeStatus    `json:"status"`
	StopLoss    *decimal.Decimal     `json:"stop_loss"`
	TakeProfit  *decimal.Decimal     `json:"take_profit"`
	ClosePrice  *decimal.Decimal     `json:"close_price"`
	RealizedPnL *decimal.Decimal     `json:"realized_pnl"`
	CloseReason types.CloseReason    `json:"close_reason,omitempty"`
	OpenedAt    time.Time            `json:"opened_at"`
	ClosedAt    *time.Time           `json:"closed_at"`
}
