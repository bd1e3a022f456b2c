package notify

import (
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"

	"github.com/shopspring/decimal"
)

// Event is the closed set of state changes the reconciliation core can emit.
// Exactly one payload field is set, matching Type.
type Event struct {
	ID        string          `json:"id"`
	Type      types.EventType `json:"type"`
	AccountID string          `json:"account_id"`
	At        time.Time       `json:"at"`

	MarginCall  *MarginCallPayload  `json:"margin_call,omitempty"`
	StopOut     *StopOutPayload     `json:"stop_out,omitempty"`
	OrderFilled *OrderFilledPayload `json:"order_filled,omitempty"`
	OrderClosed *OrderClosedPayload `json:"order_closed,omitempty"`
	TradeClosed *TradeClosedPayload `json:"trade_closed,omitempty"`
}

type MarginCallPayload struct {
	MarginLevel decimal.Decimal `json:"margin_level"`
	Equity      decimal.Decimal `json:"equity"`
	UsedMargin  decimal.Decimal `json:"used_margin"`
}

type StopOutPayload struct {
	MarginLevel  decimal.Decimal `json:"margin_level"`
	Equity       decimal.Decimal `json:"equity"`
	UsedMargin   decimal.Decimal `json:"used_margin"`
	ClosedTrades int             `json:"closed_trades"`
}

type OrderFilledPayload struct {
	OrderID   string          `json:"order_id"`
	TradeID   string          `json:"trade_id"`
	Symbol    string          `json:"symbol"`
	FillPrice decimal.Decimal `json:"fill_price"`
}

// OrderClosedPayload covers both cancellation and expiry of a pending order.
type OrderClosedPayload struct {
	OrderID string `json:"order_id"`
	Symbol  string `json:"symbol"`
	Reason  string `json:"reason"`
}

type TradeClosedPayload struct {
	TradeID     string            `json:"trade_id"`
	Symbol      string            `json:"symbol"`
	ClosePrice  decimal.Decimal   `json:"close_price"`
	RealizedPnL decimal.Decimal   `json:"realized_pnl"`
	Reason      types.CloseReason `json:"reason"`
}
