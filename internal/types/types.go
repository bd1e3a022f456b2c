package types

type TradeDirection string

type TradeStatus string

type OrderKind string

type OrderStatus string

type MarginState string

type CloseReason string

type EventType string

const (
	DirectionLong  TradeDirection = "long"
	DirectionShort TradeDirection = "short"
)

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

const (
	OrderKindLimit OrderKind = "limit"
	OrderKindStop  OrderKind = "stop"
)

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

const (
	MarginStateNormal     MarginState = "normal"
	MarginStateMarginCall MarginState = "margin_call"
	MarginStateStopOut    MarginState = "stop_out"
)

const (
	CloseReasonManual     CloseReason = "manual"
	CloseReasonStopLoss   CloseReason = "stop_loss"
	CloseReasonTakeProfit CloseReason = "take_profit"
	CloseReasonStopOut    CloseReason = "stop_out"
)

const (
	EventMarginCall     EventType = "margin_call"
	EventStopOut        EventType = "stop_out"
	EventOrderFilled    EventType = "order_filled"
	EventOrderCancelled EventType = "order_cancelled"
	EventOrderExpired   EventType = "order_expired"
	EventTradeClosed    EventType = "trade_closed"
)
