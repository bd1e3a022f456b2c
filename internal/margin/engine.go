// Package margin derives an account's balance, equity, used margin and
// available margin from its full trade history. The derivation is
// deterministic given store contents, so repeated recalculation with no
// intervening trade event is idempotent.
package margin

import (
	"context"
	"fmt"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/model"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/pricing"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Store interface {
	Account(ctx context.Context, accountID string) (model.Account, error)
	TradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error)
	UpdateAccountMargin(ctx context.Context, accountID string, balance, equity, usedMargin, availableMargin decimal.Decimal) error
}

// Snapshot is the persisted view of an account's margin fields. Stored
// equity equals balance: unrealized P&L is reported separately so closing a
// trade never double-counts it.
type Snapshot struct {
	Balance         decimal.Decimal `json:"balance"`
	Equity          decimal.Decimal `json:"equity"`
	UsedMargin      decimal.Decimal `json:"used_margin"`
	AvailableMargin decimal.Decimal `json:"available_margin"`
}

// TradeRisk pairs an open trade with its unrealized P&L at current prices.
type TradeRisk struct {
	Trade         model.Trade
	UnrealizedPnL decimal.Decimal
}

// Metrics is the live risk view: equity here includes floating P&L, and
// MarginLevel is equity/usedMargin*100 (zero means unconstrained, not
// violated — no open risk).
type Metrics struct {
	Snapshot
	FloatingPnL decimal.Decimal `json:"floating_pnl"`
	LiveEquity  decimal.Decimal `json:"live_equity"`
	MarginLevel decimal.Decimal `json:"margin_level"`
	Positions   []TradeRisk     `json:"-"`
}

type Engine struct {
	store  Store
	prices pricing.Source
	locks  *accountLocks
	log    *logrus.Entry
}

func NewEngine(store Store, prices pricing.Source, log *logrus.Entry) *Engine {
	return &Engine{store: store, prices: prices, locks: newAccountLocks(), log: log}
}

// Recalculate derives the four margin fields from the account's trades and
// persists them atomically. Serialized per account: two concurrent
// recalculations for the same account cannot overwrite each other with
// stale sums.
func (e *Engine) Recalculate(ctx context.Context, accountID string) (Snapshot, error) {
	mu := e.locks.forAccount(accountID)
	mu.Lock()
	defer mu.Unlock()

	acc, err := e.store.Account(ctx, accountID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load account %s: %w", accountID, err)
	}
	trades, err := e.store.TradesByAccount(ctx, accountID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load trades for %s: %w", accountID, err)
	}

	snap := derive(acc, trades)
	if err := e.store.UpdateAccountMargin(ctx, accountID, snap.Balance, snap.Equity, snap.UsedMargin, snap.AvailableMargin); err != nil {
		return Snapshot{}, fmt.Errorf("persist margin for %s: %w", accountID, err)
	}
	return snap, nil
}

func derive(acc model.Account, trades []model.Trade) Snapshot {
	var usedMargin, realizedPnL decimal.Decimal
	for _, t := range trades {
		switch t.Status {
		case types.TradeStatusOpen:
			usedMargin = usedMargin.Add(t.Margin)
		case types.TradeStatusClosed:
			if t.RealizedPnL != nil {
				realizedPnL = realizedPnL.Add(*t.RealizedPnL)
			}
		}
	}
	balance := acc.InitialBalance.Add(realizedPnL)
	available := balance.Sub(usedMargin)
	if available.LessThan(decimal.Zero) {
		available = decimal.Zero
	}
	return Snapshot{
		Balance:         balance,
		Equity:          balance,
		UsedMargin:      usedMargin,
		AvailableMargin: available,
	}
}

// LiveMetrics marks every open trade at the current quote (entry price when
// the quote is unavailable, yielding zero P&L) and reports the risk view
// the margin monitor classifies on. Read-only; nothing is persisted.
func (e *Engine) LiveMetrics(ctx context.Context, accountID string) (Metrics, error) {
	acc, err := e.store.Account(ctx, accountID)
	if err != nil {
		return Metrics{}, fmt.Errorf("load account %s: %w", accountID, err)
	}
	trades, err := e.store.TradesByAccount(ctx, accountID)
	if err != nil {
		return Metrics{}, fmt.Errorf("load trades for %s: %w", accountID, err)
	}

	m := Metrics{Snapshot: derive(acc, trades)}
	for _, t := range trades {
		if t.Status != types.TradeStatusOpen {
			continue
		}
		pnl := pricing.PnL(t.Direction, t.Size, t.Leverage, t.EntryPrice, e.MarkPrice(t))
		m.FloatingPnL = m.FloatingPnL.Add(pnl)
		m.Positions = append(m.Positions, TradeRisk{Trade: t, UnrealizedPnL: pnl})
	}
	m.LiveEquity = m.Balance.Add(m.FloatingPnL)
	if m.UsedMargin.GreaterThan(decimal.Zero) {
		m.MarginLevel = m.LiveEquity.Div(m.UsedMargin).Mul(decimal.NewFromInt(100))
	}
	return m, nil
}

// MarkPrice is the side-appropriate close price for the trade, falling back
// to the entry price when no fresh quote exists.
func (e *Engine) MarkPrice(t model.Trade) decimal.Decimal {
	if mark, ok := e.QuotedMarkPrice(t); ok {
		return mark
	}
	return t.EntryPrice
}

// QuotedMarkPrice is MarkPrice without the entry-price fallback: ok is false
// when the symbol has no fresh quote. Forced closes must use this form so a
// quote outage never settles a trade at its entry price.
func (e *Engine) QuotedMarkPrice(t model.Trade) (decimal.Decimal, bool) {
	q, ok := e.prices.Quote(t.Symbol)
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(q.MarkFor(t.Direction)), true
}
