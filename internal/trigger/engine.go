// Package trigger implements the order trigger engine: the periodic pass
// that fills resting limit/stop entries and executes stop-loss/take-profit
// exits when price crosses their trigger.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/exec"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/margin"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/model"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/notify"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/pricing"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/store"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Store interface {
	PendingOrders(ctx context.Context) ([]model.PendingOrder, error)
	ExpirePendingOrders(ctx context.Context, now time.Time) ([]model.PendingOrder, error)
	CancelOrder(ctx context.Context, orderID string) error
	FillOrder(ctx context.Context, order model.PendingOrder, fillPrice, marginReserved decimal.Decimal) (model.Trade, error)
	OpenTradesWithExits(ctx context.Context) ([]model.Trade, error)
}

type Engine struct {
	store   Store
	prices  pricing.Source
	catalog *pricing.Catalog
	margin  *margin.Engine
	closer  *exec.Closer
	bus     *notify.Bus
	log     *logrus.Entry
	now     func() time.Time
}

func NewEngine(st Store, prices pricing.Source, catalog *pricing.Catalog, marginEngine *margin.Engine, closer *exec.Closer, bus *notify.Bus, log *logrus.Entry) *Engine {
	return &Engine{
		store:   st,
		prices:  prices,
		catalog: catalog,
		margin:  marginEngine,
		closer:  closer,
		bus:     bus,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ShouldFill reports whether a pending entry order triggers at the current
// price. Comparisons are inclusive: a price exactly on the trigger fills.
func ShouldFill(kind types.OrderKind, direction types.TradeDirection, current, trigger decimal.Decimal) bool {
	switch kind {
	case types.OrderKindLimit:
		if direction == types.DirectionLong {
			return current.LessThanOrEqual(trigger)
		}
		return current.GreaterThanOrEqual(trigger)
	case types.OrderKindStop:
		if direction == types.DirectionLong {
			return current.GreaterThanOrEqual(trigger)
		}
		return current.LessThanOrEqual(trigger)
	}
	return false
}

// ExitReason reports whether an open trade's stop-loss or take-profit
// triggers at the mark price. Stop-loss is checked first: when a price gap
// would trigger both, the conservative side wins and the trade closes once.
func ExitReason(t model.Trade, mark decimal.Decimal) (types.CloseReason, bool) {
	if mark.LessThanOrEqual(decimal.Zero) {
		return "", false
	}
	if t.StopLoss != nil && t.StopLoss.GreaterThan(decimal.Zero) {
		hit := mark.LessThanOrEqual(*t.StopLoss)
		if t.Direction == types.DirectionShort {
			hit = mark.GreaterThanOrEqual(*t.StopLoss)
		}
		if hit {
			return types.CloseReasonStopLoss, true
		}
	}
	if t.TakeProfit != nil && t.TakeProfit.GreaterThan(decimal.Zero) {
		hit := mark.GreaterThanOrEqual(*t.TakeProfit)
		if t.Direction == types.DirectionShort {
			hit = mark.LessThanOrEqual(*t.TakeProfit)
		}
		if hit {
			return types.CloseReasonTakeProfit, true
		}
	}
	return "", false
}

// RunPass sweeps expiries, then pending entries, then exits. Every entity
// is evaluated independently: one failed order or a missing quote for one
// symbol never blocks the rest of the pass.
func (e *Engine) RunPass(ctx context.Context) error {
	e.sweepExpired(ctx)

	orders, err := e.store.PendingOrders(ctx)
	if err != nil {
		return fmt.Errorf("list pending orders: %w", err)
	}
	for _, o := range orders {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.evaluateOrder(ctx, o); err != nil {
			e.log.WithFields(logrus.Fields{"order_id": o.ID, "symbol": o.Symbol}).WithError(err).Error("order evaluation failed")
		}
	}

	trades, err := e.store.OpenTradesWithExits(ctx)
	if err != nil {
		return fmt.Errorf("list open trades with exits: %w", err)
	}
	for _, t := range trades {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.evaluateExit(ctx, t); err != nil {
			e.log.WithFields(logrus.Fields{"trade_id": t.ID, "symbol": t.Symbol}).WithError(err).Error("exit evaluation failed")
		}
	}
	return nil
}

func (e *Engine) sweepExpired(ctx context.Context) {
	expired, err := e.store.ExpirePendingOrders(ctx, e.now())
	if err != nil {
		e.log.WithError(err).Error("expiry sweep failed")
		return
	}
	for _, o := range expired {
		e.bus.Publish(notify.Event{
			Type:      types.EventOrderExpired,
			AccountID: o.AccountID,
			OrderClosed: &notify.OrderClosedPayload{
				OrderID: o.ID,
				Symbol:  o.Symbol,
				Reason:  "expired",
			},
		})
		e.log.WithFields(logrus.Fields{"order_id": o.ID, "symbol": o.Symbol}).Info("pending order expired")
	}
}

func (e *Engine) evaluateOrder(ctx context.Context, o model.PendingOrder) error {
	quote, ok := e.prices.Quote(o.Symbol)
	if !ok {
		// No fresh quote: no triggering decision for this symbol this pass.
		return nil
	}
	current := decimal.NewFromFloat(quote.Ask)
	if o.Direction == types.DirectionShort {
		current = decimal.NewFromFloat(quote.Bid)
	}
	// Quotes arrive as floats; quantize to the instrument's precision
	// before comparing and filling.
	current = current.Round(int32(e.catalog.Precision(o.Symbol)))
	if !ShouldFill(o.Kind, o.Direction, current, o.TriggerPrice) {
		return nil
	}

	// Margin sufficiency is re-checked at fill time: available margin may
	// have moved since the order was placed.
	required := e.catalog.RequiredMargin(o.Symbol, o.Size, current, o.Leverage)
	snap, err := e.margin.Recalculate(ctx, o.AccountID)
	if err != nil {
		return fmt.Errorf("recalculate before fill: %w", err)
	}
	if required.GreaterThan(snap.AvailableMargin) {
		return e.cancelForMargin(ctx, o, required, snap.AvailableMargin)
	}

	trade, err := e.store.FillOrder(ctx, o, current, required)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotPending) {
			return nil
		}
		return fmt.Errorf("fill order: %w", err)
	}
	if _, err := e.margin.Recalculate(ctx, o.AccountID); err != nil {
		e.log.WithField("account_id", o.AccountID).WithError(err).Error("margin recalculation failed after fill")
	}
	e.bus.Publish(notify.Event{
		Type:      types.EventOrderFilled,
		AccountID: o.AccountID,
		OrderFilled: &notify.OrderFilledPayload{
			OrderID:   o.ID,
			TradeID:   trade.ID,
			Symbol:    o.Symbol,
			FillPrice: current,
		},
	})
	e.log.WithFields(logrus.Fields{
		"order_id": o.ID,
		"trade_id": trade.ID,
		"symbol":   o.Symbol,
		"price":    current.String(),
	}).Info("pending order filled")
	return nil
}

func (e *Engine) cancelForMargin(ctx context.Context, o model.PendingOrder, required, available decimal.Decimal) error {
	err := e.store.CancelOrder(ctx, o.ID)
	if errors.Is(err, store.ErrOrderNotPending) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	e.bus.Publish(notify.Event{
		Type:      types.EventOrderCancelled,
		AccountID: o.AccountID,
		OrderClosed: &notify.OrderClosedPayload{
			OrderID: o.ID,
			Symbol:  o.Symbol,
			Reason:  "insufficient_margin",
		},
	})
	e.log.WithFields(logrus.Fields{
		"order_id":  o.ID,
		"required":  required.String(),
		"available": available.String(),
	}).Info("pending order cancelled, insufficient margin at fill time")
	return nil
}

func (e *Engine) evaluateExit(ctx context.Context, t model.Trade) error {
	quote, ok := e.prices.Quote(t.Symbol)
	if !ok {
		return nil
	}
	mark := decimal.NewFromFloat(quote.MarkFor(t.Direction))
	reason, hit := ExitReason(t, mark)
	if !hit {
		return nil
	}
	_, err := e.closer.Close(ctx, t, mark, reason)
	return err
}
