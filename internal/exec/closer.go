// Package exec holds the closure path shared by the margin monitor and the
// order trigger engine.
package exec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/margin"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/model"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/notify"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/pricing"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/store"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/util"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	closeAttempts  = 3
	closeBaseDelay = 50 * time.Millisecond
)

type Store interface {
	CloseTrade(ctx context.Context, tradeID string, closePrice, realizedPnL decimal.Decimal, reason types.CloseReason) error
}

type Closer struct {
	store  Store
	margin *margin.Engine
	bus    *notify.Bus
	log    *logrus.Entry
}

func NewCloser(st Store, marginEngine *margin.Engine, bus *notify.Bus, log *logrus.Entry) *Closer {
	return &Closer{store: st, margin: marginEngine, bus: bus, log: log}
}

// Close settles an open trade at closePrice: computes realized P&L, flips
// status open→closed exactly once, recalculates the account's margins, and
// emits a trade_closed event. Losing the close race to another engine is a
// no-op, not an error; the bool reports whether this call performed the
// close.
func (c *Closer) Close(ctx context.Context, t model.Trade, closePrice decimal.Decimal, reason types.CloseReason) (bool, error) {
	pnl := pricing.PnL(t.Direction, t.Size, t.Leverage, t.EntryPrice, closePrice)

	var lostRace bool
	err := util.Retry(ctx, closeAttempts, closeBaseDelay, func() error {
		err := c.store.CloseTrade(ctx, t.ID, closePrice, pnl, reason)
		if errors.Is(err, store.ErrTradeNotOpen) {
			lostRace = true
			return nil
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("close trade %s: %w", t.ID, err)
	}
	if lostRace {
		c.log.WithFields(logrus.Fields{"trade_id": t.ID, "reason": reason}).Debug("trade already closed, skipping")
		return false, nil
	}

	// Recalculation after a close may not be silently dropped: a failure
	// leaves the account's stored margins stale until the next pass.
	if err := util.Retry(ctx, closeAttempts, closeBaseDelay, func() error {
		_, err := c.margin.Recalculate(ctx, t.AccountID)
		return err
	}); err != nil {
		c.log.WithFields(logrus.Fields{"account_id": t.AccountID, "trade_id": t.ID}).WithError(err).Error("margin recalculation failed after close")
		return true, fmt.Errorf("recalculate after close of %s: %w", t.ID, err)
	}

	c.bus.Publish(notify.Event{
		Type:      types.EventTradeClosed,
		AccountID: t.AccountID,
		TradeClosed: &notify.TradeClosedPayload{
			TradeID:     t.ID,
			Symbol:      t.Symbol,
			ClosePrice:  closePrice,
			RealizedPnL: pnl,
			Reason:      reason,
		},
	})
	c.log.WithFields(logrus.Fields{
		"trade_id":   t.ID,
		"account_id": t.AccountID,
		"symbol":     t.Symbol,
		"pnl":        pnl.String(),
		"reason":     reason,
	}).Info("trade closed")
	return true, nil
}
