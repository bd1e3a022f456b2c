// Package risk implements the margin monitor: the periodic pass that
// classifies every account with open positions and force-liquidates on
// stop-out.
package risk

import (
	"context"
	"fmt"
	"sort"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/exec"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/margin"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/notify"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/store"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Store interface {
	AccountIDsWithOpenTrades(ctx context.Context) ([]string, error)
	GetRiskConfig(ctx context.Context) (store.RiskConfig, error)
}

type Monitor struct {
	store       Store
	margin      *margin.Engine
	closer      *exec.Closer
	bus         *notify.Bus
	log         *logrus.Entry
	concurrency int
}

func NewMonitor(st Store, marginEngine *margin.Engine, closer *exec.Closer, bus *notify.Bus, concurrency int, log *logrus.Entry) *Monitor {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Monitor{store: st, margin: marginEngine, closer: closer, bus: bus, concurrency: concurrency, log: log}
}

// Classify maps live metrics onto the margin state machine. Zero used
// margin means no open risk and is always normal; equity at or below zero
// stops the account out regardless of level.
func Classify(m margin.Metrics, cfg store.RiskConfig) types.MarginState {
	if !m.UsedMargin.GreaterThan(decimal.Zero) {
		return types.MarginStateNormal
	}
	if m.LiveEquity.LessThanOrEqual(decimal.Zero) || m.MarginLevel.LessThanOrEqual(cfg.StopOutLevelPercent) {
		return types.MarginStateStopOut
	}
	if m.MarginLevel.LessThanOrEqual(cfg.MarginCallLevelPercent) {
		return types.MarginStateMarginCall
	}
	return types.MarginStateNormal
}

// RunPass evaluates every account with open trades. Accounts are
// independent; a failure on one is logged and never blocks the rest.
func (m *Monitor) RunPass(ctx context.Context) error {
	cfg, err := m.store.GetRiskConfig(ctx)
	if err != nil {
		m.log.WithError(err).Warn("risk config load failed, using defaults")
		cfg = store.DefaultRiskConfig()
	}

	accountIDs, err := m.store.AccountIDsWithOpenTrades(ctx)
	if err != nil {
		return fmt.Errorf("list accounts with open trades: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, accountID := range accountIDs {
		accountID := accountID
		g.Go(func() error {
			if err := m.evaluateAccount(ctx, accountID, cfg); err != nil {
				m.log.WithField("account_id", accountID).WithError(err).Error("margin evaluation failed")
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *Monitor) evaluateAccount(ctx context.Context, accountID string, cfg store.RiskConfig) error {
	metrics, err := m.margin.LiveMetrics(ctx, accountID)
	if err != nil {
		return err
	}

	switch Classify(metrics, cfg) {
	case types.MarginStateMarginCall:
		m.bus.Publish(notify.Event{
			Type:      types.EventMarginCall,
			AccountID: accountID,
			MarginCall: &notify.MarginCallPayload{
				MarginLevel: metrics.MarginLevel,
				Equity:      metrics.LiveEquity,
				UsedMargin:  metrics.UsedMargin,
			},
		})
		m.log.WithFields(logrus.Fields{
			"account_id":   accountID,
			"margin_level": metrics.MarginLevel.String(),
		}).Warn("margin call")
	case types.MarginStateStopOut:
		m.liquidate(ctx, accountID, metrics, cfg)
	}
	return nil
}

// liquidate closes open positions worst loss first: each closure removes
// the most risk and restores margin level fastest, minimizing forced
// closures. Closing stops once the margin level recovers above the
// margin-call threshold or no margin remains in use.
func (m *Monitor) liquidate(ctx context.Context, accountID string, metrics margin.Metrics, cfg store.RiskConfig) {
	positions := append([]margin.TradeRisk(nil), metrics.Positions...)
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].UnrealizedPnL.LessThan(positions[j].UnrealizedPnL)
	})

	log := m.log.WithFields(logrus.Fields{
		"account_id":   accountID,
		"margin_level": metrics.MarginLevel.String(),
		"equity":       metrics.LiveEquity.String(),
	})
	log.Warn("stop out triggered, liquidating")

	closed := 0
	for _, p := range positions {
		mark, quoted := m.margin.QuotedMarkPrice(p.Trade)
		if !quoted {
			// No quote, no decision: the account stays in violation and
			// the next pass retries once the feed recovers.
			log.WithField("trade_id", p.Trade.ID).Warn("no quote for symbol, deferring forced close")
			continue
		}
		ok, err := m.closer.Close(ctx, p.Trade, mark, types.CloseReasonStopOut)
		if !ok {
			if err != nil {
				log.WithField("trade_id", p.Trade.ID).WithError(err).Error("forced close failed")
				continue
			}
			// Lost the race to a stop-loss/take-profit close; margin was
			// released by the winner, keep going.
			continue
		}
		if err != nil {
			// The close itself landed; only the follow-up recalculation
			// failed, and the next pass repairs that.
			log.WithField("trade_id", p.Trade.ID).WithError(err).Error("margin recalculation failed after forced close")
		}
		closed++

		refreshed, err := m.margin.LiveMetrics(ctx, accountID)
		if err != nil {
			log.WithError(err).Error("metrics refresh failed mid-liquidation")
			continue
		}
		if !refreshed.UsedMargin.GreaterThan(decimal.Zero) || refreshed.MarginLevel.GreaterThan(cfg.MarginCallLevelPercent) {
			break
		}
	}

	m.bus.Publish(notify.Event{
		Type:      types.EventStopOut,
		AccountID: accountID,
		StopOut: &notify.StopOutPayload{
			MarginLevel:  metrics.MarginLevel,
			Equity:       metrics.LiveEquity,
			UsedMargin:   metrics.UsedMargin,
			ClosedTrades: closed,
		},
	})
	log.WithField("closed_trades", closed).Warn("stop out completed")
}
