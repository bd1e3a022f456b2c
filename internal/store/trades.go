package store

import (
	"context"
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/model"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const tradeColumns = "id, account_id, symbol, direction, size, leverage, entry_price, margin, status, stop_loss, take_profit, close_price, realized_pnl, close_reason, opened_at, closed_at"

func scanTrade(row pgx.Row) (model.Trade, error) {
	var t model.Trade
	var direction, status string
	var closeReason *string
	err := row.Scan(
		&t.ID, &t.AccountID, &t.Symbol, &direction, &t.Size, &t.Leverage,
		&t.EntryPrice, &t.Margin, &status, &t.StopLoss, &t.TakeProfit,
		&t.ClosePrice, &t.RealizedPnL, &closeReason, &t.OpenedAt, &t.ClosedAt,
	)
	if err != nil {
		return t, err
	}
	t.Direction = types.TradeDirection(direction)
	t.Status = types.TradeStatus(status)
	if closeReason != nil {
		t.CloseReason = types.CloseReason(*closeReason)
	}
	return t, nil
}

func (s *Store) queryTrades(ctx context.Context, query string, args ...any) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) OpenTradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error) {
	return s.queryTrades(ctx, "select "+tradeColumns+" from trades where account_id = $1 and status = 'open' order by opened_at asc, id asc", accountID)
}

func (s *Store) TradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error) {
	return s.queryTrades(ctx, "select "+tradeColumns+" from trades where account_id = $1 order by opened_at asc, id asc", accountID)
}

// OpenTradesWithExits lists open trades that carry a stop-loss or
// take-profit, the working set of the exit-trigger sweep.
func (s *Store) OpenTradesWithExits(ctx context.Context) ([]model.Trade, error) {
	return s.queryTrades(ctx, "select "+tradeColumns+" from trades where status = 'open' and (stop_loss is not null or take_profit is not null) order by opened_at asc, id asc")
}

// CloseTrade transitions a trade open→closed, persisting close price and
// realized P&L exactly once. The status predicate is the compare-and-set
// that keeps the margin monitor and the trigger engine from double-closing
// the same trade: the loser of the race gets ErrTradeNotOpen.
func (s *Store) CloseTrade(ctx context.Context, tradeID string, closePrice, realizedPnL decimal.Decimal, reason types.CloseReason) error {
	tag, err := s.pool.Exec(ctx,
		"update trades set status = 'closed', close_price = $1, realized_pnl = $2, close_reason = $3, closed_at = $4 where id = $5 and status = 'open'",
		closePrice, realizedPnL, string(reason), time.Now().UTC(), tradeID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTradeNotOpen
	}
	return nil
}
