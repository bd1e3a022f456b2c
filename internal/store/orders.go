package store

import (
	"context"
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/model"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderColumns = "id, account_id, symbol, direction, size, leverage, kind, trigger_price, stop_loss, take_profit, status, expires_at, created_at, filled_at"

func scanOrder(row pgx.Row) (model.PendingOrder, error) {
	var o model.PendingOrder
	var direction, kind, status string
	err := row.Scan(
		&o.ID, &o.AccountID, &o.Symbol, &direction, &o.Size, &o.Leverage,
		&kind, &o.TriggerPrice, &o.StopLoss, &o.TakeProfit, &status,
		&o.ExpiresAt, &o.CreatedAt, &o.FilledAt,
	)
	if err != nil {
		return o, err
	}
	o.Direction = types.TradeDirection(direction)
	o.Kind = types.OrderKind(kind)
	o.Status = types.OrderStatus(status)
	return o, nil
}

func (s *Store) PendingOrders(ctx context.Context) ([]model.PendingOrder, error) {
	rows, err := s.pool.Query(ctx, "select "+orderColumns+" from pending_orders where status = 'pending' order by created_at asc, id asc")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PendingOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ExpirePendingOrders sweeps orders past their expiry into the expired
// terminal state and returns them so the caller can emit events. Runs
// independently of price triggers.
func (s *Store) ExpirePendingOrders(ctx context.Context, now time.Time) ([]model.PendingOrder, error) {
	rows, err := s.pool.Query(ctx,
		"update pending_orders set status = 'expired' where status = 'pending' and expires_at is not null and expires_at <= $1 returning "+orderColumns,
		now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PendingOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CancelOrder transitions pending→cancelled with the same compare-and-set
// discipline as trade closes.
func (s *Store) CancelOrder(ctx context.Context, orderID string) error {
	tag, err := s.pool.Exec(ctx, "update pending_orders set status = 'cancelled' where id = $1 and status = 'pending'", orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotPending
	}
	return nil
}

// FillOrder marks the order filled and creates the resulting open trade in
// one transaction. The order's stop-loss/take-profit carry over; the trade
// opens at the triggering price with the margin computed at fill time.
func (s *Store) FillOrder(ctx context.Context, order model.PendingOrder, fillPrice, margin decimal.Decimal) (model.Trade, error) {
	now := time.Now().UTC()
	trade := model.Trade{
		AccountID:  order.AccountID,
		Symbol:     order.Symbol,
		Direction:  order.Direction,
		Size:       order.Size,
		Leverage:   order.Leverage,
		EntryPrice: fillPrice,
		Margin:     margin,
		Status:     types.TradeStatusOpen,
		StopLoss:   order.StopLoss,
		TakeProfit: order.TakeProfit,
		OpenedAt:   now,
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Trade{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "update pending_orders set status = 'filled', filled_at = $1 where id = $2 and status = 'pending'", now, order.ID)
	if err != nil {
		return model.Trade{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Trade{}, ErrOrderNotPending
	}

	err = tx.QueryRow(ctx,
		"insert into trades (account_id, symbol, direction, size, leverage, entry_price, margin, status, stop_loss, take_profit, opened_at) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) returning id",
		trade.AccountID, trade.Symbol, string(trade.Direction), trade.Size, trade.Leverage,
		trade.EntryPrice, trade.Margin, string(trade.Status), trade.StopLoss, trade.TakeProfit, trade.OpenedAt,
	).Scan(&trade.ID)
	if err != nil {
		return model.Trade{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Trade{}, err
	}
	return trade, nil
}
