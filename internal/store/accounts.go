package store

import (
	"context"
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/model"

	"github.com/shopspring/decimal"
)

func (s *Store) Account(ctx context.Context, accountID string) (model.Account, error) {
	var a model.Account
	err := s.pool.QueryRow(ctx,
		"select id, initial_balance, balance, equity, used_margin, available_margin, updated_at from accounts where id = $1",
		accountID,
	).Scan(&a.ID, &a.InitialBalance, &a.Balance, &a.Equity, &a.UsedMargin, &a.AvailableMargin, &a.UpdatedAt)
	return a, err
}

// AccountIDsWithOpenTrades is the working set of a margin monitor pass:
// only accounts carrying open risk are evaluated.
func (s *Store) AccountIDsWithOpenTrades(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "select distinct account_id from trades where status = 'open' order by account_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpdateAccountMargin persists the four derived margin fields in one
// statement so readers never observe a half-updated account.
func (s *Store) UpdateAccountMargin(ctx context.Context, accountID string, balance, equity, usedMargin, availableMargin decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		"update accounts set balance = $1, equity = $2, used_margin = $3, available_margin = $4, updated_at = $5 where id = $6",
		balance, equity, usedMargin, availableMargin, time.Now().UTC(), accountID,
	)
	return err
}
