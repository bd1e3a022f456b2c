package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTradeNotOpen is returned by CloseTrade when the compare-and-set on
// status finds the trade already closed. Callers treat a lost race as a
// no-op.
var ErrTradeNotOpen = errors.New("trade is not open")

// ErrOrderNotPending is the equivalent for the pending→filled/cancelled
// transitions.
var ErrOrderNotPending = errors.New("order is not pending")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
