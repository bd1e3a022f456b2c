package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID              string          `json:"id"`
	InitialBalance  decimal.Decimal `json:"initial_balance"`
	Balance         decimal.Decimal `json:"balance"`
	Equity          decimal.Decimal `json:"equity"`
	UsedMargin      decimal.Decimal `json:"used_margin"`
	AvailableMargin decimal.Decimal `json:"available_margin"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
