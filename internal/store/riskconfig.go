package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// RiskConfig holds the thresholds driving margin-call and stop-out
// classification. A single row (id = 1) overrides the defaults; a missing
// row or unparseable value falls back silently.
type RiskConfig struct {
	MarginCallLevelPercent decimal.Decimal
	StopOutLevelPercent    decimal.Decimal
}

var defaultRiskConfig = RiskConfig{
	MarginCallLevelPercent: decimal.NewFromInt(100),
	StopOutLevelPercent:    decimal.NewFromInt(50),
}

func DefaultRiskConfig() RiskConfig {
	return defaultRiskConfig
}

func (s *Store) GetRiskConfig(ctx context.Context) (RiskConfig, error) {
	cfg := defaultRiskConfig
	var marginCall, stopOut string
	err := s.pool.QueryRow(ctx, "select margin_call_level_pct, stop_out_level_pct from risk_config where id = 1").Scan(&marginCall, &stopOut)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cfg, nil
		}
		return cfg, err
	}
	if v, ok := parseRiskDecimal(marginCall); ok {
		cfg.MarginCallLevelPercent = v
	}
	if v, ok := parseRiskDecimal(stopOut); ok {
		cfg.StopOutLevelPercent = v
	}
	return cfg, nil
}

func parseRiskDecimal(raw string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(raw)
	if err != nil || !v.GreaterThan(decimal.Zero) {
		return decimal.Zero, false
	}
	return v, true
}
