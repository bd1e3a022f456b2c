package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/httputil"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/margin"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/model"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/pricing"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthHandler struct {
	pool  *pgxpool.Pool
	cache *pricing.Cache
}

func NewHealthHandler(pool *pgxpool.Pool, cache *pricing.Cache) *HealthHandler {
	return &HealthHandler{pool: pool, cache: cache}
}

type healthResponse struct {
	Status string             `json:"status"`
	DB     string             `json:"db"`
	Quotes pricing.CacheStats `json:"quotes"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", DB: "ok", Quotes: h.cache.Stats()}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.pool.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.DB = err.Error()
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

type MetricsHandler struct {
	margin *margin.Engine
}

func NewMetricsHandler(marginEngine *margin.Engine) *MetricsHandler {
	return &MetricsHandler{margin: marginEngine}
}

func (h *MetricsHandler) AccountMetrics(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "missing account id"})
		return
	}
	metrics, err := h.margin.LiveMetrics(r.Context(), accountID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "account not found"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, metrics)
}

type TradesHandler struct {
	store *store.Store
}

func NewTradesHandler(st *store.Store) *TradesHandler {
	return &TradesHandler{store: st}
}

// AccountTrades lists an account's trades, open positions only when
// ?status=open.
func (h *TradesHandler) AccountTrades(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "missing account id"})
		return
	}
	var (
		trades []model.Trade
		err    error
	)
	if r.URL.Query().Get("status") == "open" {
		trades, err = h.store.OpenTradesByAccount(r.Context(), accountID)
	} else {
		trades, err = h.store.TradesByAccount(r.Context(), accountID)
	}
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "trade lookup failed"})
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]model.Trade{"trades": trades})
}

type QuoteHandler struct {
	cache *pricing.Cache
}

func NewQuoteHandler(cache *pricing.Cache) *QuoteHandler {
	return &QuoteHandler{cache: cache}
}

type quotePush struct {
	Quotes []struct {
		Symbol string  `json:"symbol"`
		Bid    float64 `json:"bid"`
		Ask    float64 `json:"ask"`
	} `json:"quotes"`
	// Symbols whose upstream feed dropped; marked unavailable until the
	// next quote arrives.
	Stale []string `json:"stale"`
}

// Push accepts quote batches and disconnect notices from the feed relay and
// updates the process-wide cache.
func (h *QuoteHandler) Push(w http.ResponseWriter, r *http.Request) {
	var body quotePush
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid payload"})
		return
	}
	accepted := 0
	for _, q := range body.Quotes {
		if q.Symbol == "" || q.Bid <= 0 || q.Ask <= 0 {
			continue
		}
		h.cache.Set(q.Symbol, q.Bid, q.Ask)
		accepted++
	}
	for _, sym := range body.Stale {
		h.cache.MarkStale(sym)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"accepted": accepted, "stale": len(body.Stale)})
}
