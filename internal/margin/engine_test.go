package margin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/model"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/pricing"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type memStore struct {
	mu       sync.Mutex
	account  model.Account
	trades   []model.Trade
	updates  int
	inflight bool
	overlap  bool
}

func (m *memStore) Account(_ context.Context, id string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account, nil
}

func (m *memStore) TradesByAccount(_ context.Context, id string) ([]model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Trade(nil), m.trades...), nil
}

func (m *memStore) UpdateAccountMargin(_ context.Context, id string, balance, equity, used, available decimal.Decimal) error {
	m.mu.Lock()
	if m.inflight {
		m.overlap = true
	}
	m.inflight = true
	m.mu.Unlock()

	time.Sleep(time.Millisecond)

	m.mu.Lock()
	m.inflight = false
	m.account.Balance = balance
	m.account.Equity = equity
	m.account.UsedMargin = used
	m.account.AvailableMargin = available
	m.updates++
	m.mu.Unlock()
	return nil
}

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func openTrade(id string, margin string, entry string) model.Trade {
	return model.Trade{
		ID:         id,
		AccountID:  "acct-1",
		Symbol:     "EURUSD",
		Direction:  types.DirectionLong,
		Size:       d("1"),
		Leverage:   d("10"),
		EntryPrice: d(entry),
		Margin:     d(margin),
		Status:     types.TradeStatusOpen,
	}
}

func TestRecalculateDerivation(t *testing.T) {
	st := &memStore{
		account: model.Account{ID: "acct-1", InitialBalance: d("10000")},
		trades: []model.Trade{
			openTrade("t1", "500", "100"),
			openTrade("t2", "300", "100"),
			{ID: "t3", AccountID: "acct-1", Status: types.TradeStatusClosed, RealizedPnL: dp("-250")},
			{ID: "t4", AccountID: "acct-1", Status: types.TradeStatusClosed, RealizedPnL: dp("100")},
		},
	}
	e := NewEngine(st, pricing.NewCache(0), testLog())

	snap, err := e.Recalculate(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, snap.Balance.Equal(d("9850")), "balance = initial + realized, got %s", snap.Balance)
	assert.True(t, snap.Equity.Equal(d("9850")), "stored equity equals balance")
	assert.True(t, snap.UsedMargin.Equal(d("800")))
	assert.True(t, snap.AvailableMargin.Equal(d("9050")))
}

func TestRecalculateIdempotent(t *testing.T) {
	st := &memStore{
		account: model.Account{ID: "acct-1", InitialBalance: d("10000")},
		trades: []model.Trade{
			openTrade("t1", "500", "100"),
			{ID: "t2", AccountID: "acct-1", Status: types.TradeStatusClosed, RealizedPnL: dp("42.5")},
		},
	}
	e := NewEngine(st, pricing.NewCache(0), testLog())

	first, err := e.Recalculate(context.Background(), "acct-1")
	require.NoError(t, err)
	second, err := e.Recalculate(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, first, second, "no intervening trade event: output must be identical")
	assert.Equal(t, 2, st.updates)
}

func TestRecalculateAvailableClampedAtZero(t *testing.T) {
	st := &memStore{
		account: model.Account{ID: "acct-1", InitialBalance: d("100")},
		trades:  []model.Trade{openTrade("t1", "500", "100")},
	}
	e := NewEngine(st, pricing.NewCache(0), testLog())

	snap, err := e.Recalculate(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, snap.AvailableMargin.IsZero(), "available margin never goes negative")
}

func TestRecalculateSerializedPerAccount(t *testing.T) {
	st := &memStore{account: model.Account{ID: "acct-1", InitialBalance: d("1000")}}
	e := NewEngine(st, pricing.NewCache(0), testLog())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Recalculate(context.Background(), "acct-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.False(t, st.overlap, "recalculations for one account must not interleave")
	assert.Equal(t, 10, st.updates)
}

func TestLiveMetricsFloatingPnL(t *testing.T) {
	st := &memStore{
		account: model.Account{ID: "acct-1", InitialBalance: d("1000")},
		trades: []model.Trade{
			openTrade("t1", "600", "100"),
			openTrade("t2", "400", "100"),
		},
	}
	cache := pricing.NewCache(0)
	cache.Set("EURUSD", 95, 95.2)
	e := NewEngine(st, cache, testLog())

	m, err := e.LiveMetrics(context.Background(), "acct-1")
	require.NoError(t, err)
	// Two longs marked at the bid: each 1*10*(95-100) = -50.
	assert.True(t, m.FloatingPnL.Equal(d("-100")), "got %s", m.FloatingPnL)
	assert.True(t, m.LiveEquity.Equal(d("900")))
	assert.True(t, m.MarginLevel.Equal(d("90")), "equity/used*100, got %s", m.MarginLevel)
	require.Len(t, m.Positions, 2)
	assert.True(t, m.Positions[0].UnrealizedPnL.Equal(d("-50")))
}

func TestLiveMetricsMissingQuoteFallsBackToEntry(t *testing.T) {
	st := &memStore{
		account: model.Account{ID: "acct-1", InitialBalance: d("1000")},
		trades:  []model.Trade{openTrade("t1", "600", "100")},
	}
	e := NewEngine(st, pricing.NewCache(0), testLog())

	m, err := e.LiveMetrics(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, m.FloatingPnL.IsZero(), "entry-price fallback yields zero P&L")
	assert.True(t, m.LiveEquity.Equal(d("1000")))
}

func TestLiveMetricsNoOpenRisk(t *testing.T) {
	st := &memStore{account: model.Account{ID: "acct-1", InitialBalance: d("1000")}}
	e := NewEngine(st, pricing.NewCache(0), testLog())

	m, err := e.LiveMetrics(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, m.UsedMargin.IsZero())
	assert.True(t, m.MarginLevel.IsZero(), "zero used margin reports level 0, meaning unconstrained")
}
