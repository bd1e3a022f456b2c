package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/config"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/db"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/exec"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/httpserver"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/margin"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/notify"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/pricing"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/risk"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/scheduler"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/store"
	"github.com/Alex41970/tradehaven-webtrader-sub001/internal/trigger"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	log := logrus.NewEntry(logger)

	catalog, err := pricing.LoadCatalog(cfg.InstrumentsFile)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	cache := pricing.NewCache(cfg.QuoteMaxAge)
	bus := notify.NewBus()
	st := store.NewStore(pool)
	marginEngine := margin.NewEngine(st, cache, log)
	closer := exec.NewCloser(st, marginEngine, bus, log)
	monitor := risk.NewMonitor(st, marginEngine, closer, bus, cfg.MonitorConcurrency, log)
	triggerEngine := trigger.NewEngine(st, cache, catalog, marginEngine, closer, bus, log)

	scheduler.NewRunner("margin_monitor", cfg.MonitorInterval, cfg.PassTimeout, monitor.RunPass, log).Start(ctx)
	scheduler.NewRunner("order_triggers", cfg.TriggerInterval, cfg.PassTimeout, triggerEngine.RunPass, log).Start(ctx)
	scheduler.NewRunner("quote_eviction", cfg.QuoteMaxAge, cfg.PassTimeout, func(context.Context) error {
		cache.EvictStale()
		return nil
	}, log).Start(ctx)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Health:        httpserver.NewHealthHandler(pool, cache),
		Metrics:       httpserver.NewMetricsHandler(marginEngine),
		Trades:        httpserver.NewTradesHandler(st),
		Quotes:        httpserver.NewQuoteHandler(cache),
		WSHandler:     httpserver.NewWSHandler(bus, cfg.WebSocketOrigin, log),
		InternalToken: cfg.InternalToken,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.WithField("addr", cfg.HTTPAddr).Info("riskd listening")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
