package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr           string
	DBDSN              string
	InternalToken      string
	WebSocketOrigin    string
	MonitorInterval    time.Duration
	TriggerInterval    time.Duration
	PassTimeout        time.Duration
	QuoteMaxAge        time.Duration
	MonitorConcurrency int
	InstrumentsFile    string
	LogLevel           string
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.InternalToken = os.Getenv("INTERNAL_API_TOKEN")
	if c.InternalToken == "" {
		missing = append(missing, "INTERNAL_API_TOKEN")
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}

	var err error
	c.MonitorInterval, err = durationEnv("MONITOR_INTERVAL", 5*time.Second)
	if err != nil {
		return c, err
	}
	c.TriggerInterval, err = durationEnv("TRIGGER_INTERVAL", time.Second)
	if err != nil {
		return c, err
	}
	c.PassTimeout, err = durationEnv("PASS_TIMEOUT", 30*time.Second)
	if err != nil {
		return c, err
	}
	c.QuoteMaxAge, err = durationEnv("QUOTE_MAX_AGE", 30*time.Second)
	if err != nil {
		return c, err
	}

	concurrency := os.Getenv("MONITOR_CONCURRENCY")
	if concurrency == "" {
		c.MonitorConcurrency = 8
	} else {
		n, err := strconv.Atoi(concurrency)
		if err != nil || n <= 0 {
			return c, errors.New("invalid MONITOR_CONCURRENCY")
		}
		c.MonitorConcurrency = n
	}

	c.InstrumentsFile = os.Getenv("INSTRUMENTS_FILE")
	c.LogLevel = os.Getenv("LOG_LEVEL")
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return d, nil
}
