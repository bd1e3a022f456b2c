// Package scheduler runs the reconciliation passes on fixed intervals.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrPassInFlight is returned by RunOnce when the previous pass has not
// finished. Overlapping passes of the same engine could double-close or
// double-fill, so ticks are skipped instead of queued.
var ErrPassInFlight = errors.New("pass already in flight")

type Runner struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       func(context.Context) error
	log      *logrus.Entry
	running  atomic.Bool
}

func NewRunner(name string, interval, timeout time.Duration, fn func(context.Context) error, log *logrus.Entry) *Runner {
	return &Runner{name: name, interval: interval, timeout: timeout, fn: fn, log: log.WithField("job", name)}
}

// Start launches the tick loop. Each pass carries a deadline; entities not
// reached before it fires are left for the next tick.
func (r *Runner) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.RunOnce(ctx); err != nil && !errors.Is(err, ErrPassInFlight) {
					r.log.WithError(err).Error("pass failed")
				}
			}
		}
	}()
}

// RunOnce executes a single pass, enforcing single-flight per runner.
func (r *Runner) RunOnce(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		r.log.Warn("previous pass still running, skipping tick")
		return ErrPassInFlight
	}
	defer r.running.Store(false)

	passCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	err := r.fn(passCtx)
	elapsed := time.Since(started)
	if err != nil {
		return err
	}
	if elapsed > r.interval {
		r.log.WithField("elapsed", elapsed.String()).Warn("pass ran longer than interval")
	} else {
		r.log.WithField("elapsed", elapsed.String()).Debug("pass completed")
	}
	return nil
}
