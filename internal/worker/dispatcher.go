// Package worker runs inbound events off the request path. The webhook
// acknowledges first and submits; each event then runs in its own goroutine
// under a per-phone lock and a bounded timeout.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-broker-assistant/internal/gateway"
	"github.com/tbourn/go-broker-assistant/internal/lock"
	"github.com/tbourn/go-broker-assistant/internal/services"
)

// DefaultEventTimeout bounds one event when New is given no timeout.
const DefaultEventTimeout = 60 * time.Second

// ErrStopped is logged for events submitted after Shutdown.
var ErrStopped = errors.New("dispatcher stopped")

// Handler processes one normalized event. *services.Orchestrator satisfies it.
type Handler interface {
	Handle(ctx context.Context, in gateway.Inbound) (services.Outcome, error)
}

var (
	inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broker_events_in_flight",
		Help: "Inbound events currently being processed.",
	})
	panicsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broker_event_panics_total",
		Help: "Inbound events that panicked and were recovered.",
	})
)

func init() {
	prometheus.MustRegister(inFlight, panicsTotal)
}

// Dispatcher is a fire-and-forget runner for inbound events.
type Dispatcher struct {
	handler Handler
	locker  lock.Locker
	timeout time.Duration

	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// New returns a running Dispatcher. A nil locker falls back to an
// in-process lock.
func New(h Handler, locker lock.Locker, timeout time.Duration) *Dispatcher {
	if locker == nil {
		locker = lock.NewMemory()
	}
	if timeout <= 0 {
		timeout = DefaultEventTimeout
	}
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		handler: h,
		locker:  locker,
		timeout: timeout,
		base:    base,
		cancel:  cancel,
	}
}

// Submit schedules in and returns immediately. It reports false once
// Shutdown has been called.
func (d *Dispatcher) Submit(in gateway.Inbound) bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		log.Warn().Str("message_id", in.MessageID).Err(ErrStopped).Msg("event rejected during shutdown")
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		inFlight.Inc()
		defer inFlight.Dec()
		d.run(in)
	}()
	return true
}

// run processes one event. Errors and panics are logged, never surfaced.
func (d *Dispatcher) run(in gateway.Inbound) {
	ctx, cancel := context.WithTimeout(d.base, d.timeout)
	defer cancel()

	logger := log.With().Str("phone", in.Phone).Str("message_id", in.MessageID).Logger()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			panicsTotal.Inc()
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered while handling event")
		}
	}()

	unlock, err := d.locker.Lock(ctx, in.Phone)
	if err != nil {
		logger.Error().Err(err).Msg("could not acquire conversation lock")
		return
	}
	defer unlock()

	outcome, err := d.handler.Handle(ctx, in)
	ev := logger.Info()
	if err != nil {
		ev = logger.Error().Err(err)
	}
	ev.Str("outcome", string(outcome)).
		Dur("took", time.Since(start)).
		Msg("event handled")
}

// Shutdown stops accepting events and waits for in-flight ones. When ctx is
// done first, running events are cancelled and ctx.Err() is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return fmt.Errorf("waiting for in-flight events: %w", ctx.Err())
	}
}
