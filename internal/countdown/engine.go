package countdown

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/marketplace-countdown/internal/domain"
)

var (
	enginesStartedTotal metric.Int64Counter
	enginesActive       metric.Int64UpDownCounter
	ticksTotal          metric.Int64Counter
	expirationsTotal    metric.Int64Counter
)

func init() {
	m := otel.Meter("countdown")

	enginesStartedTotal, _ = m.Int64Counter("countdown_engines_started_total",
		metric.WithDescription("Total countdown engines started"))
	enginesActive, _ = m.Int64UpDownCounter("countdown_engines_active",
		metric.WithDescription("Countdown engines currently holding a timer"))
	ticksTotal, _ = m.Int64Counter("countdown_ticks_total",
		metric.WithDescription("Total timer-driven countdown emissions"))
	expirationsTotal, _ = m.Int64Counter("countdown_expirations_total",
		metric.WithDescription("Total countdowns that reached the expired state"))
}

// Option configures an engine started by Start.
type Option func(*options)

type options struct {
	clock    domain.Clock
	interval time.Duration
	logger   *slog.Logger
	kind     string
}

// WithClock sets the time source. Defaults to domain.RealClock.
func WithClock(c domain.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTickInterval sets the tick period. Values below domain.MinTickInterval
// fall back to domain.DefaultTickInterval.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithLogger sets the logger used for lifecycle debug events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithKind tags metrics and logs with the listing kind being counted down.
func WithKind(kind string) Option {
	return func(o *options) { o.kind = kind }
}

func newOptions(opts []Option) options {
	o := options{
		clock:    domain.RealClock{},
		interval: domain.DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.interval < domain.MinTickInterval {
		o.interval = domain.DefaultTickInterval
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Handle owns one running countdown. It is returned by Start and must be
// cancelled by its owner when the countdown is no longer displayed.
type Handle struct {
	deadline Deadline
	onTick   func(Remaining)
	opts     options
	attrs    metric.MeasurementOption

	mu      sync.Mutex
	stopped bool
	current Remaining

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Start emits the current Remaining for deadline synchronously, then again
// on every tick until the deadline passes, ctx is done, or the handle is
// cancelled. The expired state is always the last emission. An invalid
// deadline emits the expired state once and starts no timer.
//
// onTick runs on the engine's goroutine (or the caller's, for the first
// emission); emissions for one handle never overlap.
func Start(ctx context.Context, deadline Deadline, onTick func(Remaining), opts ...Option) *Handle {
	if onTick == nil {
		onTick = func(Remaining) {}
	}
	h := &Handle{
		deadline: deadline,
		onTick:   onTick,
		opts:     newOptions(opts),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	h.attrs = metric.WithAttributes(attribute.String("kind", h.opts.kind))
	enginesStartedTotal.Add(ctx, 1, h.attrs)

	first := Compute(deadline, h.opts.clock.Now())
	h.emit(first)

	if first.Expired {
		expirationsTotal.Add(ctx, 1, h.attrs)
		h.opts.logger.DebugContext(ctx, "countdown expired at start",
			"kind", h.opts.kind, "deadline", deadline.String(), "valid", deadline.Valid())
		h.finish()
		close(h.done)
		return h
	}
	if h.isStopped() || ctx.Err() != nil {
		h.finish()
		close(h.done)
		return h
	}

	ticker := h.opts.clock.NewTicker(h.opts.interval)
	enginesActive.Add(ctx, 1, h.attrs)
	h.opts.logger.DebugContext(ctx, "countdown started",
		"kind", h.opts.kind, "deadline", deadline.String(), "interval", h.opts.interval)

	go h.run(ctx, ticker)
	return h
}

func (h *Handle) run(ctx context.Context, ticker domain.Ticker) {
	defer func() {
		ticker.Stop()
		enginesActive.Add(context.WithoutCancel(ctx), -1, h.attrs)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.finish()
			return
		case <-h.stop:
			h.opts.logger.Debug("countdown cancelled", "kind", h.opts.kind)
			return
		case <-ticker.C():
			if h.isStopped() {
				return
			}
			r := Compute(h.deadline, h.opts.clock.Now())
			if !h.emit(r) {
				return
			}
			ticksTotal.Add(ctx, 1, h.attrs)
			if r.Expired {
				h.finish()
				expirationsTotal.Add(ctx, 1, h.attrs)
				h.opts.logger.DebugContext(ctx, "countdown expired",
					"kind", h.opts.kind, "deadline", h.deadline.String())
				return
			}
		}
	}
}

// emit records r and hands it to onTick unless the handle was stopped first.
// The lock is not held across onTick so that onTick may call Cancel.
func (h *Handle) emit(r Remaining) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	h.current = r
	h.mu.Unlock()

	h.onTick(r)
	return true
}

func (h *Handle) finish() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
}

func (h *Handle) isStopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}

// Cancel stops the timer. It is idempotent, safe after expiry, and safe to
// call from within onTick, in which case nothing is emitted after the
// current callback. Cancel does not wait for the engine goroutine: when
// called from another goroutine, an emission that had already begun may
// still be delivered after Cancel returns, but no later one. Wait or Done
// report when the engine has gone quiet.
func (h *Handle) Cancel() {
	h.finish()
	h.stopOnce.Do(func() { close(h.stop) })
}

// Done is closed once the engine has released its timer and will emit
// nothing further.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until Done is closed. It must not be called from onTick.
func (h *Handle) Wait() {
	<-h.done
}

// Current returns the most recent emission. After expiry it is the terminal
// state.
func (h *Handle) Current() Remaining {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Deadline returns the deadline the engine counts down to.
func (h *Handle) Deadline() Deadline {
	return h.deadline
}
