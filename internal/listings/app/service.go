// Package app holds the countdown use cases: resolving a listing's deadline,
// snapshotting it, and handing out engines for live streams.
package app

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
)

var tracer = otel.Tracer("listings/app")

// ListingStore reads and writes timer anchors of marketplace listings.
type ListingStore interface {
	Get(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (*domain.Listing, error)
	Put(ctx context.Context, l domain.Listing) error
	Delete(ctx context.Context, kind domain.ListingKind, id domain.ListingID) error
}

// DeadlineCache caches resolved deadlines. An invalid Deadline is a valid
// cache entry (the listing has no usable anchor). A Set that follows an
// Invalidate of the same listing must not take effect, since the caller
// may have read the listing before the write that invalidated it.
type DeadlineCache interface {
	Get(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (countdown.Deadline, bool, error)
	Set(ctx context.Context, kind domain.ListingKind, id domain.ListingID, d countdown.Deadline, now time.Time) error
	Invalidate(ctx context.Context, kind domain.ListingKind, id domain.ListingID) error
}

// StreamLimiter caps concurrent countdown streams per key (client IP).
type StreamLimiter interface {
	Acquire(ctx context.Context, key string, limit int) (bool, error)
	Release(ctx context.Context, key string) error
}

// CountdownServiceConfig holds the dependencies for CountdownService.
type CountdownServiceConfig struct {
	Store           ListingStore
	Cache           DeadlineCache // optional
	Limiter         StreamLimiter // optional
	Clock           domain.Clock
	TickInterval    time.Duration
	MaxStreamsPerIP int
	Logger          *slog.Logger
}

// CountdownService resolves listing deadlines and starts countdown engines.
// It owns no engines itself: every Watch caller owns the returned handle.
type CountdownService struct {
	store           ListingStore
	cache           DeadlineCache
	limiter         StreamLimiter
	clock           domain.Clock
	tickInterval    time.Duration
	maxStreamsPerIP int
	logger          *slog.Logger
}

// NewCountdownService creates a CountdownService.
func NewCountdownService(cfg CountdownServiceConfig) *CountdownService {
	clock := cfg.Clock
	if clock == nil {
		clock = domain.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = domain.DefaultTickInterval
	}
	maxStreams := cfg.MaxStreamsPerIP
	if maxStreams <= 0 {
		maxStreams = domain.MaxStreamsPerIP
	}
	return &CountdownService{
		store:           cfg.Store,
		cache:           cfg.Cache,
		limiter:         cfg.Limiter,
		clock:           clock,
		tickInterval:    interval,
		maxStreamsPerIP: maxStreams,
		logger:          logger,
	}
}

// AnchorFor converts a listing's timer fields into a countdown anchor.
func AnchorFor(l domain.Listing) countdown.Anchor {
	return countdown.Anchor{
		EndTime:   countdown.At(l.EndTime),
		CreatedAt: countdown.At(l.CreatedAt),
		UpdatedAt: countdown.At(l.UpdatedAt),
		Duration:  l.PromoDuration,
	}
}
