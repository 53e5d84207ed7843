package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
)

// Watch resolves the listing's deadline and starts a countdown engine for
// it. The first emission happens before Watch returns. The caller owns the
// handle and must cancel it (or cancel ctx) when it stops displaying.
func (s *CountdownService) Watch(ctx context.Context, kind domain.ListingKind, id domain.ListingID, onTick func(countdown.Remaining)) (*countdown.Handle, error) {
	d, err := s.Resolve(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return countdown.Start(ctx, d, onTick,
		countdown.WithClock(s.clock),
		countdown.WithTickInterval(s.tickInterval),
		countdown.WithLogger(s.logger),
		countdown.WithKind(string(kind)),
	), nil
}

// AcquireStream reserves one concurrent stream slot for clientIP. The
// returned release func must be called when the stream ends. Without a
// limiter every request is admitted.
func (s *CountdownService) AcquireStream(ctx context.Context, clientIP string) (func(), error) {
	if s.limiter == nil || clientIP == "" {
		return func() {}, nil
	}

	ctx, span := tracer.Start(ctx, "countdown.acquire_stream")
	defer span.End()

	key := "streams:" + clientIP
	ok, err := s.limiter.Acquire(ctx, key, s.maxStreamsPerIP)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("acquire stream slot: %w: %w", domain.ErrUnavailable, err)
	}
	if !ok {
		span.SetAttributes(attribute.Bool("rate_limited", true))
		return nil, fmt.Errorf("%d concurrent streams for %s: %w", s.maxStreamsPerIP, clientIP, domain.ErrRateLimited)
	}

	logger := s.logger
	release := func() {
		// The request context is usually gone by now.
		if err := s.limiter.Release(context.WithoutCancel(ctx), key); err != nil {
			logger.Warn("release stream slot failed", "error", err)
		}
	}
	return release, nil
}
