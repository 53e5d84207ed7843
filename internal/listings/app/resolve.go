package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
	"github.com/aelexs/marketplace-countdown/internal/observability"
)

// Snapshot is one countdown computation for a listing.
type Snapshot struct {
	Kind      domain.ListingKind
	ID        domain.ListingID
	Deadline  countdown.Deadline
	Remaining countdown.Remaining
}

// Resolve returns the deadline for a listing. Cache failures fall back to
// the store; a listing without usable anchors resolves to an invalid
// Deadline, not an error.
func (s *CountdownService) Resolve(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (countdown.Deadline, error) {
	ctx, span := tracer.Start(ctx, "countdown.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("listing.kind", string(kind)),
		attribute.String("listing.id", id.String()),
	)

	logger := observability.WithTraceID(ctx, s.logger)

	if !domain.IsValidListingKind(kind) {
		return countdown.Deadline{}, fmt.Errorf("resolve: kind %q: %w", kind, domain.ErrInvalidKind)
	}
	if id.IsZero() {
		return countdown.Deadline{}, fmt.Errorf("resolve: %w", domain.ErrEmptyID)
	}

	if s.cache != nil {
		d, ok, err := s.cache.Get(ctx, kind, id)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "deadline cache read failed, using store",
				"kind", kind, "listing_id", id.String(), "error", err)
		case ok:
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return d, nil
		}
	}

	l, err := s.store.Get(ctx, kind, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return countdown.Deadline{}, fmt.Errorf("resolve %s/%s: %w", kind, id, err)
	}

	d := AnchorFor(*l).Resolve()
	if !d.Valid() {
		logger.InfoContext(ctx, "listing has no usable deadline anchor",
			"kind", kind, "listing_id", id.String())
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, kind, id, d, s.clock.Now()); err != nil {
			logger.WarnContext(ctx, "deadline cache write failed",
				"kind", kind, "listing_id", id.String(), "error", err)
		}
	}

	return d, nil
}

// Snapshot computes the time remaining for a listing at the current instant.
func (s *CountdownService) Snapshot(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (*Snapshot, error) {
	d, err := s.Resolve(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Kind:      kind,
		ID:        id,
		Deadline:  d,
		Remaining: countdown.Compute(d, s.clock.Now()),
	}, nil
}

// Compute is the stateless form used for arbitrary client-supplied
// deadlines. Unparseable input yields the expired state.
func (s *CountdownService) Compute(v any) (countdown.Deadline, countdown.Remaining) {
	d := countdown.ParseDeadline(v)
	return d, countdown.Compute(d, s.clock.Now())
}
