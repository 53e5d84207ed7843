package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/marketplace-countdown/internal/domain"
	"github.com/aelexs/marketplace-countdown/internal/observability"
)

// PutListing validates and stores a listing's timer anchors, then drops the
// cached deadline so the next read re-arms from the new anchors.
func (s *CountdownService) PutListing(ctx context.Context, l domain.Listing) error {
	ctx, span := tracer.Start(ctx, "countdown.put_listing")
	defer span.End()
	span.SetAttributes(
		attribute.String("listing.kind", string(l.Kind)),
		attribute.String("listing.id", l.ID.String()),
	)

	logger := observability.WithTraceID(ctx, s.logger)

	if err := l.Validate(); err != nil {
		return fmt.Errorf("put listing: %w", err)
	}

	if err := s.store.Put(ctx, l); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("put listing %s/%s: %w", l.Kind, l.ID, err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, l.Kind, l.ID); err != nil {
			logger.WarnContext(ctx, "deadline cache invalidate failed",
				"kind", l.Kind, "listing_id", l.ID.String(), "error", err)
		}
	}

	anchor := AnchorFor(l)
	style := "absolute"
	if anchor.IsRelative() {
		style = "relative"
	}
	logger.InfoContext(ctx, "listing timer stored",
		"kind", l.Kind, "listing_id", l.ID.String(),
		"anchor", style, "deadline", anchor.Resolve().String())
	return nil
}

// DeleteListing removes a listing's timer anchors and its cached deadline.
// Later reads report domain.ErrNotFound.
func (s *CountdownService) DeleteListing(ctx context.Context, kind domain.ListingKind, id domain.ListingID) error {
	ctx, span := tracer.Start(ctx, "countdown.delete_listing")
	defer span.End()
	span.SetAttributes(
		attribute.String("listing.kind", string(kind)),
		attribute.String("listing.id", id.String()),
	)

	if !domain.IsValidListingKind(kind) {
		return fmt.Errorf("delete listing: kind %q: %w", kind, domain.ErrInvalidKind)
	}
	if id.IsZero() {
		return fmt.Errorf("delete listing: %w", domain.ErrEmptyID)
	}

	if err := s.store.Delete(ctx, kind, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete listing %s/%s: %w", kind, id, err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, kind, id); err != nil {
			observability.WithTraceID(ctx, s.logger).WarnContext(ctx, "deadline cache invalidate failed",
				"kind", kind, "listing_id", id.String(), "error", err)
		}
	}
	return nil
}
