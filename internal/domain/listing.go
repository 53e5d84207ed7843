package domain

import (
	"fmt"
	"time"
)

// Listing is the timer-relevant projection of a marketplace auction or deal.
// Auctions usually carry an absolute EndTime; deals carry a promotional
// duration measured from CreatedAt or UpdatedAt. Zero times mean "absent".
type Listing struct {
	ID    ListingID
	Kind  ListingKind
	Title string

	EndTime       time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PromoDuration time.Duration
}

// HasAnchor reports whether the listing carries enough information to derive
// a deadline.
func (l Listing) HasAnchor() bool {
	if !l.EndTime.IsZero() {
		return true
	}
	return l.PromoDuration > 0 && (!l.CreatedAt.IsZero() || !l.UpdatedAt.IsZero())
}

// Validate checks a listing before it is written.
func (l Listing) Validate() error {
	if l.ID.IsZero() {
		return ErrEmptyID
	}
	if !IsValidListingKind(l.Kind) {
		return fmt.Errorf("listing kind %q: %w", l.Kind, ErrInvalidKind)
	}
	if len(l.Title) > MaxTitleLength {
		return fmt.Errorf("title exceeds %d bytes: %w", MaxTitleLength, ErrInvalidInput)
	}
	if l.PromoDuration < 0 {
		return fmt.Errorf("negative promo duration: %w", ErrInvalidInput)
	}
	if !l.HasAnchor() {
		return fmt.Errorf("listing %s/%s has no end time or promo window: %w", l.Kind, l.ID, ErrInvalidDeadline)
	}
	return nil
}
