package app

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ---------------------------------------------------------------------------
// Stubs: function-field implementations of the app ports.
// ---------------------------------------------------------------------------

type stubStore struct {
	getFn    func(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (*domain.Listing, error)
	putFn    func(ctx context.Context, l domain.Listing) error
	deleteFn func(ctx context.Context, kind domain.ListingKind, id domain.ListingID) error
	gets     int
}

func (s *stubStore) Get(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (*domain.Listing, error) {
	s.gets++
	return s.getFn(ctx, kind, id)
}

func (s *stubStore) Put(ctx context.Context, l domain.Listing) error {
	return s.putFn(ctx, l)
}

func (s *stubStore) Delete(ctx context.Context, kind domain.ListingKind, id domain.ListingID) error {
	return s.deleteFn(ctx, kind, id)
}

var _ ListingStore = (*stubStore)(nil)

type stubCache struct {
	getFn        func(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (countdown.Deadline, bool, error)
	setFn        func(ctx context.Context, kind domain.ListingKind, id domain.ListingID, d countdown.Deadline, now time.Time) error
	invalidateFn func(ctx context.Context, kind domain.ListingKind, id domain.ListingID) error
}

func (s *stubCache) Get(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (countdown.Deadline, bool, error) {
	return s.getFn(ctx, kind, id)
}

func (s *stubCache) Set(ctx context.Context, kind domain.ListingKind, id domain.ListingID, d countdown.Deadline, now time.Time) error {
	return s.setFn(ctx, kind, id, d, now)
}

func (s *stubCache) Invalidate(ctx context.Context, kind domain.ListingKind, id domain.ListingID) error {
	return s.invalidateFn(ctx, kind, id)
}

var _ DeadlineCache = (*stubCache)(nil)

type stubLimiter struct {
	acquireFn func(ctx context.Context, key string, limit int) (bool, error)
	released  []string
}

func (s *stubLimiter) Acquire(ctx context.Context, key string, limit int) (bool, error) {
	return s.acquireFn(ctx, key, limit)
}

func (s *stubLimiter) Release(_ context.Context, key string) error {
	s.released = append(s.released, key)
	return nil
}

var _ StreamLimiter = (*stubLimiter)(nil)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func listingWith(end time.Time) *domain.Listing {
	return &domain.Listing{
		ID:      domain.MustListingID("vintage-camera"),
		Kind:    domain.ListingKindAuction,
		EndTime: end,
	}
}

func storeReturning(l *domain.Listing, err error) *stubStore {
	return &stubStore{
		getFn: func(_ context.Context, _ domain.ListingKind, _ domain.ListingID) (*domain.Listing, error) {
			return l, err
		},
	}
}
