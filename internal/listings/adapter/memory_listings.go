package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/aelexs/marketplace-countdown/internal/domain"
)

// MemoryListingStore keeps listings in process memory. Used for local
// development and tests; contents are lost on restart.
type MemoryListingStore struct {
	mu       sync.RWMutex
	listings map[string]domain.Listing
}

// NewMemoryListingStore creates a store pre-populated with seed.
func NewMemoryListingStore(seed ...domain.Listing) *MemoryListingStore {
	s := &MemoryListingStore{listings: make(map[string]domain.Listing, len(seed))}
	for _, l := range seed {
		s.listings[listingKey(l.Kind, l.ID)] = l
	}
	return s
}

// Get returns a copy of the stored listing, or domain.ErrNotFound.
func (s *MemoryListingStore) Get(_ context.Context, kind domain.ListingKind, id domain.ListingID) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[listingKey(kind, id)]
	if !ok {
		return nil, fmt.Errorf("memory store: get %s: %w", listingKey(kind, id), domain.ErrNotFound)
	}
	return &l, nil
}

// Put stores l, replacing any previous version.
func (s *MemoryListingStore) Put(_ context.Context, l domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings[listingKey(l.Kind, l.ID)] = l
	return nil
}

// Delete removes the listing if present.
func (s *MemoryListingStore) Delete(_ context.Context, kind domain.ListingKind, id domain.ListingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.listings, listingKey(kind, id))
	return nil
}

// Len reports the number of stored listings.
func (s *MemoryListingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}
