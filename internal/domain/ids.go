// Package domain contains pure business logic and types.
// No infrastructure dependencies allowed - this is the innermost ring.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ListingID is a value object identifying an auction or deal in the
// marketplace API. The marketplace owns the format, so only a safe charset
// and a length cap are enforced.
type ListingID struct {
	value string
}

// NewListingID creates a ListingID from a raw string.
func NewListingID(raw string) (ListingID, error) {
	if raw == "" {
		return ListingID{}, ErrEmptyID
	}
	if len(raw) > MaxListingIDLength {
		return ListingID{}, fmt.Errorf("listing ID exceeds max length %d: %w", MaxListingIDLength, ErrInvalidID)
	}
	for _, r := range raw {
		if !isIDRune(r) {
			return ListingID{}, fmt.Errorf("invalid listing ID %q: %w", raw, ErrInvalidID)
		}
	}
	return ListingID{value: raw}, nil
}

// MustListingID creates a ListingID, panicking on invalid input. Use only in tests.
func MustListingID(raw string) ListingID {
	id, err := NewListingID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ListingID) String() string { return id.value }
func (id ListingID) IsZero() bool   { return id.value == "" }

func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}

// ConnectionID identifies one countdown stream connection.
type ConnectionID struct {
	value string
}

// NewConnectionID creates a ConnectionID from a raw string, validating it is a valid UUID.
func NewConnectionID(raw string) (ConnectionID, error) {
	if raw == "" {
		return ConnectionID{}, ErrEmptyID
	}
	if _, err := uuid.Parse(raw); err != nil {
		return ConnectionID{}, fmt.Errorf("invalid connection ID %q: %w", raw, ErrInvalidID)
	}
	return ConnectionID{value: raw}, nil
}

// GenerateConnectionID creates a new random ConnectionID.
func GenerateConnectionID() ConnectionID {
	return ConnectionID{value: uuid.NewString()}
}

func (id ConnectionID) String() string { return id.value }
func (id ConnectionID) IsZero() bool   { return id.value == "" }

// ParseListingKind validates a raw kind string.
func ParseListingKind(raw string) (ListingKind, error) {
	k := ListingKind(raw)
	if !IsValidListingKind(k) {
		return "", fmt.Errorf("listing kind %q: %w", raw, ErrInvalidKind)
	}
	return k, nil
}
