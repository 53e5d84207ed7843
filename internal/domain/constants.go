package domain

import "time"

// Normative limits. These are compiled defaults that can be overridden via
// configuration.
const (
	// Countdown ticking
	DefaultTickInterval = 1 * time.Second
	MinTickInterval     = 50 * time.Millisecond

	// Deadline cache
	DeadlineCacheGrace      = 5 * time.Minute // Kept after expiry so late readers still see "expired"
	InvalidDeadlineCacheTTL = 1 * time.Minute
	DeadlineInvalidatedTTL  = 30 * time.Second // Blocks cache fills that raced a listing write

	// Listing identifiers
	MaxListingIDLength = 128
	MaxTitleLength     = 512

	// Stream limits
	MaxStreamsPerIP      = 10
	StreamWriteTimeout   = 5 * time.Second
	StreamPingInterval   = 30 * time.Second
	StreamReadLimitBytes = 4 * 1024

	// Timeout contracts
	DynamoDBTimeout = 5 * time.Second
	RedisTimeout    = 2 * time.Second

	// Graceful shutdown
	GracefulShutdownTimeout = 30 * time.Second
	ShutdownDrainDelay      = 2 * time.Second
	ShutdownHTTPTimeout     = 20 * time.Second
	ShutdownOTELTimeout     = 5 * time.Second
)

// ListingKind identifies which marketplace entity a countdown belongs to.
type ListingKind string

const (
	ListingKindAuction ListingKind = "auction"
	ListingKindDeal    ListingKind = "deal"
)

// IsValidListingKind checks if a listing kind is supported.
func IsValidListingKind(k ListingKind) bool {
	return k == ListingKindAuction || k == ListingKindDeal
}
