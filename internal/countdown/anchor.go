package countdown

import "time"

// Anchor holds the timer inputs found on a marketplace record. Auctions carry
// an absolute EndTime; deals carry a promotional Duration measured from when
// the record was created or last updated.
type Anchor struct {
	EndTime   Deadline
	CreatedAt Deadline
	UpdatedAt Deadline
	Duration  time.Duration
}

// Resolve picks the deadline for the record:
//   - a valid EndTime wins;
//   - otherwise the more recent valid of UpdatedAt and CreatedAt plus
//     Duration (an update re-arms the timer);
//   - anything else is an invalid Deadline.
func (a Anchor) Resolve() Deadline {
	if a.EndTime.Valid() {
		return a.EndTime
	}
	if a.Duration <= 0 {
		return Deadline{}
	}
	start := a.CreatedAt
	if a.UpdatedAt.Valid() && (!start.Valid() || a.UpdatedAt.Time().After(start.Time())) {
		start = a.UpdatedAt
	}
	if !start.Valid() {
		return Deadline{}
	}
	return At(start.Time().Add(a.Duration))
}

// IsRelative reports whether Resolve would use the promotional window rather
// than an absolute end time.
func (a Anchor) IsRelative() bool {
	return !a.EndTime.Valid()
}
