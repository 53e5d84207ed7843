// Package countdown computes the time left until a marketplace deadline and
// keeps it updated on a fixed tick. Each displayed countdown owns its own
// engine (Start) and cancels it when the display goes away.
package countdown

import "time"

const (
	msPerSecond = int64(time.Second / time.Millisecond)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Remaining is the time left until a deadline, decomposed largest unit
// first. When Expired is true every numeric field is zero.
type Remaining struct {
	Days    int64 `json:"days"`
	Hours   int   `json:"hours"`
	Minutes int   `json:"minutes"`
	Seconds int   `json:"seconds"`
	Expired bool  `json:"isExpired"`
}

// ExpiredRemaining is the terminal state.
var ExpiredRemaining = Remaining{Expired: true}

// FromMillis decomposes a millisecond difference. Non-positive differences
// collapse to the terminal state; sub-second remainders are truncated.
func FromMillis(diff int64) Remaining {
	if diff <= 0 {
		return ExpiredRemaining
	}
	return Remaining{
		Days:    diff / msPerDay,
		Hours:   int((diff % msPerDay) / msPerHour),
		Minutes: int((diff % msPerHour) / msPerMinute),
		Seconds: int((diff % msPerMinute) / msPerSecond),
	}
}

// Compute returns the time left between now and d. An invalid deadline is
// reported as expired. Valid deadlines lie within years 0000-9999, so the
// millisecond difference cannot overflow for any now in that range.
func Compute(d Deadline, now time.Time) Remaining {
	if !d.Valid() {
		return ExpiredRemaining
	}
	return FromMillis(d.UnixMilli() - now.UnixMilli())
}

// TotalSeconds reassembles the decomposed fields.
func (r Remaining) TotalSeconds() int64 {
	return r.Days*86400 + int64(r.Hours)*3600 + int64(r.Minutes)*60 + int64(r.Seconds)
}
