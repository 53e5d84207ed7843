package countdown

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Deadline is an absolute instant at which a countdown reaches zero. The
// zero value is an invalid deadline.
type Deadline struct {
	at    time.Time
	valid bool
}

// Deadlines must fall within the years time.Parse accepts. Keeping them
// there also keeps millisecond differences far from int64 overflow.
var (
	minDeadline = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDeadline = time.Date(9999, time.December, 31, 23, 59, 59, 999_999_999, time.UTC)
)

// At wraps t. A zero time, or one outside years 0000-9999, yields an
// invalid Deadline.
func At(t time.Time) Deadline {
	if t.IsZero() || t.Before(minDeadline) || t.After(maxDeadline) {
		return Deadline{}
	}
	return Deadline{at: t.UTC(), valid: true}
}

// AtMillis builds a Deadline from epoch milliseconds. Zero is treated as
// absent; values outside the At range are invalid.
func AtMillis(ms int64) Deadline {
	if ms == 0 {
		return Deadline{}
	}
	return At(time.UnixMilli(ms))
}

// Valid reports whether the deadline was parsed from a usable value.
func (d Deadline) Valid() bool { return d.valid }

// Time returns the deadline instant (zero when invalid).
func (d Deadline) Time() time.Time { return d.at }

// UnixMilli returns the deadline as epoch milliseconds (0 when invalid).
func (d Deadline) UnixMilli() int64 {
	if !d.valid {
		return 0
	}
	return d.at.UnixMilli()
}

// String formats the deadline as RFC 3339 with milliseconds.
func (d Deadline) String() string {
	if !d.valid {
		return "invalid"
	}
	return d.at.Format(millisLayout)
}

const millisLayout = "2006-01-02T15:04:05.000Z07:00"

// layouts are tried in order for string deadlines. Layouts without a zone
// are interpreted as UTC.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDeadline construes v as a point in time. Accepted inputs are
// time.Time, *time.Time, Deadline, ISO-8601 strings, numeric strings and
// numbers (epoch milliseconds). Anything else is an invalid Deadline; the
// function never fails.
func ParseDeadline(v any) Deadline {
	switch x := v.(type) {
	case nil:
		return Deadline{}
	case Deadline:
		return x
	case time.Time:
		return At(x)
	case *time.Time:
		if x == nil {
			return Deadline{}
		}
		return At(*x)
	case string:
		return parseString(x)
	case *string:
		if x == nil {
			return Deadline{}
		}
		return parseString(*x)
	case json.Number:
		return parseString(x.String())
	case int:
		return AtMillis(int64(x))
	case int32:
		return AtMillis(int64(x))
	case int64:
		return AtMillis(x)
	case uint32:
		return AtMillis(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return Deadline{}
		}
		return AtMillis(int64(x))
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	default:
		return Deadline{}
	}
}

func parseString(s string) Deadline {
	s = strings.TrimSpace(s)
	if s == "" {
		return Deadline{}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return AtMillis(ms)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromFloat(f)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return At(t)
		}
	}
	return Deadline{}
}

// fromFloat truncates toward zero; values outside the representable
// millisecond range are invalid.
func fromFloat(f float64) Deadline {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Deadline{}
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return Deadline{}
	}
	return AtMillis(int64(f))
}
