package countdown_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
)

func TestParseDeadline(t *testing.T) {
	want := time.Date(2024, 1, 3, 1, 2, 3, 0, time.UTC)
	wantMs := want.UnixMilli()
	ptr := want
	str := "2024-01-03T01:02:03Z"

	tests := []struct {
		name  string
		in    any
		valid bool
		want  time.Time
	}{
		{name: "rfc3339 millis", in: "2024-01-03T01:02:03.000Z", valid: true, want: want},
		{name: "rfc3339", in: "2024-01-03T01:02:03Z", valid: true, want: want},
		{name: "rfc3339 with offset", in: "2024-01-03T03:02:03+02:00", valid: true, want: want},
		{name: "no zone is utc", in: "2024-01-03T01:02:03", valid: true, want: want},
		{name: "space separated", in: "2024-01-03 01:02:03", valid: true, want: want},
		{name: "date only", in: "2024-01-03", valid: true, want: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding whitespace", in: "  2024-01-03T01:02:03Z \n", valid: true, want: want},
		{name: "epoch millis string", in: "1704243723000", valid: true, want: want},
		{name: "epoch millis int64", in: wantMs, valid: true, want: want},
		{name: "epoch millis int", in: int(wantMs), valid: true, want: want},
		{name: "epoch millis float", in: float64(wantMs) + 0.9, valid: true, want: want},
		{name: "json number", in: json.Number("1704243723000"), valid: true, want: want},
		{name: "time value", in: want, valid: true, want: want},
		{name: "time pointer", in: &ptr, valid: true, want: want},
		{name: "string pointer", in: &str, valid: true, want: want},
		{name: "deadline passthrough", in: countdown.At(want), valid: true, want: want},
		{name: "negative millis before epoch", in: int64(-1000), valid: true, want: time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC)},
		{name: "last millisecond of year 9999", in: "253402300799999", valid: true, want: time.Date(9999, 12, 31, 23, 59, 59, 999_000_000, time.UTC)},

		{name: "nil", in: nil},
		{name: "nil time pointer", in: (*time.Time)(nil)},
		{name: "nil string pointer", in: (*string)(nil)},
		{name: "empty string", in: ""},
		{name: "blank string", in: "   "},
		{name: "garbage", in: "not-a-date"},
		{name: "zero time", in: time.Time{}},
		{name: "zero millis", in: int64(0)},
		{name: "NaN", in: math.NaN()},
		{name: "infinity", in: math.Inf(1)},
		{name: "huge float", in: 1e300},
		{name: "millis past year 9999", in: "253402300800000"},
		{name: "millis before year 0", in: int64(-62167219200001)},
		{name: "millis near min int64", in: "-9223372036854775000"},
		{name: "int64 near max int64", in: int64(math.MaxInt64 - 807)},
		{name: "time past year 9999", in: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "unsupported type", in: struct{}{}},
		{name: "bool", in: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := countdown.ParseDeadline(tt.in)

			assert.Equal(t, tt.valid, d.Valid())
			if tt.valid {
				assert.True(t, tt.want.Equal(d.Time()), "got %s", d)
				assert.Equal(t, time.UTC, d.Time().Location())
			} else {
				assert.Zero(t, d.UnixMilli())
				assert.Equal(t, "invalid", d.String())
			}
		})
	}
}

func TestDeadline_String(t *testing.T) {
	d := countdown.At(time.Date(2024, 1, 1, 0, 0, 5, 500_000_000, time.UTC))

	assert.Equal(t, "2024-01-01T00:00:05.500Z", d.String())
}
