package port_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
	"github.com/aelexs/marketplace-countdown/internal/domain/domaintest"
	"github.com/aelexs/marketplace-countdown/internal/listings/adapter"
	"github.com/aelexs/marketplace-countdown/internal/listings/app"
	"github.com/aelexs/marketplace-countdown/internal/listings/port"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	srv     *httptest.Server
	clock   *domaintest.FakeClock
	store   *adapter.MemoryListingStore
	handler *port.Handler
}

func newFixture(t *testing.T, maxStreams int, seed ...domain.Listing) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := domaintest.NewFakeClock(epoch)
	store := adapter.NewMemoryListingStore(seed...)
	svc := app.NewCountdownService(app.CountdownServiceConfig{
		Store:           store,
		Limiter:         adapter.NewMemoryStreamLimiter(),
		Clock:           clock,
		TickInterval:    time.Second,
		MaxStreamsPerIP: maxStreams,
		Logger:          logger,
	})
	h := port.NewHandler(svc, port.HandlerConfig{
		TickInterval: time.Second,
		PingInterval: time.Minute,
		OpenAPI:      []byte(`{"openapi":"3.0.3"}`),
		Logger:       logger,
	})
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, clock: clock, store: store, handler: h}
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, f.srv.URL+path, r)
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

type countdownBody struct {
	Kind      string              `json:"kind"`
	ID        string              `json:"id"`
	Deadline  *string             `json:"deadline"`
	Remaining countdown.Remaining `json:"remaining"`
	Display   countdown.Display   `json:"display"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func auction(id string, end time.Time) domain.Listing {
	return domain.Listing{ID: domain.MustListingID(id), Kind: domain.ListingKindAuction, EndTime: end}
}

// ---------------------------------------------------------------------------
// GET /v1/countdowns/{kind}/{id}
// ---------------------------------------------------------------------------

func TestGetCountdown(t *testing.T) {
	end := epoch.Add(2*24*time.Hour + time.Hour + 2*time.Minute + 3*time.Second)
	f := newFixture(t, 10, auction("vintage-camera", end))

	t.Run("returns remaining and display", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/v1/countdowns/auction/vintage-camera", "")

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		body := decode[countdownBody](t, resp)
		assert.Equal(t, "auction", body.Kind)
		assert.Equal(t, "vintage-camera", body.ID)
		require.NotNil(t, body.Deadline)
		assert.Equal(t, "2024-01-03T01:02:03.000Z", *body.Deadline)
		assert.Equal(t, countdown.Remaining{Days: 2, Hours: 1, Minutes: 2, Seconds: 3}, body.Remaining)
		assert.Equal(t, "2d 01:02:03", body.Display.Label)
		assert.Equal(t, "02", body.Display.Days)
	})

	t.Run("unknown kind is 400", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/v1/countdowns/raffle/vintage-camera", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_KIND", decode[errorBody](t, resp).Error.Code)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/v1/countdowns/auction/bad.id", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ARGUMENT", decode[errorBody](t, resp).Error.Code)
	})

	t.Run("missing listing is 404", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/v1/countdowns/deal/vintage-camera", "")

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decode[errorBody](t, resp).Error.Code)
	})
}

func TestGetCountdown_ExpiredAndUnanchored(t *testing.T) {
	f := newFixture(t, 10,
		auction("ended", epoch.Add(-time.Minute)),
		domain.Listing{ID: domain.MustListingID("no-anchor"), Kind: domain.ListingKindDeal},
	)

	t.Run("past deadline", func(t *testing.T) {
		body := decode[countdownBody](t, f.do(t, http.MethodGet, "/v1/countdowns/auction/ended", ""))

		assert.Equal(t, countdown.ExpiredRemaining, body.Remaining)
		assert.Equal(t, "expired", body.Display.Label)
		assert.NotNil(t, body.Deadline)
	})

	t.Run("no anchor", func(t *testing.T) {
		body := decode[countdownBody](t, f.do(t, http.MethodGet, "/v1/countdowns/deal/no-anchor", ""))

		assert.Equal(t, countdown.ExpiredRemaining, body.Remaining)
		assert.Nil(t, body.Deadline)
	})
}

// ---------------------------------------------------------------------------
// POST /v1/countdowns/compute
// ---------------------------------------------------------------------------

func TestCompute(t *testing.T) {
	f := newFixture(t, 10)

	tests := []struct {
		name string
		body string
		want countdown.Remaining
	}{
		{"iso string", `{"deadline":"2024-01-01T00:01:30.000Z"}`, countdown.Remaining{Minutes: 1, Seconds: 30}},
		{"epoch millis", `{"deadline":1704067290000}`, countdown.Remaining{Minutes: 1, Seconds: 30}},
		{"sub-second truncates", `{"deadline":1704067200999}`, countdown.Remaining{}},
		{"equal to now", `{"deadline":"2024-01-01T00:00:00.000Z"}`, countdown.ExpiredRemaining},
		{"garbage", `{"deadline":"whenever"}`, countdown.ExpiredRemaining},
		{"missing", `{}`, countdown.ExpiredRemaining},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/v1/countdowns/compute", tt.body)

			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, decode[countdownBody](t, resp).Remaining)
		})
	}

	t.Run("invalid json is 400", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/countdowns/compute", `{"deadline":`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("empty body is 400", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/v1/countdowns/compute", "")

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

// ---------------------------------------------------------------------------
// PUT / DELETE /v1/listings/{kind}/{id}
// ---------------------------------------------------------------------------

func TestPutListing(t *testing.T) {
	f := newFixture(t, 10)

	t.Run("stores relative anchors", func(t *testing.T) {
		resp := f.do(t, http.MethodPut, "/v1/listings/deal/spring-sale",
			`{"title":"Spring sale","created_at":"2024-01-01T00:00:00Z","updated_at":1704070800000,"promo_duration_ms":7200000}`)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		got, err := f.store.Get(context.Background(), domain.ListingKindDeal, domain.MustListingID("spring-sale"))
		require.NoError(t, err)
		assert.Equal(t, "Spring sale", got.Title)
		assert.Equal(t, 2*time.Hour, got.PromoDuration)

		body := decode[countdownBody](t, f.do(t, http.MethodGet, "/v1/countdowns/deal/spring-sale", ""))
		assert.Equal(t, countdown.Remaining{Hours: 3}, body.Remaining)
	})

	t.Run("no usable anchor is 400", func(t *testing.T) {
		resp := f.do(t, http.MethodPut, "/v1/listings/auction/x", `{"end_time":"not a date"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_DEADLINE", decode[errorBody](t, resp).Error.Code)
	})

	t.Run("negative duration is 400", func(t *testing.T) {
		resp := f.do(t, http.MethodPut, "/v1/listings/deal/x", `{"created_at":"2024-01-01","promo_duration_ms":-1}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ARGUMENT", decode[errorBody](t, resp).Error.Code)
	})
}

func TestDeleteListing(t *testing.T) {
	f := newFixture(t, 10, auction("vintage-camera", epoch.Add(time.Hour)))

	resp := f.do(t, http.MethodDelete, "/v1/listings/auction/vintage-camera", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/v1/countdowns/auction/vintage-camera", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenAPI(t *testing.T) {
	f := newFixture(t, 10)

	resp := f.do(t, http.MethodGet, "/openapi.json", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"openapi":"3.0.3"}`, string(data))
}
