// Package port exposes the countdown service over HTTP and WebSocket.
package port

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
	"github.com/aelexs/marketplace-countdown/internal/errmap"
	"github.com/aelexs/marketplace-countdown/internal/listings/app"
	"github.com/aelexs/marketplace-countdown/internal/observability"
)

var streamsTotal metric.Int64Counter

func init() {
	m := otel.Meter("listings/port")
	streamsTotal, _ = m.Int64Counter("countdown_streams_total",
		metric.WithDescription("Total countdown WebSocket streams opened"))
}

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 16 << 10

// countdownService is the narrow, consumer-defined view of
// app.CountdownService used by the handlers.
type countdownService interface {
	Snapshot(ctx context.Context, kind domain.ListingKind, id domain.ListingID) (*app.Snapshot, error)
	Compute(v any) (countdown.Deadline, countdown.Remaining)
	Watch(ctx context.Context, kind domain.ListingKind, id domain.ListingID, onTick func(countdown.Remaining)) (*countdown.Handle, error)
	AcquireStream(ctx context.Context, clientIP string) (func(), error)
	PutListing(ctx context.Context, l domain.Listing) error
	DeleteListing(ctx context.Context, kind domain.ListingKind, id domain.ListingID) error
}

// HandlerConfig holds the Handler's settings.
type HandlerConfig struct {
	TickInterval time.Duration
	PingInterval time.Duration
	OpenAPI      []byte
	Logger       *slog.Logger
	// CheckOrigin overrides the WebSocket origin check. Nil accepts any
	// origin; the API carries no credentials.
	CheckOrigin func(r *http.Request) bool
}

// Handler serves the countdown HTTP API.
type Handler struct {
	svc          countdownService
	logger       *slog.Logger
	tickInterval time.Duration
	pingInterval time.Duration
	openAPI      []byte
	upgrader     websocket.Upgrader

	// closing is closed by Shutdown; open streams say goodbye and exit.
	closing      chan struct{}
	mu           sync.Mutex
	shuttingDown bool
	streams      sync.WaitGroup
}

// NewHandler creates a Handler.
func NewHandler(svc countdownService, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = domain.DefaultTickInterval
	}
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = domain.StreamPingInterval
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		svc:          svc,
		logger:       logger,
		tickInterval: tick,
		pingInterval: ping,
		openAPI:      cfg.OpenAPI,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		closing: make(chan struct{}),
	}
}

// Routes returns the chi router for the API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Post("/countdowns/compute", h.compute)
		r.Get("/countdowns/{kind}/{id}", h.getCountdown)
		r.Get("/countdowns/{kind}/{id}/stream", h.streamCountdown)
		r.Put("/listings/{kind}/{id}", h.putListing)
		r.Delete("/listings/{kind}/{id}", h.deleteListing)
	})
	if len(h.openAPI) > 0 {
		r.Get("/openapi.json", h.serveOpenAPI)
	}

	return r
}

// Shutdown asks every open stream to close and waits for them, or for ctx.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if !h.shuttingDown {
		h.shuttingDown = true
		close(h.closing)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for streams: %w", ctx.Err())
	}
}

// countdownResponse is the JSON body of countdown reads.
type countdownResponse struct {
	Kind      string              `json:"kind,omitempty"`
	ID        string              `json:"id,omitempty"`
	Deadline  *string             `json:"deadline"`
	Remaining countdown.Remaining `json:"remaining"`
	Display   countdown.Display   `json:"display"`
}

func newCountdownResponse(kind, id string, d countdown.Deadline, rem countdown.Remaining) countdownResponse {
	resp := countdownResponse{
		Kind:      kind,
		ID:        id,
		Remaining: rem,
		Display:   rem.Display(),
	}
	if d.Valid() {
		s := d.String()
		resp.Deadline = &s
	}
	return resp
}

func (h *Handler) getCountdown(w http.ResponseWriter, r *http.Request) {
	kind, id, err := listingRef(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	snap, err := h.svc.Snapshot(r.Context(), kind, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCountdownResponse(string(kind), id.String(), snap.Deadline, snap.Remaining))
}

type computeRequest struct {
	Deadline any `json:"deadline"`
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	d, rem := h.svc.Compute(req.Deadline)
	writeJSON(w, http.StatusOK, newCountdownResponse("", "", d, rem))
}

// listingTimerRequest is the PUT body. Timestamps accept anything
// countdown.ParseDeadline does.
type listingTimerRequest struct {
	Title           string `json:"title"`
	EndTime         any    `json:"end_time"`
	CreatedAt       any    `json:"created_at"`
	UpdatedAt       any    `json:"updated_at"`
	PromoDurationMs int64  `json:"promo_duration_ms"`
}

func (h *Handler) putListing(w http.ResponseWriter, r *http.Request) {
	kind, id, err := listingRef(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req listingTimerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	l := domain.Listing{
		ID:            id,
		Kind:          kind,
		Title:         req.Title,
		EndTime:       countdown.ParseDeadline(req.EndTime).Time(),
		CreatedAt:     countdown.ParseDeadline(req.CreatedAt).Time(),
		UpdatedAt:     countdown.ParseDeadline(req.UpdatedAt).Time(),
		PromoDuration: time.Duration(req.PromoDurationMs) * time.Millisecond,
	}
	if err := h.svc.PutListing(r.Context(), l); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteListing(w http.ResponseWriter, r *http.Request) {
	kind, id, err := listingRef(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.svc.DeleteListing(r.Context(), kind, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(h.openAPI)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := errmap.WriteHTTPError(w, err)
	logger := observability.WithTraceID(r.Context(), h.logger)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "status", httpErr.StatusCode, "error", err)
		return
	}
	logger.DebugContext(r.Context(), "request rejected",
		"method", r.Method, "path", r.URL.Path, "status", httpErr.StatusCode, "error", err)
}

// listingRef parses the {kind} and {id} path parameters.
func listingRef(r *http.Request) (domain.ListingKind, domain.ListingID, error) {
	kind, err := domain.ParseListingKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", domain.ListingID{}, err
	}
	id, err := domain.NewListingID(chi.URLParam(r, "id"))
	if err != nil {
		return "", domain.ListingID{}, err
	}
	return kind, id, nil
}

// decodeJSON reads one JSON object from the request body. Numbers decode as
// json.Number so epoch milliseconds keep full precision.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty request body: %w", domain.ErrInvalidInput)
		}
		return fmt.Errorf("decode request body: %w: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientIP returns the first X-Forwarded-For entry, falling back to the
// peer address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
