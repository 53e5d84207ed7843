package port

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aelexs/marketplace-countdown/internal/countdown"
	"github.com/aelexs/marketplace-countdown/internal/domain"
	"github.com/aelexs/marketplace-countdown/internal/errmap"
	"github.com/aelexs/marketplace-countdown/internal/observability"
	"github.com/aelexs/marketplace-countdown/pkg/protocol"
)

// closeGracePeriod is how long a stream waits for the peer's close frame
// after sending its own.
const closeGracePeriod = time.Second

// errClientMessage is reported to clients that send data frames. Streams are
// server-push only; control frames (pong, close) are fine.
var errClientMessage = fmt.Errorf("countdown streams do not accept client messages: %w", domain.ErrInvalidInput)

// streamCountdown upgrades to a WebSocket and relays one engine's emissions
// as frames. The engine lives exactly as long as the connection: a client
// disconnect cancels it, and expiry closes the connection.
func (h *Handler) streamCountdown(w http.ResponseWriter, r *http.Request) {
	kind, id, err := listingRef(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	release, err := h.svc.AcquireStream(r.Context(), clientIP(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer release()

	if !h.track() {
		h.writeError(w, r, fmt.Errorf("server shutting down: %w", domain.ErrUnavailable))
		return
	}
	defer h.streams.Done()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Buffered so the synchronous first emission lands before the upgrade.
	emissions := make(chan countdown.Remaining, 1)
	handle, err := h.svc.Watch(ctx, kind, id, func(rem countdown.Remaining) {
		select {
		case emissions <- rem:
		case <-ctx.Done():
		}
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer handle.Cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.DebugContext(ctx, "websocket upgrade failed", "error", err)
		return
	}

	connID := domain.GenerateConnectionID()
	logger := observability.WithTraceID(ctx, h.logger).With(
		slog.String("connection_id", connID.String()),
		slog.String("kind", string(kind)),
		slog.String("listing_id", id.String()),
	)
	streamsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	logger.InfoContext(ctx, "countdown stream opened", "client_ip", clientIP(r))

	s := &stream{
		conn:         conn,
		handle:       handle,
		emissions:    emissions,
		closing:      h.closing,
		violations:   make(chan error, 1),
		pingInterval: h.pingInterval,
		logger:       logger,
	}
	s.serve(ctx, cancel, protocol.ConnectionAck{
		ConnectionID:        connID.String(),
		ListingKind:         string(kind),
		ListingID:           id.String(),
		Deadline:            deadlineString(handle.Deadline()),
		TickIntervalMs:      h.tickInterval.Milliseconds(),
		HeartbeatIntervalMs: h.pingInterval.Milliseconds(),
	})
}

// track registers a new stream unless Shutdown has begun.
func (h *Handler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shuttingDown {
		return false
	}
	h.streams.Add(1)
	return true
}

type stream struct {
	conn         *websocket.Conn
	handle       *countdown.Handle
	emissions    <-chan countdown.Remaining
	closing      <-chan struct{}
	violations   chan error
	pingInterval time.Duration
	logger       *slog.Logger
	seq          uint64
}

func (s *stream) serve(ctx context.Context, cancel context.CancelFunc, ack protocol.ConnectionAck) {
	readerDone := make(chan struct{})
	go s.readLoop(cancel, readerDone)

	reason := "client_gone"
	defer func() {
		_ = s.conn.Close()
		<-readerDone
		s.logger.Info("countdown stream closed", "reason", reason, "frames", s.seq)
	}()

	if err := s.writeFrame(protocol.FrameTypeConnectionAck, ack); err != nil {
		reason = "write_failed"
		return
	}

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case rem := <-s.emissions:
			s.seq++
			if rem.Expired {
				reason = "expired"
				err := s.writeFrame(protocol.FrameTypeExpired, protocol.Expired{
					Sequence: s.seq,
					Deadline: deadlineString(s.handle.Deadline()),
				})
				if err == nil {
					s.close(errmap.CloseCountdownExpired, readerDone)
				}
				return
			}
			if err := s.writeFrame(protocol.FrameTypeTick, tickPayload(s.seq, rem)); err != nil {
				reason = "write_failed"
				return
			}

		case <-ping.C:
			deadline := time.Now().Add(domain.StreamWriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				reason = "ping_failed"
				return
			}

		case err := <-s.violations:
			reason = "client_message"
			s.fail(err, readerDone)
			return

		case <-s.closing:
			reason = "server_shutdown"
			_ = s.writeFrame(protocol.FrameTypeConnectionClosing, protocol.ConnectionClosing{
				Reason: errmap.CloseServerShutdown.Reason,
				Code:   errmap.CloseServerShutdown.Code,
			})
			s.close(errmap.CloseServerShutdown, readerDone)
			return

		case <-ctx.Done():
			return
		}
	}
}

// readLoop reports client data frames as violations and cancels the stream
// when the connection fails, closes or stops answering pings.
func (s *stream) readLoop(cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)
	defer cancel()

	pongWait := 2 * s.pingInterval
	s.conn.SetReadLimit(domain.StreamReadLimitBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
		select {
		case s.violations <- errClientMessage:
		default:
		}
	}
}

func (s *stream) writeFrame(t protocol.FrameType, payload any) error {
	frame, err := protocol.NewFrame(t, payload)
	if err != nil {
		return fmt.Errorf("build %s frame: %w", t, err)
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(domain.StreamWriteTimeout))
	if err := s.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", t, err)
	}
	return nil
}

// fail reports err to the peer as an error frame, then closes with the close
// code errmap assigns to it.
func (s *stream) fail(err error, readerDone <-chan struct{}) {
	httpErr := errmap.ToHTTPError(err)
	s.logger.Debug("countdown stream failed", "error", err, "code", httpErr.Code)
	if werr := s.writeFrame(protocol.FrameTypeError, protocol.Error{
		Code:    httpErr.Code,
		Message: httpErr.Message,
	}); werr != nil {
		return
	}
	s.close(errmap.ToWebSocketClose(err), readerDone)
}

// close sends a close frame and waits briefly for the peer to answer.
func (s *stream) close(c errmap.WebSocketClose, readerDone <-chan struct{}) {
	msg := websocket.FormatCloseMessage(c.Code, c.Reason)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(domain.StreamWriteTimeout)); err != nil {
		return
	}
	select {
	case <-readerDone:
	case <-time.After(closeGracePeriod):
	}
}

func tickPayload(seq uint64, rem countdown.Remaining) protocol.Tick {
	return protocol.Tick{
		Sequence: seq,
		Days:     rem.Days,
		Hours:    rem.Hours,
		Minutes:  rem.Minutes,
		Seconds:  rem.Seconds,
		Display:  rem.String(),
	}
}

func deadlineString(d countdown.Deadline) string {
	if !d.Valid() {
		return ""
	}
	return d.String()
}
