// Package protocol defines the countdown stream wire format.
// Every WebSocket text message is one Frame.
package protocol

import "encoding/json"

// FrameType identifies the type of WebSocket frame.
type FrameType string

const (
	// Connection lifecycle
	FrameTypeConnectionAck     FrameType = "connection_ack"
	FrameTypeConnectionClosing FrameType = "connection_closing"

	// Countdown
	FrameTypeTick    FrameType = "tick"
	FrameTypeExpired FrameType = "expired"

	// Errors
	FrameTypeError FrameType = "error"
)

// Frame is the base structure for all WebSocket frames.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectionAck is sent by the server after a successful WebSocket upgrade,
// before the first tick. Deadline is empty when the listing has none.
type ConnectionAck struct {
	ConnectionID        string `json:"connection_id"`
	ListingKind         string `json:"listing_kind"`
	ListingID           string `json:"listing_id"`
	Deadline            string `json:"deadline,omitempty"`
	TickIntervalMs      int64  `json:"tick_interval_ms"`
	HeartbeatIntervalMs int64  `json:"heartbeat_interval_ms"`
}

// ConnectionClosing is sent by the server before closing the connection.
type ConnectionClosing struct {
	Reason string `json:"reason"`
	Code   int    `json:"code"`
}

// Tick carries one countdown emission. Sequence starts at 1 and increases
// by one per frame on a connection.
type Tick struct {
	Sequence uint64 `json:"sequence"`
	Days     int64  `json:"days"`
	Hours    int    `json:"hours"`
	Minutes  int    `json:"minutes"`
	Seconds  int    `json:"seconds"`
	Display  string `json:"display"`
}

// Expired is the terminal countdown frame. No tick follows it.
type Expired struct {
	Sequence uint64 `json:"sequence"`
	Deadline string `json:"deadline,omitempty"`
}

// Error is sent by the server to report an error.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewFrame creates a Frame with the given type and payload.
func NewFrame(frameType FrameType, payload interface{}) (*Frame, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &Frame{
		Type:    frameType,
		Payload: payloadBytes,
	}, nil
}

// ParsePayload unmarshals the frame payload into the given struct.
func (f *Frame) ParsePayload(v interface{}) error {
	if f.Payload == nil {
		return nil
	}
	return json.Unmarshal(f.Payload, v)
}
