package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/aelexs/marketplace-countdown/internal/domain"
	"github.com/aelexs/marketplace-countdown/pkg/protocol"
)

func newStreamCmd(e *env) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "stream [kind] [listing-id]",
		Short: "Follow a listing's countdown stream on countdownd",
		Long: `Connect to a running countdownd and print every tick of a listing's
countdown until it expires or the server closes the stream.

Examples:
  countdownctl stream auction vintage-camera
  countdownctl stream deal spring-sale --server http://countdown.internal:8080`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseListingKind(args[0])
			if err != nil {
				return err
			}
			id, err := domain.NewListingID(args[1])
			if err != nil {
				return err
			}

			wsURL, err := streamURL(server, kind, id)
			if err != nil {
				return err
			}

			conn, resp, err := websocket.DefaultDialer.DialContext(cmd.Context(), wsURL, nil)
			if err != nil {
				if resp != nil {
					_ = resp.Body.Close()
					return fmt.Errorf("dial %s: %s", wsURL, resp.Status)
				}
				return fmt.Errorf("dial %s: %w", wsURL, err)
			}
			defer conn.Close()

			// Unblock the read loop on interrupt.
			stop := context.AfterFunc(cmd.Context(), func() { _ = conn.Close() })
			defer stop()

			return followStream(cmd, conn, e)
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "countdownd base URL")

	return cmd
}

// streamURL turns an http(s) base URL into the listing's ws(s) stream URL.
func streamURL(base string, kind domain.ListingKind, id domain.ListingID) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/countdowns/" + string(kind) + "/" + id.String() + "/stream"
	return u.String(), nil
}

func followStream(cmd *cobra.Command, conn *websocket.Conn, e *env) error {
	out := cmd.OutOrStdout()
	for {
		var frame protocol.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return nil
			}
			if cmd.Context().Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		switch frame.Type {
		case protocol.FrameTypeConnectionAck:
			var ack protocol.ConnectionAck
			if err := frame.ParsePayload(&ack); err != nil {
				return fmt.Errorf("parse ack: %w", err)
			}
			e.logger.Info("stream connected",
				"connection_id", ack.ConnectionID, "deadline", ack.Deadline)

		case protocol.FrameTypeTick:
			var tick protocol.Tick
			if err := frame.ParsePayload(&tick); err != nil {
				return fmt.Errorf("parse tick: %w", err)
			}
			fmt.Fprintln(out, tick.Display)

		case protocol.FrameTypeExpired:
			fmt.Fprintln(out, "expired")

		case protocol.FrameTypeConnectionClosing:
			var closing protocol.ConnectionClosing
			_ = frame.ParsePayload(&closing)
			return fmt.Errorf("server closing stream: %s", closing.Reason)

		case protocol.FrameTypeError:
			var perr protocol.Error
			_ = frame.ParsePayload(&perr)
			return fmt.Errorf("stream error %s: %s", perr.Code, perr.Message)
		}
	}
}
