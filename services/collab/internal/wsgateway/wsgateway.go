// Package wsgateway is the single outbound WebSocket connection to the
// external HTTP/WebSocket gateway. Each process holds exactly one
// connection; sends are serialized on it, and a dropped connection is
// redialed on the next send or receive.
package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cs3219-g21/roommanager/internal/logging"
	"github.com/cs3219-g21/roommanager/internal/models"
)

// ErrNotConnected is returned by Send/Receive when no gateway URL is
// configured (standalone/test mode).
var ErrNotConnected = errors.New("wsgateway: no active connection")

// Gateway holds the one process-wide connection to the gateway and
// serializes access to it.
type Gateway struct {
	url string
	log *logging.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(url string, log *logging.Logger) *Gateway {
	return &Gateway{url: url, log: log}
}

// Connect dials the gateway once at startup. A blank url disables the
// connection entirely (useful for tests/standalone runs).
func (g *Gateway) Connect(ctx context.Context) error {
	if g.url == "" {
		g.log.Info("wsgateway: no GATEWAY_WEBSOCKET_URL configured, notifications disabled")
		return nil
	}
	return g.dial(ctx)
}

func (g *Gateway) dial(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dialLocked(ctx)
}

// dialLocked redials the gateway. Callers must hold g.mu.
func (g *Gateway) dialLocked(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return err
	}
	g.conn = conn
	return nil
}

// Close tears down the connection on process shutdown.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		return nil
	}
	err := g.conn.Close()
	g.conn = nil
	return err
}

// Send transmits one notification frame (partner_left/partner_join/
// match_terminate). Failures are logged by the caller, never fatal to the
// local state transition.
func (g *Gateway) Send(ctx context.Context, frame models.GatewayFrame) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		if g.url == "" {
			return ErrNotConnected
		}
		if err := g.dialLocked(ctx); err != nil {
			return err
		}
	}
	body, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := g.conn.WriteMessage(websocket.TextMessage, body); err != nil {
		g.log.Warn("wsgateway: send failed, reconnecting", err)
		g.conn = nil
		if dialErr := g.dialLocked(ctx); dialErr != nil {
			return dialErr
		}
		return g.conn.WriteMessage(websocket.TextMessage, body)
	}
	return nil
}

// Receive blocks for up to waitFor for one inbound frame (heartbeat pings
// forwarded by the gateway); the bounded wait lets the caller check for
// shutdown periodically. A timeout is reported as (zero value, false, nil),
// distinct from a hard connection error.
func (g *Gateway) Receive(ctx context.Context, waitFor time.Duration) (models.InboundFrame, bool, error) {
	g.mu.Lock()
	if g.conn == nil && g.url != "" {
		if err := g.dialLocked(ctx); err != nil {
			g.mu.Unlock()
			return models.InboundFrame{}, false, err
		}
	}
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return models.InboundFrame{}, false, ErrNotConnected
	}

	_ = conn.SetReadDeadline(time.Now().Add(waitFor))
	_, data, err := conn.ReadMessage()
	if err != nil {
		if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
			return models.InboundFrame{}, false, nil
		}
		g.log.Warn("wsgateway: connection closed, reconnecting", err)
		g.mu.Lock()
		g.conn = nil
		g.mu.Unlock()
		if dialErr := g.dial(ctx); dialErr != nil {
			return models.InboundFrame{}, false, dialErr
		}
		return models.InboundFrame{}, false, nil
	}

	var frame models.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		g.log.Warn("wsgateway: received non-JSON message", string(data))
		return models.InboundFrame{}, false, nil
	}
	return frame, true, nil
}
