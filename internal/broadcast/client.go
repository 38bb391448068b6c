package broadcast

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// Client is one websocket viewer. Viewers only ever send subscribe and
// unsubscribe requests; everything else flows outward.
type Client struct {
	sub  *Subscriber
	conn *websocket.Conn
	hub  *Hub
}

func NewClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		sub:  NewSubscriber(id, hub.ClientBuffer()),
		conn: conn,
		hub:  hub,
	}
}

func (c *Client) ID() string {
	return c.sub.ID
}

// ReadPump reads viewer requests until the connection fails, then removes
// the client from the hub.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Remove(ctx, c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Viewer closed unexpectedly", "client_id", c.sub.ID, "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		c.handle(ctx, msg)
	}
}

func (c *Client) handle(ctx context.Context, msg ClientMessage) {
	matchID := strings.TrimSpace(msg.MatchID)
	switch msg.Type {
	case MessageTypeSubscribe:
		if matchID == "" {
			c.sub.TrySend(errorMessage("", "bad_request", "match_id is required"))
			return
		}
		c.hub.Subscribe(ctx, c.sub, matchID)
	case MessageTypeUnsubscribe:
		c.hub.Unsubscribe(ctx, c.sub, matchID)
	default:
		c.sub.TrySend(errorMessage(matchID, "bad_request", "unknown message type "+msg.Type))
	}
}

// WritePump writes queued messages and keepalive pings. It returns when the
// hub closes the queue or a write fails.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case message, ok := <-c.sub.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// dropped by the hub
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				slog.Debug("Viewer write failed", "client_id", c.sub.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
