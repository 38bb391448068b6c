package broadcast

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades viewer connections and hands them to the hub.
type Handler struct {
	hub      *Hub
	ctx      context.Context
	upgrader websocket.Upgrader
}

// NewHandler ties client pumps to ctx rather than the request, so they
// outlive the upgrade call and stop on shutdown. An empty origin list or a
// "*" entry accepts any origin.
func NewHandler(ctx context.Context, hub *Hub, allowedOrigins []string) *Handler {
	h := &Handler{hub: hub, ctx: ctx}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeWS godoc
// @Summary      Live score stream
// @Description  Upgrades to a websocket. Send {"type":"subscribe","match_id":"..."} to receive a snapshot followed by deltas.
// @Tags         Broadcast
// @Router       /ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err, "remote", c.ClientIP())
		return
	}

	cl := NewClient(uuid.New().String(), conn, h.hub)
	go cl.WritePump(h.ctx)
	go cl.ReadPump(h.ctx)

	// A subscription can ride on the upgrade request itself.
	if matchID := c.Query("match_id"); matchID != "" {
		go h.hub.Subscribe(h.ctx, cl.sub, matchID)
	}
	slog.Debug("WebSocket connection established", "client_id", cl.ID())
}

// Stats godoc
// @Summary      Broadcast hub counters
// @Tags         Broadcast
// @Produce      json
// @Success      200  {object}  Stats
// @Router       /ws/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Stats())
}
