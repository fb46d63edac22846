package ws

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/okian/scoreboard/internal/adapters/http/params"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
)

// RoomParam is the chi URL parameter naming the game type.
const RoomParam = "game_type"

// BoardReader returns the ranked board sent to a client when it joins.
type BoardReader interface {
	Leaderboard(ctx context.Context, gameType string) ([]model.LeaderboardEntry, error)
}

// Handler upgrades GET /ws/leaderboard/{game_type} requests and subscribes
// the connection to that game type.
type Handler struct {
	hub      *Hub
	boards   BoardReader
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHandler returns a Handler. allowedOrigins limits the Origin header of
// cross-origin upgrades; "*" allows any origin and an empty list allows only
// same-host requests.
func NewHandler(hub *Hub, boards BoardReader, allowedOrigins []string) *Handler {
	h := &Handler{
		hub:    hub,
		boards: boards,
		logger: logger.Get().Named("ws"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = checkOrigin(allowedOrigins)
	}
	return h
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	room, err := params.Path(r, RoomParam)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(room) == "" {
		http.Error(w, ErrMissingRoom.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.boards.Leaderboard(ctx, room)
	if err != nil {
		h.logger.Error(ctx, "read board for new subscriber", logger.String("game_type", room), logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	initial, err := EncodeBoard(room, entries)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn(ctx, "websocket upgrade failed", logger.String("game_type", room), logger.Error(err))
		return
	}

	c := newClient(h.hub, conn, room)
	c.trySend(initial)
	if err := h.hub.Join(ctx, c); err != nil {
		c.close()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
