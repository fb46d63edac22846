// Package ws pushes ranked leaderboards to websocket subscribers. Each game
// type is a room; a client joins exactly one room.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// MessageTypeLeaderboard tags a full-board update.
const MessageTypeLeaderboard = "leaderboard"

// Hub tracks clients by room and fans messages out to them.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients int
	closed  bool

	logger logger.Logger
}

// NewHub returns a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		logger:     logger.Get().Named("ws-hub"),
	}
}

// Run processes joins and leaves until ctx is done, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.room]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.room] = room
	}
	room[c] = struct{}{}
	h.clients++
	metrics.UpdateWebsocketClients(h.clients)
	h.logger.Debug(context.Background(), "client joined",
		logger.String("game_type", c.room),
		logger.Int("room_clients", len(room)),
	)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	c.close()
	h.clients--
	if len(room) == 0 {
		delete(h.rooms, c.room)
	}
	metrics.UpdateWebsocketClients(h.clients)
	h.logger.Debug(context.Background(), "client left", logger.String("game_type", c.room))
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	close(h.done)
	for name, room := range h.rooms {
		for c := range room {
			c.close()
		}
		delete(h.rooms, name)
	}
	h.clients = 0
	metrics.UpdateWebsocketClients(0)
}

// Join registers c with the hub.
func (h *Hub) Join(ctx context.Context, c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave unregisters c. It is a no-op once the hub has stopped.
func (h *Hub) Leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Clients returns the number of clients in room, or across all rooms when
// room is empty.
func (h *Hub) Clients(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room == "" {
		return h.clients
	}
	return len(h.rooms[room])
}

// EncodeBoard builds the message sent for a game type's board.
func EncodeBoard(gameType string, entries []model.LeaderboardEntry) ([]byte, error) {
	return json.Marshal(types.BoardUpdate{
		Type:     MessageTypeLeaderboard,
		GameType: gameType,
		Entries:  types.FromEntries(entries),
	})
}

// Broadcast sends the board to every client in the gameType room. Clients
// whose send buffer is full miss this update.
func (h *Hub) Broadcast(gameType string, entries []model.LeaderboardEntry) error {
	msg, err := EncodeBoard(gameType, entries)
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}
	for c := range h.rooms[gameType] {
		if !c.trySend(msg) {
			h.logger.Warn(context.Background(), "client send buffer full, update skipped",
				logger.String("game_type", gameType),
			)
		}
	}
	return nil
}
