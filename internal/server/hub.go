// Package server hosts the authoritative side: the connection registry, the
// fixed-tick simulation loop, and the TCP and websocket transports.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"coinrush/internal/game"
	"coinrush/internal/logging"
	"coinrush/internal/protocol"
)

// Hub owns the world state and the registry of live connections. It is the
// single writer of player positions and scores; connection goroutines only
// touch their own player's pending input through UpdateInput.
type Hub struct {
	cfg       game.Config
	publisher logging.Publisher

	mu       sync.Mutex
	world    *game.World
	players  map[uint64]*game.Player
	sessions map[uint64]*session

	nextID atomic.Uint64
	tick   atomic.Uint64
}

// NewHub constructs a hub around a fresh world. A zero seed randomizes
// spawns from the clock.
func NewHub(cfg game.Config, publisher logging.Publisher, seed int64) *Hub {
	if publisher == nil {
		publisher = logging.NopPublisher{}
	}
	world := game.NewWorld(cfg, seed)
	return &Hub{
		cfg:       world.Config(),
		publisher: publisher,
		world:     world,
		players:   make(map[uint64]*game.Player),
		sessions:  make(map[uint64]*session),
	}
}

// Config returns the normalized tuning the hub runs with.
func (h *Hub) Config() game.Config {
	return h.cfg
}

// Register allocates the next player id and creates the player at a random
// spawn position with zero score and neutral input. Safe under concurrent
// joins. Registration on a session that has already been unregistered is
// refused with a zero id: a join delayed by the inbound latency shim can
// arrive after the read loop tore the connection down, and inserting then
// would leave a player nothing will ever remove.
func (h *Hub) Register(s *session, name string) uint64 {
	id := h.nextID.Add(1)

	h.mu.Lock()
	if s.dead {
		h.mu.Unlock()
		return 0
	}
	x, y := h.world.SpawnPosition()
	h.players[id] = &game.Player{ID: id, X: x, Y: y}
	h.sessions[id] = s
	s.setPlayer(id)
	h.mu.Unlock()

	h.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventPlayerJoined,
		Tick:     h.tick.Load(),
		Time:     time.Now(),
		Severity: logging.SeverityInfo,
		PlayerID: id,
		Extra:    map[string]any{"name": name, "session": s.sid.String(), "addr": s.conn.RemoteAddr()},
	})
	return id
}

// UpdateInput replaces the pending input for a player. A concurrently
// removed player makes this a silent no-op.
func (h *Hub) UpdateInput(playerID uint64, in game.Input) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.players[playerID]; ok {
		p.Input = in
	}
}

// Unregister removes the session's player and closes the connection.
// Idempotent; safe to call from the read loop, the write loop, and the
// broadcast path.
func (h *Hub) Unregister(s *session) {
	h.mu.Lock()
	s.dead = true
	id := s.player()
	removed := false
	if id != 0 && h.sessions[id] == s {
		delete(h.sessions, id)
		delete(h.players, id)
		removed = true
	}
	h.mu.Unlock()

	s.close()

	if removed {
		h.publisher.Publish(context.Background(), logging.Event{
			Type:     logging.EventPlayerLeft,
			Tick:     h.tick.Load(),
			Time:     time.Now(),
			Severity: logging.SeverityInfo,
			PlayerID: id,
		})
	}
}

// Snapshot returns a point-in-time copy of all registered players in
// ascending id order. The lock is held only for the copy, never across
// physics work.
func (h *Hub) Snapshot() []game.Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() []game.Player {
	players := make([]game.Player, 0, len(h.players))
	for _, p := range h.players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// PlayerCount reports the number of registered players.
func (h *Hub) PlayerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.players)
}

// serveSession runs one connection's read loop: rate-limit, apply inbound
// latency, dispatch. Every exit path unregisters exactly once.
func (h *Hub) serveSession(ctx context.Context, s *session) {
	defer h.Unregister(s)

	go s.writeLoop()

	// Inbound frames beyond a multiple of the expected input rate are
	// dropped rather than processed.
	limiter := rate.NewLimiter(rate.Limit(h.cfg.InputSendRate*4), h.cfg.InputSendRate*4)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		raw, err := s.conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("session %s: read ended: %v", s.sid, err)
			}
			return
		}
		if !limiter.Allow() {
			continue
		}

		msg := raw
		s.inDelay.Do(func() {
			h.dispatch(s, msg)
		})
	}
}

// dispatch handles one inbound message. Unknown kinds and payloads that
// fail to decode are ignored without a response.
func (h *Hub) dispatch(s *session, raw protocol.Raw) {
	switch raw.Type {
	case protocol.MsgJoin:
		if s.player() != 0 {
			return
		}
		var m protocol.JoinMessage
		if err := json.Unmarshal(raw.Data, &m); err != nil {
			return
		}
		id := h.Register(s, m.Name)
		if id == 0 {
			return
		}
		data, err := protocol.Encode(protocol.NewWelcome(id))
		if err != nil {
			log.Printf("session %s: encode welcome: %v", s.sid, err)
			return
		}
		s.deliver(data)

	case protocol.MsgInput:
		id := s.player()
		if id == 0 {
			return
		}
		var m protocol.InputMessage
		if err := json.Unmarshal(raw.Data, &m); err != nil {
			return
		}
		h.UpdateInput(id, game.Input{
			Up:    m.Keys.Up,
			Down:  m.Keys.Down,
			Left:  m.Keys.Left,
			Right: m.Keys.Right,
		})
	}
}
