// Package client consumes authoritative snapshots under latency and jitter
// and produces smooth positions for rendering. It never owns the truth; the
// server does.
package client

import (
	"encoding/json"
	"sort"
	"time"

	"coinrush/internal/protocol"
)

// entity is the per-player interpolation record. prev/cur bracket the two
// most recent reported positions; the visual position exists only for the
// locally-controlled player.
type entity struct {
	prevX, prevY float64
	curX, curY   float64
	elapsed      float64 // seconds since the last snapshot listed this id
	score        int

	visualX, visualY float64
}

// Reconciler turns discrete state snapshots into continuous positions.
// Remote players interpolate between their last two reported positions over
// a fixed window; the local player blends a persistent visual position
// toward the authoritative one so corrections never snap.
type Reconciler struct {
	entities map[uint64]*entity
	coins    []protocol.Coin

	localID      uint64
	interpWindow float64 // seconds
	correction   float64
}

// NewReconciler builds a reconciler with the given interpolation window and
// local correction rate.
func NewReconciler(interpWindow time.Duration, correctionRate float64) *Reconciler {
	return &Reconciler{
		entities:     make(map[uint64]*entity),
		interpWindow: interpWindow.Seconds(),
		correction:   correctionRate,
	}
}

// SetLocalID marks which player id is controlled locally, normally from the
// welcome message.
func (r *Reconciler) SetLocalID(id uint64) {
	r.localID = id
}

// LocalID returns the locally-controlled player id, zero before welcome.
func (r *Reconciler) LocalID() uint64 {
	return r.localID
}

// Handle applies one decoded message. Welcome and state messages are
// consumed; anything else is ignored and reported as unhandled.
func (r *Reconciler) Handle(raw protocol.Raw) bool {
	switch raw.Type {
	case protocol.MsgWelcome:
		var m protocol.WelcomeMessage
		if err := json.Unmarshal(raw.Data, &m); err != nil {
			return false
		}
		r.SetLocalID(m.ID)
		return true
	case protocol.MsgState:
		var m protocol.StateMessage
		if err := json.Unmarshal(raw.Data, &m); err != nil {
			return false
		}
		r.ApplySnapshot(m)
		return true
	}
	return false
}

// ApplySnapshot ingests one authoritative snapshot. First-seen players get
// prev==cur so they appear without visible motion; known players shift
// cur→prev and restart the interpolation timer; ids missing from the
// snapshot are dropped immediately as departed.
func (r *Reconciler) ApplySnapshot(st protocol.StateMessage) {
	seen := make(map[uint64]struct{}, len(st.Players))

	for _, p := range st.Players {
		seen[p.ID] = struct{}{}
		e, ok := r.entities[p.ID]
		if !ok {
			r.entities[p.ID] = &entity{
				prevX: p.X, prevY: p.Y,
				curX: p.X, curY: p.Y,
				visualX: p.X, visualY: p.Y,
				score: p.Score,
			}
			continue
		}
		e.prevX, e.prevY = e.curX, e.curY
		e.curX, e.curY = p.X, p.Y
		e.elapsed = 0
		e.score = p.Score
	}

	for id := range r.entities {
		if _, ok := seen[id]; !ok {
			delete(r.entities, id)
		}
	}

	r.coins = append(r.coins[:0], st.Coins...)
}

// Advance moves every interpolation timer forward by one frame delta and
// blends the local player's visual position toward the authoritative one.
func (r *Reconciler) Advance(dt float64) {
	for id, e := range r.entities {
		e.elapsed += dt
		if id == r.localID {
			e.visualX += (e.curX - e.visualX) * r.correction
			e.visualY += (e.curY - e.visualY) * r.correction
		}
	}
}

// Position derives the drawn position for a player. Remote entities lerp
// from prev to cur with alpha clamped at one; the local entity reports its
// blended visual position.
func (r *Reconciler) Position(id uint64) (x, y float64, ok bool) {
	e, ok := r.entities[id]
	if !ok {
		return 0, 0, false
	}
	if id == r.localID {
		return e.visualX, e.visualY, true
	}
	alpha := 1.0
	if r.interpWindow > 0 {
		alpha = e.elapsed / r.interpWindow
		if alpha > 1 {
			alpha = 1
		}
	}
	return e.prevX + (e.curX-e.prevX)*alpha, e.prevY + (e.curY-e.prevY)*alpha, true
}

// Score returns the cached score for a tracked player.
func (r *Reconciler) Score(id uint64) (int, bool) {
	e, ok := r.entities[id]
	if !ok {
		return 0, false
	}
	return e.score, true
}

// Coins returns the coin set from the latest snapshot.
func (r *Reconciler) Coins() []protocol.Coin {
	out := make([]protocol.Coin, len(r.coins))
	copy(out, r.coins)
	return out
}

// PlayerIDs lists every tracked player in ascending order.
func (r *Reconciler) PlayerIDs() []uint64 {
	ids := make([]uint64, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
