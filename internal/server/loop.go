package server

import (
	"context"
	"log"
	"time"

	"coinrush/internal/game"
	"coinrush/internal/logging"
	"coinrush/internal/protocol"
)

// Run drives the authoritative simulation at the configured tick rate until
// the context is cancelled. An iteration that overruns its period is not
// compensated for; the ticker simply drops the missed ticks.
func (h *Hub) Run(ctx context.Context) {
	interval := h.cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			started := time.Now()
			h.step(now)
			if elapsed := time.Since(started); elapsed > interval {
				h.publisher.Publish(ctx, logging.Event{
					Type:     logging.EventTickOverrun,
					Tick:     h.tick.Load(),
					Time:     now,
					Severity: logging.SeverityWarn,
					Extra:    map[string]any{"elapsed": elapsed.String()},
				})
			}
		}
	}
}

// step runs one fixed-timestep tick: spawn, snapshot, integrate, sweep,
// write back, broadcast. The registry lock is taken twice and only briefly;
// physics runs on the snapshot.
func (h *Hub) step(now time.Time) {
	dt := h.cfg.TickSeconds()
	tick := h.tick.Add(1)

	h.mu.Lock()
	spawned, ok := h.world.MaybeSpawnCoin(now)
	snapshot := h.snapshotLocked()
	coins := h.world.Coins()
	targets := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	if ok {
		h.publisher.Publish(context.Background(), logging.Event{
			Type:     logging.EventCoinSpawned,
			Tick:     tick,
			Time:     now,
			Severity: logging.SeverityDebug,
			Extra:    map[string]any{"coin": spawned.ID},
		})
	}

	for i := range snapshot {
		game.Integrate(&snapshot[i], dt, h.cfg)
	}
	pickups := game.SweepCoins(snapshot, coins, h.cfg)

	h.mu.Lock()
	for _, p := range snapshot {
		if live, stillHere := h.players[p.ID]; stillHere {
			live.X = p.X
			live.Y = p.Y
			live.Score = p.Score
		}
	}
	h.world.RemoveCoins(pickups)
	remaining := h.world.Coins()
	h.mu.Unlock()

	for _, pu := range pickups {
		h.publisher.Publish(context.Background(), logging.Event{
			Type:     logging.EventCoinCollected,
			Tick:     tick,
			Time:     now,
			Severity: logging.SeverityInfo,
			PlayerID: pu.PlayerID,
			Extra:    map[string]any{"coin": pu.CoinID},
		})
	}

	h.broadcast(buildState(snapshot, remaining), targets)
}

// buildState converts the tick's player snapshot and surviving coins into
// the wire message.
func buildState(players []game.Player, coins []game.Coin) protocol.StateMessage {
	msg := protocol.StateMessage{
		Type:    protocol.MsgState,
		Players: make([]protocol.Player, 0, len(players)),
		Coins:   make([]protocol.Coin, 0, len(coins)),
	}
	for _, p := range players {
		msg.Players = append(msg.Players, protocol.Player{ID: p.ID, X: p.X, Y: p.Y, Score: p.Score})
	}
	for _, c := range coins {
		msg.Coins = append(msg.Coins, protocol.Coin{ID: c.ID, X: c.X, Y: c.Y})
	}
	return msg
}

// broadcast delivers one snapshot to every session registered at
// snapshot-build time. Sends to freshly departed sessions fail harmlessly;
// no send may stall another.
func (h *Hub) broadcast(msg protocol.StateMessage, targets []*session) {
	data, err := protocol.Encode(msg)
	if err != nil {
		log.Printf("failed to encode state message: %v", err)
		return
	}
	for _, s := range targets {
		s.deliver(data)
	}
}
