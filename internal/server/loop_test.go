package server

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"coinrush/internal/game"
	"coinrush/internal/protocol"
)

func readState(t *testing.T, fc *fakeConn) protocol.StateMessage {
	t.Helper()
	select {
	case data := <-fc.out:
		var dec protocol.Decoder
		msgs := dec.Feed(data)
		if len(msgs) != 1 || msgs[0].Type != protocol.MsgState {
			t.Fatalf("expected one state message, got %+v", msgs)
		}
		var st protocol.StateMessage
		if err := json.Unmarshal(msgs[0].Data, &st); err != nil {
			t.Fatalf("unmarshal state: %v", err)
		}
		return st
	case <-time.After(2 * time.Second):
		t.Fatalf("no broadcast received")
		return protocol.StateMessage{}
	}
}

func findPlayer(t *testing.T, st protocol.StateMessage, id uint64) protocol.Player {
	t.Helper()
	for _, p := range st.Players {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("player %d missing from state %+v", id, st)
	return protocol.Player{}
}

func TestStepIntegratesInputAndBroadcasts(t *testing.T) {
	cfg := quietConfig()
	h := newTestHub(cfg)

	fcA := newFakeConn()
	sA := h.newSession(fcA)
	go sA.writeLoop()
	idA := h.Register(sA, "mover")

	fcB := newFakeConn()
	sB := h.newSession(fcB)
	go sB.writeLoop()
	idB := h.Register(sB, "idler")

	before := h.Snapshot()
	startA := findInSnapshot(t, before, idA)
	startB := findInSnapshot(t, before, idB)

	h.UpdateInput(idA, game.Input{Right: true})
	h.step(time.Now())

	st := readState(t, fcA)
	gotA := findPlayer(t, st, idA)
	gotB := findPlayer(t, st, idB)

	wantX := math.Min(startA.X+cfg.MoveSpeed*cfg.TickSeconds(), cfg.MapWidth-cfg.PlayerRadius)
	if math.Abs(gotA.X-wantX) > 1e-9 || gotA.Y != startA.Y {
		t.Fatalf("mover at (%v, %v), want (%v, %v)", gotA.X, gotA.Y, wantX, startA.Y)
	}

	// A player that joined but never sent input stays exactly at spawn.
	if gotB.X != startB.X || gotB.Y != startB.Y {
		t.Fatalf("idler moved from (%v, %v) to (%v, %v)", startB.X, startB.Y, gotB.X, gotB.Y)
	}

	// Both subscribers receive the same snapshot.
	stB := readState(t, fcB)
	if len(stB.Players) != 2 {
		t.Fatalf("second subscriber saw %d players, want 2", len(stB.Players))
	}
}

func findInSnapshot(t *testing.T, snap []game.Player, id uint64) game.Player {
	t.Helper()
	for _, p := range snap {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("player %d missing from snapshot", id)
	return game.Player{}
}

func TestStepSpawnsAndBroadcastsCoins(t *testing.T) {
	cfg := quietConfig()
	cfg.MaxCoins = 1
	h := newTestHub(cfg)

	fc := newFakeConn()
	s := h.newSession(fc)
	go s.writeLoop()
	h.Register(s, "watcher")

	// A coin can be collected the same tick it spawns if it lands on the
	// player, so assert the capacity bound and coin placement over several
	// ticks instead of one exact count.
	now := time.Now()
	sawCoin := false
	for i := 0; i < 5; i++ {
		h.step(now.Add(time.Duration(i) * (cfg.CoinSpawnInterval + time.Millisecond)))
		st := readState(t, fc)
		if len(st.Coins) > cfg.MaxCoins {
			t.Fatalf("tick %d: %d coins exceed capacity %d", i, len(st.Coins), cfg.MaxCoins)
		}
		for _, coin := range st.Coins {
			sawCoin = true
			if coin.X < cfg.CoinSpawnMargin || coin.X > cfg.MapWidth-cfg.CoinSpawnMargin {
				t.Fatalf("coin x = %v outside spawn margin", coin.X)
			}
			if coin.Y < cfg.CoinSpawnMargin || coin.Y > cfg.MapHeight-cfg.CoinSpawnMargin {
				t.Fatalf("coin y = %v outside spawn margin", coin.Y)
			}
		}
	}
	if !sawCoin {
		t.Fatalf("no coin ever broadcast across 5 spawn windows")
	}
}

func TestStepKeepsPlayersInBoundsUnderSustainedInput(t *testing.T) {
	cfg := quietConfig()
	h := newTestHub(cfg)

	fc := newFakeConn()
	s := h.newSession(fc)
	go s.writeLoop()
	id := h.Register(s, "runner")
	h.UpdateInput(id, game.Input{Down: true, Right: true})

	// Long enough to cross the whole map.
	ticks := int(cfg.MapWidth/(cfg.MoveSpeed*cfg.TickSeconds())) + 20
	now := time.Now()
	for i := 0; i < ticks; i++ {
		h.step(now.Add(time.Duration(i) * cfg.TickInterval()))
		// Drain so the fake conn's queue never trips the drop policy. The
		// receive must block: a non-blocking drain can starve writeLoop on a
		// single CPU and overflow the send queue.
		<-fc.out
	}

	p := findInSnapshot(t, h.Snapshot(), id)
	if p.X != cfg.MapWidth-cfg.PlayerRadius || p.Y != cfg.MapHeight-cfg.PlayerRadius {
		t.Fatalf("player at (%v, %v), want pinned at bottom-right bound", p.X, p.Y)
	}
}

func TestStepAfterDisconnectExcludesDepartedPlayer(t *testing.T) {
	cfg := quietConfig()
	h := newTestHub(cfg)

	fcA := newFakeConn()
	sA := h.newSession(fcA)
	go sA.writeLoop()
	idA := h.Register(sA, "stayer")

	sB, _ := h.registerFake(t, "leaver")
	h.Unregister(sB)

	h.step(time.Now())

	st := readState(t, fcA)
	if len(st.Players) != 1 {
		t.Fatalf("expected 1 player in snapshot, got %d", len(st.Players))
	}
	if st.Players[0].ID != idA {
		t.Fatalf("snapshot lists %d, want %d", st.Players[0].ID, idA)
	}
}
