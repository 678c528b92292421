package client

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"coinrush/internal/protocol"
)

const (
	testWindow     = 100 * time.Millisecond
	testCorrection = 0.15
)

func newTestReconciler() *Reconciler {
	return NewReconciler(testWindow, testCorrection)
}

func state(players ...protocol.Player) protocol.StateMessage {
	return protocol.StateMessage{Type: protocol.MsgState, Players: players}
}

func TestFirstSightingYieldsReportedPositionExactly(t *testing.T) {
	r := newTestReconciler()
	r.ApplySnapshot(state(protocol.Player{ID: 2, X: 150, Y: 250}))

	x, y, ok := r.Position(2)
	if !ok {
		t.Fatalf("player 2 not tracked")
	}
	if x != 150 || y != 250 {
		t.Fatalf("position = (%v, %v), want (150, 250)", x, y)
	}
}

func TestRemoteInterpolatesAcrossWindow(t *testing.T) {
	r := newTestReconciler()
	r.ApplySnapshot(state(protocol.Player{ID: 2, X: 100, Y: 100}))
	r.ApplySnapshot(state(protocol.Player{ID: 2, X: 200, Y: 100}))

	// Half the window: halfway between prev and cur.
	r.Advance(testWindow.Seconds() / 2)
	x, _, _ := r.Position(2)
	if math.Abs(x-150) > 1e-9 {
		t.Fatalf("mid-window x = %v, want 150", x)
	}

	// Past the window: alpha clamps to 1 and the target is reported exactly.
	r.Advance(testWindow.Seconds() * 2)
	x, y, _ := r.Position(2)
	if x != 200 || y != 100 {
		t.Fatalf("post-window position = (%v, %v), want (200, 100)", x, y)
	}
}

func TestDepartedPlayerRemovedAfterFirstAbsence(t *testing.T) {
	r := newTestReconciler()
	r.ApplySnapshot(state(
		protocol.Player{ID: 1, X: 10, Y: 10},
		protocol.Player{ID: 2, X: 20, Y: 20},
	))
	r.ApplySnapshot(state(protocol.Player{ID: 1, X: 11, Y: 10}))

	if _, _, ok := r.Position(2); ok {
		t.Fatalf("expected player 2 to be dropped after one absent snapshot")
	}
	if ids := r.PlayerIDs(); len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("tracked ids = %v, want [1]", ids)
	}
}

func TestLocalCorrectionConvergesWithoutOvershoot(t *testing.T) {
	r := newTestReconciler()
	r.SetLocalID(1)
	r.ApplySnapshot(state(protocol.Player{ID: 1, X: 0, Y: 0}))
	// Authoritative position jumps once and then stays fixed.
	r.ApplySnapshot(state(protocol.Player{ID: 1, X: 100, Y: 0}))

	prevGap := math.Inf(1)
	for frame := 0; frame < 200; frame++ {
		r.Advance(1.0 / 60.0)
		x, _, ok := r.Position(1)
		if !ok {
			t.Fatalf("local player lost at frame %d", frame)
		}
		if x > 100 {
			t.Fatalf("frame %d: visual x = %v overshot the target", frame, x)
		}
		gap := 100 - x
		if gap > prevGap+1e-9 {
			t.Fatalf("frame %d: gap grew from %v to %v", frame, prevGap, gap)
		}
		prevGap = gap
	}
	if prevGap > 1 {
		t.Fatalf("visual position still %v away after 200 frames", prevGap)
	}
}

func TestLocalVisualNeverSnapsOnCorrection(t *testing.T) {
	r := newTestReconciler()
	r.SetLocalID(1)
	r.ApplySnapshot(state(protocol.Player{ID: 1, X: 0, Y: 0}))
	r.ApplySnapshot(state(protocol.Player{ID: 1, X: 100, Y: 0}))

	r.Advance(1.0 / 60.0)
	x, _, _ := r.Position(1)
	want := 100 * testCorrection
	if math.Abs(x-want) > 1e-9 {
		t.Fatalf("first corrected frame x = %v, want %v", x, want)
	}
}

func TestHandleWelcomeAndState(t *testing.T) {
	r := newTestReconciler()

	welcome, err := json.Marshal(protocol.NewWelcome(5))
	if err != nil {
		t.Fatalf("marshal welcome: %v", err)
	}
	if !r.Handle(protocol.Raw{Type: protocol.MsgWelcome, Data: welcome}) {
		t.Fatalf("welcome not handled")
	}
	if r.LocalID() != 5 {
		t.Fatalf("local id = %d, want 5", r.LocalID())
	}

	st, err := json.Marshal(state(protocol.Player{ID: 5, X: 1, Y: 2}))
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	if !r.Handle(protocol.Raw{Type: protocol.MsgState, Data: st}) {
		t.Fatalf("state not handled")
	}
	if _, _, ok := r.Position(5); !ok {
		t.Fatalf("player 5 not tracked after state")
	}

	if r.Handle(protocol.Raw{Type: "mystery", Data: []byte("{}")}) {
		t.Fatalf("unknown kind should be ignored")
	}
}

func TestSnapshotCoinsAndScoresCached(t *testing.T) {
	r := newTestReconciler()
	msg := state(protocol.Player{ID: 1, X: 0, Y: 0, Score: 3})
	msg.Coins = []protocol.Coin{{ID: 9, X: 40, Y: 50}}
	r.ApplySnapshot(msg)

	if score, ok := r.Score(1); !ok || score != 3 {
		t.Fatalf("score = %d (%v), want 3", score, ok)
	}
	coins := r.Coins()
	if len(coins) != 1 || coins[0].ID != 9 {
		t.Fatalf("coins = %+v, want id 9", coins)
	}
}
