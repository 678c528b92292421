// coinrush is a headless demo client. It joins the server, drives its
// player with scripted input, and reports the reconciled (interpolated)
// positions a renderer would draw. Rendering itself is left to external
// frontends; this binary exercises the full client stack without one.
package main

import (
	"flag"
	"log"
	"time"

	"coinrush/internal/client"
	"coinrush/internal/game"
	"coinrush/internal/protocol"
)

const frameRate = 60

func main() {
	var (
		addr     string
		name     string
		duration time.Duration
	)
	cfg := game.DefaultConfig()
	flag.StringVar(&addr, "addr", cfg.Addr(), "server TCP address")
	flag.StringVar(&name, "name", "bot", "display name sent on join")
	flag.DurationVar(&duration, "duration", 30*time.Second, "how long to play")
	flag.Parse()

	c, err := client.Dial(addr, client.Options{InputSendRate: cfg.InputSendRate})
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer c.Close()

	if err := c.Join(name); err != nil {
		log.Fatalf("join: %v", err)
	}
	log.Printf("joined %s as %q", addr, name)

	rec := client.NewReconciler(cfg.InterpWindow, cfg.CorrectionRate)

	frames := time.NewTicker(time.Second / frameRate)
	defer frames.Stop()
	report := time.NewTicker(time.Second)
	defer report.Stop()
	stopAt := time.Now().Add(duration)

	last := time.Now()
	for now := range frames.C {
		if now.After(stopAt) || c.Closed() {
			break
		}
		dt := now.Sub(last).Seconds()
		last = now

		for _, raw := range c.Poll() {
			rec.Handle(raw)
		}
		rec.Advance(dt)

		if keys, ok := chaseNearestCoin(rec); ok {
			if err := c.SendInput(keys, now); err != nil {
				log.Printf("send input: %v", err)
			}
		}

		select {
		case <-report.C:
			logStatus(rec)
		default:
		}
	}

	logStatus(rec)
	log.Printf("done")
}

// chaseNearestCoin steers toward the closest coin, or goes idle when none
// are up yet.
func chaseNearestCoin(rec *client.Reconciler) (protocol.InputKeys, bool) {
	id := rec.LocalID()
	if id == 0 {
		return protocol.InputKeys{}, false
	}
	x, y, ok := rec.Position(id)
	if !ok {
		return protocol.InputKeys{}, false
	}

	coins := rec.Coins()
	if len(coins) == 0 {
		return protocol.InputKeys{}, true
	}

	target := coins[0]
	best := sq(target.X-x) + sq(target.Y-y)
	for _, c := range coins[1:] {
		if d := sq(c.X-x) + sq(c.Y-y); d < best {
			best = d
			target = c
		}
	}

	const deadzone = 2.0
	return protocol.InputKeys{
		Up:    target.Y < y-deadzone,
		Down:  target.Y > y+deadzone,
		Left:  target.X < x-deadzone,
		Right: target.X > x+deadzone,
	}, true
}

func logStatus(rec *client.Reconciler) {
	id := rec.LocalID()
	if id == 0 {
		log.Printf("waiting for welcome")
		return
	}
	x, y, ok := rec.Position(id)
	if !ok {
		log.Printf("player %d not in any snapshot yet", id)
		return
	}
	score, _ := rec.Score(id)
	log.Printf("player %d at (%.1f, %.1f) score=%d peers=%d coins=%d",
		id, x, y, score, len(rec.PlayerIDs())-1, len(rec.Coins()))
}

func sq(v float64) float64 { return v * v }
