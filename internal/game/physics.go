package game

import "math"

// Input holds the four pending directional flags for a player. Opposing
// flags cancel out.
type Input struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
}

// Player is the authoritative per-player record. Position and score are
// mutated only by the simulation tick; Input only by the player's own
// connection.
type Player struct {
	ID    uint64
	X     float64
	Y     float64
	Score int
	Input Input
}

// Coin is a collectible. Its position is fixed from spawn until pickup.
type Coin struct {
	ID uint64
	X  float64
	Y  float64
}

// Pickup records a coin collected during a sweep.
type Pickup struct {
	CoinID   uint64
	PlayerID uint64
}

// MoveVector derives a unit movement vector from the input flags. Diagonal
// input is normalized so it never exceeds straight-line speed; a fully
// cancelled input yields the zero vector.
func MoveVector(in Input) (dx, dy float64) {
	if in.Up {
		dy--
	}
	if in.Down {
		dy++
	}
	if in.Left {
		dx--
	}
	if in.Right {
		dx++
	}
	length := math.Hypot(dx, dy)
	if length != 0 {
		dx /= length
		dy /= length
	}
	return dx, dy
}

// Integrate advances one player by one fixed step and clamps both axes into
// the map, keeping the full player circle in bounds.
func Integrate(p *Player, dt float64, cfg Config) {
	dx, dy := MoveVector(p.Input)
	p.X = clamp(p.X+dx*cfg.MoveSpeed*dt, cfg.PlayerRadius, cfg.MapWidth-cfg.PlayerRadius)
	p.Y = clamp(p.Y+dy*cfg.MoveSpeed*dt, cfg.PlayerRadius, cfg.MapHeight-cfg.PlayerRadius)
}

// SweepCoins resolves coin pickups for one tick. Coins are visited in the
// given (ascending id) order; each coin tests players in snapshot order and
// the first player in range collects it, so a contested coin scores exactly
// once. A single player may collect several coins in the same sweep.
// Scores are incremented in place; the returned pickups identify coins to
// remove after the sweep.
func SweepCoins(players []Player, coins []Coin, cfg Config) []Pickup {
	if len(players) == 0 || len(coins) == 0 {
		return nil
	}

	reach := cfg.PlayerRadius + cfg.CoinRadius
	var pickups []Pickup
	for _, coin := range coins {
		for i := range players {
			p := &players[i]
			if math.Hypot(p.X-coin.X, p.Y-coin.Y) < reach {
				p.Score++
				pickups = append(pickups, Pickup{CoinID: coin.ID, PlayerID: p.ID})
				break
			}
		}
	}
	return pickups
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
