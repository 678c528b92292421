package game

import (
	"math/rand"
	"time"
)

// World owns the coin set, the identifier counters, and the randomness used
// for spawning. It is not internally synchronized; the hub guards it with
// the registry lock.
type World struct {
	cfg        Config
	rng        *rand.Rand
	coins      []Coin
	nextCoinID uint64
	lastSpawn  time.Time
}

// NewWorld constructs an empty world. A zero seed derives one from the
// clock.
func NewWorld(cfg Config, seed int64) *World {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &World{
		cfg: cfg.normalized(),
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Config returns the normalized tuning the world was built with.
func (w *World) Config() Config {
	return w.cfg
}

// MaybeSpawnCoin adds one coin at a uniformly random in-bounds position when
// the live count is below capacity and the spawn interval has elapsed.
// Capacity being reached is not an error; the spawn is simply skipped.
func (w *World) MaybeSpawnCoin(now time.Time) (Coin, bool) {
	if len(w.coins) >= w.cfg.MaxCoins {
		return Coin{}, false
	}
	if !w.lastSpawn.IsZero() && now.Sub(w.lastSpawn) <= w.cfg.CoinSpawnInterval {
		return Coin{}, false
	}

	w.nextCoinID++
	coin := Coin{
		ID: w.nextCoinID,
		X:  w.randomCoord(w.cfg.CoinSpawnMargin, w.cfg.MapWidth),
		Y:  w.randomCoord(w.cfg.CoinSpawnMargin, w.cfg.MapHeight),
	}
	w.coins = append(w.coins, coin)
	w.lastSpawn = now
	return coin, true
}

// Coins returns a copy of the live coin set in ascending id order.
func (w *World) Coins() []Coin {
	out := make([]Coin, len(w.coins))
	copy(out, w.coins)
	return out
}

// CoinCount reports the number of live coins.
func (w *World) CoinCount() int {
	return len(w.coins)
}

// RemoveCoins deletes collected coins after a sweep. Unknown ids are
// ignored.
func (w *World) RemoveCoins(pickups []Pickup) {
	if len(pickups) == 0 {
		return
	}
	collected := make(map[uint64]struct{}, len(pickups))
	for _, p := range pickups {
		collected[p.CoinID] = struct{}{}
	}
	kept := w.coins[:0]
	for _, c := range w.coins {
		if _, gone := collected[c.ID]; !gone {
			kept = append(kept, c)
		}
	}
	w.coins = kept
}

// SpawnPosition picks a random player spawn inside the spawn margin.
func (w *World) SpawnPosition() (x, y float64) {
	return w.randomCoord(w.cfg.PlayerSpawnMargin, w.cfg.MapWidth),
		w.randomCoord(w.cfg.PlayerSpawnMargin, w.cfg.MapHeight)
}

func (w *World) randomCoord(margin, dim float64) float64 {
	span := dim - 2*margin
	if span <= 0 {
		return dim / 2
	}
	return margin + w.rng.Float64()*span
}
