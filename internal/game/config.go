package game

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config collects every tunable of the simulation and both network paths.
// Defaults are the authoritative surface; a YAML overlay is optional.
type Config struct {
	Host     string
	Port     int // TCP line-protocol listener
	HTTPPort int // websocket endpoint and health probe; 0 disables

	TickRate int // simulation ticks per second

	MapWidth  float64
	MapHeight float64

	PlayerRadius float64
	CoinRadius   float64
	MoveSpeed    float64 // pixels per second

	MaxCoins          int
	CoinSpawnInterval time.Duration
	CoinSpawnMargin   float64
	PlayerSpawnMargin float64

	// Artificial one-way latency applied per message, per direction.
	InboundLatency  time.Duration
	OutboundLatency time.Duration

	// Client-side reconciliation tuning.
	InterpWindow   time.Duration
	CorrectionRate float64
	InputSendRate  int // max input messages per second
}

// DefaultConfig mirrors the reference tuning: 20 Hz ticks on an 800x600 map
// with 100 ms of simulated latency each way.
func DefaultConfig() Config {
	return Config{
		Host:              "127.0.0.1",
		Port:              8765,
		HTTPPort:          8766,
		TickRate:          20,
		MapWidth:          800,
		MapHeight:         600,
		PlayerRadius:      20,
		CoinRadius:        15,
		MoveSpeed:         200,
		MaxCoins:          5,
		CoinSpawnInterval: 2 * time.Second,
		CoinSpawnMargin:   50,
		PlayerSpawnMargin: 100,
		InboundLatency:    100 * time.Millisecond,
		OutboundLatency:   100 * time.Millisecond,
		InterpWindow:      100 * time.Millisecond,
		CorrectionRate:    0.15,
		InputSendRate:     10,
	}
}

// normalized clamps nonsensical values back to usable ones so a partial or
// sloppy overlay cannot wedge the simulation.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.TickRate <= 0 {
		c.TickRate = def.TickRate
	}
	if c.MapWidth <= 0 {
		c.MapWidth = def.MapWidth
	}
	if c.MapHeight <= 0 {
		c.MapHeight = def.MapHeight
	}
	if c.PlayerRadius <= 0 {
		c.PlayerRadius = def.PlayerRadius
	}
	if c.CoinRadius <= 0 {
		c.CoinRadius = def.CoinRadius
	}
	if c.MoveSpeed <= 0 {
		c.MoveSpeed = def.MoveSpeed
	}
	if c.MaxCoins < 0 {
		c.MaxCoins = 0
	}
	if c.CoinSpawnInterval <= 0 {
		c.CoinSpawnInterval = def.CoinSpawnInterval
	}
	if c.CoinSpawnMargin < c.CoinRadius {
		c.CoinSpawnMargin = c.CoinRadius
	}
	if c.PlayerSpawnMargin < c.PlayerRadius {
		c.PlayerSpawnMargin = c.PlayerRadius
	}
	if c.InboundLatency < 0 {
		c.InboundLatency = 0
	}
	if c.OutboundLatency < 0 {
		c.OutboundLatency = 0
	}
	if c.InterpWindow <= 0 {
		c.InterpWindow = def.InterpWindow
	}
	if c.CorrectionRate <= 0 || c.CorrectionRate >= 1 {
		c.CorrectionRate = def.CorrectionRate
	}
	if c.InputSendRate <= 0 {
		c.InputSendRate = def.InputSendRate
	}
	return c
}

// overlay mirrors Config for the YAML tuning file. Pointer fields
// distinguish "absent" from "zero"; durations are written as strings like
// "100ms".
type overlay struct {
	Host              *string  `yaml:"host"`
	Port              *int     `yaml:"port"`
	HTTPPort          *int     `yaml:"httpPort"`
	TickRate          *int     `yaml:"tickRate"`
	MapWidth          *float64 `yaml:"mapWidth"`
	MapHeight         *float64 `yaml:"mapHeight"`
	PlayerRadius      *float64 `yaml:"playerRadius"`
	CoinRadius        *float64 `yaml:"coinRadius"`
	MoveSpeed         *float64 `yaml:"moveSpeed"`
	MaxCoins          *int     `yaml:"maxCoins"`
	CoinSpawnInterval *string  `yaml:"coinSpawnInterval"`
	CoinSpawnMargin   *float64 `yaml:"coinSpawnMargin"`
	PlayerSpawnMargin *float64 `yaml:"playerSpawnMargin"`
	InboundLatency    *string  `yaml:"inboundLatency"`
	OutboundLatency   *string  `yaml:"outboundLatency"`
	InterpWindow      *string  `yaml:"interpWindow"`
	CorrectionRate    *float64 `yaml:"correctionRate"`
	InputSendRate     *int     `yaml:"inputSendRate"`
}

// LoadConfig layers a YAML tuning file over the defaults. A missing path
// returns the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.applyOverlay(data); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.normalized(), nil
}

func (c *Config) applyOverlay(data []byte) error {
	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return err
	}

	if o.Host != nil {
		c.Host = *o.Host
	}
	if o.Port != nil {
		c.Port = *o.Port
	}
	if o.HTTPPort != nil {
		c.HTTPPort = *o.HTTPPort
	}
	if o.TickRate != nil {
		c.TickRate = *o.TickRate
	}
	if o.MapWidth != nil {
		c.MapWidth = *o.MapWidth
	}
	if o.MapHeight != nil {
		c.MapHeight = *o.MapHeight
	}
	if o.PlayerRadius != nil {
		c.PlayerRadius = *o.PlayerRadius
	}
	if o.CoinRadius != nil {
		c.CoinRadius = *o.CoinRadius
	}
	if o.MoveSpeed != nil {
		c.MoveSpeed = *o.MoveSpeed
	}
	if o.MaxCoins != nil {
		c.MaxCoins = *o.MaxCoins
	}
	if o.CoinSpawnMargin != nil {
		c.CoinSpawnMargin = *o.CoinSpawnMargin
	}
	if o.PlayerSpawnMargin != nil {
		c.PlayerSpawnMargin = *o.PlayerSpawnMargin
	}
	if o.CorrectionRate != nil {
		c.CorrectionRate = *o.CorrectionRate
	}
	if o.InputSendRate != nil {
		c.InputSendRate = *o.InputSendRate
	}

	for _, d := range []struct {
		raw *string
		dst *time.Duration
	}{
		{o.CoinSpawnInterval, &c.CoinSpawnInterval},
		{o.InboundLatency, &c.InboundLatency},
		{o.OutboundLatency, &c.OutboundLatency},
		{o.InterpWindow, &c.InterpWindow},
	} {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return err
		}
		*d.dst = parsed
	}
	return nil
}

// TickInterval converts the tick rate into the loop period.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// TickSeconds is the fixed integration step used by the simulation.
func (c Config) TickSeconds() float64 {
	return 1.0 / float64(c.TickRate)
}

// Addr formats the TCP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HTTPAddr formats the websocket/health listen address.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}
