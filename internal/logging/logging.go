// Package logging publishes structured gameplay and lifecycle events.
package logging

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

type EventType string

const (
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerLeft    EventType = "player_left"
	EventCoinSpawned   EventType = "coin_spawned"
	EventCoinCollected EventType = "coin_collected"
	EventTickOverrun   EventType = "tick_overrun"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

// Event is one structured log record tied to a simulation tick.
type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	Severity Severity       `json:"severity"`
	PlayerID uint64         `json:"playerId,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Publisher consumes events. Implementations must be safe for concurrent
// use; publishing must never block the simulation loop.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	f(ctx, event)
}

// NopPublisher discards every event. Used by tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

// ConsolePublisher writes one JSON line per event through a standard
// logger, filtered by minimum severity.
type ConsolePublisher struct {
	logger *log.Logger
	min    Severity
}

// NewConsolePublisher builds a console sink. A nil logger falls back to the
// process default.
func NewConsolePublisher(logger *log.Logger, min Severity) *ConsolePublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &ConsolePublisher{logger: logger, min: min}
}

func (p *ConsolePublisher) Publish(_ context.Context, event Event) {
	if event.Severity < p.min {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Printf("event %s: marshal failed: %v", event.Type, err)
		return
	}
	p.logger.Printf("%s", data)
}
