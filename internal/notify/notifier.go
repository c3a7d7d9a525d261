// Package notify delivers domain events to live subscribers after a ledger commits.
package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

const (
	ChannelStock       = "disponibilidad"
	ChannelPerformance = "rendimientos"

	EventStockChanged       = "nueva_disponibilidad"
	EventPerformanceChanged = "nuevo_rendimiento"
	EventStats              = "estadisticas"
)

// Event is what subscribers receive. Data carries the REST representation
// of the mutated entity.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier publishes one event on a channel. Implementations must be safe for
// concurrent use. Callers treat errors as non-fatal.
type Notifier interface {
	Publish(ctx context.Context, channel string, ev Event) error
}

// Log writes events to the logger only.
type Log struct {
	log zerolog.Logger
}

func NewLog(l zerolog.Logger) *Log {
	return &Log{log: l.With().Str("component", "notify").Logger()}
}

func (n *Log) Publish(_ context.Context, channel string, ev Event) error {
	n.log.Info().Str("channel", channel).Str("type", ev.Type).Msg("evento publicado")
	return nil
}

// Published is one event captured by Memory.
type Published struct {
	Channel string
	Event   Event
}

// Memory keeps published events in order. Handy for tests and local runs.
type Memory struct {
	mu     sync.Mutex
	events []Published
	Err    error
}

func (m *Memory) Publish(_ context.Context, channel string, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, Published{Channel: channel, Event: ev})
	return nil
}

func (m *Memory) Events() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Published, len(m.events))
	copy(out, m.events)
	return out
}

// OnChannel returns the events published on channel.
func (m *Memory) OnChannel(channel string) []Event {
	var out []Event
	for _, p := range m.Events() {
		if p.Channel == channel {
			out = append(out, p.Event)
		}
	}
	return out
}
