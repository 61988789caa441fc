package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	SessionStarted    Type = "session.started"
	ModalityCompleted Type = "modality.completed"
	SessionFinished   Type = "session.finished"
	SessionReset      Type = "session.reset"
)

// Event is one step of a prediction flow, published for downstream consumers.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	SessionID  string    `json:"session_id"`
	Modality   string    `json:"modality,omitempty"`
	Label      string    `json:"label,omitempty"`
	Next       string    `json:"next,omitempty"`
	Modalities []string  `json:"modalities,omitempty"`
	At         time.Time `json:"at"`
}

func New(t Type, sessionID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		SessionID: sessionID,
		At:        time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type noop struct{}

// Noop drops every event. Used when no broker is configured.
func Noop() Publisher { return noop{} }

func (noop) Publish(context.Context, Event) error { return nil }
func (noop) Close() error                         { return nil }

// Memory keeps published events in order. Useful in tests and the terminal quiz.
type Memory struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func (m *Memory) Types() []Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Type, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Type)
	}
	return out
}
