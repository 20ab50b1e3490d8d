package store

import (
	"sync"
	"time"
)

// maxEvents caps the journal per session; older entries are dropped first.
const maxEvents = 200

const truncatedType = "events_truncated"

type Event struct {
	Type    string         `json:"type"`
	Ts      time.Time      `json:"timestamp"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Store is an in-memory, capped event journal keyed by session.
type Store struct {
	mu     sync.RWMutex
	events map[string][]Event
}

func New() *Store {
	return &Store{events: make(map[string][]Event)}
}

// AppendEvent records an event. Past the cap the oldest events are dropped and
// a single events_truncated marker at the head counts everything dropped so far.
func (s *Store) AppendEvent(sessionID, typ string, payload map[string]any) Event {
	evt := Event{Type: typ, Ts: time.Now().UTC(), Payload: payload}
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := append(s.events[sessionID], evt)
	if len(evs) > maxEvents {
		dropped := 0
		if evs[0].Type == truncatedType {
			dropped, _ = evs[0].Payload["dropped"].(int)
			evs = evs[1:]
		}
		keep := maxEvents - 1
		dropped += len(evs) - keep
		marker := Event{
			Type:    truncatedType,
			Ts:      time.Now().UTC(),
			Payload: map[string]any{"session_id": sessionID, "dropped": dropped, "kept": keep},
		}
		evs = append([]Event{marker}, evs[len(evs)-keep:]...)
	}
	s.events[sessionID] = evs
	return evt
}

func (s *Store) ListEvents(sessionID string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.events[sessionID]
	out := make([]Event, len(src))
	copy(out, src)
	return out
}

// Drop forgets a session's journal.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.events, sessionID)
	s.mu.Unlock()
}
