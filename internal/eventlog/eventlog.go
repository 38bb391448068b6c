// Package eventlog is the append-only record of accepted deliveries, one
// ordered collection per innings. It is the only authoritative state in the
// scoring core; every projection is rebuilt from it.
package eventlog

import (
	"context"
	"errors"
	"sync"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/ball"
)

// ErrSequenceConflict is returned when an append does not carry the next
// sequence number for its innings.
var ErrSequenceConflict = errors.New("eventlog: sequence out of order")

// Store persists ball events. Implementations must reject an append whose
// sequence is not exactly one past the last stored event for the innings.
type Store interface {
	Append(ctx context.Context, ev ball.Event) error
	List(ctx context.Context, inningsID string) ([]ball.Event, error)
	// RemoveLast drops the most recent event of an innings and returns it.
	// An empty innings yields an EmptyLog error.
	RemoveLast(ctx context.Context, inningsID string) (ball.Event, error)
}

// MemoryStore keeps events in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]ball.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]ball.Event)}
}

func (s *MemoryStore) Append(_ context.Context, ev ball.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.events[ev.InningsID]
	var last int64
	if n := len(list); n > 0 {
		last = list[n-1].Sequence
	}
	if ev.Sequence != last+1 {
		return ErrSequenceConflict
	}
	s.events[ev.InningsID] = append(list, ev)
	return nil
}

func (s *MemoryStore) List(_ context.Context, inningsID string) ([]ball.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.events[inningsID]
	out := make([]ball.Event, len(list))
	copy(out, list)
	return out, nil
}

func (s *MemoryStore) RemoveLast(_ context.Context, inningsID string) (ball.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.events[inningsID]
	if len(list) == 0 {
		return ball.Event{}, apperror.EmptyLog()
	}
	last := list[len(list)-1]
	s.events[inningsID] = list[:len(list)-1]
	return last, nil
}
