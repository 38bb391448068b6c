package stats

import (
	"context"
	"sync"

	"github.com/DhavalSuthar-24/crease/internal/ball"
	"github.com/DhavalSuthar-24/crease/internal/eventlog"
)

// Aggregator owns the stats books of one match, keyed by innings id.
type Aggregator struct {
	log eventlog.Store

	mu    sync.RWMutex
	books map[string]*Book
}

func NewAggregator(log eventlog.Store) *Aggregator {
	return &Aggregator{log: log, books: make(map[string]*Book)}
}

// OnEventApplied folds one accepted event into its innings book. The caller
// guarantees it is called once per sequence number.
func (a *Aggregator) OnEventApplied(ev ball.Event) []uint {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.books[ev.InningsID]
	if !ok {
		b = NewBook(ev.InningsID)
		a.books[ev.InningsID] = b
	}
	return b.Apply(ev)
}

// Recompute rebuilds an innings book from the event log and installs it.
func (a *Aggregator) Recompute(ctx context.Context, inningsID string) (*Book, error) {
	events, err := a.log.List(ctx, inningsID)
	if err != nil {
		return nil, err
	}
	b := Rebuild(inningsID, events)

	a.mu.Lock()
	a.books[inningsID] = b
	a.mu.Unlock()
	return b.Clone(), nil
}

// Book returns a copy of an innings book; an unknown innings yields an empty one.
func (a *Aggregator) Book(inningsID string) *Book {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if b, ok := a.books[inningsID]; ok {
		return b.Clone()
	}
	return NewBook(inningsID)
}

// Rebuild folds events into a fresh book.
func Rebuild(inningsID string, events []ball.Event) *Book {
	b := NewBook(inningsID)
	for _, ev := range events {
		b.Apply(ev)
	}
	return b
}
