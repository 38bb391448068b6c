package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/innings"
	"github.com/DhavalSuthar-24/crease/internal/match"
	"github.com/DhavalSuthar-24/crease/internal/stats"
)

// liveMatch is the in-memory state of one match. Only its sequencer
// goroutine writes to it; writers still take mu so snapshot readers see the
// match, innings and stats change together.
type liveMatch struct {
	seq *sequencer

	mu      sync.RWMutex
	match   match.Match
	innings map[int]innings.Innings
	agg     *stats.Aggregator
	// shared with every later load of the same match; bumped under mu
	stream *atomic.Int64

	// team id -> player id -> verified squad member; sequencer goroutine only
	members map[uint]map[uint]bool
}

func (li *liveMatch) current() (innings.Innings, bool) {
	in, ok := li.innings[li.match.CurrentInnings]
	return in, ok
}

// snapshot must be called with mu held.
func (li *liveMatch) snapshot() Snapshot {
	snap := Snapshot{
		MatchID:  li.match.ID,
		Sequence: li.stream.Load(),
		Match:    li.match,
		Innings:  []Scorecard{},
	}
	numbers := make([]int, 0, len(li.innings))
	for n := range li.innings {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		in := li.innings[n]
		snap.Innings = append(snap.Innings, Scorecard{
			InningsView: viewOf(in),
			Players:     li.agg.Book(in.ID).Players(),
		})
	}
	return snap
}

// live returns the loaded match, loading it from the repository and replaying
// its event log on first use. Loads run outside s.mu so a slow cold match
// never holds up matches that are already live.
func (s *Service) live(ctx context.Context, matchID string) (*liveMatch, error) {
	if li, ok := s.loaded(matchID); ok {
		return li, nil
	}
	v, err, _ := s.loads.Do(matchID, func() (any, error) {
		if li, ok := s.loaded(matchID); ok {
			return li, nil
		}
		li, err := s.load(ctx, matchID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.matches[matchID]; ok {
			li.seq.Stop()
			return existing, nil
		}
		s.matches[matchID] = li
		return li, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*liveMatch), nil
}

func (s *Service) loaded(matchID string) (*liveMatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	li, ok := s.matches[matchID]
	return li, ok
}

// streamCounter returns the message counter of a match stream. It survives
// Unload so a reloaded match keeps numbering where it left off.
func (s *Service) streamCounter(matchID string) *atomic.Int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.streams[matchID]
	if !ok {
		c = new(atomic.Int64)
		s.streams[matchID] = c
	}
	return c
}

func (s *Service) load(ctx context.Context, matchID string) (*liveMatch, error) {
	m, err := s.repo.Get(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", matchID, err)
	}
	if m == nil {
		return nil, apperror.NotFound("match %s not found", matchID)
	}

	li := &liveMatch{
		match:   *m,
		innings: make(map[int]innings.Innings),
		agg:     stats.NewAggregator(s.log),
		stream:  s.streamCounter(matchID),
		members: make(map[uint]map[uint]bool),
	}
	for n := 1; n <= 2; n++ {
		start, ok := m.InningsStart(n)
		if !ok {
			continue
		}
		events, err := s.log.List(ctx, start.ID)
		if err != nil {
			return nil, fmt.Errorf("load innings %s: %w", start.ID, err)
		}
		in, err := innings.Replay(start, events)
		if err != nil {
			return nil, err
		}
		if _, err := li.agg.Recompute(ctx, start.ID); err != nil {
			return nil, fmt.Errorf("load stats %s: %w", start.ID, err)
		}
		li.innings[n] = in
	}

	// A completion whose match row was never saved is finished here.
	if cur, ok := li.current(); ok && cur.Completed && li.match.Status == match.StatusInProgress {
		if err := li.match.CompleteInnings(cur, s.now()); err == nil {
			li.match.ResultSummary = li.match.Summarize(s.teamNames(ctx, li.match))
			if err := s.repo.Save(ctx, &li.match); err != nil {
				slog.Warn("Failed to save reconciled match", "match_id", matchID, "error", err)
			}
		}
	}

	li.seq = newSequencer(s.opts.QueueDepth)
	slog.Debug("Match loaded", "match_id", matchID, "status", li.match.Status, "innings", len(li.innings))
	return li, nil
}

// Unload drops a match from memory. The next operation on it reloads it
// from the repository and the event log.
func (s *Service) Unload(matchID string) {
	s.mu.Lock()
	li, ok := s.matches[matchID]
	delete(s.matches, matchID)
	s.mu.Unlock()
	if ok {
		li.seq.Stop()
	}
}

// Close stops every live match.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, li := range s.matches {
		li.seq.Stop()
		delete(s.matches, id)
	}
}
