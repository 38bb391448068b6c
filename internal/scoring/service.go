// Package scoring runs live matches: it applies deliveries and undo through
// the innings engine, keeps the stats projection in step, persists the event
// log and publishes every change to viewers.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/ball"
	"github.com/DhavalSuthar-24/crease/internal/eventlog"
	"github.com/DhavalSuthar-24/crease/internal/innings"
	"github.com/DhavalSuthar-24/crease/internal/interpreter"
	"github.com/DhavalSuthar-24/crease/internal/match"
	"github.com/DhavalSuthar-24/crease/internal/stats"
	"github.com/DhavalSuthar-24/crease/internal/team"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Publisher fans deltas out to viewers. PublishDelta must not block.
type Publisher interface {
	PublishDelta(matchID string, sequence int64, payload any)
}

type nopPublisher struct{}

func (nopPublisher) PublishDelta(string, int64, any) {}

type Options struct {
	DefaultOvers            int
	FreeHitOnNoBall         bool
	FreeHitOnBoundaryNoBall bool
	// QueueDepth bounds the per-match job queue.
	QueueDepth int
	Clock      func() time.Time
}

type Service struct {
	repo        match.Repository
	log         eventlog.Store
	roster      team.Roster
	interpreter *interpreter.Interpreter
	commands    *interpreter.PendingStore
	opts        Options

	pubMu sync.RWMutex
	pub   Publisher

	mu      sync.Mutex
	matches map[string]*liveMatch
	streams map[string]*atomic.Int64

	loads singleflight.Group
}

func NewService(repo match.Repository, log eventlog.Store, roster team.Roster, interp *interpreter.Interpreter, commands *interpreter.PendingStore, opts Options) *Service {
	if opts.DefaultOvers <= 0 {
		opts.DefaultOvers = innings.DefaultRules().OversLimit
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		repo:        repo,
		log:         log,
		roster:      roster,
		interpreter: interp,
		commands:    commands,
		opts:        opts,
		pub:         nopPublisher{},
		matches:     make(map[string]*liveMatch),
		streams:     make(map[string]*atomic.Int64),
	}
}

// SetPublisher wires the broadcaster in after construction, since the hub
// itself needs the service for snapshots.
func (s *Service) SetPublisher(p Publisher) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if p == nil {
		p = nopPublisher{}
	}
	s.pub = p
}

func (s *Service) publish(d Delta) {
	s.pubMu.RLock()
	p := s.pub
	s.pubMu.RUnlock()
	p.PublishDelta(d.MatchID, d.Sequence, d)
}

// now is truncated to what postgres stores so replayed events compare equal.
func (s *Service) now() time.Time {
	return s.opts.Clock().UTC().Truncate(time.Microsecond)
}

type CreateMatchInput struct {
	Title     string
	CreatedBy uint
	// Teams are optional at creation; when both are given the match moves
	// straight to the toss.
	Team1ID    uint
	Team2ID    uint
	OversLimit int
}

// CreateMatch opens a match in setup.
func (s *Service) CreateMatch(ctx context.Context, in CreateMatchInput) (match.Match, error) {
	m := match.Match{
		ID:                      uuid.NewString(),
		CreatedByUserID:         in.CreatedBy,
		Title:                   in.Title,
		Status:                  match.StatusSetup,
		FreeHitOnNoBall:         s.opts.FreeHitOnNoBall,
		FreeHitOnBoundaryNoBall: s.opts.FreeHitOnBoundaryNoBall,
	}
	if in.Team1ID != 0 || in.Team2ID != 0 {
		if err := s.checkTeams(ctx, in.Team1ID, in.Team2ID); err != nil {
			return match.Match{}, err
		}
		if err := m.SetTeams(in.Team1ID, in.Team2ID, s.overs(in.OversLimit)); err != nil {
			return match.Match{}, err
		}
	}
	if err := s.repo.Create(ctx, &m); err != nil {
		return match.Match{}, fmt.Errorf("create match: %w", err)
	}
	slog.Info("Match created", "match_id", m.ID, "status", m.Status)
	return m, nil
}

func (s *Service) overs(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.opts.DefaultOvers
}

func (s *Service) checkTeams(ctx context.Context, ids ...uint) error {
	if s.roster == nil {
		return nil
	}
	for _, id := range ids {
		if id == 0 {
			continue
		}
		t, err := s.roster.GetTeam(ctx, id)
		if err != nil {
			return fmt.Errorf("look up team %d: %w", id, err)
		}
		if t == nil {
			return apperror.NotFound("team %d not found", id)
		}
	}
	return nil
}

// teamNames resolves team names for result summaries, falling back to ids.
func (s *Service) teamNames(ctx context.Context, m match.Match) func(uint) string {
	names := map[uint]string{}
	if s.roster != nil {
		for _, id := range []uint{m.Team1ID, m.Team2ID} {
			if t, err := s.roster.GetTeam(ctx, id); err == nil && t != nil {
				names[id] = t.Name
			}
		}
	}
	return func(id uint) string { return names[id] }
}

// transition runs a lifecycle change through the match's sequencer, saves
// the match and publishes the result.
func (s *Service) transition(ctx context.Context, matchID string, change func(m *match.Match, li *liveMatch) (*innings.Innings, error)) (match.Match, error) {
	li, err := s.live(ctx, matchID)
	if err != nil {
		return match.Match{}, err
	}

	var out match.Match
	err = li.seq.Do(ctx, func() error {
		next := li.match
		opened, err := change(&next, li)
		if err != nil {
			return err
		}
		err = s.repo.WithTransaction(ctx, func(tx match.Repository) error {
			if err := tx.Save(ctx, &next); err != nil {
				return fmt.Errorf("save match %s: %w", matchID, err)
			}
			if opened != nil {
				if err := tx.SaveInnings(ctx, *opened); err != nil {
					return fmt.Errorf("save innings projection %s: %w", opened.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		li.mu.Lock()
		li.match = next
		if opened != nil {
			li.innings[opened.Number] = *opened
		}
		seq := li.stream.Add(1)
		d := Delta{MatchID: matchID, Sequence: seq, Kind: DeltaMatch, Match: next}
		if cur, ok := li.current(); ok {
			v := viewOf(cur)
			d.Innings = &v
		}
		li.mu.Unlock()

		s.publish(d)
		out = next
		return nil
	})
	return out, err
}

// SetTeams fixes both sides and the format.
func (s *Service) SetTeams(ctx context.Context, matchID string, team1, team2 uint, overs int) (match.Match, error) {
	if err := s.checkTeams(ctx, team1, team2); err != nil {
		return match.Match{}, err
	}
	return s.transition(ctx, matchID, func(m *match.Match, _ *liveMatch) (*innings.Innings, error) {
		return nil, m.SetTeams(team1, team2, s.overs(overs))
	})
}

// RecordToss settles the toss and opens the first innings.
func (s *Service) RecordToss(ctx context.Context, matchID string, winner uint, decision match.TossDecision) (match.Match, error) {
	return s.transition(ctx, matchID, func(m *match.Match, _ *liveMatch) (*innings.Innings, error) {
		in, err := m.RecordToss(winner, decision, uuid.NewString(), s.now())
		if err != nil {
			return nil, err
		}
		slog.Info("Toss recorded", "match_id", m.ID, "winner", winner, "decision", decision)
		return &in, nil
	})
}

// StartSecondInnings opens the chase.
func (s *Service) StartSecondInnings(ctx context.Context, matchID string) (match.Match, error) {
	return s.transition(ctx, matchID, func(m *match.Match, li *liveMatch) (*innings.Innings, error) {
		in, err := m.StartSecondInnings(li.innings[1], uuid.NewString())
		if err != nil {
			return nil, err
		}
		slog.Info("Second innings started", "match_id", m.ID, "target", in.Target)
		return &in, nil
	})
}

// Abandon ends the match without a result.
func (s *Service) Abandon(ctx context.Context, matchID, reason string) (match.Match, error) {
	return s.transition(ctx, matchID, func(m *match.Match, _ *liveMatch) (*innings.Innings, error) {
		if err := m.Abandon(reason, s.now()); err != nil {
			return nil, err
		}
		m.ResultSummary = m.Summarize(nil)
		slog.Info("Match abandoned", "match_id", m.ID, "reason", reason)
		return nil, nil
	})
}

// Snapshot returns the full state of a match.
func (s *Service) Snapshot(ctx context.Context, matchID string) (Snapshot, error) {
	li, err := s.live(ctx, matchID)
	if err != nil {
		return Snapshot{}, err
	}
	li.mu.RLock()
	defer li.mu.RUnlock()
	return li.snapshot(), nil
}

// StreamSnapshot is the broadcaster's snapshot source: the payload together
// with the stream sequence it is current as of.
func (s *Service) StreamSnapshot(ctx context.Context, matchID string) (int64, any, error) {
	snap, err := s.Snapshot(ctx, matchID)
	if err != nil {
		return 0, nil, err
	}
	return snap.Sequence, snap, nil
}

// Balls lists the logged deliveries of innings number n.
func (s *Service) Balls(ctx context.Context, matchID string, n int) ([]ball.Event, error) {
	li, err := s.live(ctx, matchID)
	if err != nil {
		return nil, err
	}
	li.mu.RLock()
	id := li.match.InningsID(n)
	li.mu.RUnlock()
	if id == "" {
		return nil, apperror.NotFound("innings %d of match %s has not started", n, matchID)
	}
	return s.log.List(ctx, id)
}

// persist writes the cached projections in one transaction so the match row,
// innings row and stats never disagree. Failures are logged only; the event
// log already holds the truth and Rebuild repairs the cache.
func (s *Service) persist(ctx context.Context, m *match.Match, in innings.Innings, book *stats.Book) {
	err := s.repo.WithTransaction(ctx, func(tx match.Repository) error {
		if m != nil {
			if err := tx.Save(ctx, m); err != nil {
				return fmt.Errorf("save match %s: %w", m.ID, err)
			}
		}
		if err := tx.SaveInnings(ctx, in); err != nil {
			return fmt.Errorf("save innings projection %s: %w", in.ID, err)
		}
		if err := tx.ReplaceStats(ctx, in.ID, book.Players()); err != nil {
			return fmt.Errorf("save stats projection %s: %w", in.ID, err)
		}
		return nil
	})
	if err != nil {
		slog.Warn("Failed to save projections", "innings_id", in.ID, "error", err)
	}
}
