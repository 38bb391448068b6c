package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/ball"
	"github.com/DhavalSuthar-24/crease/internal/eventlog"
	"github.com/DhavalSuthar-24/crease/internal/innings"
	"github.com/DhavalSuthar-24/crease/internal/match"
	"github.com/DhavalSuthar-24/crease/internal/stats"
)

// Apply validates a candidate delivery and, if it is accepted, logs it and
// moves the live match on by exactly one event. A rejected candidate changes
// nothing.
func (s *Service) Apply(ctx context.Context, matchID string, cand ball.Candidate) (Delta, error) {
	li, err := s.live(ctx, matchID)
	if err != nil {
		return Delta{}, err
	}
	var d Delta
	err = li.seq.Do(ctx, func() error {
		var err error
		d, err = s.apply(ctx, li, cand, -1)
		return err
	})
	return d, err
}

// apply runs on the match's sequencer goroutine. expectSeq >= 0 rejects the
// candidate when the innings has moved on since it was prepared.
func (s *Service) apply(ctx context.Context, li *liveMatch, cand ball.Candidate, expectSeq int64) (Delta, error) {
	m := li.match
	cur, ok := li.current()
	if m.Status != match.StatusInProgress || !ok || cur.Completed {
		return Delta{}, apperror.Rule(apperror.CodeInningsClosed, "no innings is open while match is %s", m.Status)
	}
	if expectSeq >= 0 && cur.LastSequence != expectSeq {
		return Delta{}, apperror.Rule(apperror.CodeStaleCommand, "innings moved on from ball %d to %d", expectSeq, cur.LastSequence)
	}

	ev, err := cand.Event()
	if err != nil {
		return Delta{}, err
	}
	ev.InningsID = cur.ID
	ev.Sequence = cur.LastSequence + 1
	ev.CreatedAt = s.now()

	next, out, err := innings.Advance(cur, ev)
	if err != nil {
		return Delta{}, err
	}
	if err := s.checkRoster(ctx, li, cur, out.Event); err != nil {
		return Delta{}, err
	}

	if err := s.log.Append(ctx, out.Event); err != nil {
		if errors.Is(err, eventlog.ErrSequenceConflict) {
			// Someone else wrote to this innings' log; reload before trusting memory again.
			go s.Unload(m.ID)
		}
		return Delta{}, fmt.Errorf("append ball %d to innings %s: %w", out.Event.Sequence, cur.ID, err)
	}

	var names func(uint) string
	if out.InningsCompleted && cur.Number == 2 {
		names = s.teamNames(ctx, m)
	}

	li.mu.Lock()
	li.innings[cur.Number] = next
	touched := li.agg.OnEventApplied(out.Event)
	if out.InningsCompleted {
		if err := li.match.CompleteInnings(next, out.Event.CreatedAt); err != nil {
			slog.Error("Innings completion rejected", "match_id", m.ID, "innings", cur.Number, "error", err)
		} else if names != nil {
			li.match.ResultSummary = li.match.Summarize(names)
		}
	}
	seq := li.stream.Add(1)
	book := li.agg.Book(cur.ID)
	view := viewOf(next)
	d := Delta{
		MatchID:  m.ID,
		Sequence: seq,
		Kind:     DeltaBall,
		Event:    &out.Event,
		Outcome:  &out,
		Match:    li.match,
		Innings:  &view,
		Players:  book.Subset(touched),
	}
	matchAfter := li.match
	li.mu.Unlock()

	var changed *match.Match
	if out.InningsCompleted {
		changed = &matchAfter
		slog.Info("Innings completed", "match_id", m.ID, "innings", cur.Number, "reason", out.Reason, "score", fmt.Sprintf("%d/%d", next.Runs, next.Wickets))
	}
	s.persist(ctx, changed, next, book)
	s.publish(d)
	return d, nil
}

// checkRoster verifies that the batters belong to the batting side and the
// bowler and fielder to the fielding side. Verified ids are cached per match.
func (s *Service) checkRoster(ctx context.Context, li *liveMatch, in innings.Innings, ev ball.Event) error {
	if s.roster == nil {
		return nil
	}
	checks := []struct {
		player uint
		team   uint
		role   string
	}{
		{ev.StrikerID, in.BattingTeamID, "striker"},
		{ev.NonStrikerID, in.BattingTeamID, "non-striker"},
		{ev.BowlerID, in.BowlingTeamID, "bowler"},
	}
	if ev.FielderID != nil && *ev.FielderID != 0 {
		checks = append(checks, struct {
			player uint
			team   uint
			role   string
		}{*ev.FielderID, in.BowlingTeamID, "fielder"})
	}

	for _, c := range checks {
		if li.members[c.team][c.player] {
			continue
		}
		ok, err := s.roster.IsActiveMember(ctx, c.team, c.player)
		if err != nil {
			return fmt.Errorf("check squad of team %d: %w", c.team, err)
		}
		if !ok {
			return apperror.Rule(apperror.CodePlayerNotInTeam, "%s %d is not in the squad of team %d", c.role, c.player, c.team)
		}
		if li.members[c.team] == nil {
			li.members[c.team] = make(map[uint]bool)
		}
		li.members[c.team][c.player] = true
	}
	return nil
}

// Undo removes the last delivery of the innings in play and rebuilds the
// innings and its stats by replaying what is left. It refuses with Busy when
// any other operation on the match is queued or running.
func (s *Service) Undo(ctx context.Context, matchID string) (UndoResult, error) {
	li, err := s.live(ctx, matchID)
	if err != nil {
		return UndoResult{}, err
	}

	var res UndoResult
	err = li.seq.TryDo(ctx, func() error {
		m := li.match
		n := m.CurrentInnings
		switch m.Status {
		case match.StatusInProgress:
		case match.StatusInningsBreak:
			n = 1
		default:
			return apperror.InvalidTransition(string(m.Status), "undo")
		}
		start, ok := m.InningsStart(n)
		if !ok {
			return apperror.EmptyLog()
		}

		removed, err := s.log.RemoveLast(ctx, start.ID)
		if err != nil {
			return err
		}
		events, err := s.log.List(ctx, start.ID)
		if err != nil {
			return fmt.Errorf("list innings %s after undo: %w", start.ID, err)
		}
		replayed, err := innings.Replay(start, events)
		if err != nil {
			return err
		}

		li.mu.Lock()
		book, err := li.agg.Recompute(ctx, start.ID)
		if err != nil {
			li.mu.Unlock()
			return fmt.Errorf("recompute stats for innings %s: %w", start.ID, err)
		}
		if li.match.Status == match.StatusInningsBreak {
			if err := li.match.ReopenInnings(); err != nil {
				li.mu.Unlock()
				return err
			}
		}
		li.innings[n] = replayed
		seq := li.stream.Add(1)
		view := viewOf(replayed)
		res = UndoResult{Removed: removed, Innings: view, Players: book.Players()}
		res.Delta = Delta{
			MatchID:  m.ID,
			Sequence: seq,
			Kind:     DeltaUndo,
			Removed:  &removed,
			Match:    li.match,
			Innings:  &view,
			Players:  res.Players,
		}
		matchAfter := li.match
		li.mu.Unlock()

		var changed *match.Match
		if m.Status != matchAfter.Status {
			changed = &matchAfter
		}
		s.persist(ctx, changed, replayed, book)
		s.publish(res.Delta)
		slog.Info("Ball undone", "match_id", m.ID, "innings", n, "sequence", removed.Sequence)
		return nil
	})
	return res, err
}

// replayAll rebuilds every started innings and its stats from the log.
func (s *Service) replayAll(ctx context.Context, m match.Match) (map[int]innings.Innings, map[int]*stats.Book, error) {
	ins := make(map[int]innings.Innings)
	books := make(map[int]*stats.Book)
	for n := 1; n <= 2; n++ {
		start, ok := m.InningsStart(n)
		if !ok {
			continue
		}
		events, err := s.log.List(ctx, start.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("list innings %s: %w", start.ID, err)
		}
		in, err := innings.Replay(start, events)
		if err != nil {
			return nil, nil, err
		}
		ins[n] = in
		books[n] = stats.Rebuild(start.ID, events)
	}
	return ins, books, nil
}

// Rebuild discards the cached projections of a match, replays its event log
// and writes the result back. It is the repair path for a damaged cache.
func (s *Service) Rebuild(ctx context.Context, matchID string) (Snapshot, error) {
	li, err := s.live(ctx, matchID)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	err = li.seq.Do(ctx, func() error {
		ins, _, err := s.replayAll(ctx, li.match)
		if err != nil {
			return err
		}

		li.mu.Lock()
		books := make(map[int]*stats.Book, len(ins))
		for n, in := range ins {
			book, err := li.agg.Recompute(ctx, in.ID)
			if err != nil {
				li.mu.Unlock()
				return fmt.Errorf("recompute stats for innings %s: %w", in.ID, err)
			}
			books[n] = book
			li.innings[n] = in
		}
		seq := li.stream.Add(1)
		snap = li.snapshot()
		d := Delta{MatchID: matchID, Sequence: seq, Kind: DeltaRebuild, Match: li.match}
		if cur, ok := li.current(); ok {
			v := viewOf(cur)
			d.Innings = &v
		}
		li.mu.Unlock()

		for n, in := range ins {
			s.persist(ctx, nil, in, books[n])
		}
		s.publish(d)
		slog.Info("Match rebuilt from event log", "match_id", matchID, "innings", len(ins))
		return nil
	})
	return snap, err
}

// Verify replays the event log and reports any live projection that differs.
func (s *Service) Verify(ctx context.Context, matchID string) (VerifyReport, error) {
	li, err := s.live(ctx, matchID)
	if err != nil {
		return VerifyReport{}, err
	}
	report := VerifyReport{MatchID: matchID}
	err = li.seq.Do(ctx, func() error {
		ins, books, err := s.replayAll(ctx, li.match)
		if err != nil {
			return err
		}
		li.mu.RLock()
		defer li.mu.RUnlock()
		for n := 1; n <= 2; n++ {
			want, ok := ins[n]
			if !ok {
				continue
			}
			got := li.innings[n]
			if !sameJSON(got, want) {
				report.Mismatches = append(report.Mismatches, fmt.Sprintf("innings %d state", n))
			}
			if !sameJSON(li.agg.Book(want.ID).Players(), books[n].Players()) {
				report.Mismatches = append(report.Mismatches, fmt.Sprintf("innings %d stats", n))
			}
		}
		return nil
	})
	report.Consistent = err == nil && len(report.Mismatches) == 0
	return report, err
}

func sameJSON(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
