package interpreter

import (
	"errors"
	"testing"
	"time"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/ball"
)

func newInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	v, err := LoadVocabulary("")
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	return New(v)
}

var atCrease = Context{Over: 3, Ball: 2, StrikerID: 1, NonStrikerID: 2, BowlerID: 11}

func TestResolvedPhrases(t *testing.T) {
	in := newInterpreter(t)
	tests := []struct {
		phrase string
		want   ball.Candidate
	}{
		{"four", ball.Candidate{RunsOffBat: 4}},
		{"Boundary!", ball.Candidate{RunsOffBat: 4}},
		{"that's a maximum", ball.Candidate{RunsOffBat: 6}},
		{"dot ball", ball.Candidate{}},
		{"single", ball.Candidate{RunsOffBat: 1}},
		{"3", ball.Candidate{RunsOffBat: 3}},
		{"why would", ball.Candidate{Extra: ball.ExtraWide, ExtraRuns: 1}},
		{"wide and four", ball.Candidate{Extra: ball.ExtraWide, ExtraRuns: 5}},
		{"no ball four", ball.Candidate{Extra: ball.ExtraNoBall, ExtraRuns: 1, RunsOffBat: 4}},
		{"no-ball", ball.Candidate{Extra: ball.ExtraNoBall, ExtraRuns: 1}},
		{"two byes", ball.Candidate{Extra: ball.ExtraBye, ExtraRuns: 2}},
		{"leg bye", ball.Candidate{Extra: ball.ExtraLegBye, ExtraRuns: 1}},
		{"2 leg byes", ball.Candidate{Extra: ball.ExtraLegBye, ExtraRuns: 2}},
		{"dead ball", ball.Candidate{DeadBall: true}},
		{"foor", ball.Candidate{RunsOffBat: 4}},
		{"boundry", ball.Candidate{RunsOffBat: 4}},
		{"bowled", ball.Candidate{Wicket: true, Dismissal: ball.DismissalBowled}},
		{"clean bowled", ball.Candidate{Wicket: true, Dismissal: ball.DismissalBowled}},
		{"LBW", ball.Candidate{Wicket: true, Dismissal: ball.DismissalLBW}},
		{"hit wicket", ball.Candidate{Wicket: true, Dismissal: ball.DismissalHitWicket}},
	}
	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			r := in.Interpret(tt.phrase, atCrease)
			if r.Outcome != Resolved {
				t.Fatalf("outcome = %s (%s), want resolved", r.Outcome, r.Reason)
			}
			if r.Err() != nil {
				t.Errorf("Err() = %v", r.Err())
			}
			got := *r.Candidate
			if got.RunsOffBat != tt.want.RunsOffBat || got.Extra != tt.want.Extra || got.ExtraRuns != tt.want.ExtraRuns ||
				got.Wicket != tt.want.Wicket || got.Dismissal != tt.want.Dismissal || got.DeadBall != tt.want.DeadBall {
				t.Errorf("candidate = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCaughtAndBowledNamesTheBowler(t *testing.T) {
	r := newInterpreter(t).Interpret("caught and bowled", atCrease)
	if r.Outcome != Resolved {
		t.Fatalf("outcome = %s", r.Outcome)
	}
	if r.Candidate.FielderID == nil || *r.Candidate.FielderID != 11 || r.Candidate.Dismissal != ball.DismissalCaught {
		t.Errorf("candidate = %+v", r.Candidate)
	}
}

func TestWicketsNeverGuessed(t *testing.T) {
	in := newInterpreter(t)
	tests := []struct {
		phrase string
		ctx    Context
		labels []string
	}{
		{"caught", atCrease, []string{"caught", "caught and bowled"}},
		{"court", Context{}, []string{"caught"}},
		{"stumped", atCrease, []string{"stumped"}},
		{"run out", atCrease, []string{"run out (striker)", "run out (non-striker)"}},
		{"retired hurt", atCrease, []string{"retired (striker)", "retired (non-striker)"}},
		{"out!", atCrease, []string{
			"bowled", "caught", "caught and bowled", "lbw",
			"run out (striker)", "run out (non-striker)", "stumped", "hit wicket",
		}},
		{"wicket", Context{FreeHit: true, StrikerID: 1, NonStrikerID: 2}, []string{"run out (striker)", "run out (non-striker)"}},
		{"wide, out", atCrease, []string{"run out (striker)", "run out (non-striker)", "stumped", "hit wicket"}},
		{"told", atCrease, []string{
			"bowled", "caught", "caught and bowled", "lbw",
			"run out (striker)", "run out (non-striker)", "stumped", "hit wicket",
		}},
		{"gold", atCrease, []string{
			"bowled", "caught", "caught and bowled", "lbw",
			"run out (striker)", "run out (non-striker)", "stumped", "hit wicket",
		}},
		{"elbows", atCrease, []string{
			"lbw", "bowled", "caught", "caught and bowled",
			"run out (striker)", "run out (non-striker)", "stumped", "hit wicket",
		}},
		{"hold", Context{FreeHit: true, StrikerID: 1, NonStrikerID: 2}, []string{"run out (striker)", "run out (non-striker)"}},
	}
	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			r := in.Interpret(tt.phrase, tt.ctx)
			if r.Outcome != Ambiguous {
				t.Fatalf("outcome = %s, want ambiguous", r.Outcome)
			}
			if !errors.Is(r.Err(), apperror.ErrAmbiguous) {
				t.Errorf("Err() = %v", r.Err())
			}
			if len(r.Options) != len(tt.labels) {
				t.Fatalf("options = %+v, want labels %v", r.Options, tt.labels)
			}
			for i, o := range r.Options {
				if o.Label != tt.labels[i] {
					t.Errorf("option %d = %q, want %q", i, o.Label, tt.labels[i])
				}
				if !o.Candidate.Wicket {
					t.Errorf("option %d is not a wicket", i)
				}
			}
		})
	}
}

func TestSplitNoBallIsAmbiguous(t *testing.T) {
	in := newInterpreter(t)

	joined := in.Interpret("no ball", atCrease)
	if joined.Outcome != Resolved || joined.Candidate.Extra != ball.ExtraNoBall {
		t.Fatalf("no ball = %+v", joined)
	}

	split := in.Interpret("no, ball", atCrease)
	if split.Outcome != Ambiguous || len(split.Options) != 2 {
		t.Fatalf("no, ball = %+v", split)
	}
	if split.Options[0].Candidate.Extra != ball.ExtraNoBall {
		t.Errorf("first option = %+v, want no ball", split.Options[0])
	}
	if split.Options[1].Label != "dot ball" || split.Options[1].Candidate.Extra != "" {
		t.Errorf("second option = %+v, want dot ball", split.Options[1])
	}
}

func TestConflictingRunsAreAmbiguous(t *testing.T) {
	r := newInterpreter(t).Interpret("one, two", atCrease)
	if r.Outcome != Ambiguous || len(r.Options) != 2 {
		t.Fatalf("result = %+v", r)
	}
	if r.Options[0].Candidate.RunsOffBat != 1 || r.Options[1].Candidate.RunsOffBat != 2 {
		t.Errorf("options = %+v", r.Options)
	}
}

func TestUnrecognized(t *testing.T) {
	in := newInterpreter(t)
	for _, phrase := range []string{"", "bananas", "the and of"} {
		r := in.Interpret(phrase, atCrease)
		if r.Outcome != Unrecognized {
			t.Errorf("%q: outcome = %s", phrase, r.Outcome)
		}
		if !errors.Is(r.Err(), apperror.ErrUnrecognized) {
			t.Errorf("%q: Err() = %v", phrase, r.Err())
		}
	}
}

func TestParseVocabularyRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"unknown extra":     "extras:\n  overthrow: [overthrow]\n",
		"unknown dismissal": "dismissals:\n  handled: [handled]\n",
		"two meanings":      "runs:\n  - value: 4\n    phrases: [four]\nwicket: [four]\n",
		"run out of range":  "runs:\n  - value: 9\n    phrases: [nine]\n",
		"not yaml":          "runs: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseVocabulary([]byte(doc)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPendingStoreLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewPendingStore(time.Minute, func() time.Time { return now })

	r := newInterpreter(t).Interpret("caught", atCrease)
	cmd := store.Put(Command{MatchID: "m-1", Phrase: r.Phrase, Options: r.Options, LastSequence: 7})
	if cmd.ID == "" || !cmd.ExpiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("stored command = %+v", cmd)
	}

	got, err := store.Get(cmd.ID)
	if err != nil || got.LastSequence != 7 {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	if _, err := got.Resolve(Confirmation{Choice: 0}); !errors.Is(err, apperror.ErrStructural) {
		t.Errorf("caught without fielder = %v, want structural", err)
	}
	if _, err := got.Resolve(Confirmation{Choice: 5}); !errors.Is(err, apperror.ErrStructural) {
		t.Errorf("out of range choice = %v", err)
	}
	keeper := uint(21)
	cand, err := got.Resolve(Confirmation{Choice: 0, FielderID: &keeper})
	if err != nil || *cand.FielderID != 21 || cand.Dismissal != ball.DismissalCaught {
		t.Errorf("Resolve = %+v, %v", cand, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(cmd.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expired Get = %v, want NotFound", err)
	}
	if store.Len() != 0 {
		t.Errorf("expired command still stored")
	}
}

func TestPendingStoreSweepAndCancel(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewPendingStore(time.Minute, func() time.Time { return now })

	a := store.Put(Command{MatchID: "m-1"})
	now = now.Add(30 * time.Second)
	b := store.Put(Command{MatchID: "m-1"})

	if err := store.Cancel(b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := store.Cancel(b.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Cancel = %v", err)
	}

	now = now.Add(45 * time.Second)
	if n := store.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, err := store.Get(a.ID); err == nil {
		t.Error("swept command is still readable")
	}
}
