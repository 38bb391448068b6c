package innings

import (
	"errors"
	"reflect"
	"testing"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/ball"
)

const (
	opener1 uint = 1
	opener2 uint = 2
	bowlerA uint = 11
	bowlerB uint = 12
)

func newTestInnings(rules Rules) Innings {
	return New("inn-1", "match-1", 1, 100, 200, 0, rules)
}

func runs(n int) ball.Event {
	return ball.Event{RunsOffBat: n, Extra: ball.ExtraNone, Dismissal: ball.DismissalNone}
}

func opening(n int) ball.Event {
	ev := runs(n)
	ev.StrikerID, ev.NonStrikerID, ev.BowlerID = opener1, opener2, bowlerA
	return ev
}

func bowled() ball.Event {
	return ball.Event{Extra: ball.ExtraNone, Wicket: true, Dismissal: ball.DismissalBowled}
}

func advance(t *testing.T, in Innings, ev ball.Event) (Innings, Outcome) {
	t.Helper()
	ev.Sequence = in.LastSequence + 1
	next, out, err := Advance(in, ev)
	if err != nil {
		t.Fatalf("Advance(seq %d) unexpected error: %v", ev.Sequence, err)
	}
	return next, out
}

// withIncoming seats a new batter in whichever crease slot is vacant.
func withIncoming(in Innings, ev ball.Event, playerID uint) ball.Event {
	switch {
	case in.Cursor.StrikerID == 0:
		ev.StrikerID = playerID
	case in.Cursor.NonStrikerID == 0:
		ev.NonStrikerID = playerID
	}
	return ev
}

func TestStrikeRotationAcrossAnOver(t *testing.T) {
	in := newTestInnings(DefaultRules())
	pattern := []int{1, 2, 1, 4, 0, 1}
	wantRotated := []bool{true, false, true, false, false, true}

	var out Outcome
	for i, r := range pattern {
		ev := runs(r)
		if i == 0 {
			ev = opening(r)
		}
		in, out = advance(t, in, ev)
		if out.StrikeRotated != wantRotated[i] {
			t.Errorf("ball %d: StrikeRotated = %v, want %v", i+1, out.StrikeRotated, wantRotated[i])
		}
		if out.Event.Ball != i+1 || out.Event.Over != 1 {
			t.Errorf("ball %d numbered %d.%d", i+1, out.Event.Over, out.Event.Ball)
		}
	}

	if !out.OverCompleted {
		t.Fatal("over not closed after six legal balls")
	}
	// Parity put opener2 on strike after ball 6, then the ends changed.
	if in.Cursor.StrikerID != opener1 || in.Cursor.NonStrikerID != opener2 {
		t.Errorf("after over: striker %d non-striker %d, want %d and %d",
			in.Cursor.StrikerID, in.Cursor.NonStrikerID, opener1, opener2)
	}
	if in.Runs != 9 || in.LegalBalls != 6 || in.Overs() != "1.0" {
		t.Errorf("totals = %d runs, %d balls (%s)", in.Runs, in.LegalBalls, in.Overs())
	}

	same := runs(0)
	same.BowlerID = bowlerA
	_, _, err := Advance(in, same)
	if !errors.Is(err, apperror.ErrConsecutiveOver) {
		t.Fatalf("same bowler next over: err = %v, want ConsecutiveOverViolation", err)
	}

	change := runs(0)
	change.BowlerID = bowlerB
	in, out = advance(t, in, change)
	if out.Event.Over != 2 || out.Event.Ball != 1 || out.Event.BowlerID != bowlerB {
		t.Errorf("first ball of over 2 = %+v", out.Event)
	}
}

func TestConsecutiveOverLeavesStateUnchanged(t *testing.T) {
	in := newTestInnings(DefaultRules())
	in, _ = advance(t, in, opening(0))
	for i := 0; i < 5; i++ {
		in, _ = advance(t, in, runs(0))
	}
	before := in.clone()

	ev := runs(4)
	ev.BowlerID = bowlerA
	got, _, err := Advance(in, ev)
	if !errors.Is(err, apperror.ErrConsecutiveOver) {
		t.Fatalf("err = %v, want ConsecutiveOverViolation", err)
	}
	if !reflect.DeepEqual(got, before) || !reflect.DeepEqual(in, before) {
		t.Error("rejected ball changed innings state")
	}
}

func TestWideDoesNotCountAsABall(t *testing.T) {
	in := newTestInnings(DefaultRules())
	wide := opening(0)
	wide.Extra, wide.ExtraRuns = ball.ExtraWide, 1

	in, out := advance(t, in, wide)
	if in.LegalBalls != 0 || in.Cursor.BallInOver != 0 {
		t.Errorf("wide advanced ball count: legal=%d ballInOver=%d", in.LegalBalls, in.Cursor.BallInOver)
	}
	if in.Runs != 1 || in.Extras.Wides != 1 {
		t.Errorf("runs=%d wides=%d, want 1 and 1", in.Runs, in.Extras.Wides)
	}
	if out.Event.Ball != 1 || out.Event.DeliveryInOver != 1 {
		t.Errorf("wide numbered ball %d delivery %d", out.Event.Ball, out.Event.DeliveryInOver)
	}

	in, out = advance(t, in, runs(1))
	if out.Event.Ball != 1 || out.Event.DeliveryInOver != 2 || in.LegalBalls != 1 {
		t.Errorf("ball after wide numbered %d (delivery %d), legal=%d", out.Event.Ball, out.Event.DeliveryInOver, in.LegalBalls)
	}
}

func TestBowlerCannotChangeMidOver(t *testing.T) {
	in := newTestInnings(DefaultRules())
	in, _ = advance(t, in, opening(1))
	ev := runs(0)
	ev.BowlerID = bowlerB
	_, _, err := Advance(in, ev)
	if !errors.Is(err, &apperror.Error{Kind: apperror.KindRule, Code: apperror.CodeBowlerMismatch}) {
		t.Fatalf("err = %v, want BowlerMismatch", err)
	}
}

func TestTenthWicketCompletesInnings(t *testing.T) {
	in := newTestInnings(DefaultRules())
	bowlers := []uint{bowlerA, bowlerB}
	next := uint(3)

	var out Outcome
	for w := 0; w < 10; w++ {
		ev := bowled()
		if w == 0 {
			ev.StrikerID, ev.NonStrikerID = opener1, opener2
		} else {
			ev = withIncoming(in, ev, next)
			next++
		}
		if in.Cursor.BallInOver == 0 {
			ev.BowlerID = bowlers[in.Cursor.CompletedOvers%2]
		}
		in, out = advance(t, in, ev)
	}

	if !in.Completed || in.CompletionReason != ReasonAllOut || !out.InningsCompleted {
		t.Fatalf("innings not closed all out: %+v", in)
	}
	if in.Wickets != 10 || len(in.Dismissed) != 10 {
		t.Errorf("wickets=%d dismissed=%d", in.Wickets, len(in.Dismissed))
	}

	_, _, err := Advance(in, runs(0))
	if !errors.Is(err, &apperror.Error{Kind: apperror.KindRule, Code: apperror.CodeInningsClosed}) {
		t.Errorf("ball after all out: err = %v, want InningsClosed", err)
	}
}

func TestNewBatterRequiredAfterWicket(t *testing.T) {
	in := newTestInnings(DefaultRules())
	first := bowled()
	first.StrikerID, first.NonStrikerID, first.BowlerID = opener1, opener2, bowlerA
	in, _ = advance(t, in, first)

	if in.Cursor.StrikerID != 0 {
		t.Fatalf("striker slot not vacated: %+v", in.Cursor)
	}

	tests := []struct {
		name    string
		striker uint
	}{
		{"no batter named", 0},
		{"dismissed batter named", opener1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := runs(0)
			ev.StrikerID = tt.striker
			_, _, err := Advance(in, ev)
			if !errors.Is(err, &apperror.Error{Kind: apperror.KindRule, Code: apperror.CodeNewBatterRequired}) {
				t.Errorf("err = %v, want NewBatterRequired", err)
			}
		})
	}

	ev := runs(0)
	ev.StrikerID = 3
	in, _ = advance(t, in, ev)
	if in.Cursor.StrikerID != 3 {
		t.Errorf("new batter not seated: %+v", in.Cursor)
	}
}

func TestMaidenOver(t *testing.T) {
	tests := []struct {
		name       string
		lastBall   ball.Event
		wantMaiden bool
	}{
		{"six dots", runs(0), true},
		{"leg-byes do not spoil a maiden", ball.Event{Extra: ball.ExtraLegBye, ExtraRuns: 2}, true},
		{"wicket spoils a maiden", bowled(), false},
		{"a single spoils a maiden", runs(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newTestInnings(DefaultRules())
			in, _ = advance(t, in, opening(0))
			for i := 0; i < 4; i++ {
				in, _ = advance(t, in, runs(0))
			}
			_, out := advance(t, in, tt.lastBall)
			if !out.OverCompleted {
				t.Fatal("over not completed")
			}
			if out.Maiden != tt.wantMaiden {
				t.Errorf("Maiden = %v, want %v", out.Maiden, tt.wantMaiden)
			}
		})
	}
}

func TestFreeHit(t *testing.T) {
	noBall := func(bat int) ball.Event {
		ev := opening(bat)
		ev.Extra, ev.ExtraRuns = ball.ExtraNoBall, 1
		return ev
	}

	tests := []struct {
		name        string
		rules       func(*Rules)
		first       ball.Event
		wantFreeHit bool
	}{
		{"no-ball arms free hit", nil, noBall(0), true},
		{"boundary no-ball arms free hit by default", nil, noBall(4), true},
		{"boundary no-ball without free hit", func(r *Rules) { r.FreeHitOnBoundaryNoBall = false }, noBall(4), false},
		{"free hits disabled", func(r *Rules) { r.FreeHitOnNoBall = false }, noBall(0), false},
		{"legal ball", nil, opening(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			if tt.rules != nil {
				tt.rules(&rules)
			}
			in := newTestInnings(rules)
			in, _ = advance(t, in, tt.first)
			if in.Cursor.FreeHit != tt.wantFreeHit {
				t.Fatalf("FreeHit = %v, want %v", in.Cursor.FreeHit, tt.wantFreeHit)
			}

			_, out, err := Advance(in, bowled())
			if tt.wantFreeHit {
				if !errors.Is(err, &apperror.Error{Kind: apperror.KindRule, Code: apperror.CodeFreeHitDismissal}) {
					t.Errorf("bowled on free hit: err = %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("bowled without free hit: %v", err)
			}
			if out.Event.FreeHit {
				t.Error("event marked as free hit")
			}
		})
	}
}

func TestFreeHitSurvivesAWide(t *testing.T) {
	in := newTestInnings(DefaultRules())
	nb := opening(0)
	nb.Extra, nb.ExtraRuns = ball.ExtraNoBall, 1
	in, _ = advance(t, in, nb)
	in, _ = advance(t, in, ball.Event{Extra: ball.ExtraWide, ExtraRuns: 1})
	if !in.Cursor.FreeHit {
		t.Fatal("free hit lost after a wide")
	}
	in, _ = advance(t, in, runs(2))
	if in.Cursor.FreeHit {
		t.Error("free hit still armed after a legal ball")
	}
}

func TestDeadBallMovesNothing(t *testing.T) {
	in := newTestInnings(DefaultRules())
	in, _ = advance(t, in, opening(1))
	before := in.Cursor

	in, out := advance(t, in, ball.Event{Extra: ball.ExtraNone, DeadBall: true, PenaltyRuns: 5})
	if in.Cursor.BallInOver != before.BallInOver || in.Cursor.StrikerID != before.StrikerID || in.LegalBalls != 1 {
		t.Errorf("dead ball moved the cursor: %+v -> %+v", before, in.Cursor)
	}
	if in.Runs != 6 || in.Extras.Penalty != 5 || out.StrikeRotated {
		t.Errorf("runs=%d penalty=%d rotated=%v", in.Runs, in.Extras.Penalty, out.StrikeRotated)
	}
}

func TestBatsmenCrossedOverridesParity(t *testing.T) {
	in := newTestInnings(DefaultRules())
	crossed := false
	ev := opening(1)
	ev.ShortRun = true
	ev.BatsmenCrossed = &crossed
	in, out := advance(t, in, ev)
	if out.StrikeRotated || in.Cursor.StrikerID != opener1 {
		t.Errorf("override ignored: striker %d", in.Cursor.StrikerID)
	}
}

func TestOversExhaustedAndTarget(t *testing.T) {
	rules := DefaultRules()
	rules.OversLimit = 1

	t.Run("overs exhausted", func(t *testing.T) {
		in := newTestInnings(rules)
		in, _ = advance(t, in, opening(0))
		for i := 0; i < 5; i++ {
			in, _ = advance(t, in, runs(0))
		}
		if !in.Completed || in.CompletionReason != ReasonOversExhausted {
			t.Errorf("completed=%v reason=%q", in.Completed, in.CompletionReason)
		}
	})

	t.Run("target reached", func(t *testing.T) {
		in := New("inn-2", "match-1", 2, 200, 100, 8, rules)
		in, _ = advance(t, in, opening(4))
		in, out := advance(t, in, runs(4))
		if !out.InningsCompleted || in.CompletionReason != ReasonTargetReached {
			t.Errorf("chase not closed: %+v", in)
		}
		if in.RunsRequired() != 0 {
			t.Errorf("RunsRequired() = %d", in.RunsRequired())
		}
	})
}

func TestReplayMatchesLiveState(t *testing.T) {
	start := newTestInnings(DefaultRules())
	inputs := []ball.Event{
		opening(1),
		runs(4),
		{Extra: ball.ExtraWide, ExtraRuns: 1},
		{Extra: ball.ExtraNoBall, ExtraRuns: 1, RunsOffBat: 1},
		runs(2),
		bowled(),
	}

	live := start
	var log []ball.Event
	var out Outcome
	for _, ev := range inputs {
		live, out = advance(t, live, ev)
		log = append(log, out.Event)
	}
	live, out = advance(t, live, withIncoming(live, runs(0), 3))
	log = append(log, out.Event)

	replayed, err := Replay(start, log)
	if err != nil {
		t.Fatalf("Replay() error: %v", err)
	}
	if !reflect.DeepEqual(replayed, live) {
		t.Errorf("replay diverged:\nlive   %+v\nreplay %+v", live, replayed)
	}
	if live.LegalBalls != 5 || live.Runs != 10 {
		t.Errorf("live totals = %d runs off %d balls, want 10 off 5", live.Runs, live.LegalBalls)
	}
}
