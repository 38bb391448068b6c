package innings

import (
	"fmt"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/ball"
)

// Outcome describes what a single accepted delivery changed.
type Outcome struct {
	Event            ball.Event       `json:"event"`
	StrikeRotated    bool             `json:"strike_rotated"`
	OverCompleted    bool             `json:"over_completed"`
	Maiden           bool             `json:"maiden"`
	InningsCompleted bool             `json:"innings_completed"`
	Reason           CompletionReason `json:"reason,omitempty"`
}

// Advance validates ev against the innings cursor and returns the innings as
// it stands after the delivery. The input innings is never modified; on error
// it is returned unchanged.
//
// Player ids left at zero on ev are taken from the cursor. The returned
// Outcome.Event carries the filled ids, the over and ball numbering and the
// free-hit marker, and is what belongs in the event log.
func Advance(in Innings, ev ball.Event) (Innings, Outcome, error) {
	if in.Completed {
		return in, Outcome{}, apperror.Rule(apperror.CodeInningsClosed, "innings %d is already complete", in.Number)
	}

	next := in.clone()
	c := &next.Cursor

	if err := seatBatters(&next, &ev); err != nil {
		return in, Outcome{}, err
	}
	if err := checkBowler(next.Cursor, &ev); err != nil {
		return in, Outcome{}, err
	}
	if err := checkWicket(next.Cursor, &ev); err != nil {
		return in, Outcome{}, err
	}

	if ev.Wicket && next.Wickets >= next.Rules.MaxWickets {
		return in, Outcome{}, apperror.Rule(apperror.CodeWicketLimit, "innings already has %d wickets", next.Wickets)
	}
	if ev.IsLegal() && next.LegalBalls >= next.Rules.OversLimit*BallsPerOver {
		return in, Outcome{}, apperror.Rule(apperror.CodeOversExhausted, "all %d overs have been bowled", next.Rules.OversLimit)
	}

	ev.Over = c.CompletedOvers + 1
	ev.Ball = c.BallInOver + 1
	ev.DeliveryInOver = c.DeliveryInOver + 1
	ev.FreeHit = c.FreeHit
	c.BowlerID = ev.BowlerID

	next.Runs += ev.TotalRuns()
	switch ev.Extra {
	case ball.ExtraWide:
		next.Extras.Wides += ev.ExtraRuns
	case ball.ExtraNoBall:
		next.Extras.NoBalls += ev.ExtraRuns
	case ball.ExtraBye:
		next.Extras.Byes += ev.ExtraRuns
	case ball.ExtraLegBye:
		next.Extras.LegByes += ev.ExtraRuns
	}
	next.Extras.Penalty += ev.PenaltyRuns

	out := Outcome{}

	// A dead ball moves no counters and never changes strike.
	if !ev.DeadBall {
		c.DeliveryInOver++
		c.OverRuns += ev.BowlerRuns()
		if ev.IsLegal() {
			next.LegalBalls++
			c.BallInOver++
		}

		crossed := ev.CompletedRuns()%2 == 1
		if ev.BatsmenCrossed != nil {
			crossed = *ev.BatsmenCrossed
		}
		if crossed {
			c.StrikerID, c.NonStrikerID = c.NonStrikerID, c.StrikerID
			out.StrikeRotated = true
		}
		c.FreeHit = nextFreeHit(next.Rules, ev, c.FreeHit)
	}

	if ev.Wicket {
		next.Wickets++
		next.Dismissed = append(next.Dismissed, ev.PlayerOutID)
		if !ev.DeadBall {
			c.OverWicket = true
		}
		switch ev.PlayerOutID {
		case c.StrikerID:
			c.StrikerID = 0
		case c.NonStrikerID:
			c.NonStrikerID = 0
		}
	}

	if ev.IsLegal() && c.BallInOver == BallsPerOver {
		out.OverCompleted = true
		out.Maiden = c.OverRuns == 0 && !c.OverWicket
		c.StrikerID, c.NonStrikerID = c.NonStrikerID, c.StrikerID
		c.CompletedOvers++
		c.BallInOver = 0
		c.DeliveryInOver = 0
		c.OverRuns = 0
		c.OverWicket = false
		c.PreviousBowlerID = c.BowlerID
		c.BowlerID = 0
	}

	if reason := completion(next); reason != ReasonNone {
		next.Completed = true
		next.CompletionReason = reason
		out.InningsCompleted = true
		out.Reason = reason
	}

	next.LastSequence = ev.Sequence
	out.Event = ev
	return next, out, nil
}

// Replay folds events into start. It is the only way derived innings state is
// rebuilt after an undo or a restart.
func Replay(start Innings, events []ball.Event) (Innings, error) {
	cur := start
	for _, ev := range events {
		next, _, err := Advance(cur, ev)
		if err != nil {
			return cur, fmt.Errorf("replay innings %s at sequence %d: %w", start.ID, ev.Sequence, err)
		}
		cur = next
	}
	return cur, nil
}

func seatBatters(in *Innings, ev *ball.Event) error {
	striker, err := seat(*in, in.Cursor.StrikerID, ev.StrikerID, "striker")
	if err != nil {
		return err
	}
	nonStriker, err := seat(*in, in.Cursor.NonStrikerID, ev.NonStrikerID, "non-striker")
	if err != nil {
		return err
	}
	if striker == nonStriker {
		return apperror.Rule(apperror.CodeStrikerMismatch, "player %d cannot be at both ends", striker)
	}
	ev.StrikerID, ev.NonStrikerID = striker, nonStriker
	in.Cursor.StrikerID, in.Cursor.NonStrikerID = striker, nonStriker
	return nil
}

func seat(in Innings, current, supplied uint, end string) (uint, error) {
	if current != 0 {
		if supplied != 0 && supplied != current {
			return 0, apperror.Rule(apperror.CodeStrikerMismatch, "%s is player %d, not %d", end, current, supplied)
		}
		return current, nil
	}
	if supplied == 0 {
		return 0, apperror.Rule(apperror.CodeNewBatterRequired, "a %s must be named before the next ball", end)
	}
	if in.IsDismissed(supplied) {
		return 0, apperror.Rule(apperror.CodeNewBatterRequired, "player %d is already out", supplied)
	}
	return supplied, nil
}

func checkBowler(c Cursor, ev *ball.Event) error {
	midOver := c.BallInOver > 0 || c.DeliveryInOver > 0
	if ev.BowlerID == 0 {
		ev.BowlerID = c.BowlerID
	}
	switch {
	case ev.BowlerID == 0:
		return apperror.Rule(apperror.CodeBowlerMismatch, "a bowler must be named to start over %d", c.CompletedOvers+1)
	case midOver && ev.BowlerID != c.BowlerID:
		return apperror.Rule(apperror.CodeBowlerMismatch, "player %d is midway through over %d", c.BowlerID, c.CompletedOvers+1)
	case !midOver && c.PreviousBowlerID != 0 && ev.BowlerID == c.PreviousBowlerID:
		return apperror.Rule(apperror.CodeConsecutiveOver, "player %d bowled the previous over", ev.BowlerID)
	case ev.BowlerID == ev.StrikerID || ev.BowlerID == ev.NonStrikerID:
		return apperror.Rule(apperror.CodeBowlerMismatch, "player %d is batting", ev.BowlerID)
	}
	return nil
}

func checkWicket(c Cursor, ev *ball.Event) error {
	if !ev.Wicket {
		return nil
	}
	if ev.PlayerOutID == 0 {
		ev.PlayerOutID = ev.StrikerID
	}
	if ev.PlayerOutID != ev.StrikerID && ev.PlayerOutID != ev.NonStrikerID {
		return apperror.Rule(apperror.CodeStrikerMismatch, "player %d is not at the crease", ev.PlayerOutID)
	}
	if ev.Dismissal.StrikerOnly() && ev.PlayerOutID != ev.StrikerID {
		return apperror.Rule(apperror.CodeStrikerMismatch, "only the striker can be out %s", ev.Dismissal)
	}
	if c.FreeHit && ev.Dismissal != ball.DismissalRunOut && ev.Dismissal != ball.DismissalRetired {
		return apperror.Rule(apperror.CodeFreeHitDismissal, "batter cannot be out %s on a free hit", ev.Dismissal)
	}
	return nil
}

func nextFreeHit(r Rules, ev ball.Event, armed bool) bool {
	switch ev.Extra {
	case ball.ExtraNoBall:
		if !r.FreeHitOnNoBall {
			return false
		}
		if (ev.IsFour() || ev.IsSix()) && !r.FreeHitOnBoundaryNoBall {
			return false
		}
		return true
	case ball.ExtraWide:
		return armed
	}
	return false
}

func completion(in Innings) CompletionReason {
	switch {
	case in.Target > 0 && in.Runs >= in.Target:
		return ReasonTargetReached
	case in.Wickets >= in.Rules.MaxWickets:
		return ReasonAllOut
	case in.LegalBalls >= in.Rules.OversLimit*BallsPerOver:
		return ReasonOversExhausted
	}
	return ReasonNone
}
