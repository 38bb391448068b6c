package ball

import (
	"github.com/DhavalSuthar-24/crease/internal/apperror"
)

// Candidate is a delivery as submitted by an operator or produced by the
// command interpreter. Player ids left at zero are taken from the innings cursor.
type Candidate struct {
	StrikerID    uint `json:"striker_id,omitempty"`
	NonStrikerID uint `json:"non_striker_id,omitempty"`
	BowlerID     uint `json:"bowler_id,omitempty"`

	RunsOffBat int       `json:"runs_off_bat" binding:"min=0,max=7"`
	Extra      ExtraType `json:"extra_type,omitempty" binding:"omitempty,oneof=none wide no_ball bye leg_bye"`
	ExtraRuns  int       `json:"extra_runs" binding:"min=0,max=7"`

	Wicket      bool          `json:"wicket"`
	Dismissal   DismissalType `json:"dismissal_type,omitempty" binding:"omitempty,oneof=none bowled caught run_out stumped lbw hit_wicket retired"`
	PlayerOutID uint          `json:"player_out_id,omitempty"`
	FielderID   *uint         `json:"fielder_id,omitempty"`

	PenaltyRuns    int   `json:"penalty_runs" binding:"min=0"`
	ShortRun       bool  `json:"short_run"`
	DeadBall       bool  `json:"dead_ball"`
	BatsmenCrossed *bool `json:"batsmen_crossed,omitempty"`
}

// allowedDismissals lists, per kind of delivery, the ways a batter can be out on it.
var allowedDismissals = map[ExtraType]map[DismissalType]bool{
	ExtraNone: {
		DismissalBowled: true, DismissalCaught: true, DismissalRunOut: true,
		DismissalStumped: true, DismissalLBW: true, DismissalHitWicket: true,
	},
	ExtraWide:   {DismissalStumped: true, DismissalRunOut: true, DismissalHitWicket: true},
	ExtraNoBall: {DismissalRunOut: true},
	ExtraBye:    {DismissalRunOut: true},
	ExtraLegBye: {DismissalRunOut: true},
}

// Event checks the candidate for structural validity and turns it into an
// event with defaults filled in. Numbering, sequence and cursor-derived
// player ids are left for the innings engine and the processor.
func (c Candidate) Event() (Event, error) {
	ev := Event{
		StrikerID:      c.StrikerID,
		NonStrikerID:   c.NonStrikerID,
		BowlerID:       c.BowlerID,
		RunsOffBat:     c.RunsOffBat,
		Extra:          c.Extra,
		ExtraRuns:      c.ExtraRuns,
		Wicket:         c.Wicket,
		Dismissal:      c.Dismissal,
		PlayerOutID:    c.PlayerOutID,
		FielderID:      c.FielderID,
		PenaltyRuns:    c.PenaltyRuns,
		ShortRun:       c.ShortRun,
		DeadBall:       c.DeadBall,
		BatsmenCrossed: c.BatsmenCrossed,
	}
	if ev.Extra == "" {
		ev.Extra = ExtraNone
	}
	if ev.Dismissal == "" {
		ev.Dismissal = DismissalNone
	}

	if !ev.Extra.Valid() {
		return Event{}, apperror.Structural("unknown extra type %q", ev.Extra)
	}
	if !ev.Dismissal.Valid() {
		return Event{}, apperror.Structural("unknown dismissal type %q", ev.Dismissal)
	}
	if ev.RunsOffBat < 0 || ev.ExtraRuns < 0 || ev.PenaltyRuns < 0 {
		return Event{}, apperror.Structural("runs cannot be negative")
	}

	switch ev.Extra {
	case ExtraNone:
		if ev.ExtraRuns != 0 {
			return Event{}, apperror.Structural("extra runs given without an extra type")
		}
	case ExtraWide:
		if ev.RunsOffBat != 0 {
			return Event{}, apperror.Structural("a wide cannot carry runs off the bat")
		}
		if ev.ExtraRuns == 0 {
			ev.ExtraRuns = 1
		}
	case ExtraNoBall:
		if ev.ExtraRuns == 0 {
			ev.ExtraRuns = 1
		}
	case ExtraBye, ExtraLegBye:
		if ev.RunsOffBat != 0 {
			return Event{}, apperror.Structural("%s cannot carry runs off the bat", ev.Extra)
		}
		if ev.ExtraRuns == 0 {
			return Event{}, apperror.Structural("%s requires at least one run", ev.Extra)
		}
	}

	if ev.DeadBall {
		if ev.Extra != ExtraNone || ev.RunsOffBat != 0 || ev.ShortRun {
			return Event{}, apperror.Structural("a dead ball carries penalty runs only")
		}
		if ev.Wicket && ev.Dismissal != DismissalRetired {
			return Event{}, apperror.Structural("only a retirement can be recorded on a dead ball")
		}
	}

	if ev.ShortRun && ev.RunsOffBat+ev.ExtraRuns == 0 {
		return Event{}, apperror.Structural("short run flagged on a delivery with no runs")
	}

	if !ev.Wicket {
		if ev.Dismissal != DismissalNone {
			return Event{}, apperror.Structural("dismissal type %q given without a wicket", ev.Dismissal)
		}
		if ev.PlayerOutID != 0 || ev.FielderID != nil {
			return Event{}, apperror.Structural("player out or fielder given without a wicket")
		}
		return ev, nil
	}

	if ev.Dismissal == DismissalNone {
		return Event{}, apperror.Structural("wicket requires a dismissal type")
	}
	if ev.Dismissal == DismissalRetired {
		if !ev.DeadBall {
			return Event{}, apperror.Structural("a retirement must be recorded as a dead ball")
		}
		return ev, nil
	}
	if !allowedDismissals[ev.Extra][ev.Dismissal] {
		return Event{}, apperror.Structural("%s is not a possible dismissal on a %s delivery", ev.Dismissal, ev.Extra)
	}
	if ev.Dismissal.NeedsFielder() && (ev.FielderID == nil || *ev.FielderID == 0) {
		return Event{}, apperror.Structural("%s requires a fielder", ev.Dismissal)
	}
	return ev, nil
}
