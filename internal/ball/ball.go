package ball

import "time"

// ExtraType for runs not scored off the bat
type ExtraType string

const (
	ExtraNone   ExtraType = "none"
	ExtraWide   ExtraType = "wide"
	ExtraNoBall ExtraType = "no_ball"
	ExtraBye    ExtraType = "bye"
	ExtraLegBye ExtraType = "leg_bye"
)

func (x ExtraType) Valid() bool {
	switch x {
	case ExtraNone, ExtraWide, ExtraNoBall, ExtraBye, ExtraLegBye:
		return true
	}
	return false
}

// DismissalType for cricket wickets
type DismissalType string

const (
	DismissalNone      DismissalType = "none"
	DismissalBowled    DismissalType = "bowled"
	DismissalCaught    DismissalType = "caught"
	DismissalRunOut    DismissalType = "run_out"
	DismissalStumped   DismissalType = "stumped"
	DismissalLBW       DismissalType = "lbw"
	DismissalHitWicket DismissalType = "hit_wicket"
	DismissalRetired   DismissalType = "retired"
)

func (d DismissalType) Valid() bool {
	switch d {
	case DismissalNone, DismissalBowled, DismissalCaught, DismissalRunOut,
		DismissalStumped, DismissalLBW, DismissalHitWicket, DismissalRetired:
		return true
	}
	return false
}

// CreditsBowler reports whether the bowler is credited with the wicket.
// Run outs and retirements are not.
func (d DismissalType) CreditsBowler() bool {
	switch d {
	case DismissalBowled, DismissalCaught, DismissalStumped, DismissalLBW, DismissalHitWicket:
		return true
	}
	return false
}

// StrikerOnly reports whether only the batter on strike can be out this way.
func (d DismissalType) StrikerOnly() bool {
	return d.CreditsBowler()
}

// NeedsFielder reports whether the dismissal cannot be recorded without a fielder.
func (d DismissalType) NeedsFielder() bool {
	return d == DismissalCaught || d == DismissalStumped
}

// Event is one delivery as it sits in the event log. It is never edited once
// appended; corrections remove the latest event and replay the rest.
type Event struct {
	InningsID string `json:"innings_id"`
	Sequence  int64  `json:"sequence"`

	Over           int `json:"over"`             // 1-indexed
	Ball           int `json:"ball"`             // 1..6, legal index of the delivery being bowled
	DeliveryInOver int `json:"delivery_in_over"` // every delivery in the over, extras included

	StrikerID    uint `json:"striker_id"`
	NonStrikerID uint `json:"non_striker_id"`
	BowlerID     uint `json:"bowler_id"`

	RunsOffBat int       `json:"runs_off_bat"`
	Extra      ExtraType `json:"extra_type"`
	// For wides and no-balls ExtraRuns includes the one-run penalty.
	ExtraRuns int `json:"extra_runs"`

	Wicket      bool          `json:"wicket"`
	Dismissal   DismissalType `json:"dismissal_type"`
	PlayerOutID uint          `json:"player_out_id,omitempty"`
	FielderID   *uint         `json:"fielder_id,omitempty"`

	PenaltyRuns    int   `json:"penalty_runs"`
	ShortRun       bool  `json:"short_run"`
	DeadBall       bool  `json:"dead_ball"`
	BatsmenCrossed *bool `json:"batsmen_crossed,omitempty"`
	FreeHit        bool  `json:"free_hit"`

	CreatedAt time.Time `json:"created_at"`
}

// IsLegal reports whether the delivery counts towards the six balls of an over.
func (e Event) IsLegal() bool {
	if e.DeadBall {
		return false
	}
	return e.Extra != ExtraWide && e.Extra != ExtraNoBall
}

// TotalRuns is everything the delivery adds to the innings total.
func (e Event) TotalRuns() int {
	return e.RunsOffBat + e.ExtraRuns + e.PenaltyRuns
}

// CompletedRuns is the number of runs the batters physically ran or were
// awarded for, which decides who faces next.
func (e Event) CompletedRuns() int {
	switch e.Extra {
	case ExtraWide, ExtraNoBall:
		return e.RunsOffBat + e.ExtraRuns - 1
	case ExtraBye, ExtraLegBye:
		return e.ExtraRuns
	}
	return e.RunsOffBat
}

// BowlerRuns is what the bowler is charged with. Byes, leg-byes and penalties are not.
func (e Event) BowlerRuns() int {
	switch e.Extra {
	case ExtraWide, ExtraNoBall:
		return e.RunsOffBat + e.ExtraRuns
	}
	return e.RunsOffBat
}

func (e Event) IsFour() bool { return e.RunsOffBat == 4 }
func (e Event) IsSix() bool  { return e.RunsOffBat == 6 }

// FacedByStriker reports whether the delivery counts as a ball faced. Wides do not.
func (e Event) FacedByStriker() bool {
	return !e.DeadBall && e.Extra != ExtraWide
}
