// Package innings is the over and ball engine. It is pure: Advance takes an
// innings value and an event and returns the next innings value, so live
// scoring and replay from the event log run through exactly the same code.
package innings

import "fmt"

const BallsPerOver = 6

// Rules are fixed for the lifetime of an innings.
type Rules struct {
	OversLimit int `json:"overs_limit"`
	MaxWickets int `json:"max_wickets"`
	// FreeHitOnNoBall arms a free hit on the delivery after a no-ball.
	FreeHitOnNoBall bool `json:"free_hit_on_no_ball"`
	// FreeHitOnBoundaryNoBall decides whether a no-ball hit for four or six
	// still arms the free hit.
	FreeHitOnBoundaryNoBall bool `json:"free_hit_on_boundary_no_ball"`
}

// DefaultRules is a T20 innings.
func DefaultRules() Rules {
	return Rules{OversLimit: 20, MaxWickets: 10, FreeHitOnNoBall: true, FreeHitOnBoundaryNoBall: true}
}

type Extras struct {
	Wides   int `json:"wides"`
	NoBalls int `json:"no_balls"`
	Byes    int `json:"byes"`
	LegByes int `json:"leg_byes"`
	Penalty int `json:"penalty"`
}

func (e Extras) Total() int {
	return e.Wides + e.NoBalls + e.Byes + e.LegByes + e.Penalty
}

type CompletionReason string

const (
	ReasonNone           CompletionReason = ""
	ReasonAllOut         CompletionReason = "all_out"
	ReasonOversExhausted CompletionReason = "overs_exhausted"
	ReasonTargetReached  CompletionReason = "target_reached"
)

// Cursor is where the innings stands between deliveries. A zero player id in
// the striker or non-striker slot means the crease is vacant after a wicket.
type Cursor struct {
	CompletedOvers   int  `json:"completed_overs"`
	BallInOver       int  `json:"ball_in_over"`
	DeliveryInOver   int  `json:"delivery_in_over"`
	StrikerID        uint `json:"striker_id"`
	NonStrikerID     uint `json:"non_striker_id"`
	BowlerID         uint `json:"bowler_id"`
	PreviousBowlerID uint `json:"previous_bowler_id"`
	FreeHit          bool `json:"free_hit"`
	OverRuns         int  `json:"over_runs"`
	OverWicket       bool `json:"over_wicket"`
}

// Innings is the derived projection of one innings' event log.
type Innings struct {
	ID            string `json:"id"`
	MatchID       string `json:"match_id"`
	Number        int    `json:"number"`
	BattingTeamID uint   `json:"batting_team_id"`
	BowlingTeamID uint   `json:"bowling_team_id"`

	Runs       int    `json:"runs"`
	Wickets    int    `json:"wickets"`
	LegalBalls int    `json:"legal_balls"`
	Extras     Extras `json:"extras"`
	Target     int    `json:"target,omitempty"`

	Completed        bool             `json:"completed"`
	CompletionReason CompletionReason `json:"completion_reason,omitempty"`

	Rules        Rules  `json:"rules"`
	Cursor       Cursor `json:"cursor"`
	Dismissed    []uint `json:"dismissed"`
	LastSequence int64  `json:"last_sequence"`
}

// New opens an empty innings. target is zero for the first innings.
func New(id, matchID string, number int, battingTeamID, bowlingTeamID uint, target int, rules Rules) Innings {
	if rules.MaxWickets <= 0 {
		rules.MaxWickets = 10
	}
	return Innings{
		ID:            id,
		MatchID:       matchID,
		Number:        number,
		BattingTeamID: battingTeamID,
		BowlingTeamID: bowlingTeamID,
		Target:        target,
		Rules:         rules,
		Dismissed:     []uint{},
	}
}

// Overs renders legal balls the way a scoreboard does, e.g. "12.3".
func (in Innings) Overs() string {
	return fmt.Sprintf("%d.%d", in.LegalBalls/BallsPerOver, in.LegalBalls%BallsPerOver)
}

func (in Innings) BallsRemaining() int {
	return in.Rules.OversLimit*BallsPerOver - in.LegalBalls
}

// RunsRequired is meaningful in a chase only.
func (in Innings) RunsRequired() int {
	if in.Target == 0 {
		return 0
	}
	if r := in.Target - in.Runs; r > 0 {
		return r
	}
	return 0
}

func (in Innings) IsDismissed(playerID uint) bool {
	for _, id := range in.Dismissed {
		if id == playerID {
			return true
		}
	}
	return false
}

func (in Innings) clone() Innings {
	out := in
	out.Dismissed = append(make([]uint, 0, len(in.Dismissed)+1), in.Dismissed...)
	return out
}
