package scoring

import (
	"github.com/DhavalSuthar-24/crease/internal/ball"
	"github.com/DhavalSuthar-24/crease/internal/innings"
	"github.com/DhavalSuthar-24/crease/internal/match"
	"github.com/DhavalSuthar-24/crease/internal/stats"
)

type DeltaKind string

const (
	DeltaBall    DeltaKind = "ball"
	DeltaUndo    DeltaKind = "undo"
	DeltaMatch   DeltaKind = "match"
	DeltaRebuild DeltaKind = "rebuild"
)

// InningsView is an innings with its scoreboard figures filled in.
type InningsView struct {
	innings.Innings
	Overs          string `json:"overs"`
	BallsRemaining int    `json:"balls_remaining"`
	RunsRequired   int    `json:"runs_required,omitempty"`
}

func viewOf(in innings.Innings) InningsView {
	return InningsView{
		Innings:        in,
		Overs:          in.Overs(),
		BallsRemaining: in.BallsRemaining(),
		RunsRequired:   in.RunsRequired(),
	}
}

// Delta is what changed for viewers after one accepted operation.
type Delta struct {
	MatchID  string    `json:"match_id"`
	Sequence int64     `json:"sequence"`
	Kind     DeltaKind `json:"kind"`

	Event   *ball.Event      `json:"event,omitempty"`
	Outcome *innings.Outcome `json:"outcome,omitempty"`
	Removed *ball.Event      `json:"removed,omitempty"`

	Match   match.Match                `json:"match"`
	Innings *InningsView               `json:"innings,omitempty"`
	Players []stats.PlayerInningsStats `json:"players,omitempty"`
}

// Scorecard is one innings with every player's figures.
type Scorecard struct {
	InningsView
	Players []stats.PlayerInningsStats `json:"players"`
}

// Snapshot is the full state of a match at a stream sequence.
type Snapshot struct {
	MatchID  string      `json:"match_id"`
	Sequence int64       `json:"sequence"`
	Match    match.Match `json:"match"`
	Innings  []Scorecard `json:"innings"`
}

// UndoResult carries the removed event and the recomputed projections.
type UndoResult struct {
	Removed ball.Event                 `json:"removed"`
	Innings InningsView                `json:"innings"`
	Players []stats.PlayerInningsStats `json:"players"`
	Delta   Delta                      `json:"-"`
}

// VerifyReport lists every projection that disagrees with a replay of the log.
type VerifyReport struct {
	MatchID    string   `json:"match_id"`
	Consistent bool     `json:"consistent"`
	Mismatches []string `json:"mismatches,omitempty"`
}
