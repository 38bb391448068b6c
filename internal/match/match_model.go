package match

import (
	"time"

	"github.com/DhavalSuthar-24/crease/internal/innings"
	"gorm.io/gorm"
)

type Status string

const (
	StatusSetup        Status = "setup"
	StatusTossPending  Status = "toss_pending"
	StatusInProgress   Status = "in_progress"
	StatusInningsBreak Status = "innings_break"
	StatusCompleted    Status = "completed"
	StatusAbandoned    Status = "abandoned"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

type TossDecision string

const (
	TossBat  TossDecision = "bat"
	TossBowl TossDecision = "bowl"
)

// Match is the lifecycle record of one limited-overs game. Its status is
// changed only through the transition methods in match_state.go.
type Match struct {
	ID        string         `json:"id" gorm:"type:text;primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	CreatedByUserID uint   `json:"created_by_user_id" gorm:"index"`
	Title           string `json:"title"`

	Team1ID    uint `json:"team1_id,omitempty"`
	Team2ID    uint `json:"team2_id,omitempty"`
	OversLimit int  `json:"overs_limit,omitempty"`

	// Free-hit rules are fixed at creation so replay never depends on live config.
	FreeHitOnNoBall         bool `json:"free_hit_on_no_ball"`
	FreeHitOnBoundaryNoBall bool `json:"free_hit_on_boundary_no_ball"`

	// Toss Information
	TossWinnerTeamID   uint         `json:"toss_winner_team_id,omitempty"`
	TossDecision       TossDecision `json:"toss_decision,omitempty"`
	BattingFirstTeamID uint         `json:"batting_first_team_id,omitempty"`

	Status         Status `json:"status" gorm:"index;not null"`
	CurrentInnings int    `json:"current_innings"`
	Innings1ID     string `json:"innings1_id,omitempty"`
	Innings2ID     string `json:"innings2_id,omitempty"`
	Target         int    `json:"target,omitempty"`

	// Match Result
	WinningTeamID *uint      `json:"winning_team_id,omitempty"`
	WinMargin     int        `json:"win_margin,omitempty"`
	WinMarginUnit string     `json:"win_margin_unit,omitempty"`
	ResultSummary string     `json:"result_summary,omitempty"`
	AbandonReason string     `json:"abandon_reason,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Rules returns the innings rules this match is played under.
func (m *Match) Rules() innings.Rules {
	return innings.Rules{
		OversLimit:              m.OversLimit,
		MaxWickets:              10,
		FreeHitOnNoBall:         m.FreeHitOnNoBall,
		FreeHitOnBoundaryNoBall: m.FreeHitOnBoundaryNoBall,
	}
}

func (m *Match) other(teamID uint) uint {
	if teamID == m.Team1ID {
		return m.Team2ID
	}
	return m.Team1ID
}

// InningsID returns the id of innings number n, or "" if it has not started.
func (m *Match) InningsID(n int) string {
	switch n {
	case 1:
		return m.Innings1ID
	case 2:
		return m.Innings2ID
	}
	return ""
}

// InningsStart rebuilds the empty innings n exactly as it was opened, for replay.
func (m *Match) InningsStart(n int) (innings.Innings, bool) {
	id := m.InningsID(n)
	if id == "" {
		return innings.Innings{}, false
	}
	batting := m.BattingFirstTeamID
	target := 0
	if n == 2 {
		batting = m.other(m.BattingFirstTeamID)
		target = m.Target
	}
	return innings.New(id, m.ID, n, batting, m.other(batting), target, m.Rules()), true
}

// InningsRecord is the cached projection of an innings. It can always be
// discarded and rebuilt from ball_events.
type InningsRecord struct {
	ID               string `gorm:"type:text;primaryKey"`
	MatchID          string `gorm:"type:text;index;not null"`
	InningsNumber    int    `gorm:"not null"`
	BattingTeamID    uint   `gorm:"not null"`
	BowlingTeamID    uint   `gorm:"not null"`
	Score            int    `gorm:"not null;default:0"`
	Wickets          int    `gorm:"not null;default:0"`
	Balls            int    `gorm:"not null;default:0"`
	WideRuns         int    `gorm:"not null;default:0"`
	NoBallRuns       int    `gorm:"not null;default:0"`
	ByeRuns          int    `gorm:"not null;default:0"`
	LegByeRuns       int    `gorm:"not null;default:0"`
	PenaltyRuns      int    `gorm:"not null;default:0"`
	TargetScore      int    `gorm:"not null;default:0"`
	Completed        bool   `gorm:"not null;default:false"`
	CompletionReason string
	LastSequence     int64  `gorm:"not null;default:0"`
	State            []byte `gorm:"type:jsonb"`
	UpdatedAt        time.Time
}

func (InningsRecord) TableName() string { return "innings" }

// PlayerStatRecord is the cached projection of one player's innings stats.
type PlayerStatRecord struct {
	InningsID     string `gorm:"type:text;primaryKey"`
	PlayerID      uint   `gorm:"primaryKey"`
	RunsScored    int
	BallsFaced    int
	Fours         int
	Sixes         int
	IsOut         bool
	HowOut        string
	DismissedByID uint
	FielderID     uint
	BallsBowled   int
	RunsConceded  int
	WicketsTaken  int
	Maidens       int
	Wides         int
	NoBalls       int
	DotsBowled    int
	Catches       int
	Stumpings     int
	RunOuts       int
	UpdatedAt     time.Time
}

func (PlayerStatRecord) TableName() string { return "player_innings_stats" }
