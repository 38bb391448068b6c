package match

import (
	"fmt"
	"time"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/innings"
)

// Transition names as they appear in InvalidTransition errors.
const (
	transitionSetTeams   = "set teams"
	transitionRecordToss = "record toss"
	transitionComplete   = "complete innings"
	transitionSecond     = "start second innings"
	transitionAbandon    = "abandon"
	transitionReopen     = "reopen innings"
)

const (
	marginRuns    = "runs"
	marginWickets = "wickets"
)

func (m *Match) reject(transition string) error {
	return apperror.InvalidTransition(string(m.Status), transition)
}

// SetTeams fixes both sides and the format. Setup -> TossPending.
func (m *Match) SetTeams(team1, team2 uint, overs int) error {
	if m.Status != StatusSetup {
		return m.reject(transitionSetTeams)
	}
	if team1 == 0 || team2 == 0 || team1 == team2 {
		return apperror.Structural("two different teams are required")
	}
	if overs <= 0 {
		return apperror.Structural("overs limit must be positive")
	}
	m.Team1ID, m.Team2ID, m.OversLimit = team1, team2, overs
	m.Status = StatusTossPending
	return nil
}

// RecordToss settles who bats first and opens innings 1. TossPending -> InProgress(1).
func (m *Match) RecordToss(winner uint, decision TossDecision, inningsID string, now time.Time) (innings.Innings, error) {
	if m.Status != StatusTossPending || m.Team1ID == 0 || m.Team2ID == 0 || m.OversLimit <= 0 {
		return innings.Innings{}, m.reject(transitionRecordToss)
	}
	if winner != m.Team1ID && winner != m.Team2ID {
		return innings.Innings{}, apperror.Structural("team %d is not playing this match", winner)
	}
	switch decision {
	case TossBat:
		m.BattingFirstTeamID = winner
	case TossBowl:
		m.BattingFirstTeamID = m.other(winner)
	default:
		return innings.Innings{}, apperror.Structural("toss decision must be bat or bowl, got %q", decision)
	}

	m.TossWinnerTeamID = winner
	m.TossDecision = decision
	m.Innings1ID = inningsID
	m.CurrentInnings = 1
	m.Status = StatusInProgress
	m.StartedAt = &now

	in, _ := m.InningsStart(1)
	return in, nil
}

// CompleteInnings is driven by the engine's completion signal.
// InProgress(1) -> InningsBreak, InProgress(2) -> Completed.
func (m *Match) CompleteInnings(in innings.Innings, now time.Time) error {
	if m.Status != StatusInProgress || in.Number != m.CurrentInnings || !in.Completed {
		return m.reject(transitionComplete)
	}
	if in.Number == 1 {
		m.Status = StatusInningsBreak
		return nil
	}
	m.Status = StatusCompleted
	m.CompletedAt = &now
	m.settle(in)
	return nil
}

// StartSecondInnings opens innings 2 with the sides swapped. InningsBreak -> InProgress(2).
func (m *Match) StartSecondInnings(first innings.Innings, inningsID string) (innings.Innings, error) {
	if m.Status != StatusInningsBreak || first.Number != 1 || !first.Completed {
		return innings.Innings{}, m.reject(transitionSecond)
	}

	next := *m
	next.Target = first.Runs + 1
	next.Innings2ID = inningsID
	next.CurrentInnings = 2
	next.Status = StatusInProgress

	in, _ := next.InningsStart(2)
	if in.BattingTeamID != first.BowlingTeamID || in.BowlingTeamID != first.BattingTeamID {
		return innings.Innings{}, m.reject(transitionSecond)
	}
	*m = next
	return in, nil
}

// Abandon ends the match from any non-terminal state.
func (m *Match) Abandon(reason string, now time.Time) error {
	if m.Status.Terminal() {
		return m.reject(transitionAbandon)
	}
	m.Status = StatusAbandoned
	m.AbandonReason = reason
	m.CompletedAt = &now
	return nil
}

// ReopenInnings undoes an innings-1 completion after its last ball was
// removed. InningsBreak -> InProgress(1).
func (m *Match) ReopenInnings() error {
	if m.Status != StatusInningsBreak {
		return m.reject(transitionReopen)
	}
	m.Status = StatusInProgress
	return nil
}

func (m *Match) settle(second innings.Innings) {
	m.WinningTeamID = nil
	m.WinMargin, m.WinMarginUnit = 0, ""
	switch {
	case second.Runs >= m.Target:
		winner := second.BattingTeamID
		m.WinningTeamID = &winner
		m.WinMargin = second.Rules.MaxWickets - second.Wickets
		m.WinMarginUnit = marginWickets
	case second.Runs < m.Target-1:
		winner := second.BowlingTeamID
		m.WinningTeamID = &winner
		m.WinMargin = m.Target - 1 - second.Runs
		m.WinMarginUnit = marginRuns
	}
	m.ResultSummary = m.Summarize(nil)
}

// Summarize renders the result, naming teams through name when given.
func (m *Match) Summarize(name func(teamID uint) string) string {
	switch {
	case m.Status == StatusAbandoned:
		return "Match abandoned"
	case m.Status != StatusCompleted:
		return ""
	case m.WinningTeamID == nil:
		return "Match tied"
	}
	label := fmt.Sprintf("Team %d", *m.WinningTeamID)
	if name != nil {
		if n := name(*m.WinningTeamID); n != "" {
			label = n
		}
	}
	unit := m.WinMarginUnit
	if m.WinMargin == 1 {
		unit = unit[:len(unit)-1]
	}
	return fmt.Sprintf("%s won by %d %s", label, m.WinMargin, unit)
}
