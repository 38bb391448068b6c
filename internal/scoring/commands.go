package scoring

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/interpreter"
)

// CommandResult is either an applied delivery or a command waiting for
// the operator to confirm it.
type CommandResult struct {
	Outcome interpreter.Outcome  `json:"outcome"`
	Delta   *Delta               `json:"delta,omitempty"`
	Pending *interpreter.Command `json:"pending,omitempty"`
}

// Command interprets a phrase against the current innings. A resolved
// phrase is applied like any submitted ball; an ambiguous one is parked
// until Confirm or CancelCommand.
func (s *Service) Command(ctx context.Context, matchID, phrase string) (CommandResult, error) {
	if s.interpreter == nil || s.commands == nil {
		return CommandResult{}, errors.New("scoring: command interpreter is not configured")
	}
	li, err := s.live(ctx, matchID)
	if err != nil {
		return CommandResult{}, err
	}

	li.mu.RLock()
	cur, _ := li.current()
	number := li.match.CurrentInnings
	li.mu.RUnlock()

	res := s.interpreter.Interpret(phrase, interpreter.Context{
		Over:         cur.Cursor.CompletedOvers + 1,
		Ball:         cur.Cursor.BallInOver + 1,
		FreeHit:      cur.Cursor.FreeHit,
		StrikerID:    cur.Cursor.StrikerID,
		NonStrikerID: cur.Cursor.NonStrikerID,
		BowlerID:     cur.Cursor.BowlerID,
	})

	switch res.Outcome {
	case interpreter.Resolved:
		var d Delta
		err := li.seq.Do(ctx, func() error {
			var err error
			d, err = s.apply(ctx, li, *res.Candidate, cur.LastSequence)
			return err
		})
		if err != nil {
			return CommandResult{}, err
		}
		return CommandResult{Outcome: res.Outcome, Delta: &d}, nil

	case interpreter.Ambiguous:
		cmd := s.commands.Put(interpreter.Command{
			MatchID:       matchID,
			Phrase:        phrase,
			Reason:        res.Reason,
			Options:       res.Options,
			InningsNumber: number,
			LastSequence:  cur.LastSequence,
		})
		slog.Debug("Command awaiting confirmation", "match_id", matchID, "command_id", cmd.ID, "options", len(cmd.Options))
		return CommandResult{Outcome: res.Outcome, Pending: &cmd}, nil
	}
	return CommandResult{}, res.Err()
}

// Confirm applies the chosen option of a pending command. It is refused if
// the innings has moved on since the phrase was heard.
func (s *Service) Confirm(ctx context.Context, matchID, commandID string, conf interpreter.Confirmation) (Delta, error) {
	cmd, err := s.pendingFor(matchID, commandID)
	if err != nil {
		return Delta{}, err
	}
	cand, err := cmd.Resolve(conf)
	if err != nil {
		return Delta{}, err
	}
	li, err := s.live(ctx, matchID)
	if err != nil {
		return Delta{}, err
	}

	var d Delta
	err = li.seq.Do(ctx, func() error {
		if li.match.CurrentInnings != cmd.InningsNumber {
			s.commands.Delete(cmd.ID)
			return apperror.Rule(apperror.CodeStaleCommand, "command was given in innings %d", cmd.InningsNumber)
		}
		var err error
		d, err = s.apply(ctx, li, cand, cmd.LastSequence)
		if errors.Is(err, apperror.ErrStaleCommand) {
			s.commands.Delete(cmd.ID)
		}
		return err
	})
	if err != nil {
		return Delta{}, err
	}
	s.commands.Delete(cmd.ID)
	return d, nil
}

// CancelCommand discards a pending command.
func (s *Service) CancelCommand(matchID, commandID string) error {
	if _, err := s.pendingFor(matchID, commandID); err != nil {
		return err
	}
	return s.commands.Cancel(commandID)
}

func (s *Service) pendingFor(matchID, commandID string) (interpreter.Command, error) {
	if s.commands == nil {
		return interpreter.Command{}, apperror.NotFound("command %s not found", commandID)
	}
	cmd, err := s.commands.Get(commandID)
	if err != nil {
		return interpreter.Command{}, err
	}
	if cmd.MatchID != matchID {
		return interpreter.Command{}, apperror.NotFound("command %s not found for match %s", commandID, matchID)
	}
	return cmd, nil
}
