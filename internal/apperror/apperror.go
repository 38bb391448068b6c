// Package apperror holds the error taxonomy shared by the scoring core.
// Every rejection surfaced to an operator is an *Error so the reason can be
// shown verbatim and mapped onto an HTTP status by the transport layer.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is the broad class of a rejection.
type Kind string

const (
	KindInvalidTransition Kind = "InvalidTransition"
	KindStructural        Kind = "StructuralViolation"
	KindRule              Kind = "RuleViolation"
	KindBusy              Kind = "Busy"
	KindEmptyLog          Kind = "EmptyLog"
	KindUnrecognized      Kind = "Unrecognized"
	KindAmbiguous         Kind = "Ambiguous"
	KindNotFound          Kind = "NotFound"
)

// Code narrows a RuleViolation down to the rule that was broken.
type Code string

const (
	CodeConsecutiveOver   Code = "ConsecutiveOverViolation"
	CodeWicketLimit       Code = "WicketLimitExceeded"
	CodeOversExhausted    Code = "OversExhausted"
	CodeInningsClosed     Code = "InningsClosed"
	CodeNewBatterRequired Code = "NewBatterRequired"
	CodeStrikerMismatch   Code = "StrikerMismatch"
	CodeBowlerMismatch    Code = "BowlerMismatch"
	CodeFreeHitDismissal  Code = "FreeHitDismissal"
	CodePlayerNotInTeam   Code = "PlayerNotInTeam"
	CodeStaleCommand      Code = "StaleCommand"
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches on Kind, and on Code when the target carries one, so callers can
// write errors.Is(err, apperror.ErrBusy) or errors.Is(err, apperror.ErrConsecutiveOver).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrStructural        = &Error{Kind: KindStructural}
	ErrRule              = &Error{Kind: KindRule}
	ErrBusy              = &Error{Kind: KindBusy, Message: "another operation is in flight for this match"}
	ErrEmptyLog          = &Error{Kind: KindEmptyLog, Message: "nothing to undo"}
	ErrUnrecognized      = &Error{Kind: KindUnrecognized}
	ErrAmbiguous         = &Error{Kind: KindAmbiguous}
	ErrNotFound          = &Error{Kind: KindNotFound}

	ErrConsecutiveOver = &Error{Kind: KindRule, Code: CodeConsecutiveOver}
	ErrWicketLimit     = &Error{Kind: KindRule, Code: CodeWicketLimit}
	ErrOversExhausted  = &Error{Kind: KindRule, Code: CodeOversExhausted}
	ErrInningsClosed   = &Error{Kind: KindRule, Code: CodeInningsClosed}
	ErrPlayerNotInTeam = &Error{Kind: KindRule, Code: CodePlayerNotInTeam}
	ErrStaleCommand    = &Error{Kind: KindRule, Code: CodeStaleCommand}
)

// InvalidTransition names the current state and the rejected transition.
func InvalidTransition(state, transition string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot %s while match is %s", transition, state),
	}
}

func Structural(format string, args ...any) *Error {
	return &Error{Kind: KindStructural, Message: fmt.Sprintf(format, args...)}
}

func Rule(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindRule, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Unrecognized(phrase string) *Error {
	return &Error{Kind: KindUnrecognized, Message: fmt.Sprintf("could not interpret %q", phrase)}
}

func Busy() *Error {
	return &Error{Kind: KindBusy, Message: ErrBusy.Message}
}

func EmptyLog() *Error {
	return &Error{Kind: KindEmptyLog, Message: ErrEmptyLog.Message}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Ambiguous(format string, args ...any) *Error {
	return &Error{Kind: KindAmbiguous, Message: fmt.Sprintf(format, args...)}
}
