// Package interpreter turns a typed or transcribed scoring phrase into a
// candidate delivery. It never mutates a match: a phrase either resolves to
// one candidate, or comes back as ranked options for the operator to pick
// from, or is not recognised at all.
package interpreter

import (
	"fmt"
	"strings"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/ball"
)

type Outcome string

const (
	Resolved     Outcome = "resolved"
	Ambiguous    Outcome = "ambiguous"
	Unrecognized Outcome = "unrecognized"
)

// Context is where the innings stands when the phrase is spoken.
type Context struct {
	Over         int  `json:"over"`
	Ball         int  `json:"ball"`
	FreeHit      bool `json:"free_hit"`
	StrikerID    uint `json:"striker_id,omitempty"`
	NonStrikerID uint `json:"non_striker_id,omitempty"`
	BowlerID     uint `json:"bowler_id,omitempty"`
}

// Option is one reading of an ambiguous phrase.
type Option struct {
	Label          string         `json:"label"`
	Candidate      ball.Candidate `json:"candidate"`
	NeedsFielder   bool           `json:"needs_fielder,omitempty"`
	NeedsPlayerOut bool           `json:"needs_player_out,omitempty"`
}

type Result struct {
	Outcome   Outcome         `json:"outcome"`
	Phrase    string          `json:"phrase"`
	Candidate *ball.Candidate `json:"candidate,omitempty"`
	Options   []Option        `json:"options,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Unmatched []string        `json:"unmatched,omitempty"`
}

// Err is nil for a resolved phrase.
func (r Result) Err() error {
	switch r.Outcome {
	case Unrecognized:
		return apperror.Unrecognized(r.Phrase)
	case Ambiguous:
		return apperror.Ambiguous("%s", r.Reason)
	}
	return nil
}

type Interpreter struct {
	vocab *Vocabulary
}

func New(vocab *Vocabulary) *Interpreter {
	return &Interpreter{vocab: vocab}
}

// Interpret reads one phrase. It is safe for concurrent use.
func (i *Interpreter) Interpret(phrase string, ctx Context) Result {
	segs := segments(tokenize(phrase))

	if k, t, ok := i.vocab.splitPhrase(segs); ok {
		return i.splitResult(phrase, segs, k, t, ctx)
	}

	var terms []term
	var unmatched []string
	for _, seg := range segs {
		ts, um := i.vocab.match(seg)
		terms = append(terms, ts...)
		unmatched = append(unmatched, um...)
	}
	r := compose(terms, ctx)
	r.Phrase = phrase
	r.Unmatched = unmatched
	return r
}

// splitResult handles an extra broken by punctuation, e.g. "no, ball". The
// operator may have meant the extra or may have repeated a word, so both
// readings are offered.
func (i *Interpreter) splitResult(phrase string, segs [][]string, k int, t term, ctx Context) Result {
	var joined, dropped [][]string
	for n, seg := range segs {
		switch n {
		case k:
			merged := append(append([]string{}, seg...), segs[k+1]...)
			joined = append(joined, merged)
			if len(seg) > 1 {
				dropped = append(dropped, seg[:len(seg)-1])
			}
		case k + 1:
			if len(seg) > 1 {
				dropped = append(dropped, seg[1:])
			}
		default:
			joined = append(joined, seg)
			dropped = append(dropped, seg)
		}
	}

	res := Result{
		Outcome: Ambiguous,
		Phrase:  phrase,
		Reason:  fmt.Sprintf("%q is split by punctuation", t.phrase),
	}
	for _, reading := range [][][]string{joined, dropped} {
		var terms []term
		for _, seg := range reading {
			ts, _ := i.vocab.match(seg)
			terms = append(terms, ts...)
		}
		r := compose(terms, ctx)
		switch {
		case r.Outcome == Resolved:
			res.Options = append(res.Options, Option{Label: describe(*r.Candidate), Candidate: *r.Candidate})
		case r.Outcome == Ambiguous:
			res.Options = append(res.Options, r.Options...)
		case len(terms) == 0:
			dot := ball.Candidate{}
			res.Options = append(res.Options, Option{Label: describe(dot), Candidate: dot})
		}
	}
	return res
}

// compose builds the candidate a list of terms describes.
func compose(terms []term, ctx Context) Result {
	if len(terms) == 0 {
		return Result{Outcome: Unrecognized, Reason: "no scoring words found"}
	}

	var runs []int
	var extras []ball.ExtraType
	var dismissals []term
	var wicket, dead, short bool
	for _, t := range terms {
		switch t.kind {
		case termRuns:
			runs = appendUnique(runs, t.runs)
		case termExtra:
			extras = appendUnique(extras, t.extra)
		case termDismissal:
			dismissals = append(dismissals, t)
		case termWicket:
			wicket = true
		case termDeadBall:
			dead = true
		case termShortRun:
			short = true
		}
	}

	if len(extras) > 1 || len(runs) > 1 {
		return conflicting(extras, runs, dead, short)
	}

	base := delivery(first(extras, ball.ExtraNone), first(runs, 0), dead, short)

	switch {
	case len(dismissals) == 0 && !wicket:
		return Result{Outcome: Resolved, Candidate: &base}
	case len(dismissals) == 0:
		return Result{
			Outcome: Ambiguous,
			Reason:  "wicket given without a mode of dismissal",
			Options: wicketOptions(base, ctx, allDismissals(ctx)),
		}
	case heardUnclearly(dismissals):
		return Result{
			Outcome: Ambiguous,
			Reason:  fmt.Sprintf("%q was not an exact dismissal phrase", dismissals[0].phrase),
			Options: wicketOptions(base, ctx, heardFirst(dismissals, ctx)),
		}
	case len(dismissals) > 1:
		kinds := distinctKinds(dismissals)
		if len(kinds) > 1 {
			return Result{
				Outcome: Ambiguous,
				Reason:  "more than one mode of dismissal given",
				Options: wicketOptions(base, ctx, kinds),
			}
		}
	}

	d := dismissals[0]
	switch {
	case d.bowlerCatch && ctx.BowlerID != 0:
		c := base
		c.Wicket, c.Dismissal = true, ball.DismissalCaught
		bowler := ctx.BowlerID
		c.FielderID = &bowler
		return Result{Outcome: Resolved, Candidate: &c}
	case d.dismissal.CreditsBowler() && !d.dismissal.NeedsFielder():
		c := base
		c.Wicket, c.Dismissal = true, d.dismissal
		return Result{Outcome: Resolved, Candidate: &c}
	}
	return Result{
		Outcome: Ambiguous,
		Reason:  fmt.Sprintf("%s needs the operator to confirm who was involved", strings.ReplaceAll(string(d.dismissal), "_", " ")),
		Options: wicketOptions(base, ctx, []term{d}),
	}
}

// heardUnclearly reports whether any dismissal came from fuzzy matching.
// Such a mode is never applied without the operator confirming it.
func heardUnclearly(dismissals []term) bool {
	for _, d := range dismissals {
		if d.fuzzy {
			return true
		}
	}
	return false
}

// distinctKinds keeps one term per mode of dismissal.
func distinctKinds(dismissals []term) []term {
	var kinds []term
	for _, d := range dismissals {
		kinds = appendUnique(kinds, term{kind: termDismissal, dismissal: d.dismissal})
	}
	return kinds
}

// heardFirst ranks the modes that were heard ahead of every other mode
// possible on this delivery.
func heardFirst(dismissals []term, ctx Context) []term {
	possible := allDismissals(ctx)
	var kinds []term
	for _, k := range distinctKinds(dismissals) {
		for _, p := range possible {
			if p.dismissal == k.dismissal {
				kinds = append(kinds, k)
			}
		}
	}
	for _, p := range possible {
		kinds = appendUnique(kinds, p)
	}
	return kinds
}

func delivery(extra ball.ExtraType, runs int, dead, short bool) ball.Candidate {
	c := ball.Candidate{Extra: extra, DeadBall: dead, ShortRun: short}
	switch extra {
	case ball.ExtraWide:
		c.ExtraRuns = 1 + runs
	case ball.ExtraNoBall:
		c.ExtraRuns = 1
		c.RunsOffBat = runs
	case ball.ExtraBye, ball.ExtraLegBye:
		c.ExtraRuns = max(runs, 1)
	default:
		c.RunsOffBat = runs
	}
	if c.Extra == ball.ExtraNone {
		c.Extra = ""
	}
	return c
}

// conflicting offers one option per combination of the extras and run
// values that were heard.
func conflicting(extras []ball.ExtraType, runs []int, dead, short bool) Result {
	if len(extras) == 0 {
		extras = []ball.ExtraType{ball.ExtraNone}
	}
	if len(runs) == 0 {
		runs = []int{0}
	}
	res := Result{Outcome: Ambiguous, Reason: "phrase names more than one outcome"}
	for _, x := range extras {
		for _, r := range runs {
			c := delivery(x, r, dead, short)
			res.Options = append(res.Options, Option{Label: describe(c), Candidate: c})
		}
	}
	return res
}

// allDismissals ranks the modes of dismissal for a bare "out". On a free hit
// only a run out is possible.
func allDismissals(ctx Context) []term {
	kinds := []ball.DismissalType{
		ball.DismissalBowled, ball.DismissalCaught, ball.DismissalLBW,
		ball.DismissalRunOut, ball.DismissalStumped, ball.DismissalHitWicket,
	}
	if ctx.FreeHit {
		kinds = []ball.DismissalType{ball.DismissalRunOut}
	}
	out := make([]term, len(kinds))
	for n, k := range kinds {
		out[n] = term{kind: termDismissal, dismissal: k}
	}
	return out
}

// wicketOptions expands dismissal kinds into candidates, dropping any that
// cannot happen on this kind of delivery.
func wicketOptions(base ball.Candidate, ctx Context, kinds []term) []Option {
	var opts []Option
	add := func(o Option) {
		trial := o.Candidate
		if o.NeedsFielder {
			placeholder := uint(1)
			trial.FielderID = &placeholder
		}
		if _, err := trial.Event(); err == nil {
			opts = append(opts, o)
		}
	}

	for _, k := range kinds {
		c := base
		c.Wicket, c.Dismissal = true, k.dismissal
		label := strings.ReplaceAll(string(k.dismissal), "_", " ")

		switch k.dismissal {
		case ball.DismissalRunOut, ball.DismissalRetired:
			if k.dismissal == ball.DismissalRetired {
				c = ball.Candidate{DeadBall: true, Wicket: true, Dismissal: ball.DismissalRetired}
			}
			for _, end := range []struct {
				name string
				id   uint
			}{{"striker", ctx.StrikerID}, {"non-striker", ctx.NonStrikerID}} {
				o := c
				o.PlayerOutID = end.id
				add(Option{
					Label:          fmt.Sprintf("%s (%s)", label, end.name),
					Candidate:      o,
					NeedsPlayerOut: end.id == 0 && end.name == "non-striker",
				})
			}
		case ball.DismissalCaught:
			add(Option{Label: label, Candidate: c, NeedsFielder: true})
			if ctx.BowlerID != 0 {
				cb := c
				bowler := ctx.BowlerID
				cb.FielderID = &bowler
				add(Option{Label: "caught and bowled", Candidate: cb})
			}
		default:
			add(Option{Label: label, Candidate: c, NeedsFielder: k.dismissal.NeedsFielder()})
		}
	}
	return opts
}

// describe is the operator-facing label of a candidate.
func describe(c ball.Candidate) string {
	var parts []string
	switch c.Extra {
	case ball.ExtraWide:
		parts = append(parts, fmt.Sprintf("wide (%d)", c.ExtraRuns))
	case ball.ExtraNoBall:
		parts = append(parts, "no ball")
	case ball.ExtraBye:
		parts = append(parts, fmt.Sprintf("%d bye", c.ExtraRuns))
	case ball.ExtraLegBye:
		parts = append(parts, fmt.Sprintf("%d leg bye", c.ExtraRuns))
	}
	switch {
	case c.RunsOffBat > 0:
		parts = append(parts, fmt.Sprintf("%d off the bat", c.RunsOffBat))
	case len(parts) == 0 && !c.DeadBall:
		parts = append(parts, "dot ball")
	}
	if c.DeadBall {
		parts = append(parts, "dead ball")
	}
	return strings.Join(parts, ", ")
}

func appendUnique[T comparable](s []T, v T) []T {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func first[T any](s []T, fallback T) T {
	if len(s) == 0 {
		return fallback
	}
	return s[0]
}
