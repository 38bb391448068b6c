package interpreter

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DhavalSuthar-24/crease/internal/ball"
	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

type termKind int

const (
	termRuns termKind = iota
	termExtra
	termDismissal
	termWicket
	termDeadBall
	termShortRun
	termFiller
)

// caughtAndBowled is the vocabulary key for a catch taken by the bowler.
const caughtAndBowled = "caught_and_bowled"

type term struct {
	kind      termKind
	phrase    string
	runs      int
	extra     ball.ExtraType
	dismissal ball.DismissalType
	// the bowler took the catch
	bowlerCatch bool
	// reached by edit distance rather than an exact phrase
	fuzzy bool
}

// vocabularyFile is the YAML layout of a vocabulary.
type vocabularyFile struct {
	Runs []struct {
		Value   int      `yaml:"value"`
		Phrases []string `yaml:"phrases"`
	} `yaml:"runs"`
	Extras     map[string][]string `yaml:"extras"`
	Dismissals map[string][]string `yaml:"dismissals"`
	Wicket     []string            `yaml:"wicket"`
	DeadBall   []string            `yaml:"dead_ball"`
	ShortRun   []string            `yaml:"short_run"`
	Filler     []string            `yaml:"filler"`
}

// Vocabulary maps phrases to scoring terms.
type Vocabulary struct {
	phrases map[string]term
	// non-filler phrases by word count, for fuzzy matching
	byWords map[int][]string
	maxWords int
}

// LoadVocabulary reads a vocabulary file, or the built-in one when path is empty.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return ParseVocabulary(defaultVocabulary)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	return ParseVocabulary(data)
}

func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var f vocabularyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}

	v := &Vocabulary{phrases: make(map[string]term), byWords: make(map[int][]string)}
	for _, r := range f.Runs {
		if r.Value < 0 || r.Value > 7 {
			return nil, fmt.Errorf("vocabulary: run value %d out of range", r.Value)
		}
		for _, p := range r.Phrases {
			if err := v.add(p, term{kind: termRuns, runs: r.Value}); err != nil {
				return nil, err
			}
		}
	}
	for key, phrases := range f.Extras {
		x := ball.ExtraType(key)
		if !x.Valid() || x == ball.ExtraNone {
			return nil, fmt.Errorf("vocabulary: unknown extra %q", key)
		}
		for _, p := range phrases {
			if err := v.add(p, term{kind: termExtra, extra: x}); err != nil {
				return nil, err
			}
		}
	}
	for key, phrases := range f.Dismissals {
		t := term{kind: termDismissal, dismissal: ball.DismissalType(key)}
		if key == caughtAndBowled {
			t.dismissal, t.bowlerCatch = ball.DismissalCaught, true
		}
		if !t.dismissal.Valid() || t.dismissal == ball.DismissalNone {
			return nil, fmt.Errorf("vocabulary: unknown dismissal %q", key)
		}
		for _, p := range phrases {
			if err := v.add(p, t); err != nil {
				return nil, err
			}
		}
	}
	simple := []struct {
		kind    termKind
		phrases []string
	}{
		{termWicket, f.Wicket},
		{termDeadBall, f.DeadBall},
		{termShortRun, f.ShortRun},
		{termFiller, f.Filler},
	}
	for _, s := range simple {
		for _, p := range s.phrases {
			if err := v.add(p, term{kind: s.kind}); err != nil {
				return nil, err
			}
		}
	}

	for n := range v.byWords {
		sort.Strings(v.byWords[n])
	}
	return v, nil
}

func (v *Vocabulary) add(phrase string, t term) error {
	words := tokenize(phrase)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if !w.brk {
			parts = append(parts, w.text)
		}
	}
	if len(parts) == 0 {
		return fmt.Errorf("vocabulary: empty phrase")
	}
	key := strings.Join(parts, " ")
	if prev, ok := v.phrases[key]; ok && prev != withPhrase(t, key) {
		return fmt.Errorf("vocabulary: phrase %q has two meanings", key)
	}
	t.phrase = key
	v.phrases[key] = t
	if len(parts) > v.maxWords {
		v.maxWords = len(parts)
	}
	if t.kind != termFiller {
		v.byWords[len(parts)] = append(v.byWords[len(parts)], key)
	}
	return nil
}

func withPhrase(t term, phrase string) term {
	t.phrase = phrase
	return t
}

// Len is the number of phrases known.
func (v *Vocabulary) Len() int {
	return len(v.phrases)
}

type token struct {
	text string
	// brk marks punctuation between words
	brk bool
}

// tokenize lower-cases a phrase and splits it into words and punctuation
// breaks. Hyphens and slashes join nothing: "no-ball" is "no ball".
func tokenize(phrase string) []token {
	var out []token
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			out = append(out, token{text: word.String()})
			word.Reset()
		}
	}
	for _, r := range strings.ToLower(phrase) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			word.WriteRune(r)
		case r == ',' || r == '.' || r == ';' || r == ':' || r == '!' || r == '?':
			flush()
			if len(out) > 0 && !out[len(out)-1].brk {
				out = append(out, token{brk: true})
			}
		default:
			flush()
		}
	}
	flush()
	if n := len(out); n > 0 && out[n-1].brk {
		out = out[:n-1]
	}
	return out
}

// segments splits tokens at punctuation breaks.
func segments(toks []token) [][]string {
	var segs [][]string
	var cur []string
	for _, t := range toks {
		if t.brk {
			if len(cur) > 0 {
				segs = append(segs, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, t.text)
	}
	if len(cur) > 0 {
		segs = append(segs, cur)
	}
	return segs
}

// maxDistance is how many edits a phrase of n letters tolerates.
func maxDistance(n int) int {
	switch {
	case n <= 3:
		return 0
	case n <= 7:
		return 1
	}
	return 2
}

// lookup finds the term for a window of words, exactly or by edit distance.
func (v *Vocabulary) lookup(words []string) (term, bool) {
	text := strings.Join(words, " ")
	if t, ok := v.phrases[text]; ok {
		return t, true
	}
	if len(words) == 1 {
		if n, err := strconv.Atoi(text); err == nil && n >= 0 && n <= 7 {
			return term{kind: termRuns, runs: n, phrase: text}, true
		}
	}

	best, bestDist := "", -1
	for _, candidate := range v.byWords[len(words)] {
		limit := maxDistance(utf8.RuneCountInString(candidate))
		if limit == 0 {
			continue
		}
		d := levenshtein.ComputeDistance(text, candidate)
		if d <= limit && (bestDist < 0 || d < bestDist) {
			best, bestDist = candidate, d
		}
	}
	if bestDist < 0 {
		return term{}, false
	}
	t := v.phrases[best]
	t.fuzzy = true
	return t, true
}

// match reads a segment greedily, longest phrase first. Words that match
// nothing are returned separately.
func (v *Vocabulary) match(words []string) (terms []term, unmatched []string) {
	for i := 0; i < len(words); {
		found := false
		for n := min(v.maxWords, len(words)-i); n >= 1; n-- {
			if t, ok := v.lookup(words[i : i+n]); ok {
				if t.kind != termFiller {
					terms = append(terms, t)
				}
				i += n
				found = true
				break
			}
		}
		if !found {
			unmatched = append(unmatched, words[i])
			i++
		}
	}
	return terms, unmatched
}

// splitPhrase finds an extra spoken as one phrase but broken by punctuation,
// like "no, ball". It returns the index of the segment before the break.
func (v *Vocabulary) splitPhrase(segs [][]string) (int, term, bool) {
	for k := 0; k+1 < len(segs); k++ {
		left, right := segs[k], segs[k+1]
		words := []string{left[len(left)-1], right[0]}
		if t, ok := v.phrases[strings.Join(words, " ")]; ok && t.kind == termExtra {
			return k, t, true
		}
	}
	return 0, term{}, false
}
