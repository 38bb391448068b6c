// Package stats keeps per-player batting, bowling and fielding counters for
// an innings as a projection of its event log.
package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/DhavalSuthar-24/crease/internal/ball"
)

// PlayerInningsStats holds raw counters only. Rates are derived on read.
type PlayerInningsStats struct {
	PlayerID uint `json:"player_id"`

	// Batting
	Runs          int                `json:"runs"`
	BallsFaced    int                `json:"balls_faced"`
	Fours         int                `json:"fours"`
	Sixes         int                `json:"sixes"`
	Out           bool               `json:"out"`
	Dismissal     ball.DismissalType `json:"dismissal,omitempty"`
	DismissedByID uint               `json:"dismissed_by_id,omitempty"`
	FielderID     uint               `json:"fielder_id,omitempty"`

	// Bowling
	BallsBowled  int `json:"balls_bowled"`
	RunsConceded int `json:"runs_conceded"`
	Wickets      int `json:"wickets"`
	Maidens      int `json:"maidens"`
	Wides        int `json:"wides"`
	NoBalls      int `json:"no_balls"`
	Dots         int `json:"dots"`

	// Fielding
	Catches   int `json:"catches"`
	Stumpings int `json:"stumpings"`
	RunOuts   int `json:"run_outs"`
}

// StrikeRate is runs per hundred balls faced.
func (p PlayerInningsStats) StrikeRate() float64 {
	if p.BallsFaced == 0 {
		return 0
	}
	return round2(float64(p.Runs) * 100 / float64(p.BallsFaced))
}

// Economy is runs conceded per six legal balls.
func (p PlayerInningsStats) Economy() float64 {
	if p.BallsBowled == 0 {
		return 0
	}
	return round2(float64(p.RunsConceded) * 6 / float64(p.BallsBowled))
}

func (p PlayerInningsStats) OversBowled() string {
	return fmt.Sprintf("%d.%d", p.BallsBowled/6, p.BallsBowled%6)
}

// MarshalJSON adds the derived rates to the wire form.
func (p PlayerInningsStats) MarshalJSON() ([]byte, error) {
	type raw PlayerInningsStats
	return json.Marshal(struct {
		raw
		StrikeRate  float64 `json:"strike_rate"`
		Economy     float64 `json:"economy"`
		OversBowled string  `json:"overs_bowled"`
	}{raw(p), p.StrikeRate(), p.Economy(), p.OversBowled()})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Book is the stats projection for one innings.
type Book struct {
	InningsID string
	players   map[uint]*PlayerInningsStats

	// running tally of the over in progress, for maidens
	overNumber int
	overRuns   int
	overWicket bool
}

func NewBook(inningsID string) *Book {
	return &Book{InningsID: inningsID, players: make(map[uint]*PlayerInningsStats)}
}

func (b *Book) player(id uint) *PlayerInningsStats {
	p, ok := b.players[id]
	if !ok {
		p = &PlayerInningsStats{PlayerID: id}
		b.players[id] = p
	}
	return p
}

// Apply updates exactly the counters implied by one event. It returns the ids
// of the players it touched.
func (b *Book) Apply(ev ball.Event) []uint {
	touched := []uint{ev.StrikerID, ev.NonStrikerID, ev.BowlerID}
	striker := b.player(ev.StrikerID)
	b.player(ev.NonStrikerID)
	bowler := b.player(ev.BowlerID)

	if ev.FacedByStriker() {
		striker.BallsFaced++
	}
	striker.Runs += ev.RunsOffBat
	switch {
	case ev.IsFour():
		striker.Fours++
	case ev.IsSix():
		striker.Sixes++
	}

	if !ev.DeadBall {
		if ev.IsLegal() {
			bowler.BallsBowled++
			if ev.BowlerRuns() == 0 {
				bowler.Dots++
			}
		}
		bowler.RunsConceded += ev.BowlerRuns()
		switch ev.Extra {
		case ball.ExtraWide:
			bowler.Wides++
		case ball.ExtraNoBall:
			bowler.NoBalls++
		}
	}

	if ev.Wicket {
		out := b.player(ev.PlayerOutID)
		out.Out = true
		out.Dismissal = ev.Dismissal
		if ev.Dismissal.CreditsBowler() {
			bowler.Wickets++
			out.DismissedByID = ev.BowlerID
		}
		if ev.FielderID != nil && *ev.FielderID != 0 {
			fielder := b.player(*ev.FielderID)
			out.FielderID = fielder.PlayerID
			touched = append(touched, fielder.PlayerID)
			switch ev.Dismissal {
			case ball.DismissalCaught:
				fielder.Catches++
			case ball.DismissalStumped:
				fielder.Stumpings++
			case ball.DismissalRunOut:
				fielder.RunOuts++
			}
		}
	}

	b.trackOver(ev, bowler)
	return touched
}

func (b *Book) trackOver(ev ball.Event, bowler *PlayerInningsStats) {
	if ev.DeadBall {
		return
	}
	if ev.Over != b.overNumber {
		b.overNumber = ev.Over
		b.overRuns = 0
		b.overWicket = false
	}
	b.overRuns += ev.BowlerRuns()
	if ev.Wicket {
		b.overWicket = true
	}
	if ev.IsLegal() && ev.Ball == 6 {
		if b.overRuns == 0 && !b.overWicket {
			bowler.Maidens++
		}
		b.overNumber = 0
	}
}

// Player returns a copy of one player's counters.
func (b *Book) Player(id uint) (PlayerInningsStats, bool) {
	p, ok := b.players[id]
	if !ok {
		return PlayerInningsStats{}, false
	}
	return *p, true
}

// Players returns every player in the book ordered by id.
func (b *Book) Players() []PlayerInningsStats {
	out := make([]PlayerInningsStats, 0, len(b.players))
	for _, p := range b.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Subset returns the named players in id order, skipping unknown and zero ids.
func (b *Book) Subset(ids []uint) []PlayerInningsStats {
	seen := make(map[uint]bool, len(ids))
	var out []PlayerInningsStats
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := b.players[id]; ok {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

func (b *Book) Clone() *Book {
	c := *b
	c.players = make(map[uint]*PlayerInningsStats, len(b.players))
	for id, p := range b.players {
		cp := *p
		c.players[id] = &cp
	}
	return &c
}

// Totals sums the book for reconciliation against innings totals.
type Totals struct {
	BattingRuns  int `json:"batting_runs"`
	Dismissals   int `json:"dismissals"`
	BallsBowled  int `json:"balls_bowled"`
	RunsConceded int `json:"runs_conceded"`
}

func (b *Book) Totals() Totals {
	var t Totals
	for _, p := range b.players {
		t.BattingRuns += p.Runs
		if p.Out {
			t.Dismissals++
		}
		t.BallsBowled += p.BallsBowled
		t.RunsConceded += p.RunsConceded
	}
	return t
}
