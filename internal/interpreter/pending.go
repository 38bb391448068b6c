package interpreter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/ball"
	"github.com/google/uuid"
)

// Command is an ambiguous phrase waiting for the operator to pick an option.
// It has no effect on the match until it is confirmed.
type Command struct {
	ID      string   `json:"id"`
	MatchID string   `json:"match_id"`
	Phrase  string   `json:"phrase"`
	Reason  string   `json:"reason"`
	Options []Option `json:"options"`

	// Where the innings stood when the phrase was heard. A confirmation
	// after the innings has moved on is refused.
	InningsNumber int   `json:"innings_number"`
	LastSequence  int64 `json:"last_sequence"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Confirmation picks an option and fills in what the phrase left out.
type Confirmation struct {
	Choice       int   `json:"choice" binding:"min=0"`
	FielderID    *uint `json:"fielder_id,omitempty"`
	PlayerOutID  uint  `json:"player_out_id,omitempty"`
	BowlerID     uint  `json:"bowler_id,omitempty"`
	StrikerID    uint  `json:"striker_id,omitempty"`
	NonStrikerID uint  `json:"non_striker_id,omitempty"`
}

// Resolve returns the chosen candidate with the confirmation's details applied.
func (c Command) Resolve(conf Confirmation) (ball.Candidate, error) {
	if conf.Choice < 0 || conf.Choice >= len(c.Options) {
		return ball.Candidate{}, apperror.Structural("choice %d is not one of the %d options", conf.Choice, len(c.Options))
	}
	opt := c.Options[conf.Choice]
	cand := opt.Candidate
	if conf.FielderID != nil {
		cand.FielderID = conf.FielderID
	}
	if conf.PlayerOutID != 0 {
		cand.PlayerOutID = conf.PlayerOutID
	}
	if conf.BowlerID != 0 {
		cand.BowlerID = conf.BowlerID
	}
	if conf.StrikerID != 0 {
		cand.StrikerID = conf.StrikerID
	}
	if conf.NonStrikerID != 0 {
		cand.NonStrikerID = conf.NonStrikerID
	}

	if opt.NeedsFielder && (cand.FielderID == nil || *cand.FielderID == 0) {
		return ball.Candidate{}, apperror.Structural("%s needs a fielder", opt.Label)
	}
	if opt.NeedsPlayerOut && cand.PlayerOutID == 0 {
		return ball.Candidate{}, apperror.Structural("%s needs the player who is out", opt.Label)
	}
	return cand, nil
}

// PendingStore holds unconfirmed commands until they are confirmed,
// cancelled or expire.
type PendingStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu    sync.Mutex
	items map[string]Command
}

// NewPendingStore keeps commands for ttl. A nil clock means time.Now.
func NewPendingStore(ttl time.Duration, clock func() time.Time) *PendingStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if clock == nil {
		clock = time.Now
	}
	return &PendingStore{ttl: ttl, clock: clock, items: make(map[string]Command)}
}

// Put stores a command under a fresh id and returns it.
func (p *PendingStore) Put(c Command) Command {
	now := p.clock()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.ExpiresAt = now.Add(p.ttl)

	p.mu.Lock()
	p.items[c.ID] = c
	p.mu.Unlock()
	return c
}

// Get returns a live command. An expired one is removed and reported as not found.
func (p *PendingStore) Get(id string) (Command, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.items[id]
	if !ok {
		return Command{}, apperror.NotFound("command %s not found", id)
	}
	if !p.clock().Before(c.ExpiresAt) {
		delete(p.items, id)
		return Command{}, apperror.NotFound("command %s has expired", id)
	}
	return c, nil
}

// Delete removes a command and reports whether it was there.
func (p *PendingStore) Delete(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.items[id]
	delete(p.items, id)
	return ok
}

// Cancel discards a command the operator no longer wants.
func (p *PendingStore) Cancel(id string) error {
	if _, err := p.Get(id); err != nil {
		return err
	}
	p.Delete(id)
	return nil
}

// Sweep drops expired commands and returns how many went.
func (p *PendingStore) Sweep() int {
	now := p.clock()
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for id, c := range p.items {
		if !now.Before(c.ExpiresAt) {
			delete(p.items, id)
			n++
		}
	}
	return n
}

// Len counts stored commands, expired ones included until swept.
func (p *PendingStore) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Run sweeps on every tick until ctx is done.
func (p *PendingStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.Sweep(); n > 0 {
				slog.Debug("Expired pending commands", "count", n)
			}
		}
	}
}
