package broadcast

import (
	"errors"
	"fmt"
)

// ErrSequenceGap means a viewer missed at least one delta and must
// resubscribe for a fresh snapshot.
var ErrSequenceGap = errors.New("broadcast: sequence gap")

// SequenceTracker is the viewer-side check on a match stream: a snapshot
// resets the position, duplicates and stale deltas are ignored, and any
// skipped sequence is a gap.
type SequenceTracker struct {
	last   map[string]int64
	synced map[string]bool
}

func NewSequenceTracker() *SequenceTracker {
	return &SequenceTracker{last: make(map[string]int64), synced: make(map[string]bool)}
}

// Observe reports whether msg should be applied.
func (t *SequenceTracker) Observe(msg ServerMessage) (bool, error) {
	switch msg.Type {
	case MessageTypeSnapshot:
		t.last[msg.MatchID] = msg.Sequence
		t.synced[msg.MatchID] = true
		return true, nil
	case MessageTypeDelta:
		if !t.synced[msg.MatchID] {
			return false, nil
		}
		last := t.last[msg.MatchID]
		switch {
		case msg.Sequence <= last:
			return false, nil
		case msg.Sequence > last+1:
			// out of sync until the next snapshot
			t.synced[msg.MatchID] = false
			return false, fmt.Errorf("%w: match %s expected %d, got %d", ErrSequenceGap, msg.MatchID, last+1, msg.Sequence)
		}
		t.last[msg.MatchID] = msg.Sequence
		return true, nil
	default:
		return false, nil
	}
}

// Last is the sequence a match is current as of, if a snapshot was seen.
func (t *SequenceTracker) Last(matchID string) (int64, bool) {
	seq, ok := t.last[matchID]
	return seq, ok && t.synced[matchID]
}
