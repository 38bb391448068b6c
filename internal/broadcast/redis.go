package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultStreamMaxLen = 10000
	DefaultLatestTTL    = 6 * time.Hour
)

// RedisMirror copies broadcast deltas into Redis so other processes can
// follow a match: each delta is appended to scores.deltas.<match> and the
// most recent one is kept at scores.latest.<match>. Writes happen on Run's
// goroutine and never hold up the hub.
type RedisMirror struct {
	client *redis.Client
	maxLen int64
	ttl    time.Duration
	queue  chan ServerMessage

	mu      sync.Mutex
	dropped int64
}

func NewRedisMirror(client *redis.Client, maxLen int64, ttl time.Duration) *RedisMirror {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	if ttl <= 0 {
		ttl = DefaultLatestTTL
	}
	return &RedisMirror{
		client: client,
		maxLen: maxLen,
		ttl:    ttl,
		queue:  make(chan ServerMessage, 1024),
	}
}

func streamKey(matchID string) string { return fmt.Sprintf("scores.deltas.%s", matchID) }
func latestKey(matchID string) string { return fmt.Sprintf("scores.latest.%s", matchID) }

// Enqueue implements Mirror.
func (m *RedisMirror) Enqueue(msg ServerMessage) {
	select {
	case m.queue <- msg:
	default:
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
		slog.Warn("Redis mirror queue full, dropping delta", "match_id", msg.MatchID, "sequence", msg.Sequence)
	}
}

// Run drains the queue until ctx is done.
func (m *RedisMirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			if err := m.write(ctx, msg); err != nil {
				slog.Error("Failed to mirror delta to redis", "match_id", msg.MatchID, "sequence", msg.Sequence, "error", err)
			}
		}
	}
}

func (m *RedisMirror) write(ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling delta: %w", err)
	}

	pipe := m.client.Pipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(msg.MatchID),
		MaxLen: m.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":     string(data),
			"match_id": msg.MatchID,
			"sequence": msg.Sequence,
		},
	})
	pipe.Set(ctx, latestKey(msg.MatchID), data, m.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Latest reads back the most recent mirrored delta for a match.
func (m *RedisMirror) Latest(ctx context.Context, matchID string) (ServerMessage, error) {
	var msg ServerMessage
	data, err := m.client.Get(ctx, latestKey(matchID)).Bytes()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("unmarshaling delta: %w", err)
	}
	return msg, nil
}

func (m *RedisMirror) Dropped() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
