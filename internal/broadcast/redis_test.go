package broadcast

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Runs only when REDIS_ADDR points at a disposable server.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 1})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to connect to Redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisMirror(t *testing.T) {
	client := testRedis(t)
	ctx := context.Background()
	matchID := "mirror-test-" + time.Now().Format("150405.000")
	t.Cleanup(func() { client.Del(ctx, streamKey(matchID), latestKey(matchID)) })

	m := NewRedisMirror(client, 100, time.Minute)
	for seq := int64(1); seq <= 3; seq++ {
		msg := ServerMessage{Type: MessageTypeDelta, MatchID: matchID, Sequence: seq, Timestamp: time.Now()}
		if err := m.write(ctx, msg); err != nil {
			t.Fatalf("write %d: %v", seq, err)
		}
	}

	n, err := client.XLen(ctx, streamKey(matchID)).Result()
	if err != nil || n != 3 {
		t.Errorf("stream length = %d, %v", n, err)
	}
	latest, err := m.Latest(ctx, matchID)
	if err != nil || latest.Sequence != 3 {
		t.Errorf("latest = %+v, %v", latest, err)
	}
	if ttl := client.TTL(ctx, latestKey(matchID)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
}

func TestRedisMirrorEnqueueDoesNotBlock(t *testing.T) {
	m := NewRedisMirror(nil, 0, 0)
	for i := 0; i < cap(m.queue)+5; i++ {
		m.Enqueue(ServerMessage{Sequence: int64(i)})
	}
	if m.Dropped() != 5 {
		t.Errorf("dropped = %d, want 5", m.Dropped())
	}
}
