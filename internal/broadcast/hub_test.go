package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedSnapshot(seq int64) SnapshotFunc {
	return func(_ context.Context, matchID string) (int64, any, error) {
		if matchID == "missing" {
			return 0, nil, errors.New("match missing not found")
		}
		return seq, map[string]string{"match": matchID}, nil
	}
}

func startHub(t *testing.T, snap SnapshotFunc, cfg Config) (*Hub, context.Context) {
	t.Helper()
	h := NewHub(snap, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h, ctx
}

func next(t *testing.T, sub *Subscriber) ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-sub.Send:
		if !ok {
			t.Fatal("subscriber queue closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return ServerMessage{}
}

func expectClosed(t *testing.T, sub *Subscriber) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscriber queue was not closed")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSnapshotThenDeltasInOrder(t *testing.T) {
	h, ctx := startHub(t, fixedSnapshot(5), Config{})
	sub := NewSubscriber("a", 8)
	h.Subscribe(ctx, sub, "m1")

	h.PublishDelta("m1", 4, "old")
	h.PublishDelta("m1", 5, "already in snapshot")
	h.PublishDelta("m2", 6, "other match")
	h.PublishDelta("m1", 6, "six")
	h.PublishDelta("m1", 7, "seven")

	want := []struct {
		typ string
		seq int64
	}{
		{MessageTypeSnapshot, 5},
		{MessageTypeDelta, 6},
		{MessageTypeDelta, 7},
	}
	for i, w := range want {
		msg := next(t, sub)
		if msg.Type != w.typ || msg.Sequence != w.seq || msg.MatchID != "m1" {
			t.Fatalf("message %d = %s/%d/%s, want %s/%d/m1", i, msg.Type, msg.Sequence, msg.MatchID, w.typ, w.seq)
		}
	}
}

func TestUnsubscribeStopsDeltas(t *testing.T) {
	h, ctx := startHub(t, fixedSnapshot(0), Config{})
	sub := NewSubscriber("a", 8)
	h.Subscribe(ctx, sub, "m1")
	if msg := next(t, sub); msg.Type != MessageTypeSnapshot || msg.MatchID != "m1" {
		t.Fatalf("first = %+v", msg)
	}
	h.Subscribe(ctx, sub, "m2")
	if msg := next(t, sub); msg.Type != MessageTypeSnapshot || msg.MatchID != "m2" {
		t.Fatalf("second = %+v", msg)
	}
	h.Unsubscribe(ctx, sub, "m1")
	h.PublishDelta("m1", 1, nil)
	h.PublishDelta("m2", 1, nil)

	if msg := next(t, sub); msg.Type != MessageTypeDelta || msg.MatchID != "m2" {
		t.Fatalf("third = %+v, want the m2 delta only", msg)
	}
}

func TestSnapshotFailureSendsError(t *testing.T) {
	h, ctx := startHub(t, fixedSnapshot(0), Config{})
	sub := NewSubscriber("a", 8)
	h.Subscribe(ctx, sub, "missing")

	msg := next(t, sub)
	if msg.Type != MessageTypeError {
		t.Fatalf("type = %s, want error", msg.Type)
	}
	if em, ok := msg.Payload.(ErrorMessage); !ok || em.Code != "snapshot_failed" {
		t.Errorf("payload = %#v", msg.Payload)
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h, ctx := startHub(t, fixedSnapshot(0), Config{ClientBuffer: 1})
	slow := NewSubscriber("slow", 1)
	fast := NewSubscriber("fast", 8)
	h.Subscribe(ctx, slow, "m1")
	h.Subscribe(ctx, fast, "m1")

	// the snapshot fills the slow queue
	h.PublishDelta("m1", 1, nil)
	waitFor(t, func() bool { return h.Stats().DroppedClients == 1 })

	if msg := next(t, slow); msg.Type != MessageTypeSnapshot {
		t.Fatalf("slow first = %+v", msg)
	}
	expectClosed(t, slow)

	next(t, fast)
	if msg := next(t, fast); msg.Sequence != 1 {
		t.Errorf("fast delta = %+v", msg)
	}
	if slow.TrySend(ServerMessage{}) {
		t.Error("TrySend succeeded on a dropped subscriber")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	h := NewHub(fixedSnapshot(0), Config{QueueSize: 1})

	done := make(chan struct{})
	go func() {
		h.PublishDelta("m1", 1, nil)
		h.PublishDelta("m1", 2, nil)
		h.PublishDelta("m1", 3, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PublishDelta blocked with no hub loop running")
	}
	if s := h.Stats(); s.DroppedDeltas != 2 || s.QueueUsage != 1 {
		t.Errorf("stats = %+v", s)
	}
}

type chanMirror chan ServerMessage

func (m chanMirror) Enqueue(msg ServerMessage) { m <- msg }

func TestMirrorSeesEveryDelta(t *testing.T) {
	mirror := make(chanMirror, 4)
	h := NewHub(fixedSnapshot(0), Config{})
	h.SetMirror(mirror)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	h.PublishDelta("m1", 1, nil)
	h.PublishDelta("m1", 2, nil)
	for want := int64(1); want <= 2; want++ {
		select {
		case msg := <-mirror:
			if msg.Sequence != want || msg.Type != MessageTypeDelta {
				t.Fatalf("mirrored %+v, want delta %d", msg, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("delta not mirrored")
		}
	}
}

func TestShutdownClosesSubscribers(t *testing.T) {
	h := NewHub(fixedSnapshot(0), Config{})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	sub := NewSubscriber("a", 8)
	h.Subscribe(ctx, sub, "m1")
	next(t, sub)
	cancel()
	expectClosed(t, sub)
}

func TestSlowSnapshotDoesNotStallHub(t *testing.T) {
	type want struct {
		typ string
		seq int64
	}
	tests := []struct {
		name string
		// runs while the cold snapshot is outstanding
		during func(h *Hub, ctx context.Context, sub *Subscriber)
		// runs once the snapshot has been released
		after  func(h *Hub, ctx context.Context, sub *Subscriber)
		want   []want
		closed bool
	}{
		{
			name: "deltas held until the snapshot",
			during: func(h *Hub, _ context.Context, _ *Subscriber) {
				h.PublishDelta("cold", 1, "in snapshot")
				h.PublishDelta("cold", 2, "in snapshot")
				h.PublishDelta("cold", 3, "after")
			},
			want: []want{{MessageTypeSnapshot, 2}, {MessageTypeDelta, 3}, {MessageTypeDelta, 4}},
		},
		{
			name: "nothing published meanwhile",
			want: []want{{MessageTypeSnapshot, 2}, {MessageTypeDelta, 4}},
		},
		{
			name: "unsubscribed while waiting",
			during: func(h *Hub, ctx context.Context, sub *Subscriber) {
				h.Unsubscribe(ctx, sub, "cold")
			},
			after: func(h *Hub, ctx context.Context, sub *Subscriber) {
				h.Subscribe(ctx, sub, "hot")
			},
			want: []want{{MessageTypeSnapshot, 0}},
		},
		{
			name: "removed while waiting",
			during: func(h *Hub, ctx context.Context, sub *Subscriber) {
				h.Remove(ctx, sub)
			},
			closed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			h, ctx := startHub(t, func(ctx context.Context, matchID string) (int64, any, error) {
				if matchID == "cold" {
					select {
					case <-release:
					case <-ctx.Done():
						return 0, nil, ctx.Err()
					}
					return 2, matchID, nil
				}
				return 0, matchID, nil
			}, Config{})

			viewer := NewSubscriber("viewer", 8)
			h.Subscribe(ctx, viewer, "hot")
			next(t, viewer)

			sub := NewSubscriber("waiting", 8)
			h.Subscribe(ctx, sub, "cold")
			if tt.during != nil {
				tt.during(h, ctx, sub)
			}

			h.PublishDelta("hot", 1, nil)
			if msg := next(t, viewer); msg.Type != MessageTypeDelta || msg.Sequence != 1 {
				t.Fatalf("hot viewer got %+v while another snapshot was outstanding", msg)
			}

			close(release)
			if tt.after != nil {
				tt.after(h, ctx, sub)
			}
			if tt.closed {
				expectClosed(t, sub)
				return
			}
			if len(tt.want) > 1 {
				h.PublishDelta("cold", 4, "later")
			}
			for i, w := range tt.want {
				msg := next(t, sub)
				if msg.Type != w.typ || msg.Sequence != w.seq {
					t.Fatalf("message %d = %s/%d, want %s/%d", i, msg.Type, msg.Sequence, w.typ, w.seq)
				}
			}
		})
	}
}
