// Package broadcast fans scoring deltas out to viewers. Each subscriber gets
// a snapshot of the match first and then every later delta in sequence
// order; a subscriber that cannot keep up is dropped rather than allowed to
// slow anyone else down.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SnapshotFunc returns the full state of a match and the stream sequence it
// is current as of.
type SnapshotFunc func(ctx context.Context, matchID string) (int64, any, error)

// Mirror receives every broadcast message. Enqueue must not block.
type Mirror interface {
	Enqueue(msg ServerMessage)
}

type Config struct {
	// QueueSize bounds deltas waiting for the hub loop across all matches.
	QueueSize int
	// ClientBuffer bounds messages waiting for one subscriber.
	ClientBuffer    int
	SnapshotTimeout time.Duration
}

func (c *Config) defaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.ClientBuffer <= 0 {
		c.ClientBuffer = 256
	}
	if c.SnapshotTimeout <= 0 {
		c.SnapshotTimeout = 5 * time.Second
	}
}

// Subscriber is one viewer's outbound queue. It may follow several matches.
type Subscriber struct {
	ID   string
	Send chan ServerMessage

	mu     sync.Mutex
	closed bool

	// match id -> sequence of the snapshot it was sent; hub loop only
	lowWater map[string]int64
}

func NewSubscriber(id string, buffer int) *Subscriber {
	return &Subscriber{
		ID:       id,
		Send:     make(chan ServerMessage, buffer),
		lowWater: make(map[string]int64),
	}
}

// TrySend queues msg without blocking and reports whether it fit.
func (s *Subscriber) TrySend(msg ServerMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.Send <- msg:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.Send)
	}
}

type subscription struct {
	sub     *Subscriber
	matchID string
}

// joining is a subscription waiting for its snapshot. Deltas for the match
// that reach the hub meanwhile are held and replayed after the snapshot.
type joining struct {
	id   uint64
	held []ServerMessage
}

type snapshotResult struct {
	sub     *Subscriber
	matchID string
	id      uint64
	seq     int64
	payload any
	err     error
}

type delta struct {
	matchID  string
	sequence int64
	payload  any
}

// Hub maintains per-match subscriber sets. All of its maps are owned by the
// Run goroutine.
type Hub struct {
	cfg      Config
	snapshot SnapshotFunc
	mirror   Mirror

	subscribe   chan subscription
	unsubscribe chan subscription
	remove      chan *Subscriber
	broadcast   chan delta
	snapshots   chan snapshotResult

	matches     map[string]map[*Subscriber]bool
	joining     map[string]map[*Subscriber]*joining
	subscribers map[*Subscriber]bool
	joins       uint64

	statsMu          sync.Mutex
	totalConnections int64
	totalMessages    int64
	droppedDeltas    int64
	droppedClients   int64
}

func NewHub(snapshot SnapshotFunc, cfg Config) *Hub {
	cfg.defaults()
	return &Hub{
		cfg:         cfg,
		snapshot:    snapshot,
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		remove:      make(chan *Subscriber),
		broadcast:   make(chan delta, cfg.QueueSize),
		snapshots:   make(chan snapshotResult),
		matches:     make(map[string]map[*Subscriber]bool),
		joining:     make(map[string]map[*Subscriber]*joining),
		subscribers: make(map[*Subscriber]bool),
	}
}

// SetMirror attaches a secondary sink, e.g. the Redis mirror. Call before Run.
func (h *Hub) SetMirror(m Mirror) {
	h.mirror = m
}

// ClientBuffer is the per-subscriber queue length handlers should use.
func (h *Hub) ClientBuffer() int {
	return h.cfg.ClientBuffer
}

// Run is the hub loop. It returns when ctx is done, closing every subscriber.
func (h *Hub) Run(ctx context.Context) {
	slog.Info("Broadcast hub started", "queue_size", h.cfg.QueueSize)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case s := <-h.subscribe:
			h.addSubscription(ctx, s)
		case r := <-h.snapshots:
			h.finishJoin(r)
		case s := <-h.unsubscribe:
			h.dropSubscription(s)
		case sub := <-h.remove:
			h.removeSubscriber(sub)
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

// Subscribe asks the hub to send sub a snapshot of matchID followed by its deltas.
func (h *Hub) Subscribe(ctx context.Context, sub *Subscriber, matchID string) {
	select {
	case h.subscribe <- subscription{sub: sub, matchID: matchID}:
	case <-ctx.Done():
	}
}

func (h *Hub) Unsubscribe(ctx context.Context, sub *Subscriber, matchID string) {
	select {
	case h.unsubscribe <- subscription{sub: sub, matchID: matchID}:
	case <-ctx.Done():
	}
}

// Remove detaches sub from every match and closes its queue.
func (h *Hub) Remove(ctx context.Context, sub *Subscriber) {
	select {
	case h.remove <- sub:
	case <-ctx.Done():
	}
}

// PublishDelta queues a delta for fan-out. It never blocks: when the queue
// is full the delta is dropped and subscribers recover through gap detection.
func (h *Hub) PublishDelta(matchID string, sequence int64, payload any) {
	select {
	case h.broadcast <- delta{matchID: matchID, sequence: sequence, payload: payload}:
	default:
		h.statsMu.Lock()
		h.droppedDeltas++
		h.statsMu.Unlock()
		slog.Warn("Broadcast queue full, dropping delta", "match_id", matchID, "sequence", sequence)
	}
}

// addSubscription fetches the snapshot off the loop so a slow match never
// stalls delivery to everyone else. Every delta newer than the snapshot
// reaches the loop after this point and is held until the snapshot returns.
func (h *Hub) addSubscription(ctx context.Context, s subscription) {
	h.subscribers[s.sub] = true
	h.dropSubscription(s)

	h.joins++
	id := h.joins
	if h.joining[s.matchID] == nil {
		h.joining[s.matchID] = make(map[*Subscriber]*joining)
	}
	h.joining[s.matchID][s.sub] = &joining{id: id}

	go func() {
		sctx, cancel := context.WithTimeout(ctx, h.cfg.SnapshotTimeout)
		seq, payload, err := h.snapshot(sctx, s.matchID)
		cancel()
		select {
		case h.snapshots <- snapshotResult{sub: s.sub, matchID: s.matchID, id: id, seq: seq, payload: payload, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (h *Hub) finishJoin(r snapshotResult) {
	j, ok := h.joining[r.matchID][r.sub]
	if !ok || j.id != r.id {
		// unsubscribed, removed or subscribed again meanwhile
		return
	}
	h.forgetJoin(r.matchID, r.sub)

	if r.err != nil {
		slog.Debug("Snapshot for subscriber failed", "client_id", r.sub.ID, "match_id", r.matchID, "error", r.err)
		r.sub.TrySend(errorMessage(r.matchID, "snapshot_failed", r.err.Error()))
		return
	}

	msg := ServerMessage{Type: MessageTypeSnapshot, MatchID: r.matchID, Sequence: r.seq, Payload: r.payload, Timestamp: time.Now()}
	if !r.sub.TrySend(msg) {
		h.dropSlow(r.sub, r.matchID)
		return
	}
	for _, held := range j.held {
		if held.Sequence <= r.seq {
			continue
		}
		if !r.sub.TrySend(held) {
			h.dropSlow(r.sub, r.matchID)
			return
		}
	}
	if h.matches[r.matchID] == nil {
		h.matches[r.matchID] = make(map[*Subscriber]bool)
	}
	h.matches[r.matchID][r.sub] = true
	r.sub.lowWater[r.matchID] = r.seq

	h.statsMu.Lock()
	h.totalConnections++
	h.statsMu.Unlock()
	slog.Debug("Subscriber joined match", "client_id", r.sub.ID, "match_id", r.matchID, "sequence", r.seq, "held", len(j.held))
}

func (h *Hub) forgetJoin(matchID string, sub *Subscriber) {
	if set, ok := h.joining[matchID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.joining, matchID)
		}
	}
}

func (h *Hub) dropSlow(sub *Subscriber, matchID string) {
	slog.Warn("Subscriber buffer full, disconnecting", "client_id", sub.ID, "match_id", matchID)
	h.removeSubscriber(sub)
	h.statsMu.Lock()
	h.droppedClients++
	h.statsMu.Unlock()
}

func (h *Hub) dropSubscription(s subscription) {
	h.forgetJoin(s.matchID, s.sub)
	delete(s.sub.lowWater, s.matchID)
	if set, ok := h.matches[s.matchID]; ok {
		delete(set, s.sub)
		if len(set) == 0 {
			delete(h.matches, s.matchID)
		}
	}
}

func (h *Hub) removeSubscriber(sub *Subscriber) {
	for matchID := range sub.lowWater {
		h.dropSubscription(subscription{sub: sub, matchID: matchID})
	}
	for matchID, set := range h.joining {
		if _, ok := set[sub]; ok {
			h.forgetJoin(matchID, sub)
		}
	}
	delete(h.subscribers, sub)
	sub.close()
}

func (h *Hub) deliver(d delta) {
	msg := ServerMessage{Type: MessageTypeDelta, MatchID: d.matchID, Sequence: d.sequence, Payload: d.payload, Timestamp: time.Now()}
	if h.mirror != nil {
		h.mirror.Enqueue(msg)
	}

	var slow []*Subscriber
	for sub, j := range h.joining[d.matchID] {
		if len(j.held) >= h.cfg.ClientBuffer {
			slow = append(slow, sub)
			continue
		}
		j.held = append(j.held, msg)
	}
	for sub := range h.matches[d.matchID] {
		if d.sequence <= sub.lowWater[d.matchID] {
			continue
		}
		if !sub.TrySend(msg) {
			slow = append(slow, sub)
		}
	}
	for _, sub := range slow {
		slog.Warn("Subscriber buffer full, disconnecting", "client_id", sub.ID, "match_id", d.matchID)
		h.removeSubscriber(sub)
	}

	h.statsMu.Lock()
	h.totalMessages++
	h.droppedClients += int64(len(slow))
	h.statsMu.Unlock()
}

func (h *Hub) shutdown() {
	slog.Info("Shutting down broadcast hub", "subscribers", len(h.subscribers))
	for sub := range h.subscribers {
		h.removeSubscriber(sub)
	}
}

type Stats struct {
	TotalConnections int64 `json:"total_connections"`
	TotalMessages    int64 `json:"total_messages"`
	DroppedDeltas    int64 `json:"dropped_deltas"`
	DroppedClients   int64 `json:"dropped_clients"`
	QueueCapacity    int   `json:"queue_capacity"`
	QueueUsage       int   `json:"queue_usage"`
}

func (h *Hub) Stats() Stats {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	return Stats{
		TotalConnections: h.totalConnections,
		TotalMessages:    h.totalMessages,
		DroppedDeltas:    h.droppedDeltas,
		DroppedClients:   h.droppedClients,
		QueueCapacity:    cap(h.broadcast),
		QueueUsage:       len(h.broadcast),
	}
}
