package scoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DhavalSuthar-24/crease/internal/ball"
	"github.com/DhavalSuthar-24/crease/internal/innings"
	"github.com/DhavalSuthar-24/crease/internal/match"
	"github.com/DhavalSuthar-24/crease/internal/stats"
)

// gatedRepo holds Get for one match until released.
type gatedRepo struct {
	*match.MemoryRepository
	gated   string
	entered chan struct{}
	release chan struct{}
}

func (r *gatedRepo) Get(ctx context.Context, id string) (*match.Match, error) {
	if id == r.gated {
		r.entered <- struct{}{}
		<-r.release
	}
	return r.MemoryRepository.Get(ctx, id)
}

func TestSlowLoadDoesNotBlockLiveMatches(t *testing.T) {
	f := newFixture(t)
	gate := &gatedRepo{MemoryRepository: f.repo, entered: make(chan struct{}, 2), release: make(chan struct{})}
	f.svc.repo = gate
	ctx := context.Background()

	hot := f.startMatch(t, 20)
	hot.ball(runs(1))
	cold, err := f.svc.CreateMatch(ctx, CreateMatchInput{Title: "Eliminator", Team1ID: 1, Team2ID: 2})
	if err != nil {
		t.Fatal(err)
	}
	f.svc.Unload(cold.ID)
	gate.gated = cold.ID

	const loaders = 2
	loaded := make(chan *liveMatch, loaders)
	for i := 0; i < loaders; i++ {
		go func() {
			li, err := f.svc.live(ctx, cold.ID)
			if err != nil {
				t.Errorf("load %s: %v", cold.ID, err)
			}
			loaded <- li
		}()
	}
	<-gate.entered

	tests := []struct {
		name string
		op   func() error
	}{
		{"apply", func() error {
			_, err := f.svc.Apply(ctx, hot.id, ball.Candidate{RunsOffBat: 2})
			return err
		}},
		{"snapshot", func() error {
			_, err := f.svc.Snapshot(ctx, hot.id)
			return err
		}},
		{"undo", func() error {
			_, err := f.svc.Undo(ctx, hot.id)
			return err
		}},
	}
	for _, tt := range tests {
		done := make(chan error, 1)
		go func() { done <- tt.op() }()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("%s on a live match: %v", tt.name, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s on a live match waited for another match to load", tt.name)
		}
	}

	close(gate.release)
	first, second := <-loaded, <-loaded
	if first == nil || first != second {
		t.Errorf("concurrent loads returned %p and %p, want one shared match", first, second)
	}
	if n := len(gate.entered); n != 0 {
		t.Errorf("match loaded %d extra times", n)
	}
}

func TestStreamSequenceSurvivesReload(t *testing.T) {
	f := newFixture(t)
	s := f.startMatch(t, 20)
	ctx := context.Background()

	// The toss was message 1.
	tests := []struct {
		name string
		op   func()
		want int64
	}{
		{"ball", func() { s.ball(runs(1)) }, 2},
		{"ball", func() { s.ball(runs(2)) }, 3},
		{"unload", func() { f.svc.Unload(s.id) }, 3},
		{"ball after reload", func() { s.ball(runs(3)) }, 4},
		{"undo", func() {
			if _, err := f.svc.Undo(ctx, s.id); err != nil {
				t.Fatalf("Undo: %v", err)
			}
		}, 5},
		{"unload again", func() { f.svc.Unload(s.id) }, 5},
		{"ball after second reload", func() { s.ball(runs(4)) }, 6},
	}
	for _, tt := range tests {
		tt.op()
		snap, err := f.svc.Snapshot(ctx, s.id)
		if err != nil {
			t.Fatalf("%s: Snapshot: %v", tt.name, err)
		}
		if snap.Sequence != tt.want {
			t.Errorf("%s: snapshot sequence = %d, want %d", tt.name, snap.Sequence, tt.want)
		}
	}

	f.pub.mu.Lock()
	defer f.pub.mu.Unlock()
	for i, seq := range f.pub.seqs {
		if seq != int64(i+1) {
			t.Fatalf("published sequences %v repeat or skip after a reload", f.pub.seqs)
		}
	}
}

func TestConcurrentApplyOnOneMatch(t *testing.T) {
	tests := []struct {
		name  string
		balls int
	}{
		{"pair", 2},
		{"half over", 3},
		{"full over", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := f.startMatch(t, 20)
			ctx := context.Background()

			dot := ball.Candidate{StrikerID: kings[0], NonStrikerID: kings[1], BowlerID: royals[10]}
			var wg sync.WaitGroup
			errs := make(chan error, tt.balls)
			for i := 0; i < tt.balls; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := f.svc.Apply(ctx, s.id, dot); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Errorf("Apply: %v", err)
			}

			if got := s.current().LegalBalls; got != tt.balls {
				t.Errorf("legal balls = %d, want %d", got, tt.balls)
			}
			events, err := f.svc.Balls(ctx, s.id, 1)
			if err != nil {
				t.Fatal(err)
			}
			for i, ev := range events {
				if ev.Sequence != int64(i+1) {
					t.Fatalf("event %d has sequence %d", i, ev.Sequence)
				}
			}
			report, err := f.svc.Verify(ctx, s.id)
			if err != nil || !report.Consistent {
				t.Errorf("Verify = %+v, %v", report, err)
			}

			f.pub.mu.Lock()
			defer f.pub.mu.Unlock()
			if len(f.pub.seqs) != tt.balls+1 {
				t.Errorf("published %d messages, want %d", len(f.pub.seqs), tt.balls+1)
			}
			for i, seq := range f.pub.seqs {
				if seq != int64(i+1) {
					t.Fatalf("published sequences %v are not contiguous", f.pub.seqs)
				}
			}
		})
	}
}

// txRepo counts projection writes made outside a transaction.
type txRepo struct {
	*match.MemoryRepository
	mu      sync.Mutex
	txs     int
	outside int
}

func (r *txRepo) WithTransaction(ctx context.Context, fn func(match.Repository) error) error {
	r.mu.Lock()
	r.txs++
	r.mu.Unlock()
	return r.MemoryRepository.WithTransaction(ctx, fn)
}

func (r *txRepo) SaveInnings(ctx context.Context, in innings.Innings) error {
	r.mu.Lock()
	r.outside++
	r.mu.Unlock()
	return r.MemoryRepository.SaveInnings(ctx, in)
}

func (r *txRepo) ReplaceStats(ctx context.Context, inningsID string, rows []stats.PlayerInningsStats) error {
	r.mu.Lock()
	r.outside++
	r.mu.Unlock()
	return r.MemoryRepository.ReplaceStats(ctx, inningsID, rows)
}

func TestProjectionsWrittenInOneTransaction(t *testing.T) {
	f := newFixture(t)
	repo := &txRepo{MemoryRepository: f.repo}
	f.svc.repo = repo
	s := f.startMatch(t, 1)
	ctx := context.Background()

	tests := []struct {
		name string
		op   func()
	}{
		{"ball", func() { s.ball(runs(4)) }},
		{"wicket", func() { s.ball(bowled) }},
		{"undo", func() {
			if _, err := f.svc.Undo(ctx, s.id); err != nil {
				t.Fatalf("Undo: %v", err)
			}
		}},
		{"innings completes", func() {
			for i := 0; i < 5; i++ {
				s.ball(runs(0))
			}
		}},
		{"rebuild", func() {
			if _, err := f.svc.Rebuild(ctx, s.id); err != nil {
				t.Fatalf("Rebuild: %v", err)
			}
		}},
		{"second innings", func() {
			if _, err := f.svc.StartSecondInnings(ctx, s.id); err != nil {
				t.Fatalf("StartSecondInnings: %v", err)
			}
		}},
	}
	for _, tt := range tests {
		repo.mu.Lock()
		repo.txs, repo.outside = 0, 0
		repo.mu.Unlock()

		tt.op()

		repo.mu.Lock()
		if repo.txs == 0 {
			t.Errorf("%s: projections saved without a transaction", tt.name)
		}
		if repo.outside != 0 {
			t.Errorf("%s: %d projection writes bypassed the transaction", tt.name, repo.outside)
		}
		repo.mu.Unlock()
	}

	record, ok := f.repo.InningsRecord(firstInningsID(t, f, s.id))
	if !ok || record.Score != 4 {
		t.Errorf("innings projection = %+v", record)
	}
}
