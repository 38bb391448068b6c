package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DhavalSuthar-24/crease/internal/innings"
	"github.com/DhavalSuthar-24/crease/internal/stats"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists matches and the cached innings and stats projections.
// Projections are written best-effort; the event log is the source of truth.
type Repository interface {
	Create(ctx context.Context, m *Match) error
	// Get returns nil, nil when the match does not exist.
	Get(ctx context.Context, id string) (*Match, error)
	Save(ctx context.Context, m *Match) error
	SaveInnings(ctx context.Context, in innings.Innings) error
	// ReplaceStats swaps the whole stats projection of an innings.
	ReplaceStats(ctx context.Context, inningsID string, players []stats.PlayerInningsStats) error

	WithTransaction(ctx context.Context, txFunc func(Repository) error) error
}

// GormRepository implements Repository using GORM
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// WithTransaction implements transaction support
func (r *GormRepository) WithTransaction(ctx context.Context, txFunc func(Repository) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	txRepo := &GormRepository{db: tx}
	if err := txFunc(txRepo); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (r *GormRepository) Create(ctx context.Context, m *Match) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *GormRepository) Get(ctx context.Context, id string) (*Match, error) {
	var m Match
	result := r.db.WithContext(ctx).First(&m, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &m, nil
}

func (r *GormRepository) Save(ctx context.Context, m *Match) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *GormRepository) SaveInnings(ctx context.Context, in innings.Innings) error {
	rec, err := inningsRecord(in)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&rec).Error
}

func (r *GormRepository) ReplaceStats(ctx context.Context, inningsID string, players []stats.PlayerInningsStats) error {
	rows := statRecords(inningsID, players)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("innings_id = ?", inningsID).Delete(&PlayerStatRecord{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func inningsRecord(in innings.Innings) (InningsRecord, error) {
	state, err := json.Marshal(in)
	if err != nil {
		return InningsRecord{}, fmt.Errorf("encode innings %s: %w", in.ID, err)
	}
	return InningsRecord{
		ID:               in.ID,
		MatchID:          in.MatchID,
		InningsNumber:    in.Number,
		BattingTeamID:    in.BattingTeamID,
		BowlingTeamID:    in.BowlingTeamID,
		Score:            in.Runs,
		Wickets:          in.Wickets,
		Balls:            in.LegalBalls,
		WideRuns:         in.Extras.Wides,
		NoBallRuns:       in.Extras.NoBalls,
		ByeRuns:          in.Extras.Byes,
		LegByeRuns:       in.Extras.LegByes,
		PenaltyRuns:      in.Extras.Penalty,
		TargetScore:      in.Target,
		Completed:        in.Completed,
		CompletionReason: string(in.CompletionReason),
		LastSequence:     in.LastSequence,
		State:            state,
		UpdatedAt:        time.Now().UTC(),
	}, nil
}

// Innings decodes the full projection stored with the record.
func (rec InningsRecord) Innings() (innings.Innings, error) {
	var in innings.Innings
	if err := json.Unmarshal(rec.State, &in); err != nil {
		return innings.Innings{}, fmt.Errorf("decode innings %s: %w", rec.ID, err)
	}
	return in, nil
}

func statRecords(inningsID string, players []stats.PlayerInningsStats) []PlayerStatRecord {
	now := time.Now().UTC()
	rows := make([]PlayerStatRecord, 0, len(players))
	for _, p := range players {
		if p.PlayerID == 0 {
			continue
		}
		rows = append(rows, PlayerStatRecord{
			InningsID:     inningsID,
			PlayerID:      p.PlayerID,
			RunsScored:    p.Runs,
			BallsFaced:    p.BallsFaced,
			Fours:         p.Fours,
			Sixes:         p.Sixes,
			IsOut:         p.Out,
			HowOut:        string(p.Dismissal),
			DismissedByID: p.DismissedByID,
			FielderID:     p.FielderID,
			BallsBowled:   p.BallsBowled,
			RunsConceded:  p.RunsConceded,
			WicketsTaken:  p.Wickets,
			Maidens:       p.Maidens,
			Wides:         p.Wides,
			NoBalls:       p.NoBalls,
			DotsBowled:    p.Dots,
			Catches:       p.Catches,
			Stumpings:     p.Stumpings,
			RunOuts:       p.RunOuts,
			UpdatedAt:     now,
		})
	}
	return rows
}

// MemoryRepository keeps everything in process. It backs tests and runs
// without a database.
type MemoryRepository struct {
	mu      sync.RWMutex
	matches map[string]Match
	innings map[string]InningsRecord
	stats   map[string][]PlayerStatRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		matches: make(map[string]Match),
		innings: make(map[string]InningsRecord),
		stats:   make(map[string][]PlayerStatRecord),
	}
}

func (r *MemoryRepository) Create(_ context.Context, m *Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[m.ID]; ok {
		return fmt.Errorf("match %s already exists", m.ID)
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	r.matches[m.ID] = *m
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *MemoryRepository) Save(_ context.Context, m *Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.UpdatedAt = time.Now().UTC()
	r.matches[m.ID] = *m
	return nil
}

func (r *MemoryRepository) SaveInnings(_ context.Context, in innings.Innings) error {
	rec, err := inningsRecord(in)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.innings[in.ID] = rec
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) ReplaceStats(_ context.Context, inningsID string, players []stats.PlayerInningsStats) error {
	rows := statRecords(inningsID, players)
	r.mu.Lock()
	r.stats[inningsID] = rows
	r.mu.Unlock()
	return nil
}

// WithTransaction runs txFunc against the same store; there is no rollback.
func (r *MemoryRepository) WithTransaction(_ context.Context, txFunc func(Repository) error) error {
	return txFunc(r)
}

// InningsRecord returns the stored projection of an innings.
func (r *MemoryRepository) InningsRecord(id string) (InningsRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.innings[id]
	return rec, ok
}

// StatRecords returns the stored stats rows of an innings.
func (r *MemoryRepository) StatRecords(inningsID string) []PlayerStatRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]PlayerStatRecord(nil), r.stats[inningsID]...)
}
