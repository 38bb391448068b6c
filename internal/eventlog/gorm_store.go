package eventlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DhavalSuthar-24/crease/internal/apperror"
	"github.com/DhavalSuthar-24/crease/internal/ball"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the ball_events row. Undone events are soft-deleted so the
// history of corrections survives; a partial unique index on
// (innings_id, sequence) covers live rows only.
type Record struct {
	gorm.Model
	InningsID      string `gorm:"type:text;not null;index"`
	Sequence       int64  `gorm:"not null"`
	OverNumber     int    `gorm:"not null"`
	BallNumber     int    `gorm:"not null"`
	DeliveryInOver int    `gorm:"not null"`

	StrikerID    uint `gorm:"not null"`
	NonStrikerID uint `gorm:"not null"`
	BowlerID     uint `gorm:"not null"`

	RunsOffBat int    `gorm:"not null;default:0"`
	ExtraType  string `gorm:"not null;default:'none'"`
	ExtraRuns  int    `gorm:"not null;default:0"`

	IsWicket      bool   `gorm:"not null;default:false"`
	DismissalType string `gorm:"not null;default:'none'"`
	PlayerOutID   *uint
	FielderID     *uint

	PenaltyRuns    int  `gorm:"not null;default:0"`
	ShortRun       bool `gorm:"not null;default:false"`
	DeadBall       bool `gorm:"not null;default:false"`
	BatsmenCrossed *bool
	FreeHit        bool      `gorm:"not null;default:false"`
	DeliveredAt    time.Time `gorm:"not null"`
}

func (Record) TableName() string { return "ball_events" }

func toRecord(ev ball.Event) Record {
	r := Record{
		InningsID:      ev.InningsID,
		Sequence:       ev.Sequence,
		OverNumber:     ev.Over,
		BallNumber:     ev.Ball,
		DeliveryInOver: ev.DeliveryInOver,
		StrikerID:      ev.StrikerID,
		NonStrikerID:   ev.NonStrikerID,
		BowlerID:       ev.BowlerID,
		RunsOffBat:     ev.RunsOffBat,
		ExtraType:      string(ev.Extra),
		ExtraRuns:      ev.ExtraRuns,
		IsWicket:       ev.Wicket,
		DismissalType:  string(ev.Dismissal),
		FielderID:      ev.FielderID,
		PenaltyRuns:    ev.PenaltyRuns,
		ShortRun:       ev.ShortRun,
		DeadBall:       ev.DeadBall,
		BatsmenCrossed: ev.BatsmenCrossed,
		FreeHit:        ev.FreeHit,
		DeliveredAt:    ev.CreatedAt,
	}
	if ev.PlayerOutID != 0 {
		id := ev.PlayerOutID
		r.PlayerOutID = &id
	}
	return r
}

func (r Record) event() ball.Event {
	ev := ball.Event{
		InningsID:      r.InningsID,
		Sequence:       r.Sequence,
		Over:           r.OverNumber,
		Ball:           r.BallNumber,
		DeliveryInOver: r.DeliveryInOver,
		StrikerID:      r.StrikerID,
		NonStrikerID:   r.NonStrikerID,
		BowlerID:       r.BowlerID,
		RunsOffBat:     r.RunsOffBat,
		Extra:          ball.ExtraType(r.ExtraType),
		ExtraRuns:      r.ExtraRuns,
		Wicket:         r.IsWicket,
		Dismissal:      ball.DismissalType(r.DismissalType),
		FielderID:      r.FielderID,
		PenaltyRuns:    r.PenaltyRuns,
		ShortRun:       r.ShortRun,
		DeadBall:       r.DeadBall,
		BatsmenCrossed: r.BatsmenCrossed,
		FreeHit:        r.FreeHit,
		CreatedAt:      r.DeliveredAt.UTC(),
	}
	if r.PlayerOutID != nil {
		ev.PlayerOutID = *r.PlayerOutID
	}
	return ev
}

// GormStore implements Store on top of GORM.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Append(ctx context.Context, ev ball.Event) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		err := tx.Model(&Record{}).
			Where("innings_id = ?", ev.InningsID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error
		if err != nil {
			return fmt.Errorf("read last sequence: %w", err)
		}
		if ev.Sequence != last+1 {
			return ErrSequenceConflict
		}

		rec := toRecord(ev)
		if err := tx.Create(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSequenceConflict
			}
			return fmt.Errorf("insert ball event: %w", err)
		}
		return nil
	})
}

func (s *GormStore) List(ctx context.Context, inningsID string) ([]ball.Event, error) {
	var rows []Record
	err := s.db.WithContext(ctx).
		Where("innings_id = ?", inningsID).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list ball events: %w", err)
	}
	out := make([]ball.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.event())
	}
	return out, nil
}

func (s *GormStore) RemoveLast(ctx context.Context, inningsID string) (ball.Event, error) {
	var removed ball.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec Record
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("innings_id = ?", inningsID).
			Order("sequence DESC").
			First(&rec).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.EmptyLog()
			}
			return fmt.Errorf("find last ball event: %w", err)
		}
		if err := tx.Delete(&rec).Error; err != nil {
			return fmt.Errorf("remove ball event: %w", err)
		}
		removed = rec.event()
		return nil
	})
	return removed, err
}
