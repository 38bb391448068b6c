package team

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
)

// Roster is the read-only view of teams and squads the scoring core needs.
type Roster interface {
	// GetTeam returns nil, nil when the team does not exist.
	GetTeam(ctx context.Context, id uint) (*Team, error)
	IsActiveMember(ctx context.Context, teamID, userID uint) (bool, error)
}

type gormRoster struct {
	db *gorm.DB
}

// NewGormRoster reads the team service's tables directly.
func NewGormRoster(db *gorm.DB) Roster {
	return &gormRoster{db: db}
}

func (r *gormRoster) GetTeam(ctx context.Context, id uint) (*Team, error) {
	var team Team
	if err := r.db.WithContext(ctx).Where("is_deleted = ?", false).First(&team, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}

func (r *gormRoster) IsActiveMember(ctx context.Context, teamID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TeamMember{}).
		Where("team_id = ? AND user_id = ? AND is_active = ?", teamID, userID, true).
		Count(&count).Error
	return count > 0, err
}

// MemoryRoster is an in-process roster for tests and local runs.
type MemoryRoster struct {
	mu      sync.RWMutex
	teams   map[uint]Team
	members map[uint]map[uint]bool
}

func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{teams: make(map[uint]Team), members: make(map[uint]map[uint]bool)}
}

// AddTeam registers a team and its active players.
func (r *MemoryRoster) AddTeam(id uint, name string, players ...uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := Team{Name: name}
	t.ID = id
	r.teams[id] = t
	squad := make(map[uint]bool, len(players))
	for _, p := range players {
		squad[p] = true
	}
	r.members[id] = squad
}

func (r *MemoryRoster) GetTeam(_ context.Context, id uint) (*Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.teams[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *MemoryRoster) IsActiveMember(_ context.Context, teamID, userID uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[teamID][userID], nil
}
