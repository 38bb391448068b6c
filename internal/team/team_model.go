// internal/team/team_model.go
package team

import (
	"time"

	"gorm.io/gorm"
)

// Team is owned by the team service; scoring only reads it.
type Team struct {
	gorm.Model
	Name        string `json:"name" gorm:"not null"`
	ShortName   string `json:"short_name"`
	CreatedByID uint   `json:"created_by_id" gorm:"index"`
	Sport       string `json:"sport" gorm:"index"`
	IsDeleted   bool   `json:"is_deleted" gorm:"default:false"`
}

// TeamMember represents a user's membership in a team
type TeamMember struct {
	gorm.Model
	TeamID       uint      `json:"team_id" gorm:"index"`
	UserID       uint      `json:"user_id" gorm:"index"`
	Role         string    `json:"role" gorm:"default:'player'"`
	JoinedAt     time.Time `json:"joined_at"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	IsCaptain    bool      `json:"is_captain" gorm:"default:false"`
	JerseyNumber int       `json:"jersey_number"`
}
