package model

import (
	"time"

	"github.com/google/uuid"
)

// UserProjectState is the mutable timer record of one user on one project.
//
// BaseSeconds is the banked time for the current day. While RunningSince is set the
// live value is BaseSeconds plus the non-negative whole seconds elapsed since then.
// For a given user at most one record is running once reconciled.
type UserProjectState struct {
	UserID          uuid.UUID  `json:"user_id" gorm:"type:char(36);primaryKey"`
	ProjectID       uuid.UUID  `json:"project_id" gorm:"type:char(36);primaryKey"`
	BaseSeconds     int64      `json:"base_seconds" gorm:"not null;default:0"`
	RunningSince    *time.Time `json:"running_since" gorm:"precision:3"`
	SessionComment  *string    `json:"session_comment" gorm:"type:text"`
	IsHiddenForUser bool       `json:"is_hidden_for_user" gorm:"default:false"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsRunning reports whether the timer is currently accruing.
func (s *UserProjectState) IsRunning() bool {
	return s.RunningSince != nil
}
