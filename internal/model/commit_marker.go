package model

import (
	"time"

	"github.com/google/uuid"
)

// CommitMarker stores the last day a user's timers were active, used to detect day rollover.
type CommitMarker struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);primaryKey"`
	Day       string    `json:"day" gorm:"type:char(10);not null"`
	UpdatedAt time.Time `json:"updated_at"`
}
