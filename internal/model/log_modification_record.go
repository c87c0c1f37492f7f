package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogModificationRecord captures one edit of a DailyLogEntry. Records are append-only.
type LogModificationRecord struct {
	ID                 uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	LogID              uuid.UUID `json:"log_id" gorm:"type:char(36);not null;index"`
	ModifiedAt         time.Time `json:"modified_at" gorm:"not null;index"`
	ModifiedByUserID   uuid.UUID `json:"modified_by_user_id" gorm:"type:char(36);not null"`
	OldDurationSeconds int64     `json:"old_duration_seconds"`
	NewDurationSeconds int64     `json:"new_duration_seconds"`
	OldDate            string    `json:"old_date" gorm:"type:char(10)"`
	NewDate            string    `json:"new_date" gorm:"type:char(10)"`
	OldComment         *string   `json:"old_comment" gorm:"type:text"`
	NewComment         *string   `json:"new_comment" gorm:"type:text"`
}

// BeforeCreate sets UUID before creating the record.
func (r *LogModificationRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
