package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogKind tells how a log entry was produced.
type LogKind string

const (
	// LogKindNormal entries come from committing a day's accrued timers.
	LogKindNormal LogKind = "NORMAL"
	// LogKindPreset entries record time credited through a preset start.
	LogKindPreset LogKind = "PRESET"
	// LogKindManual entries are typed in by the user, usually for a past day.
	LogKindManual LogKind = "MANUAL"
)

// Valid reports whether k is a known kind.
func (k LogKind) Valid() bool {
	switch k {
	case LogKindNormal, LogKindPreset, LogKindManual:
		return true
	}
	return false
}

// DailyLogEntry is one committed session. Entries are only changed through an audited edit.
type DailyLogEntry struct {
	ID              uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID          uuid.UUID `json:"user_id" gorm:"type:char(36);not null;index:idx_log_user_date"`
	ProjectID       uuid.UUID `json:"project_id" gorm:"type:char(36);not null;index"`
	ProjectName     string    `json:"project_name" gorm:"size:255;not null"`
	Date            string    `json:"date" gorm:"type:char(10);not null;index:idx_log_user_date"`
	DurationSeconds int64     `json:"duration_seconds" gorm:"not null"`
	Kind            LogKind   `json:"kind" gorm:"type:varchar(10);not null;default:NORMAL"`
	Comment         *string   `json:"comment" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (e *DailyLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
