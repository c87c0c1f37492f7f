package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is shared metadata time is tracked against. Projects referenced by logs are
// deactivated rather than deleted.
type Project struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	CreatorID uuid.UUID `json:"creator_id" gorm:"type:char(36);not null;index"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Category  string    `json:"category" gorm:"size:100"`
	Color     string    `json:"color" gorm:"size:20"`
	IsGlobal  bool      `json:"is_global" gorm:"default:false;index"`
	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
