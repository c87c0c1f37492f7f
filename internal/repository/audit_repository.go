package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"modtracker/internal/model"
)

// AuditRepository stores log modification records. There is no update or delete.
type AuditRepository interface {
	Create(ctx context.Context, record *model.LogModificationRecord) error
	ListByLog(ctx context.Context, logID uuid.UUID) ([]model.LogModificationRecord, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, record *model.LogModificationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *auditRepository) ListByLog(ctx context.Context, logID uuid.UUID) ([]model.LogModificationRecord, error) {
	var records []model.LogModificationRecord
	if err := r.db.WithContext(ctx).Where("log_id = ?", logID).
		Order("modified_at").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
