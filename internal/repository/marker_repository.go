package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"modtracker/internal/model"
)

// MarkerRepository stores each user's last active day.
type MarkerRepository interface {
	// FindForUpdate returns gorm.ErrRecordNotFound when the user has no marker yet.
	FindForUpdate(ctx context.Context, userID uuid.UUID) (*model.CommitMarker, error)
	Save(ctx context.Context, marker *model.CommitMarker) error
}

type markerRepository struct {
	db *gorm.DB
}

// NewMarkerRepository creates a new commit marker repository.
func NewMarkerRepository(db *gorm.DB) MarkerRepository {
	return &markerRepository{db: db}
}

func (r *markerRepository) FindForUpdate(ctx context.Context, userID uuid.UUID) (*model.CommitMarker, error) {
	var marker model.CommitMarker
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&marker).Error; err != nil {
		return nil, err
	}
	return &marker, nil
}

func (r *markerRepository) Save(ctx context.Context, marker *model.CommitMarker) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"day", "updated_at"}),
	}).Create(marker).Error
}
