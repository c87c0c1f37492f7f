package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"modtracker/internal/model"
)

// StateRepository persists per-user timer records, keyed by (user, project).
type StateRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.UserProjectState, error)
	// ListByUserForUpdate locks the user's rows until the surrounding transaction ends.
	ListByUserForUpdate(ctx context.Context, userID uuid.UUID) ([]model.UserProjectState, error)
	// Upsert inserts or overwrites every given record. Last write wins.
	Upsert(ctx context.Context, states ...model.UserProjectState) error
}

type stateRepository struct {
	db *gorm.DB
}

// NewStateRepository creates a new timer state repository.
func NewStateRepository(db *gorm.DB) StateRepository {
	return &stateRepository{db: db}
}

func (r *stateRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.UserProjectState, error) {
	return r.list(r.db.WithContext(ctx), userID)
}

func (r *stateRepository) ListByUserForUpdate(ctx context.Context, userID uuid.UUID) ([]model.UserProjectState, error) {
	return r.list(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *stateRepository) list(db *gorm.DB, userID uuid.UUID) ([]model.UserProjectState, error) {
	var states []model.UserProjectState
	err := db.Where("user_id = ?", userID).
		Order("created_at").
		Order("project_id").
		Find(&states).Error
	if err != nil {
		return nil, err
	}
	return states, nil
}

func (r *stateRepository) Upsert(ctx context.Context, states ...model.UserProjectState) error {
	if len(states) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"base_seconds", "running_since", "session_comment", "is_hidden_for_user", "updated_at",
		}),
	}).Create(&states).Error
}
