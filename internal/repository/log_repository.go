package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"modtracker/internal/model"
)

// LogFilter narrows a log listing. Zero values mean "any".
type LogFilter struct {
	UserID    *uuid.UUID
	ProjectID *uuid.UUID
	From      string
	To        string
}

// LogRepository persists daily log entries. Entries are inserted and only updated by edits.
type LogRepository interface {
	Create(ctx context.Context, entry *model.DailyLogEntry) error
	CreateBatch(ctx context.Context, entries []model.DailyLogEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DailyLogEntry, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DailyLogEntry, error)
	Update(ctx context.Context, entry *model.DailyLogEntry) error
	List(ctx context.Context, filter LogFilter) ([]model.DailyLogEntry, error)
}

type logRepository struct {
	db *gorm.DB
}

// NewLogRepository creates a new log repository.
func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Create(ctx context.Context, entry *model.DailyLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *logRepository) CreateBatch(ctx context.Context, entries []model.DailyLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entries, 100).Error
}

func (r *logRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DailyLogEntry, error) {
	var entry model.DailyLogEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *logRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DailyLogEntry, error) {
	var entry model.DailyLogEntry
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *logRepository) Update(ctx context.Context, entry *model.DailyLogEntry) error {
	return r.db.WithContext(ctx).Model(entry).Select("duration_seconds", "date", "comment", "updated_at").Updates(entry).Error
}

func (r *logRepository) List(ctx context.Context, filter LogFilter) ([]model.DailyLogEntry, error) {
	q := r.db.WithContext(ctx)
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.ProjectID != nil {
		q = q.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.From != "" {
		q = q.Where("date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("date <= ?", filter.To)
	}
	var entries []model.DailyLogEntry
	if err := q.Order("date DESC").Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
