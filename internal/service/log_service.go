package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"modtracker/internal/cache"
	apperrors "modtracker/internal/errors"
	"modtracker/internal/model"
	"modtracker/internal/repository"
	"modtracker/internal/tracker"
)

// LogService reads, adds and edits committed log entries. Every edit leaves an audit record.
type LogService interface {
	List(ctx context.Context, actor Actor, filter repository.LogFilter) ([]model.DailyLogEntry, error)
	Get(ctx context.Context, actor Actor, logID uuid.UUID) (*model.DailyLogEntry, error)
	// AddEntry stores a MANUAL or PRESET entry for any day.
	AddEntry(ctx context.Context, actor Actor, in tracker.EntryInput) (*model.DailyLogEntry, error)
	Edit(ctx context.Context, actor Actor, logID uuid.UUID, edit tracker.LogEdit) (*model.LogModificationRecord, error)
	History(ctx context.Context, actor Actor, logID uuid.UUID) ([]model.LogModificationRecord, error)
}

type logService struct {
	store repository.Store
	cache *cache.Client
	now   Clock
}

// NewLogService creates a new log service.
func NewLogService(store repository.Store, cache *cache.Client, clock Clock) LogService {
	return &logService{store: store, cache: cache, now: clockOrNow(clock)}
}

// List returns the actor's own logs. Admins may pass any user filter, or none for everyone.
func (s *logService) List(ctx context.Context, actor Actor, filter repository.LogFilter) ([]model.DailyLogEntry, error) {
	if !actor.IsAdmin() {
		if filter.UserID != nil && *filter.UserID != actor.UserID {
			return nil, apperrors.ErrForbidden
		}
		id := actor.UserID
		filter.UserID = &id
	}
	entries, err := s.store.Logs().List(ctx, filter)
	if err != nil {
		return nil, storageErr("list logs", err)
	}
	return entries, nil
}

func (s *logService) Get(ctx context.Context, actor Actor, logID uuid.UUID) (*model.DailyLogEntry, error) {
	entry, err := s.store.Logs().FindByID(ctx, logID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrLogNotFound
		}
		return nil, storageErr("find log", err)
	}
	if !actor.CanAccess(entry.UserID) {
		return nil, apperrors.ErrForbidden
	}
	return entry, nil
}

func (s *logService) AddEntry(ctx context.Context, actor Actor, in tracker.EntryInput) (*model.DailyLogEntry, error) {
	if in.UserID == uuid.Nil {
		in.UserID = actor.UserID
	}
	if !actor.CanAccess(in.UserID) {
		return nil, apperrors.ErrForbidden
	}

	project, err := s.store.Projects().FindByID(ctx, in.ProjectID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("project %s: %w", in.ProjectID, apperrors.ErrInvalidState)
		}
		return nil, storageErr("find project", err)
	}
	in.ProjectName = project.Name

	entry, err := tracker.NewEntry(in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Logs().Create(ctx, &entry); err != nil {
		return nil, storageErr("insert log", err)
	}
	invalidateStats(ctx, s.cache)
	return &entry, nil
}

func (s *logService) Edit(ctx context.Context, actor Actor, logID uuid.UUID, edit tracker.LogEdit) (*model.LogModificationRecord, error) {
	var record model.LogModificationRecord
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		entry, err := tx.Logs().FindByIDForUpdate(ctx, logID)
		if err != nil {
			if isNotFound(err) {
				return apperrors.ErrLogNotFound
			}
			return storageErr("lock log", err)
		}
		if !actor.CanAccess(entry.UserID) {
			return apperrors.ErrForbidden
		}

		record, err = tracker.ApplyEdit(entry, edit, actor.UserID, s.now())
		if err != nil {
			return err
		}
		if err := tx.Logs().Update(ctx, entry); err != nil {
			return storageErr("update log", err)
		}
		if err := tx.Audits().Create(ctx, &record); err != nil {
			return storageErr("insert audit record", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.cache)
	return &record, nil
}

func (s *logService) History(ctx context.Context, actor Actor, logID uuid.UUID) ([]model.LogModificationRecord, error) {
	if _, err := s.Get(ctx, actor, logID); err != nil {
		return nil, err
	}
	records, err := s.store.Audits().ListByLog(ctx, logID)
	if err != nil {
		return nil, storageErr("list audit records", err)
	}
	return records, nil
}
