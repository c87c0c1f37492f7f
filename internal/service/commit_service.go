package service

import (
	"context"

	"github.com/google/uuid"

	"modtracker/internal/cache"
	apperrors "modtracker/internal/errors"
	"modtracker/internal/logger"
	"modtracker/internal/model"
	"modtracker/internal/repository"
	"modtracker/internal/tracker"
)

// RolloverResult reports what a day-boundary check did.
type RolloverResult struct {
	Committed bool                  `json:"committed"`
	Day       string                `json:"day,omitempty"`
	Marker    string                `json:"marker"`
	Entries   []model.DailyLogEntry `json:"entries"`
}

// CommitService turns accrued timer time into log entries.
type CommitService interface {
	// CommitDaily commits everything accrued so far under today's date and advances the
	// rollover marker to today when it is behind.
	CommitDaily(ctx context.Context, userID uuid.UUID, today string) ([]model.DailyLogEntry, error)
	// Rollover commits under the stored marker day when today is past it, then moves the
	// marker to today. Repeated calls for the same today commit at most once.
	Rollover(ctx context.Context, userID uuid.UUID, today string) (*RolloverResult, error)
}

type commitService struct {
	store repository.Store
	cache *cache.Client
	now   Clock
	locks keyedMutex
}

// NewCommitService creates a new commit service.
func NewCommitService(store repository.Store, cache *cache.Client, clock Clock) CommitService {
	return &commitService{store: store, cache: cache, now: clockOrNow(clock)}
}

func (s *commitService) CommitDaily(ctx context.Context, userID uuid.UUID, today string) ([]model.DailyLogEntry, error) {
	if !tracker.ValidDateKey(today) {
		return nil, apperrors.ErrInvalidDate
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	var entries []model.DailyLogEntry
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		marker, err := tx.Markers().FindForUpdate(ctx, userID)
		if err != nil && !isNotFound(err) {
			return storageErr("lock marker", err)
		}
		entries, err = s.commit(ctx, tx, userID, today)
		if err != nil {
			return err
		}
		// the marker only moves forward
		if marker != nil && today <= marker.Day {
			return nil
		}
		return s.saveMarker(ctx, tx, userID, today)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, userID, today, entries)
	return entries, nil
}

func (s *commitService) Rollover(ctx context.Context, userID uuid.UUID, today string) (*RolloverResult, error) {
	if !tracker.ValidDateKey(today) {
		return nil, apperrors.ErrInvalidDate
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	result := &RolloverResult{Marker: today}
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		marker, err := tx.Markers().FindForUpdate(ctx, userID)
		if isNotFound(err) {
			return s.saveMarker(ctx, tx, userID, today)
		}
		if err != nil {
			return storageErr("lock marker", err)
		}

		day, due := tracker.Rollover(marker.Day, today)
		if !due {
			result.Marker = marker.Day
			return nil
		}

		entries, err := s.commit(ctx, tx, userID, day)
		if err != nil {
			return err
		}
		result.Committed = true
		result.Day = day
		result.Entries = entries
		return s.saveMarker(ctx, tx, userID, today)
	})
	if err != nil {
		return nil, err
	}

	if result.Committed {
		s.afterCommit(ctx, userID, result.Day, result.Entries)
	}
	return result, nil
}

// commit writes the log rows before clearing the timers so a failure leaves bases intact.
func (s *commitService) commit(ctx context.Context, tx repository.Store, userID uuid.UUID, day string) ([]model.DailyLogEntry, error) {
	snapshot, err := tx.States().ListByUserForUpdate(ctx, userID)
	if err != nil {
		return nil, storageErr("lock states", err)
	}

	now := s.now()
	rec := tracker.Reconcile(snapshot, now)

	ids := make([]uuid.UUID, 0, len(rec.States))
	for _, st := range rec.States {
		ids = append(ids, st.ProjectID)
	}
	projects, err := tx.Projects().FindByIDs(ctx, ids)
	if err != nil {
		return nil, storageErr("load projects", err)
	}
	names := make(map[uuid.UUID]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	result := tracker.Commit(userID, rec.States, names, day, now)

	if err := tx.Logs().CreateBatch(ctx, result.Entries); err != nil {
		return nil, storageErr("insert logs", err)
	}
	if err := tx.States().Upsert(ctx, mergeStates(rec.Corrections, result.Cleared)...); err != nil {
		return nil, storageErr("clear states", err)
	}
	return result.Entries, nil
}

func (s *commitService) saveMarker(ctx context.Context, tx repository.Store, userID uuid.UUID, day string) error {
	if err := tx.Markers().Save(ctx, &model.CommitMarker{UserID: userID, Day: day}); err != nil {
		return storageErr("save marker", err)
	}
	return nil
}

func (s *commitService) afterCommit(ctx context.Context, userID uuid.UUID, day string, entries []model.DailyLogEntry) {
	var total int64
	for _, e := range entries {
		total += e.DurationSeconds
	}
	logger.Info("daily log committed",
		logger.F("user_id", userID.String()),
		logger.F("day", day),
		logger.F("entries", len(entries)),
		logger.F("seconds", total))
	if len(entries) > 0 {
		invalidateStats(ctx, s.cache)
	}
}
