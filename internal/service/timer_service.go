package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "modtracker/internal/errors"
	"modtracker/internal/logger"
	"modtracker/internal/model"
	"modtracker/internal/repository"
	"modtracker/internal/tracker"
)

// TimerView is a reconciled picture of one user's timers.
type TimerView struct {
	ServerTime       time.Time                `json:"server_time"`
	RunningProjectID *uuid.UUID               `json:"running_project_id"`
	States           []model.UserProjectState `json:"states"`
	Display          map[uuid.UUID]int64      `json:"display_seconds"`
}

// TimerService drives per-user timers. Every mutation reconciles the stored records first,
// applies the change, and persists corrections and changes in one transaction.
type TimerService interface {
	View(ctx context.Context, userID uuid.UUID) (*TimerView, error)
	DisplaySeconds(ctx context.Context, userID, projectID uuid.UUID) (int64, error)
	Start(ctx context.Context, userID, projectID uuid.UUID) ([]model.UserProjectState, error)
	Stop(ctx context.Context, userID, projectID uuid.UUID) ([]model.UserProjectState, error)
	StartWithPreset(ctx context.Context, userID, projectID uuid.UUID, initialSeconds int64) ([]model.UserProjectState, error)
	Adjust(ctx context.Context, userID, projectID uuid.UUID, deltaSeconds int64) ([]model.UserProjectState, error)
	Reset(ctx context.Context, userID, projectID uuid.UUID) ([]model.UserProjectState, error)
	SetComment(ctx context.Context, userID, projectID uuid.UUID, text string) ([]model.UserProjectState, error)

	// States returns the stored records as they are, without reconciliation.
	States(ctx context.Context, userID uuid.UUID) ([]model.UserProjectState, error)
	// PutState upserts one record as sent by a client. Last write wins.
	PutState(ctx context.Context, state model.UserProjectState) error
}

type timerService struct {
	store repository.Store
	now   Clock
	locks keyedMutex
}

// NewTimerService creates a new timer service.
func NewTimerService(store repository.Store, clock Clock) TimerService {
	return &timerService{store: store, now: clockOrNow(clock)}
}

func (s *timerService) View(ctx context.Context, userID uuid.UUID) (*TimerView, error) {
	snapshot, err := s.store.States().ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("list states", err)
	}

	rec := tracker.Reconcile(snapshot, s.now())
	if len(rec.Corrections) == 0 {
		return newTimerView(rec), nil
	}

	fresh, err := s.persistCorrections(ctx, userID)
	if err != nil {
		// the next read reconciles again
		logger.Warn("persist reconciliation corrections failed",
			logger.F("user_id", userID.String()), logger.F("error", err))
		return newTimerView(rec), nil
	}
	return newTimerView(*fresh), nil
}

// persistCorrections reconciles the locked records again and writes the corrections of
// that read, so a mutation committed since the unlocked read is kept.
func (s *timerService) persistCorrections(ctx context.Context, userID uuid.UUID) (*tracker.Reconciliation, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var rec tracker.Reconciliation
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		snapshot, err := tx.States().ListByUserForUpdate(ctx, userID)
		if err != nil {
			return storageErr("lock states", err)
		}
		rec = tracker.Reconcile(snapshot, s.now())
		if len(rec.Corrections) == 0 {
			return nil
		}
		if err := tx.States().Upsert(ctx, rec.Corrections...); err != nil {
			return storageErr("upsert corrections", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func newTimerView(rec tracker.Reconciliation) *TimerView {
	view := &TimerView{ServerTime: rec.Now, States: rec.States, Display: rec.Display}
	if w, ok := rec.Winner(); ok {
		id := w.ProjectID
		view.RunningProjectID = &id
	}
	return view
}

func (s *timerService) DisplaySeconds(ctx context.Context, userID, projectID uuid.UUID) (int64, error) {
	view, err := s.View(ctx, userID)
	if err != nil {
		return 0, err
	}
	if v, ok := view.Display[projectID]; ok {
		return v, nil
	}
	if _, err := s.findProject(ctx, s.store, projectID); err != nil {
		return 0, err
	}
	return 0, nil
}

func (s *timerService) Start(ctx context.Context, userID, projectID uuid.UUID) ([]model.UserProjectState, error) {
	return s.mutate(ctx, userID, projectID, true, func(ts *tracker.TimerState, now time.Time) []model.UserProjectState {
		return ts.Start(projectID, now)
	})
}

func (s *timerService) Stop(ctx context.Context, userID, projectID uuid.UUID) ([]model.UserProjectState, error) {
	return s.mutate(ctx, userID, projectID, false, func(ts *tracker.TimerState, now time.Time) []model.UserProjectState {
		return ts.Stop(projectID, now)
	})
}

func (s *timerService) StartWithPreset(ctx context.Context, userID, projectID uuid.UUID, initialSeconds int64) ([]model.UserProjectState, error) {
	return s.mutate(ctx, userID, projectID, true, func(ts *tracker.TimerState, now time.Time) []model.UserProjectState {
		return ts.StartWithPreset(projectID, initialSeconds, now)
	})
}

func (s *timerService) Adjust(ctx context.Context, userID, projectID uuid.UUID, deltaSeconds int64) ([]model.UserProjectState, error) {
	return s.mutate(ctx, userID, projectID, false, func(ts *tracker.TimerState, _ time.Time) []model.UserProjectState {
		return ts.Adjust(projectID, deltaSeconds)
	})
}

func (s *timerService) Reset(ctx context.Context, userID, projectID uuid.UUID) ([]model.UserProjectState, error) {
	return s.mutate(ctx, userID, projectID, false, func(ts *tracker.TimerState, _ time.Time) []model.UserProjectState {
		return ts.Reset(projectID)
	})
}

func (s *timerService) SetComment(ctx context.Context, userID, projectID uuid.UUID, text string) ([]model.UserProjectState, error) {
	return s.mutate(ctx, userID, projectID, false, func(ts *tracker.TimerState, _ time.Time) []model.UserProjectState {
		return ts.SetComment(projectID, text)
	})
}

func (s *timerService) States(ctx context.Context, userID uuid.UUID) ([]model.UserProjectState, error) {
	states, err := s.store.States().ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("list states", err)
	}
	return states, nil
}

func (s *timerService) PutState(ctx context.Context, state model.UserProjectState) error {
	if state.BaseSeconds < 0 {
		state.BaseSeconds = 0
	}
	if _, err := s.store.Users().FindByID(ctx, state.UserID); err != nil {
		if isNotFound(err) {
			return apperrors.ErrInvalidState
		}
		return storageErr("find user", err)
	}
	if _, err := s.findProject(ctx, s.store, state.ProjectID); err != nil {
		return err
	}
	if err := s.store.States().Upsert(ctx, state); err != nil {
		return storageErr("upsert state", err)
	}
	return nil
}

type timerOp func(ts *tracker.TimerState, now time.Time) []model.UserProjectState

func (s *timerService) mutate(ctx context.Context, userID, projectID uuid.UUID, requireActive bool, op timerOp) ([]model.UserProjectState, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var persisted []model.UserProjectState
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		project, err := s.findProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if requireActive && !project.IsActive {
			return apperrors.ErrProjectInactive
		}

		snapshot, err := tx.States().ListByUserForUpdate(ctx, userID)
		if err != nil {
			return storageErr("lock states", err)
		}

		now := s.now()
		rec := tracker.Reconcile(snapshot, now)
		ts := tracker.NewTimerState(userID, rec.States)
		persisted = mergeStates(rec.Corrections, op(ts, now))

		if err := tx.States().Upsert(ctx, persisted...); err != nil {
			return storageErr("upsert states", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return persisted, nil
}

func (s *timerService) findProject(ctx context.Context, store repository.Store, projectID uuid.UUID) (*model.Project, error) {
	project, err := store.Projects().FindByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrInvalidState)
		}
		return nil, storageErr("find project", err)
	}
	return project, nil
}
