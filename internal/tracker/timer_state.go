package tracker

import (
	"time"

	"github.com/google/uuid"

	"modtracker/internal/model"
)

// TimerState holds one user's timer records and applies mutations that keep at most
// one of them running. Every mutation returns copies of the records it changed so the
// caller can persist them. Records are created lazily on first use of a project.
//
// TimerState is not safe for concurrent use.
type TimerState struct {
	userID uuid.UUID
	order  []uuid.UUID
	byID   map[uuid.UUID]*model.UserProjectState
}

// NewTimerState builds a TimerState from stored records, keeping their order.
func NewTimerState(userID uuid.UUID, states []model.UserProjectState) *TimerState {
	t := &TimerState{
		userID: userID,
		order:  make([]uuid.UUID, 0, len(states)),
		byID:   make(map[uuid.UUID]*model.UserProjectState, len(states)),
	}
	for i := range states {
		if _, dup := t.byID[states[i].ProjectID]; dup {
			continue
		}
		s := states[i]
		s.UserID = userID
		t.order = append(t.order, s.ProjectID)
		t.byID[s.ProjectID] = &s
	}
	return t
}

// UserID returns the owner of the records.
func (t *TimerState) UserID() uuid.UUID {
	return t.userID
}

// Start stops any other running timer, folding its elapsed time into its base, then
// starts projectID from its current base. Starting a running timer changes nothing.
func (t *TimerState) Start(projectID uuid.UUID, now time.Time) []model.UserProjectState {
	target := t.ensure(projectID)
	if target.IsRunning() {
		return nil
	}
	changed := t.stopOthers(projectID, now)
	target.RunningSince = timePtr(now)
	return append(changed, *target)
}

// Stop folds elapsed time into the base and clears RunningSince. Stopping a stopped timer is a no-op.
func (t *TimerState) Stop(projectID uuid.UUID, now time.Time) []model.UserProjectState {
	s := t.ensure(projectID)
	if !stop(s, now) {
		return nil
	}
	return []model.UserProjectState{*s}
}

// StartWithPreset stops any other running timer and starts projectID with its base set
// to initialSeconds (negative values become 0).
func (t *TimerState) StartWithPreset(projectID uuid.UUID, initialSeconds int64, now time.Time) []model.UserProjectState {
	if initialSeconds < 0 {
		initialSeconds = 0
	}
	changed := t.stopOthers(projectID, now)
	target := t.ensure(projectID)
	target.BaseSeconds = initialSeconds
	target.RunningSince = timePtr(now)
	return append(changed, *target)
}

// Adjust adds delta to the base, clamped at 0. A running timer keeps running from the adjusted base.
func (t *TimerState) Adjust(projectID uuid.UUID, deltaSeconds int64) []model.UserProjectState {
	s := t.ensure(projectID)
	next := s.BaseSeconds + deltaSeconds
	if next < 0 {
		next = 0
	}
	if next == s.BaseSeconds {
		return nil
	}
	s.BaseSeconds = next
	return []model.UserProjectState{*s}
}

// Reset zeroes the base and stops the timer regardless of its prior state.
func (t *TimerState) Reset(projectID uuid.UUID) []model.UserProjectState {
	s := t.ensure(projectID)
	if s.BaseSeconds == 0 && !s.IsRunning() {
		return nil
	}
	s.BaseSeconds = 0
	s.RunningSince = nil
	return []model.UserProjectState{*s}
}

// SetComment replaces the session comment. An empty text clears it.
func (t *TimerState) SetComment(projectID uuid.UUID, text string) []model.UserProjectState {
	s := t.ensure(projectID)
	if text == "" {
		s.SessionComment = nil
	} else {
		s.SessionComment = &text
	}
	return []model.UserProjectState{*s}
}

// SetHidden toggles whether the project is hidden from the user's list.
func (t *TimerState) SetHidden(projectID uuid.UUID, hidden bool) []model.UserProjectState {
	s := t.ensure(projectID)
	if s.IsHiddenForUser == hidden {
		return nil
	}
	s.IsHiddenForUser = hidden
	return []model.UserProjectState{*s}
}

// Get returns a copy of the record for projectID.
func (t *TimerState) Get(projectID uuid.UUID) (model.UserProjectState, bool) {
	s, ok := t.byID[projectID]
	if !ok {
		return model.UserProjectState{}, false
	}
	return *s, true
}

// Running returns the running record, if any.
func (t *TimerState) Running() (model.UserProjectState, bool) {
	for _, id := range t.order {
		if s := t.byID[id]; s.IsRunning() {
			return *s, true
		}
	}
	return model.UserProjectState{}, false
}

// States returns copies of all records in their original order.
func (t *TimerState) States() []model.UserProjectState {
	out := make([]model.UserProjectState, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.byID[id])
	}
	return out
}

// DisplaySeconds returns the live value for projectID, or 0 for an unknown project.
func (t *TimerState) DisplaySeconds(projectID uuid.UUID, now time.Time) int64 {
	s, ok := t.byID[projectID]
	if !ok {
		return 0
	}
	return DisplaySeconds(s.BaseSeconds, s.RunningSince, now)
}

// Display returns live values for every record.
func (t *TimerState) Display(now time.Time) map[uuid.UUID]int64 {
	out := make(map[uuid.UUID]int64, len(t.order))
	for _, id := range t.order {
		s := t.byID[id]
		out[id] = DisplaySeconds(s.BaseSeconds, s.RunningSince, now)
	}
	return out
}

func (t *TimerState) ensure(projectID uuid.UUID) *model.UserProjectState {
	if s, ok := t.byID[projectID]; ok {
		return s
	}
	s := &model.UserProjectState{UserID: t.userID, ProjectID: projectID}
	t.order = append(t.order, projectID)
	t.byID[projectID] = s
	return s
}

func (t *TimerState) stopOthers(projectID uuid.UUID, now time.Time) []model.UserProjectState {
	var changed []model.UserProjectState
	for _, id := range t.order {
		if id == projectID {
			continue
		}
		if s := t.byID[id]; stop(s, now) {
			changed = append(changed, *s)
		}
	}
	return changed
}

func stop(s *model.UserProjectState, now time.Time) bool {
	if s.RunningSince == nil {
		return false
	}
	s.BaseSeconds = DisplaySeconds(s.BaseSeconds, s.RunningSince, now)
	s.RunningSince = nil
	return true
}

func timePtr(t time.Time) *time.Time {
	return &t
}
