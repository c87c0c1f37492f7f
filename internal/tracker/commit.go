package tracker

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "modtracker/internal/errors"
	"modtracker/internal/model"
)

// CommitResult holds the log rows to insert and the timer records to write back after
// they are stored.
type CommitResult struct {
	Entries []model.DailyLogEntry
	Cleared []model.UserProjectState
}

// Commit stops every running timer and turns each positive base into a NORMAL log entry
// dated day, carrying the session comment. Committed records come back with a zero base
// and no comment. Zero bases produce no entry.
func Commit(userID uuid.UUID, states []model.UserProjectState, projectNames map[uuid.UUID]string, day string, now time.Time) CommitResult {
	ts := NewTimerState(userID, states)

	changed := make(map[uuid.UUID]bool)
	for _, s := range ts.States() {
		if s.IsRunning() {
			ts.Stop(s.ProjectID, now)
			changed[s.ProjectID] = true
		}
	}

	var result CommitResult
	for _, id := range ts.order {
		s := ts.byID[id]
		if s.BaseSeconds <= 0 {
			continue
		}
		result.Entries = append(result.Entries, model.DailyLogEntry{
			ID:              uuid.New(),
			UserID:          userID,
			ProjectID:       s.ProjectID,
			ProjectName:     projectNames[s.ProjectID],
			Date:            day,
			DurationSeconds: s.BaseSeconds,
			Kind:            model.LogKindNormal,
			Comment:         cloneComment(s.SessionComment),
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		s.BaseSeconds = 0
		s.SessionComment = nil
		changed[id] = true
	}

	for _, id := range ts.order {
		if changed[id] {
			result.Cleared = append(result.Cleared, *ts.byID[id])
		}
	}
	return result
}

// EntryInput describes a log entry created directly, without going through a timer.
type EntryInput struct {
	UserID          uuid.UUID
	ProjectID       uuid.UUID
	ProjectName     string
	Date            string
	DurationSeconds int64
	Kind            model.LogKind
	Comment         string
}

// NewEntry builds a MANUAL or PRESET entry for any day. Kind defaults to MANUAL.
func NewEntry(in EntryInput, now time.Time) (model.DailyLogEntry, error) {
	if in.Kind == "" {
		in.Kind = model.LogKindManual
	}
	if in.Kind != model.LogKindManual && in.Kind != model.LogKindPreset {
		return model.DailyLogEntry{}, apperrors.ErrInvalidKind
	}
	if in.DurationSeconds <= 0 {
		return model.DailyLogEntry{}, apperrors.ErrInvalidDuration
	}
	if !ValidDateKey(in.Date) {
		return model.DailyLogEntry{}, apperrors.ErrInvalidDate
	}
	return model.DailyLogEntry{
		ID:              uuid.New(),
		UserID:          in.UserID,
		ProjectID:       in.ProjectID,
		ProjectName:     in.ProjectName,
		Date:            in.Date,
		DurationSeconds: in.DurationSeconds,
		Kind:            in.Kind,
		Comment:         commentPtr(in.Comment),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Rollover is the day-boundary check: given the stored marker day and today, it says
// whether a commit is due and under which date it must be recorded. A today that is not
// after the marker (same day, or a client clock running behind) is never due.
func Rollover(markerDay, today string) (commitDay string, due bool) {
	if markerDay == "" || today <= markerDay {
		return "", false
	}
	return markerDay, true
}

func cloneComment(c *string) *string {
	if c == nil {
		return nil
	}
	return commentPtr(*c)
}

func commentPtr(c string) *string {
	c = strings.TrimSpace(c)
	if c == "" {
		return nil
	}
	return &c
}
