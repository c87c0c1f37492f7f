package tracker

import (
	"time"

	"github.com/google/uuid"

	apperrors "modtracker/internal/errors"
	"modtracker/internal/model"
)

// LogEdit carries the new values of the three editable fields. A nil or blank Comment clears it.
type LogEdit struct {
	DurationSeconds int64
	Date            string
	Comment         *string
}

// ApplyEdit writes edit onto entry in place and returns the audit record describing the change.
// On a validation error the entry is left untouched.
func ApplyEdit(entry *model.DailyLogEntry, edit LogEdit, editedBy uuid.UUID, now time.Time) (model.LogModificationRecord, error) {
	if edit.DurationSeconds <= 0 {
		return model.LogModificationRecord{}, apperrors.ErrInvalidDuration
	}
	if !ValidDateKey(edit.Date) {
		return model.LogModificationRecord{}, apperrors.ErrInvalidDate
	}

	var newComment *string
	if edit.Comment != nil {
		newComment = commentPtr(*edit.Comment)
	}

	record := model.LogModificationRecord{
		ID:                 uuid.New(),
		LogID:              entry.ID,
		ModifiedAt:         now,
		ModifiedByUserID:   editedBy,
		OldDurationSeconds: entry.DurationSeconds,
		NewDurationSeconds: edit.DurationSeconds,
		OldDate:            entry.Date,
		NewDate:            edit.Date,
		OldComment:         cloneComment(entry.Comment),
		NewComment:         cloneComment(newComment),
	}

	entry.DurationSeconds = edit.DurationSeconds
	entry.Date = edit.Date
	entry.Comment = newComment
	entry.UpdatedAt = now
	return record, nil
}
