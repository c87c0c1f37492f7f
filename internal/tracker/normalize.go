package tracker

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"modtracker/internal/model"
)

// Raw is a loosely typed row as it arrives from storage or another client. Keys may be
// snake_case or camelCase; numbers may be strings; timestamps may be epoch milliseconds
// or RFC 3339 text.
type Raw map[string]interface{}

var (
	stateKeys = struct {
		user, project, base, running, comment, hidden []string
	}{
		user:    []string{"user_id", "userId"},
		project: []string{"project_id", "projectId"},
		base:    []string{"base_seconds", "baseSeconds", "current_day_seconds", "currentDaySeconds"},
		running: []string{"running_since", "runningSince"},
		comment: []string{"session_comment", "sessionComment"},
		hidden:  []string{"is_hidden_for_user", "isHiddenForUser", "hidden_by_user", "hiddenByUser"},
	}
	logKeys = struct {
		id, user, project, name, date, duration, kind, comment, created []string
	}{
		id:       []string{"id"},
		user:     []string{"user_id", "userId"},
		project:  []string{"project_id", "projectId"},
		name:     []string{"project_name", "projectName"},
		date:     []string{"date"},
		duration: []string{"duration_seconds", "durationSeconds", "duration"},
		kind:     []string{"kind", "type"},
		comment:  []string{"comment"},
		created:  []string{"created_at", "createdAt", "timestamp"},
	}
)

// NormalizeState converts a raw row into a UserProjectState. It reports false when the
// row has no usable user or project id. Bad numbers become 0 and bad timestamps mean
// "not running".
func NormalizeState(raw Raw) (model.UserProjectState, bool) {
	userID, ok := uuidField(raw, stateKeys.user...)
	if !ok {
		return model.UserProjectState{}, false
	}
	projectID, ok := uuidField(raw, stateKeys.project...)
	if !ok {
		return model.UserProjectState{}, false
	}
	base := intField(raw, stateKeys.base...)
	if base < 0 {
		base = 0
	}
	var comment *string
	if c := stringField(raw, stateKeys.comment...); c != "" {
		comment = &c
	}
	return model.UserProjectState{
		UserID:          userID,
		ProjectID:       projectID,
		BaseSeconds:     base,
		RunningSince:    timeField(raw, stateKeys.running...),
		SessionComment:  comment,
		IsHiddenForUser: boolField(raw, stateKeys.hidden...),
	}, true
}

// NormalizeStates converts rows, dropping those without usable ids.
func NormalizeStates(rows []Raw) []model.UserProjectState {
	out := make([]model.UserProjectState, 0, len(rows))
	for _, r := range rows {
		if s, ok := NormalizeState(r); ok {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeLog converts a raw row into a DailyLogEntry. It reports false when ids are
// missing or the row describes no time at all.
func NormalizeLog(raw Raw) (model.DailyLogEntry, bool) {
	id, ok := uuidField(raw, logKeys.id...)
	if !ok {
		return model.DailyLogEntry{}, false
	}
	userID, ok := uuidField(raw, logKeys.user...)
	if !ok {
		return model.DailyLogEntry{}, false
	}
	projectID, ok := uuidField(raw, logKeys.project...)
	if !ok {
		return model.DailyLogEntry{}, false
	}
	duration := intField(raw, logKeys.duration...)
	if duration <= 0 {
		return model.DailyLogEntry{}, false
	}
	kind := model.LogKind(strings.ToUpper(stringField(raw, logKeys.kind...)))
	if !kind.Valid() {
		kind = model.LogKindNormal
	}
	var comment *string
	if c := stringField(raw, logKeys.comment...); c != "" {
		comment = &c
	}
	entry := model.DailyLogEntry{
		ID:              id,
		UserID:          userID,
		ProjectID:       projectID,
		ProjectName:     stringField(raw, logKeys.name...),
		Date:            stringField(raw, logKeys.date...),
		DurationSeconds: duration,
		Kind:            kind,
		Comment:         comment,
	}
	if ts := timeField(raw, logKeys.created...); ts != nil {
		entry.CreatedAt = *ts
	}
	return entry, true
}

// NormalizeLogs converts rows, dropping unusable ones.
func NormalizeLogs(rows []Raw) []model.DailyLogEntry {
	out := make([]model.DailyLogEntry, 0, len(rows))
	for _, r := range rows {
		if e, ok := NormalizeLog(r); ok {
			out = append(out, e)
		}
	}
	return out
}

func lookup(raw Raw, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func uuidField(raw Raw, keys ...string) (uuid.UUID, bool) {
	s := stringField(raw, keys...)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func stringField(raw Raw, keys ...string) string {
	v, ok := lookup(raw, keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case uuid.UUID:
		return t.String()
	}
	return ""
}

func intField(raw Raw, keys ...string) int64 {
	v, ok := lookup(raw, keys...)
	if !ok {
		return 0
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

func boolField(raw Raw, keys ...string) bool {
	v, ok := lookup(raw, keys...)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	}
	f, ok := toFloat(v)
	return ok && f != 0
}

// timeField accepts epoch milliseconds (number or numeric string), RFC 3339 and MySQL
// DATETIME text. Anything else, including 0, yields nil.
func timeField(raw Raw, keys ...string) *time.Time {
	v, ok := lookup(raw, keys...)
	if !ok {
		return nil
	}
	if s, isString := v.(string); isString {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.000", "2006-01-02 15:04:05"} {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return &t
			}
		}
	}
	if t, isTime := v.(time.Time); isTime {
		if t.IsZero() {
			return nil
		}
		return &t
	}
	f, ok := toFloat(v)
	if !ok || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	t := time.UnixMilli(int64(f))
	return &t
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
