package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "modtracker/internal/errors"
)

// DateLayout is the calendar-day key format used by logs and commit markers.
const DateLayout = "2006-01-02"

// FormatHMS renders seconds as HH:MM:SS. Hours are not wrapped at 24.
func FormatHMS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParseHMS parses "H:MM", "H:MM:SS" or a bare number of seconds.
func ParseHMS(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, apperrors.ErrInvalidDuration
	}
	parts := strings.Split(v, ":")
	if len(parts) > 3 {
		return 0, apperrors.ErrInvalidDuration
	}
	var total int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, apperrors.ErrInvalidDuration
		}
		if i > 0 && n >= 60 {
			return 0, apperrors.ErrInvalidDuration
		}
		total = total*60 + n
	}
	if len(parts) == 2 {
		total *= 60
	}
	return total, nil
}

// DateKey returns the calendar day of t in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey parses a YYYY-MM-DD key in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidDate, key)
	}
	return t, nil
}

// ValidDateKey reports whether key is a well-formed YYYY-MM-DD day.
func ValidDateKey(key string) bool {
	_, err := time.Parse(DateLayout, key)
	return err == nil
}

// WeekKey returns the ISO week of t as "YYYY-Www".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
