package tracker

import "time"

// ElapsedSeconds returns the whole seconds from since to now, never negative.
func ElapsedSeconds(since, now time.Time) int64 {
	d := now.Sub(since)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// DisplaySeconds is the live value of a timer: base plus clamped elapsed time when running.
// Only the elapsed term is clamped, so skewed clocks can never push the result below base.
func DisplaySeconds(base int64, runningSince *time.Time, now time.Time) int64 {
	if base < 0 {
		base = 0
	}
	if runningSince == nil {
		return base
	}
	return base + ElapsedSeconds(*runningSince, now)
}
