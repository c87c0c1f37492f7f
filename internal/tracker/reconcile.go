package tracker

import (
	"time"

	"github.com/google/uuid"

	"modtracker/internal/model"
)

// Reconciliation is the outcome of one reconciliation pass over a snapshot.
type Reconciliation struct {
	// Now is the single instant used for every value in the pass.
	Now time.Time
	// States is the full snapshot with at most one running record, in snapshot order.
	States []model.UserProjectState
	// Corrections holds only the records that differ from the snapshot and must be written back.
	Corrections []model.UserProjectState
	// Display maps each project to its live seconds at Now.
	Display map[uuid.UUID]int64
}

// Winner returns the running record that survived reconciliation.
func (r Reconciliation) Winner() (model.UserProjectState, bool) {
	for _, s := range r.States {
		if s.IsRunning() {
			return s, true
		}
	}
	return model.UserProjectState{}, false
}

// Reconcile restores the single-running-timer rule on a snapshot read from storage.
//
// When several records are running, the one with the earliest RunningSince wins, ties
// going to the earlier record in the snapshot. Losers are stopped without crediting their
// elapsed time; their base is left as stored. Negative bases are raised to 0. Reconcile
// never fails and applying it to its own States yields no corrections.
func Reconcile(snapshot []model.UserProjectState, now time.Time) Reconciliation {
	states := make([]model.UserProjectState, len(snapshot))
	copy(states, snapshot)

	dirty := make([]bool, len(states))
	winner := -1
	for i := range states {
		if states[i].BaseSeconds < 0 {
			states[i].BaseSeconds = 0
			dirty[i] = true
		}
		if !states[i].IsRunning() {
			continue
		}
		if winner < 0 || states[i].RunningSince.Before(*states[winner].RunningSince) {
			winner = i
		}
	}

	for i := range states {
		if i == winner || !states[i].IsRunning() {
			continue
		}
		states[i].RunningSince = nil
		dirty[i] = true
	}

	r := Reconciliation{
		Now:     now,
		States:  states,
		Display: make(map[uuid.UUID]int64, len(states)),
	}
	for i, s := range states {
		if dirty[i] {
			r.Corrections = append(r.Corrections, s)
		}
		r.Display[s.ProjectID] = DisplaySeconds(s.BaseSeconds, s.RunningSince, now)
	}
	return r
}
