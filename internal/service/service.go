package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "modtracker/internal/errors"
	"modtracker/internal/model"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   model.Role
}

// IsAdmin reports whether the actor has the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// CanAccess reports whether the actor may read or change data owned by userID.
func (a Actor) CanAccess(userID uuid.UUID) bool {
	return a.IsAdmin() || a.UserID == userID
}

// storageErr marks a repository failure as transient storage unavailability.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrStorageUnavailable, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// keyedMutex hands out one mutex per user so that a process never interleaves two
// mutations of the same user's timers.
type keyedMutex struct {
	locks sync.Map
}

func (k *keyedMutex) lock(id uuid.UUID) func() {
	value, _ := k.locks.LoadOrStore(id, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// mergeStates folds later record versions over earlier ones, keeping first-seen order.
func mergeStates(groups ...[]model.UserProjectState) []model.UserProjectState {
	index := make(map[uuid.UUID]int)
	var out []model.UserProjectState
	for _, group := range groups {
		for _, s := range group {
			if i, ok := index[s.ProjectID]; ok {
				out[i] = s
				continue
			}
			index[s.ProjectID] = len(out)
			out = append(out, s)
		}
	}
	return out
}
