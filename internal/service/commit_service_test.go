package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "modtracker/internal/errors"
	"modtracker/internal/model"
)

func commitSnapshot() []model.UserProjectState {
	return []model.UserProjectState{
		{UserID: operator, ProjectID: projA, BaseSeconds: 1800, SessionComment: strPtr("bugfix")},
		{UserID: operator, ProjectID: projB, BaseSeconds: 0},
		{UserID: operator, ProjectID: projC, BaseSeconds: 600, RunningSince: timeAt(-300 * time.Second)},
	}
}

func expectProjects(s *fakeStore) {
	s.projects.On("FindByIDs", mock.Anything, mock.Anything).Return([]model.Project{
		{ID: projA, Name: "Alpha"}, {ID: projB, Name: "Beta"}, {ID: projC, Name: "Gamma"},
	}, nil)
}

func TestCommitService_CommitDailyWritesLogsBeforeClearing(t *testing.T) {
	store := newFakeStore()
	var order []string
	var logged []model.DailyLogEntry
	var cleared []model.UserProjectState

	store.markers.On("FindForUpdate", mock.Anything, operator).Return(nil, gorm.ErrRecordNotFound)
	store.states.On("ListByUserForUpdate", mock.Anything, operator).Return(commitSnapshot(), nil)
	expectProjects(store)
	store.logs.On("CreateBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, "logs")
			logged = args.Get(1).([]model.DailyLogEntry)
		}).Return(nil)
	store.states.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, "states")
			cleared = args.Get(1).([]model.UserProjectState)
		}).Return(nil)
	store.markers.On("Save", mock.Anything, &model.CommitMarker{UserID: operator, Day: "2024-06-01"}).
		Run(func(mock.Arguments) { order = append(order, "marker") }).Return(nil)

	svc := NewCommitService(store, nil, fixedClock(testNow))
	entries, err := svc.CommitDaily(context.Background(), operator, "2024-06-01")

	require.NoError(t, err)
	assert.Equal(t, []string{"logs", "states", "marker"}, order)
	assert.Equal(t, 1, store.txCount)
	assert.Equal(t, logged, entries)

	require.Len(t, entries, 2)
	byID := make(map[uuid.UUID]model.DailyLogEntry)
	for _, e := range entries {
		assert.Equal(t, "2024-06-01", e.Date)
		assert.Equal(t, model.LogKindNormal, e.Kind)
		byID[e.ProjectID] = e
	}
	assert.Equal(t, int64(1800), byID[projA].DurationSeconds)
	assert.Equal(t, "Alpha", byID[projA].ProjectName)
	require.NotNil(t, byID[projA].Comment)
	assert.Equal(t, "bugfix", *byID[projA].Comment)
	assert.Equal(t, int64(900), byID[projC].DurationSeconds)

	for _, s := range cleared {
		assert.Zero(t, s.BaseSeconds)
		assert.Nil(t, s.RunningSince)
		assert.Nil(t, s.SessionComment)
	}
	store.assertExpectations(t)
}

func TestCommitService_CommitDailyNeverMovesMarkerBack(t *testing.T) {
	tests := []struct {
		name     string
		marker   string
		today    string
		wantSave bool
	}{
		{name: "past day keeps the marker", marker: "2024-06-03", today: "2024-05-01"},
		{name: "same day keeps the marker", marker: "2024-06-03", today: "2024-06-03"},
		{name: "later day advances the marker", marker: "2024-06-03", today: "2024-06-04", wantSave: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.markers.On("FindForUpdate", mock.Anything, operator).Return(&model.CommitMarker{UserID: operator, Day: tt.marker}, nil)
			store.states.On("ListByUserForUpdate", mock.Anything, operator).Return(commitSnapshot(), nil)
			expectProjects(store)
			store.logs.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)
			store.states.On("Upsert", mock.Anything, mock.Anything).Return(nil)
			if tt.wantSave {
				store.markers.On("Save", mock.Anything, &model.CommitMarker{UserID: operator, Day: tt.today}).Return(nil)
			}

			svc := NewCommitService(store, nil, fixedClock(testNow))
			entries, err := svc.CommitDaily(context.Background(), operator, tt.today)

			require.NoError(t, err)
			for _, e := range entries {
				assert.Equal(t, tt.today, e.Date)
			}
			if !tt.wantSave {
				store.markers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			}
			store.assertExpectations(t)
		})
	}
}

func TestCommitService_FailedLogWriteLeavesTimersUntouched(t *testing.T) {
	store := newFakeStore()
	store.markers.On("FindForUpdate", mock.Anything, operator).Return(&model.CommitMarker{UserID: operator, Day: "2024-06-01"}, nil)
	store.states.On("ListByUserForUpdate", mock.Anything, operator).Return(commitSnapshot(), nil)
	expectProjects(store)
	store.logs.On("CreateBatch", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := NewCommitService(store, nil, fixedClock(testNow))
	entries, err := svc.CommitDaily(context.Background(), operator, "2024-06-01")

	assert.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	assert.Nil(t, entries)
	store.states.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	store.markers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCommitService_CommitDailyRejectsBadDate(t *testing.T) {
	svc := NewCommitService(newFakeStore(), nil, fixedClock(testNow))

	_, err := svc.CommitDaily(context.Background(), operator, "06/01/2024")

	assert.ErrorIs(t, err, apperrors.ErrInvalidDate)
}

func TestCommitService_Rollover(t *testing.T) {
	tests := []struct {
		name          string
		marker        *model.CommitMarker
		today         string
		wantCommitted bool
		wantDay       string
		wantMarker    string
	}{
		{
			name:       "missing marker is initialized without committing",
			today:      "2024-06-02",
			wantMarker: "2024-06-02",
		},
		{
			name:       "same day is not due",
			marker:     &model.CommitMarker{UserID: operator, Day: "2024-06-02"},
			today:      "2024-06-02",
			wantMarker: "2024-06-02",
		},
		{
			name:       "clock behind the marker is not due",
			marker:     &model.CommitMarker{UserID: operator, Day: "2024-06-02"},
			today:      "2024-06-01",
			wantMarker: "2024-06-02",
		},
		{
			name:          "next day commits under the previous day",
			marker:        &model.CommitMarker{UserID: operator, Day: "2024-06-01"},
			today:         "2024-06-02",
			wantCommitted: true,
			wantDay:       "2024-06-01",
			wantMarker:    "2024-06-02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			if tt.marker == nil {
				store.markers.On("FindForUpdate", mock.Anything, operator).Return(nil, gorm.ErrRecordNotFound)
				store.markers.On("Save", mock.Anything, &model.CommitMarker{UserID: operator, Day: tt.today}).Return(nil)
			} else {
				store.markers.On("FindForUpdate", mock.Anything, operator).Return(tt.marker, nil)
			}
			if tt.wantCommitted {
				store.states.On("ListByUserForUpdate", mock.Anything, operator).Return(commitSnapshot(), nil)
				expectProjects(store)
				store.logs.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)
				store.states.On("Upsert", mock.Anything, mock.Anything).Return(nil)
				store.markers.On("Save", mock.Anything, &model.CommitMarker{UserID: operator, Day: tt.today}).Return(nil)
			}

			svc := NewCommitService(store, nil, fixedClock(testNow))
			result, err := svc.Rollover(context.Background(), operator, tt.today)

			require.NoError(t, err)
			assert.Equal(t, tt.wantCommitted, result.Committed)
			assert.Equal(t, tt.wantDay, result.Day)
			assert.Equal(t, tt.wantMarker, result.Marker)
			for _, e := range result.Entries {
				assert.Equal(t, tt.wantDay, e.Date)
			}
			store.assertExpectations(t)
		})
	}
}

func TestCommitService_RolloverIsIdempotent(t *testing.T) {
	store := newFakeStore()
	marker := &model.CommitMarker{UserID: operator, Day: "2024-06-01"}

	store.markers.On("FindForUpdate", mock.Anything, operator).Return(marker, nil).Once()
	store.states.On("ListByUserForUpdate", mock.Anything, operator).Return(commitSnapshot(), nil).Once()
	expectProjects(store)
	store.logs.On("CreateBatch", mock.Anything, mock.Anything).Return(nil).Once()
	store.states.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	store.markers.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	// the second caller sees the marker the first one saved
	store.markers.On("FindForUpdate", mock.Anything, operator).Return(&model.CommitMarker{UserID: operator, Day: "2024-06-02"}, nil).Once()

	svc := NewCommitService(store, nil, fixedClock(testNow))

	first, err := svc.Rollover(context.Background(), operator, "2024-06-02")
	require.NoError(t, err)
	second, err := svc.Rollover(context.Background(), operator, "2024-06-02")
	require.NoError(t, err)

	assert.True(t, first.Committed)
	assert.False(t, second.Committed)
	assert.Empty(t, second.Entries)
	store.logs.AssertNumberOfCalls(t, "CreateBatch", 1)
	store.assertExpectations(t)
}
