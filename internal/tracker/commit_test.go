package tracker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "modtracker/internal/errors"
	"modtracker/internal/model"
)

var names = map[uuid.UUID]string{projA: "Alpha", projB: "Beta", projC: "Gamma"}

func TestCommit_SkipsZeroBase(t *testing.T) {
	states := []model.UserProjectState{
		{ProjectID: projA, BaseSeconds: 0},
		{ProjectID: projB, BaseSeconds: 1800},
	}

	res := Commit(userA, states, names, "2024-06-01", t0)

	require.Len(t, res.Entries, 1)
	e := res.Entries[0]
	assert.Equal(t, projB, e.ProjectID)
	assert.Equal(t, "Beta", e.ProjectName)
	assert.Equal(t, int64(1800), e.DurationSeconds)
	assert.Equal(t, "2024-06-01", e.Date)
	assert.Equal(t, model.LogKindNormal, e.Kind)
	assert.Equal(t, userA, e.UserID)
	assert.NotEqual(t, uuid.Nil, e.ID)

	require.Len(t, res.Cleared, 1)
	assert.Equal(t, projB, res.Cleared[0].ProjectID)
	assert.Equal(t, int64(0), res.Cleared[0].BaseSeconds)
}

func TestCommit_StopsRunningBeforeLogging(t *testing.T) {
	comment := "deploy"
	states := []model.UserProjectState{
		{ProjectID: projA, BaseSeconds: 600, RunningSince: ptr(t0), SessionComment: &comment},
		{ProjectID: projB, BaseSeconds: 120, SessionComment: ptrStr("notes")},
	}
	now := t0.Add(5 * time.Minute)

	res := Commit(userA, states, names, "2024-06-01", now)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, int64(900), res.Entries[0].DurationSeconds)
	require.NotNil(t, res.Entries[0].Comment)
	assert.Equal(t, "deploy", *res.Entries[0].Comment)
	assert.Equal(t, "notes", *res.Entries[1].Comment)

	for _, s := range res.Cleared {
		assert.Nil(t, s.RunningSince)
		assert.Equal(t, int64(0), s.BaseSeconds)
		assert.Nil(t, s.SessionComment)
	}
	assert.Equal(t, "deploy", comment, "input comment untouched")
	assert.Equal(t, int64(600), states[0].BaseSeconds, "input states untouched")
}

func TestCommit_RunningWithNoElapsedIsClearedButNotLogged(t *testing.T) {
	states := []model.UserProjectState{{ProjectID: projA, RunningSince: ptr(t0)}}

	res := Commit(userA, states, names, "2024-06-01", t0.Add(500*time.Millisecond))

	assert.Empty(t, res.Entries)
	require.Len(t, res.Cleared, 1)
	assert.Nil(t, res.Cleared[0].RunningSince)
}

func TestCommit_ClearsEveryPositiveBaseAndLogsExactlyOnce(t *testing.T) {
	states := []model.UserProjectState{
		{ProjectID: projA, BaseSeconds: 1},
		{ProjectID: projB, BaseSeconds: 0},
		{ProjectID: projC, BaseSeconds: 4242, RunningSince: ptr(t0)},
	}
	now := t0.Add(8 * time.Second)

	res := Commit(userA, states, names, "2024-06-02", now)

	want := map[uuid.UUID]int64{projA: 1, projC: 4250}
	got := map[uuid.UUID]int64{}
	for _, e := range res.Entries {
		assert.Positive(t, e.DurationSeconds)
		_, dup := got[e.ProjectID]
		assert.False(t, dup)
		got[e.ProjectID] = e.DurationSeconds
	}
	assert.Equal(t, want, got)

	after := Reconcile(res.Cleared, now)
	for _, s := range after.States {
		assert.Equal(t, int64(0), s.BaseSeconds)
	}
}

func TestNewEntry(t *testing.T) {
	tests := []struct {
		name    string
		in      EntryInput
		wantErr error
		want    model.LogKind
	}{
		{name: "manual default", in: EntryInput{Date: "2024-05-01", DurationSeconds: 3600}, want: model.LogKindManual},
		{name: "preset", in: EntryInput{Date: "2024-05-01", DurationSeconds: 60, Kind: model.LogKindPreset}, want: model.LogKindPreset},
		{name: "zero duration", in: EntryInput{Date: "2024-05-01"}, wantErr: apperrors.ErrInvalidDuration},
		{name: "negative duration", in: EntryInput{Date: "2024-05-01", DurationSeconds: -1}, wantErr: apperrors.ErrInvalidDuration},
		{name: "bad date", in: EntryInput{Date: "yesterday", DurationSeconds: 10}, wantErr: apperrors.ErrInvalidDate},
		{name: "normal rejected", in: EntryInput{Date: "2024-05-01", DurationSeconds: 10, Kind: model.LogKindNormal}, wantErr: apperrors.ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.UserID = userA
			tt.in.ProjectID = projA
			e, err := NewEntry(tt.in, t0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Kind)
			assert.Equal(t, tt.in.DurationSeconds, e.DurationSeconds)
			assert.Nil(t, e.Comment)
		})
	}
}

func TestRollover(t *testing.T) {
	day, due := Rollover("2024-05-31", "2024-06-01")
	assert.True(t, due)
	assert.Equal(t, "2024-05-31", day)

	_, due = Rollover("2024-06-01", "2024-06-01")
	assert.False(t, due)

	_, due = Rollover("", "2024-06-01")
	assert.False(t, due)

	_, due = Rollover("2024-06-02", "2024-06-01")
	assert.False(t, due, "clock behind the marker")
}

func ptrStr(s string) *string { return &s }
