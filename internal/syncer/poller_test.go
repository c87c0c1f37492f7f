package syncer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modtracker/internal/logger"
	"modtracker/internal/model"
	"modtracker/internal/service"
	"modtracker/internal/tracker"
)

var (
	userID = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	projA  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	projB  = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// memStorage is an in-memory Storage that records what the poller did.
type memStorage struct {
	mu        sync.Mutex
	states    []model.UserProjectState
	puts      []model.UserProjectState
	rollovers []string
	gets      int
	getErr    error
	putErr    error
}

func (m *memStorage) GetUserProjectStates(_ context.Context, _ uuid.UUID) ([]model.UserProjectState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return append([]model.UserProjectState(nil), m.states...), nil
}

func (m *memStorage) PutUserProjectState(_ context.Context, state model.UserProjectState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts = append(m.puts, state)
	for i := range m.states {
		if m.states[i].ProjectID == state.ProjectID {
			m.states[i] = state
			return nil
		}
	}
	m.states = append(m.states, state)
	return nil
}

func (m *memStorage) Rollover(_ context.Context, today string) (*service.RolloverResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollovers = append(m.rollovers, today)
	return &service.RolloverResult{Marker: today}, nil
}

func (m *memStorage) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts)
}

func (m *memStorage) getCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

func (m *memStorage) rolloverDays() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.rollovers...)
}

func quietLogger() *logger.Logger {
	return logger.New("test", "OFF", io.Discard)
}

func timePtr(t time.Time) *time.Time { return &t }

func newTestPoller(storage Storage, clock *fakeClock, opts Options) *Poller {
	opts.UserID = userID
	opts.Now = clock.Now
	opts.Logger = quietLogger()
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Hour
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Hour
	}
	return NewPoller(storage, opts)
}

func TestPoller_PollReconcilesAndWritesCorrections(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start.Add(time.Minute)}
	storage := &memStorage{states: []model.UserProjectState{
		{UserID: userID, ProjectID: projA, BaseSeconds: 100, RunningSince: timePtr(start.Add(10 * time.Second))},
		{UserID: userID, ProjectID: projB, BaseSeconds: 20, RunningSince: timePtr(start)},
	}}

	p := newTestPoller(storage, clock, Options{})
	require.NoError(t, p.Poll(context.Background()))

	assert.Equal(t, StateLive, p.State())
	view := p.View()
	require.NotNil(t, view.RunningProjectID)
	assert.Equal(t, projB, *view.RunningProjectID)
	assert.Equal(t, int64(100), view.Display[projA])
	assert.Equal(t, int64(80), view.Display[projB])

	require.Eventually(t, func() bool { return storage.putCount() == 1 }, time.Second, 5*time.Millisecond)
	storage.mu.Lock()
	put := storage.puts[0]
	storage.mu.Unlock()
	assert.Equal(t, projA, put.ProjectID)
	assert.Nil(t, put.RunningSince)
	assert.Equal(t, int64(100), put.BaseSeconds)
}

func TestPoller_FailedPollKeepsSnapshot(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	storage := &memStorage{states: []model.UserProjectState{
		{UserID: userID, ProjectID: projA, BaseSeconds: 300},
	}}
	p := newTestPoller(storage, clock, Options{})

	require.NoError(t, p.Poll(context.Background()))

	storage.mu.Lock()
	storage.getErr = errors.New("connection refused")
	storage.mu.Unlock()

	err := p.Poll(context.Background())
	require.Error(t, err)

	view := p.View()
	assert.Equal(t, StateLive, view.State)
	assert.Equal(t, int64(300), view.Display[projA])
	assert.EqualError(t, view.LastErr, "connection refused")
}

func TestPoller_FirstPollFailureStaysIdle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	storage := &memStorage{getErr: errors.New("timeout")}
	p := newTestPoller(storage, clock, Options{})

	require.Error(t, p.Poll(context.Background()))
	assert.Equal(t, StateIdle, p.State())
}

func TestPoller_FailedCorrectionIsNotFatal(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start.Add(time.Minute)}
	storage := &memStorage{
		states: []model.UserProjectState{
			{UserID: userID, ProjectID: projA, RunningSince: timePtr(start)},
			{UserID: userID, ProjectID: projB, RunningSince: timePtr(start.Add(time.Second))},
		},
		putErr: errors.New("write failed"),
	}
	p := newTestPoller(storage, clock, Options{})

	require.NoError(t, p.Poll(context.Background()))
	view := p.View()
	require.NotNil(t, view.RunningProjectID)
	assert.Equal(t, projA, *view.RunningProjectID)
	assert.Equal(t, int64(0), view.Display[projB])
}

func TestPoller_TickDerivesDisplayLocally(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	storage := &memStorage{states: []model.UserProjectState{
		{UserID: userID, ProjectID: projA, BaseSeconds: 60, RunningSince: timePtr(start)},
	}}

	var mu sync.Mutex
	var seen []int64
	p := newTestPoller(storage, clock, Options{
		TickInterval: 5 * time.Millisecond,
		OnTick: func(v View) {
			mu.Lock()
			seen = append(seen, v.Display[projA])
			mu.Unlock()
		},
	})

	h := p.Start(context.Background())
	defer h.Stop()

	require.Eventually(t, func() bool { return p.State() == StateLive }, time.Second, 5*time.Millisecond)
	clock.Set(start.Add(90 * time.Second))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == 150
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, storage.getCount(), "ticks never fetch")
}

func TestPoller_DetectsDayChange(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC)}
	storage := &memStorage{}

	var mu sync.Mutex
	var results []string
	p := newTestPoller(storage, clock, Options{
		TickInterval: 5 * time.Millisecond,
		OnRollover: func(r *service.RolloverResult) {
			mu.Lock()
			results = append(results, r.Marker)
			mu.Unlock()
		},
	})

	h := p.Start(context.Background())
	defer h.Stop()

	require.Eventually(t, func() bool { return len(storage.rolloverDays()) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return p.State() == StateLive }, time.Second, 5*time.Millisecond)

	clock.Set(time.Date(2024, 6, 2, 0, 0, 1, 0, time.UTC))

	require.Eventually(t, func() bool { return len(storage.rolloverDays()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"2024-06-01", "2024-06-02"}, storage.rolloverDays())
	require.Eventually(t, func() bool { return storage.getCount() >= 2 }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"2024-06-01", "2024-06-02"}, results)
}

func TestPoller_StopCancelsBothLoops(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	storage := &memStorage{}
	p := newTestPoller(storage, clock, Options{PollInterval: 5 * time.Millisecond, TickInterval: 5 * time.Millisecond})

	h := p.Start(context.Background())
	require.Eventually(t, func() bool { return storage.getCount() >= 2 }, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
	assert.Equal(t, StateIdle, p.State())

	after := storage.getCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, storage.getCount())
}

func TestPoller_DoPersistsChangedRecords(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	storage := &memStorage{states: []model.UserProjectState{
		{UserID: userID, ProjectID: projA, BaseSeconds: 0, RunningSince: timePtr(start.Add(-time.Minute))},
	}}
	p := newTestPoller(storage, clock, Options{})
	require.NoError(t, p.Poll(context.Background()))

	changed, err := p.Do(context.Background(), func(ts *tracker.TimerState, now time.Time) []model.UserProjectState {
		return ts.Start(projB, now)
	})

	require.NoError(t, err)
	require.Len(t, changed, 2)
	assert.Equal(t, 2, storage.putCount())

	view := p.View()
	require.NotNil(t, view.RunningProjectID)
	assert.Equal(t, projB, *view.RunningProjectID)
	assert.Equal(t, int64(60), view.Display[projA])
}

func TestPoller_DoReportsWriteFailure(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	storage := &memStorage{putErr: errors.New("boom")}
	p := newTestPoller(storage, clock, Options{})

	changed, err := p.Do(context.Background(), func(ts *tracker.TimerState, now time.Time) []model.UserProjectState {
		return ts.Start(projA, now)
	})

	require.Error(t, err)
	assert.Len(t, changed, 1)
	assert.Zero(t, p.View().Display[projA])
	assert.NotNil(t, p.View().RunningProjectID, "local copy keeps the change")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "SYNCING", StateSyncing.String())
	assert.Equal(t, "LIVE", StateLive.String())
}
