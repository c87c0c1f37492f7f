package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "modtracker/internal/errors"
	"modtracker/internal/logger"
	"modtracker/internal/model"
	"modtracker/internal/service"
	"modtracker/internal/tracker"
)

const (
	defaultPollInterval = 15 * time.Second
	defaultTickInterval = time.Second
)

// Storage is the part of the server a Poller needs.
type Storage interface {
	GetUserProjectStates(ctx context.Context, userID uuid.UUID) ([]model.UserProjectState, error)
	PutUserProjectState(ctx context.Context, state model.UserProjectState) error
	Rollover(ctx context.Context, today string) (*service.RolloverResult, error)
}

// State is where a Poller is in its cycle.
type State int

const (
	// StateIdle means no session is running.
	StateIdle State = iota
	// StateSyncing means a fetch is in flight.
	StateSyncing
	// StateLive means a reconciled snapshot is held and ticking.
	StateLive
)

func (s State) String() string {
	switch s {
	case StateSyncing:
		return "SYNCING"
	case StateLive:
		return "LIVE"
	default:
		return "IDLE"
	}
}

// View is what a tick shows.
type View struct {
	Now              time.Time
	State            State
	States           []model.UserProjectState
	Display          map[uuid.UUID]int64
	RunningProjectID *uuid.UUID
	LastPoll         time.Time
	LastErr          error
}

// Options tunes a Poller. Zero values fall back to a 15s poll, a 1s tick and a 10s
// storage timeout.
type Options struct {
	UserID         uuid.UUID
	PollInterval   time.Duration
	TickInterval   time.Duration
	StorageTimeout time.Duration
	Now            func() time.Time
	OnTick         func(View)
	OnRollover     func(*service.RolloverResult)
	Logger         *logger.Logger
}

// Action mutates the local timer state and returns the records it changed.
type Action func(ts *tracker.TimerState, now time.Time) []model.UserProjectState

// Poller keeps a reconciled copy of one user's timers. A remote poll bounds staleness
// and a local tick re-derives display seconds without touching storage.
type Poller struct {
	storage Storage
	opts    Options
	log     *logger.Child

	mu       sync.Mutex
	state    State
	snapshot []model.UserProjectState
	lastPoll time.Time
	lastErr  error
	day      string

	dayChanged chan string
}

// NewPoller creates a poller for opts.UserID.
func NewPoller(storage Storage, opts Options) *Poller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = defaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &Poller{
		storage:    storage,
		opts:       opts,
		log:        opts.Logger.With(logger.F("user_id", opts.UserID.String())),
		dayChanged: make(chan string, 1),
	}
}

// Handle stops a running session.
type Handle struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	p      *Poller
}

// Stop cancels polling and ticking and waits for both loops to return. Correction
// writes still in flight are abandoned.
func (h *Handle) Stop() {
	h.once.Do(func() {
		h.cancel()
		h.wg.Wait()
		h.p.setState(StateIdle)
	})
}

// Start begins the session: an immediate rollover check and poll, then a poll every
// PollInterval and a tick every TickInterval until ctx ends or the handle is stopped.
func (p *Poller) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, p: p}

	p.mu.Lock()
	p.day = tracker.DateKey(p.opts.Now())
	p.mu.Unlock()

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		p.pollLoop(ctx)
	}()
	go func() {
		defer h.wg.Done()
		p.tickLoop(ctx)
	}()
	return h
}

func (p *Poller) pollLoop(ctx context.Context) {
	p.rollover(ctx, p.currentDay())
	p.Poll(ctx)

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		case day := <-p.dayChanged:
			p.rollover(ctx, day)
			p.Poll(ctx)
		}
	}
}

func (p *Poller) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(p.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Poller) tick() {
	now := p.opts.Now()
	today := tracker.DateKey(now)

	p.mu.Lock()
	changed := p.state != StateIdle && today > p.day
	if changed {
		p.day = today
	}
	p.mu.Unlock()

	if changed {
		select {
		case p.dayChanged <- today:
		default:
		}
	}
	if p.opts.OnTick != nil {
		p.opts.OnTick(p.ViewAt(now))
	}
}

// Poll fetches the stored records, reconciles them and writes the corrections back
// without waiting. A failed fetch keeps the previous snapshot.
func (p *Poller) Poll(ctx context.Context) error {
	p.mu.Lock()
	previous := p.state
	p.state = StateSyncing
	p.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, p.opts.StorageTimeout)
	states, err := p.storage.GetUserProjectStates(callCtx, p.opts.UserID)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("poll failed", logger.F("error", err))
		}
		p.mu.Lock()
		p.lastErr = err
		if previous == StateIdle && p.snapshot == nil {
			p.state = StateIdle
		} else {
			p.state = StateLive
		}
		p.mu.Unlock()
		return err
	}

	rec := tracker.Reconcile(states, p.opts.Now())

	p.mu.Lock()
	p.snapshot = rec.States
	p.lastPoll = rec.Now
	p.lastErr = nil
	p.state = StateLive
	p.mu.Unlock()

	if len(rec.Corrections) > 0 {
		p.log.Info("reconciled timers", logger.F("corrections", len(rec.Corrections)))
		for _, c := range rec.Corrections {
			go p.writeCorrection(ctx, c)
		}
	}
	return nil
}

func (p *Poller) writeCorrection(ctx context.Context, state model.UserProjectState) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.StorageTimeout)
	defer cancel()
	if err := p.storage.PutUserProjectState(ctx, state); err != nil && ctx.Err() == nil {
		// the next poll reconciles again
		p.log.Warn("write correction failed",
			logger.F("project_id", state.ProjectID.String()), logger.F("error", err))
	}
}

func (p *Poller) rollover(ctx context.Context, today string) {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.StorageTimeout)
	defer cancel()

	result, err := p.storage.Rollover(callCtx, today)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("rollover failed", logger.F("today", today), logger.F("error", err))
		}
		return
	}
	if result.Committed {
		p.log.Info("rolled over", logger.F("day", result.Day), logger.F("entries", len(result.Entries)))
	}
	if p.opts.OnRollover != nil {
		p.opts.OnRollover(result)
	}
}

// Do applies action to the local snapshot and persists the changed records. The local
// copy is updated even when a write fails; the next poll brings it back in line.
func (p *Poller) Do(ctx context.Context, action Action) ([]model.UserProjectState, error) {
	now := p.opts.Now()

	p.mu.Lock()
	ts := tracker.NewTimerState(p.opts.UserID, p.snapshot)
	changed := action(ts, now)
	p.snapshot = ts.States()
	p.mu.Unlock()

	for _, s := range changed {
		callCtx, cancel := context.WithTimeout(ctx, p.opts.StorageTimeout)
		err := p.storage.PutUserProjectState(callCtx, s)
		cancel()
		if err != nil {
			return changed, fmt.Errorf("persist %s: %w: %w", s.ProjectID, apperrors.ErrStorageUnavailable, err)
		}
	}
	return changed, nil
}

// State returns where the poller is in its cycle.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// View returns the current picture at the poller's clock.
func (p *Poller) View() View {
	return p.ViewAt(p.opts.Now())
}

// ViewAt derives display seconds from the held snapshot at now.
func (p *Poller) ViewAt(now time.Time) View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		Now:      now,
		State:    p.state,
		States:   append([]model.UserProjectState(nil), p.snapshot...),
		Display:  make(map[uuid.UUID]int64, len(p.snapshot)),
		LastPoll: p.lastPoll,
		LastErr:  p.lastErr,
	}
	for _, s := range p.snapshot {
		v.Display[s.ProjectID] = tracker.DisplaySeconds(s.BaseSeconds, s.RunningSince, now)
		if s.IsRunning() {
			id := s.ProjectID
			v.RunningProjectID = &id
		}
	}
	return v
}

func (p *Poller) currentDay() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.day
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}
