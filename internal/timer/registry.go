// Package timer owns the per-task countdowns of taskclock.
//
// A Registry maps task ids to running countdown goroutines. Every countdown
// tick, and every request-driven read-modify-write of the task store, runs
// inside one mutex (the coordination point) covering
// "reload collection, mutate, persist, update registry membership", so two
// ticks or a tick and a request never interleave.
//
// Cancellation is cooperative: Stop only clears the task's is_timing flag and
// the countdown retires itself on its next tick. Evict is the one path that
// removes a registry entry directly, for task deletion.
//
// Import rules:
//   - CAN import: internal/domain, internal/errors, internal/store, internal/constants
//   - MUST NOT import: internal/tracker, internal/server, internal/cli
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskclock/internal/constants"
	"github.com/mrz1836/taskclock/internal/domain"
	tcerrors "github.com/mrz1836/taskclock/internal/errors"
	"github.com/mrz1836/taskclock/internal/store"
)

// KeepRemaining passed to Start resumes from the persisted time_remaining.
const KeepRemaining = -1

// countdown is the registry's handle on one running goroutine. Identity
// matters: a goroutine whose handle is no longer the entry for its id has
// been evicted or superseded and must exit without touching the store.
type countdown struct {
	id      int
	started time.Time
}

// Registry is the process-wide table of active countdowns, keyed by task id.
// Construct one with New and share it; the zero value is not usable.
type Registry struct {
	store    store.Store
	interval time.Duration
	logger   zerolog.Logger

	// mu is the coordination point. It guards entries, closed and every
	// load-mutate-save cycle that goes through the registry.
	mu      sync.Mutex
	entries map[int]*countdown
	closed  bool

	ctx    context.Context //nolint:containedctx // registry owns countdown lifetimes
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithTickInterval sets the pause between ticks (default one second).
func WithTickInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger.With().Str("component", "timer").Logger()
	}
}

// New creates a Registry over s.
func New(s store.Store, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		store:    s,
		interval: constants.DefaultTickInterval,
		logger:   zerolog.Nop(),
		entries:  make(map[int]*countdown),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start marks the task as timing and spawns its countdown.
//
// A negative remaining (KeepRemaining) keeps the persisted time_remaining;
// otherwise time_remaining is set to remaining.
//
// When a countdown for id is already registered no second goroutine is
// spawned and Start returns false with a nil error. The task is still
// marked timing and remaining is still applied, so a Stop followed by a
// Start inside one tick interval resumes the existing countdown instead of
// letting it retire.
func (r *Registry) Start(ctx context.Context, id, remaining int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, tcerrors.ErrRegistryClosed
	}

	tasks, err := r.store.Load(ctx)
	if err != nil {
		return false, tcerrors.Wrapf(err, "failed to start timer for task %d", id)
	}

	task := tasks.Find(id)
	if task == nil {
		return false, fmt.Errorf("failed to start timer for task %d: %w", id, tcerrors.ErrTaskNotFound)
	}

	task.IsTiming = true
	if remaining >= 0 {
		task.TimeRemaining = remaining
	}
	if task.TimeRemaining < 0 {
		task.TimeRemaining = 0
	}

	if err := r.store.Save(ctx, tasks); err != nil {
		return false, tcerrors.Wrapf(err, "failed to start timer for task %d", id)
	}

	if c, ok := r.entries[id]; ok {
		r.logger.Debug().
			Int("task_id", id).
			Time("started", c.started).
			Int("time_remaining", task.TimeRemaining).
			Err(tcerrors.ErrTimerRunning).
			Msg("countdown already running, state refreshed")
		return false, nil
	}

	r.spawnLocked(id)
	r.logger.Info().Int("task_id", id).Int("time_remaining", task.TimeRemaining).Msg("countdown started")
	return true, nil
}

// Stop clears the task's is_timing flag. The countdown itself is not
// interrupted; it sees the flag on its next tick and retires. Stopping a
// task that is not timing is a no-op.
func (r *Registry) Stop(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks, err := r.store.Load(ctx)
	if err != nil {
		return tcerrors.Wrapf(err, "failed to stop timer for task %d", id)
	}

	task := tasks.Find(id)
	if task == nil {
		return fmt.Errorf("failed to stop timer for task %d: %w", id, tcerrors.ErrTaskNotFound)
	}
	if !task.IsTiming {
		return nil
	}

	task.IsTiming = false
	if err := r.store.Save(ctx, tasks); err != nil {
		return tcerrors.Wrapf(err, "failed to stop timer for task %d", id)
	}

	r.logger.Info().Int("task_id", id).Int("time_remaining", task.TimeRemaining).Msg("countdown stop requested")
	return nil
}

// Evict removes the registry entry for id immediately and, if the task
// still exists, clears its is_timing flag. The evicted countdown exits on
// its next tick without writing.
func (r *Registry) Evict(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictLocked(id)

	tasks, err := r.store.Load(ctx)
	if err != nil {
		return tcerrors.Wrapf(err, "failed to evict timer for task %d", id)
	}

	task := tasks.Find(id)
	if task == nil || !task.IsTiming {
		return nil
	}

	task.IsTiming = false
	if err := r.store.Save(ctx, tasks); err != nil {
		return tcerrors.Wrapf(err, "failed to evict timer for task %d", id)
	}
	return nil
}

// Tx is a fresh snapshot of the task collection handed to an Update
// function while the coordination point is held.
type Tx struct {
	// Tasks is the collection that will be saved if the function succeeds.
	// It may be modified in place or replaced.
	Tasks domain.TaskList

	evict []int
}

// Evict schedules removal of the registry entry for id. It takes effect
// only if the Update that owns tx saves successfully.
func (tx *Tx) Evict(id int) {
	tx.evict = append(tx.evict, id)
}

// Update runs fn on a freshly loaded collection inside the coordination
// point and persists the result. If fn returns an error nothing is saved.
// It returns a copy of the saved collection, or ErrRegistryClosed once
// Shutdown has run.
func (r *Registry) Update(ctx context.Context, fn func(tx *Tx) error) (domain.TaskList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, tcerrors.ErrRegistryClosed
	}

	tasks, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	tx := &Tx{Tasks: tasks}
	if err := fn(tx); err != nil {
		return nil, err
	}

	if err := r.store.Save(ctx, tx.Tasks); err != nil {
		return nil, err
	}

	for _, id := range tx.evict {
		r.evictLocked(id)
	}

	return tx.Tasks.Clone(), nil
}

// Snapshot loads the collection inside the coordination point.
// On a storage error it returns the (empty) list together with the error.
func (r *Registry) Snapshot(ctx context.Context) (domain.TaskList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Load(ctx)
}

// Reconcile starts a countdown for every persisted task still marked
// is_timing without a registry entry, as left behind by a previous process.
// It returns the number of countdowns resumed.
func (r *Registry) Reconcile(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, tcerrors.ErrRegistryClosed
	}

	tasks, err := r.store.Load(ctx)
	if err != nil {
		return 0, tcerrors.Wrap(err, "failed to reconcile timers")
	}

	resumed := 0
	for _, task := range tasks {
		if !task.IsTiming {
			continue
		}
		if _, ok := r.entries[task.ID]; ok {
			continue
		}
		r.spawnLocked(task.ID)
		resumed++
		r.logger.Info().Int("task_id", task.ID).Int("time_remaining", task.TimeRemaining).Msg("countdown resumed")
	}
	return resumed, nil
}

// Running reports whether a countdown is registered for id.
func (r *Registry) Running(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of registered countdowns.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Shutdown stops all countdowns and waits for their goroutines to return,
// or for ctx to be done. Countdowns write nothing once shutdown begins;
// persisted state is whatever the last completed tick saved.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.cancel()
	r.entries = make(map[int]*countdown)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// spawnLocked registers and launches a countdown for id. mu must be held.
func (r *Registry) spawnLocked(id int) {
	c := &countdown{id: id, started: time.Now()}
	r.entries[id] = c
	r.wg.Add(1)
	go r.run(c)
}

// evictLocked drops the entry for id. mu must be held.
func (r *Registry) evictLocked(id int) {
	if _, ok := r.entries[id]; ok {
		delete(r.entries, id)
		r.logger.Debug().Int("task_id", id).Msg("countdown evicted")
	}
}

// run is the countdown loop. The first tick happens immediately; the
// sleep between ticks is taken outside the coordination point.
func (r *Registry) run(c *countdown) {
	defer r.wg.Done()

	for {
		if done := r.tick(c); done {
			return
		}

		t := time.NewTimer(r.interval)
		select {
		case <-r.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// tick performs one reload-check-mutate-persist cycle and reports whether
// the countdown has finished.
func (r *Registry) tick(c *countdown) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return true
	}

	if r.entries[c.id] != c {
		r.logger.Debug().Int("task_id", c.id).Msg("countdown no longer registered, exiting")
		return true
	}

	tasks, err := r.store.Load(r.ctx)
	if err != nil {
		r.failLocked(c, err)
		return true
	}

	task := tasks.Find(c.id)
	if task == nil || !task.IsTiming {
		delete(r.entries, c.id)
		r.logger.Info().Int("task_id", c.id).Bool("deleted", task == nil).Msg("countdown stopped")
		return true
	}

	if task.TimeRemaining > 0 {
		task.TimeRemaining--
		if err := r.store.Save(r.ctx, tasks); err != nil {
			r.failLocked(c, err)
			return true
		}
		return false
	}

	task.TimeRemaining = 0
	task.IsTiming = false
	if err := r.store.Save(r.ctx, tasks); err != nil {
		r.failLocked(c, err)
		return true
	}
	delete(r.entries, c.id)
	r.logger.Info().
		Int("task_id", c.id).
		Dur("elapsed", time.Since(c.started)).
		Msg("countdown finished")
	return true
}

// failLocked retires c after a tick failure. The failure stays local to
// this countdown. mu must be held.
func (r *Registry) failLocked(c *countdown, err error) {
	if r.entries[c.id] == c {
		delete(r.entries, c.id)
	}
	if r.ctx.Err() != nil {
		return
	}
	r.logger.Warn().
		Err(fmt.Errorf("%w: %w", tcerrors.ErrTickFailed, err)).
		Int("task_id", c.id).
		Msg("countdown aborted")
}
