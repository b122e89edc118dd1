// Package tracker implements the task operations behind the HTTP routes and
// the CLI: listing, adding, toggling, renaming, deleting, retiming.
//
// Every read-modify-write goes through the timer registry's coordination
// point, so request mutations never interleave with countdown ticks.
// Completion-rate notifications and duration suggestions are side effects
// that run outside that point and never fail a request.
//
// Import rules:
//   - CAN import: internal/ai, internal/board, internal/constants,
//     internal/domain, internal/errors, internal/timer
//   - MUST NOT import: internal/server, internal/cli
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskclock/internal/ai"
	"github.com/mrz1836/taskclock/internal/board"
	"github.com/mrz1836/taskclock/internal/constants"
	"github.com/mrz1836/taskclock/internal/domain"
	tcerrors "github.com/mrz1836/taskclock/internal/errors"
	"github.com/mrz1836/taskclock/internal/timer"
)

// errSkipRefresh aborts a suggestion refresh for a task that was deleted or renamed.
var errSkipRefresh = errors.New("task changed since completion")

// View is the index page payload: statistics, the tasks and the capacity.
type View struct {
	domain.Stats

	Tasks    domain.TaskList `json:"tasks"`
	MaxTasks int             `json:"max_tasks"`
}

// Service performs task operations over a timer registry.
type Service struct {
	reg       *timer.Registry
	notifier  board.Notifier
	suggester ai.Suggester
	logger    zerolog.Logger

	notifyTimeout  time.Duration
	suggestTimeout time.Duration

	// bg tracks notification and suggestion goroutines.
	bg sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the completion-rate sink.
func WithNotifier(n board.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithSuggester sets the duration suggester.
func WithSuggester(sg ai.Suggester) Option {
	return func(s *Service) {
		if sg != nil {
			s.suggester = sg
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.With().Str("component", "tracker").Logger()
	}
}

// WithNotifyTimeout bounds a single background board notification.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// WithSuggestTimeout bounds a single duration suggestion.
func WithSuggestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.suggestTimeout = d
		}
	}
}

// New creates a Service. Without options the notifier and suggester are no-ops.
func New(reg *timer.Registry, opts ...Option) *Service {
	s := &Service{
		reg:            reg,
		notifier:       board.NopNotifier{},
		suggester:      ai.NopSuggester{},
		logger:         zerolog.Nop(),
		notifyTimeout:  constants.DefaultBoardNotifyTimeout,
		suggestTimeout: constants.DefaultAITimeout * time.Duration(constants.DefaultAIMaxRetries),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the current tasks and statistics.
func (s *Service) List(ctx context.Context) (View, error) {
	tasks, err := s.reg.Snapshot(ctx)
	if err != nil {
		return newView(domain.TaskList{}), tcerrors.Wrap(err, "failed to list tasks")
	}
	return newView(tasks), nil
}

// Index is List for the index page: a storage failure degrades to an empty
// list instead of an error, and the completion rate is sent to the board.
func (s *Service) Index(ctx context.Context) View {
	view, err := s.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("task list unavailable, showing empty list")
		return view
	}
	s.logger.Info().
		Int("total_tasks", view.Total).
		Int("completed_tasks", view.Completed).
		Int("pending_tasks", view.Pending).
		Int("completion_rate", view.CompletionRate).
		Msg("task statistics")
	s.notify(view.CompletionRate)
	return view
}

// Add creates a task. When duration is nil the task starts without a target
// unless the suggester proposes one, in which case the suggestion becomes
// both duration and time_remaining.
//
// Suggestions are whole minutes, the same unit as duration. time_remaining
// takes the minute count as its tick count without scaling, exactly as a
// duration update resets it (see domain.Task).
func (s *Service) Add(ctx context.Context, title string, duration *int) (domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Task{}, fmt.Errorf("task title: %w", tcerrors.ErrEmptyValue)
	}
	if duration != nil && *duration < 0 {
		return domain.Task{}, fmt.Errorf("duration %d: %w", *duration, tcerrors.ErrValueOutOfRange)
	}

	// Fail fast before spending a suggestion on a full list.
	current, err := s.reg.Snapshot(ctx)
	if err != nil {
		return domain.Task{}, tcerrors.Wrap(err, "failed to add task")
	}
	if current.Full() {
		return domain.Task{}, capacityErr()
	}

	suggested := s.suggest(ctx, title)

	var created domain.Task
	tasks, err := s.reg.Update(ctx, func(tx *timer.Tx) error {
		if tx.Tasks.Full() {
			return capacityErr()
		}
		created = domain.Task{
			ID:         tx.Tasks.NextID(),
			Title:      title,
			AIDuration: suggested,
		}
		created.Duration = suggested
		if duration != nil {
			created.Duration = *duration
		}
		created.TimeRemaining = created.Duration
		tx.Tasks = append(tx.Tasks, created)
		return nil
	})
	if err != nil {
		return domain.Task{}, tcerrors.Wrap(err, "failed to add task")
	}

	s.logger.Info().Int("task_id", created.ID).Str("title", created.Title).Int("ai_duration", suggested).Msg("task added")
	s.notify(tasks.Stats().CompletionRate)
	return created, nil
}

// Toggle flips the completion flag. A task that becomes completed gets its
// suggested duration refreshed in the background.
func (s *Service) Toggle(ctx context.Context, id int) (domain.Stats, error) {
	var toggled domain.Task
	tasks, err := s.reg.Update(ctx, func(tx *timer.Tx) error {
		task := tx.Tasks.Find(id)
		if task == nil {
			return notFound(id)
		}
		task.Completed = !task.Completed
		toggled = *task
		return nil
	})
	if err != nil {
		return domain.Stats{}, tcerrors.Wrapf(err, "failed to toggle task %d", id)
	}

	stats := tasks.Stats()
	s.logger.Info().
		Int("task_id", id).
		Bool("completed", toggled.Completed).
		Int("completion_rate", stats.CompletionRate).
		Msg("task toggled")

	s.notify(stats.CompletionRate)
	if toggled.Completed {
		s.refreshSuggestion(toggled.ID, toggled.Title)
	}
	return stats, nil
}

// Rename replaces the title of a task.
func (s *Service) Rename(ctx context.Context, id int, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("task title: %w", tcerrors.ErrEmptyValue)
	}

	_, err := s.reg.Update(ctx, func(tx *timer.Tx) error {
		task := tx.Tasks.Find(id)
		if task == nil {
			return notFound(id)
		}
		task.Title = title
		return nil
	})
	if err != nil {
		return tcerrors.Wrapf(err, "failed to rename task %d", id)
	}

	s.logger.Info().Int("task_id", id).Str("title", title).Msg("task renamed")
	return nil
}

// Delete removes a task and, in the same critical section, evicts its
// countdown so no later tick writes to the store on its behalf.
func (s *Service) Delete(ctx context.Context, id int) (domain.Stats, error) {
	var removed domain.Task
	tasks, err := s.reg.Update(ctx, func(tx *timer.Tx) error {
		task := tx.Tasks.Find(id)
		if task == nil {
			return notFound(id)
		}
		removed = *task
		tx.Tasks, _ = tx.Tasks.Remove(id)
		tx.Evict(id)
		return nil
	})
	if err != nil {
		return domain.Stats{}, tcerrors.Wrapf(err, "failed to delete task %d", id)
	}

	stats := tasks.Stats()
	s.logger.Info().
		Int("task_id", id).
		Str("title", removed.Title).
		Bool("was_timing", removed.IsTiming).
		Int("completion_rate", stats.CompletionRate).
		Msg("task deleted")
	s.notify(stats.CompletionRate)
	return stats, nil
}

// UpdateDuration sets the target duration. While no countdown is running,
// time_remaining is reset to the new duration.
func (s *Service) UpdateDuration(ctx context.Context, id, duration int) error {
	if duration < 0 {
		return fmt.Errorf("duration %d: %w", duration, tcerrors.ErrValueOutOfRange)
	}

	_, err := s.reg.Update(ctx, func(tx *timer.Tx) error {
		task := tx.Tasks.Find(id)
		if task == nil {
			return notFound(id)
		}
		task.Duration = duration
		if !task.IsTiming {
			task.TimeRemaining = duration
		}
		return nil
	})
	if err != nil {
		return tcerrors.Wrapf(err, "failed to update duration of task %d", id)
	}

	s.logger.Info().Int("task_id", id).Int("duration", duration).Msg("task duration updated")
	return nil
}

// UpdateTiming starts or stops the countdown of a task. When remaining is
// given it replaces time_remaining. It reports whether a new countdown was
// started; starting an already running countdown reports false but still
// applies remaining and keeps the task timing.
func (s *Service) UpdateTiming(ctx context.Context, id int, timing bool, remaining *int) (bool, error) {
	if remaining != nil && *remaining < 0 {
		return false, fmt.Errorf("time remaining %d: %w", *remaining, tcerrors.ErrValueOutOfRange)
	}

	if timing {
		value := timer.KeepRemaining
		if remaining != nil {
			value = *remaining
		}
		started, err := s.reg.Start(ctx, id, value)
		if err != nil {
			return false, tcerrors.Wrapf(err, "failed to start countdown of task %d", id)
		}
		return started, nil
	}

	if remaining == nil {
		if err := s.reg.Stop(ctx, id); err != nil {
			return false, tcerrors.Wrapf(err, "failed to stop countdown of task %d", id)
		}
		return false, nil
	}

	_, err := s.reg.Update(ctx, func(tx *timer.Tx) error {
		task := tx.Tasks.Find(id)
		if task == nil {
			return notFound(id)
		}
		task.IsTiming = false
		task.TimeRemaining = *remaining
		return nil
	})
	if err != nil {
		return false, tcerrors.Wrapf(err, "failed to stop countdown of task %d", id)
	}
	s.logger.Info().Int("task_id", id).Int("time_remaining", *remaining).Msg("countdown stop requested")
	return false, nil
}

// Running returns the number of active countdowns.
func (s *Service) Running() int {
	return s.reg.Len()
}

// Wait blocks until background notifications and suggestions have finished.
func (s *Service) Wait() {
	s.bg.Wait()
}

// notify sends the completion rate to the board in the background.
func (s *Service) notify(rate int) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyCompletion(ctx, rate); err != nil {
			s.logger.Warn().Err(err).Int("completion_rate", rate).Msg("completion rate not delivered")
		}
	}()
}

// suggest returns the suggested duration for title, or 0 on any failure.
func (s *Service) suggest(ctx context.Context, title string) int {
	ctx, cancel := context.WithTimeout(ctx, s.suggestTimeout)
	defer cancel()

	minutes, err := s.suggester.SuggestDuration(ctx, title)
	if err != nil {
		s.logger.Warn().Err(err).Str("title", title).Msg("duration suggestion unavailable")
		return 0
	}
	return minutes
}

// refreshSuggestion re-asks for the duration of a completed task and stores
// it if the task still exists under the same title.
func (s *Service) refreshSuggestion(id int, title string) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		ctx := context.Background()
		minutes := s.suggest(ctx, title)
		if minutes <= 0 {
			return
		}

		_, err := s.reg.Update(ctx, func(tx *timer.Tx) error {
			task := tx.Tasks.Find(id)
			if task == nil || task.Title != title {
				return errSkipRefresh
			}
			task.AIDuration = minutes
			return nil
		})
		if errors.Is(err, errSkipRefresh) {
			return
		}
		if errors.Is(err, tcerrors.ErrRegistryClosed) {
			s.logger.Debug().Int("task_id", id).Msg("suggested duration dropped after shutdown")
			return
		}
		if err != nil {
			s.logger.Warn().Err(err).Int("task_id", id).Msg("suggested duration not saved")
			return
		}
		s.logger.Debug().Int("task_id", id).Int("ai_duration", minutes).Msg("suggested duration refreshed")
	}()
}

func newView(tasks domain.TaskList) View {
	if tasks == nil {
		tasks = domain.TaskList{}
	}
	return View{Stats: tasks.Stats(), Tasks: tasks, MaxTasks: constants.MaxTasks}
}

func notFound(id int) error {
	return fmt.Errorf("task %d: %w", id, tcerrors.ErrTaskNotFound)
}

func capacityErr() error {
	return fmt.Errorf("limit is %d tasks: %w", constants.MaxTasks, tcerrors.ErrCapacityExceeded)
}
