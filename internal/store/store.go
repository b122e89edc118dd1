// Package store provides the task persistence layer for taskclock.
// The whole task collection lives in one JSON document that is loaded fresh
// and rewritten in full on every mutation, with atomic writes and file
// locking for data integrity.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/taskclock/internal/constants"
	"github.com/mrz1836/taskclock/internal/domain"
	tcerrors "github.com/mrz1836/taskclock/internal/errors"
	"github.com/mrz1836/taskclock/internal/flock"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Store defines the whole-collection persistence contract.
type Store interface {
	// Load returns the persisted collection. A missing document is
	// initialized with domain.DefaultTasks. An unreadable or malformed
	// document yields an empty list together with an error wrapping
	// errors.ErrStorage.
	Load(ctx context.Context) (domain.TaskList, error)

	// Save atomically replaces the persisted collection.
	Save(ctx context.Context, tasks domain.TaskList) error
}

// FileStore implements Store on the local filesystem.
type FileStore struct {
	path        string
	lockTimeout time.Duration
	logger      zerolog.Logger
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLockTimeout sets how long Load and Save wait for the file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *FileStore) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithLogger sets the logger used for migration and recovery messages.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *FileStore) {
		s.logger = logger.With().Str("component", "store").Logger()
	}
}

// NewFileStore creates a FileStore for the document at path.
// If path is empty, ~/.taskclock/tasks.json is used (or $TASKCLOCK_HOME/tasks.json).
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if path == "" {
		home, err := DefaultHome()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, constants.TasksFileName)
	}

	s := &FileStore{
		path:        path,
		lockTimeout: constants.DefaultLockTimeout,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultHome returns $TASKCLOCK_HOME, or ~/.taskclock when it is unset.
func DefaultHome() (string, error) {
	if home := os.Getenv(constants.EnvHome); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, constants.AppHome), nil
}

// Path returns the location of the task document.
func (s *FileStore) Path() string {
	return s.path
}

// storedTask mirrors domain.Task but keeps ai_duration optional so
// documents written before the field existed can be detected.
type storedTask struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Completed     bool   `json:"completed"`
	Duration      int    `json:"duration"`
	AIDuration    *int   `json:"ai_duration"`
	IsTiming      bool   `json:"is_timing"`
	TimeRemaining int    `json:"time_remaining"`
}

// Load reads the task document.
func (s *FileStore) Load(ctx context.Context) (domain.TaskList, error) {
	if err := ctx.Err(); err != nil {
		return domain.TaskList{}, err
	}

	lock, err := s.lock(ctx)
	if err != nil {
		return domain.TaskList{}, storageErr("failed to load tasks", err)
	}
	defer func() { _ = lock.Release() }()

	data, err := os.ReadFile(s.path) //#nosec G304 -- path comes from configuration
	if os.IsNotExist(err) {
		defaults := domain.DefaultTasks()
		if err := s.write(defaults); err != nil {
			return domain.TaskList{}, storageErr("failed to initialize tasks", err)
		}
		s.logger.Info().Str("path", s.path).Int("count", len(defaults)).Msg("created default task file")
		return defaults, nil
	}
	if err != nil {
		return domain.TaskList{}, storageErr("failed to read tasks", err)
	}

	var records []storedTask
	if err := json.Unmarshal(data, &records); err != nil {
		return domain.TaskList{}, storageErr("failed to parse tasks: corrupted task file", err)
	}

	tasks, migrated := fromRecords(records)
	if migrated {
		if err := s.write(tasks); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist ai_duration backfill")
		} else {
			s.logger.Info().Int("count", len(tasks)).Msg("backfilled ai_duration")
		}
	}

	return tasks, nil
}

// Save atomically replaces the task document with tasks.
func (s *FileStore) Save(ctx context.Context, tasks domain.TaskList) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock, err := s.lock(ctx)
	if err != nil {
		return storageErr("failed to save tasks", err)
	}
	defer func() { _ = lock.Release() }()

	if err := s.write(tasks); err != nil {
		return storageErr("failed to save tasks", err)
	}
	return nil
}

// fromRecords converts decoded records, reporting whether any record
// lacked ai_duration.
func fromRecords(records []storedTask) (domain.TaskList, bool) {
	tasks := make(domain.TaskList, 0, len(records))
	migrated := false
	for _, r := range records {
		aiDuration := 0
		if r.AIDuration == nil {
			migrated = true
		} else {
			aiDuration = *r.AIDuration
		}
		tasks = append(tasks, domain.Task{
			ID:            r.ID,
			Title:         r.Title,
			Completed:     r.Completed,
			Duration:      r.Duration,
			AIDuration:    aiDuration,
			IsTiming:      r.IsTiming,
			TimeRemaining: r.TimeRemaining,
		})
	}
	return tasks, migrated
}

// write encodes tasks and atomically replaces the document. The lock must be held.
func (s *FileStore) write(tasks domain.TaskList) error {
	if tasks == nil {
		tasks = domain.TaskList{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}

	return atomicWrite(s.path, buf.Bytes())
}

// lock ensures the parent directory exists and takes the document's file lock.
func (s *FileStore) lock(ctx context.Context) (*flock.Lock, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create task directory: %w", err)
	}
	return flock.Acquire(ctx, s.path+constants.LockSuffix, s.lockTimeout)
}

// storageErr wraps err so that it matches both errors.ErrStorage and err's own chain.
func storageErr(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, tcerrors.ErrStorage, err)
}

// atomicWrite writes data to a file atomically using write-then-rename.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + constants.TempSuffix
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	// Data must reach disk before the rename makes it visible.
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
