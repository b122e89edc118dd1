package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskclock/internal/domain"
	"github.com/mrz1836/taskclock/internal/errors"
	"github.com/mrz1836/taskclock/internal/store"
	"github.com/mrz1836/taskclock/internal/tracker"
)

func seedStore(t *testing.T, path string, tasks domain.TaskList) {
	t.Helper()

	fs, err := store.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Save(context.Background(), tasks))
}

func TestListCommand_JSON(t *testing.T) {
	_, wd := isolate(t)
	path := filepath.Join(wd, "tasks.json")
	seedStore(t, path, domain.TaskList{
		{ID: 1, Title: "write report", Completed: true, Duration: 30, AIDuration: 30},
		{ID: 2, Title: "review", Duration: 15, IsTiming: true, TimeRemaining: 7},
		{ID: 4, Title: "deploy"},
	})

	output, err := execute(t, "-o", "json", "list", "--store", path)
	require.NoError(t, err)

	var view tracker.View
	require.NoError(t, json.Unmarshal([]byte(output), &view))
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 1, view.Completed)
	assert.Equal(t, 2, view.Pending)
	assert.Equal(t, 33, view.CompletionRate)
	assert.Equal(t, 8, view.MaxTasks)
	require.Len(t, view.Tasks, 3)
	assert.Equal(t, 7, view.Tasks[1].TimeRemaining)
}

func TestListCommand_Table(t *testing.T) {
	_, wd := isolate(t)
	path := filepath.Join(wd, "tasks.json")
	seedStore(t, path, domain.TaskList{
		{ID: 1, Title: "编写代码", Completed: true, Duration: 25},
		{ID: 2, Title: "a very long task title that will not fit in the column", IsTiming: true, TimeRemaining: 12},
	})

	output, err := execute(t, "list", "--store", path)
	require.NoError(t, err)

	assert.Contains(t, output, "TITLE")
	assert.Contains(t, output, "编写代码")
	assert.Contains(t, output, "Done")
	assert.Contains(t, output, "Timing 12")
	assert.Contains(t, output, "25m")
	assert.Contains(t, output, "…")
	assert.Contains(t, output, "1/2 completed (50%), 1 pending, capacity 8")
}

func TestListCommand_CreatesDefaultDocument(t *testing.T) {
	_, wd := isolate(t)
	path := filepath.Join(wd, "fresh.json")

	output, err := execute(t, "-o", "json", "list", "--store", path)
	require.NoError(t, err)

	var view tracker.View
	require.NoError(t, json.Unmarshal([]byte(output), &view))
	assert.Len(t, view.Tasks, len(domain.DefaultTasks()))
	assert.FileExists(t, path)
}

func TestListCommand_CorruptDocument(t *testing.T) {
	_, wd := isolate(t)
	path := filepath.Join(wd, "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := execute(t, "list", "--store", path)
	require.ErrorIs(t, err, errors.ErrStorage)
}

func TestOutputListTable_Empty(t *testing.T) {
	var b strings.Builder
	require.NoError(t, outputListTable(&b, tracker.View{}))
	assert.Contains(t, b.String(), "No tasks.")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	// CJK runes take two cells each.
	assert.Equal(t, "编写…", truncate("编写代码", 5))
}

func TestMinutes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", minutes(0))
	assert.Equal(t, "45m", minutes(45))
}
