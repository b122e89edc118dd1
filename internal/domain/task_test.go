package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/taskclock/internal/constants"
)

func TestTask_JSONFieldNames(t *testing.T) {
	task := Task{ID: 3, Title: "测试功能", Duration: 5, AIDuration: 7, IsTiming: true, TimeRemaining: 4}

	data, err := json.Marshal(task)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"id", "title", "completed", "duration", "ai_duration", "is_timing", "time_remaining"} {
		assert.Contains(t, raw, key)
	}
	assert.Len(t, raw, 7)
}

func TestTaskList_Find(t *testing.T) {
	list := DefaultTasks()

	found := list.Find(3)
	require.NotNil(t, found)
	assert.Equal(t, "测试功能", found.Title)

	found.Duration = 9
	assert.Equal(t, 9, list[2].Duration, "Find should point into the list")

	assert.Nil(t, list.Find(42))
}

func TestTaskList_Remove(t *testing.T) {
	list := DefaultTasks()

	out, ok := list.Remove(2)
	require.True(t, ok)
	assert.Len(t, out, 4)
	assert.Nil(t, out.Find(2))
	assert.Len(t, list, 5, "original list is left intact")

	same, ok := out.Remove(99)
	assert.False(t, ok)
	assert.Len(t, same, 4)
}

func TestTaskList_NextID(t *testing.T) {
	tests := []struct {
		name string
		list TaskList
		want int
	}{
		{"empty", TaskList{}, 1},
		{"defaults", DefaultTasks(), 6},
		{"gap", TaskList{{ID: 2}, {ID: 7}, {ID: 4}}, 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.list.NextID())
		})
	}
}

func TestTaskList_Full(t *testing.T) {
	list := make(TaskList, constants.MaxTasks-1)
	assert.False(t, list.Full())
	list = append(list, Task{})
	assert.True(t, list.Full())
}

func TestTaskList_Clone(t *testing.T) {
	list := DefaultTasks()
	clone := list.Clone()
	clone[0].Title = "changed"
	assert.Equal(t, "完成项目计划", list[0].Title)

	var nilList TaskList
	assert.NotNil(t, nilList.Clone())
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 5, 20},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 12},
		{3, 8, 38},
		{5, 8, 62},
		{7, 8, 88},
		{8, 8, 100},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CompletionRate(tc.completed, tc.total), "%d/%d", tc.completed, tc.total)
	}
}

func TestTaskList_Stats(t *testing.T) {
	s := DefaultTasks().Stats()
	assert.Equal(t, Stats{Total: 5, Completed: 1, Pending: 4, CompletionRate: 20}, s)

	assert.Equal(t, Stats{}, TaskList{}.Stats())
}

func TestDefaultTasks(t *testing.T) {
	list := DefaultTasks()
	require.Len(t, list, 5)
	for i, task := range list {
		assert.Equal(t, i+1, task.ID)
		assert.NotEmpty(t, task.Title)
		assert.False(t, task.IsTiming)
		assert.Zero(t, task.TimeRemaining)
	}
	assert.True(t, list[0].Completed)
}
