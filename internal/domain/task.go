// Package domain provides shared domain types for taskclock.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case to match the persisted task document.
package domain

import (
	"math"

	"github.com/mrz1836/taskclock/internal/constants"
)

// Task is one to-do item with completion state, an optional target
// duration, and an optional live countdown.
//
// Example JSON representation:
//
//	{
//	    "id": 3,
//	    "title": "测试功能",
//	    "completed": false,
//	    "duration": 25,
//	    "ai_duration": 30,
//	    "is_timing": true,
//	    "time_remaining": 12
//	}
type Task struct {
	// ID is unique and assigned as max(existing)+1.
	ID int `json:"id"`

	// Title is the non-empty display text.
	Title string `json:"title"`

	// Completed is true once the user ticks the task off.
	Completed bool `json:"completed"`

	// Duration is the target duration in minutes, chosen by the user or
	// taken from the suggestion.
	Duration int `json:"duration"`

	// AIDuration is the model-suggested duration in minutes; 0 means no
	// suggestion.
	AIDuration int `json:"ai_duration"`

	// IsTiming is true while a countdown is running for this task.
	IsTiming bool `json:"is_timing"`

	// TimeRemaining is the number of ticks left in the current countdown.
	// Resetting it from Duration copies the minute count unscaled, so a
	// fresh countdown runs Duration ticks; clients own the display scale.
	TimeRemaining int `json:"time_remaining"`
}

// TaskList is the ordered task collection as persisted.
type TaskList []Task

// Find returns a pointer into the list for the task with id, or nil.
// The pointer is only valid until the list is modified.
func (l TaskList) Find(id int) *Task {
	for i := range l {
		if l[i].ID == id {
			return &l[i]
		}
	}
	return nil
}

// Remove returns the list without the task with id and whether it was present.
func (l TaskList) Remove(id int) (TaskList, bool) {
	for i := range l {
		if l[i].ID == id {
			out := make(TaskList, 0, len(l)-1)
			out = append(out, l[:i]...)
			return append(out, l[i+1:]...), true
		}
	}
	return l, false
}

// NextID returns max(existing ids)+1, or 1 for an empty list.
func (l TaskList) NextID() int {
	maxID := 0
	for _, t := range l {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	return maxID + 1
}

// Full reports whether the list has reached constants.MaxTasks.
func (l TaskList) Full() bool {
	return len(l) >= constants.MaxTasks
}

// Clone returns a copy that shares no backing array with l.
func (l TaskList) Clone() TaskList {
	if l == nil {
		return TaskList{}
	}
	out := make(TaskList, len(l))
	copy(out, l)
	return out
}

// Stats summarizes completion across the list.
type Stats struct {
	Total          int `json:"total_tasks"`
	Completed      int `json:"completed_tasks"`
	Pending        int `json:"pending_tasks"`
	CompletionRate int `json:"completion_rate"`
}

// Stats computes the completion summary for the list.
func (l TaskList) Stats() Stats {
	s := Stats{Total: len(l)}
	for _, t := range l {
		if t.Completed {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	s.CompletionRate = CompletionRate(s.Completed, s.Total)
	return s
}

// CompletionRate returns completed/total as a whole percentage, rounding
// halves to even (1 of 8 is 12, 3 of 8 is 38). An empty list is 0.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(completed) / float64(total) * 100))
}

// DefaultTasks returns the sample collection written when no task file exists.
func DefaultTasks() TaskList {
	return TaskList{
		{ID: 1, Title: "完成项目计划", Completed: true},
		{ID: 2, Title: "编写代码"},
		{ID: 3, Title: "测试功能"},
		{ID: 4, Title: "部署应用"},
		{ID: 5, Title: "撰写文档"},
	}
}
