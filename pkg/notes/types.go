package notes

import (
	"fmt"
	"strings"
	"time"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Subtask is a single step under a task.
type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Task is an action item extracted from a transcript.
type Task struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     string    `json:"due_date,omitempty"` // YYYY-MM-DD, empty means no due date
	Priority    string    `json:"priority,omitempty"`
	Subtasks    []Subtask `json:"subtasks,omitempty"`
}

// Event is a calendar event extracted from a transcript.
type Event struct {
	Title        string `json:"title"`
	Date         string `json:"date"` // YYYY-MM-DD
	Time         string `json:"time,omitempty"` // HH:MM, 24h
	Description  string `json:"description,omitempty"`
	CalendarLink string `json:"calendar_link,omitempty"` // filled after link generation, not part of the extraction contract
}

// Note is a piece of general information.
type Note struct {
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
}

// Extraction is the complete structured state of a session: the merge contract
// is whole-state replacement, so each extraction carries everything, not a diff.
type Extraction struct {
	Tasks  []Task  `json:"tasks"`
	Events []Event `json:"events"`
	Notes  []Note  `json:"notes"`
}

// Empty reports whether the extraction holds no items at all.
func (e *Extraction) Empty() bool {
	return e == nil || (len(e.Tasks) == 0 && len(e.Events) == 0 && len(e.Notes) == 0)
}

// Clone returns a deep copy so callers can hand state to a merge without
// aliasing the session's slices.
func (e *Extraction) Clone() Extraction {
	if e == nil {
		return Extraction{}
	}
	out := Extraction{
		Tasks:  make([]Task, len(e.Tasks)),
		Events: make([]Event, len(e.Events)),
		Notes:  make([]Note, len(e.Notes)),
	}
	copy(out.Events, e.Events)
	copy(out.Notes, e.Notes)
	for i, t := range e.Tasks {
		c := t
		if len(t.Subtasks) > 0 {
			c.Subtasks = make([]Subtask, len(t.Subtasks))
			copy(c.Subtasks, t.Subtasks)
		}
		out.Tasks[i] = c
	}
	return out
}

// Normalize fills defaults the extraction contract leaves optional: task
// priority defaults to medium.
func (e *Extraction) Normalize() {
	for i := range e.Tasks {
		if e.Tasks[i].Priority == "" {
			e.Tasks[i].Priority = PriorityMedium
		}
	}
}

// Validate checks required fields and value shapes. A generative response that
// fails validation is rejected rather than merged.
func (e *Extraction) Validate() error {
	for i, t := range e.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("task %d: missing title", i)
		}
		switch t.Priority {
		case "", PriorityLow, PriorityMedium, PriorityHigh:
		default:
			return fmt.Errorf("task %d: invalid priority %q", i, t.Priority)
		}
		if t.DueDate != "" {
			if _, err := time.Parse("2006-01-02", t.DueDate); err != nil {
				return fmt.Errorf("task %d: invalid due_date %q", i, t.DueDate)
			}
		}
		for j, s := range t.Subtasks {
			if strings.TrimSpace(s.Title) == "" {
				return fmt.Errorf("task %d: subtask %d: missing title", i, j)
			}
		}
	}
	for i, ev := range e.Events {
		if strings.TrimSpace(ev.Title) == "" {
			return fmt.Errorf("event %d: missing title", i)
		}
		if _, err := time.Parse("2006-01-02", ev.Date); err != nil {
			return fmt.Errorf("event %d: invalid date %q", i, ev.Date)
		}
		if ev.Time != "" {
			if _, err := time.Parse("15:04", ev.Time); err != nil {
				return fmt.Errorf("event %d: invalid time %q", i, ev.Time)
			}
		}
	}
	for i, n := range e.Notes {
		if strings.TrimSpace(n.Content) == "" {
			return fmt.Errorf("note %d: missing content", i)
		}
	}
	return nil
}
