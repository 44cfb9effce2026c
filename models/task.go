package models

import "time"

// Task — задача внутри соревнования.
type Task struct {
	ID          int       `json:"id" db:"id"`
	CtfID       int       `json:"ctf_id" db:"ctf_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Flag        string    `json:"flag" db:"flag"`
	Files       string    `json:"files" db:"files"`
	PadURL      string    `json:"pad_url" db:"pad_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// Теги задачи (заполняются отдельным запросом)
	Tags []string `json:"tags,omitempty" db:"-"`
}

// Solved reports whether a flag has been recorded for the task.
func (t Task) Solved() bool {
	return t.Flag != ""
}

// TaskPatch describes a partial task update. Nil fields are untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Flag        *string `json:"flag,omitempty"`
	Files       *string `json:"files,omitempty"`
}

// WorkOn — отметка "работаю над задачей".
type WorkOn struct {
	TaskID    int       `json:"task_id" db:"task_id"`
	ProfileID int       `json:"profile_id" db:"profile_id"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
