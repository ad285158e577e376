package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/practice-backend/internal/version"
)

// TaskKind distinguishes reading passages from listening tasks.
type TaskKind string

const (
	TaskKindReadingPassage TaskKind = "READING_PASSAGE"
	TaskKindListeningTask  TaskKind = "LISTENING_TASK"
)

// Task is a reading passage or listening task that learners attempt.
type Task struct {
	version.Node
	Kind        TaskKind  `json:"kind"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	MediaURL    string    `json:"media_url,omitempty"`
	IsActivated bool      `json:"is_activated"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// QuestionGroup groups questions (and drag items) inside a task. Groups are
// attached to the original id of their task.
type QuestionGroup struct {
	version.Node
	TaskID       uuid.UUID `json:"task_id"`
	SectionOrder int       `json:"section_order"`
	SectionLabel string    `json:"section_label"`
	Instruction  string    `json:"instruction"`
	QuestionType string    `json:"question_type"`
}

// DragItem is a draggable answer token shared by the questions of a group.
type DragItem struct {
	version.Node
	QuestionGroupID uuid.UUID `json:"question_group_id"`
	Content         string    `json:"content"`
}
