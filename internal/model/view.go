package model

import (
	"github.com/google/uuid"
)

// AttemptView is the learner-facing attempt paper. It never carries correct
// answers.
type AttemptView struct {
	AttemptID uuid.UUID     `json:"attempt_id"`
	TaskID    uuid.UUID     `json:"task_id"`
	Kind      TaskKind      `json:"kind"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	MediaURL  string        `json:"media_url,omitempty"`
	Status    AttemptStatus `json:"status"`
	Duration  int           `json:"duration"`
	Groups    []GroupView   `json:"groups"`
}

// GroupView is one question group as shown to the learner.
type GroupView struct {
	ID           uuid.UUID      `json:"id"`
	SectionOrder int            `json:"section_order"`
	SectionLabel string         `json:"section_label"`
	Instruction  string         `json:"instruction"`
	QuestionType string         `json:"question_type"`
	DragItems    []DragItemView `json:"drag_items,omitempty"`
	Questions    []QuestionView `json:"questions"`
}

// QuestionView is one question as shown to the learner. ID is the canonical
// id answers must be keyed by.
type QuestionView struct {
	ID                     uuid.UUID    `json:"id"`
	QuestionType           QuestionType `json:"question_type"`
	QuestionOrder          int          `json:"question_order"`
	Point                  int          `json:"point"`
	Content                string       `json:"content"`
	NumberOfCorrectAnswers int          `json:"number_of_correct_answers,omitempty"`
	Choices                []ChoiceView `json:"choices,omitempty"`
}

// ChoiceView is one choice as shown to the learner.
type ChoiceView struct {
	ID          uuid.UUID `json:"id"`
	Label       string    `json:"label"`
	Content     string    `json:"content"`
	ChoiceOrder int       `json:"choice_order"`
}

// DragItemView is one drag item as shown to the learner.
type DragItemView struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
}

// LoadedAttempt is an in-progress attempt with its saved answers.
type LoadedAttempt struct {
	AttemptView
	Answers []AnswerAttempt `json:"answers"`
}

// QuestionResult is the graded outcome of one question.
type QuestionResult struct {
	QuestionID               uuid.UUID    `json:"question_id"`
	QuestionType             QuestionType `json:"question_type"`
	QuestionOrder            int          `json:"question_order"`
	IsCorrect                bool         `json:"is_correct"`
	PointsAwarded            int          `json:"points_awarded"`
	Explanation              string       `json:"explanation"`
	CorrectChoiceIDs         []uuid.UUID  `json:"correct_choice_ids,omitempty"`
	CorrectAnswer            string       `json:"correct_answer,omitempty"`
	CorrectAnswerForMatching string       `json:"correct_answer_for_matching,omitempty"`
	CorrectDragItemID        *uuid.UUID   `json:"correct_drag_item_id,omitempty"`
	Answer                   *AnswerInput `json:"answer,omitempty"`
}

// ScoredResult is the graded outcome of a whole attempt.
type ScoredResult struct {
	AttemptID   uuid.UUID        `json:"attempt_id"`
	TaskID      uuid.UUID        `json:"task_id"`
	Status      AttemptStatus    `json:"status"`
	Duration    int              `json:"duration"`
	TotalPoints int              `json:"total_points"`
	Results     []QuestionResult `json:"results"`
}

// AttemptResultView is a finished attempt with its paper and revealed answers.
type AttemptResultView struct {
	ScoredResult
	Paper AttemptView `json:"paper"`
}
