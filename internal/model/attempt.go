package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. FINISHED is terminal.
type AttemptStatus string

const (
	AttemptStatusDraft    AttemptStatus = "DRAFT"
	AttemptStatusFinished AttemptStatus = "FINISHED"
)

// Attempt is one learner's try at a task.
type Attempt struct {
	ID          uuid.UUID     `json:"id"`
	TaskID      uuid.UUID     `json:"task_id"`
	CreatedBy   uuid.UUID     `json:"created_by"`
	Status      AttemptStatus `json:"status"`
	Duration    int           `json:"duration"`
	TotalPoints int           `json:"total_points"`
	History     string        `json:"-"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
}

// Snapshot decodes the attempt's stored snapshot.
func (a *Attempt) Snapshot() (*AttemptSnapshot, error) {
	return DecodeSnapshot(a.History)
}

// AnswerAttempt is the learner's answer to one question of one attempt.
type AnswerAttempt struct {
	ID            uuid.UUID   `json:"id"`
	AttemptID     uuid.UUID   `json:"attempt_id"`
	QuestionID    uuid.UUID   `json:"question_id"`
	Choices       []uuid.UUID `json:"choices"`
	DataFilled    string      `json:"data_filled"`
	DataMatched   string      `json:"data_matched"`
	DragItemID    *uuid.UUID  `json:"drag_item_id,omitempty"`
	IsCorrect     *bool       `json:"is_correct,omitempty"`
	PointsAwarded int         `json:"points_awarded"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// AttemptSnapshot records exactly which version nodes an attempt was built
// from. It is stored as serialized text on the attempt and never mutated.
type AttemptSnapshot struct {
	TaskID               uuid.UUID                        `json:"taskId"`
	GroupMappingQuestion map[uuid.UUID][]SnapshotQuestion `json:"groupMappingQuestion"`
	GroupMappingDragItem map[uuid.UUID][]uuid.UUID        `json:"groupMappingDragItem"`
}

// SnapshotQuestion binds a learner-facing question id to the version node that
// was current when the attempt began.
type SnapshotQuestion struct {
	// QuestionID is the canonical id answers are keyed by: the chain's original
	// id, not the parent id, since the parent moves with every later edit.
	QuestionID uuid.UUID `json:"questionId"`
	// VersionID is the question node shown to the learner.
	VersionID     uuid.UUID   `json:"versionId"`
	ChoiceMapping []uuid.UUID `json:"choiceMapping"`
}

// Encode serializes the snapshot for storage.
func (s *AttemptSnapshot) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(b), nil
}

// QuestionIDs returns every canonical question id in the snapshot.
func (s *AttemptSnapshot) QuestionIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, qs := range s.GroupMappingQuestion {
		for _, q := range qs {
			ids = append(ids, q.QuestionID)
		}
	}
	return ids
}

// Lookup returns the snapshot entry for a canonical question id.
func (s *AttemptSnapshot) Lookup(questionID uuid.UUID) (SnapshotQuestion, bool) {
	for _, qs := range s.GroupMappingQuestion {
		for _, q := range qs {
			if q.QuestionID == questionID {
				return q, true
			}
		}
	}
	return SnapshotQuestion{}, false
}

// DecodeSnapshot parses a stored snapshot. Unknown fields are ignored.
func DecodeSnapshot(raw string) (*AttemptSnapshot, error) {
	var s AttemptSnapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if s.GroupMappingQuestion == nil {
		s.GroupMappingQuestion = map[uuid.UUID][]SnapshotQuestion{}
	}
	if s.GroupMappingDragItem == nil {
		s.GroupMappingDragItem = map[uuid.UUID][]uuid.UUID{}
	}
	return &s, nil
}

// ─── Requests ─────────────────────────────────────────────────────────

// AnswerInput is one submitted answer, keyed by canonical question id.
type AnswerInput struct {
	QuestionID  uuid.UUID   `json:"question_id" binding:"required"`
	Choices     []uuid.UUID `json:"choices" binding:"omitempty,max=20"`
	DataFilled  string      `json:"data_filled" binding:"max=2000"`
	DataMatched string      `json:"data_matched" binding:"max=2000"`
	DragItemID  *uuid.UUID  `json:"drag_item_id" binding:"omitempty"`
}

// SaveAttemptRequest is the payload for saving or submitting an attempt.
type SaveAttemptRequest struct {
	Answers  []AnswerInput `json:"answers" binding:"omitempty,dive"`
	Duration int           `json:"duration" binding:"min=0"`
}

// ListAttemptsQuery is the query string for attempt history.
type ListAttemptsQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}
