package websocket

import (
	"encoding/json"

	"github.com/stemsi/practice-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AutosaveRequest saves answers and elapsed time without changing status.
// SubmitRequest carries the same payload and finishes the attempt.
type AutosaveRequest = model.SaveAttemptRequest

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSaved  Event = "saved"
	EventGraded Event = "graded"
	EventPong   Event = "pong"
)

type SavedResponse struct {
	Event    Event `json:"event"`
	Answers  int   `json:"answers"`
	Duration int   `json:"duration"`
}

type GradedResponse struct {
	Event  Event               `json:"event"`
	Result *model.ScoredResult `json:"result"`
}

type ErrorResponse struct {
	Event  Event             `json:"event"`
	Code   string            `json:"code"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
