package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/middleware"
	"github.com/stemsi/practice-backend/internal/model"
	"github.com/stemsi/practice-backend/internal/response"
	"github.com/stemsi/practice-backend/internal/validator"
)

// AttemptService is the attempt lifecycle consumed by the learner endpoints.
type AttemptService interface {
	CreateAttempt(ctx context.Context, taskID, requesterID uuid.UUID) (*model.AttemptView, error)
	SaveAttempt(ctx context.Context, attemptID, requesterID uuid.UUID, req model.SaveAttemptRequest) error
	SubmitAttempt(ctx context.Context, attemptID, requesterID uuid.UUID, req model.SaveAttemptRequest) (*model.ScoredResult, error)
	LoadAttempt(ctx context.Context, attemptID, requesterID uuid.UUID) (*model.LoadedAttempt, error)
	ViewResult(ctx context.Context, attemptID, requesterID uuid.UUID) (*model.AttemptResultView, error)
	ListAttempts(ctx context.Context, requesterID uuid.UUID, page, perPage int) ([]model.Attempt, *response.Pagination, error)
}

// AttemptHandler handles learner-facing attempt endpoints.
type AttemptHandler struct {
	attempts AttemptService
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts AttemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// CreateAttempt godoc
// POST /api/v1/learner/tasks/:task_id/attempts
// Starts a DRAFT attempt bound to the task's current content.
func (h *AttemptHandler) CreateAttempt(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	taskID, ok := parseID(c, "task_id")
	if !ok {
		return
	}

	view, err := h.attempts.CreateAttempt(c.Request.Context(), taskID, id.UserID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, view)
}

// ListAttempts godoc
// GET /api/v1/learner/attempts?page=1&per_page=10
// Returns the caller's attempt history, newest first.
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q model.ListAttemptsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempts, pagination, err := h.attempts.ListAttempts(c.Request.Context(), id.UserID, q.Page, q.PerPage)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": attempts}, pagination)
}

// LoadAttempt godoc
// GET /api/v1/learner/attempts/:attempt_id
// Resumes a DRAFT attempt with its saved answers.
func (h *AttemptHandler) LoadAttempt(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	loaded, err := h.attempts.LoadAttempt(c.Request.Context(), attemptID, id.UserID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, loaded)
}

// SaveAttempt godoc
// PUT /api/v1/learner/attempts/:attempt_id
// Upserts answers and elapsed time on a DRAFT attempt.
func (h *AttemptHandler) SaveAttempt(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SaveAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attempts.SaveAttempt(c.Request.Context(), attemptID, id.UserID, req); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": len(req.Answers), "duration": req.Duration})
}

// SubmitAttempt godoc
// POST /api/v1/learner/attempts/:attempt_id/submit
// Applies final answers, scores and finishes the attempt.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SaveAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attempts.SubmitAttempt(c.Request.Context(), attemptID, id.UserID, req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ViewResult godoc
// GET /api/v1/learner/attempts/:attempt_id/result
// Reveals correct answers of a FINISHED attempt.
func (h *AttemptHandler) ViewResult(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	result, err := h.attempts.ViewResult(c.Request.Context(), attemptID, id.UserID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// parseID reads a UUID path parameter, writing INVALID_ID on failure.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
