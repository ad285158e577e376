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

// ContentService appends versions to content chains.
type ContentService interface {
	EditQuestion(ctx context.Context, actorID, questionID uuid.UUID, req model.EditQuestionRequest) (*model.Question, error)
	EditChoice(ctx context.Context, actorID, choiceID uuid.UUID, req model.EditChoiceRequest) (*model.Choice, error)
	RetractQuestion(ctx context.Context, actorID, questionID uuid.UUID) error
	RetractChoice(ctx context.Context, actorID, choiceID uuid.UUID) error
}

// ContentHandler handles author edits to questions and choices.
type ContentHandler struct {
	content ContentService
	log     zerolog.Logger
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(content ContentService, log zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		content: content,
		log:     log.With().Str("component", "content_handler").Logger(),
	}
}

// EditQuestion godoc
// PUT /api/v1/author/questions/:question_id
func (h *ContentHandler) EditQuestion(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	questionID, ok := parseID(c, "question_id")
	if !ok {
		return
	}

	var req model.EditQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.content.EditQuestion(c.Request.Context(), id.UserID, questionID, req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, q)
}

// RetractQuestion godoc
// DELETE /api/v1/author/questions/:question_id
func (h *ContentHandler) RetractQuestion(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	questionID, ok := parseID(c, "question_id")
	if !ok {
		return
	}

	if err := h.content.RetractQuestion(c.Request.Context(), id.UserID, questionID); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"retracted": questionID})
}

// EditChoice godoc
// PUT /api/v1/author/choices/:choice_id
func (h *ContentHandler) EditChoice(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	choiceID, ok := parseID(c, "choice_id")
	if !ok {
		return
	}

	var req model.EditChoiceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ch, err := h.content.EditChoice(c.Request.Context(), id.UserID, choiceID, req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, ch)
}

// RetractChoice godoc
// DELETE /api/v1/author/choices/:choice_id
func (h *ContentHandler) RetractChoice(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	choiceID, ok := parseID(c, "choice_id")
	if !ok {
		return
	}

	if err := h.content.RetractChoice(c.Request.Context(), id.UserID, choiceID); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"retracted": choiceID})
}
