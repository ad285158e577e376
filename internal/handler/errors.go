package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/response"
	"github.com/stemsi/practice-backend/internal/service"
)

// errorStatus maps a service error to its HTTP status and stable code. The
// boolean is false for internal failures, which must be logged and reported
// without detail.
func errorStatus(err error) (int, response.ErrCode, bool) {
	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrContentNotFound),
		errors.Is(err, service.ErrContentRetracted):
		return http.StatusNotFound, response.ErrNotFound, true
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, response.ErrForbidden, true
	case errors.Is(err, service.ErrAttemptNotDraft):
		return http.StatusConflict, response.ErrAttemptNotDraft, true
	case errors.Is(err, service.ErrAttemptAlreadySubmitted):
		return http.StatusConflict, response.ErrAttemptAlreadySubmitted, true
	case errors.Is(err, service.ErrAttemptNotFinished):
		return http.StatusConflict, response.ErrAttemptNotFinished, true
	case errors.Is(err, service.ErrQuestionNotFound):
		return http.StatusUnprocessableEntity, response.ErrQuestionNotFound, true
	case errors.Is(err, service.ErrChoiceNotFound):
		return http.StatusUnprocessableEntity, response.ErrChoiceNotFound, true
	case errors.Is(err, service.ErrListeningTaskNotActivated):
		return http.StatusConflict, response.ErrListeningTaskNotActivated, true
	case errors.Is(err, service.ErrPassageNotActivated):
		return http.StatusConflict, response.ErrPassageNotActivated, true
	default:
		return http.StatusInternalServerError, response.ErrInternal, false
	}
}

// failFromError writes the business error for err, or INTERNAL_ERROR.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	status, code, known := errorStatus(err)
	if !known {
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString(response.ContextKeyRequestID)).
			Msg("request failed")
	}
	response.Fail(c, status, code)
}
