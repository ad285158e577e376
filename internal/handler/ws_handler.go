package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/middleware"
	"github.com/stemsi/practice-backend/internal/model"
	"github.com/stemsi/practice-backend/internal/response"
	"github.com/stemsi/practice-backend/internal/validator"
	ws "github.com/stemsi/practice-backend/internal/websocket"
)

// operationTimeout bounds each save or submit issued over the socket.
const operationTimeout = 15 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams autosave and submit over a WebSocket.
type WSHandler struct {
	attempts AttemptService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attempts AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream
// Upgrades to WebSocket for autosave and submit. Every action goes through
// the same guards as the HTTP endpoints.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseID(c, "attempt_id")
	if !ok {
		return
	}

	// Fail before upgrading if the attempt cannot be resumed.
	if _, err := h.attempts.LoadAttempt(c.Request.Context(), attemptID, id.UserID); err != nil {
		failFromError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", id.UserID.String()).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Learner connected")

	for {
		var env ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch env.Action {
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, attemptID, id.UserID, env.Payload)
		case ws.ActionSubmit:
			if h.handleSubmit(conn, wsLog, attemptID, id.UserID, env.Payload) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "submitted"),
					time.Now().Add(time.Second))
				return
			}
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, string(response.ErrInvalidRequest), "unknown action: "+string(env.Action), nil)
		}
	}
}

func (h *WSHandler) handleAutosave(conn *websocket.Conn, log zerolog.Logger, attemptID, userID uuid.UUID, payload json.RawMessage) {
	req, ok := decodePayload(conn, payload)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := h.attempts.SaveAttempt(ctx, attemptID, userID, *req); err != nil {
		writeWSError(conn, log, err)
		return
	}
	_ = ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Answers: len(req.Answers), Duration: req.Duration})
}

// handleSubmit reports whether the attempt was finished.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, log zerolog.Logger, attemptID, userID uuid.UUID, payload json.RawMessage) bool {
	req, ok := decodePayload(conn, payload)
	if !ok {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	result, err := h.attempts.SubmitAttempt(ctx, attemptID, userID, *req)
	if err != nil {
		writeWSError(conn, log, err)
		return false
	}
	log.Info().Int("total_points", result.TotalPoints).Msg("Attempt submitted over stream")
	_ = ws.WriteTyped(conn, ws.GradedResponse{Event: ws.EventGraded, Result: result})
	return true
}

func decodePayload(conn *websocket.Conn, payload json.RawMessage) (*model.SaveAttemptRequest, bool) {
	var req ws.AutosaveRequest
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			_ = ws.WriteError(conn, string(response.ErrInvalidRequest), response.GetMessage(response.ErrInvalidRequest), nil)
			return nil, false
		}
	}
	if fields := validator.Validate(&req); fields != nil {
		_ = ws.WriteError(conn, string(response.ErrValidation), response.GetMessage(response.ErrValidation), fields)
		return nil, false
	}
	return &req, true
}

func writeWSError(conn *websocket.Conn, log zerolog.Logger, err error) {
	_, code, known := errorStatus(err)
	if !known {
		log.Error().Err(err).Msg("stream operation failed")
	}
	_ = ws.WriteError(conn, string(code), response.GetMessage(code), nil)
}
