package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcana-labs/arcana-backend/internal/middleware"
	"github.com/arcana-labs/arcana-backend/internal/platform/apierr"
	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/platform/openai"
	"github.com/arcana-labs/arcana-backend/internal/services"
	"github.com/arcana-labs/arcana-backend/internal/stream"
)

type ReadingHandler struct {
	log      *logger.Logger
	readings services.ReadingService
}

func NewReadingHandler(baseLog *logger.Logger, readings services.ReadingService) *ReadingHandler {
	return &ReadingHandler{
		log:      baseLog.With("handler", "ReadingHandler"),
		readings: readings,
	}
}

type startReadingRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	SpreadID  string `json:"spread_id"`
}

// StartReading runs the full pipeline and streams its events as SSE frames.
// The first frame carries the session id so clients can resume or chat later.
func (h *ReadingHandler) StartReading(c *gin.Context) {
	var req startReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondServiceError(c, apierr.BadRequest("INVALID_BODY", err))
		return
	}
	subjectID, isAnonymous := middleware.Subject(c)

	sessionID, events, err := h.readings.StartReading(c.Request.Context(), services.ReadingRequest{
		SessionID:   req.SessionID,
		SubjectID:   subjectID,
		IsAnonymous: isAnonymous,
		Query:       req.Query,
		SpreadID:    req.SpreadID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	writeSSEHeaders(c)
	writeSSEFrame(c, "session", gin.H{"session_id": sessionID})
	h.pump(c, events)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

func (h *ReadingHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondServiceError(c, apierr.BadRequest("INVALID_BODY", err))
		return
	}
	if len(req.Messages) == 0 {
		respondServiceError(c, apierr.BadRequest("EMPTY_MESSAGES", errors.New("messages list is empty")))
		return
	}
	messages := make([]openai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		messages = append(messages, openai.Message{Role: role, Content: m.Content})
	}

	events, err := h.readings.ProcessChat(c.Request.Context(), c.Param("sessionID"), messages)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	writeSSEHeaders(c)
	h.pump(c, events)
}

func (h *ReadingHandler) GetState(c *gin.Context) {
	st, err := h.readings.GetState(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, st)
}

func (h *ReadingHandler) Reset(c *gin.Context) {
	if err := h.readings.Reset(c.Request.Context(), c.Param("sessionID")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReadingHandler) RecentReadings(c *gin.Context) {
	subjectID, isAnonymous := middleware.Subject(c)
	readings, err := h.readings.RecentReadings(c.Request.Context(), subjectID, isAnonymous)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"readings": readings})
}

func (h *ReadingHandler) Patterns(c *gin.Context) {
	subjectID, isAnonymous := middleware.Subject(c)
	patterns, err := h.readings.Patterns(c.Request.Context(), subjectID, isAnonymous)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, patterns)
}

func (h *ReadingHandler) ClearUserData(c *gin.Context) {
	subjectID, isAnonymous := middleware.Subject(c)
	if err := h.readings.ClearUserData(c.Request.Context(), subjectID, isAnonymous); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// pump copies stream events to the wire until the producer closes the
// channel or the client hangs up.
func (h *ReadingHandler) pump(c *gin.Context, events *stream.Stream) {
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events.Events():
			if !ok {
				return
			}
			writeSSEFrame(c, string(ev.Type), ev)
		}
	}
}

func writeSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
}

func writeSSEFrame(c *gin.Context, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_, _ = c.Writer.WriteString("event: " + event + "\n")
	_, _ = c.Writer.WriteString("data: " + string(data) + "\n\n")
	c.Writer.Flush()
}
