package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arcana-labs/arcana-backend/internal/middleware"
	"github.com/arcana-labs/arcana-backend/internal/platform/apierr"
	"github.com/arcana-labs/arcana-backend/internal/services"
)

type PersonaHandler struct {
	persona services.PersonaService
}

func NewPersonaHandler(persona services.PersonaService) *PersonaHandler {
	return &PersonaHandler{persona: persona}
}

func (h *PersonaHandler) GetPersona(c *gin.Context) {
	subjectID, isAnonymous := middleware.Subject(c)
	persona, err := h.persona.GetPersona(c.Request.Context(), subjectID, isAnonymous)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, persona)
}

type feedbackRequest struct {
	ThemeID   string `json:"theme_id"`
	Direction string `json:"direction"`
}

// Feedback nudges one theme weight up or down by the configured step.
func (h *PersonaHandler) Feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondServiceError(c, apierr.BadRequest("INVALID_BODY", err))
		return
	}
	themeID, err := uuid.Parse(req.ThemeID)
	if err != nil {
		respondServiceError(c, apierr.BadRequest("INVALID_THEME_ID", err))
		return
	}

	delta := h.persona.FeedbackDelta()
	switch req.Direction {
	case "up":
	case "down":
		delta = -delta
	default:
		respondServiceError(c, apierr.BadRequest("INVALID_DIRECTION", fmt.Errorf("direction must be up or down")))
		return
	}

	subjectID, isAnonymous := middleware.Subject(c)
	weight, err := h.persona.UpdateThemeWeight(c.Request.Context(), subjectID, isAnonymous, themeID, delta)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"theme_id": themeID, "weight": weight})
}
