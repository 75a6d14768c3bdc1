package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/arcana-labs/arcana-backend/internal/middleware"
	"github.com/arcana-labs/arcana-backend/internal/platform/apierr"
	"github.com/arcana-labs/arcana-backend/internal/services"
)

type CardHandler struct {
	catalog  services.CatalogService
	selector services.CardSelector
	persona  services.PersonaService
}

func NewCardHandler(catalog services.CatalogService, selector services.CardSelector, persona services.PersonaService) *CardHandler {
	return &CardHandler{catalog: catalog, selector: selector, persona: persona}
}

func (h *CardHandler) ListCards(c *gin.Context) {
	cards, err := h.catalog.AllCards(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"cards": cards})
}

type drawRequest struct {
	Count int    `json:"count"`
	Query string `json:"query"`
}

// Draw performs a persona-weighted draw outside of a reading session. Used
// for single-card pulls and previews.
func (h *CardHandler) Draw(c *gin.Context) {
	var req drawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondServiceError(c, apierr.BadRequest("INVALID_BODY", err))
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	subjectID, isAnonymous := middleware.Subject(c)
	persona, err := h.persona.GetPersona(c.Request.Context(), subjectID, isAnonymous)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	cards, err := h.selector.SelectCards(c.Request.Context(), services.SelectionParams{
		Persona: persona,
		Count:   req.Count,
		Query:   req.Query,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"cards": cards})
}
