package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arcana-labs/arcana-backend/internal/middleware"
	"github.com/arcana-labs/arcana-backend/internal/platform/apierr"
	"github.com/arcana-labs/arcana-backend/internal/services"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

type SpreadHandler struct {
	catalog services.CatalogService
}

func NewSpreadHandler(catalog services.CatalogService) *SpreadHandler {
	return &SpreadHandler{catalog: catalog}
}

func (h *SpreadHandler) ListSpreads(c *gin.Context) {
	spreads, err := h.catalog.AllSpreads(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"spreads": spreads})
}

// ListMine returns the spreads owned by the calling subject. Anonymous
// subjects have cookie-derived ids that never match an owner row, so they
// get an empty list rather than an error.
func (h *SpreadHandler) ListMine(c *gin.Context) {
	subjectID, isAnonymous := middleware.Subject(c)
	ownerID, err := uuid.Parse(subjectID)
	if isAnonymous || err != nil {
		RespondOK(c, gin.H{"spreads": []*types.Spread{}})
		return
	}
	spreads, err := h.catalog.SpreadsByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"spreads": spreads})
}

func (h *SpreadHandler) GetSpread(c *gin.Context) {
	spreadID, err := uuid.Parse(c.Param("spreadID"))
	if err != nil {
		respondServiceError(c, apierr.BadRequest("INVALID_SPREAD_ID", err))
		return
	}
	spread, err := h.catalog.SpreadByID(c.Request.Context(), spreadID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, spread)
}
