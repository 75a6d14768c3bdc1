package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arcana-labs/arcana-backend/internal/middleware"
	"github.com/arcana-labs/arcana-backend/internal/services"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

// stubCatalog overrides the single method under test; the embedded nil
// interface panics loudly if the handler strays anywhere else.
type stubCatalog struct {
	services.CatalogService
	byOwner map[uuid.UUID][]*types.Spread
}

func (s *stubCatalog) SpreadsByOwner(_ context.Context, ownerID uuid.UUID) ([]*types.Spread, error) {
	return s.byOwner[ownerID], nil
}

func listMineRouter(h *SpreadHandler, subjectID string, isAnonymous bool) *gin.Engine {
	r := gin.New()
	r.GET("/me/spreads", func(c *gin.Context) {
		c.Set(middleware.ContextSubjectID, subjectID)
		c.Set(middleware.ContextIsAnonymous, isAnonymous)
		h.ListMine(c)
	})
	return r
}

func TestListMineReturnsOwnerSpreads(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	owner := uuid.New()
	h := NewSpreadHandler(&stubCatalog{byOwner: map[uuid.UUID][]*types.Spread{
		owner: {{ID: uuid.New(), Name: "Daily Pull", OwnerID: &owner}},
	}})
	r := listMineRouter(h, owner.String(), false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me/spreads", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	var body struct {
		Spreads []*types.Spread `json:"spreads"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Spreads) != 1 || body.Spreads[0].Name != "Daily Pull" {
		t.Fatalf("unexpected spreads: %+v", body.Spreads)
	}
}

func TestListMineIsEmptyForAnonymousSubjects(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	h := NewSpreadHandler(&stubCatalog{})
	r := listMineRouter(h, "anon:3f2c", true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me/spreads", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	var body struct {
		Spreads []*types.Spread `json:"spreads"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Spreads) != 0 {
		t.Fatalf("anonymous subject got %d spreads", len(body.Spreads))
	}
}
