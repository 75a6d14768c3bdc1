package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/arcana-labs/arcana-backend/internal/platform/apierr"
	"github.com/arcana-labs/arcana-backend/internal/services"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env
}

func TestServiceErrorMapping(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "api error carries its own status and code",
			err:        apierr.BadRequest("INVALID_BODY", errors.New("missing field")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_BODY",
		},
		{
			name:       "wrapped api error is still unwrapped",
			err:        apierr.NotFound("CARD_NOT_FOUND", errors.New("no such card")),
			wantStatus: http.StatusNotFound,
			wantCode:   "CARD_NOT_FOUND",
		},
		{
			name:       "unknown session",
			err:        services.ErrSessionNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "SESSION_NOT_FOUND",
		},
		{
			name:       "concurrent reading",
			err:        services.ErrReadingInProgress,
			wantStatus: http.StatusConflict,
			wantCode:   "READING_IN_PROGRESS",
		},
		{
			name:       "anything else is internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			respondServiceError(c, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d", rec.Code, tc.wantStatus)
			}
			env := decodeEnvelope(t, rec)
			if env.Error.Code != tc.wantCode {
				t.Fatalf("unexpected code: got=%q want=%q", env.Error.Code, tc.wantCode)
			}
			if env.Error.Message == "" {
				t.Fatal("expected a non-empty error message")
			}
		})
	}
}
