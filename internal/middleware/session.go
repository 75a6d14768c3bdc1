package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
)

const (
	// ContextSubjectID and ContextIsAnonymous are the gin context keys set by
	// ResolveSubject.
	ContextSubjectID   = "subjectID"
	ContextIsAnonymous = "isAnonymous"

	anonCookieName   = "arcana_anon_id"
	anonCookieMaxAge = 365 * 24 * 60 * 60
)

// SubjectMiddleware resolves who a request is about. An X-User-ID header
// identifies an authenticated user; everything else gets a sticky anonymous
// id via cookie so repeat visitors keep their persona.
type SubjectMiddleware struct {
	log *logger.Logger
}

func NewSubjectMiddleware(baseLog *logger.Logger) *SubjectMiddleware {
	return &SubjectMiddleware{log: baseLog.With("component", "SubjectMiddleware")}
}

func (m *SubjectMiddleware) ResolveSubject() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader("X-User-ID")); userID != "" {
			c.Set(ContextSubjectID, userID)
			c.Set(ContextIsAnonymous, false)
			c.Next()
			return
		}

		anonID, err := c.Cookie(anonCookieName)
		if err != nil || strings.TrimSpace(anonID) == "" {
			anonID = uuid.NewString()
			c.SetCookie(anonCookieName, anonID, anonCookieMaxAge, "/", "", false, true)
			m.log.Debug("issued anonymous id", "subject_id", anonID)
		}
		c.Set(ContextSubjectID, anonID)
		c.Set(ContextIsAnonymous, true)
		c.Next()
	}
}

// Subject reads the resolved identity back out of the gin context.
func Subject(c *gin.Context) (subjectID string, isAnonymous bool) {
	return c.GetString(ContextSubjectID), c.GetBool(ContextIsAnonymous)
}
