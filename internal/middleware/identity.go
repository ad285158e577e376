package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/practice-backend/internal/identity"
	"github.com/stemsi/practice-backend/internal/response"
)

const (
	// ContextKeyIdentity is the Gin context key for the resolved caller.
	ContextKeyIdentity = "identity"
)

// RequireLearner resolves the bearer token and admits learners.
func RequireLearner(resolver *identity.Resolver) gin.HandlerFunc {
	return requireRole(resolver, identity.RoleLearner, response.ErrLearnerAccessOnly, false)
}

// RequireAuthor resolves the bearer token and admits content authors.
func RequireAuthor(resolver *identity.Resolver) gin.HandlerFunc {
	return requireRole(resolver, identity.RoleAuthor, response.ErrAuthorAccessOnly, false)
}

// RequireLearnerWS resolves a learner token from the query param ?token=...
// Used for WebSocket upgrade requests.
func RequireLearnerWS(resolver *identity.Resolver) gin.HandlerFunc {
	return requireRole(resolver, identity.RoleLearner, response.ErrLearnerAccessOnly, true)
}

// GetIdentity retrieves the resolved caller from the Gin context.
func GetIdentity(c *gin.Context) *identity.Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return nil
	}
	id, ok := val.(*identity.Identity)
	if !ok {
		return nil
	}
	return id
}

func requireRole(resolver *identity.Resolver, role identity.Role, denied response.ErrCode, queryOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if !queryOnly {
			token = bearerToken(c)
		}
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrTokenInvalid) || errors.Is(err, identity.ErrTokenRequired) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
				return
			}
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		if id.Role != role {
			response.AbortFail(c, http.StatusForbidden, denied)
			return
		}

		c.Set(ContextKeyIdentity, id)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
