// Package identity reads the caller's claims. Token validation happens at
// the upstream auth collaborator; by the time a request reaches the engine
// the gateway has resolved the bearer token into opaque id/role headers, so
// no session state lives here.
package identity

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/models"
)

const (
	headerUserID = "X-User-Id"
	headerRole   = "X-User-Role"

	ctxUserID = "identity.user_id"
	ctxRole   = "identity.role"
)

// Middleware stashes the claims, when present, into the gin context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(headerUserID); id != "" {
			c.Set(ctxUserID, id)
			c.Set(ctxRole, models.Role(c.GetHeader(headerRole)))
		}
		c.Next()
	}
}

// Require aborts with 401 when the request carries no identity.
func Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"kind":    auctionerrors.KindAuthorization,
				"message": "authentication required",
			})
			return
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller holds the given role.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"kind":    auctionerrors.KindAuthorization,
				"message": "authentication required",
			})
			return
		}
		if Role(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"kind":    auctionerrors.KindAuthorization,
				"message": "insufficient role",
			})
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func Role(c *gin.Context) models.Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(models.Role); ok {
			return r
		}
	}
	return ""
}
