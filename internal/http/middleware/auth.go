// README: Firebase ID-token auth middleware and caller accessors.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ws "github.com/gorilla/websocket"

	"bantay/internal/infra"
)

const (
	ctxUID  = "caller_uid"
	ctxRole = "caller_role"

	// RoleAdmin may edit and delete pins from the map.
	RoleAdmin = "admin"
)

// Auth verifies the bearer token and stores the caller's uid and role claim.
// Browsers cannot set headers on WebSocket upgrades, so those may pass the
// token as ?token= instead.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok && ws.IsWebSocketUpgrade(c.Request) {
			raw, ok = c.Query("token"), true
		}
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role, _ := token.Claims["role"].(string)
		c.Set(ctxUID, token.UID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// CanEdit reports whether the caller may use the pin edit/delete actions.
func CanEdit(c *gin.Context) bool {
	return CallerRole(c) == RoleAdmin
}
