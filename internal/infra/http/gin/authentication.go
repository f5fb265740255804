package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

// Authentication happens at the edge gateway; it forwards the resolved
// identity in trusted headers. These helpers lift those headers into a
// principal on the gin context.

const principalContextKey = "shorestay.principal"

const (
	headerGuestID    = "X-Guest-ID"
	headerGuestName  = "X-Guest-Name"
	headerGuestRoles = "X-Guest-Roles"
)

type principal struct {
	ID    string
	Name  string
	Roles []string
}

func (p principal) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if strings.ToLower(r) == role {
			return true
		}
	}
	return false
}

// PrincipalMiddleware reads identity headers set by the gateway. Requests
// without them pass through anonymous; route handlers decide what they need.
func PrincipalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerGuestID))
		if id == "" {
			c.Next()
			return
		}
		c.Set(principalContextKey, principal{
			ID:    id,
			Name:  strings.TrimSpace(c.GetHeader(headerGuestName)),
			Roles: splitRoles(c.GetHeader(headerGuestRoles)),
		})
		c.Next()
	}
}

func splitRoles(raw string) []string {
	var roles []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			roles = append(roles, part)
		}
	}
	return roles
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireRole(c *gin.Context, role string) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}
