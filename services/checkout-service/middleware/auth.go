package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dachishengelia/restyle-backend/services/common/auth"
)

const (
	UserContextKey = "user_id"
	RoleContextKey = "role"
	AdminRole      = "admin"

	tokenCookieName = "token"
)

// GatewaySecretHeader carries the secret the API gateway shares with this service.
const GatewaySecretHeader = "X-Gateway-Secret"

// AuthMiddleware trusts the X-User-ID / X-User-Role headers only on requests that present the
// gateway secret. Every other request must carry a valid bearer token or token cookie, and the
// identity headers are ignored.
func AuthMiddleware(gatewaySecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID, role string

		if fromGateway(c, gatewaySecret) {
			userID = strings.TrimSpace(c.GetHeader("X-User-ID"))
			role = strings.TrimSpace(c.GetHeader("X-User-Role"))
		}

		if userID == "" {
			token := bearerToken(c)
			if token == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			claims, err := auth.ParseAndValidateToken(token, "")
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			userID, role, err = auth.Identity(claims)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
		}

		c.Set(UserContextKey, userID)
		c.Set(RoleContextKey, role)
		c.Next()
	}
}

// fromGateway reports whether the request presents the shared gateway secret. An empty secret
// disables header trust entirely.
func fromGateway(c *gin.Context, gatewaySecret string) bool {
	if gatewaySecret == "" {
		return false
	}
	presented := c.GetHeader(GatewaySecretHeader)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(gatewaySecret)) == 1
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if parts := strings.SplitN(h, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(tokenCookieName); err == nil {
		return cookie
	}
	return ""
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != AdminRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, error) {
	if id := c.GetString(UserContextKey); id != "" {
		return id, nil
	}
	return "", errors.New("user ID not found in context")
}

func GetRole(c *gin.Context) string {
	return c.GetString(RoleContextKey)
}
