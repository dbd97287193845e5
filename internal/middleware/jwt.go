package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"social_network/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by the auth middleware
const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// JWTAuthMiddleware validates the bearer token and extracts user information
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requireToken(c, bearerToken(c), secret)
	}
}

// WebsocketAuthMiddleware is JWTAuthMiddleware for websocket upgrades.
// Browsers cannot set headers on a websocket handshake, so a ?token= query
// parameter is accepted here and nowhere else.
func WebsocketAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}
		requireToken(c, tokenStr, secret)
	}
}

// requireToken authenticates the request with tokenStr or aborts with 401
func requireToken(c *gin.Context, tokenStr, secret string) {
	if tokenStr == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Missing or invalid Authorization header"})
		return
	}
	claims, err := utils.ParseJWT(tokenStr, secret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
		return
	}
	c.Set(UserIDKey, claims.UserID) // Store userID in context
	c.Set(RoleKey, claims.Role)
	c.Next()
}

// OptionalJWTMiddleware sets the user when a valid bearer token is present
// and lets anonymous requests through otherwise
func OptionalJWTMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := bearerToken(c); tokenStr != "" {
			if claims, err := utils.ParseJWT(tokenStr, secret); err == nil {
				c.Set(UserIDKey, claims.UserID)
				c.Set(RoleKey, claims.Role)
			}
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or 0 for anonymous requests
func CurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
