package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	ServiceSecretHeader = "X-Service-Secret"
	APIKeyHeader        = "X-API-Key"

	actorKey = "auth.actor"
)

// ServiceSecret gates the remote validation endpoints with the shared
// service-to-service secret distributed to deployed product instances.
func ServiceSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service secret not configured"})
			return
		}

		got := c.GetHeader(ServiceSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid service secret"})
			return
		}

		c.Set(actorKey, "api")
		c.Next()
	}
}

// APIKeyVerifier resolves a presented key ID to a stored hash and verifies the
// secret against it.
type APIKeyVerifier interface {
	Verify(c *gin.Context, key string) (actor string, ok bool)
}

// APIKey gates administrative routes. The verifier owns hash comparison so the
// middleware stays storage-agnostic.
func APIKey(verifier APIKeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		actor, ok := verifier.Verify(c, key)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// Actor returns the audit attribution string for the current request.
func Actor(c *gin.Context) string {
	if v, ok := c.Get(actorKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "system"
}
