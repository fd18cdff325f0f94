package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/auth"
)

const identityKey = "mw.identity"

// BearerToken extracts the credential from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(h, "Bearer "), true
}

// Require classifies the bearer token and gates on the capability.
// A missing token and an insufficient identity both answer 401 — only
// the message differs. The merged status is deliberate compatibility
// behavior, not an oversight.
func Require(classifier *auth.Classifier, cap auth.Capability, denyMessage string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}

		identity := classifier.Classify(c.Request.Context(), token)
		if !identity.Allows(cap) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": denyMessage})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// Identity returns the classified caller stored by Require.
func Identity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{Kind: auth.KindNone}
}
