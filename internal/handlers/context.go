package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// bearerToken extracts the raw token from the Authorization header, empty
// when the header is missing or malformed.
func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 {
		return ""
	}
	if authz[:7] != "Bearer " && authz[:7] != "bearer " {
		return ""
	}
	return authz[7:]
}
