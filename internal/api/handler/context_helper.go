package handler

import (
	"github.com/gin-gonic/gin"

	"certhub/pkg/response"
)

// claim reads a string value JWTAuth put on the context. On false a 401 has
// already been written and the caller should return.
func claim(c *gin.Context, key string) (string, bool) {
	if s := c.GetString(key); s != "" {
		return s, true
	}
	response.Unauthorized(c, 10002, "unauthenticated")
	return "", false
}

// MustGetUserID returns the caller's user id.
func MustGetUserID(c *gin.Context) (string, bool) { return claim(c, "user_id") }

// MustGetRole returns the caller's role.
func MustGetRole(c *gin.Context) (string, bool) { return claim(c, "role") }
