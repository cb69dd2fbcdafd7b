package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"certhub/pkg/jwt"
	"certhub/pkg/redis"
	"certhub/pkg/response"
)

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, msg string) {
	response.Unauthorized(c, 10002, msg)
	c.Abort()
}

// JWTAuth accepts access tokens minted by the platform identity service and
// puts user_id, role and token_jti on the context. Revocation is checked
// against the Redis blacklist when rdb is set; a Redis error does not lock
// reviewers out.
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "missing authorization header")
			return
		}
		raw, ok := bearerToken(header)
		if !ok {
			unauthorized(c, "invalid authorization header")
			return
		}

		claims, err := jwtMgr.ParseToken(raw)
		switch {
		case err != nil:
			unauthorized(c, "token is invalid or expired")
			return
		case claims.TokenType != "access":
			unauthorized(c, "invalid token type")
			return
		case claims.UserID == "" || claims.Role == "":
			unauthorized(c, "token carries no subject")
			return
		}

		if rdb != nil && claims.ID != "" {
			if revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID); err == nil && revoked {
				unauthorized(c, "token has been revoked")
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("token_jti", claims.ID)
		c.Next()
	}
}

// RoleAuth admits callers holding one of roles. It must run after JWTAuth.
func RoleAuth(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			unauthorized(c, "unauthenticated")
			return
		}
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, 10003, "permission denied")
			c.Abort()
			return
		}
		c.Next()
	}
}
