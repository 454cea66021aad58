package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"dailyattend/internal/apperr"
)

const claimsKey = "claims"

// Bearer enforces an Authorization: Bearer token. A missing token aborts with 401,
// a bad one with 403.
func Bearer(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			apperr.Respond(c, apperr.ErrMissingToken)
			return
		}
		claims, err := svc.Authenticate(strings.TrimSpace(authz[len("bearer "):]))
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// FromContext returns the claims stored by Bearer.
func FromContext(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
