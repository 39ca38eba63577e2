package middleware

import (
	"errors"
	"net/http"

	"akppos/internal/apierror"
	"akppos/internal/auth"
	"akppos/internal/model"

	"github.com/gin-gonic/gin"
)

const PrincipalKey = "principal"

// JWTAuth resolves the Bearer token on every protected route and stores the
// caller's Principal in the context.
func JWTAuth(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := tokens.ResolveHeader(c.GetHeader("Authorization"))
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, auth.ErrMissingCredential) {
				msg = "Authentication required"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(msg))
			return
		}
		c.Set(PrincipalKey, p)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Authentication required"))
			return
		}
		if !p.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the caller stored by JWTAuth.
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
