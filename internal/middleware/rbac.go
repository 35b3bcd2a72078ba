package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/sistema-ppc/ppc-api/internal/models"
	appErrors "github.com/sistema-ppc/ppc-api/pkg/errors"
	"github.com/sistema-ppc/ppc-api/pkg/response"
)

// RequireRoles rejects requests whose authenticated user does not hold one of
// the given roles. It must run after JWT.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Tipo]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role not allowed for this operation"))
			c.Abort()
			return
		}
		c.Next()
	}
}
