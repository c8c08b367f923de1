package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kinga/core/user"
)

// roleMiddleware only lets through accounts whose role priority is at least
// minRole's.
func roleMiddleware(minRole user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if user.RolePriority(user.Role(claims.Role)) >= user.RolePriority(minRole) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func directionMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleDirection)
}
