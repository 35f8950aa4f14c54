package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/scholrhub/internal/model"
)

// RequireRole lets the request through only when the role placed on the
// context by JWTAuth is one of roles.  Everyone else gets 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[Role(c)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}

// RequireModerator admits Admin and Faculty.
func RequireModerator() echo.MiddlewareFunc {
    return RequireRole(model.RoleAdmin, model.RoleFaculty)
}
