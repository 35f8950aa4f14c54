package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/scholrhub/internal/model"
    "github.com/iliyamo/scholrhub/internal/repository"
    "github.com/iliyamo/scholrhub/internal/utils"
)

// UserLookup resolves the token subject to a live account.
type UserLookup interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// JWTAuth validates a Bearer access token and then loads the user it
// names.  Tokens for deleted accounts are refused.  On success the context
// carries "user_id" (uint64), "role" (string, taken from the database row
// rather than the token) and "user" (model.User).
func JWTAuth(secret string, users UserLookup) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            raw, ok := strings.CutPrefix(auth, "Bearer ")
            if !ok || strings.TrimSpace(raw) == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }

            claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            id, _ := claims.UserID() // validated by ParseAccessToken

            ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
            defer cancel()
            u, err := users.GetByID(ctx, id)
            if errors.Is(err, repository.ErrNotFound) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user not found"})
            }
            if err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to authenticate"})
            }

            SetIdentity(c, u)
            return next(c)
        }
    }
}
