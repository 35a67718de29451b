package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// UserStore keeps the local mirror of authenticated identities.
type UserStore interface {
	Ensure(ctx context.Context, user *model.User) error
}

// EnsureUser mirrors the token's identity into the users table so webhook
// and checkout lookups by email resolve. It must run after JWTMiddleware.
func EnsureUser(store UserStore, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := GetUserFromContext(c)
			if err != nil {
				return next(c)
			}

			if err := store.Ensure(c.Request().Context(), &model.User{
				ID:        user.UserID,
				Email:     user.Email,
				FirstName: user.FirstName,
			}); err != nil {
				logger.Error("Failed to sync authenticated user",
					zap.String("user_id", user.UserID.String()),
					zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"error": "Failed to initialize account",
					"code":  "INTERNAL",
				})
			}
			return next(c)
		}
	}
}
