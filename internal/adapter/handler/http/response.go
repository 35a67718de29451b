package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/middleware/auth"
	apperrors "github.com/codeabuu/simplifydocs/pkg/errors"
)

// RequestValidator adapts go-playground/validator to echo.
type RequestValidator struct {
	validator *validator.Validate
}

// NewRequestValidator creates the validator installed on the echo instance.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validator: validator.New()}
}

// Validate implements echo.Validator.
func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// bindAndValidate decodes the body into req and validates it. The returned
// error message is safe to show to the caller.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.New("Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			if s, ok := he.Message.(string); ok {
				return errors.New(s)
			}
		}
		return err
	}
	return nil
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
}

// respondError writes err as {"error", "code"} with the status its code maps
// to. Internal details are logged and never written to the body.
func respondError(c echo.Context, logger *zap.Logger, msg string, err error) error {
	httpErr := apperrors.ToHTTPError(err)
	code := apperrors.CodeOf(err)

	apperrors.LogError(logger, err, msg, zap.String("path", c.Request().URL.Path))

	return c.JSON(httpErr.Code, echo.Map{
		"error": httpErr.Message,
		"code":  code,
	})
}

// apperrorMessage returns the user-facing message of err, or fallback when
// err carries none.
func apperrorMessage(err error, fallback string) string {
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) && appErr.Message() != "" {
		return appErr.Message()
	}
	return fallback
}

// currentUser returns the authenticated caller as a ledger user. When ok is
// false a 401 has been written and the handler should return writeErr.
func currentUser(c echo.Context) (user *model.User, ok bool, writeErr error) {
	authUser, ok, writeErr := auth.RequireAuth(c)
	if !ok {
		return nil, false, writeErr
	}
	return &model.User{
		ID:        authUser.UserID,
		Email:     authUser.Email,
		FirstName: authUser.FirstName,
	}, true, nil
}
