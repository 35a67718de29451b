package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/entity"
)

type ProfileHandler struct {
	logger *zap.Logger
	reader SubscriptionReader
}

func NewProfileHandler(logger *zap.Logger, reader SubscriptionReader) *ProfileHandler {
	return &ProfileHandler{logger: logger, reader: reader}
}

// GetProfile handles GET /api/v1/profile
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	sub, err := h.reader.Get(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, h.logger, "Failed to get profile", err)
	}
	return c.JSON(http.StatusOK, entity.NewProfile(user, sub))
}
