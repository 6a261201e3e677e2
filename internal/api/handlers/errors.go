package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leadscout/backend/internal/services"
	"github.com/leadscout/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

// writeError maps service errors onto status codes. Unrecognised errors are
// logged and answered with the generic fallback message.
func writeError(c *gin.Context, logger *logrus.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidPlatform),
		errors.Is(err, services.ErrUnknownStage):
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrSearchNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Search not found", nil)
	case errors.Is(err, services.ErrEmailTaken):
		utils.ErrorResponse(c, http.StatusConflict, "Email already in use", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, services.ErrUnauthorized):
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized", nil)
	default:
		logger.WithError(err).WithField("path", c.FullPath()).Error(fallback)
		utils.ErrorResponse(c, http.StatusInternalServerError, fallback, err)
	}
}
