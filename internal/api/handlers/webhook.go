package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/leadscout/backend/internal/models"
	"github.com/leadscout/backend/internal/services"
	"github.com/leadscout/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

type WebhookHandler struct {
	webhookService *services.WebhookService
	logger         *logrus.Logger
}

func NewWebhookHandler(webhookService *services.WebhookService, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// HandleN8N receives a staged workflow callback as JSON or as a form.
func (h *WebhookHandler) HandleN8N(c *gin.Context) {
	callback, err := h.bindCallback(c)
	if err != nil {
		h.logger.WithError(err).Warn("Invalid webhook body")
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, err := h.webhookService.Handle(c.Request.Context(), callback)
	if err != nil {
		writeError(c, h.logger, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WebhookHandler) bindCallback(c *gin.Context) (*models.WebhookCallback, error) {
	switch c.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		if c.ContentType() == binding.MIMEMultipartPOSTForm {
			if err := c.Request.ParseMultipartForm(32 << 10); err != nil {
				return nil, err
			}
		} else if err := c.Request.ParseForm(); err != nil {
			return nil, err
		}
		return models.DecodeCallbackForm(c.Request.PostForm)
	}

	var callback models.WebhookCallback
	if err := c.ShouldBindJSON(&callback); err != nil {
		return nil, err
	}
	return &callback, nil
}
