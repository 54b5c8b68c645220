package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/associahq/associa/internal/auth"
	"github.com/associahq/associa/internal/eligibility"
	"github.com/associahq/associa/internal/identifier"
	"github.com/associahq/associa/internal/identity"
	"github.com/associahq/associa/internal/messaging"
)

// WebhookHandler receives inbound WhatsApp deliveries and the
// server-to-server update-data calls. Both paths are guarded by the static
// shared key, never by member tokens.
type WebhookHandler struct {
	engine  *messaging.Engine
	updater *messaging.Updater
	apiKey  string
	logger  *slog.Logger
}

func NewWebhookHandler(log *slog.Logger, engine *messaging.Engine, updater *messaging.Updater, apiKey string) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		engine:  engine,
		updater: updater,
		apiKey:  apiKey,
		logger:  log.With(slog.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/channels/whatsapp/webhook", h.HandleInbound, auth.StaticKeyMiddleware(h.apiKey))
	e.POST("/messaging/update-data", h.HandleUpdateData)
}

// HandleInbound godoc
// @Summary Inbound WhatsApp webhook
// @Description Process one inbound message and answer with the reply text
// @Tags messaging
// @Accept x-www-form-urlencoded
// @Success 200 {string} string "reply text"
// @Failure 403 {string} string "Member is not active"
// @Failure 404 {string} string "Member not found"
// @Router /channels/whatsapp/webhook [post]
func (h *WebhookHandler) HandleInbound(c echo.Context) error {
	var msg messaging.InboundMessage
	if err := c.Bind(&msg); err != nil {
		return c.String(http.StatusBadRequest, "malformed webhook payload")
	}
	if err := validate.Struct(&msg); err != nil {
		return c.String(http.StatusBadRequest, "missing webhook fields")
	}

	reply, err := h.engine.HandleInbound(c.Request().Context(), msg)
	if err != nil {
		// The provider retries on 5xx; keep terminal conditions terminal.
		switch {
		case errors.Is(err, identity.ErrNotFound):
			return c.String(http.StatusNotFound, "Member not found")
		case errors.Is(err, eligibility.ErrNotActive):
			return c.String(http.StatusForbidden, "Member is not active")
		case errors.Is(err, identifier.ErrInvalidFormat):
			return c.String(http.StatusUnprocessableEntity, "Invalid sender number")
		case errors.Is(err, identity.ErrAmbiguous):
			return c.String(http.StatusInternalServerError, "Unable to process message")
		default:
			h.logger.Error("inbound processing failed",
				slog.String("message_sid", msg.MessageSID), slog.Any("error", err))
			return c.String(http.StatusInternalServerError, "Unable to process message")
		}
	}
	return c.String(http.StatusOK, reply)
}

// HandleUpdateData godoc
// @Summary Server-to-server member data update
// @Description Validate claimed attributes and store the canonical phone
// @Tags messaging
// @Accept json
// @Param payload body messaging.UpdateDataRequest true "Update payload"
// @Success 200 {object} ConfirmationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /messaging/update-data [post]
func (h *WebhookHandler) HandleUpdateData(c echo.Context) error {
	var req messaging.UpdateDataRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := auth.VerifyStaticKey(h.apiKey, req.Token); err != nil {
		return err
	}

	confirmation, err := h.updater.UpdateData(c.Request().Context(), req)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, ConfirmationResponse{Detail: confirmation})
}
