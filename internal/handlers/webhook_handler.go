package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"hr-center/internal/middleware"
	"hr-center/internal/opensign"
	"hr-center/internal/signing"
)

// EventHandler applies provider notifications
type EventHandler interface {
	HandleProviderEvent(ctx context.Context, rawBody []byte, signatureHeader string) (*signing.EventResult, error)
}

// WebhookHandler receives signing provider callbacks
type WebhookHandler struct {
	events EventHandler
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(events EventHandler) *WebhookHandler {
	return &WebhookHandler{events: events}
}

// OpenSign receives a provider notification
// @Summary OpenSign webhook
// @Description Signed, declined and expired notifications. The raw body must carry a hex HMAC-SHA256 in X-Signature. Unrecognized events are acknowledged.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Signature header string true "HMAC-SHA256 of the raw body"
// @Success 200 {object} map[string]bool "received"
// @Failure 401 {object} map[string]string "Invalid signature"
// @Failure 413 {object} map[string]string "Request body too large"
// @Router /webhooks/opensign [post]
func (h *WebhookHandler) OpenSign(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, ErrMsgPayloadTooLarge)
			return
		}
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	result, err := h.events.HandleProviderEvent(r.Context(), body, r.Header.Get(opensign.SignatureHeader))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	slog.Info("Provider event handled",
		"request_id", middleware.GetRequestID(r.Context()),
		"event", result.Event,
		"applied", result.Applied,
		"reason", result.Reason,
	)
	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}
