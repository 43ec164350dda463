package handler

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

const maxWebhookBody = 64 << 10

// StripeWebhook отвечает 200 на applied/duplicate/ignored и 500 на сбой
// хранилища, чтобы Stripe доставил событие повторно.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.handleError(w, r, domain.NewBadRequestError("webhook body too large"))
		return
	}

	event, err := h.webhooks.Parse(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook rejected", zap.Error(err))
		h.handleError(w, r, err)
		return
	}

	h.logger.Info("webhook received",
		zap.String("event_id", event.EventID),
		zap.String("kind", string(event.Kind)),
		zap.String("payment_id", event.ExternalPaymentID),
	)

	outcome, err := h.paymentService.ProcessEvent(r.Context(), event)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{Received: true, Outcome: string(outcome)})
}
