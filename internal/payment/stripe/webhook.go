// Package stripe переводит вебхуки Stripe в domain.PaymentEvent и находит
// checkout-сессию по платежу при возврате.
package stripe

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

const (
	metadataAccountID = "account_id"
	metadataProduct   = "product"
)

// WebhookVerifier проверяет подпись Stripe-Signature и декодирует событие.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Parse возвращает ErrInvalidSignature для неподписанных или просроченных
// запросов. Неинтересные типы событий возвращаются с пустым Kind.
func (v *WebhookVerifier) Parse(payload []byte, signatureHeader string) (domain.PaymentEvent, error) {
	if v.secret == "" || signatureHeader == "" {
		return domain.PaymentEvent{}, domain.ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return domain.PaymentEvent{}, domain.ErrInvalidSignature
		}
		return domain.PaymentEvent{}, domain.NewBadRequestError("malformed webhook payload")
	}

	return decodeEvent(event)
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrTooOld)
}

func decodeEvent(event stripego.Event) (domain.PaymentEvent, error) {
	out := domain.PaymentEvent{
		EventID:    event.ID,
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil {
		return domain.PaymentEvent{}, domain.NewBadRequestError("webhook event has no data")
	}

	switch event.Type {
	case stripego.EventTypeCheckoutSessionCompleted:
		var session stripego.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return domain.PaymentEvent{}, domain.NewBadRequestError("malformed checkout session")
		}
		// неоплаченная сессия (например, отложенный платеж) не дает лицензии
		if session.PaymentStatus == stripego.CheckoutSessionPaymentStatusUnpaid {
			return out, nil
		}
		out.Kind = domain.PaymentEventCheckoutCompleted
		out.ExternalPaymentID = session.ID
		out.AccountID = session.Metadata[metadataAccountID]
		if out.AccountID == "" {
			out.AccountID = session.ClientReferenceID
		}
		out.AccountEmail = customerEmail(&session)
		out.Product = session.Metadata[metadataProduct]

	case stripego.EventTypeChargeRefunded:
		var charge stripego.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return domain.PaymentEvent{}, domain.NewBadRequestError("malformed charge")
		}
		out.Kind = domain.PaymentEventChargeRefunded
		out.RefundedPaymentRef = charge.ID
		if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
			out.RefundedPaymentRef = charge.PaymentIntent.ID
		}
	}

	return out, nil
}

func customerEmail(session *stripego.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return strings.TrimSpace(session.CustomerDetails.Email)
	}
	return strings.TrimSpace(session.CustomerEmail)
}
