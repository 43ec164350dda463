package stripe

import (
	"context"
	"errors"
	"testing"
	"time"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

const testSecret = "whsec_test"

func sign(t *testing.T, payload string, at time.Time) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: at,
	})
	return signed.Header
}

const checkoutPayload = `{
  "id": "evt_checkout",
  "object": "event",
  "type": "checkout.session.completed",
  "created": 1772366400,
  "data": {"object": {
    "id": "cs_test_1",
    "object": "checkout.session",
    "client_reference_id": "acc-ref",
    "payment_status": "paid",
    "customer_details": {"email": " Buyer@Example.com "},
    "metadata": {"account_id": "acc-1", "product": "team"}
  }}
}`

func TestWebhookVerifier_Parse(t *testing.T) {
	verifier := NewWebhookVerifier(testSecret)

	t.Run("checkout.session.completed", func(t *testing.T) {
		event, err := verifier.Parse([]byte(checkoutPayload), sign(t, checkoutPayload, time.Now()))

		require.NoError(t, err)
		assert.Equal(t, "evt_checkout", event.EventID)
		assert.Equal(t, domain.PaymentEventCheckoutCompleted, event.Kind)
		assert.Equal(t, "cs_test_1", event.ExternalPaymentID)
		assert.Equal(t, "acc-1", event.AccountID)
		assert.Equal(t, "Buyer@Example.com", event.AccountEmail)
		assert.Equal(t, "team", event.Product)
		assert.Equal(t, time.Unix(1772366400, 0).UTC(), event.OccurredAt)
	})

	t.Run("client_reference_id без metadata", func(t *testing.T) {
		payload := `{"id":"evt_2","object":"event","type":"checkout.session.completed","created":1,
			"data":{"object":{"id":"cs_2","object":"checkout.session","client_reference_id":"acc-ref","payment_status":"paid","customer_email":"x@example.com","metadata":{"product":"individual"}}}}`

		event, err := verifier.Parse([]byte(payload), sign(t, payload, time.Now()))

		require.NoError(t, err)
		assert.Equal(t, "acc-ref", event.AccountID)
		assert.Equal(t, "x@example.com", event.AccountEmail)
	})

	t.Run("неоплаченная сессия не создает событие", func(t *testing.T) {
		payload := `{"id":"evt_3","object":"event","type":"checkout.session.completed","created":1,
			"data":{"object":{"id":"cs_3","object":"checkout.session","payment_status":"unpaid","metadata":{"product":"team"}}}}`

		event, err := verifier.Parse([]byte(payload), sign(t, payload, time.Now()))

		require.NoError(t, err)
		assert.Empty(t, event.Kind)
	})

	t.Run("charge.refunded", func(t *testing.T) {
		payload := `{"id":"evt_refund","object":"event","type":"charge.refunded","created":1,
			"data":{"object":{"id":"ch_1","object":"charge","refunded":true,"payment_intent":"pi_1"}}}`

		event, err := verifier.Parse([]byte(payload), sign(t, payload, time.Now()))

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentEventChargeRefunded, event.Kind)
		assert.Equal(t, "pi_1", event.RefundedPaymentRef)
	})

	t.Run("неинтересный тип события", func(t *testing.T) {
		payload := `{"id":"evt_other","object":"event","type":"customer.created","created":1,"data":{"object":{"id":"cus_1","object":"customer"}}}`

		event, err := verifier.Parse([]byte(payload), sign(t, payload, time.Now()))

		require.NoError(t, err)
		assert.Equal(t, "evt_other", event.EventID)
		assert.Empty(t, event.Kind)
	})

	t.Run("ошибка: неверная подпись", func(t *testing.T) {
		other := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   []byte(checkoutPayload),
			Secret:    "whsec_other",
			Timestamp: time.Now(),
		})

		_, err := verifier.Parse([]byte(checkoutPayload), other.Header)

		assert.True(t, errors.Is(err, domain.ErrInvalidSignature))
	})

	t.Run("ошибка: подмененное тело", func(t *testing.T) {
		header := sign(t, checkoutPayload, time.Now())
		tampered := []byte(checkoutPayload[:len(checkoutPayload)-2] + " }")

		_, err := verifier.Parse(tampered, header)

		assert.True(t, errors.Is(err, domain.ErrInvalidSignature))
	})

	t.Run("ошибка: старая подпись", func(t *testing.T) {
		_, err := verifier.Parse([]byte(checkoutPayload), sign(t, checkoutPayload, time.Now().Add(-time.Hour)))

		assert.True(t, errors.Is(err, domain.ErrInvalidSignature))
	})

	t.Run("ошибка: нет заголовка или секрета", func(t *testing.T) {
		_, err := verifier.Parse([]byte(checkoutPayload), "")
		assert.True(t, errors.Is(err, domain.ErrInvalidSignature))

		_, err = NewWebhookVerifier("").Parse([]byte(checkoutPayload), sign(t, checkoutPayload, time.Now()))
		assert.True(t, errors.Is(err, domain.ErrInvalidSignature))
	})
}

type fakeIter struct {
	sessions []*stripego.CheckoutSession
	err      error
	pos      int
}

func (it *fakeIter) Next() bool {
	if it.pos >= len(it.sessions) {
		return false
	}
	it.pos++
	return true
}

func (it *fakeIter) CheckoutSession() *stripego.CheckoutSession { return it.sessions[it.pos-1] }

func (it *fakeIter) Err() error { return it.err }

func TestCheckoutResolver_ResolveCheckout(t *testing.T) {
	t.Run("сессия найдена", func(t *testing.T) {
		var got *stripego.CheckoutSessionListParams
		r := &CheckoutResolver{list: func(params *stripego.CheckoutSessionListParams) sessionIter {
			got = params
			return &fakeIter{sessions: []*stripego.CheckoutSession{{ID: "cs_1"}}}
		}}

		id, err := r.ResolveCheckout(context.Background(), "pi_1")

		require.NoError(t, err)
		assert.Equal(t, "cs_1", id)
		assert.Equal(t, "pi_1", *got.PaymentIntent)
	})

	t.Run("сессии нет", func(t *testing.T) {
		r := &CheckoutResolver{list: func(*stripego.CheckoutSessionListParams) sessionIter { return &fakeIter{} }}

		_, err := r.ResolveCheckout(context.Background(), "pi_1")

		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("ошибка API", func(t *testing.T) {
		boom := errors.New("api unavailable")
		r := &CheckoutResolver{list: func(*stripego.CheckoutSessionListParams) sessionIter { return &fakeIter{err: boom} }}

		_, err := r.ResolveCheckout(context.Background(), "pi_1")

		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, domain.ErrNotFound))
	})
}
