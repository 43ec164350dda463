package stripe

import (
	"context"
	"fmt"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type sessionIter interface {
	Next() bool
	CheckoutSession() *stripego.CheckoutSession
	Err() error
}

// CheckoutResolver ищет checkout-сессию по PaymentIntent через Stripe API.
type CheckoutResolver struct {
	list func(params *stripego.CheckoutSessionListParams) sessionIter
}

func NewCheckoutResolver(secretKey string) *CheckoutResolver {
	client := &session.Client{B: stripego.GetBackend(stripego.APIBackend), Key: secretKey}
	return &CheckoutResolver{
		list: func(params *stripego.CheckoutSessionListParams) sessionIter {
			return client.List(params)
		},
	}
}

func (r *CheckoutResolver) ResolveCheckout(ctx context.Context, paymentRef string) (string, error) {
	params := &stripego.CheckoutSessionListParams{PaymentIntent: stripego.String(paymentRef)}
	params.Context = ctx
	params.Limit = stripego.Int64(1)

	iter := r.list(params)
	if iter.Next() {
		return iter.CheckoutSession().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("list checkout sessions: %w", err)
	}
	return "", domain.NewNotFoundError("checkout session")
}
