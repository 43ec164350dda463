package service

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

type MockCheckoutResolver struct {
	mock.Mock
}

func (m *MockCheckoutResolver) ResolveCheckout(ctx context.Context, paymentRef string) (string, error) {
	args := m.Called(ctx, paymentRef)
	return args.String(0), args.Error(1)
}
