package service

import (
	"context"
	"time"
)

// Clock возвращает текущее время; в тестах подменяется.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func clockOrSystem(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

// Notifier отправляет готовое письмо. Ошибка отправки не откатывает
// изменение состояния, которое ее вызвало.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// CheckoutResolver находит checkout-сессию, породившую платеж.
// Возвращает domain.ErrNotFound, если платеж не связан с checkout.
type CheckoutResolver interface {
	ResolveCheckout(ctx context.Context, paymentRef string) (string, error)
}
