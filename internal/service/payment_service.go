package service

import (
	"context"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

// PaymentService применяет проверенные события оплаты. Повторная доставка
// того же события возвращает EventDuplicate и ничего не меняет.
type PaymentService interface {
	ProcessEvent(ctx context.Context, event domain.PaymentEvent) (domain.EventOutcome, error)
	HandleCheckoutCompleted(ctx context.Context, event domain.PaymentEvent) (domain.EventOutcome, error)
	HandleChargeRefunded(ctx context.Context, event domain.PaymentEvent) (domain.EventOutcome, error)
}
