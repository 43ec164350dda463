package handler

import (
	"go.uber.org/zap"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/service"
)

// WebhookParser проверяет подпись вебхука и возвращает событие оплаты.
type WebhookParser interface {
	Parse(payload []byte, signatureHeader string) (domain.PaymentEvent, error)
}

type Handler struct {
	entitlementService service.EntitlementService
	inviteService      service.InviteService
	paymentService     service.PaymentService
	accountService     service.AccountService
	webhooks           WebhookParser
	logger             *zap.Logger
}

func NewHandler(
	entitlementService service.EntitlementService,
	inviteService service.InviteService,
	paymentService service.PaymentService,
	accountService service.AccountService,
	webhooks WebhookParser,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		entitlementService: entitlementService,
		inviteService:      inviteService,
		paymentService:     paymentService,
		accountService:     accountService,
		webhooks:           webhooks,
		logger:             logger,
	}
}
