package repository

import (
	"context"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type TemplatePurchaseRepository interface {
	// Create возвращает false, если покупка с таким ExternalPaymentID уже есть.
	Create(ctx context.Context, purchase *domain.TemplatePurchase) (bool, error)
	GetByExternalPaymentID(ctx context.Context, externalPaymentID string) (*domain.TemplatePurchase, error)
	UpdateStatus(ctx context.Context, id string, status domain.PurchaseStatus) error
	ListByAccount(ctx context.Context, accountID string) ([]*domain.TemplatePurchase, error)
}
