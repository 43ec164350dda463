package service

import (
	"context"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type EntitlementService interface {
	ResolveEntitlement(ctx context.Context, accountID string) (domain.Entitlement, error)
	// CanAccessResource: пустой accountID означает анонимного посетителя.
	CanAccessResource(ctx context.Context, accountID string, gated bool) (bool, error)
	GetOwnedLicenseView(ctx context.Context, accountID string) (*domain.OwnedLicenseView, error)
	GetMembershipView(ctx context.Context, accountID string) ([]domain.MembershipDetail, error)
	ListTemplatePurchases(ctx context.Context, accountID string) ([]*domain.TemplatePurchase, error)
}
