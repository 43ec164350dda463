package repository

import (
	"context"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type SeatGrantRepository interface {
	Create(ctx context.Context, grant *domain.SeatGrant) error
	Update(ctx context.Context, grant *domain.SeatGrant) error
	GetByID(ctx context.Context, id string) (*domain.SeatGrant, error)
	// GetInvitedByTokenHash ищет только гранты в статусе invited.
	GetInvitedByTokenHash(ctx context.Context, tokenHash string) (*domain.SeatGrant, error)
	// ListOpenByLicense возвращает invited и active гранты лицензии.
	ListOpenByLicense(ctx context.Context, licenseID string) ([]*domain.SeatGrant, error)
	ListInvitedByEmail(ctx context.Context, email string) ([]*domain.SeatGrant, error)
	ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.SeatGrant, error)
}
