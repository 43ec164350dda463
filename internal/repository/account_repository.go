package repository

import (
	"context"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByIDForUpdate блокирует строку аккаунта до конца транзакции.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Upsert(ctx context.Context, account *domain.Account) error
	UpdateEntitlementCache(ctx context.Context, id string, hasActiveLicense bool, class domain.LicenseClass) error
}
