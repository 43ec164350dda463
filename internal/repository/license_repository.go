package repository

import (
	"context"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type LicenseRepository interface {
	GetByID(ctx context.Context, id string) (*domain.License, error)
	// GetByIDForUpdate сериализует все изменения пула мест одной лицензии.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.License, error)
	GetByOwner(ctx context.Context, ownerAccountID string) (*domain.License, error)
	GetByExternalPaymentID(ctx context.Context, externalPaymentID string) (*domain.License, error)
	// UpsertByOwner создает лицензию или перезаписывает существующую лицензию владельца.
	UpsertByOwner(ctx context.Context, license *domain.License) error
	UpdateStatus(ctx context.Context, id string, status domain.LicenseStatus) error
}
