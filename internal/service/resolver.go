package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/repository"
)

// resolveEntitlement - единственный источник истины о доступе. Кэш на
// аккаунте не читается: решение строится заново по лицензиям и грантам.
// Неизвестный аккаунт получает NoEntitlement, а не ошибку.
func resolveEntitlement(ctx context.Context, uow repository.UnitOfWork, accountID string, now time.Time) (domain.Entitlement, error) {
	if accountID == "" {
		return domain.NoEntitlement(), nil
	}

	owned, err := uow.Licenses().GetByOwner(ctx, accountID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.Entitlement{}, fmt.Errorf("get owned license: %w", err)
	}
	if owned.IsActive(now) {
		return domain.ComputeEntitlement(owned, nil, now), nil
	}

	grants, err := uow.SeatGrants().ListActiveByAccount(ctx, accountID)
	if err != nil {
		return domain.Entitlement{}, fmt.Errorf("list memberships: %w", err)
	}

	memberships := make([]domain.Membership, 0, len(grants))
	for _, grant := range grants {
		license, err := uow.Licenses().GetByID(ctx, grant.LicenseID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.Entitlement{}, fmt.Errorf("get membership license: %w", err)
		}
		memberships = append(memberships, domain.Membership{Grant: grant, License: license})
	}

	return domain.ComputeEntitlement(owned, memberships, now), nil
}
