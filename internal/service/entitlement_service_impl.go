package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/repository"
)

type entitlementService struct {
	store repository.Store
	now   Clock
}

// NewEntitlementService создает новый экземпляр EntitlementService
func NewEntitlementService(store repository.Store, clock Clock) EntitlementService {
	return &entitlementService{
		store: store,
		now:   clockOrSystem(clock),
	}
}

func (s *entitlementService) ResolveEntitlement(ctx context.Context, accountID string) (domain.Entitlement, error) {
	return resolveEntitlement(ctx, s.store, accountID, s.now())
}

func (s *entitlementService) CanAccessResource(ctx context.Context, accountID string, gated bool) (bool, error) {
	if !gated {
		return true, nil
	}
	if accountID == "" {
		return false, nil
	}

	ent, err := s.ResolveEntitlement(ctx, accountID)
	if err != nil {
		return false, err
	}
	return ent.HasAccess, nil
}

// GetOwnedLicenseView возвращает лицензию владельца с занятыми местами.
// Аккаунт без лицензии получает NOT_FOUND.
func (s *entitlementService) GetOwnedLicenseView(ctx context.Context, accountID string) (*domain.OwnedLicenseView, error) {
	license, err := s.store.Licenses().GetByOwner(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.NewNotFoundError("license")
	}
	if err != nil {
		return nil, fmt.Errorf("get owned license: %w", err)
	}

	grants, err := s.store.SeatGrants().ListOpenByLicense(ctx, license.ID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}

	now := s.now()
	seats := make([]*domain.SeatGrant, 0, len(grants))
	for _, g := range grants {
		if g.OccupiesSeat(now) {
			seats = append(seats, g)
		}
	}

	return &domain.OwnedLicenseView{
		License: license,
		Seats:   seats,
		Usage:   domain.CountSeats(license, grants, now),
	}, nil
}

func (s *entitlementService) GetMembershipView(ctx context.Context, accountID string) ([]domain.MembershipDetail, error) {
	grants, err := s.store.SeatGrants().ListActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	now := s.now()
	details := make([]domain.MembershipDetail, 0, len(grants))
	for _, grant := range grants {
		license, err := s.store.Licenses().GetByID(ctx, grant.LicenseID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get membership license: %w", err)
		}
		if !license.IsActive(now) {
			continue
		}

		detail := domain.MembershipDetail{Grant: grant, License: license}
		owner, err := s.store.Accounts().GetByID(ctx, license.OwnerAccountID)
		switch {
		case err == nil:
			detail.OwnerName = owner.Name()
			detail.OwnerEmail = owner.Email
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("get license owner: %w", err)
		}
		details = append(details, detail)
	}

	return details, nil
}

func (s *entitlementService) ListTemplatePurchases(ctx context.Context, accountID string) ([]*domain.TemplatePurchase, error) {
	purchases, err := s.store.TemplatePurchases().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list template purchases: %w", err)
	}
	return purchases, nil
}
