package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/repository"
)

type accountService struct {
	store  repository.Store
	syncer *CacheSynchronizer
}

// NewAccountService создает новый экземпляр AccountService
func NewAccountService(store repository.Store, syncer *CacheSynchronizer) AccountService {
	return &accountService{
		store:  store,
		syncer: syncer,
	}
}

func (s *accountService) RegisterAccount(ctx context.Context, id, email, displayName string) (*domain.Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewBadRequestError("account id is required")
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:          id,
		Email:       domain.NormalizeEmail(email),
		DisplayName: strings.TrimSpace(displayName),
	}
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		if err := uow.Accounts().Upsert(ctx, account); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.NewBadRequestError("email is already used by another account")
			}
			return fmt.Errorf("upsert account: %w", err)
		}

		ent, err := s.syncer.syncWithin(ctx, uow, account.ID)
		if err != nil {
			return err
		}
		account.HasActiveLicense = ent.HasAccess
		account.LicenseClass = ent.Class
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}
