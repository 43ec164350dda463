package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/repository"
)

// CacheSynchronizer пересчитывает has_active_license/license_class на
// аккаунте после каждой операции, которая может изменить доступ.
// Писатели вызывают syncWithin в своей транзакции, поэтому кэш
// фиксируется вместе с изменением.
type CacheSynchronizer struct {
	store  repository.Store
	logger *zap.Logger
	now    Clock
}

func NewCacheSynchronizer(store repository.Store, logger *zap.Logger, clock Clock) *CacheSynchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheSynchronizer{
		store:  store,
		logger: logger,
		now:    clockOrSystem(clock),
	}
}

// SyncCache пересчитывает кэш одного аккаунта в отдельной транзакции.
func (s *CacheSynchronizer) SyncCache(ctx context.Context, accountID string) (domain.Entitlement, error) {
	var ent domain.Entitlement
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		var err error
		ent, err = s.syncWithin(ctx, uow, accountID)
		return err
	})
	return ent, err
}

func (s *CacheSynchronizer) syncWithin(ctx context.Context, uow repository.UnitOfWork, accountID string) (domain.Entitlement, error) {
	ent, err := resolveEntitlement(ctx, uow, accountID, s.now())
	if err != nil {
		return domain.Entitlement{}, err
	}

	err = uow.Accounts().UpdateEntitlementCache(ctx, accountID, ent.HasAccess, ent.Class)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("skip cache sync for unknown account", zap.String("account_id", accountID))
		return ent, nil
	}
	if err != nil {
		return domain.Entitlement{}, fmt.Errorf("update entitlement cache: %w", err)
	}

	s.logger.Debug("entitlement cache synced",
		zap.String("account_id", accountID),
		zap.Bool("has_active_license", ent.HasAccess),
		zap.String("license_class", string(ent.Class)),
	)
	return ent, nil
}

// syncAll синхронизирует несколько аккаунтов, пропуская повторы.
func (s *CacheSynchronizer) syncAll(ctx context.Context, uow repository.UnitOfWork, accountIDs []string) error {
	seen := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.syncWithin(ctx, uow, id); err != nil {
			return err
		}
	}
	return nil
}
