package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

func TestAccountService_RegisterAccount(t *testing.T) {
	t.Run("успешная регистрация", func(t *testing.T) {
		f := newFixture(t)

		account, err := f.accounts.RegisterAccount(f.ctx, "acc-1", " Alice@Example.com ", " Alice ")

		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", account.Email)
		assert.Equal(t, "Alice", account.DisplayName)
		assert.False(t, account.HasActiveLicense)
		assert.Equal(t, domain.LicenseClassNone, account.LicenseClass)
	})

	t.Run("повторный вход пересчитывает кэш", func(t *testing.T) {
		f := newFixture(t)
		f.allowNotifications()
		f.account(t, "acc-1", "alice@example.com", "Alice")
		f.buy(t, "acc-1", "individual", "cs_1")
		require.NoError(t, f.store.Accounts().UpdateEntitlementCache(f.ctx, "acc-1", false, domain.LicenseClassNone))

		account, err := f.accounts.RegisterAccount(f.ctx, "acc-1", "alice@example.com", "")

		require.NoError(t, err)
		assert.Equal(t, "Alice", account.DisplayName)
		assert.True(t, account.HasActiveLicense)
		assert.Equal(t, domain.LicenseClassIndividual, account.LicenseClass)
	})

	t.Run("ошибка: невалидный email", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.accounts.RegisterAccount(f.ctx, "acc-1", "nope", "")

		assert.True(t, errors.Is(err, domain.ErrInvalidEmail))
	})

	t.Run("ошибка: email занят", func(t *testing.T) {
		f := newFixture(t)
		f.account(t, "acc-1", "alice@example.com", "")

		_, err := f.accounts.RegisterAccount(f.ctx, "acc-2", "ALICE@example.com", "")

		var domainErr *domain.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, domain.CodeBadRequest, domainErr.Code)
	})

	t.Run("ошибка: пустой id", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.accounts.RegisterAccount(f.ctx, " ", "alice@example.com", "")

		var domainErr *domain.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, domain.CodeBadRequest, domainErr.Code)
	})
}

func TestCacheSynchronizer_SyncCache(t *testing.T) {
	t.Run("неизвестный аккаунт пропускается с предупреждением", func(t *testing.T) {
		f := newFixture(t)

		ent, err := f.syncer.SyncCache(f.ctx, "ghost")

		require.NoError(t, err)
		assert.False(t, ent.HasAccess)
		entries := f.logs.FilterMessage("skip cache sync for unknown account").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})

	t.Run("исправляет устаревший кэш", func(t *testing.T) {
		f := newFixture(t)
		f.account(t, "acc", "acc@example.com", "")
		require.NoError(t, f.store.Accounts().UpdateEntitlementCache(f.ctx, "acc", true, domain.LicenseClassTeam))

		_, err := f.syncer.SyncCache(f.ctx, "acc")

		require.NoError(t, err)
		hasAccess, class := f.cached(t, "acc")
		assert.False(t, hasAccess)
		assert.Equal(t, domain.LicenseClassNone, class)
	})
}
