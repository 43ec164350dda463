package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	ctx          context.Context
	store        *memory.Store
	clock        *fakeClock
	logs         *observer.ObservedLogs
	notifier     *MockNotifier
	checkouts    *MockCheckoutResolver
	syncer       *CacheSynchronizer
	invites      InviteService
	payments     PaymentService
	entitlements EntitlementService
	accounts     AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	f := &fixture{
		ctx:       context.Background(),
		store:     memory.NewStore(),
		clock:     &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		logs:      logs,
		notifier:  new(MockNotifier),
		checkouts: new(MockCheckoutResolver),
	}
	clock := Clock(f.clock.Now)

	f.syncer = NewCacheSynchronizer(f.store, logger, clock)
	f.invites = NewInviteService(f.store, f.syncer, f.notifier, InviteConfig{
		TTL:     7 * 24 * time.Hour,
		BaseURL: "https://app.example.com/",
	}, logger, clock)
	f.payments = NewPaymentService(f.store, f.syncer, f.checkouts, f.notifier, domain.DefaultSeatPolicy(), logger, clock)
	f.entitlements = NewEntitlementService(f.store, clock)
	f.accounts = NewAccountService(f.store, f.syncer)
	return f
}

// allowNotifications разрешает любые письма; тесты, проверяющие письма,
// настраивают мок сами.
func (f *fixture) allowNotifications() {
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (f *fixture) account(t *testing.T, id, email, name string) *domain.Account {
	t.Helper()
	account := &domain.Account{ID: id, Email: email, DisplayName: name}
	require.NoError(t, f.store.Accounts().Upsert(f.ctx, account))
	return account
}

func (f *fixture) buy(t *testing.T, ownerID, product, paymentID string) *domain.License {
	t.Helper()
	outcome, err := f.payments.HandleCheckoutCompleted(f.ctx, domain.PaymentEvent{
		EventID:           "evt_" + paymentID,
		Kind:              domain.PaymentEventCheckoutCompleted,
		ExternalPaymentID: paymentID,
		AccountID:         ownerID,
		Product:           product,
		OccurredAt:        f.clock.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, domain.EventApplied, outcome)

	license, err := f.store.Licenses().GetByOwner(f.ctx, ownerID)
	require.NoError(t, err)
	return license
}

func (f *fixture) join(t *testing.T, license *domain.License, memberID, email string) *domain.SeatGrant {
	t.Helper()
	f.account(t, memberID, email, "")
	invite, err := f.invites.CreateInvite(f.ctx, license.ID, license.OwnerAccountID, email)
	require.NoError(t, err)
	grant, err := f.invites.AcceptInvite(f.ctx, invite.Token, memberID, email)
	require.NoError(t, err)
	return grant
}

// seedInvite кладет приглашение напрямую в хранилище, минуя проверку мест:
// так выглядят приглашения, выданные конкурентно у границы лимита.
func (f *fixture) seedInvite(t *testing.T, licenseID, email string) string {
	t.Helper()
	token, err := generateInviteToken()
	require.NoError(t, err)

	hash := hashInviteToken(token)
	expires := f.clock.Now().Add(7 * 24 * time.Hour)
	require.NoError(t, f.store.SeatGrants().Create(f.ctx, &domain.SeatGrant{
		ID:              uuid.NewString(),
		LicenseID:       licenseID,
		InvitedEmail:    email,
		Role:            domain.SeatRoleMember,
		Status:          domain.SeatStatusInvited,
		InviteTokenHash: &hash,
		InviteExpiresAt: &expires,
		InvitedAt:       f.clock.Now(),
	}))
	return token
}

func (f *fixture) cached(t *testing.T, accountID string) (bool, domain.LicenseClass) {
	t.Helper()
	account, err := f.store.Accounts().GetByID(f.ctx, accountID)
	require.NoError(t, err)
	return account.HasActiveLicense, account.LicenseClass
}
