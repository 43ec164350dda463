package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/repository"
)

// errAlreadyApplied откатывает транзакцию, проигравшую гонку за
// уникальный external_payment_id.
var errAlreadyApplied = errors.New("payment already applied")

type paymentService struct {
	store     repository.Store
	syncer    *CacheSynchronizer
	checkouts CheckoutResolver
	notifier  Notifier
	seats     domain.SeatPolicy
	logger    *zap.Logger
	now       Clock
}

// NewPaymentService создает новый экземпляр PaymentService
func NewPaymentService(
	store repository.Store,
	syncer *CacheSynchronizer,
	checkouts CheckoutResolver,
	notifier Notifier,
	seats domain.SeatPolicy,
	logger *zap.Logger,
	clock Clock,
) PaymentService {
	if seats == nil {
		seats = domain.DefaultSeatPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &paymentService{
		store:     store,
		syncer:    syncer,
		checkouts: checkouts,
		notifier:  notifier,
		seats:     seats,
		logger:    logger,
		now:       clockOrSystem(clock),
	}
}

func (s *paymentService) ProcessEvent(ctx context.Context, event domain.PaymentEvent) (domain.EventOutcome, error) {
	var (
		outcome domain.EventOutcome
		err     error
	)
	switch event.Kind {
	case domain.PaymentEventCheckoutCompleted:
		outcome, err = s.HandleCheckoutCompleted(ctx, event)
	case domain.PaymentEventChargeRefunded:
		outcome, err = s.HandleChargeRefunded(ctx, event)
	default:
		outcome = domain.EventIgnored
	}
	if err != nil {
		s.logger.Error("failed to process payment event",
			zap.String("event_id", event.EventID),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
		return "", err
	}

	s.logger.Info("payment event processed",
		zap.String("event_id", event.EventID),
		zap.String("kind", string(event.Kind)),
		zap.String("outcome", string(outcome)),
	)
	return outcome, nil
}

// HandleCheckoutCompleted создает или перезаписывает лицензию владельца
// (последняя покупка побеждает) либо записывает покупку шаблона.
func (s *paymentService) HandleCheckoutCompleted(ctx context.Context, event domain.PaymentEvent) (domain.EventOutcome, error) {
	if event.ExternalPaymentID == "" {
		s.logger.Warn("checkout event without payment id", zap.String("event_id", event.EventID))
		return domain.EventIgnored, nil
	}
	product, err := domain.ParseProduct(event.Product)
	if err != nil {
		s.logger.Warn("checkout for unknown product",
			zap.String("event_id", event.EventID),
			zap.String("product", event.Product),
		)
		return domain.EventIgnored, nil
	}

	var (
		outcome   domain.EventOutcome
		purchased *domain.License
		buyer     *domain.Account
	)
	err = s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		now := s.now()

		account, err := s.findAccount(ctx, uow, event)
		if errors.Is(err, domain.ErrUnknownAccount) {
			s.logger.Warn("checkout for unknown account",
				zap.String("event_id", event.EventID),
				zap.String("account_id", event.AccountID),
			)
			outcome = domain.EventIgnored
			return nil
		}
		if err != nil {
			return err
		}
		buyer = account

		if product.IsTemplate() {
			outcome, err = s.recordTemplatePurchase(ctx, uow, account.ID, product.TemplateID, event, now)
			return err
		}

		_, err = uow.Licenses().GetByExternalPaymentID(ctx, event.ExternalPaymentID)
		if err == nil {
			outcome = domain.EventDuplicate
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find license by payment: %w", err)
		}

		purchasedAt := event.OccurredAt
		if purchasedAt.IsZero() {
			purchasedAt = now
		}

		current, err := uow.Licenses().GetByOwner(ctx, account.ID)
		switch {
		case err == nil:
			if _, err := uow.Licenses().GetByIDForUpdate(ctx, current.ID); err != nil {
				return fmt.Errorf("lock license: %w", err)
			}
			// запоздавшая доставка старой покупки не перезаписывает новую
			if purchasedAt.Before(current.PurchasedAt) {
				outcome = domain.EventDuplicate
				return nil
			}
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("get owned license: %w", err)
		}

		capacity, err := s.seats.CapacityFor(product.Class)
		if err != nil {
			return err
		}

		license := &domain.License{
			ID:                uuid.NewString(),
			OwnerAccountID:    account.ID,
			Class:             product.Class,
			Status:            domain.LicenseStatusActive,
			SeatCapacity:      capacity,
			ExternalPaymentID: event.ExternalPaymentID,
			PurchasedAt:       purchasedAt,
		}
		if err := uow.Licenses().UpsertByOwner(ctx, license); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errAlreadyApplied
			}
			return fmt.Errorf("upsert license: %w", err)
		}

		retired, err := s.enforceSeatCapacity(ctx, uow, license, now)
		if err != nil {
			return err
		}

		members, err := activeMemberIDs(ctx, uow, license.ID)
		if err != nil {
			return err
		}
		accounts := append([]string{account.ID}, members...)
		if err := s.syncer.syncAll(ctx, uow, append(accounts, retired...)); err != nil {
			return err
		}

		purchased = license
		outcome = domain.EventApplied
		return nil
	})
	if errors.Is(err, errAlreadyApplied) {
		return domain.EventDuplicate, nil
	}
	if err != nil {
		return "", err
	}

	if purchased != nil {
		s.logger.Info("license purchased",
			zap.String("license_id", purchased.ID),
			zap.String("account_id", purchased.OwnerAccountID),
			zap.String("class", string(purchased.Class)),
		)
		deliver(ctx, s.notifier, s.logger, buyer.Email, purchaseMessage(purchased))
	}
	return outcome, nil
}

// HandleChargeRefunded переводит лицензию (или покупку шаблона) в refunded
// и пересчитывает доступ владельца и всех участников команды.
func (s *paymentService) HandleChargeRefunded(ctx context.Context, event domain.PaymentEvent) (domain.EventOutcome, error) {
	if event.RefundedPaymentRef == "" {
		return domain.EventIgnored, nil
	}

	checkoutID := event.RefundedPaymentRef
	if s.checkouts != nil {
		resolved, err := s.checkouts.ResolveCheckout(ctx, event.RefundedPaymentRef)
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("refund without checkout",
				zap.String("event_id", event.EventID),
				zap.String("payment_ref", event.RefundedPaymentRef),
			)
			return domain.EventIgnored, nil
		}
		if err != nil {
			return "", fmt.Errorf("resolve checkout: %w", err)
		}
		checkoutID = resolved
	}

	var outcome domain.EventOutcome
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		license, err := uow.Licenses().GetByExternalPaymentID(ctx, checkoutID)
		if errors.Is(err, repository.ErrNotFound) {
			outcome, err = s.refundTemplatePurchase(ctx, uow, checkoutID)
			return err
		}
		if err != nil {
			return fmt.Errorf("find license by payment: %w", err)
		}

		if _, err := uow.Accounts().GetByIDForUpdate(ctx, license.OwnerAccountID); err != nil &&
			!errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lock owner: %w", err)
		}
		license, err = uow.Licenses().GetByIDForUpdate(ctx, license.ID)
		if err != nil {
			return fmt.Errorf("lock license: %w", err)
		}
		// лицензию уже перезаписала более новая покупка
		if license.ExternalPaymentID != checkoutID {
			outcome = domain.EventIgnored
			return nil
		}

		if license.Status == domain.LicenseStatusRefunded {
			outcome = domain.EventDuplicate
		} else {
			if err := uow.Licenses().UpdateStatus(ctx, license.ID, domain.LicenseStatusRefunded); err != nil {
				return fmt.Errorf("refund license: %w", err)
			}
			outcome = domain.EventApplied
		}

		members, err := activeMemberIDs(ctx, uow, license.ID)
		if err != nil {
			return err
		}
		return s.syncer.syncAll(ctx, uow, append([]string{license.OwnerAccountID}, members...))
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// findAccount ищет покупателя по id, затем по email.
func (s *paymentService) findAccount(ctx context.Context, uow repository.UnitOfWork, event domain.PaymentEvent) (*domain.Account, error) {
	if event.AccountID != "" {
		account, err := uow.Accounts().GetByIDForUpdate(ctx, event.AccountID)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("get account: %w", err)
		}
	}

	if event.AccountEmail != "" {
		account, err := uow.Accounts().GetByEmail(ctx, event.AccountEmail)
		if err == nil {
			return uow.Accounts().GetByIDForUpdate(ctx, account.ID)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("get account by email: %w", err)
		}
	}

	return nil, domain.ErrUnknownAccount
}

func (s *paymentService) recordTemplatePurchase(
	ctx context.Context,
	uow repository.UnitOfWork,
	accountID, templateID string,
	event domain.PaymentEvent,
	now time.Time,
) (domain.EventOutcome, error) {
	purchasedAt := event.OccurredAt
	if purchasedAt.IsZero() {
		purchasedAt = now
	}
	created, err := uow.TemplatePurchases().Create(ctx, &domain.TemplatePurchase{
		ID:                uuid.NewString(),
		AccountID:         accountID,
		TemplateID:        templateID,
		ExternalPaymentID: event.ExternalPaymentID,
		Status:            domain.PurchaseStatusActive,
		PurchasedAt:       purchasedAt,
	})
	if err != nil {
		return "", fmt.Errorf("create template purchase: %w", err)
	}
	if !created {
		return domain.EventDuplicate, nil
	}
	return domain.EventApplied, nil
}

func (s *paymentService) refundTemplatePurchase(ctx context.Context, uow repository.UnitOfWork, checkoutID string) (domain.EventOutcome, error) {
	purchase, err := uow.TemplatePurchases().GetByExternalPaymentID(ctx, checkoutID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.EventIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("find template purchase: %w", err)
	}
	if purchase.Status == domain.PurchaseStatusRefunded {
		return domain.EventDuplicate, nil
	}
	if err := uow.TemplatePurchases().UpdateStatus(ctx, purchase.ID, domain.PurchaseStatusRefunded); err != nil {
		return "", fmt.Errorf("refund template purchase: %w", err)
	}
	return domain.EventApplied, nil
}

// enforceSeatCapacity убирает лишние гранты, если новая покупка уменьшила
// лицензию: сначала свежие приглашения, затем недавно вступившие участники.
// Возвращает аккаунты, потерявшие место.
func (s *paymentService) enforceSeatCapacity(ctx context.Context, uow repository.UnitOfWork, license *domain.License, now time.Time) ([]string, error) {
	grants, err := uow.SeatGrants().ListOpenByLicense(ctx, license.ID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}

	var pending, active []*domain.SeatGrant
	for _, g := range grants {
		switch {
		case g.Status == domain.SeatStatusActive:
			active = append(active, g)
		case g.IsPending(now):
			pending = append(pending, g)
		}
	}

	usage := domain.CountSeats(license, grants, now)
	excess := len(pending) + len(active) - usage.MaxMembers()
	if excess <= 0 {
		return nil, nil
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].InvitedAt.After(pending[j].InvitedAt)
	})
	sort.SliceStable(active, func(i, j int) bool {
		return joinedAt(active[i]).After(joinedAt(active[j]))
	})

	var retired []string
	for _, g := range append(pending, active...) {
		if excess == 0 {
			break
		}
		g.Retire(now)
		if err := uow.SeatGrants().Update(ctx, g); err != nil {
			return nil, fmt.Errorf("retire seat grant: %w", err)
		}
		if g.LinkedAccountID != nil {
			retired = append(retired, *g.LinkedAccountID)
		}
		excess--
	}

	s.logger.Info("seats retired after downgrade",
		zap.String("license_id", license.ID),
		zap.Int("capacity", license.SeatCapacity),
		zap.Int("retired_members", len(retired)),
	)
	return retired, nil
}

func joinedAt(g *domain.SeatGrant) time.Time {
	if g.JoinedAt != nil {
		return *g.JoinedAt
	}
	return g.InvitedAt
}

func activeMemberIDs(ctx context.Context, uow repository.UnitOfWork, licenseID string) ([]string, error) {
	grants, err := uow.SeatGrants().ListOpenByLicense(ctx, licenseID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	var ids []string
	for _, g := range grants {
		if g.Status == domain.SeatStatusActive && g.LinkedAccountID != nil {
			ids = append(ids, *g.LinkedAccountID)
		}
	}
	return ids, nil
}
