package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/repository"
)

type inviteService struct {
	store    repository.Store
	syncer   *CacheSynchronizer
	notifier Notifier
	cfg      InviteConfig
	logger   *zap.Logger
	now      Clock
}

// NewInviteService создает новый экземпляр InviteService
func NewInviteService(
	store repository.Store,
	syncer *CacheSynchronizer,
	notifier Notifier,
	cfg InviteConfig,
	logger *zap.Logger,
	clock Clock,
) InviteService {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultInviteTTL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inviteService{
		store:    store,
		syncer:   syncer,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      clockOrSystem(clock),
	}
}

// CreateInvite выдает приглашение на место в командной лицензии.
// Проверки идут в фиксированном порядке: права, email, места, повтор, сам себя.
func (s *inviteService) CreateInvite(ctx context.Context, licenseID, inviterID, email string) (*domain.IssuedInvite, error) {
	email = domain.NormalizeEmail(email)
	token, err := generateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("generate invite token: %w", err)
	}

	var (
		issued *domain.IssuedInvite
		owner  *domain.Account
	)
	err = s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		now := s.now()

		license, err := uow.Licenses().GetByIDForUpdate(ctx, licenseID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotAuthorized
		}
		if err != nil {
			return fmt.Errorf("lock license: %w", err)
		}
		if license.OwnerAccountID != inviterID ||
			license.Class != domain.LicenseClassTeam ||
			!license.IsActive(now) {
			return domain.ErrNotAuthorized
		}

		if err := domain.ValidateEmail(email); err != nil {
			return err
		}

		grants, err := uow.SeatGrants().ListOpenByLicense(ctx, license.ID)
		if err != nil {
			return fmt.Errorf("list seats: %w", err)
		}
		if !domain.CountSeats(license, grants, now).CanInvite() {
			return domain.ErrSeatsFull
		}

		var stale *domain.SeatGrant
		for _, g := range grants {
			if !domain.SameEmail(g.InvitedEmail, email) {
				continue
			}
			if g.IsExpired(now) {
				stale = g
				continue
			}
			return domain.ErrAlreadyInvited
		}

		owner, err = uow.Accounts().GetByID(ctx, inviterID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotAuthorized
		}
		if err != nil {
			return fmt.Errorf("get inviter: %w", err)
		}
		if domain.SameEmail(owner.Email, email) {
			return domain.ErrCannotInviteSelf
		}

		// просроченный грант освобождает email для нового приглашения
		if stale != nil {
			stale.Retire(now)
			if err := uow.SeatGrants().Update(ctx, stale); err != nil {
				return fmt.Errorf("retire expired invite: %w", err)
			}
		}

		hash := hashInviteToken(token)
		expiresAt := now.Add(s.cfg.TTL)
		grant := &domain.SeatGrant{
			ID:              uuid.NewString(),
			LicenseID:       license.ID,
			InvitedEmail:    email,
			Role:            domain.SeatRoleMember,
			Status:          domain.SeatStatusInvited,
			InviteTokenHash: &hash,
			InviteExpiresAt: &expiresAt,
			InvitedAt:       now,
		}
		if err := uow.SeatGrants().Create(ctx, grant); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.ErrAlreadyInvited
			}
			return fmt.Errorf("create seat grant: %w", err)
		}

		issued = &domain.IssuedInvite{
			Grant:     grant,
			Token:     token,
			SignupURL: s.signupURL(email, token),
			AcceptURL: s.acceptURL(token),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invite created",
		zap.String("license_id", licenseID),
		zap.String("grant_id", issued.Grant.ID),
	)

	msg := inviteMessage(owner.Name(), issued)
	s.notify(ctx, email, msg)

	return issued, nil
}

func (s *inviteService) AcceptInvite(ctx context.Context, token, accepterID, accepterEmail string) (*domain.SeatGrant, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrInviteNotFound
	}

	grant, err := s.store.SeatGrants().GetInvitedByTokenHash(ctx, hashInviteToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find invite: %w", err)
	}

	var res acceptance
	err = s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		var err error
		res, err = s.acceptWithin(ctx, uow, grant.ID, accepterID, accepterEmail)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterAccept(ctx, res)
	return res.grant, nil
}

func (s *inviteService) AutoAcceptPendingInvites(ctx context.Context, accountID, email string) (*domain.AutoAcceptResult, error) {
	result := &domain.AutoAcceptResult{OwnerNames: []string{}}
	email = domain.NormalizeEmail(email)
	if accountID == "" || email == "" {
		return result, nil
	}

	candidates, err := s.store.SeatGrants().ListInvitedByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list pending invites: %w", err)
	}

	for _, candidate := range candidates {
		if candidate.IsExpired(s.now()) {
			continue
		}

		var res acceptance
		err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
			var err error
			res, err = s.acceptWithin(ctx, uow, candidate.ID, accountID, email)
			return err
		})

		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			s.logger.Debug("skip pending invite",
				zap.String("grant_id", candidate.ID),
				zap.String("reason", domainErr.Code),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		result.AcceptedCount++
		if res.owner != nil {
			result.OwnerNames = append(result.OwnerNames, res.owner.Name())
		}
		s.afterAccept(ctx, res)
	}

	return result, nil
}

// RemoveMember переводит грант в removed. Повторное удаление - успех.
func (s *inviteService) RemoveMember(ctx context.Context, memberID, requesterID string) error {
	var retired *domain.SeatGrant
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		grant, err := uow.SeatGrants().GetByID(ctx, memberID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewNotFoundError("member")
		}
		if err != nil {
			return fmt.Errorf("get seat grant: %w", err)
		}

		license, err := uow.Licenses().GetByIDForUpdate(ctx, grant.LicenseID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotAuthorized
		}
		if err != nil {
			return fmt.Errorf("lock license: %w", err)
		}
		if license.OwnerAccountID != requesterID {
			return domain.ErrNotAuthorized
		}

		grant, err = uow.SeatGrants().GetByID(ctx, memberID)
		if err != nil {
			return fmt.Errorf("reload seat grant: %w", err)
		}
		if grant.Status == domain.SeatStatusRemoved {
			return nil
		}

		grant.Retire(s.now())
		if err := uow.SeatGrants().Update(ctx, grant); err != nil {
			return fmt.Errorf("retire seat grant: %w", err)
		}
		retired = grant

		if grant.LinkedAccountID == nil {
			return nil
		}
		_, err = s.syncer.syncWithin(ctx, uow, *grant.LinkedAccountID)
		return err
	})
	if err != nil {
		return err
	}

	if retired != nil {
		s.logger.Info("member removed",
			zap.String("grant_id", retired.ID),
			zap.String("license_id", retired.LicenseID),
		)
	}
	return nil
}

type acceptance struct {
	grant    *domain.SeatGrant
	owner    *domain.Account
	accepter *domain.Account
}

// acceptWithin - общий переход invited -> active для ручного и
// автоматического принятия. Грант перечитывается под блокировкой
// лицензии, поэтому повторное принятие получает INVITE_NOT_FOUND.
func (s *inviteService) acceptWithin(ctx context.Context, uow repository.UnitOfWork, grantID, accepterID, accepterEmail string) (acceptance, error) {
	now := s.now()

	grant, err := uow.SeatGrants().GetByID(ctx, grantID)
	if errors.Is(err, repository.ErrNotFound) {
		return acceptance{}, domain.ErrInviteNotFound
	}
	if err != nil {
		return acceptance{}, fmt.Errorf("get seat grant: %w", err)
	}

	license, err := uow.Licenses().GetByIDForUpdate(ctx, grant.LicenseID)
	if errors.Is(err, repository.ErrNotFound) {
		return acceptance{}, domain.ErrLicenseInactive
	}
	if err != nil {
		return acceptance{}, fmt.Errorf("lock license: %w", err)
	}

	grant, err = uow.SeatGrants().GetByID(ctx, grantID)
	if err != nil {
		return acceptance{}, fmt.Errorf("reload seat grant: %w", err)
	}
	if grant.Status != domain.SeatStatusInvited {
		return acceptance{}, domain.ErrInviteNotFound
	}
	if grant.IsExpired(now) {
		return acceptance{}, domain.ErrInviteExpired
	}
	if !domain.SameEmail(grant.InvitedEmail, accepterEmail) {
		return acceptance{}, domain.NewEmailMismatchError(grant.InvitedEmail, domain.NormalizeEmail(accepterEmail))
	}
	if !license.IsActive(now) {
		return acceptance{}, domain.ErrLicenseInactive
	}
	if license.OwnerAccountID == accepterID {
		return acceptance{}, domain.ErrCannotInviteSelf
	}

	grants, err := uow.SeatGrants().ListOpenByLicense(ctx, license.ID)
	if err != nil {
		return acceptance{}, fmt.Errorf("list seats: %w", err)
	}
	if !domain.CountSeats(license, grants, now).CanActivate() {
		return acceptance{}, domain.ErrSeatsFull
	}

	accepter, err := uow.Accounts().GetByID(ctx, accepterID)
	if errors.Is(err, repository.ErrNotFound) {
		return acceptance{}, domain.ErrUnknownAccount
	}
	if err != nil {
		return acceptance{}, fmt.Errorf("get accepter: %w", err)
	}

	grant.Activate(accepterID, now)
	if err := uow.SeatGrants().Update(ctx, grant); err != nil {
		return acceptance{}, fmt.Errorf("activate seat grant: %w", err)
	}
	if _, err := s.syncer.syncWithin(ctx, uow, accepterID); err != nil {
		return acceptance{}, err
	}

	owner, err := uow.Accounts().GetByID(ctx, license.OwnerAccountID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return acceptance{}, fmt.Errorf("get license owner: %w", err)
	}

	return acceptance{grant: grant, owner: owner, accepter: accepter}, nil
}

func (s *inviteService) afterAccept(ctx context.Context, res acceptance) {
	s.logger.Info("invite accepted",
		zap.String("grant_id", res.grant.ID),
		zap.String("license_id", res.grant.LicenseID),
	)
	if res.owner == nil {
		return
	}
	s.notify(ctx, res.owner.Email, memberJoinedMessage(res.accepter.Name()))
}

func (s *inviteService) notify(ctx context.Context, to string, msg message) {
	deliver(ctx, s.notifier, s.logger, to, msg)
}

func (s *inviteService) signupURL(email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("invite", token)
	return s.cfg.BaseURL + "/signup?" + q.Encode()
}

func (s *inviteService) acceptURL(token string) string {
	q := url.Values{}
	q.Set("token", token)
	return s.cfg.BaseURL + "/invite/accept?" + q.Encode()
}
