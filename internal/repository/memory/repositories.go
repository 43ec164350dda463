package memory

import (
	"context"
	"sort"
	"time"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/repository"
)

type accountRepository struct {
	access
}

func (r *accountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	var out *domain.Account
	err := r.read(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyAccount(a)
		return nil
	})
	return out, err
}

func (r *accountRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *accountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)
	var out *domain.Account
	err := r.read(func(st *state) error {
		for _, a := range st.accounts {
			if a.Email == email {
				out = copyAccount(a)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *accountRepository) Upsert(_ context.Context, account *domain.Account) error {
	account.Email = domain.NormalizeEmail(account.Email)
	now := time.Now().UTC()
	return r.write(func(st *state) error {
		for id, a := range st.accounts {
			if id != account.ID && a.Email == account.Email {
				return repository.ErrConflict
			}
		}

		existing, ok := st.accounts[account.ID]
		if !ok {
			account.HasActiveLicense = false
			account.LicenseClass = domain.LicenseClassNone
			account.CreatedAt = now
			account.UpdatedAt = nil
			st.accounts[account.ID] = copyAccount(account)
			return nil
		}

		existing.Email = account.Email
		if account.DisplayName != "" {
			existing.DisplayName = account.DisplayName
		}
		existing.UpdatedAt = &now

		account.DisplayName = existing.DisplayName
		account.HasActiveLicense = existing.HasActiveLicense
		account.LicenseClass = existing.LicenseClass
		account.CreatedAt = existing.CreatedAt
		account.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *accountRepository) UpdateEntitlementCache(_ context.Context, id string, hasActiveLicense bool, class domain.LicenseClass) error {
	now := time.Now().UTC()
	return r.write(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return repository.ErrNotFound
		}
		a.HasActiveLicense = hasActiveLicense
		a.LicenseClass = class
		a.UpdatedAt = &now
		return nil
	})
}

type licenseRepository struct {
	access
}

func (r *licenseRepository) find(match func(l *domain.License) bool) (*domain.License, error) {
	var out *domain.License
	err := r.read(func(st *state) error {
		for _, l := range st.licenses {
			if match(l) {
				out = copyLicense(l)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *licenseRepository) GetByID(_ context.Context, id string) (*domain.License, error) {
	return r.find(func(l *domain.License) bool { return l.ID == id })
}

func (r *licenseRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.License, error) {
	return r.GetByID(ctx, id)
}

func (r *licenseRepository) GetByOwner(_ context.Context, ownerAccountID string) (*domain.License, error) {
	return r.find(func(l *domain.License) bool { return l.OwnerAccountID == ownerAccountID })
}

func (r *licenseRepository) GetByExternalPaymentID(_ context.Context, externalPaymentID string) (*domain.License, error) {
	return r.find(func(l *domain.License) bool { return l.ExternalPaymentID == externalPaymentID })
}

func (r *licenseRepository) UpsertByOwner(_ context.Context, license *domain.License) error {
	now := time.Now().UTC()
	return r.write(func(st *state) error {
		var existing *domain.License
		for _, l := range st.licenses {
			if l.OwnerAccountID == license.OwnerAccountID {
				existing = l
				continue
			}
			if l.ExternalPaymentID == license.ExternalPaymentID {
				return repository.ErrConflict
			}
		}

		if existing == nil {
			license.CreatedAt = now
			license.UpdatedAt = nil
			st.licenses[license.ID] = copyLicense(license)
			return nil
		}

		existing.Class = license.Class
		existing.Status = license.Status
		existing.SeatCapacity = license.SeatCapacity
		existing.ExternalPaymentID = license.ExternalPaymentID
		existing.PurchasedAt = license.PurchasedAt
		existing.ExpiresAt = copyTime(license.ExpiresAt)
		existing.UpdatedAt = &now

		license.ID = existing.ID
		license.CreatedAt = existing.CreatedAt
		license.UpdatedAt = copyTime(existing.UpdatedAt)
		return nil
	})
}

func (r *licenseRepository) UpdateStatus(_ context.Context, id string, status domain.LicenseStatus) error {
	now := time.Now().UTC()
	return r.write(func(st *state) error {
		l, ok := st.licenses[id]
		if !ok {
			return repository.ErrNotFound
		}
		l.Status = status
		l.UpdatedAt = &now
		return nil
	})
}

type seatGrantRepository struct {
	access
}

func (r *seatGrantRepository) Create(_ context.Context, grant *domain.SeatGrant) error {
	grant.InvitedEmail = domain.NormalizeEmail(grant.InvitedEmail)
	return r.write(func(st *state) error {
		if _, ok := st.seatGrants[grant.ID]; ok {
			return repository.ErrConflict
		}
		if err := checkOpenEmailUnique(st, grant); err != nil {
			return err
		}
		st.seatGrants[grant.ID] = copySeatGrant(grant)
		return nil
	})
}

func (r *seatGrantRepository) Update(_ context.Context, grant *domain.SeatGrant) error {
	return r.write(func(st *state) error {
		existing, ok := st.seatGrants[grant.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if err := checkOpenEmailUnique(st, grant); err != nil {
			return err
		}
		updated := copySeatGrant(grant)
		updated.LicenseID = existing.LicenseID
		updated.InvitedEmail = existing.InvitedEmail
		updated.Role = existing.Role
		updated.InvitedAt = existing.InvitedAt
		st.seatGrants[grant.ID] = updated
		return nil
	})
}

// checkOpenEmailUnique повторяет частичный уникальный индекс
// (license_id, invited_email) WHERE status IN ('invited', 'active').
func checkOpenEmailUnique(st *state, grant *domain.SeatGrant) error {
	if grant.Status == domain.SeatStatusRemoved {
		return nil
	}
	for id, g := range st.seatGrants {
		if id == grant.ID || g.Status == domain.SeatStatusRemoved {
			continue
		}
		if g.LicenseID == grant.LicenseID && g.InvitedEmail == domain.NormalizeEmail(grant.InvitedEmail) {
			return repository.ErrConflict
		}
	}
	return nil
}

func (r *seatGrantRepository) GetByID(_ context.Context, id string) (*domain.SeatGrant, error) {
	var out *domain.SeatGrant
	err := r.read(func(st *state) error {
		g, ok := st.seatGrants[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copySeatGrant(g)
		return nil
	})
	return out, err
}

func (r *seatGrantRepository) GetInvitedByTokenHash(_ context.Context, tokenHash string) (*domain.SeatGrant, error) {
	grants, err := r.filter(func(g *domain.SeatGrant) bool {
		return g.Status == domain.SeatStatusInvited && g.InviteTokenHash != nil && *g.InviteTokenHash == tokenHash
	})
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, repository.ErrNotFound
	}
	return grants[0], nil
}

func (r *seatGrantRepository) ListOpenByLicense(_ context.Context, licenseID string) ([]*domain.SeatGrant, error) {
	return r.filter(func(g *domain.SeatGrant) bool {
		return g.LicenseID == licenseID && g.Status != domain.SeatStatusRemoved
	})
}

func (r *seatGrantRepository) ListInvitedByEmail(_ context.Context, email string) ([]*domain.SeatGrant, error) {
	email = domain.NormalizeEmail(email)
	return r.filter(func(g *domain.SeatGrant) bool {
		return g.Status == domain.SeatStatusInvited && g.InvitedEmail == email
	})
}

func (r *seatGrantRepository) ListActiveByAccount(_ context.Context, accountID string) ([]*domain.SeatGrant, error) {
	return r.filter(func(g *domain.SeatGrant) bool {
		return g.Status == domain.SeatStatusActive && g.LinkedAccountID != nil && *g.LinkedAccountID == accountID
	})
}

func (r *seatGrantRepository) filter(match func(g *domain.SeatGrant) bool) ([]*domain.SeatGrant, error) {
	var out []*domain.SeatGrant
	err := r.read(func(st *state) error {
		for _, g := range st.seatGrants {
			if match(g) {
				out = append(out, copySeatGrant(g))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].InvitedAt.Equal(out[j].InvitedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].InvitedAt.Before(out[j].InvitedAt)
	})
	return out, err
}

type templatePurchaseRepository struct {
	access
}

func (r *templatePurchaseRepository) Create(_ context.Context, purchase *domain.TemplatePurchase) (bool, error) {
	created := false
	err := r.write(func(st *state) error {
		for _, p := range st.templatePurchases {
			if p.ExternalPaymentID == purchase.ExternalPaymentID {
				return nil
			}
		}
		st.templatePurchases[purchase.ID] = copyTemplatePurchase(purchase)
		created = true
		return nil
	})
	return created, err
}

func (r *templatePurchaseRepository) GetByExternalPaymentID(_ context.Context, externalPaymentID string) (*domain.TemplatePurchase, error) {
	var out *domain.TemplatePurchase
	err := r.read(func(st *state) error {
		for _, p := range st.templatePurchases {
			if p.ExternalPaymentID == externalPaymentID {
				out = copyTemplatePurchase(p)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *templatePurchaseRepository) UpdateStatus(_ context.Context, id string, status domain.PurchaseStatus) error {
	now := time.Now().UTC()
	return r.write(func(st *state) error {
		p, ok := st.templatePurchases[id]
		if !ok {
			return repository.ErrNotFound
		}
		p.Status = status
		p.UpdatedAt = &now
		return nil
	})
}

func (r *templatePurchaseRepository) ListByAccount(_ context.Context, accountID string) ([]*domain.TemplatePurchase, error) {
	var out []*domain.TemplatePurchase
	err := r.read(func(st *state) error {
		for _, p := range st.templatePurchases {
			if p.AccountID == accountID {
				out = append(out, copyTemplatePurchase(p))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, err
}
