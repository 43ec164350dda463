package memory

import (
	"time"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

// Хранилище отдает и принимает копии, чтобы вызывающий код не менял
// состояние в обход транзакции.

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	c.UpdatedAt = copyTime(a.UpdatedAt)
	return &c
}

func copyLicense(l *domain.License) *domain.License {
	c := *l
	c.ExpiresAt = copyTime(l.ExpiresAt)
	c.UpdatedAt = copyTime(l.UpdatedAt)
	return &c
}

func copySeatGrant(g *domain.SeatGrant) *domain.SeatGrant {
	c := *g
	c.LinkedAccountID = copyString(g.LinkedAccountID)
	c.InviteTokenHash = copyString(g.InviteTokenHash)
	c.InviteExpiresAt = copyTime(g.InviteExpiresAt)
	c.JoinedAt = copyTime(g.JoinedAt)
	c.RemovedAt = copyTime(g.RemovedAt)
	return &c
}

func copyTemplatePurchase(p *domain.TemplatePurchase) *domain.TemplatePurchase {
	c := *p
	c.UpdatedAt = copyTime(p.UpdatedAt)
	return &c
}
