package domain

import "time"

type SeatRole string

const (
	SeatRoleOwner  SeatRole = "owner"
	SeatRoleMember SeatRole = "member"
)

type SeatStatus string

const (
	SeatStatusInvited SeatStatus = "invited"
	SeatStatusActive  SeatStatus = "active"
	SeatStatusRemoved SeatStatus = "removed"
)

// SeatGrant - место участника команды. Токен и срок приглашения
// существуют только в статусе invited.
type SeatGrant struct {
	ID              string
	LicenseID       string
	InvitedEmail    string
	LinkedAccountID *string
	Role            SeatRole
	Status          SeatStatus
	InviteTokenHash *string
	InviteExpiresAt *time.Time
	InvitedAt       time.Time
	JoinedAt        *time.Time
	RemovedAt       *time.Time
}

// IsExpired - приглашение просрочено. Просроченные гранты не удаляются,
// но не занимают место и не могут быть приняты.
func (g *SeatGrant) IsExpired(now time.Time) bool {
	return g.Status == SeatStatusInvited &&
		g.InviteExpiresAt != nil &&
		g.InviteExpiresAt.Before(now)
}

func (g *SeatGrant) IsPending(now time.Time) bool {
	return g.Status == SeatStatusInvited && !g.IsExpired(now)
}

// OccupiesSeat - грант учитывается в заполненности лицензии.
func (g *SeatGrant) OccupiesSeat(now time.Time) bool {
	return g.Status == SeatStatusActive || g.IsPending(now)
}

// Activate переводит invited -> active и гасит одноразовый токен.
func (g *SeatGrant) Activate(accountID string, now time.Time) {
	g.LinkedAccountID = &accountID
	g.Status = SeatStatusActive
	g.JoinedAt = &now
	g.InviteTokenHash = nil
	g.InviteExpiresAt = nil
}

// Retire переводит грант в removed.
func (g *SeatGrant) Retire(now time.Time) {
	g.Status = SeatStatusRemoved
	g.RemovedAt = &now
	g.InviteTokenHash = nil
	g.InviteExpiresAt = nil
}

// IssuedInvite - результат createInvite. Token хранится только в ответе
// и в ссылках; в базе лежит его хэш.
type IssuedInvite struct {
	Grant     *SeatGrant
	Token     string
	SignupURL string
	AcceptURL string
}

type AutoAcceptResult struct {
	AcceptedCount int
	OwnerNames    []string
}
