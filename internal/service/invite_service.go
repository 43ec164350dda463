package service

import (
	"context"
	"time"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type InviteService interface {
	CreateInvite(ctx context.Context, licenseID, inviterID, email string) (*domain.IssuedInvite, error)
	AcceptInvite(ctx context.Context, token, accepterID, accepterEmail string) (*domain.SeatGrant, error)
	// AutoAcceptPendingInvites вызывается после входа или регистрации;
	// без приглашений это no-op.
	AutoAcceptPendingInvites(ctx context.Context, accountID, email string) (*domain.AutoAcceptResult, error)
	RemoveMember(ctx context.Context, memberID, requesterID string) error
}

// InviteConfig - срок жизни приглашения и база для ссылок в письме.
type InviteConfig struct {
	TTL     time.Duration
	BaseURL string
}

const defaultInviteTTL = 7 * 24 * time.Hour
