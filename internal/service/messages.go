package service

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type message struct {
	subject string
	body    string
}

func inviteMessage(ownerName string, invite *domain.IssuedInvite) message {
	return message{
		subject: fmt.Sprintf("You've been invited to join %s's team", ownerName),
		body: fmt.Sprintf(
			`<p>%s invited you to join their team.</p>`+
				`<p><a href="%s">Accept the invite</a> if you already have an account, `+
				`or <a href="%s">create one</a> with this email address.</p>`+
				`<p>The invite expires on %s.</p>`,
			html.EscapeString(ownerName),
			html.EscapeString(invite.AcceptURL),
			html.EscapeString(invite.SignupURL),
			expiryLabel(invite.Grant),
		),
	}
}

func memberJoinedMessage(memberName string) message {
	return message{
		subject: fmt.Sprintf("%s joined your team", memberName),
		body:    fmt.Sprintf(`<p>%s accepted your invite and now has access.</p>`, html.EscapeString(memberName)),
	}
}

func purchaseMessage(license *domain.License) message {
	seats := "a single seat"
	if license.SeatCapacity > 1 {
		seats = fmt.Sprintf("%d seats including yours", license.SeatCapacity)
	}
	return message{
		subject: "Your purchase is confirmed",
		body: fmt.Sprintf(`<p>Thanks for your purchase. Your %s license is active with %s.</p>`,
			html.EscapeString(string(license.Class)), seats),
	}
}

func expiryLabel(grant *domain.SeatGrant) string {
	if grant == nil || grant.InviteExpiresAt == nil {
		return "-"
	}
	return grant.InviteExpiresAt.Format("January 2, 2006")
}

// deliver отправляет письмо без влияния на результат операции:
// ошибка только логируется.
func deliver(ctx context.Context, notifier Notifier, logger *zap.Logger, to string, msg message) {
	if notifier == nil {
		return
	}
	if err := notifier.Send(ctx, to, msg.subject, msg.body); err != nil {
		logger.Warn("failed to send notification",
			zap.String("subject", msg.subject),
			zap.Error(err),
		)
	}
}
