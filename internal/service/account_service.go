package service

import (
	"context"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type AccountService interface {
	// RegisterAccount создает аккаунт или обновляет email/имя существующего.
	RegisterAccount(ctx context.Context, id, email, displayName string) (*domain.Account, error)
}
