package repository

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict - нарушено ограничение уникальности.
	ErrConflict = errors.New("record conflicts with an existing one")
)

// UnitOfWork - набор репозиториев, работающих на одном соединении или транзакции.
type UnitOfWork interface {
	Accounts() AccountRepository
	Licenses() LicenseRepository
	SeatGrants() SeatGrantRepository
	TemplatePurchases() TemplatePurchaseRepository
}

// Store выполняет fn в транзакции: ошибка из fn откатывает все изменения.
type Store interface {
	UnitOfWork
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}
