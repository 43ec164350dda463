package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bagdasarian/seatkeeper/internal/repository"
)

type unitOfWork struct {
	accounts          *accountRepository
	licenses          *licenseRepository
	seatGrants        *seatGrantRepository
	templatePurchases *templatePurchaseRepository
}

func newUnitOfWork(executor DBExecutor) *unitOfWork {
	return &unitOfWork{
		accounts:          &accountRepository{executor: executor},
		licenses:          &licenseRepository{executor: executor},
		seatGrants:        &seatGrantRepository{executor: executor},
		templatePurchases: &templatePurchaseRepository{executor: executor},
	}
}

func (u *unitOfWork) Accounts() repository.AccountRepository { return u.accounts }

func (u *unitOfWork) Licenses() repository.LicenseRepository { return u.licenses }

func (u *unitOfWork) SeatGrants() repository.SeatGrantRepository { return u.seatGrants }

func (u *unitOfWork) TemplatePurchases() repository.TemplatePurchaseRepository {
	return u.templatePurchases
}

// Store - хранилище на Postgres. Блокировки строк (FOR UPDATE) действуют
// только внутри WithinTx.
type Store struct {
	*unitOfWork
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		unitOfWork: newUnitOfWork(db),
		db:         db,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newUnitOfWork(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
