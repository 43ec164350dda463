// Package memory - хранилище в памяти для тестов и локального запуска
// (STORAGE_DRIVER=memory). Транзакции сериализуются одной блокировкой:
// fn работает с копией состояния, которая подменяет текущее только при успехе.
package memory

import (
	"context"
	"sync"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/repository"
)

type state struct {
	accounts          map[string]*domain.Account
	licenses          map[string]*domain.License
	seatGrants        map[string]*domain.SeatGrant
	templatePurchases map[string]*domain.TemplatePurchase
}

func newState() *state {
	return &state{
		accounts:          make(map[string]*domain.Account),
		licenses:          make(map[string]*domain.License),
		seatGrants:        make(map[string]*domain.SeatGrant),
		templatePurchases: make(map[string]*domain.TemplatePurchase),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, a := range s.accounts {
		c.accounts[id] = copyAccount(a)
	}
	for id, l := range s.licenses {
		c.licenses[id] = copyLicense(l)
	}
	for id, g := range s.seatGrants {
		c.seatGrants[id] = copySeatGrant(g)
	}
	for id, p := range s.templatePurchases {
		c.templatePurchases[id] = copyTemplatePurchase(p)
	}
	return c
}

// access задает, как репозиторий получает состояние для чтения и записи.
type access struct {
	read  func(fn func(st *state) error) error
	write func(fn func(st *state) error) error
}

type unitOfWork struct {
	accounts          *accountRepository
	licenses          *licenseRepository
	seatGrants        *seatGrantRepository
	templatePurchases *templatePurchaseRepository
}

func newUnitOfWork(a access) *unitOfWork {
	return &unitOfWork{
		accounts:          &accountRepository{access: a},
		licenses:          &licenseRepository{access: a},
		seatGrants:        &seatGrantRepository{access: a},
		templatePurchases: &templatePurchaseRepository{access: a},
	}
}

func (u *unitOfWork) Accounts() repository.AccountRepository { return u.accounts }

func (u *unitOfWork) Licenses() repository.LicenseRepository { return u.licenses }

func (u *unitOfWork) SeatGrants() repository.SeatGrantRepository { return u.seatGrants }

func (u *unitOfWork) TemplatePurchases() repository.TemplatePurchaseRepository {
	return u.templatePurchases
}

type Store struct {
	*unitOfWork

	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

func NewStore() *Store {
	s := &Store{st: newState()}
	s.unitOfWork = newUnitOfWork(access{read: s.read, write: s.commit})
	return s
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

// commit: одиночная запись вне WithinTx тоже идет через копию состояния.
func (s *Store) commit(fn func(st *state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	working := s.st.clone()
	s.mu.RUnlock()

	if err := fn(working); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = working
	s.mu.Unlock()
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(func(working *state) error {
		direct := func(f func(st *state) error) error { return f(working) }
		return fn(newUnitOfWork(access{read: direct, write: direct}))
	})
}
