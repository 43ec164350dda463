package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type accountRepository struct {
	executor DBExecutor
}

func NewAccountRepository(db *sql.DB) *accountRepository {
	return &accountRepository{executor: db}
}

const accountColumns = `id, email, display_name, has_active_license, license_class, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*domain.Account, error) {
	account := &domain.Account{}
	var class string
	var updatedAt sql.NullTime
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.HasActiveLicense,
		&class,
		&account.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	account.LicenseClass = domain.LicenseClass(class)
	account.UpdatedAt = timePtr(updatedAt)
	return account, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.executor.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(r.executor.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	return scanAccount(r.executor.QueryRowContext(ctx, query, domain.NormalizeEmail(email)))
}

// Upsert регистрирует аккаунт, созданный провайдером аутентификации.
// Поля кэша entitlement не перезаписываются.
func (r *accountRepository) Upsert(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, display_name, has_active_license, license_class, created_at)
		VALUES ($1, $2, $3, FALSE, 'none', $4)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
			display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), accounts.display_name),
			updated_at = EXCLUDED.created_at
		RETURNING display_name, has_active_license, license_class, created_at, updated_at
	`

	account.Email = domain.NormalizeEmail(account.Email)

	var class string
	var updatedAt sql.NullTime
	err := r.executor.QueryRowContext(
		ctx,
		query,
		account.ID,
		account.Email,
		account.DisplayName,
		time.Now().UTC(),
	).Scan(&account.DisplayName, &account.HasActiveLicense, &class, &account.CreatedAt, &updatedAt)
	if err != nil {
		return mapError(err)
	}

	account.LicenseClass = domain.LicenseClass(class)
	account.UpdatedAt = timePtr(updatedAt)
	return nil
}

func (r *accountRepository) UpdateEntitlementCache(ctx context.Context, id string, hasActiveLicense bool, class domain.LicenseClass) error {
	query := `
		UPDATE accounts
		SET has_active_license = $2, license_class = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.executor.ExecContext(ctx, query, id, hasActiveLicense, string(class), time.Now().UTC())
	if err != nil {
		return err
	}
	return expectOneRow(result)
}
