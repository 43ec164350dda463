package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type licenseRepository struct {
	executor DBExecutor
}

func NewLicenseRepository(db *sql.DB) *licenseRepository {
	return &licenseRepository{executor: db}
}

const licenseColumns = `id, owner_account_id, class, status, seat_capacity, external_payment_id, purchased_at, expires_at, created_at, updated_at`

func scanLicense(row interface{ Scan(...any) error }) (*domain.License, error) {
	license := &domain.License{}
	var class, status string
	var expiresAt, updatedAt sql.NullTime
	err := row.Scan(
		&license.ID,
		&license.OwnerAccountID,
		&class,
		&status,
		&license.SeatCapacity,
		&license.ExternalPaymentID,
		&license.PurchasedAt,
		&expiresAt,
		&license.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	license.Class = domain.LicenseClass(class)
	license.Status = domain.LicenseStatus(status)
	license.ExpiresAt = timePtr(expiresAt)
	license.UpdatedAt = timePtr(updatedAt)
	return license, nil
}

func (r *licenseRepository) GetByID(ctx context.Context, id string) (*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
	return scanLicense(r.executor.QueryRowContext(ctx, query, id))
}

func (r *licenseRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1 FOR UPDATE`
	return scanLicense(r.executor.QueryRowContext(ctx, query, id))
}

func (r *licenseRepository) GetByOwner(ctx context.Context, ownerAccountID string) (*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE owner_account_id = $1`
	return scanLicense(r.executor.QueryRowContext(ctx, query, ownerAccountID))
}

func (r *licenseRepository) GetByExternalPaymentID(ctx context.Context, externalPaymentID string) (*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE external_payment_id = $1`
	return scanLicense(r.executor.QueryRowContext(ctx, query, externalPaymentID))
}

// UpsertByOwner реализует политику "последняя покупка побеждает":
// у владельца не больше одной лицензии, повторная покупка перезаписывает ее.
func (r *licenseRepository) UpsertByOwner(ctx context.Context, license *domain.License) error {
	query := `
		INSERT INTO licenses (id, owner_account_id, class, status, seat_capacity, external_payment_id, purchased_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_account_id) DO UPDATE
		SET class = EXCLUDED.class,
			status = EXCLUDED.status,
			seat_capacity = EXCLUDED.seat_capacity,
			external_payment_id = EXCLUDED.external_payment_id,
			purchased_at = EXCLUDED.purchased_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.created_at
		RETURNING id, created_at, updated_at
	`

	var updatedAt sql.NullTime
	err := r.executor.QueryRowContext(
		ctx,
		query,
		license.ID,
		license.OwnerAccountID,
		string(license.Class),
		string(license.Status),
		license.SeatCapacity,
		license.ExternalPaymentID,
		license.PurchasedAt,
		nullTime(license.ExpiresAt),
		time.Now().UTC(),
	).Scan(&license.ID, &license.CreatedAt, &updatedAt)
	if err != nil {
		return mapError(err)
	}

	license.UpdatedAt = timePtr(updatedAt)
	return nil
}

func (r *licenseRepository) UpdateStatus(ctx context.Context, id string, status domain.LicenseStatus) error {
	query := `
		UPDATE licenses
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.executor.ExecContext(ctx, query, id, string(status), time.Now().UTC())
	if err != nil {
		return err
	}
	return expectOneRow(result)
}
