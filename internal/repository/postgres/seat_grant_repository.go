package postgres

import (
	"context"
	"database/sql"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type seatGrantRepository struct {
	executor DBExecutor
}

func NewSeatGrantRepository(db *sql.DB) *seatGrantRepository {
	return &seatGrantRepository{executor: db}
}

const seatGrantColumns = `id, license_id, invited_email, linked_account_id, role, status, invite_token_hash, invite_expires_at, invited_at, joined_at, removed_at`

func scanSeatGrant(row interface{ Scan(...any) error }) (*domain.SeatGrant, error) {
	grant := &domain.SeatGrant{}
	var role, status string
	var linkedAccountID, tokenHash sql.NullString
	var expiresAt, joinedAt, removedAt sql.NullTime
	err := row.Scan(
		&grant.ID,
		&grant.LicenseID,
		&grant.InvitedEmail,
		&linkedAccountID,
		&role,
		&status,
		&tokenHash,
		&expiresAt,
		&grant.InvitedAt,
		&joinedAt,
		&removedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	grant.Role = domain.SeatRole(role)
	grant.Status = domain.SeatStatus(status)
	grant.LinkedAccountID = stringPtr(linkedAccountID)
	grant.InviteTokenHash = stringPtr(tokenHash)
	grant.InviteExpiresAt = timePtr(expiresAt)
	grant.JoinedAt = timePtr(joinedAt)
	grant.RemovedAt = timePtr(removedAt)
	return grant, nil
}

func (r *seatGrantRepository) Create(ctx context.Context, grant *domain.SeatGrant) error {
	query := `
		INSERT INTO seat_grants (` + seatGrantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.executor.ExecContext(
		ctx,
		query,
		grant.ID,
		grant.LicenseID,
		domain.NormalizeEmail(grant.InvitedEmail),
		nullString(grant.LinkedAccountID),
		string(grant.Role),
		string(grant.Status),
		nullString(grant.InviteTokenHash),
		nullTime(grant.InviteExpiresAt),
		grant.InvitedAt,
		nullTime(grant.JoinedAt),
		nullTime(grant.RemovedAt),
	)
	return mapError(err)
}

func (r *seatGrantRepository) Update(ctx context.Context, grant *domain.SeatGrant) error {
	query := `
		UPDATE seat_grants
		SET linked_account_id = $2,
			status = $3,
			invite_token_hash = $4,
			invite_expires_at = $5,
			joined_at = $6,
			removed_at = $7
		WHERE id = $1
	`

	result, err := r.executor.ExecContext(
		ctx,
		query,
		grant.ID,
		nullString(grant.LinkedAccountID),
		string(grant.Status),
		nullString(grant.InviteTokenHash),
		nullTime(grant.InviteExpiresAt),
		nullTime(grant.JoinedAt),
		nullTime(grant.RemovedAt),
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

func (r *seatGrantRepository) GetByID(ctx context.Context, id string) (*domain.SeatGrant, error) {
	query := `SELECT ` + seatGrantColumns + ` FROM seat_grants WHERE id = $1`
	return scanSeatGrant(r.executor.QueryRowContext(ctx, query, id))
}

func (r *seatGrantRepository) GetInvitedByTokenHash(ctx context.Context, tokenHash string) (*domain.SeatGrant, error) {
	query := `SELECT ` + seatGrantColumns + ` FROM seat_grants WHERE invite_token_hash = $1 AND status = 'invited'`
	return scanSeatGrant(r.executor.QueryRowContext(ctx, query, tokenHash))
}

func (r *seatGrantRepository) ListOpenByLicense(ctx context.Context, licenseID string) ([]*domain.SeatGrant, error) {
	query := `
		SELECT ` + seatGrantColumns + `
		FROM seat_grants
		WHERE license_id = $1 AND status IN ('invited', 'active')
		ORDER BY invited_at
	`
	return r.list(ctx, query, licenseID)
}

func (r *seatGrantRepository) ListInvitedByEmail(ctx context.Context, email string) ([]*domain.SeatGrant, error) {
	query := `
		SELECT ` + seatGrantColumns + `
		FROM seat_grants
		WHERE invited_email = $1 AND status = 'invited'
		ORDER BY invited_at
	`
	return r.list(ctx, query, domain.NormalizeEmail(email))
}

func (r *seatGrantRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.SeatGrant, error) {
	query := `
		SELECT ` + seatGrantColumns + `
		FROM seat_grants
		WHERE linked_account_id = $1 AND status = 'active'
		ORDER BY joined_at
	`
	return r.list(ctx, query, accountID)
}

func (r *seatGrantRepository) list(ctx context.Context, query string, args ...any) ([]*domain.SeatGrant, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []*domain.SeatGrant
	for rows.Next() {
		grant, err := scanSeatGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}

	return grants, rows.Err()
}
