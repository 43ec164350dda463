package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bagdasarian/seatkeeper/internal/domain"
)

type templatePurchaseRepository struct {
	executor DBExecutor
}

func NewTemplatePurchaseRepository(db *sql.DB) *templatePurchaseRepository {
	return &templatePurchaseRepository{executor: db}
}

const templatePurchaseColumns = `id, account_id, template_id, external_payment_id, status, purchased_at, updated_at`

func scanTemplatePurchase(row interface{ Scan(...any) error }) (*domain.TemplatePurchase, error) {
	purchase := &domain.TemplatePurchase{}
	var status string
	var updatedAt sql.NullTime
	err := row.Scan(
		&purchase.ID,
		&purchase.AccountID,
		&purchase.TemplateID,
		&purchase.ExternalPaymentID,
		&status,
		&purchase.PurchasedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	purchase.Status = domain.PurchaseStatus(status)
	purchase.UpdatedAt = timePtr(updatedAt)
	return purchase, nil
}

// Create опирается на уникальность external_payment_id: повторная доставка
// вебхука не создает вторую строку.
func (r *templatePurchaseRepository) Create(ctx context.Context, purchase *domain.TemplatePurchase) (bool, error) {
	query := `
		INSERT INTO template_purchases (id, account_id, template_id, external_payment_id, status, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_payment_id) DO NOTHING
		RETURNING id
	`

	var id string
	err := r.executor.QueryRowContext(
		ctx,
		query,
		purchase.ID,
		purchase.AccountID,
		purchase.TemplateID,
		purchase.ExternalPaymentID,
		string(purchase.Status),
		purchase.PurchasedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err)
	}
	return true, nil
}

func (r *templatePurchaseRepository) GetByExternalPaymentID(ctx context.Context, externalPaymentID string) (*domain.TemplatePurchase, error) {
	query := `SELECT ` + templatePurchaseColumns + ` FROM template_purchases WHERE external_payment_id = $1`
	return scanTemplatePurchase(r.executor.QueryRowContext(ctx, query, externalPaymentID))
}

func (r *templatePurchaseRepository) UpdateStatus(ctx context.Context, id string, status domain.PurchaseStatus) error {
	query := `
		UPDATE template_purchases
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.executor.ExecContext(ctx, query, id, string(status), time.Now().UTC())
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func (r *templatePurchaseRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.TemplatePurchase, error) {
	query := `
		SELECT ` + templatePurchaseColumns + `
		FROM template_purchases
		WHERE account_id = $1
		ORDER BY purchased_at DESC
	`

	rows, err := r.executor.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []*domain.TemplatePurchase
	for rows.Next() {
		purchase, err := scanTemplatePurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}

	return purchases, rows.Err()
}
