package domain

import "time"

type PurchaseStatus string

const (
	PurchaseStatusActive   PurchaseStatus = "active"
	PurchaseStatusRefunded PurchaseStatus = "refunded"
)

// TemplatePurchase - покупка отдельного шаблона, вне модели лицензий и мест.
type TemplatePurchase struct {
	ID                string
	AccountID         string
	TemplateID        string
	ExternalPaymentID string
	Status            PurchaseStatus
	PurchasedAt       time.Time
	UpdatedAt         *time.Time
}
