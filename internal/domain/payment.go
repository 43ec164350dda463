package domain

import (
	"strings"
	"time"
)

type PaymentEventKind string

const (
	PaymentEventCheckoutCompleted PaymentEventKind = "checkout_completed"
	PaymentEventChargeRefunded    PaymentEventKind = "charge_refunded"
)

// PaymentEvent - проверенное событие платежного провайдера.
// ExternalPaymentID - ключ идемпотентности (id checkout-сессии).
// RefundedPaymentRef заполняется только для возвратов.
type PaymentEvent struct {
	EventID            string
	Kind               PaymentEventKind
	ExternalPaymentID  string
	AccountID          string
	AccountEmail       string
	Product            string
	RefundedPaymentRef string
	OccurredAt         time.Time
}

type EventOutcome string

const (
	EventApplied   EventOutcome = "applied"
	EventDuplicate EventOutcome = "duplicate"
	EventIgnored   EventOutcome = "ignored"
)

const templateProductPrefix = "template-"

// Product - то, что куплено: класс лицензии либо отдельный шаблон.
type Product struct {
	Class      LicenseClass
	TemplateID string
}

func (p Product) IsTemplate() bool {
	return p.TemplateID != ""
}

func ParseProduct(raw string) (Product, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == string(LicenseClassIndividual):
		return Product{Class: LicenseClassIndividual}, nil
	case value == string(LicenseClassTeam):
		return Product{Class: LicenseClassTeam}, nil
	case strings.HasPrefix(value, templateProductPrefix) && len(value) > len(templateProductPrefix):
		return Product{TemplateID: strings.TrimPrefix(value, templateProductPrefix)}, nil
	default:
		return Product{}, ErrUnknownProduct
	}
}
