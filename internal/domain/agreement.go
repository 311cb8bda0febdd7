package domain

import (
	"time"

	"github.com/guregu/null/v5"
)

// Agreement statuses.
const (
	AgreementCreated   = "CREATED"
	AgreementActive    = "ACTIVE"
	AgreementCancelled = "CANCELLED"
	AgreementInactive  = "INACTIVE"
)

// PaymentInstrument is the card attached to a recurring agreement.
type PaymentInstrument struct {
	ExternalID          string       `json:"external_id"`
	AgreementExternalID string       `json:"agreement_external_id"`
	Type                string       `json:"type"`
	CardDetails         *CardDetails `json:"card_details,omitempty"`
	CreatedDate         time.Time    `json:"created_date"`
}

// Agreement is a recurring-payment mandate.
type Agreement struct {
	ExternalID           string             `json:"external_id"`
	Reference            string             `json:"reference"`
	Description          string             `json:"description"`
	Status               string             `json:"status"`
	UserIdentifier       null.String        `json:"user_identifier"`
	CreatedDate          time.Time          `json:"created_date"`
	PaymentInstrument    *PaymentInstrument `json:"payment_instrument,omitempty"`
	CancelledDate        null.Time          `json:"cancelled_date"`
	CancelledByUserEmail null.String        `json:"cancelled_by_user_email"`
}

// Cancellable reports whether the agreement can still be cancelled.
func (a *Agreement) Cancellable() bool {
	return a.Status == AgreementActive || a.Status == AgreementCreated
}

// AgreementSearch filters a ledger agreement list.
type AgreementSearch struct {
	Page      int
	Status    string
	Reference string
}
