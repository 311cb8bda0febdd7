package domain

import (
	"time"

	"github.com/guregu/null/v5"
)

// ============================================================
// Transactions (ledger) and charges (connector)
// ============================================================

// State is the payment state reported by connector and ledger.
type State struct {
	Status   string      `json:"status"`
	Finished bool        `json:"finished"`
	Code     null.String `json:"code"`
	Message  null.String `json:"message"`
}

// Succeeded reports whether the payment completed successfully.
func (s State) Succeeded() bool {
	return s.Finished && s.Status == "success"
}

// CardDetails describes the card used to pay.
type CardDetails struct {
	CardholderName        null.String `json:"cardholder_name"`
	BillingAddress        *Address    `json:"billing_address,omitempty"`
	CardBrand             null.String `json:"card_brand"`
	LastDigitsCardNumber  null.String `json:"last_digits_card_number"`
	FirstDigitsCardNumber null.String `json:"first_digits_card_number"`
	ExpiryDate            null.String `json:"expiry_date"`
	CardType              null.String `json:"card_type"`
}

// RefundSummary is the refund state common to connector and ledger.
type RefundSummary struct {
	Status          string `json:"status"`
	AmountAvailable int64  `json:"amount_available"`
	AmountSubmitted int64  `json:"amount_submitted"`
}

// Refundable reports whether any amount can still be refunded.
func (r RefundSummary) Refundable() bool {
	return r.Status == "available" && r.AmountAvailable > 0
}

// LedgerRefundSummary extends the common summary with the amount ledger has
// already recorded as refunded.
type LedgerRefundSummary struct {
	RefundSummary
	AmountRefunded int64 `json:"amount_refunded"`
}

// SettlementSummary tracks capture and settlement.
type SettlementSummary struct {
	CaptureSubmitTime null.Time   `json:"capture_submit_time"`
	CapturedDate      null.String `json:"captured_date"`
	SettledDate       null.String `json:"settled_date"`
}

// ThreeDSecure describes the 3-D Secure authorisation.
type ThreeDSecure struct {
	Required bool        `json:"required"`
	Version  null.String `json:"version"`
}

// AuthorisationSummary describes how the payment was authorised.
type AuthorisationSummary struct {
	ThreeDSecure *ThreeDSecure `json:"three_d_secure,omitempty"`
}

// Transaction is a ledger transaction.
type Transaction struct {
	TransactionID        string                `json:"transaction_id"`
	GatewayAccountID     string                `json:"gateway_account_id"`
	Amount               int64                 `json:"amount"`
	Fee                  null.Int              `json:"fee"`
	NetAmount            null.Int              `json:"net_amount"`
	TotalAmount          null.Int              `json:"total_amount"`
	CorporateSurcharge   null.Int              `json:"corporate_card_surcharge"`
	State                State                 `json:"state"`
	Description          string                `json:"description"`
	Reference            string                `json:"reference"`
	Language             null.String           `json:"language"`
	Email                null.String           `json:"email"`
	ReturnURL            null.String           `json:"return_url"`
	PaymentProvider      string                `json:"payment_provider"`
	CreatedDate          time.Time             `json:"created_date"`
	CardDetails          *CardDetails          `json:"card_details,omitempty"`
	DelayedCapture       bool                  `json:"delayed_capture"`
	Moto                 bool                  `json:"moto"`
	Live                 bool                  `json:"live"`
	RefundSummary        *LedgerRefundSummary  `json:"refund_summary,omitempty"`
	SettlementSummary    *SettlementSummary    `json:"settlement_summary,omitempty"`
	AuthorisationSummary *AuthorisationSummary `json:"authorisation_summary,omitempty"`
	TransactionType      string                `json:"transaction_type"`
	GatewayTransactionID null.String           `json:"gateway_transaction_id"`
	Metadata             map[string]any        `json:"metadata,omitempty"`
}

// TransactionEvent is one state change in a transaction's history.
type TransactionEvent struct {
	Amount       int64     `json:"amount"`
	State        State     `json:"state"`
	ResourceType string    `json:"resource_type"`
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
}

// TransactionEvents is the ledger events envelope.
type TransactionEvents struct {
	TransactionID string             `json:"transaction_id"`
	Events        []TransactionEvent `json:"events"`
}

// TransactionSearch filters a ledger transaction list.
type TransactionSearch struct {
	Page        int
	DisplaySize int
	Reference   string
	Email       string
	CardBrands  []string
	States      []string
	FromDate    string
	ToDate      string
	LastDigits  string
}

// Page is the generic ledger paging envelope.
type Page[T any] struct {
	Total   int `json:"total"`
	Count   int `json:"count"`
	Page    int `json:"page"`
	Results []T `json:"results"`
}

// HasNext reports whether further pages exist for the given page size.
func (p Page[T]) HasNext(displaySize int) bool {
	if displaySize <= 0 {
		return false
	}
	return p.Page*displaySize < p.Total
}

// TransactionSummary is ledger's aggregate for the dashboard.
type TransactionSummary struct {
	Payments struct {
		Count       int   `json:"count"`
		GrossAmount int64 `json:"gross_amount"`
	} `json:"payments"`
	Refunds struct {
		Count       int   `json:"count"`
		GrossAmount int64 `json:"gross_amount"`
	} `json:"refunds"`
	NetIncome int64 `json:"net_income"`
}

// Link is a connector hypermedia link.
type Link struct {
	Rel    string `json:"rel"`
	Href   string `json:"href"`
	Method string `json:"method"`
}

// Charge is a connector charge.
type Charge struct {
	ChargeID      string         `json:"charge_id"`
	Amount        int64          `json:"amount"`
	State         State          `json:"state"`
	Description   string         `json:"description"`
	Reference     string         `json:"reference"`
	ReturnURL     string         `json:"return_url"`
	Language      null.String    `json:"language"`
	Email         null.String    `json:"email"`
	Moto          bool           `json:"moto"`
	RefundSummary *RefundSummary `json:"refund_summary,omitempty"`
	Links         []Link         `json:"links"`
}

// NextURL returns the href of the next_url link, or empty.
func (c *Charge) NextURL() string {
	for _, l := range c.Links {
		if l.Rel == "next_url" {
			return l.Href
		}
	}
	return ""
}

// ============================================================
// Payouts
// ============================================================

// Payout is a ledger payout.
type Payout struct {
	GatewayPayoutID     string      `json:"gateway_payout_id"`
	GatewayAccountID    string      `json:"gateway_account_id"`
	Amount              int64       `json:"amount"`
	PaidOutDate         null.Time   `json:"paid_out_date"`
	State               null.String `json:"state"`
	StatementDescriptor null.String `json:"statement_descriptor"`
}
