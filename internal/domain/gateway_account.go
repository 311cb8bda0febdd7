package domain

import (
	"time"

	"github.com/guregu/null/v5"
)

// ============================================================
// Gateway accounts
// ============================================================

// AccountType is test or live.
type AccountType string

const (
	AccountTypeTest AccountType = "test"
	AccountTypeLive AccountType = "live"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == AccountTypeTest || t == AccountTypeLive
}

// Payment providers.
const (
	ProviderSandbox  = "sandbox"
	ProviderStripe   = "stripe"
	ProviderWorldpay = "worldpay"
)

// CredentialState is the lifecycle state of a gateway account credential.
type CredentialState string

const (
	CredentialCreated                 CredentialState = "CREATED"
	CredentialEntered                 CredentialState = "ENTERED"
	CredentialVerifiedWithLivePayment CredentialState = "VERIFIED_WITH_LIVE_PAYMENT"
	CredentialActive                  CredentialState = "ACTIVE"
	CredentialRetired                 CredentialState = "RETIRED"
)

var credentialTransitions = map[CredentialState][]CredentialState{
	CredentialCreated:                 {CredentialEntered},
	CredentialEntered:                 {CredentialEntered, CredentialVerifiedWithLivePayment},
	CredentialVerifiedWithLivePayment: {CredentialActive},
	CredentialActive:                  {CredentialRetired},
	CredentialRetired:                 {},
}

// CanTransitionTo reports whether the credential lifecycle allows moving to next.
// ENTERED → ENTERED is allowed so credentials can be re-entered before verification.
func (s CredentialState) CanTransitionTo(next CredentialState) bool {
	for _, allowed := range credentialTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// WorldpayMerchantCredentials are the Worldpay merchant code and username.
// The password is write-only and never returned by connector.
type WorldpayMerchantCredentials struct {
	MerchantCode string `json:"merchant_code"`
	Username     string `json:"username"`
}

// CredentialDetails is the provider-specific part of a credential.
type CredentialDetails struct {
	OneOffCustomerInitiated *WorldpayMerchantCredentials `json:"one_off_customer_initiated,omitempty"`
	StripeAccountID         null.String                  `json:"stripe_account_id"`
}

// GatewayAccountCredential is one set of PSP credentials for an account.
type GatewayAccountCredential struct {
	ID              int64              `json:"gateway_account_credential_id"`
	ExternalID      string             `json:"external_id"`
	PaymentProvider string             `json:"payment_provider"`
	State           CredentialState    `json:"state"`
	Credentials     *CredentialDetails `json:"credentials,omitempty"`
	ActiveStartDate null.Time          `json:"active_start_date"`
	ActiveEndDate   null.Time          `json:"active_end_date"`
	CreatedDate     time.Time          `json:"created_date"`
}

// HasWorldpayCredentials reports whether merchant credentials were entered.
func (c *GatewayAccountCredential) HasWorldpayCredentials() bool {
	return c.Credentials != nil && c.Credentials.OneOffCustomerInitiated != nil &&
		c.Credentials.OneOffCustomerInitiated.MerchantCode != ""
}

// Worldpay3DSFlex is the account's 3DS Flex configuration.
type Worldpay3DSFlex struct {
	OrganisationalUnitID   string `json:"organisational_unit_id"`
	Issuer                 string `json:"issuer"`
	ExemptionEngineEnabled bool   `json:"exemption_engine_enabled"`
}

// GatewayAccount is a connector gateway account.
type GatewayAccount struct {
	ID                            int64                      `json:"gateway_account_id"`
	ExternalID                    string                     `json:"external_id"`
	Type                          AccountType                `json:"type"`
	PaymentProvider               string                     `json:"payment_provider"`
	ServiceName                   string                     `json:"service_name"`
	ServiceID                     null.String                `json:"service_id"`
	Description                   null.String                `json:"description"`
	AnalyticsID                   null.String                `json:"analytics_id"`
	AllowApplePay                 bool                       `json:"allow_apple_pay"`
	AllowGooglePay                bool                       `json:"allow_google_pay"`
	AllowMoto                     bool                       `json:"allow_moto"`
	MotoMaskCardNumberInput       bool                       `json:"moto_mask_card_number_input"`
	MotoMaskCardSecurityCodeInput bool                       `json:"moto_mask_card_security_code_input"`
	RequiresThreeDS               bool                       `json:"requires3ds"`
	RecurringEnabled              bool                       `json:"recurring_enabled"`
	Worldpay3DSFlex               *Worldpay3DSFlex           `json:"worldpay_3ds_flex,omitempty"`
	Credentials                   []GatewayAccountCredential `json:"gateway_account_credentials"`
}

// IsLive reports whether the account takes real payments.
func (a *GatewayAccount) IsLive() bool {
	return a.Type == AccountTypeLive
}

// ActiveCredential returns the single ACTIVE credential, or nil during a
// provider switch window.
func (a *GatewayAccount) ActiveCredential() *GatewayAccountCredential {
	for i := range a.Credentials {
		if a.Credentials[i].State == CredentialActive {
			return &a.Credentials[i]
		}
	}
	return nil
}

// PendingCredential returns the newest credential that is not yet active
// (CREATED, ENTERED or VERIFIED_WITH_LIVE_PAYMENT), or nil.
func (a *GatewayAccount) PendingCredential() *GatewayAccountCredential {
	var pending *GatewayAccountCredential
	for i := range a.Credentials {
		c := &a.Credentials[i]
		switch c.State {
		case CredentialCreated, CredentialEntered, CredentialVerifiedWithLivePayment:
			if pending == nil || c.CreatedDate.After(pending.CreatedDate) {
				pending = c
			}
		}
	}
	return pending
}

// CurrentCredential is the active credential, falling back to the pending one
// for accounts that have never been activated.
func (a *GatewayAccount) CurrentCredential() *GatewayAccountCredential {
	if c := a.ActiveCredential(); c != nil {
		return c
	}
	return a.PendingCredential()
}

// IsSwitchingProvider reports whether a new credential is being set up while
// another one is still active.
func (a *GatewayAccount) IsSwitchingProvider() bool {
	return a.ActiveCredential() != nil && a.PendingCredential() != nil
}

// Credential finds a credential by external id.
func (a *GatewayAccount) Credential(externalID string) *GatewayAccountCredential {
	for i := range a.Credentials {
		if a.Credentials[i].ExternalID == externalID {
			return &a.Credentials[i]
		}
	}
	return nil
}

// ============================================================
// Card types
// ============================================================

// CardType is a card brand/type combination connector can accept.
type CardType struct {
	ID              string `json:"id"`
	Brand           string `json:"brand"`
	Label           string `json:"label"`
	Type            string `json:"type"` // DEBIT or CREDIT
	RequiresThreeDS bool   `json:"requires3ds"`
}

// CardTypes is the connector envelope for card type lists.
type CardTypes struct {
	CardTypes []CardType `json:"card_types"`
}

// IDs returns the ids of all card types in order.
func (c CardTypes) IDs() []string {
	ids := make([]string, 0, len(c.CardTypes))
	for _, ct := range c.CardTypes {
		ids = append(ids, ct.ID)
	}
	return ids
}

// ============================================================
// Stripe
// ============================================================

// StripeAccount is connector's view of the connected Stripe account.
type StripeAccount struct {
	StripeAccountID string `json:"stripe_account_id"`
}
