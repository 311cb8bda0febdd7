package domain

import (
	"encoding/json"

	"github.com/guregu/null/v5"
)

// ============================================================
// Request values
//
// Request types are plain values built once by the caller; Payload renders
// the exact wire shape. Unset optional fields are absent from the payload.
// ============================================================

// PatchOperation is a single JSON-patch style operation understood by
// connector, adminusers and webhooks.
type PatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Replace builds a replace operation.
func Replace(path string, value any) PatchOperation {
	return PatchOperation{Op: "replace", Path: path, Value: value}
}

// Address is a postal address. Line2 is optional and must round-trip absent.
type Address struct {
	Line1    string      `json:"line1"`
	Line2    null.String `json:"line2"`
	Postcode string      `json:"postcode"`
	City     string      `json:"city"`
	Country  string      `json:"country"`
}

// Payload renders the address with line2 omitted when unset.
func (a Address) Payload() map[string]any {
	p := map[string]any{
		"line1":    a.Line1,
		"postcode": a.Postcode,
		"city":     a.City,
		"country":  a.Country,
	}
	if a.Line2.Valid {
		p["line2"] = a.Line2.String
	}
	return p
}

// MarshalJSON encodes the address in its payload shape.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Payload())
}

// PrefilledCardholderDetails pre-populates the payment page.
type PrefilledCardholderDetails struct {
	CardholderName null.String
	BillingAddress *Address
}

// ChargeRequest creates a charge through connector.
type ChargeRequest struct {
	Amount                     int64
	Description                string
	Reference                  string
	ReturnURL                  string
	Language                   null.String
	Email                      null.String
	DelayedCapture             null.Bool
	Moto                       null.Bool
	Metadata                   map[string]any
	PrefilledCardholderDetails *PrefilledCardholderDetails
}

// Payload renders the connector charge request.
func (r ChargeRequest) Payload() map[string]any {
	p := map[string]any{
		"amount":      r.Amount,
		"description": r.Description,
		"reference":   r.Reference,
		"return_url":  r.ReturnURL,
	}
	if r.Language.Valid {
		p["language"] = r.Language.String
	}
	if r.Email.Valid {
		p["email"] = r.Email.String
	}
	if r.DelayedCapture.Valid {
		p["delayed_capture"] = r.DelayedCapture.Bool
	}
	if r.Moto.Valid {
		p["moto"] = r.Moto.Bool
	}
	if len(r.Metadata) > 0 {
		p["metadata"] = r.Metadata
	}
	if d := r.PrefilledCardholderDetails; d != nil {
		details := map[string]any{}
		if d.CardholderName.Valid {
			details["cardholder_name"] = d.CardholderName.String
		}
		if d.BillingAddress != nil {
			details["billing_address"] = d.BillingAddress.Payload()
		}
		if len(details) > 0 {
			p["prefilled_cardholder_details"] = details
		}
	}
	return p
}

// Token types accepted by public-auth.
const (
	TokenTypeCard     = "CARD"
	TokenTypeDirectDB = "DIRECT_DEBIT"
	TokenKindAPI      = "API"
	TokenKindProducts = "PRODUCTS"
)

// CreateTokenRequest issues a new API key.
type CreateTokenRequest struct {
	AccountID         string
	ServiceExternalID string
	ServiceMode       AccountType
	Description       string
	CreatedBy         string
	TokenType         string
	Type              string
}

// Payload renders the public-auth token request.
func (r CreateTokenRequest) Payload() map[string]any {
	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = TokenTypeCard
	}
	kind := r.Type
	if kind == "" {
		kind = TokenKindAPI
	}
	return map[string]any{
		"account_id":          r.AccountID,
		"service_external_id": r.ServiceExternalID,
		"service_mode":        string(r.ServiceMode),
		"description":         r.Description,
		"created_by":          r.CreatedBy,
		"token_type":          tokenType,
		"type":                kind,
	}
}

// Product types.
const (
	ProductTypeAdhoc = "ADHOC"
	ProductTypeDemo  = "DEMO"
)

// CreateProductRequest creates a payment link in products.
type CreateProductRequest struct {
	GatewayAccountID int64
	PayAPIToken      string
	Name             string
	Description      null.String
	Price            null.Int
	Type             string
	ReturnURL        null.String
	ServiceNamePath  null.String
	ProductNamePath  null.String
	ReferenceEnabled bool
	ReferenceLabel   null.String
	ReferenceHint    null.String
	Language         string
}

// Payload renders the products create request.
func (r CreateProductRequest) Payload() map[string]any {
	p := map[string]any{
		"gateway_account_id": r.GatewayAccountID,
		"pay_api_token":      r.PayAPIToken,
		"name":               r.Name,
		"type":               r.Type,
		"reference_enabled":  r.ReferenceEnabled,
	}
	if r.Language != "" {
		p["language"] = r.Language
	} else {
		p["language"] = "en"
	}
	optionalString(p, "description", r.Description)
	optionalString(p, "return_url", r.ReturnURL)
	optionalString(p, "service_name_path", r.ServiceNamePath)
	optionalString(p, "product_name_path", r.ProductNamePath)
	if r.ReferenceEnabled {
		optionalString(p, "reference_label", r.ReferenceLabel)
		optionalString(p, "reference_hint", r.ReferenceHint)
	}
	if r.Price.Valid {
		p["price"] = r.Price.Int64
	}
	return p
}

// WebhookUpdateRequest changes the mutable fields of a webhook.
type WebhookUpdateRequest struct {
	CallbackURL   null.String
	Description   null.String
	Status        null.String
	Subscriptions []string
}

// Payload renders replace operations for each field that was set.
func (r WebhookUpdateRequest) Payload() []PatchOperation {
	ops := make([]PatchOperation, 0, 4)
	if r.CallbackURL.Valid {
		ops = append(ops, Replace("callback_url", r.CallbackURL.String))
	}
	if r.Description.Valid {
		ops = append(ops, Replace("description", r.Description.String))
	}
	if r.Status.Valid {
		ops = append(ops, Replace("status", r.Status.String))
	}
	if r.Subscriptions != nil {
		ops = append(ops, Replace("subscriptions", r.Subscriptions))
	}
	return ops
}

// WorldpayCredentials are the merchant credentials entered by the user.
type WorldpayCredentials struct {
	MerchantCode string
	Username     string
	Password     string
}

// CheckPayload renders the connector check-credentials request.
func (c WorldpayCredentials) CheckPayload() map[string]any {
	return map[string]any{
		"merchant_id": c.MerchantCode,
		"username":    c.Username,
		"password":    c.Password,
	}
}

// CredentialsUpdateRequest patches a gateway account credential.
type CredentialsUpdateRequest struct {
	UserExternalID string
	Worldpay       *WorldpayCredentials
	State          CredentialState
}

// Payload renders the connector credential patch.
func (r CredentialsUpdateRequest) Payload() []PatchOperation {
	ops := make([]PatchOperation, 0, 3)
	if r.Worldpay != nil {
		ops = append(ops, Replace("credentials/worldpay/one_off_customer_initiated", map[string]any{
			"merchant_code": r.Worldpay.MerchantCode,
			"username":      r.Worldpay.Username,
			"password":      r.Worldpay.Password,
		}))
	}
	if r.State != "" {
		ops = append(ops, Replace("state", string(r.State)))
	}
	ops = append(ops, Replace("last_updated_by_user_external_id", r.UserExternalID))
	return ops
}

// Worldpay3DSFlexRequest sets the 3DS Flex credentials.
type Worldpay3DSFlexRequest struct {
	OrganisationalUnitID string
	Issuer               string
	JWTMacKey            string
}

// Payload renders the connector 3DS Flex request.
func (r Worldpay3DSFlexRequest) Payload() map[string]any {
	return map[string]any{
		"organisational_unit_id": r.OrganisationalUnitID,
		"issuer":                 r.Issuer,
		"jwt_mac_key":            r.JWTMacKey,
	}
}

// OrganisationDetailsRequest updates the merchant details of a service.
type OrganisationDetailsRequest struct {
	Name            null.String
	Address         *Address
	TelephoneNumber null.String
	URL             null.String
}

// Payload renders replace operations for the merchant details that were set.
func (r OrganisationDetailsRequest) Payload() []PatchOperation {
	ops := make([]PatchOperation, 0, 8)
	if r.Name.Valid {
		ops = append(ops, Replace("merchant_details/name", r.Name.String))
	}
	if a := r.Address; a != nil {
		ops = append(ops,
			Replace("merchant_details/address_line1", a.Line1),
			Replace("merchant_details/address_city", a.City),
			Replace("merchant_details/address_postcode", a.Postcode),
			Replace("merchant_details/address_country", a.Country),
		)
		if a.Line2.Valid {
			ops = append(ops, Replace("merchant_details/address_line2", a.Line2.String))
		}
	}
	if r.TelephoneNumber.Valid {
		ops = append(ops, Replace("merchant_details/telephone_number", r.TelephoneNumber.String))
	}
	if r.URL.Valid {
		ops = append(ops, Replace("merchant_details/url", r.URL.String))
	}
	return ops
}

func optionalString(p map[string]any, key string, v null.String) {
	if v.Valid {
		p[key] = v.String
	}
}
