// Package paths holds the route templates of selfservice and builds concrete
// URLs from them. Templates use :name placeholders; the router registers the
// same templates through ChiPattern.
package paths

import (
	"net/url"
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`:[A-Za-z][A-Za-z0-9_]*`)

// Top-level routes.
const (
	Login        = "/login"
	OTPVerify    = "/otp-verify"
	Logout       = "/logout"
	MyServices   = "/my-services"
	Invite       = "/invites/:code"
	InviteAccept = "/invites/:code/accept"
)

// ServicePrefix scopes routes to a service.
const ServicePrefix = "/service/:serviceExternalId"

// Service-scoped sub-paths.
const (
	GoLiveIndex               = "/request-to-go-live"
	GoLiveOrganisationName    = "/request-to-go-live/organisation-name"
	GoLiveOrganisationAddress = "/request-to-go-live/organisation-address"
	GoLiveChoosePSP           = "/request-to-go-live/choose-how-to-process-payments"
	GoLiveAgreement           = "/request-to-go-live/agreement"
)

// AccountPrefix scopes routes to one of a service's gateway accounts.
const AccountPrefix = ServicePrefix + "/account/:accountType"

// Account-scoped sub-paths.
const (
	Dashboard = "/dashboard"

	APIKeys           = "/api-keys"
	APIKeysRevoked    = "/api-keys/revoked"
	APIKeysCreate     = "/api-keys/create"
	APIKeysCreated    = "/api-keys/created"
	APIKeysChangeName = "/api-keys/:tokenLink/change-name"
	APIKeysRevoke     = "/api-keys/:tokenLink/revoke"

	Transactions      = "/transactions"
	TransactionDetail = "/transactions/:transactionId"

	Payouts = "/payouts"

	Agreements      = "/agreements"
	AgreementDetail = "/agreements/:agreementId"
	AgreementCancel = "/agreements/:agreementId/cancel"

	CardTypes            = "/settings/card-types"
	ApplePay             = "/settings/apple-pay"
	GooglePay            = "/settings/google-pay"
	MotoHideCardNumber   = "/settings/moto/hide-card-number"
	MotoHideSecurityCode = "/settings/moto/hide-security-code"

	PaymentLinks            = "/payment-links"
	PaymentLinksInformation = "/payment-links/create/information"
	PaymentLinksReference   = "/payment-links/create/reference"
	PaymentLinksAmount      = "/payment-links/create/amount"
	PaymentLinksReview      = "/payment-links/create/review"
	PaymentLinksDelete      = "/payment-links/:productExternalId/delete"

	DemoPayment        = "/demo-payment"
	DemoPaymentEdit    = "/demo-payment/edit"
	DemoPaymentConfirm = "/demo-payment/confirm"

	Webhooks      = "/webhooks"
	WebhookDetail = "/webhooks/:webhookExternalId"
	WebhookUpdate = "/webhooks/:webhookExternalId/update"

	YourPSP                        = "/your-psp/:credentialExternalId"
	StripeBankDetails              = "/your-psp/:credentialExternalId/bank-details"
	StripeResponsiblePerson        = "/your-psp/:credentialExternalId/responsible-person"
	StripeDirector                 = "/your-psp/:credentialExternalId/director"
	StripeVATNumber                = "/your-psp/:credentialExternalId/vat-number"
	StripeCompanyNumber            = "/your-psp/:credentialExternalId/company-number"
	StripeCheckOrganisationDetails = "/your-psp/:credentialExternalId/check-organisation-details"
	StripeGovernmentEntityDocument = "/your-psp/:credentialExternalId/government-entity-document"
	WorldpayCredentials            = "/your-psp/:credentialExternalId/worldpay-credentials"
	WorldpayThreeDSFlex            = "/your-psp/:credentialExternalId/worldpay-3ds-flex"
)

// FormattedPathFor substitutes the placeholders of template, in order of
// appearance, with the percent-encoded values. Placeholders without a value
// are left as they are.
func FormattedPathFor(template string, values ...string) string {
	i := 0
	return placeholder.ReplaceAllStringFunc(template, func(p string) string {
		if i >= len(values) {
			return p
		}
		v := encodeComponent(values[i])
		i++
		return v
	})
}

// componentUnescaper restores the marks a URI component leaves unencoded
// after url.QueryEscape.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent percent-encodes everything but letters, digits and -_.!~*'().
func encodeComponent(v string) string {
	return componentUnescaper.Replace(url.QueryEscape(v))
}

// ServicePath builds a service-scoped URL.
func ServicePath(serviceExternalID, sub string, values ...string) string {
	return FormattedPathFor(ServicePrefix+sub, append([]string{serviceExternalID}, values...)...)
}

// AccountPath builds an account-scoped URL.
func AccountPath(serviceExternalID, accountType, sub string, values ...string) string {
	return FormattedPathFor(AccountPrefix+sub, append([]string{serviceExternalID, accountType}, values...)...)
}

// ChiPattern turns :name placeholders into chi {name} parameters.
func ChiPattern(template string) string {
	return placeholder.ReplaceAllStringFunc(template, func(p string) string {
		return "{" + strings.TrimPrefix(p, ":") + "}"
	})
}
