package client

import (
	"context"
	"net/http"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/resilience"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"

	"go.uber.org/zap"
)

// ConnectorClient calls connector: gateway accounts, charges, card types and
// PSP credentials.
type ConnectorClient struct {
	*backend
}

// NewConnectorClient creates a new ConnectorClient.
func NewConnectorClient(httpClient *http.Client, baseURL string, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *ConnectorClient {
	return &ConnectorClient{backend: newBackend(Connector, httpClient, baseURL, cfg, metrics, logger)}
}

// GetAccount fetches a gateway account by numeric id.
func (c *ConnectorClient) GetAccount(ctx context.Context, accountID int64) (*domain.GatewayAccount, error) {
	var acc domain.GatewayAccount
	p := paths.FormattedPathFor("/v1/frontend/accounts/:accountId", id(accountID))
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetAccountByExternalID fetches a gateway account by external id.
func (c *ConnectorClient) GetAccountByExternalID(ctx context.Context, externalID string) (*domain.GatewayAccount, error) {
	var acc domain.GatewayAccount
	p := paths.FormattedPathFor("/v1/frontend/accounts/external-id/:externalId", externalID)
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetAccountByServiceAndType fetches the service's gateway account of the given type.
func (c *ConnectorClient) GetAccountByServiceAndType(ctx context.Context, serviceExternalID string, accountType domain.AccountType) (*domain.GatewayAccount, error) {
	var acc domain.GatewayAccount
	p := paths.FormattedPathFor("/v1/api/service/:serviceId/account/:accountType", serviceExternalID, string(accountType))
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetCharge fetches a charge.
func (c *ConnectorClient) GetCharge(ctx context.Context, accountID int64, chargeID string) (*domain.Charge, error) {
	var ch domain.Charge
	p := paths.FormattedPathFor("/v1/api/accounts/:accountId/charges/:chargeId", id(accountID), chargeID)
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// CreateCharge creates a charge.
func (c *ConnectorClient) CreateCharge(ctx context.Context, accountID int64, req domain.ChargeRequest) (*domain.Charge, error) {
	var ch domain.Charge
	p := paths.FormattedPathFor("/v1/api/accounts/:accountId/charges", id(accountID))
	if err := c.do(ctx, http.MethodPost, p, nil, req.Payload(), &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetAcceptedCardTypes lists the card types the account accepts.
func (c *ConnectorClient) GetAcceptedCardTypes(ctx context.Context, accountID int64) (*domain.CardTypes, error) {
	var ct domain.CardTypes
	p := paths.FormattedPathFor("/v1/frontend/accounts/:accountId/card-types", id(accountID))
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

// GetAllCardTypes lists every card type connector supports.
func (c *ConnectorClient) GetAllCardTypes(ctx context.Context) (*domain.CardTypes, error) {
	var ct domain.CardTypes
	if err := c.do(ctx, http.MethodGet, "/v1/api/card-types", nil, nil, &ct); err != nil {
		return nil, err
	}
	return &ct, nil
}

// UpdateAcceptedCardTypes replaces the accepted card types.
func (c *ConnectorClient) UpdateAcceptedCardTypes(ctx context.Context, accountID int64, cardTypeIDs []string) error {
	p := paths.FormattedPathFor("/v1/frontend/accounts/:accountId/card-types", id(accountID))
	return c.do(ctx, http.MethodPost, p, nil, map[string]any{"card_types": cardTypeIDs}, nil)
}

func (c *ConnectorClient) patchAccount(ctx context.Context, accountID int64, field string, value any) error {
	p := paths.FormattedPathFor("/v1/api/accounts/:accountId", id(accountID))
	return c.do(ctx, http.MethodPatch, p, nil, domain.Replace(field, value), nil)
}

// ToggleApplePay enables or disables Apple Pay.
func (c *ConnectorClient) ToggleApplePay(ctx context.Context, accountID int64, enabled bool) error {
	return c.patchAccount(ctx, accountID, "allow_apple_pay", enabled)
}

// ToggleGooglePay enables or disables Google Pay.
func (c *ConnectorClient) ToggleGooglePay(ctx context.Context, accountID int64, enabled bool) error {
	return c.patchAccount(ctx, accountID, "allow_google_pay", enabled)
}

// ToggleMotoMaskCardNumber hides or shows the card number on MOTO payment pages.
func (c *ConnectorClient) ToggleMotoMaskCardNumber(ctx context.Context, accountID int64, enabled bool) error {
	return c.patchAccount(ctx, accountID, "moto_mask_card_number_input", enabled)
}

// ToggleMotoMaskSecurityCode hides or shows the security code on MOTO payment pages.
func (c *ConnectorClient) ToggleMotoMaskSecurityCode(ctx context.Context, accountID int64, enabled bool) error {
	return c.patchAccount(ctx, accountID, "moto_mask_card_security_code_input", enabled)
}

// GetStripeAccountSetup fetches the Stripe onboarding checklist.
func (c *ConnectorClient) GetStripeAccountSetup(ctx context.Context, accountID int64) (*domain.StripeAccountSetup, error) {
	var setup domain.StripeAccountSetup
	p := paths.FormattedPathFor("/v1/api/accounts/:accountId/stripe-setup", id(accountID))
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &setup); err != nil {
		return nil, err
	}
	return &setup, nil
}

// SetStripeAccountSetupFlag marks one checklist task complete.
func (c *ConnectorClient) SetStripeAccountSetupFlag(ctx context.Context, accountID int64, flag string) error {
	p := paths.FormattedPathFor("/v1/api/accounts/:accountId/stripe-setup", id(accountID))
	return c.do(ctx, http.MethodPatch, p, nil, []domain.PatchOperation{domain.Replace(flag, true)}, nil)
}

// GetStripeAccount fetches the connected Stripe account id.
func (c *ConnectorClient) GetStripeAccount(ctx context.Context, accountID int64) (*domain.StripeAccount, error) {
	var sa domain.StripeAccount
	p := paths.FormattedPathFor("/v1/api/accounts/:accountId/stripe-account", id(accountID))
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &sa); err != nil {
		return nil, err
	}
	return &sa, nil
}

// CheckWorldpayCredentials asks connector to try the credentials against
// Worldpay. It reports whether they were accepted.
func (c *ConnectorClient) CheckWorldpayCredentials(ctx context.Context, accountID int64, creds domain.WorldpayCredentials) (bool, error) {
	var res struct {
		Result string `json:"result"`
	}
	p := paths.FormattedPathFor("/v1/api/accounts/:accountId/worldpay/check-credentials", id(accountID))
	if err := c.do(ctx, http.MethodPost, p, nil, creds.CheckPayload(), &res); err != nil {
		return false, err
	}
	return res.Result == "valid", nil
}

// PatchCredential updates a gateway account credential.
func (c *ConnectorClient) PatchCredential(ctx context.Context, accountID, credentialID int64, req domain.CredentialsUpdateRequest) (*domain.GatewayAccountCredential, error) {
	var cred domain.GatewayAccountCredential
	p := paths.FormattedPathFor("/v1/api/accounts/:accountId/credentials/:credentialId", id(accountID), id(credentialID))
	if err := c.do(ctx, http.MethodPatch, p, nil, req.Payload(), &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// UpdateWorldpay3DSFlex sets the 3DS Flex credentials.
func (c *ConnectorClient) UpdateWorldpay3DSFlex(ctx context.Context, accountID int64, req domain.Worldpay3DSFlexRequest) error {
	p := paths.FormattedPathFor("/v1/api/accounts/:accountId/3ds-flex-credentials", id(accountID))
	return c.do(ctx, http.MethodPost, p, nil, req.Payload(), nil)
}

// CancelAgreement cancels a recurring payment agreement.
func (c *ConnectorClient) CancelAgreement(ctx context.Context, accountID int64, agreementID, userExternalID, userEmail string) error {
	p := paths.FormattedPathFor("/v1/api/accounts/:accountId/agreements/:agreementId/cancel", id(accountID), agreementID)
	return c.do(ctx, http.MethodPost, p, nil, map[string]any{
		"user_external_id": userExternalID,
		"user_email":       userEmail,
	}, nil)
}
