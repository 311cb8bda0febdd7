// Package port defines the interfaces (ports) for the backends selfservice
// talks to. Services depend on these; the clients in infra implement them.
package port

import (
	"context"
	"io"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
)

// Connector is the payments backend: gateway accounts, charges, card types
// and PSP setup.
type Connector interface {
	GetAccountByServiceAndType(ctx context.Context, serviceExternalID string, accountType domain.AccountType) (*domain.GatewayAccount, error)
	CreateCharge(ctx context.Context, accountID int64, req domain.ChargeRequest) (*domain.Charge, error)

	GetAcceptedCardTypes(ctx context.Context, accountID int64) (*domain.CardTypes, error)
	GetAllCardTypes(ctx context.Context) (*domain.CardTypes, error)
	UpdateAcceptedCardTypes(ctx context.Context, accountID int64, cardTypeIDs []string) error
	ToggleApplePay(ctx context.Context, accountID int64, enabled bool) error
	ToggleGooglePay(ctx context.Context, accountID int64, enabled bool) error
	ToggleMotoMaskCardNumber(ctx context.Context, accountID int64, enabled bool) error
	ToggleMotoMaskSecurityCode(ctx context.Context, accountID int64, enabled bool) error

	GetStripeAccountSetup(ctx context.Context, accountID int64) (*domain.StripeAccountSetup, error)
	SetStripeAccountSetupFlag(ctx context.Context, accountID int64, flag string) error
	GetStripeAccount(ctx context.Context, accountID int64) (*domain.StripeAccount, error)
	CheckWorldpayCredentials(ctx context.Context, accountID int64, creds domain.WorldpayCredentials) (bool, error)
	PatchCredential(ctx context.Context, accountID, credentialID int64, req domain.CredentialsUpdateRequest) (*domain.GatewayAccountCredential, error)
	UpdateWorldpay3DSFlex(ctx context.Context, accountID int64, req domain.Worldpay3DSFlexRequest) error

	CancelAgreement(ctx context.Context, accountID int64, agreementID, userExternalID, userEmail string) error
}

// Ledger is the read-only record of transactions, payouts and agreements.
type Ledger interface {
	GetTransaction(ctx context.Context, accountID int64, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, accountID int64, search domain.TransactionSearch) (*domain.Page[domain.Transaction], error)
	GetTransactionEvents(ctx context.Context, accountID int64, transactionID string) (*domain.TransactionEvents, error)
	GetTransactionSummary(ctx context.Context, accountID int64, fromDate, toDate string) (*domain.TransactionSummary, error)
	ListPayouts(ctx context.Context, accountID int64, page int) (*domain.Page[domain.Payout], error)
	GetAgreement(ctx context.Context, serviceExternalID, agreementID string) (*domain.Agreement, error)
	ListAgreements(ctx context.Context, serviceExternalID string, live bool, search domain.AgreementSearch) (*domain.Page[domain.Agreement], error)
}

// AdminUsers owns users, services and invites.
type AdminUsers interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	AuthenticateSecondFactor(ctx context.Context, userExternalID, code string) (*domain.User, error)
	GetUser(ctx context.Context, userExternalID string) (*domain.User, error)
	GetService(ctx context.Context, serviceExternalID string) (*domain.Service, error)
	UpdateGoLiveStage(ctx context.Context, serviceExternalID string, stage domain.GoLiveStage) (*domain.Service, error)
	UpdateOrganisationDetails(ctx context.Context, serviceExternalID string, req domain.OrganisationDetailsRequest) (*domain.Service, error)
	RecordGoLiveAgreement(ctx context.Context, serviceExternalID, userExternalID string) error
	GetInvite(ctx context.Context, code string) (*domain.Invite, error)
	CompleteInvite(ctx context.Context, code string) (*domain.InviteCompletion, error)
}

// PublicAuth issues and revokes API keys.
type PublicAuth interface {
	ListTokens(ctx context.Context, accountID int64, state string) (*domain.TokenList, error)
	CreateToken(ctx context.Context, req domain.CreateTokenRequest) (*domain.NewToken, error)
	GetToken(ctx context.Context, accountID int64, tokenLink string) (*domain.Token, error)
	UpdateTokenDescription(ctx context.Context, tokenLink, description string) (*domain.Token, error)
	RevokeToken(ctx context.Context, accountID int64, tokenLink string) (*domain.RevokedToken, error)
}

// Products owns payment links.
type Products interface {
	CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error)
	ListProducts(ctx context.Context, accountID int64, productType string) ([]domain.Product, error)
	GetProduct(ctx context.Context, accountID int64, productExternalID string) (*domain.Product, error)
	DeleteProduct(ctx context.Context, accountID int64, productExternalID string) error
}

// Webhooks owns webhook subscriptions.
type Webhooks interface {
	ListWebhooks(ctx context.Context, serviceExternalID string, accountID int64, live bool) ([]domain.Webhook, error)
	GetWebhook(ctx context.Context, webhookExternalID, serviceExternalID string, accountID int64) (*domain.Webhook, error)
	UpdateWebhook(ctx context.Context, webhookExternalID, serviceExternalID string, accountID int64, req domain.WebhookUpdateRequest) (*domain.Webhook, error)
}

// StripeConnect updates the Stripe connected account during onboarding.
type StripeConnect interface {
	UpdateBankAccount(ctx context.Context, stripeAccountID string, bank domain.BankAccount) error
	CreateResponsiblePerson(ctx context.Context, stripeAccountID string, p domain.Person) error
	CreateDirector(ctx context.Context, stripeAccountID string, p domain.Person) error
	UpdateVATNumber(ctx context.Context, stripeAccountID, vatNumber string) error
	UpdateCompanyNumber(ctx context.Context, stripeAccountID, companyNumber string) error
	UpdateOrganisationDetails(ctx context.Context, stripeAccountID string, org domain.OrganisationDetails) error
	UploadGovernmentEntityDocument(ctx context.Context, stripeAccountID, filename string, r io.Reader) error
}

// Pinger is a backend whose health can be checked.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}
