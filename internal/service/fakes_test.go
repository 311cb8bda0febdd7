package service_test

import (
	"context"
	"io"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
)

// --- Mocks ---

type fakeConnector struct {
	account       *domain.GatewayAccount
	accountErr    error
	charge        *domain.Charge
	chargeReq     domain.ChargeRequest
	allCardTypes  *domain.CardTypes
	accepted      *domain.CardTypes
	updatedCards  []string
	toggled       map[string]bool
	stripeSetup   *domain.StripeAccountSetup
	setupErr      error
	flags         []string
	stripeAccount string
	credsValid    bool
	patched       *domain.CredentialsUpdateRequest
	flex          *domain.Worldpay3DSFlexRequest
	cancelled     []string
}

func (f *fakeConnector) GetAccountByServiceAndType(_ context.Context, _ string, _ domain.AccountType) (*domain.GatewayAccount, error) {
	return f.account, f.accountErr
}

func (f *fakeConnector) CreateCharge(_ context.Context, _ int64, req domain.ChargeRequest) (*domain.Charge, error) {
	f.chargeReq = req
	return f.charge, nil
}

func (f *fakeConnector) GetAcceptedCardTypes(_ context.Context, _ int64) (*domain.CardTypes, error) {
	return f.accepted, nil
}

func (f *fakeConnector) GetAllCardTypes(_ context.Context) (*domain.CardTypes, error) {
	return f.allCardTypes, nil
}

func (f *fakeConnector) UpdateAcceptedCardTypes(_ context.Context, _ int64, ids []string) error {
	f.updatedCards = ids
	return nil
}

func (f *fakeConnector) toggle(name string, enabled bool) error {
	if f.toggled == nil {
		f.toggled = map[string]bool{}
	}
	f.toggled[name] = enabled
	return nil
}

func (f *fakeConnector) ToggleApplePay(_ context.Context, _ int64, enabled bool) error {
	return f.toggle("apple", enabled)
}

func (f *fakeConnector) ToggleGooglePay(_ context.Context, _ int64, enabled bool) error {
	return f.toggle("google", enabled)
}

func (f *fakeConnector) ToggleMotoMaskCardNumber(_ context.Context, _ int64, enabled bool) error {
	return f.toggle("moto-card", enabled)
}

func (f *fakeConnector) ToggleMotoMaskSecurityCode(_ context.Context, _ int64, enabled bool) error {
	return f.toggle("moto-cvc", enabled)
}

func (f *fakeConnector) GetStripeAccountSetup(_ context.Context, _ int64) (*domain.StripeAccountSetup, error) {
	if f.setupErr != nil {
		return nil, f.setupErr
	}
	if f.stripeSetup == nil {
		return &domain.StripeAccountSetup{}, nil
	}
	return f.stripeSetup, nil
}

func (f *fakeConnector) SetStripeAccountSetupFlag(_ context.Context, _ int64, flag string) error {
	f.flags = append(f.flags, flag)
	return nil
}

func (f *fakeConnector) GetStripeAccount(_ context.Context, _ int64) (*domain.StripeAccount, error) {
	return &domain.StripeAccount{StripeAccountID: f.stripeAccount}, nil
}

func (f *fakeConnector) CheckWorldpayCredentials(_ context.Context, _ int64, _ domain.WorldpayCredentials) (bool, error) {
	return f.credsValid, nil
}

func (f *fakeConnector) PatchCredential(_ context.Context, _, _ int64, req domain.CredentialsUpdateRequest) (*domain.GatewayAccountCredential, error) {
	f.patched = &req
	return &domain.GatewayAccountCredential{State: req.State}, nil
}

func (f *fakeConnector) UpdateWorldpay3DSFlex(_ context.Context, _ int64, req domain.Worldpay3DSFlexRequest) error {
	f.flex = &req
	return nil
}

func (f *fakeConnector) CancelAgreement(_ context.Context, _ int64, agreementID, _, _ string) error {
	f.cancelled = append(f.cancelled, agreementID)
	return nil
}

type fakeLedger struct {
	tx         *domain.Transaction
	txErr      error
	events     *domain.TransactionEvents
	eventsErr  error
	page       *domain.Page[domain.Transaction]
	summary    *domain.TransactionSummary
	summaryErr error
	payouts    *domain.Page[domain.Payout]
	agreement  *domain.Agreement
	agreements *domain.Page[domain.Agreement]
	lastLive   bool
}

func (f *fakeLedger) GetTransaction(_ context.Context, _ int64, _ string) (*domain.Transaction, error) {
	return f.tx, f.txErr
}

func (f *fakeLedger) ListTransactions(_ context.Context, _ int64, _ domain.TransactionSearch) (*domain.Page[domain.Transaction], error) {
	return f.page, nil
}

func (f *fakeLedger) GetTransactionEvents(_ context.Context, _ int64, _ string) (*domain.TransactionEvents, error) {
	return f.events, f.eventsErr
}

func (f *fakeLedger) GetTransactionSummary(_ context.Context, _ int64, _, _ string) (*domain.TransactionSummary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeLedger) ListPayouts(_ context.Context, _ int64, _ int) (*domain.Page[domain.Payout], error) {
	return f.payouts, nil
}

func (f *fakeLedger) GetAgreement(_ context.Context, _, id string) (*domain.Agreement, error) {
	if f.agreement == nil {
		return nil, &domain.ErrNotFound{Resource: "agreement", ID: id}
	}
	return f.agreement, nil
}

func (f *fakeLedger) ListAgreements(_ context.Context, _ string, live bool, _ domain.AgreementSearch) (*domain.Page[domain.Agreement], error) {
	f.lastLive = live
	return f.agreements, nil
}

type fakeAdminUsers struct {
	user          *domain.User
	authErr       error
	secondFactor  string
	service       *domain.Service
	stages        []domain.GoLiveStage
	orgRequests   []domain.OrganisationDetailsRequest
	agreedBy      string
	invite        *domain.Invite
	completedCode string
}

func (f *fakeAdminUsers) Authenticate(_ context.Context, _, _ string) (*domain.User, error) {
	return f.user, f.authErr
}

func (f *fakeAdminUsers) AuthenticateSecondFactor(_ context.Context, _, code string) (*domain.User, error) {
	f.secondFactor = code
	return f.user, f.authErr
}

func (f *fakeAdminUsers) GetUser(_ context.Context, _ string) (*domain.User, error) {
	return f.user, f.authErr
}

func (f *fakeAdminUsers) GetService(_ context.Context, id string) (*domain.Service, error) {
	if f.service == nil {
		return nil, &domain.ErrNotFound{Resource: "service", ID: id}
	}
	return f.service, nil
}

func (f *fakeAdminUsers) UpdateGoLiveStage(_ context.Context, _ string, stage domain.GoLiveStage) (*domain.Service, error) {
	f.stages = append(f.stages, stage)
	f.service.CurrentGoLiveStage = stage
	svc := *f.service
	return &svc, nil
}

func (f *fakeAdminUsers) UpdateOrganisationDetails(_ context.Context, _ string, req domain.OrganisationDetailsRequest) (*domain.Service, error) {
	f.orgRequests = append(f.orgRequests, req)
	svc := *f.service
	return &svc, nil
}

func (f *fakeAdminUsers) RecordGoLiveAgreement(_ context.Context, _, userExternalID string) error {
	f.agreedBy = userExternalID
	return nil
}

func (f *fakeAdminUsers) GetInvite(_ context.Context, code string) (*domain.Invite, error) {
	if f.invite == nil {
		return nil, &domain.ErrNotFound{Resource: "invite", ID: code}
	}
	return f.invite, nil
}

func (f *fakeAdminUsers) CompleteInvite(_ context.Context, code string) (*domain.InviteCompletion, error) {
	f.completedCode = code
	return &domain.InviteCompletion{Invite: *f.invite, UserExternalID: "user-1"}, nil
}

type fakePublicAuth struct {
	tokens   []domain.Token
	listErr  error
	token    *domain.Token
	created  []domain.CreateTokenRequest
	revoked  []string
	renamed  map[string]string
	newToken string
}

func (f *fakePublicAuth) ListTokens(_ context.Context, _ int64, _ string) (*domain.TokenList, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &domain.TokenList{Tokens: f.tokens}, nil
}

func (f *fakePublicAuth) CreateToken(_ context.Context, req domain.CreateTokenRequest) (*domain.NewToken, error) {
	f.created = append(f.created, req)
	return &domain.NewToken{Token: f.newToken}, nil
}

func (f *fakePublicAuth) GetToken(_ context.Context, _ int64, link string) (*domain.Token, error) {
	if f.token == nil || f.token.TokenLink != link {
		return nil, &domain.ErrNotFound{Resource: "token", ID: link}
	}
	return f.token, nil
}

func (f *fakePublicAuth) UpdateTokenDescription(_ context.Context, link, description string) (*domain.Token, error) {
	if f.renamed == nil {
		f.renamed = map[string]string{}
	}
	f.renamed[link] = description
	t := *f.token
	t.Description = description
	return &t, nil
}

func (f *fakePublicAuth) RevokeToken(_ context.Context, _ int64, link string) (*domain.RevokedToken, error) {
	f.revoked = append(f.revoked, link)
	return &domain.RevokedToken{Revoked: "today"}, nil
}

type fakeProducts struct {
	products []domain.Product
	listErr  error
	created  []domain.CreateProductRequest
	deleted  []string
}

func (f *fakeProducts) CreateProduct(_ context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	f.created = append(f.created, req)
	return &domain.Product{ExternalID: "prod-1", Name: req.Name}, nil
}

func (f *fakeProducts) ListProducts(_ context.Context, _ int64, _ string) ([]domain.Product, error) {
	return f.products, f.listErr
}

func (f *fakeProducts) GetProduct(_ context.Context, _ int64, id string) (*domain.Product, error) {
	for i := range f.products {
		if f.products[i].ExternalID == id {
			return &f.products[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "product", ID: id}
}

func (f *fakeProducts) DeleteProduct(_ context.Context, _ int64, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeStripe struct {
	calls []string
	err   error
}

func (f *fakeStripe) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeStripe) UpdateBankAccount(_ context.Context, id string, _ domain.BankAccount) error {
	return f.record("bank:" + id)
}

func (f *fakeStripe) CreateResponsiblePerson(_ context.Context, id string, _ domain.Person) error {
	return f.record("responsible:" + id)
}

func (f *fakeStripe) CreateDirector(_ context.Context, id string, _ domain.Person) error {
	return f.record("director:" + id)
}

func (f *fakeStripe) UpdateVATNumber(_ context.Context, id, vat string) error {
	return f.record("vat:" + vat)
}

func (f *fakeStripe) UpdateCompanyNumber(_ context.Context, id, number string) error {
	return f.record("company:" + number)
}

func (f *fakeStripe) UpdateOrganisationDetails(_ context.Context, id string, org domain.OrganisationDetails) error {
	return f.record("org:" + org.Name)
}

func (f *fakeStripe) UploadGovernmentEntityDocument(_ context.Context, id, filename string, r io.Reader) error {
	_, _ = io.Copy(io.Discard, r)
	return f.record("document:" + filename)
}

// --- Fixtures ---

func testUser(serviceID string, perms ...string) *domain.User {
	ps := make([]domain.Permission, 0, len(perms))
	for _, p := range perms {
		ps = append(ps, domain.Permission{Name: p})
	}
	return &domain.User{
		ExternalID: "user-1",
		Email:      "user@example.gov.uk",
		ServiceRoles: []domain.ServiceRole{
			{Service: domain.Service{ExternalID: serviceID}, Role: domain.Role{Name: "admin", Permissions: ps}},
		},
	}
}

func testService() *domain.Service {
	return &domain.Service{
		ExternalID:         "svc-1",
		Name:               "Pay for a parking permit",
		ServiceName:        domain.ServiceName{En: "Pay for a parking permit"},
		GatewayAccountIDs:  []string{"42"},
		CurrentGoLiveStage: domain.GoLiveStageNotStarted,
	}
}

func testAccount(provider string) *domain.GatewayAccount {
	return &domain.GatewayAccount{
		ID:              42,
		ExternalID:      "ga-ext-1",
		Type:            domain.AccountTypeTest,
		PaymentProvider: provider,
		Credentials: []domain.GatewayAccountCredential{
			{ID: 7, ExternalID: "cred-1", PaymentProvider: provider, State: domain.CredentialCreated},
		},
	}
}

type fakeWebhooks struct {
	webhook *domain.Webhook
	updated []domain.WebhookUpdateRequest
}

func (f *fakeWebhooks) ListWebhooks(_ context.Context, _ string, _ int64, _ bool) ([]domain.Webhook, error) {
	return []domain.Webhook{*f.webhook}, nil
}

func (f *fakeWebhooks) GetWebhook(_ context.Context, _, _ string, _ int64) (*domain.Webhook, error) {
	return f.webhook, nil
}

func (f *fakeWebhooks) UpdateWebhook(_ context.Context, _, _ string, _ int64, req domain.WebhookUpdateRequest) (*domain.Webhook, error) {
	f.updated = append(f.updated, req)
	return f.webhook, nil
}
