package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/onboarding"
	"github.com/boddenberg/pay-selfservice-go/internal/service"

	"github.com/guregu/null/v5"
	"go.uber.org/zap"
)

var testTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func accountContext(provider string) *service.AccountContext {
	return &service.AccountContext{Service: testService(), Account: testAccount(provider)}
}

// --- Account resolution ---

func TestResolve_Success(t *testing.T) {
	svc := service.NewAccountService(
		&fakeAdminUsers{service: testService()},
		&fakeConnector{account: testAccount(domain.ProviderSandbox)},
		observability.NewMetrics(), zap.NewNop(),
	)

	ac, err := svc.Resolve(context.Background(), testUser("svc-1"), "svc-1", domain.AccountTypeTest)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ac.AccountID() != 42 || ac.ServiceExternalID() != "svc-1" {
		t.Errorf("unexpected context %+v", ac)
	}
}

func TestResolve_NotFound(t *testing.T) {
	unlinked := testAccount(domain.ProviderSandbox)
	unlinked.ID = 99

	tests := []struct {
		name        string
		user        *domain.User
		accountType domain.AccountType
		account     *domain.GatewayAccount
	}{
		{"user without role", testUser("other-svc"), domain.AccountTypeTest, testAccount(domain.ProviderSandbox)},
		{"unknown account type", testUser("svc-1"), domain.AccountType("staging"), testAccount(domain.ProviderSandbox)},
		{"account of another service", testUser("svc-1"), domain.AccountTypeTest, unlinked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewAccountService(
				&fakeAdminUsers{service: testService()},
				&fakeConnector{account: tt.account},
				observability.NewMetrics(), zap.NewNop(),
			)
			_, err := svc.Resolve(context.Background(), tt.user, "svc-1", tt.accountType)
			var nf *domain.ErrNotFound
			if !errors.As(err, &nf) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

// --- Dashboard ---

func TestDashboard_DegradesOnBackendFailure(t *testing.T) {
	ledger := &fakeLedger{summaryErr: &domain.ErrUpstream{Backend: "ledger", Status: 503}}
	auth := &fakePublicAuth{tokens: []domain.Token{{TokenLink: "a"}, {TokenLink: "b"}}}
	products := &fakeProducts{products: []domain.Product{{ExternalID: "p"}}}

	svc := service.NewDashboardService(ledger, auth, products, &fakeConnector{}, observability.NewMetrics(), zap.NewNop())
	d, err := svc.Get(context.Background(), accountContext(domain.ProviderSandbox))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.Summary != nil {
		t.Error("expected summary to be empty")
	}
	if len(d.Unavailable) != 1 || d.Unavailable[0] != "transaction summary" {
		t.Errorf("expected only the summary to be unavailable, got %v", d.Unavailable)
	}
	if d.ActiveKeys != 2 || d.PaymentLinks != 1 {
		t.Errorf("expected other sections filled, got %+v", d)
	}
}

func TestDashboard_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := service.NewDashboardService(&fakeLedger{}, &fakePublicAuth{}, &fakeProducts{}, &fakeConnector{}, observability.NewMetrics(), zap.NewNop())
	if _, err := svc.Get(ctx, accountContext(domain.ProviderSandbox)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// --- API keys ---

func TestTokenService_Create(t *testing.T) {
	auth := &fakePublicAuth{newToken: "api_test_abc"}
	svc := service.NewTokenService(auth, zap.NewNop())

	tok, err := svc.Create(context.Background(), accountContext(domain.ProviderSandbox), testUser("svc-1"), "Staging key")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tok.Token != "api_test_abc" {
		t.Errorf("unexpected token %q", tok.Token)
	}
	req := auth.created[0]
	if req.AccountID != "42" || req.Description != "Staging key" || req.CreatedBy != "user@example.gov.uk" || req.Type != domain.TokenKindAPI {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestTokenService_RevokeRevokedKeyIsNotFound(t *testing.T) {
	revoked := &domain.Token{TokenLink: "link-1", RevokedDate: null.TimeFrom(testTime)}
	auth := &fakePublicAuth{token: revoked}
	svc := service.NewTokenService(auth, zap.NewNop())

	_, err := svc.Revoke(context.Background(), accountContext(domain.ProviderSandbox), testUser("svc-1"), "link-1")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(auth.revoked) != 0 {
		t.Error("expected no revoke call")
	}
}

func TestTokenService_Rename(t *testing.T) {
	auth := &fakePublicAuth{token: &domain.Token{TokenLink: "link-1", Description: "old"}}
	svc := service.NewTokenService(auth, zap.NewNop())

	tok, err := svc.Rename(context.Background(), accountContext(domain.ProviderSandbox), "link-1", "new")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tok.Description != "new" || auth.renamed["link-1"] != "new" {
		t.Errorf("expected rename, got %+v", tok)
	}
}

// --- Transactions ---

func TestTransactionDetail_EventsDegrade(t *testing.T) {
	ledger := &fakeLedger{
		tx:        &domain.Transaction{TransactionID: "tx-1"},
		eventsErr: &domain.ErrUpstream{Backend: "ledger", Status: 500},
	}
	svc := service.NewTransactionService(ledger, zap.NewNop())

	d, err := svc.Detail(context.Background(), accountContext(domain.ProviderSandbox), "tx-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.Transaction.TransactionID != "tx-1" || d.Events != nil {
		t.Errorf("unexpected detail %+v", d)
	}
}

func TestTransactionDetail_NotFound(t *testing.T) {
	ledger := &fakeLedger{txErr: &domain.ErrNotFound{Resource: "ledger", ID: "tx-1"}}
	svc := service.NewTransactionService(ledger, zap.NewNop())

	_, err := svc.Detail(context.Background(), accountContext(domain.ProviderSandbox), "tx-1")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- Payment links ---

func TestPaymentLinkService_Create(t *testing.T) {
	auth := &fakePublicAuth{newToken: "products-token"}
	products := &fakeProducts{}
	svc := service.NewPaymentLinkService(products, auth, "https://pay.example/", zap.NewNop())

	link := service.PaymentLink{
		Title:            "Parking permit",
		Welsh:            true,
		ReferenceEnabled: true,
		ReferenceLabel:   "Permit number",
		AmountPence:      1250,
	}
	p, err := svc.Create(context.Background(), accountContext(domain.ProviderSandbox), testUser("svc-1"), link)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.ExternalID != "prod-1" {
		t.Errorf("unexpected product %+v", p)
	}
	if auth.created[0].Type != domain.TokenKindProducts {
		t.Errorf("expected a products token, got %+v", auth.created[0])
	}
	req := products.created[0]
	if req.PayAPIToken != "products-token" || req.Language != "cy" || req.Price.Int64 != 1250 {
		t.Errorf("unexpected product request %+v", req)
	}
	if req.ProductNamePath.String != "parking-permit" || req.Description.Valid || req.ReferenceHint.Valid {
		t.Errorf("unexpected optional fields %+v", req)
	}
}

func TestPaymentLinkService_PreviewURL(t *testing.T) {
	svc := service.NewPaymentLinkService(&fakeProducts{}, &fakePublicAuth{}, "https://pay.example/", zap.NewNop())
	got := svc.PreviewURL(accountContext(domain.ProviderSandbox), service.PaymentLink{Title: "Pay your fine!"})
	if got != "https://pay.example/pay-for-a-parking-permit/pay-your-fine" {
		t.Errorf("unexpected preview url %q", got)
	}
}

func TestPaymentLinkService_DeleteUnknown(t *testing.T) {
	products := &fakeProducts{}
	svc := service.NewPaymentLinkService(products, &fakePublicAuth{}, "", zap.NewNop())

	err := svc.Delete(context.Background(), accountContext(domain.ProviderSandbox), "nope")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(products.deleted) != 0 {
		t.Error("expected no delete call")
	}
}

// --- Settings ---

func TestSettingsService_UpdateCardTypes(t *testing.T) {
	conn := &fakeConnector{allCardTypes: &domain.CardTypes{CardTypes: []domain.CardType{{ID: "visa"}, {ID: "mc"}}}}
	svc := service.NewSettingsService(conn, zap.NewNop())
	ac := accountContext(domain.ProviderSandbox)

	var ve *domain.ErrValidation
	if err := svc.UpdateCardTypes(context.Background(), ac, nil); !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation for empty selection, got %v", err)
	}
	if err := svc.UpdateCardTypes(context.Background(), ac, []string{"amex"}); !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation for unknown card, got %v", err)
	}
	if err := svc.UpdateCardTypes(context.Background(), ac, []string{"visa"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(conn.updatedCards) != 1 || conn.updatedCards[0] != "visa" {
		t.Errorf("unexpected update %v", conn.updatedCards)
	}
}

func TestSettingsService_Toggle(t *testing.T) {
	conn := &fakeConnector{}
	svc := service.NewSettingsService(conn, zap.NewNop())

	if err := svc.Toggle(context.Background(), accountContext(domain.ProviderSandbox), service.ToggleMotoMaskSecurityCode, true); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !conn.toggled["moto-cvc"] {
		t.Errorf("expected moto security code toggle, got %v", conn.toggled)
	}
}

// --- Webhooks ---

func TestWebhookService_UpdateRejectsUnknownEvent(t *testing.T) {
	hooks := &fakeWebhooks{webhook: &domain.Webhook{ExternalID: "wh-1"}}
	svc := service.NewWebhookService(hooks, zap.NewNop())
	ac := accountContext(domain.ProviderSandbox)

	_, err := svc.Update(context.Background(), ac, "wh-1", domain.WebhookUpdateRequest{
		Subscriptions: []string{"card_payment_succeeded", "card_payment_exploded"},
	})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(hooks.updated) != 0 {
		t.Error("expected no update call")
	}

	req := domain.WebhookUpdateRequest{
		CallbackURL:   null.StringFrom("https://service.example/hook"),
		Subscriptions: []string{"card_payment_captured"},
	}
	if _, err := svc.Update(context.Background(), ac, "wh-1", req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(hooks.updated) != 1 || hooks.updated[0].CallbackURL.String != "https://service.example/hook" {
		t.Errorf("unexpected update %+v", hooks.updated)
	}
}

// --- Agreements ---

func TestAgreementService_CancelOnlyOnce(t *testing.T) {
	ledger := &fakeLedger{agreement: &domain.Agreement{ExternalID: "agr-1", Status: domain.AgreementCancelled}}
	conn := &fakeConnector{}
	svc := service.NewAgreementService(ledger, conn, zap.NewNop())

	err := svc.Cancel(context.Background(), accountContext(domain.ProviderSandbox), testUser("svc-1"), "agr-1")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(conn.cancelled) != 0 {
		t.Error("expected no cancel call")
	}

	ledger.agreement.Status = domain.AgreementActive
	if err := svc.Cancel(context.Background(), accountContext(domain.ProviderSandbox), testUser("svc-1"), "agr-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(conn.cancelled) != 1 {
		t.Errorf("expected one cancel call, got %v", conn.cancelled)
	}
}

// --- Demo payment ---

func TestDemoPaymentService_Start(t *testing.T) {
	conn := &fakeConnector{charge: &domain.Charge{ChargeID: "ch", Links: []domain.Link{{Rel: "next_url", Href: "https://pay/card"}}}}
	svc := service.NewDemoPaymentService(conn, zap.NewNop())

	next, err := svc.Start(context.Background(), accountContext(domain.ProviderSandbox), "Test", 2000, "https://selfservice/return")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if next != "https://pay/card" {
		t.Errorf("unexpected next url %q", next)
	}
	if conn.chargeReq.Amount != 2000 || !strings.HasPrefix(conn.chargeReq.Reference, "DEMO-") {
		t.Errorf("unexpected charge request %+v", conn.chargeReq)
	}
}

func TestDemoPaymentService_LiveAccount(t *testing.T) {
	ac := accountContext(domain.ProviderStripe)
	ac.Account.Type = domain.AccountTypeLive
	svc := service.NewDemoPaymentService(&fakeConnector{}, zap.NewNop())

	_, err := svc.Start(context.Background(), ac, "Test", 2000, "")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- Go live ---

func TestGoLiveService_Flow(t *testing.T) {
	admin := &fakeAdminUsers{service: testService()}
	svc := service.NewGoLiveService(admin, zap.NewNop())
	ctx := context.Background()

	s, err := svc.SetOrganisationName(ctx, admin.service, "Borough Council")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.CurrentGoLiveStage != domain.GoLiveStageEnteredOrganisationName {
		t.Errorf("unexpected stage %s", s.CurrentGoLiveStage)
	}
	if service.GoLiveNextPage(s.CurrentGoLiveStage) == "" {
		t.Error("expected a next page")
	}

	if _, err := svc.Agree(ctx, s, testUser("svc-1")); err == nil {
		t.Fatal("expected agreement before choosing a PSP to fail")
	}

	s, err = svc.SetOrganisationContact(ctx, s, service.OrganisationContact{
		Address:         domain.Address{Line1: "1 High Street", City: "London", Postcode: "E1 1AA", Country: "GB"},
		TelephoneNumber: "01134960000",
		URL:             "https://borough.example.gov.uk",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	s, err = svc.ChoosePSP(ctx, s, domain.ProviderStripe)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	s, err = svc.Agree(ctx, s, testUser("svc-1"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.CurrentGoLiveStage != domain.GoLiveStageTermsAgreedStripe || admin.agreedBy != "user-1" {
		t.Errorf("unexpected result stage=%s agreedBy=%s", s.CurrentGoLiveStage, admin.agreedBy)
	}

	_, err = svc.SetOrganisationName(ctx, s, "Again")
	var done *domain.ErrTaskAlreadyCompleted
	if !errors.As(err, &done) {
		t.Fatalf("expected ErrTaskAlreadyCompleted, got %v", err)
	}
}

func TestGoLiveService_CannotSkipSteps(t *testing.T) {
	admin := &fakeAdminUsers{service: testService()}
	svc := service.NewGoLiveService(admin, zap.NewNop())
	ctx := context.Background()

	_, err := svc.ChoosePSP(ctx, admin.service, domain.ProviderStripe)
	var seq *domain.ErrTaskOutOfSequence
	if !errors.As(err, &seq) {
		t.Fatalf("expected ErrTaskOutOfSequence, got %v", err)
	}
	if len(seq.Missing) != 2 || seq.Missing[0] != "organisation-name" || seq.Missing[1] != "organisation-address" {
		t.Errorf("unexpected missing steps %v", seq.Missing)
	}

	if _, err := svc.SetOrganisationContact(ctx, admin.service, service.OrganisationContact{}); !errors.As(err, &seq) {
		t.Fatalf("expected ErrTaskOutOfSequence for address before name, got %v", err)
	}
	if _, err := svc.Agree(ctx, admin.service, testUser("svc-1")); !errors.As(err, &seq) {
		t.Fatalf("expected ErrTaskOutOfSequence for agreement, got %v", err)
	}
	if len(admin.stages) != 0 || len(admin.orgRequests) != 0 || admin.agreedBy != "" {
		t.Errorf("expected no adminusers writes, got stages=%v org=%d agreedBy=%q", admin.stages, len(admin.orgRequests), admin.agreedBy)
	}
}

func TestGoLiveService_ResubmittingEarlierPageKeepsStage(t *testing.T) {
	current := testService()
	current.CurrentGoLiveStage = domain.GoLiveStageChosenPSPStripe
	admin := &fakeAdminUsers{service: current}
	svc := service.NewGoLiveService(admin, zap.NewNop())

	s, err := svc.SetOrganisationName(context.Background(), current, "Renamed Council")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.CurrentGoLiveStage != domain.GoLiveStageChosenPSPStripe {
		t.Errorf("expected stage kept at CHOSEN_PSP_STRIPE, got %s", s.CurrentGoLiveStage)
	}
	if len(admin.stages) != 0 {
		t.Errorf("expected no stage update, got %v", admin.stages)
	}
	if len(admin.orgRequests) != 1 || admin.orgRequests[0].Name.String != "Renamed Council" {
		t.Errorf("expected the name to be saved, got %+v", admin.orgRequests)
	}

	s, err = svc.ChoosePSP(context.Background(), s, domain.ProviderWorldpay)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.CurrentGoLiveStage != domain.GoLiveStageChosenPSPWorldpay {
		t.Errorf("expected PSP choice to change, got %s", s.CurrentGoLiveStage)
	}
}

func TestCheckGoLiveStep(t *testing.T) {
	tests := []struct {
		stage domain.GoLiveStage
		step  service.GoLiveStep
		want  string
	}{
		{domain.GoLiveStageNotStarted, service.GoLiveStepOrganisationName, ""},
		{domain.GoLiveStageNotStarted, service.GoLiveStepOrganisationAddress, "out of sequence"},
		{domain.GoLiveStageEnteredOrganisationAddr, service.GoLiveStepChoosePSP, ""},
		{domain.GoLiveStageEnteredOrganisationAddr, service.GoLiveStepAgreement, "out of sequence"},
		{domain.GoLiveStageChosenPSPWorldpay, service.GoLiveStepOrganisationName, ""},
		{domain.GoLiveStageTermsAgreedStripe, service.GoLiveStepAgreement, "completed"},
	}
	for _, tt := range tests {
		svc := testService()
		svc.CurrentGoLiveStage = tt.stage
		err := service.CheckGoLiveStep(svc, tt.step)

		var seq *domain.ErrTaskOutOfSequence
		var done *domain.ErrTaskAlreadyCompleted
		switch tt.want {
		case "":
			if err != nil {
				t.Errorf("%s step %d: expected no error, got %v", tt.stage, tt.step, err)
			}
		case "out of sequence":
			if !errors.As(err, &seq) {
				t.Errorf("%s step %d: expected ErrTaskOutOfSequence, got %v", tt.stage, tt.step, err)
			}
		case "completed":
			if !errors.As(err, &done) {
				t.Errorf("%s step %d: expected ErrTaskAlreadyCompleted, got %v", tt.stage, tt.step, err)
			}
		}
	}
}

// --- Onboarding ---

func newOnboarding(t *testing.T, conn *fakeConnector, stripe *fakeStripe) *service.OnboardingService {
	t.Helper()
	cat, err := onboarding.Load("")
	if err != nil {
		t.Fatalf("load catalogue: %v", err)
	}
	return service.NewOnboardingService(conn, stripe, cat, zap.NewNop())
}

func TestOnboarding_CheckTask(t *testing.T) {
	conn := &fakeConnector{stripeSetup: &domain.StripeAccountSetup{BankAccount: true}}
	svc := newOnboarding(t, conn, &fakeStripe{})
	ac := accountContext(domain.ProviderStripe)
	cred := &ac.Account.Credentials[0]

	var done *domain.ErrTaskAlreadyCompleted
	if err := svc.CheckTask(context.Background(), ac, cred, "bank-details"); !errors.As(err, &done) {
		t.Fatalf("expected ErrTaskAlreadyCompleted, got %v", err)
	}
	var seq *domain.ErrTaskOutOfSequence
	if err := svc.CheckTask(context.Background(), ac, cred, "government-entity-document"); !errors.As(err, &seq) {
		t.Fatalf("expected ErrTaskOutOfSequence, got %v", err)
	}
	if err := svc.CheckTask(context.Background(), ac, cred, "director"); err != nil {
		t.Fatalf("expected director to be open, got %v", err)
	}
}

func TestOnboarding_SubmitBankDetails(t *testing.T) {
	conn := &fakeConnector{stripeAccount: "acct_1"}
	stripe := &fakeStripe{}
	svc := newOnboarding(t, conn, stripe)

	err := svc.SubmitBankDetails(context.Background(), accountContext(domain.ProviderStripe), domain.BankAccount{SortCode: "309430", AccountNumber: "00733445"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(stripe.calls) != 1 || stripe.calls[0] != "bank:acct_1" {
		t.Errorf("unexpected stripe calls %v", stripe.calls)
	}
	if len(conn.flags) != 1 || conn.flags[0] != domain.StripeSetupBankAccount {
		t.Errorf("unexpected flags %v", conn.flags)
	}
}

func TestOnboarding_StripeFailureLeavesTaskOpen(t *testing.T) {
	conn := &fakeConnector{stripeAccount: "acct_1"}
	stripe := &fakeStripe{err: &domain.ErrBackendClient{Backend: "stripe", Status: 400}}
	svc := newOnboarding(t, conn, stripe)

	err := svc.SubmitDirector(context.Background(), accountContext(domain.ProviderStripe), domain.Person{FirstName: "A"})
	var ce *domain.ErrBackendClient
	if !errors.As(err, &ce) {
		t.Fatalf("expected ErrBackendClient, got %v", err)
	}
	if len(conn.flags) != 0 {
		t.Errorf("expected no flag to be set, got %v", conn.flags)
	}
}

func TestOnboarding_VATNumberDeclaredAbsent(t *testing.T) {
	conn := &fakeConnector{stripeAccount: "acct_1"}
	stripe := &fakeStripe{}
	svc := newOnboarding(t, conn, stripe)

	if err := svc.SubmitVATNumber(context.Background(), accountContext(domain.ProviderStripe), null.String{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(stripe.calls) != 0 || len(conn.flags) != 1 {
		t.Errorf("expected only the flag to be set, calls=%v flags=%v", stripe.calls, conn.flags)
	}
}

func TestOnboarding_WorldpayCredentials(t *testing.T) {
	conn := &fakeConnector{}
	svc := newOnboarding(t, conn, &fakeStripe{})
	ac := accountContext(domain.ProviderWorldpay)
	cred := &ac.Account.Credentials[0]
	creds := domain.WorldpayCredentials{MerchantCode: "MC", Username: "u", Password: "p"}

	var ve *domain.ErrValidation
	if err := svc.SubmitWorldpayCredentials(context.Background(), ac, testUser("svc-1"), cred, creds); !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if conn.patched != nil {
		t.Fatal("expected no patch for rejected credentials")
	}

	conn.credsValid = true
	if err := svc.SubmitWorldpayCredentials(context.Background(), ac, testUser("svc-1"), cred, creds); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if conn.patched.State != domain.CredentialEntered || conn.patched.UserExternalID != "user-1" {
		t.Errorf("unexpected patch %+v", conn.patched)
	}

	cred.State = domain.CredentialActive
	var done *domain.ErrTaskAlreadyCompleted
	if err := svc.SubmitWorldpayCredentials(context.Background(), ac, testUser("svc-1"), cred, creds); !errors.As(err, &done) {
		t.Fatalf("expected ErrTaskAlreadyCompleted, got %v", err)
	}
}

func TestOnboarding_Tasks(t *testing.T) {
	conn := &fakeConnector{}
	svc := newOnboarding(t, conn, &fakeStripe{})
	ac := accountContext(domain.ProviderWorldpay)

	list, err := svc.Tasks(context.Background(), ac, &ac.Account.Credentials[0])
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if list.Complete || len(list.Tasks) != 2 {
		t.Fatalf("unexpected task list %+v", list)
	}
	if list.Tasks[1].Status != onboarding.StatusCannotStart {
		t.Errorf("expected 3DS flex to be blocked, got %s", list.Tasks[1].Status)
	}
}

// --- Auth ---

func TestAuthService_LoginRejected(t *testing.T) {
	admin := &fakeAdminUsers{authErr: &domain.ErrBackendClient{Backend: "adminusers", Status: 401}}
	svc := service.NewAuthService(admin, zap.NewNop())

	_, err := svc.Login(context.Background(), "a@b.c", "wrong")
	var ue *domain.ErrUnauthorized
	if !errors.As(err, &ue) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_LoginUpstreamFailure(t *testing.T) {
	admin := &fakeAdminUsers{authErr: &domain.ErrUpstream{Backend: "adminusers", Status: 500}}
	svc := service.NewAuthService(admin, zap.NewNop())

	_, err := svc.Login(context.Background(), "a@b.c", "pw")
	var up *domain.ErrUpstream
	if !errors.As(err, &up) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestAuthService_VerifySecondFactorSanitises(t *testing.T) {
	admin := &fakeAdminUsers{user: &domain.User{ExternalID: "user-1"}}
	svc := service.NewAuthService(admin, zap.NewNop())

	if _, err := svc.VerifySecondFactor(context.Background(), "user-1", null.StringFrom(" 123-456 ")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if admin.secondFactor != "123456" {
		t.Errorf("expected sanitised code, got %q", admin.secondFactor)
	}
}

func TestAuthService_AcceptInvite(t *testing.T) {
	admin := &fakeAdminUsers{invite: &domain.Invite{Code: "c1", Email: "User@Example.gov.uk"}}
	svc := service.NewAuthService(admin, zap.NewNop())

	if _, err := svc.AcceptInvite(context.Background(), testUser("svc-1"), "c1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if admin.completedCode != "c1" {
		t.Errorf("expected invite to be completed")
	}

	admin.invite.Expired = true
	_, err := svc.AcceptInvite(context.Background(), testUser("svc-1"), "c1")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound for expired invite, got %v", err)
	}
}
