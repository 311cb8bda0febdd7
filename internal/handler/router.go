package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/port"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("handler")

// Feature flag names.
const (
	FeatureRecurring = "recurring"
	FeatureWebhooks  = "webhooks"
)

// Deps are the services and infrastructure the router is built from.
type Deps struct {
	Accounts     *service.AccountService
	Auth         *service.AuthService
	Dashboard    *service.DashboardService
	Tokens       *service.TokenService
	Transactions *service.TransactionService
	PaymentLinks *service.PaymentLinkService
	Settings     *service.SettingsService
	Agreements   *service.AgreementService
	Webhooks     *service.WebhookService
	DemoPayments *service.DemoPaymentService
	GoLive       *service.GoLiveService
	Onboarding   *service.OnboardingService
	Sessions     *session.Manager
	Features     FeatureFlags
	Pingers      []port.Pinger
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) (http.Handler, error) {
	v, err := newViews()
	if err != nil {
		return nil, err
	}
	rs := &responder{views: v, metrics: d.Metrics, logger: d.Logger}
	g := &Guards{accounts: d.Accounts, auth: d.Auth, onboarding: d.Onboarding, features: d.Features, rs: rs}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(d.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(d.Pingers, d.Logger))
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rs.errorPage(w, r, http.StatusNotFound)
	})

	svcPath := func(sub string) string { return paths.ChiPattern(paths.ServicePrefix + sub) }
	acctPath := func(sub string) string { return paths.ChiPattern(paths.AccountPrefix + sub) }
	perm := g.RequirePermission

	r.Group(func(r chi.Router) {
		r.Use(d.Sessions.Middleware)
		r.Use(d.Sessions.CSRF(rs.handleError))

		// =============================================
		// Sign in and invites
		// =============================================
		r.Get("/", func(w http.ResponseWriter, r *http.Request) { redirect(w, r, paths.MyServices) })
		r.Get(paths.Login, loginPageHandler(rs))
		r.Post(paths.Login, loginHandler(d.Auth, rs))
		r.Get(paths.OTPVerify, otpPageHandler(rs))
		r.Post(paths.OTPVerify, otpHandler(d.Auth, rs))
		r.Post(paths.Logout, logoutHandler(rs))
		r.Get(paths.ChiPattern(paths.Invite), invitePageHandler(d.Auth, rs))

		r.Group(func(r chi.Router) {
			r.Use(g.RequireAuth)

			r.Post(paths.ChiPattern(paths.InviteAccept), acceptInviteHandler(d.Auth, rs))
			r.Get(paths.MyServices, myServicesHandler(rs))

			// =============================================
			// Request to go live (service scoped)
			// =============================================
			r.Group(func(r chi.Router) {
				r.Use(g.ResolveService)
				r.Get(svcPath(paths.GoLiveIndex), goLiveIndexHandler(rs))

				r.Group(func(r chi.Router) {
					r.Use(perm(domain.PermGoLiveStageUpdate))
					r.Get(svcPath(paths.GoLiveOrganisationName), organisationNamePageHandler(rs))
					r.Post(svcPath(paths.GoLiveOrganisationName), organisationNameHandler(d.GoLive, rs))
					r.Get(svcPath(paths.GoLiveOrganisationAddress), organisationAddressPageHandler(rs))
					r.Post(svcPath(paths.GoLiveOrganisationAddress), organisationAddressHandler(d.GoLive, rs))
					r.Get(svcPath(paths.GoLiveChoosePSP), choosePSPPageHandler(rs))
					r.Post(svcPath(paths.GoLiveChoosePSP), choosePSPHandler(d.GoLive, rs))
					r.Get(svcPath(paths.GoLiveAgreement), agreementPageHandler(rs))
					r.Post(svcPath(paths.GoLiveAgreement), agreementHandler(d.GoLive, rs))
				})
			})

			// =============================================
			// Gateway account (account scoped)
			// =============================================
			r.Group(func(r chi.Router) {
				r.Use(g.ResolveAccount)

				r.Get(acctPath(paths.Dashboard), dashboardHandler(d.Dashboard, rs))

				// API keys
				r.With(perm(domain.PermTokensRead)).Get(acctPath(paths.APIKeys), listAPIKeysHandler(d.Tokens, rs, false))
				r.With(perm(domain.PermTokensRead)).Get(acctPath(paths.APIKeysRevoked), listAPIKeysHandler(d.Tokens, rs, true))
				r.Group(func(r chi.Router) {
					r.Use(perm(domain.PermTokensCreate))
					r.Get(acctPath(paths.APIKeysCreate), createAPIKeyPageHandler(rs))
					r.Post(acctPath(paths.APIKeysCreate), createAPIKeyHandler(d.Tokens, rs))
					r.Get(acctPath(paths.APIKeysCreated), createdAPIKeyHandler(rs))
				})
				r.With(perm(domain.PermTokensUpdate)).Get(acctPath(paths.APIKeysChangeName), changeAPIKeyNamePageHandler(d.Tokens, rs))
				r.With(perm(domain.PermTokensUpdate)).Post(acctPath(paths.APIKeysChangeName), changeAPIKeyNameHandler(d.Tokens, rs))
				r.With(perm(domain.PermTokensDelete)).Get(acctPath(paths.APIKeysRevoke), revokeAPIKeyPageHandler(d.Tokens, rs))
				r.With(perm(domain.PermTokensDelete)).Post(acctPath(paths.APIKeysRevoke), revokeAPIKeyHandler(d.Tokens, rs))

				// Transactions and payouts
				r.With(perm(domain.PermTransactionsRead)).Get(acctPath(paths.Transactions), listTransactionsHandler(d.Transactions, rs))
				r.With(perm(domain.PermTransactionsDetails)).Get(acctPath(paths.TransactionDetail), transactionDetailHandler(d.Transactions, rs))
				r.With(perm(domain.PermPayoutsRead)).Get(acctPath(paths.Payouts), listPayoutsHandler(d.Transactions, rs))

				// Recurring agreements
				r.Group(func(r chi.Router) {
					r.Use(g.RequireFeature(FeatureRecurring))
					r.With(perm(domain.PermAgreementsRead)).Get(acctPath(paths.Agreements), listAgreementsHandler(d.Agreements, rs))
					r.With(perm(domain.PermAgreementsRead)).Get(acctPath(paths.AgreementDetail), agreementDetailHandler(d.Agreements, rs))
					r.With(perm(domain.PermAgreementsUpdate)).Get(acctPath(paths.AgreementCancel), cancelAgreementPageHandler(d.Agreements, rs))
					r.With(perm(domain.PermAgreementsUpdate)).Post(acctPath(paths.AgreementCancel), cancelAgreementHandler(d.Agreements, rs))
				})

				// Settings
				r.With(perm(domain.PermPaymentTypesUpdate)).Get(acctPath(paths.CardTypes), cardTypesPageHandler(d.Settings, rs))
				r.With(perm(domain.PermPaymentTypesUpdate)).Post(acctPath(paths.CardTypes), cardTypesHandler(d.Settings, rs))
				r.Group(func(r chi.Router) {
					r.Use(perm(domain.PermWalletsUpdate))
					r.Get(acctPath(paths.ApplePay), togglePageHandler(rs, service.ToggleApplePay))
					r.Post(acctPath(paths.ApplePay), toggleHandler(d.Settings, rs, service.ToggleApplePay))
					r.Get(acctPath(paths.GooglePay), togglePageHandler(rs, service.ToggleGooglePay))
					r.Post(acctPath(paths.GooglePay), toggleHandler(d.Settings, rs, service.ToggleGooglePay))
				})
				r.Group(func(r chi.Router) {
					r.Use(g.RequireMoto, perm(domain.PermMotoUpdate))
					r.Get(acctPath(paths.MotoHideCardNumber), togglePageHandler(rs, service.ToggleMotoMaskCardNumber))
					r.Post(acctPath(paths.MotoHideCardNumber), toggleHandler(d.Settings, rs, service.ToggleMotoMaskCardNumber))
					r.Get(acctPath(paths.MotoHideSecurityCode), togglePageHandler(rs, service.ToggleMotoMaskSecurityCode))
					r.Post(acctPath(paths.MotoHideSecurityCode), toggleHandler(d.Settings, rs, service.ToggleMotoMaskSecurityCode))
				})

				// Payment links
				r.Group(func(r chi.Router) {
					r.Use(perm(domain.PermPaymentLinksCreate))
					r.Get(acctPath(paths.PaymentLinks), listPaymentLinksHandler(d.PaymentLinks, rs))
					r.Get(acctPath(paths.PaymentLinksInformation), paymentLinkInformationPageHandler(rs))
					r.Post(acctPath(paths.PaymentLinksInformation), paymentLinkInformationHandler(rs))
					r.Get(acctPath(paths.PaymentLinksReference), paymentLinkReferencePageHandler(rs))
					r.Post(acctPath(paths.PaymentLinksReference), paymentLinkReferenceHandler(rs))
					r.Get(acctPath(paths.PaymentLinksAmount), paymentLinkAmountPageHandler(rs))
					r.Post(acctPath(paths.PaymentLinksAmount), paymentLinkAmountHandler(rs))
					r.Get(acctPath(paths.PaymentLinksReview), paymentLinkReviewPageHandler(d.PaymentLinks, rs))
					r.Post(acctPath(paths.PaymentLinksReview), paymentLinkCreateHandler(d.PaymentLinks, rs))
					r.Get(acctPath(paths.PaymentLinksDelete), deletePaymentLinkPageHandler(d.PaymentLinks, rs))
					r.Post(acctPath(paths.PaymentLinksDelete), deletePaymentLinkHandler(d.PaymentLinks, rs))
				})

				// Demo payment
				r.Group(func(r chi.Router) {
					r.Use(perm(domain.PermTransactionsRead))
					r.Get(acctPath(paths.DemoPayment), demoPaymentPageHandler(rs))
					r.Get(acctPath(paths.DemoPaymentEdit), demoPaymentEditPageHandler(rs))
					r.Post(acctPath(paths.DemoPaymentEdit), demoPaymentEditHandler(rs))
					r.Post(acctPath(paths.DemoPaymentConfirm), demoPaymentConfirmHandler(d.DemoPayments, rs))
				})

				// Webhooks
				r.Group(func(r chi.Router) {
					r.Use(g.RequireFeature(FeatureWebhooks))
					r.With(perm(domain.PermWebhooksRead)).Get(acctPath(paths.Webhooks), listWebhooksHandler(d.Webhooks, rs))
					r.With(perm(domain.PermWebhooksRead)).Get(acctPath(paths.WebhookDetail), webhookDetailHandler(d.Webhooks, rs))
					r.With(perm(domain.PermWebhooksUpdate)).Get(acctPath(paths.WebhookUpdate), updateWebhookPageHandler(d.Webhooks, rs))
					r.With(perm(domain.PermWebhooksUpdate)).Post(acctPath(paths.WebhookUpdate), updateWebhookHandler(d.Webhooks, rs))
				})

				// =============================================
				// PSP onboarding
				// =============================================
				r.Group(func(r chi.Router) {
					r.Use(g.RequireCredential)
					r.Get(acctPath(paths.YourPSP), taskListHandler(d.Onboarding, rs))

					r.Group(func(r chi.Router) {
						r.Use(g.RequirePaymentProvider(domain.ProviderStripe), perm(domain.PermStripeUpdate))
						task := func(name, sub string, get, post http.HandlerFunc) {
							r.With(g.RequireTaskNotCompleted(name)).Get(acctPath(sub), get)
							r.With(g.RequireTaskNotCompleted(name)).Post(acctPath(sub), post)
						}
						task("bank-details", paths.StripeBankDetails, bankDetailsPageHandler(rs), bankDetailsHandler(d.Onboarding, rs))
						task("responsible-person", paths.StripeResponsiblePerson, personPageHandler(rs, responsiblePersonForm), personHandler(d.Onboarding, rs, responsiblePersonForm))
						task("director", paths.StripeDirector, personPageHandler(rs, directorForm), personHandler(d.Onboarding, rs, directorForm))
						task("vat-number", paths.StripeVATNumber, vatNumberPageHandler(rs), vatNumberHandler(d.Onboarding, rs))
						task("company-number", paths.StripeCompanyNumber, companyNumberPageHandler(rs), companyNumberHandler(d.Onboarding, rs))
						task("check-organisation-details", paths.StripeCheckOrganisationDetails, checkOrganisationPageHandler(rs), checkOrganisationHandler(d.Onboarding, rs))
						task("government-entity-document", paths.StripeGovernmentEntityDocument, governmentDocumentPageHandler(rs), governmentDocumentHandler(d.Onboarding, rs))
					})

					r.Group(func(r chi.Router) {
						r.Use(g.RequirePaymentProvider(domain.ProviderWorldpay), perm(domain.PermGatewayCredentials))
						r.Get(acctPath(paths.WorldpayCredentials), worldpayCredentialsPageHandler(rs))
						r.Post(acctPath(paths.WorldpayCredentials), worldpayCredentialsHandler(d.Onboarding, rs))
						r.With(g.RequireTaskNotCompleted(domain.WorldpayTaskThreeDSFlex)).Get(acctPath(paths.WorldpayThreeDSFlex), worldpay3DSFlexPageHandler(rs))
						r.With(g.RequireTaskNotCompleted(domain.WorldpayTaskThreeDSFlex)).Post(acctPath(paths.WorldpayThreeDSFlex), worldpay3DSFlexHandler(d.Onboarding, rs))
					})
				})
			})
		})
	})

	return r, nil
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// readyzHandler pings every backend concurrently. Unreachable backends make
// the instance degraded, not down, since pages degrade per backend too.
func readyzHandler(pingers []port.Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		results := make([]domain.BackendHealth, len(pingers))
		g, gCtx := errgroup.WithContext(ctx)
		for i, p := range pingers {
			i, p := i, p
			g.Go(func() error {
				start := time.Now()
				err := p.Ping(gCtx)
				h := domain.BackendHealth{Name: p.Name(), Status: "healthy", LatencyMs: time.Since(start).Milliseconds()}
				if err != nil {
					h.Status, h.Error = "unreachable", "ping failed"
					logger.Warn("backend not ready", zap.String("backend", p.Name()), zap.Error(err))
				}
				results[i] = h
				return nil
			})
		}
		_ = g.Wait()

		status := "healthy"
		for _, h := range results {
			if h.Status != "healthy" {
				status = "degraded"
			}
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: status, Backends: results})
	}
}
