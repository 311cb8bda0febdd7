// Package stripeconnect updates the Stripe connected account behind a Stripe
// gateway account while the service completes its onboarding tasks.
package stripeconnect

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("stripeconnect")

// Backend is the name used in logs, metrics and errors.
const Backend = "stripe"

// Config configures the Stripe API client.
type Config struct {
	SecretKey string
	// URL overrides the API base URL. Empty uses Stripe's.
	URL        string
	HTTPClient *http.Client
}

// Client wraps the Stripe API for connected account onboarding.
type Client struct {
	api     *client.API
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New creates a Client. Network retries are disabled so each operation makes
// one attempt.
func New(cfg Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	bc := &stripe.BackendConfig{
		HTTPClient:        cfg.HTTPClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.URL != "" {
		bc.URL = stripe.String(cfg.URL)
	}
	b := stripe.GetBackendWithConfig(stripe.APIBackend, bc)
	uploads := stripe.GetBackendWithConfig(stripe.UploadsBackend, bc)

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{API: b, Connect: b, Uploads: uploads})

	return &Client{
		api:     api,
		metrics: metrics,
		logger:  logger.With(zap.String("backend", Backend)),
	}
}

// UpdateBankAccount sets the payout bank account.
func (c *Client) UpdateBankAccount(ctx context.Context, stripeAccountID string, bank domain.BankAccount) error {
	params := &stripe.AccountParams{
		ExternalAccount: &stripe.AccountExternalAccountParams{
			AccountNumber: stripe.String(bank.AccountNumber),
			RoutingNumber: stripe.String(bank.SortCode),
			Country:       stripe.String("GB"),
			Currency:      stripe.String(string(stripe.CurrencyGBP)),
		},
	}
	return c.updateAccount(ctx, "update_bank_account", stripeAccountID, params)
}

// CreateResponsiblePerson adds the representative of the organisation.
func (c *Client) CreateResponsiblePerson(ctx context.Context, stripeAccountID string, p domain.Person) error {
	params := personParams(stripeAccountID, p)
	params.Relationship = &stripe.PersonRelationshipParams{
		Representative: stripe.Bool(true),
		Executive:      stripe.Bool(true),
		Title:          stripe.String("Responsible person"),
	}
	return c.createPerson(ctx, "create_responsible_person", params)
}

// CreateDirector adds a company director.
func (c *Client) CreateDirector(ctx context.Context, stripeAccountID string, p domain.Person) error {
	params := personParams(stripeAccountID, p)
	params.Relationship = &stripe.PersonRelationshipParams{
		Director: stripe.Bool(true),
	}
	return c.createPerson(ctx, "create_director", params)
}

// UpdateVATNumber sets the organisation's VAT number.
func (c *Client) UpdateVATNumber(ctx context.Context, stripeAccountID, vatNumber string) error {
	params := &stripe.AccountParams{
		Company: &stripe.AccountCompanyParams{VATID: stripe.String(vatNumber)},
	}
	return c.updateAccount(ctx, "update_vat_number", stripeAccountID, params)
}

// UpdateCompanyNumber sets the Companies House registration number.
func (c *Client) UpdateCompanyNumber(ctx context.Context, stripeAccountID, companyNumber string) error {
	params := &stripe.AccountParams{
		Company: &stripe.AccountCompanyParams{TaxID: stripe.String(companyNumber)},
	}
	return c.updateAccount(ctx, "update_company_number", stripeAccountID, params)
}

// UpdateOrganisationDetails sets the organisation name and website.
func (c *Client) UpdateOrganisationDetails(ctx context.Context, stripeAccountID string, org domain.OrganisationDetails) error {
	params := &stripe.AccountParams{
		Company: &stripe.AccountCompanyParams{Name: stripe.String(org.Name)},
	}
	if org.URL.Valid {
		params.BusinessProfile = &stripe.AccountBusinessProfileParams{URL: stripe.String(org.URL.String)}
	}
	return c.updateAccount(ctx, "update_organisation_details", stripeAccountID, params)
}

// UploadGovernmentEntityDocument uploads the document proving the
// organisation is a government entity and attaches it to the account.
func (c *Client) UploadGovernmentEntityDocument(ctx context.Context, stripeAccountID, filename string, r io.Reader) error {
	var fileID string
	err := c.call(ctx, "upload_government_entity_document", func(ctx context.Context) error {
		params := &stripe.FileParams{
			Purpose:    stripe.String(string(stripe.FilePurposeAccountRequirement)),
			FileReader: r,
			Filename:   stripe.String(filename),
		}
		params.Context = ctx
		params.SetStripeAccount(stripeAccountID)
		f, err := c.api.Files.New(params)
		if err != nil {
			return err
		}
		fileID = f.ID
		return nil
	})
	if err != nil {
		return err
	}

	params := &stripe.AccountParams{
		Company: &stripe.AccountCompanyParams{
			Verification: &stripe.AccountCompanyVerificationParams{
				Document: &stripe.AccountCompanyVerificationDocumentParams{
					Front: stripe.String(fileID),
				},
			},
		},
	}
	return c.updateAccount(ctx, "attach_government_entity_document", stripeAccountID, params)
}

func (c *Client) updateAccount(ctx context.Context, op, stripeAccountID string, params *stripe.AccountParams) error {
	return c.call(ctx, op, func(ctx context.Context) error {
		params.Context = ctx
		_, err := c.api.Accounts.Update(stripeAccountID, params)
		return err
	})
}

func (c *Client) createPerson(ctx context.Context, op string, params *stripe.PersonParams) error {
	return c.call(ctx, op, func(ctx context.Context) error {
		params.Context = ctx
		_, err := c.api.Persons.New(params)
		return err
	})
}

// call runs one Stripe request with tracing, metrics and error mapping. fn
// receives the span's context.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "stripe "+op)
	defer span.End()
	span.SetAttributes(attribute.String("backend", Backend))

	start := time.Now()
	err := mapError(fn(ctx))
	c.metrics.RecordBackendDuration(Backend, time.Since(start))

	var upstream *domain.ErrUpstream
	if errors.As(err, &upstream) {
		c.metrics.IncrBackendError(Backend)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("stripe call failed", zap.String("operation", op), zap.Error(err))
	}
	return err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 {
		return &domain.ErrBackendClient{
			Backend:    Backend,
			Status:     se.HTTPStatusCode,
			Identifier: string(se.Code),
			Message:    se.Msg,
		}
	}
	if errors.As(err, &se) {
		return &domain.ErrUpstream{Backend: Backend, Status: se.HTTPStatusCode, Err: err}
	}
	return &domain.ErrUpstream{
		Backend: Backend,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}

func personParams(stripeAccountID string, p domain.Person) *stripe.PersonParams {
	params := &stripe.PersonParams{
		Account:   stripe.String(stripeAccountID),
		FirstName: stripe.String(p.FirstName),
		LastName:  stripe.String(p.LastName),
		Email:     stripe.String(p.Email),
		DOB: &stripe.PersonDOBParams{
			Day:   stripe.Int64(int64(p.DOB.Day())),
			Month: stripe.Int64(int64(p.DOB.Month())),
			Year:  stripe.Int64(int64(p.DOB.Year())),
		},
	}
	if a := p.Address; a != nil {
		params.Address = &stripe.AddressParams{
			Line1:      stripe.String(a.Line1),
			City:       stripe.String(a.City),
			PostalCode: stripe.String(a.Postcode),
			Country:    stripe.String("GB"),
		}
		if a.Line2.Valid {
			params.Address.Line2 = stripe.String(a.Line2.String)
		}
	}
	if p.Phone.Valid {
		params.Phone = stripe.String(p.Phone.String)
	}
	return params
}
