package service

import (
	"context"
	"fmt"
	"io"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/onboarding"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"github.com/guregu/null/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TaskList is the PSP onboarding task list of a credential.
type TaskList struct {
	Provider   string
	Credential *domain.GatewayAccountCredential
	Tasks      []onboarding.TaskStatus
	Complete   bool
}

// OnboardingService runs the Stripe and Worldpay setup tasks of a credential.
type OnboardingService struct {
	connector port.Connector
	stripe    port.StripeConnect
	catalogue *onboarding.Catalogue
	logger    *zap.Logger
}

// NewOnboardingService creates a new OnboardingService.
func NewOnboardingService(connector port.Connector, stripe port.StripeConnect, catalogue *onboarding.Catalogue, logger *zap.Logger) *OnboardingService {
	return &OnboardingService{connector: connector, stripe: stripe, catalogue: catalogue, logger: logger}
}

// Progress reports which of the credential's tasks are complete.
func (s *OnboardingService) Progress(ctx context.Context, ac *AccountContext, cred *domain.GatewayAccountCredential) (onboarding.Progress, error) {
	ctx, span := tracer.Start(ctx, "OnboardingService.Progress")
	defer span.End()

	switch cred.PaymentProvider {
	case domain.ProviderStripe:
		setup, err := s.connector.GetStripeAccountSetup(ctx, ac.AccountID())
		if err != nil {
			return nil, fmt.Errorf("stripe setup: %w", err)
		}
		return s.catalogue.StripeProgress(*setup), nil
	case domain.ProviderWorldpay:
		return onboarding.WorldpayProgress(domain.NewWorldpayTasks(ac.Account, cred)), nil
	}
	return nil, &domain.ErrNotFound{Resource: "onboarding tasks", ID: cred.PaymentProvider}
}

// Tasks builds the task list page.
func (s *OnboardingService) Tasks(ctx context.Context, ac *AccountContext, cred *domain.GatewayAccountCredential) (*TaskList, error) {
	progress, err := s.Progress(ctx, ac, cred)
	if err != nil {
		return nil, err
	}
	return &TaskList{
		Provider:   cred.PaymentProvider,
		Credential: cred,
		Tasks:      s.catalogue.Statuses(cred.PaymentProvider, progress),
		Complete:   s.catalogue.Complete(cred.PaymentProvider, progress),
	}, nil
}

// CheckTask reports whether the task page may be opened.
func (s *OnboardingService) CheckTask(ctx context.Context, ac *AccountContext, cred *domain.GatewayAccountCredential, task string) error {
	ctx, span := tracer.Start(ctx, "OnboardingService.CheckTask")
	defer span.End()
	span.SetAttributes(attribute.String("task", task))

	progress, err := s.Progress(ctx, ac, cred)
	if err != nil {
		return err
	}
	return s.catalogue.Check(cred.PaymentProvider, task, progress)
}

// stripeTask runs fn against the connected account and marks the task's
// connector flag complete.
func (s *OnboardingService) stripeTask(ctx context.Context, ac *AccountContext, task string, fn func(stripeAccountID string) error) error {
	ctx, span := tracer.Start(ctx, "OnboardingService.stripeTask")
	defer span.End()
	span.SetAttributes(attribute.String("task", task))

	t, ok := s.catalogue.Find(domain.ProviderStripe, task)
	if !ok {
		return &domain.ErrNotFound{Resource: "onboarding task", ID: task}
	}
	acct, err := s.connector.GetStripeAccount(ctx, ac.AccountID())
	if err != nil {
		return fmt.Errorf("stripe account: %w", err)
	}
	if fn != nil {
		if err := fn(acct.StripeAccountID); err != nil {
			return fmt.Errorf("%s: %w", task, err)
		}
	}
	if err := s.connector.SetStripeAccountSetupFlag(ctx, ac.AccountID(), t.Flag); err != nil {
		return fmt.Errorf("complete %s: %w", task, err)
	}
	s.logger.Info("onboarding task completed", append(ac.fields(), zap.String("task", task))...)
	return nil
}

// SubmitBankDetails sets the payout bank account.
func (s *OnboardingService) SubmitBankDetails(ctx context.Context, ac *AccountContext, bank domain.BankAccount) error {
	return s.stripeTask(ctx, ac, "bank-details", func(id string) error {
		return s.stripe.UpdateBankAccount(ctx, id, bank)
	})
}

// SubmitResponsiblePerson adds the responsible person.
func (s *OnboardingService) SubmitResponsiblePerson(ctx context.Context, ac *AccountContext, p domain.Person) error {
	return s.stripeTask(ctx, ac, "responsible-person", func(id string) error {
		return s.stripe.CreateResponsiblePerson(ctx, id, p)
	})
}

// SubmitDirector adds a director.
func (s *OnboardingService) SubmitDirector(ctx context.Context, ac *AccountContext, p domain.Person) error {
	return s.stripeTask(ctx, ac, "director", func(id string) error {
		return s.stripe.CreateDirector(ctx, id, p)
	})
}

// SubmitVATNumber records the VAT number. An organisation without one only
// completes the task.
func (s *OnboardingService) SubmitVATNumber(ctx context.Context, ac *AccountContext, vat null.String) error {
	var fn func(string) error
	if vat.Valid {
		fn = func(id string) error { return s.stripe.UpdateVATNumber(ctx, id, vat.String) }
	}
	return s.stripeTask(ctx, ac, "vat-number", fn)
}

// SubmitCompanyNumber records the company number. An organisation that is not
// registered only completes the task.
func (s *OnboardingService) SubmitCompanyNumber(ctx context.Context, ac *AccountContext, number null.String) error {
	var fn func(string) error
	if number.Valid {
		fn = func(id string) error { return s.stripe.UpdateCompanyNumber(ctx, id, number.String) }
	}
	return s.stripeTask(ctx, ac, "company-number", fn)
}

// ConfirmOrganisationDetails sends the service's organisation details to
// Stripe once the user confirms they match.
func (s *OnboardingService) ConfirmOrganisationDetails(ctx context.Context, ac *AccountContext) error {
	md := ac.Service.MerchantDetails
	if md == nil || md.Name == "" {
		return &domain.ErrValidation{Field: "confirm-org-details", Message: "Enter your organisation details before confirming them"}
	}
	return s.stripeTask(ctx, ac, "check-organisation-details", func(id string) error {
		return s.stripe.UpdateOrganisationDetails(ctx, id, domain.OrganisationDetails{Name: md.Name, URL: md.URL})
	})
}

// UploadGovernmentEntityDocument uploads the proof of government entity.
func (s *OnboardingService) UploadGovernmentEntityDocument(ctx context.Context, ac *AccountContext, filename string, r io.Reader) error {
	return s.stripeTask(ctx, ac, "government-entity-document", func(id string) error {
		return s.stripe.UploadGovernmentEntityDocument(ctx, id, filename, r)
	})
}

// SubmitWorldpayCredentials checks the credentials with Worldpay and stores
// them on the credential, which moves to ENTERED.
func (s *OnboardingService) SubmitWorldpayCredentials(ctx context.Context, ac *AccountContext, user *domain.User, cred *domain.GatewayAccountCredential, creds domain.WorldpayCredentials) error {
	ctx, span := tracer.Start(ctx, "OnboardingService.SubmitWorldpayCredentials")
	defer span.End()

	if !cred.State.CanTransitionTo(domain.CredentialEntered) {
		return &domain.ErrTaskAlreadyCompleted{Task: domain.WorldpayTaskCredentials}
	}
	ok, err := s.connector.CheckWorldpayCredentials(ctx, ac.AccountID(), creds)
	if err != nil {
		return fmt.Errorf("check worldpay credentials: %w", err)
	}
	if !ok {
		return &domain.ErrValidation{Field: "merchant-code", Message: "Check your Worldpay credentials, failed to link your account to Worldpay with credentials provided"}
	}
	_, err = s.connector.PatchCredential(ctx, ac.AccountID(), cred.ID, domain.CredentialsUpdateRequest{
		UserExternalID: user.ExternalID,
		Worldpay:       &creds,
		State:          domain.CredentialEntered,
	})
	if err != nil {
		return fmt.Errorf("store worldpay credentials: %w", err)
	}
	s.logger.Info("worldpay credentials stored", append(ac.fields(), zap.String("credential_external_id", cred.ExternalID))...)
	return nil
}

// SubmitWorldpay3DSFlex stores the 3DS Flex credentials.
func (s *OnboardingService) SubmitWorldpay3DSFlex(ctx context.Context, ac *AccountContext, req domain.Worldpay3DSFlexRequest) error {
	ctx, span := tracer.Start(ctx, "OnboardingService.SubmitWorldpay3DSFlex")
	defer span.End()

	if err := s.connector.UpdateWorldpay3DSFlex(ctx, ac.AccountID(), req); err != nil {
		return fmt.Errorf("store 3ds flex credentials: %w", err)
	}
	s.logger.Info("worldpay 3ds flex stored", ac.fields()...)
	return nil
}
