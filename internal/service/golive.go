package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"github.com/guregu/null/v5"
	"go.uber.org/zap"
)

// GoLiveService moves a service through the request-to-go-live flow. Each
// step is stored in adminusers straight away so the flow can be resumed.
type GoLiveService struct {
	adminusers port.AdminUsers
	logger     *zap.Logger
}

// NewGoLiveService creates a new GoLiveService.
func NewGoLiveService(adminusers port.AdminUsers, logger *zap.Logger) *GoLiveService {
	return &GoLiveService{adminusers: adminusers, logger: logger}
}

// OrganisationContact is the address and contact details page.
type OrganisationContact struct {
	Address         domain.Address
	TelephoneNumber string
	URL             string
}

// GoLiveStep is a page of the request-to-go-live flow, in flow order.
type GoLiveStep int

// Request-to-go-live pages.
const (
	GoLiveStepOrganisationName GoLiveStep = iota
	GoLiveStepOrganisationAddress
	GoLiveStepChoosePSP
	GoLiveStepAgreement
)

var goLiveTasks = []string{"organisation-name", "organisation-address", "choose-how-to-process-payments", "agreement"}

// stageRank is the number of pages a stage has completed.
func stageRank(stage domain.GoLiveStage) int {
	switch stage {
	case domain.GoLiveStageNotStarted, "":
		return 0
	case domain.GoLiveStageEnteredOrganisationName:
		return 1
	case domain.GoLiveStageEnteredOrganisationAddr:
		return 2
	case domain.GoLiveStageChosenPSPStripe, domain.GoLiveStageChosenPSPWorldpay:
		return 3
	}
	return 4
}

// CheckGoLiveStep reports whether the page may be used at the service's
// stage: the request is still open and every earlier page was submitted.
func CheckGoLiveStep(svc *domain.Service, step GoLiveStep) error {
	if svc.GoLiveRequested() {
		return &domain.ErrTaskAlreadyCompleted{Task: "request-to-go-live"}
	}
	if reached := stageRank(svc.CurrentGoLiveStage); reached < int(step) {
		return &domain.ErrTaskOutOfSequence{Task: goLiveTasks[step], Missing: goLiveTasks[reached:step]}
	}
	return nil
}

// SetOrganisationName records the organisation name.
func (s *GoLiveService) SetOrganisationName(ctx context.Context, svc *domain.Service, name string) (*domain.Service, error) {
	ctx, span := tracer.Start(ctx, "GoLiveService.SetOrganisationName")
	defer span.End()

	if err := CheckGoLiveStep(svc, GoLiveStepOrganisationName); err != nil {
		return nil, err
	}
	updated, err := s.adminusers.UpdateOrganisationDetails(ctx, svc.ExternalID, domain.OrganisationDetailsRequest{
		Name: null.StringFrom(name),
	})
	if err != nil {
		return nil, fmt.Errorf("update organisation name: %w", err)
	}
	return s.advance(ctx, svc, updated, domain.GoLiveStageEnteredOrganisationName)
}

// SetOrganisationContact records the organisation address and contact details.
func (s *GoLiveService) SetOrganisationContact(ctx context.Context, svc *domain.Service, c OrganisationContact) (*domain.Service, error) {
	ctx, span := tracer.Start(ctx, "GoLiveService.SetOrganisationContact")
	defer span.End()

	if err := CheckGoLiveStep(svc, GoLiveStepOrganisationAddress); err != nil {
		return nil, err
	}
	addr := c.Address
	updated, err := s.adminusers.UpdateOrganisationDetails(ctx, svc.ExternalID, domain.OrganisationDetailsRequest{
		Address:         &addr,
		TelephoneNumber: null.StringFrom(c.TelephoneNumber),
		URL:             null.StringFrom(c.URL),
	})
	if err != nil {
		return nil, fmt.Errorf("update organisation address: %w", err)
	}
	return s.advance(ctx, svc, updated, domain.GoLiveStageEnteredOrganisationAddr)
}

// ChoosePSP records the payment service provider choice.
func (s *GoLiveService) ChoosePSP(ctx context.Context, svc *domain.Service, psp string) (*domain.Service, error) {
	ctx, span := tracer.Start(ctx, "GoLiveService.ChoosePSP")
	defer span.End()

	if err := CheckGoLiveStep(svc, GoLiveStepChoosePSP); err != nil {
		return nil, err
	}
	switch psp {
	case domain.ProviderStripe:
		return s.advance(ctx, svc, svc, domain.GoLiveStageChosenPSPStripe)
	case domain.ProviderWorldpay:
		return s.advance(ctx, svc, svc, domain.GoLiveStageChosenPSPWorldpay)
	}
	return nil, &domain.ErrValidation{Field: "choose-how-to-process-payments-mode", Message: "Select how you want to process payments"}
}

// Agree records acceptance of the terms and completes the request.
func (s *GoLiveService) Agree(ctx context.Context, svc *domain.Service, user *domain.User) (*domain.Service, error) {
	ctx, span := tracer.Start(ctx, "GoLiveService.Agree")
	defer span.End()

	if err := CheckGoLiveStep(svc, GoLiveStepAgreement); err != nil {
		return nil, err
	}
	var stage domain.GoLiveStage
	switch svc.CurrentGoLiveStage {
	case domain.GoLiveStageChosenPSPStripe:
		stage = domain.GoLiveStageTermsAgreedStripe
	case domain.GoLiveStageChosenPSPWorldpay:
		stage = domain.GoLiveStageTermsAgreedWorldpay
	}
	if err := s.adminusers.RecordGoLiveAgreement(ctx, svc.ExternalID, user.ExternalID); err != nil {
		return nil, fmt.Errorf("record agreement: %w", err)
	}
	updated, err := s.advance(ctx, svc, svc, stage)
	if err != nil {
		return nil, err
	}
	s.logger.Info("go live requested",
		zap.String("service_external_id", svc.ExternalID),
		zap.String("stage", string(stage)),
	)
	return updated, nil
}

// advance moves current to stage. Resubmitting an earlier page keeps the
// stage and returns result.
func (s *GoLiveService) advance(ctx context.Context, current, result *domain.Service, stage domain.GoLiveStage) (*domain.Service, error) {
	if stageRank(stage) < stageRank(current.CurrentGoLiveStage) {
		return result, nil
	}
	updated, err := s.adminusers.UpdateGoLiveStage(ctx, current.ExternalID, stage)
	if err != nil {
		return nil, fmt.Errorf("update go live stage: %w", err)
	}
	return updated, nil
}

// GoLiveNextPage is the service sub-path the flow continues at for the
// service's stage, or empty once the request is complete.
func GoLiveNextPage(stage domain.GoLiveStage) string {
	switch stage {
	case domain.GoLiveStageNotStarted, "":
		return paths.GoLiveOrganisationName
	case domain.GoLiveStageEnteredOrganisationName:
		return paths.GoLiveOrganisationAddress
	case domain.GoLiveStageEnteredOrganisationAddr:
		return paths.GoLiveChoosePSP
	case domain.GoLiveStageChosenPSPStripe, domain.GoLiveStageChosenPSPWorldpay:
		return paths.GoLiveAgreement
	}
	return ""
}
