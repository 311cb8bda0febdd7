package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"go.uber.org/zap"
)

// AgreementService reads and cancels recurring payment agreements.
type AgreementService struct {
	ledger    port.Ledger
	connector port.Connector
	logger    *zap.Logger
}

// NewAgreementService creates a new AgreementService.
func NewAgreementService(ledger port.Ledger, connector port.Connector, logger *zap.Logger) *AgreementService {
	return &AgreementService{ledger: ledger, connector: connector, logger: logger}
}

// List searches the service's agreements in the account's mode.
func (s *AgreementService) List(ctx context.Context, ac *AccountContext, search domain.AgreementSearch) (*domain.Page[domain.Agreement], error) {
	ctx, span := tracer.Start(ctx, "AgreementService.List")
	defer span.End()
	span.SetAttributes(ac.attrs()...)

	page, err := s.ledger.ListAgreements(ctx, ac.ServiceExternalID(), ac.Account.IsLive(), search)
	if err != nil {
		return nil, fmt.Errorf("list agreements: %w", err)
	}
	return page, nil
}

// Get loads one agreement of the service.
func (s *AgreementService) Get(ctx context.Context, ac *AccountContext, agreementID string) (*domain.Agreement, error) {
	ctx, span := tracer.Start(ctx, "AgreementService.Get")
	defer span.End()

	return s.ledger.GetAgreement(ctx, ac.ServiceExternalID(), agreementID)
}

// Cancel cancels an agreement. Agreements that are already cancelled or
// inactive cannot be cancelled again and are reported as not found.
func (s *AgreementService) Cancel(ctx context.Context, ac *AccountContext, user *domain.User, agreementID string) error {
	ctx, span := tracer.Start(ctx, "AgreementService.Cancel")
	defer span.End()

	a, err := s.Get(ctx, ac, agreementID)
	if err != nil {
		return err
	}
	if !a.Cancellable() {
		return &domain.ErrNotFound{Resource: "cancellable agreement", ID: agreementID}
	}
	if err := s.connector.CancelAgreement(ctx, ac.AccountID(), agreementID, user.ExternalID, user.Email); err != nil {
		return fmt.Errorf("cancel agreement: %w", err)
	}
	s.logger.Info("agreement cancelled", append(ac.fields(), zap.String("agreement_external_id", agreementID))...)
	return nil
}
