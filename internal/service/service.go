// Package service provides the business logic layer (use cases). Each
// service orchestrates one area of selfservice over the backend ports and
// returns domain errors for the handler layer to map.
package service

import (
	"context"
	"strconv"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// AccountContext is the service and gateway account a request is scoped to.
type AccountContext struct {
	Service *domain.Service
	Account *domain.GatewayAccount
}

// AccountID is the numeric gateway account id.
func (ac *AccountContext) AccountID() int64 {
	return ac.Account.ID
}

// ServiceExternalID is the external id of the service.
func (ac *AccountContext) ServiceExternalID() string {
	return ac.Service.ExternalID
}

func (ac *AccountContext) attrs() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.external_id", ac.Service.ExternalID),
		attribute.Int64("gateway_account.id", ac.Account.ID),
	}
}

func (ac *AccountContext) fields() []zap.Field {
	return []zap.Field{
		zap.String("service_external_id", ac.Service.ExternalID),
		zap.Int64("gateway_account_id", ac.Account.ID),
	}
}

// AccountService resolves the service and account a request is scoped to.
type AccountService struct {
	adminusers port.AdminUsers
	connector  port.Connector
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(adminusers port.AdminUsers, connector port.Connector, metrics *observability.Metrics, logger *zap.Logger) *AccountService {
	return &AccountService{adminusers: adminusers, connector: connector, metrics: metrics, logger: logger}
}

// ResolveService loads a service the user has a role on. A service the user
// has no role on is reported as not found.
func (s *AccountService) ResolveService(ctx context.Context, user *domain.User, serviceExternalID string) (*domain.Service, error) {
	ctx, span := tracer.Start(ctx, "AccountService.ResolveService")
	defer span.End()
	span.SetAttributes(attribute.String("service.external_id", serviceExternalID))

	if !user.HasService(serviceExternalID) {
		return nil, &domain.ErrNotFound{Resource: "service", ID: serviceExternalID}
	}
	return s.adminusers.GetService(ctx, serviceExternalID)
}

// Resolve loads the service and its gateway account of the given type.
func (s *AccountService) Resolve(ctx context.Context, user *domain.User, serviceExternalID string, accountType domain.AccountType) (*AccountContext, error) {
	ctx, span := tracer.Start(ctx, "AccountService.Resolve")
	defer span.End()

	if !accountType.Valid() {
		return nil, &domain.ErrNotFound{Resource: "account type", ID: string(accountType)}
	}
	svc, err := s.ResolveService(ctx, user, serviceExternalID)
	if err != nil {
		return nil, err
	}
	acc, err := s.connector.GetAccountByServiceAndType(ctx, serviceExternalID, accountType)
	if err != nil {
		return nil, err
	}
	if len(svc.GatewayAccountIDs) > 0 && !svc.HasGatewayAccount(strconv.FormatInt(acc.ID, 10)) {
		s.logger.Warn("gateway account not linked to service",
			zap.String("service_external_id", serviceExternalID),
			zap.Int64("gateway_account_id", acc.ID),
		)
		return nil, &domain.ErrNotFound{Resource: "gateway account", ID: string(accountType)}
	}
	return &AccountContext{Service: svc, Account: acc}, nil
}

// ResolveCredential finds a credential of the account by external id.
func ResolveCredential(ac *AccountContext, credentialExternalID string) (*domain.GatewayAccountCredential, error) {
	c := ac.Account.Credential(credentialExternalID)
	if c == nil {
		return nil, &domain.ErrNotFound{Resource: "credential", ID: credentialExternalID}
	}
	return c, nil
}
