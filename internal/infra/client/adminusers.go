package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/resilience"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"

	"go.uber.org/zap"
)

// AdminUsersClient calls adminusers: users, services and invites.
type AdminUsersClient struct {
	*backend
}

// NewAdminUsersClient creates a new AdminUsersClient.
func NewAdminUsersClient(httpClient *http.Client, baseURL string, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *AdminUsersClient {
	return &AdminUsersClient{backend: newBackend(AdminUsers, httpClient, baseURL, cfg, metrics, logger)}
}

// Authenticate checks a username and password. Rejected credentials come
// back as ErrBackendClient with status 401.
func (c *AdminUsersClient) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	var u domain.User
	body := map[string]any{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/api/users/authenticate", nil, body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// AuthenticateSecondFactor checks a security code for the user.
func (c *AdminUsersClient) AuthenticateSecondFactor(ctx context.Context, userExternalID, code string) (*domain.User, error) {
	var u domain.User
	p := paths.FormattedPathFor("/v1/api/users/:userId/second-factor/authenticate", userExternalID)
	if err := c.do(ctx, http.MethodPost, p, nil, map[string]any{"code": code}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a user with their service roles.
func (c *AdminUsersClient) GetUser(ctx context.Context, userExternalID string) (*domain.User, error) {
	var u domain.User
	p := paths.FormattedPathFor("/v1/api/users/:userId", userExternalID)
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetService fetches a service.
func (c *AdminUsersClient) GetService(ctx context.Context, serviceExternalID string) (*domain.Service, error) {
	var s domain.Service
	p := paths.FormattedPathFor("/v1/api/services/:serviceId", serviceExternalID)
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *AdminUsersClient) patchService(ctx context.Context, serviceExternalID string, ops []domain.PatchOperation) (*domain.Service, error) {
	var s domain.Service
	p := paths.FormattedPathFor("/v1/api/services/:serviceId", serviceExternalID)
	if err := c.do(ctx, http.MethodPatch, p, nil, ops, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateServiceName sets the English and, when present, Welsh service names.
func (c *AdminUsersClient) UpdateServiceName(ctx context.Context, serviceExternalID string, name domain.ServiceName) (*domain.Service, error) {
	ops := []domain.PatchOperation{domain.Replace("service_name/en", name.En)}
	if name.Cy.Valid {
		ops = append(ops, domain.Replace("service_name/cy", name.Cy.String))
	}
	return c.patchService(ctx, serviceExternalID, ops)
}

// UpdateGoLiveStage moves the service along the go-live flow.
func (c *AdminUsersClient) UpdateGoLiveStage(ctx context.Context, serviceExternalID string, stage domain.GoLiveStage) (*domain.Service, error) {
	return c.patchService(ctx, serviceExternalID, []domain.PatchOperation{
		domain.Replace("current_go_live_stage", string(stage)),
	})
}

// UpdateOrganisationDetails updates the service's merchant details.
func (c *AdminUsersClient) UpdateOrganisationDetails(ctx context.Context, serviceExternalID string, req domain.OrganisationDetailsRequest) (*domain.Service, error) {
	return c.patchService(ctx, serviceExternalID, req.Payload())
}

// RecordGoLiveAgreement stores who accepted the terms for the service.
func (c *AdminUsersClient) RecordGoLiveAgreement(ctx context.Context, serviceExternalID, userExternalID string) error {
	p := paths.FormattedPathFor("/v1/api/services/:serviceId/govuk-pay-agreement", serviceExternalID)
	return c.do(ctx, http.MethodPost, p, nil, map[string]any{"user_external_id": userExternalID}, nil)
}

// GetInvite fetches an invite by code.
func (c *AdminUsersClient) GetInvite(ctx context.Context, code string) (*domain.Invite, error) {
	var inv domain.Invite
	p := paths.FormattedPathFor("/v1/api/invites/:code", code)
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// CompleteInvite accepts an invite.
func (c *AdminUsersClient) CompleteInvite(ctx context.Context, code string) (*domain.InviteCompletion, error) {
	var res domain.InviteCompletion
	p := paths.FormattedPathFor("/v1/api/invites/:code/complete", code)
	if err := c.do(ctx, http.MethodPost, p, nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListServiceInvites lists the pending invites of a service.
func (c *AdminUsersClient) ListServiceInvites(ctx context.Context, serviceExternalID string) ([]domain.Invite, error) {
	var invites []domain.Invite
	q := url.Values{"serviceId": {serviceExternalID}}
	if err := c.do(ctx, http.MethodGet, "/v1/api/invites", q, nil, &invites); err != nil {
		return nil, err
	}
	return invites, nil
}
