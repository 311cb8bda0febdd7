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

// PublicAuthClient calls public-auth, which issues and revokes API keys.
type PublicAuthClient struct {
	*backend
}

// NewPublicAuthClient creates a new PublicAuthClient.
func NewPublicAuthClient(httpClient *http.Client, baseURL string, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *PublicAuthClient {
	return &PublicAuthClient{backend: newBackend(PublicAuth, httpClient, baseURL, cfg, metrics, logger)}
}

// ListTokens lists the account's API keys in the given state.
func (c *PublicAuthClient) ListTokens(ctx context.Context, accountID int64, state string) (*domain.TokenList, error) {
	var list domain.TokenList
	p := paths.FormattedPathFor("/v1/frontend/auth/:accountId", id(accountID))
	q := url.Values{"state": {state}, "type": {domain.TokenKindAPI}}
	if err := c.do(ctx, http.MethodGet, p, q, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateToken issues a new key. The returned value is not retrievable again.
func (c *PublicAuthClient) CreateToken(ctx context.Context, req domain.CreateTokenRequest) (*domain.NewToken, error) {
	var tok domain.NewToken
	if err := c.do(ctx, http.MethodPost, "/v1/frontend/auth", nil, req.Payload(), &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// GetToken fetches one key's metadata.
func (c *PublicAuthClient) GetToken(ctx context.Context, accountID int64, tokenLink string) (*domain.Token, error) {
	var tok domain.Token
	p := paths.FormattedPathFor("/v1/frontend/auth/:accountId/:tokenLink", id(accountID), tokenLink)
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// UpdateTokenDescription renames a key.
func (c *PublicAuthClient) UpdateTokenDescription(ctx context.Context, tokenLink, description string) (*domain.Token, error) {
	var tok domain.Token
	body := map[string]any{"token_link": tokenLink, "description": description}
	if err := c.do(ctx, http.MethodPut, "/v1/frontend/auth", nil, body, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// RevokeToken revokes a key.
func (c *PublicAuthClient) RevokeToken(ctx context.Context, accountID int64, tokenLink string) (*domain.RevokedToken, error) {
	var res domain.RevokedToken
	p := paths.FormattedPathFor("/v1/frontend/auth/:accountId", id(accountID))
	if err := c.do(ctx, http.MethodDelete, p, nil, map[string]any{"token_link": tokenLink}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
