package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/resilience"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"

	"go.uber.org/zap"
)

// WebhooksClient calls the webhooks service.
type WebhooksClient struct {
	*backend
}

// NewWebhooksClient creates a new WebhooksClient.
func NewWebhooksClient(httpClient *http.Client, baseURL string, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *WebhooksClient {
	return &WebhooksClient{backend: newBackend(Webhooks, httpClient, baseURL, cfg, metrics, logger)}
}

func scope(serviceExternalID string, accountID int64) url.Values {
	return url.Values{
		"service_id":         {serviceExternalID},
		"gateway_account_id": {id(accountID)},
	}
}

// ListWebhooks lists the webhooks of a service's account.
func (c *WebhooksClient) ListWebhooks(ctx context.Context, serviceExternalID string, accountID int64, live bool) ([]domain.Webhook, error) {
	q := scope(serviceExternalID, accountID)
	q.Set("live", strconv.FormatBool(live))

	var list []domain.Webhook
	if err := c.do(ctx, http.MethodGet, "/v1/webhook", q, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetWebhook fetches one webhook.
func (c *WebhooksClient) GetWebhook(ctx context.Context, webhookExternalID, serviceExternalID string, accountID int64) (*domain.Webhook, error) {
	var wh domain.Webhook
	p := paths.FormattedPathFor("/v1/webhook/:webhookId", webhookExternalID)
	if err := c.do(ctx, http.MethodGet, p, scope(serviceExternalID, accountID), nil, &wh); err != nil {
		return nil, err
	}
	return &wh, nil
}

// UpdateWebhook patches a webhook.
func (c *WebhooksClient) UpdateWebhook(ctx context.Context, webhookExternalID, serviceExternalID string, accountID int64, req domain.WebhookUpdateRequest) (*domain.Webhook, error) {
	var wh domain.Webhook
	p := paths.FormattedPathFor("/v1/webhook/:webhookId", webhookExternalID)
	if err := c.do(ctx, http.MethodPatch, p, scope(serviceExternalID, accountID), req.Payload(), &wh); err != nil {
		return nil, err
	}
	return &wh, nil
}
