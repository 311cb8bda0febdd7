package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"go.uber.org/zap"
)

// WebhookService manages webhooks of an account.
type WebhookService struct {
	webhooks port.Webhooks
	logger   *zap.Logger
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(webhooks port.Webhooks, logger *zap.Logger) *WebhookService {
	return &WebhookService{webhooks: webhooks, logger: logger}
}

// List returns the account's webhooks.
func (s *WebhookService) List(ctx context.Context, ac *AccountContext) ([]domain.Webhook, error) {
	ctx, span := tracer.Start(ctx, "WebhookService.List")
	defer span.End()

	list, err := s.webhooks.ListWebhooks(ctx, ac.ServiceExternalID(), ac.AccountID(), ac.Account.IsLive())
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	return list, nil
}

// Get loads one webhook.
func (s *WebhookService) Get(ctx context.Context, ac *AccountContext, webhookExternalID string) (*domain.Webhook, error) {
	ctx, span := tracer.Start(ctx, "WebhookService.Get")
	defer span.End()

	return s.webhooks.GetWebhook(ctx, webhookExternalID, ac.ServiceExternalID(), ac.AccountID())
}

// Update changes a webhook. Subscriptions must be known event types.
func (s *WebhookService) Update(ctx context.Context, ac *AccountContext, webhookExternalID string, req domain.WebhookUpdateRequest) (*domain.Webhook, error) {
	ctx, span := tracer.Start(ctx, "WebhookService.Update")
	defer span.End()

	for _, sub := range req.Subscriptions {
		if !knownEvent(sub) {
			return nil, &domain.ErrValidation{Field: "subscriptions", Message: "Select at least one payment event"}
		}
	}
	wh, err := s.webhooks.UpdateWebhook(ctx, webhookExternalID, ac.ServiceExternalID(), ac.AccountID(), req)
	if err != nil {
		return nil, fmt.Errorf("update webhook: %w", err)
	}
	s.logger.Info("webhook updated", append(ac.fields(), zap.String("webhook_external_id", webhookExternalID))...)
	return wh, nil
}

func knownEvent(e string) bool {
	for _, known := range domain.WebhookEvents {
		if e == known {
			return true
		}
	}
	return false
}
