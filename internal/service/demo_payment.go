package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"github.com/google/uuid"
	"github.com/guregu/null/v5"
	"go.uber.org/zap"
)

// DemoPaymentService starts test payments so users can try the payment pages.
type DemoPaymentService struct {
	connector port.Connector
	logger    *zap.Logger
}

// NewDemoPaymentService creates a new DemoPaymentService.
func NewDemoPaymentService(connector port.Connector, logger *zap.Logger) *DemoPaymentService {
	return &DemoPaymentService{connector: connector, logger: logger}
}

// Start creates a charge on a test account and returns the payment page URL
// to send the user to. Live accounts cannot take demo payments.
func (s *DemoPaymentService) Start(ctx context.Context, ac *AccountContext, description string, amountPence int64, returnURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "DemoPaymentService.Start")
	defer span.End()
	span.SetAttributes(ac.attrs()...)

	if ac.Account.IsLive() {
		return "", &domain.ErrNotFound{Resource: "demo payment", ID: string(ac.Account.Type)}
	}
	ref := "DEMO-" + strings.ToUpper(uuid.NewString()[:8])
	ch, err := s.connector.CreateCharge(ctx, ac.AccountID(), domain.ChargeRequest{
		Amount:      amountPence,
		Description: description,
		Reference:   ref,
		ReturnURL:   returnURL,
		Language:    null.StringFrom("en"),
	})
	if err != nil {
		return "", fmt.Errorf("create demo payment: %w", err)
	}
	next := ch.NextURL()
	if next == "" {
		return "", &domain.ErrUpstream{Backend: "connector", Err: fmt.Errorf("charge %s has no next_url", ch.ChargeID)}
	}
	s.logger.Info("demo payment started", append(ac.fields(), zap.String("reference", ref))...)
	return next, nil
}
