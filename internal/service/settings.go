package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"go.uber.org/zap"
)

// Toggles that can be switched on an account.
const (
	ToggleApplePay             = "apple-pay"
	ToggleGooglePay            = "google-pay"
	ToggleMotoMaskCardNumber   = "moto-hide-card-number"
	ToggleMotoMaskSecurityCode = "moto-hide-security-code"
)

// CardTypeSettings lists every card type with the ones the account accepts.
type CardTypeSettings struct {
	All      []domain.CardType
	Accepted map[string]bool
}

// SettingsService changes payment settings of an account.
type SettingsService struct {
	connector port.Connector
	logger    *zap.Logger
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(connector port.Connector, logger *zap.Logger) *SettingsService {
	return &SettingsService{connector: connector, logger: logger}
}

// CardTypes loads the card type settings.
func (s *SettingsService) CardTypes(ctx context.Context, ac *AccountContext) (*CardTypeSettings, error) {
	ctx, span := tracer.Start(ctx, "SettingsService.CardTypes")
	defer span.End()

	all, err := s.connector.GetAllCardTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("card types: %w", err)
	}
	accepted, err := s.connector.GetAcceptedCardTypes(ctx, ac.AccountID())
	if err != nil {
		return nil, fmt.Errorf("accepted card types: %w", err)
	}
	set := make(map[string]bool, len(accepted.CardTypes))
	for _, id := range accepted.IDs() {
		set[id] = true
	}
	return &CardTypeSettings{All: all.CardTypes, Accepted: set}, nil
}

// UpdateCardTypes replaces the accepted card types. At least one known card
// type must be selected.
func (s *SettingsService) UpdateCardTypes(ctx context.Context, ac *AccountContext, ids []string) error {
	ctx, span := tracer.Start(ctx, "SettingsService.UpdateCardTypes")
	defer span.End()

	if len(ids) == 0 {
		return &domain.ErrValidation{Field: "card-types", Message: "You must choose at least one card"}
	}
	all, err := s.connector.GetAllCardTypes(ctx)
	if err != nil {
		return fmt.Errorf("card types: %w", err)
	}
	known := make(map[string]bool, len(all.CardTypes))
	for _, id := range all.IDs() {
		known[id] = true
	}
	for _, id := range ids {
		if !known[id] {
			return &domain.ErrValidation{Field: "card-types", Message: "Select a card type from the list"}
		}
	}
	if err := s.connector.UpdateAcceptedCardTypes(ctx, ac.AccountID(), ids); err != nil {
		return fmt.Errorf("update card types: %w", err)
	}
	s.logger.Info("accepted card types updated", append(ac.fields(), zap.Int("count", len(ids)))...)
	return nil
}

// Toggle switches one of the account toggles.
func (s *SettingsService) Toggle(ctx context.Context, ac *AccountContext, toggle string, enabled bool) error {
	ctx, span := tracer.Start(ctx, "SettingsService.Toggle")
	defer span.End()

	var err error
	switch toggle {
	case ToggleApplePay:
		err = s.connector.ToggleApplePay(ctx, ac.AccountID(), enabled)
	case ToggleGooglePay:
		err = s.connector.ToggleGooglePay(ctx, ac.AccountID(), enabled)
	case ToggleMotoMaskCardNumber:
		err = s.connector.ToggleMotoMaskCardNumber(ctx, ac.AccountID(), enabled)
	case ToggleMotoMaskSecurityCode:
		err = s.connector.ToggleMotoMaskSecurityCode(ctx, ac.AccountID(), enabled)
	default:
		return &domain.ErrNotFound{Resource: "setting", ID: toggle}
	}
	if err != nil {
		return fmt.Errorf("toggle %s: %w", toggle, err)
	}
	s.logger.Info("setting changed", append(ac.fields(), zap.String("setting", toggle), zap.Bool("enabled", enabled))...)
	return nil
}

// ToggleState reports the current value of a toggle.
func ToggleState(account *domain.GatewayAccount, toggle string) bool {
	switch toggle {
	case ToggleApplePay:
		return account.AllowApplePay
	case ToggleGooglePay:
		return account.AllowGooglePay
	case ToggleMotoMaskCardNumber:
		return account.MotoMaskCardNumberInput
	case ToggleMotoMaskSecurityCode:
		return account.MotoMaskCardSecurityCodeInput
	}
	return false
}
