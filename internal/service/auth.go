package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/port"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"

	"github.com/guregu/null/v5"
	"go.uber.org/zap"
)

// AuthService signs users in and handles invites.
type AuthService struct {
	adminusers port.AdminUsers
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(adminusers port.AdminUsers, logger *zap.Logger) *AuthService {
	return &AuthService{adminusers: adminusers, logger: logger}
}

// Login checks the credentials. Rejected credentials and disabled users are
// reported as ErrUnauthorized without saying which it was.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.adminusers.Authenticate(ctx, username, password)
	if err != nil {
		if isRejected(err) {
			s.logger.Info("sign in rejected")
			return nil, &domain.ErrUnauthorized{Message: "Invalid email or password"}
		}
		return nil, err
	}
	if user.Disabled {
		s.logger.Info("sign in by disabled user", zap.String("user_external_id", user.ExternalID))
		return nil, &domain.ErrUnauthorized{Message: "Invalid email or password"}
	}
	return user, nil
}

// VerifySecondFactor checks a security code. Spaces and dashes typed by the
// user are removed first.
func (s *AuthService) VerifySecondFactor(ctx context.Context, userExternalID string, code null.String) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.VerifySecondFactor")
	defer span.End()

	code = validation.SanitiseSecurityCode(code)
	if !code.Valid || code.String == "" {
		return nil, &domain.ErrValidation{Field: validation.FieldSecurityCode, Message: "Enter your security code"}
	}
	user, err := s.adminusers.AuthenticateSecondFactor(ctx, userExternalID, code.String)
	if err != nil {
		if isRejected(err) {
			return nil, &domain.ErrValidation{Field: validation.FieldSecurityCode, Message: "The security code you’ve used is incorrect or has expired"}
		}
		return nil, err
	}
	return user, nil
}

// CurrentUser loads the signed in user.
func (s *AuthService) CurrentUser(ctx context.Context, userExternalID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.CurrentUser")
	defer span.End()

	user, err := s.adminusers.GetUser(ctx, userExternalID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, &domain.ErrUnauthorized{}
		}
		return nil, err
	}
	if user.Disabled {
		return nil, &domain.ErrUnauthorized{}
	}
	return user, nil
}

// GetInvite loads an invite that can still be accepted.
func (s *AuthService) GetInvite(ctx context.Context, code string) (*domain.Invite, error) {
	ctx, span := tracer.Start(ctx, "AuthService.GetInvite")
	defer span.End()

	inv, err := s.adminusers.GetInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	if !inv.Usable() {
		return nil, &domain.ErrNotFound{Resource: "invite", ID: code}
	}
	return inv, nil
}

// AcceptInvite completes an invite for an existing user joining a service.
// The invite must be addressed to the signed in user.
func (s *AuthService) AcceptInvite(ctx context.Context, user *domain.User, code string) (*domain.InviteCompletion, error) {
	ctx, span := tracer.Start(ctx, "AuthService.AcceptInvite")
	defer span.End()

	inv, err := s.GetInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	if user != nil && !strings.EqualFold(inv.Email, user.Email) {
		return nil, &domain.ErrNotFound{Resource: "invite", ID: code}
	}
	res, err := s.adminusers.CompleteInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	s.logger.Info("invite accepted",
		zap.String("user_external_id", res.UserExternalID),
		zap.String("service_external_id", res.ServiceExternalID.String),
	)
	return res, nil
}

func isRejected(err error) bool {
	var ce *domain.ErrBackendClient
	if errors.As(err, &ce) {
		return ce.Status == http.StatusUnauthorized || ce.Status == http.StatusForbidden
	}
	return false
}
