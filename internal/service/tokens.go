package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"go.uber.org/zap"
)

// TokenService manages the API keys of an account.
type TokenService struct {
	publicAuth port.PublicAuth
	logger     *zap.Logger
}

// NewTokenService creates a new TokenService.
func NewTokenService(publicAuth port.PublicAuth, logger *zap.Logger) *TokenService {
	return &TokenService{publicAuth: publicAuth, logger: logger}
}

// List returns the active or revoked keys of the account.
func (s *TokenService) List(ctx context.Context, ac *AccountContext, revoked bool) ([]domain.Token, error) {
	ctx, span := tracer.Start(ctx, "TokenService.List")
	defer span.End()
	span.SetAttributes(ac.attrs()...)

	state := domain.TokenStateActive
	if revoked {
		state = domain.TokenStateRevoked
	}
	list, err := s.publicAuth.ListTokens(ctx, ac.AccountID(), state)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return list.Tokens, nil
}

// Create issues a key. The returned value is shown to the user once.
func (s *TokenService) Create(ctx context.Context, ac *AccountContext, user *domain.User, description string) (*domain.NewToken, error) {
	ctx, span := tracer.Start(ctx, "TokenService.Create")
	defer span.End()
	span.SetAttributes(ac.attrs()...)

	tok, err := s.publicAuth.CreateToken(ctx, domain.CreateTokenRequest{
		AccountID:         strconv.FormatInt(ac.AccountID(), 10),
		ServiceExternalID: ac.ServiceExternalID(),
		ServiceMode:       ac.Account.Type,
		Description:       description,
		CreatedBy:         user.Email,
		TokenType:         domain.TokenTypeCard,
		Type:              domain.TokenKindAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	s.logger.Info("api key created", append(ac.fields(), zap.String("user_external_id", user.ExternalID))...)
	return tok, nil
}

// Get returns an active key of the account. Revoked keys are not found.
func (s *TokenService) Get(ctx context.Context, ac *AccountContext, tokenLink string) (*domain.Token, error) {
	ctx, span := tracer.Start(ctx, "TokenService.Get")
	defer span.End()

	tok, err := s.publicAuth.GetToken(ctx, ac.AccountID(), tokenLink)
	if err != nil {
		return nil, err
	}
	if tok.IsRevoked() {
		return nil, &domain.ErrNotFound{Resource: "api key", ID: tokenLink}
	}
	return tok, nil
}

// Rename changes the description of an active key.
func (s *TokenService) Rename(ctx context.Context, ac *AccountContext, tokenLink, description string) (*domain.Token, error) {
	ctx, span := tracer.Start(ctx, "TokenService.Rename")
	defer span.End()

	if _, err := s.Get(ctx, ac, tokenLink); err != nil {
		return nil, err
	}
	tok, err := s.publicAuth.UpdateTokenDescription(ctx, tokenLink, description)
	if err != nil {
		return nil, fmt.Errorf("rename api key: %w", err)
	}
	return tok, nil
}

// Revoke revokes an active key. Revocation cannot be undone.
func (s *TokenService) Revoke(ctx context.Context, ac *AccountContext, user *domain.User, tokenLink string) (*domain.Token, error) {
	ctx, span := tracer.Start(ctx, "TokenService.Revoke")
	defer span.End()

	tok, err := s.Get(ctx, ac, tokenLink)
	if err != nil {
		return nil, err
	}
	if _, err := s.publicAuth.RevokeToken(ctx, ac.AccountID(), tokenLink); err != nil {
		return nil, fmt.Errorf("revoke api key: %w", err)
	}
	s.logger.Info("api key revoked", append(ac.fields(), zap.String("user_external_id", user.ExternalID))...)
	return tok, nil
}
