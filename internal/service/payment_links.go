package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"github.com/guregu/null/v5"
	"go.uber.org/zap"
)

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// PaymentLink is a payment link ready to be created.
type PaymentLink struct {
	Title            string
	Details          string
	Welsh            bool
	ReferenceEnabled bool
	ReferenceLabel   string
	ReferenceHint    string
	// AmountPence is zero when the paying user chooses the amount.
	AmountPence int64
}

// PaymentLinkService manages payment links.
type PaymentLinkService struct {
	products        port.Products
	publicAuth      port.PublicAuth
	friendlyBaseURI string
	logger          *zap.Logger
}

// NewPaymentLinkService creates a new PaymentLinkService. friendlyBaseURI is
// the base of the human readable payment link URLs.
func NewPaymentLinkService(products port.Products, publicAuth port.PublicAuth, friendlyBaseURI string, logger *zap.Logger) *PaymentLinkService {
	return &PaymentLinkService{
		products:        products,
		publicAuth:      publicAuth,
		friendlyBaseURI: strings.TrimSuffix(friendlyBaseURI, "/"),
		logger:          logger,
	}
}

// List returns the account's payment links.
func (s *PaymentLinkService) List(ctx context.Context, ac *AccountContext) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "PaymentLinkService.List")
	defer span.End()
	span.SetAttributes(ac.attrs()...)

	list, err := s.products.ListProducts(ctx, ac.AccountID(), domain.ProductTypeAdhoc)
	if err != nil {
		return nil, fmt.Errorf("list payment links: %w", err)
	}
	return list, nil
}

// PreviewURL is the friendly URL the link will get.
func (s *PaymentLinkService) PreviewURL(ac *AccountContext, link PaymentLink) string {
	return s.friendlyBaseURI + "/" + Slugify(ac.Service.DisplayName(link.Welsh)) + "/" + Slugify(link.Title)
}

// Create issues a products API key for the link and creates it.
func (s *PaymentLinkService) Create(ctx context.Context, ac *AccountContext, user *domain.User, link PaymentLink) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "PaymentLinkService.Create")
	defer span.End()
	span.SetAttributes(ac.attrs()...)

	tok, err := s.publicAuth.CreateToken(ctx, domain.CreateTokenRequest{
		AccountID:         strconv.FormatInt(ac.AccountID(), 10),
		ServiceExternalID: ac.ServiceExternalID(),
		ServiceMode:       ac.Account.Type,
		Description:       fmt.Sprintf("Token for %q payment link", link.Title),
		CreatedBy:         user.Email,
		TokenType:         domain.TokenTypeCard,
		Type:              domain.TokenKindProducts,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment link token: %w", err)
	}

	req := domain.CreateProductRequest{
		GatewayAccountID: ac.AccountID(),
		PayAPIToken:      tok.Token,
		Name:             link.Title,
		Type:             domain.ProductTypeAdhoc,
		ServiceNamePath:  null.StringFrom(Slugify(ac.Service.DisplayName(link.Welsh))),
		ProductNamePath:  null.StringFrom(Slugify(link.Title)),
		ReferenceEnabled: link.ReferenceEnabled,
		Language:         "en",
	}
	if link.Welsh {
		req.Language = "cy"
	}
	if link.Details != "" {
		req.Description = null.StringFrom(link.Details)
	}
	if link.AmountPence > 0 {
		req.Price = null.IntFrom(link.AmountPence)
	}
	if link.ReferenceEnabled {
		req.ReferenceLabel = null.StringFrom(link.ReferenceLabel)
		if link.ReferenceHint != "" {
			req.ReferenceHint = null.StringFrom(link.ReferenceHint)
		}
	}

	p, err := s.products.CreateProduct(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create payment link: %w", err)
	}
	s.logger.Info("payment link created", append(ac.fields(), zap.String("product_external_id", p.ExternalID))...)
	return p, nil
}

// Delete removes a payment link of the account.
func (s *PaymentLinkService) Delete(ctx context.Context, ac *AccountContext, productExternalID string) error {
	ctx, span := tracer.Start(ctx, "PaymentLinkService.Delete")
	defer span.End()

	if _, err := s.products.GetProduct(ctx, ac.AccountID(), productExternalID); err != nil {
		return err
	}
	if err := s.products.DeleteProduct(ctx, ac.AccountID(), productExternalID); err != nil {
		return fmt.Errorf("delete payment link: %w", err)
	}
	s.logger.Info("payment link deleted", append(ac.fields(), zap.String("product_external_id", productExternalID))...)
	return nil
}

// Slugify lower-cases s and joins its words with dashes.
func Slugify(s string) string {
	return strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
