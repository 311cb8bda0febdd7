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

// ProductsClient calls products, which owns payment links.
type ProductsClient struct {
	*backend
}

// NewProductsClient creates a new ProductsClient.
func NewProductsClient(httpClient *http.Client, baseURL string, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *ProductsClient {
	return &ProductsClient{backend: newBackend(Products, httpClient, baseURL, cfg, metrics, logger)}
}

// CreateProduct creates a payment link.
func (c *ProductsClient) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, http.MethodPost, "/v1/api/products", nil, req.Payload(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts lists the account's payment links of a type.
func (c *ProductsClient) ListProducts(ctx context.Context, accountID int64, productType string) ([]domain.Product, error) {
	var list []domain.Product
	p := paths.FormattedPathFor("/v1/api/gateway-account/:accountId/products", id(accountID))
	var q url.Values
	if productType != "" {
		q = url.Values{"type": {productType}}
	}
	if err := c.do(ctx, http.MethodGet, p, q, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetProduct fetches one payment link.
func (c *ProductsClient) GetProduct(ctx context.Context, accountID int64, productExternalID string) (*domain.Product, error) {
	var prod domain.Product
	p := paths.FormattedPathFor("/v1/api/gateway-account/:accountId/products/:productId", id(accountID), productExternalID)
	if err := c.do(ctx, http.MethodGet, p, nil, nil, &prod); err != nil {
		return nil, err
	}
	return &prod, nil
}

// DeleteProduct deletes a payment link.
func (c *ProductsClient) DeleteProduct(ctx context.Context, accountID int64, productExternalID string) error {
	p := paths.FormattedPathFor("/v1/api/gateway-account/:accountId/products/:productId", id(accountID), productExternalID)
	return c.do(ctx, http.MethodDelete, p, nil, nil, nil)
}
