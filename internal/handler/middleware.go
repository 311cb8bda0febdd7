package handler

import (
	"context"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
)

type contextKey string

const (
	userKey       contextKey = "user"
	serviceKey    contextKey = "service"
	accountKey    contextKey = "account"
	credentialKey contextKey = "credential"
)

func userFrom(ctx context.Context) *domain.User {
	v, _ := ctx.Value(userKey).(*domain.User)
	return v
}

func serviceFrom(ctx context.Context) *domain.Service {
	v, _ := ctx.Value(serviceKey).(*domain.Service)
	return v
}

func accountFrom(ctx context.Context) *service.AccountContext {
	v, _ := ctx.Value(accountKey).(*service.AccountContext)
	return v
}

func credentialFrom(ctx context.Context) *domain.GatewayAccountCredential {
	v, _ := ctx.Value(credentialKey).(*domain.GatewayAccountCredential)
	return v
}
