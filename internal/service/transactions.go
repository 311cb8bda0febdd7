package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TransactionDetail is a transaction with its event history.
type TransactionDetail struct {
	Transaction *domain.Transaction
	Events      []domain.TransactionEvent
}

// TransactionService reads transactions and payouts from ledger.
type TransactionService struct {
	ledger port.Ledger
	logger *zap.Logger
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(ledger port.Ledger, logger *zap.Logger) *TransactionService {
	return &TransactionService{ledger: ledger, logger: logger}
}

// List searches the account's transactions.
func (s *TransactionService) List(ctx context.Context, ac *AccountContext, search domain.TransactionSearch) (*domain.Page[domain.Transaction], error) {
	ctx, span := tracer.Start(ctx, "TransactionService.List")
	defer span.End()
	span.SetAttributes(ac.attrs()...)

	page, err := s.ledger.ListTransactions(ctx, ac.AccountID(), search)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return page, nil
}

// Detail loads a transaction and its events concurrently. Missing events
// degrade the page; a missing transaction is not found.
func (s *TransactionService) Detail(ctx context.Context, ac *AccountContext, transactionID string) (*TransactionDetail, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Detail")
	defer span.End()
	span.SetAttributes(ac.attrs()...)

	var (
		tx     *domain.Transaction
		events *domain.TransactionEvents
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tx, err = s.ledger.GetTransaction(gCtx, ac.AccountID(), transactionID)
		return err
	})
	g.Go(func() error {
		ev, err := s.ledger.GetTransactionEvents(gCtx, ac.AccountID(), transactionID)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Warn("transaction events unavailable",
					append(ac.fields(), zap.String("transaction_id", transactionID), zap.Error(err))...,
				)
			}
			return nil
		}
		events = ev
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &TransactionDetail{Transaction: tx}
	if events != nil {
		d.Events = events.Events
	}
	return d, nil
}

// Payouts lists the account's payouts.
func (s *TransactionService) Payouts(ctx context.Context, ac *AccountContext, page int) (*domain.Page[domain.Payout], error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Payouts")
	defer span.End()

	res, err := s.ledger.ListPayouts(ctx, ac.AccountID(), page)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	return res, nil
}
