package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/resilience"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"

	"go.uber.org/zap"
)

// Default page size for ledger lists.
const DefaultDisplaySize = 100

// LedgerClient calls ledger, the read-only record of transactions, payouts
// and agreements.
type LedgerClient struct {
	*backend
}

// NewLedgerClient creates a new LedgerClient.
func NewLedgerClient(httpClient *http.Client, baseURL string, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *LedgerClient {
	return &LedgerClient{backend: newBackend(Ledger, httpClient, baseURL, cfg, metrics, logger)}
}

// GetTransaction fetches one transaction of the account.
func (c *LedgerClient) GetTransaction(ctx context.Context, accountID int64, transactionID string) (*domain.Transaction, error) {
	var tx domain.Transaction
	p := paths.FormattedPathFor("/v1/transaction/:transactionId", transactionID)
	q := url.Values{"account_id": {id(accountID)}}
	if err := c.do(ctx, http.MethodGet, p, q, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListTransactions searches the account's transactions.
func (c *LedgerClient) ListTransactions(ctx context.Context, accountID int64, search domain.TransactionSearch) (*domain.Page[domain.Transaction], error) {
	q := url.Values{"account_id": {id(accountID)}}
	setPaging(q, search.Page, search.DisplaySize)
	setIfPresent(q, "reference", search.Reference)
	setIfPresent(q, "email", search.Email)
	setIfPresent(q, "from_date", search.FromDate)
	setIfPresent(q, "to_date", search.ToDate)
	setIfPresent(q, "last_digits_card_number", search.LastDigits)
	if len(search.CardBrands) > 0 {
		q.Set("card_brand", strings.Join(search.CardBrands, ","))
	}
	if len(search.States) > 0 {
		q.Set("payment_states", strings.Join(search.States, ","))
	}

	var page domain.Page[domain.Transaction]
	if err := c.do(ctx, http.MethodGet, "/v1/transaction", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTransactionEvents fetches the event history of a transaction.
func (c *LedgerClient) GetTransactionEvents(ctx context.Context, accountID int64, transactionID string) (*domain.TransactionEvents, error) {
	var ev domain.TransactionEvents
	p := paths.FormattedPathFor("/v1/transaction/:transactionId/event", transactionID)
	q := url.Values{"gateway_account_id": {id(accountID)}}
	if err := c.do(ctx, http.MethodGet, p, q, nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetTransactionSummary fetches payment and refund totals for a period.
func (c *LedgerClient) GetTransactionSummary(ctx context.Context, accountID int64, fromDate, toDate string) (*domain.TransactionSummary, error) {
	q := url.Values{"account_id": {id(accountID)}}
	setIfPresent(q, "from_date", fromDate)
	setIfPresent(q, "to_date", toDate)

	var sum domain.TransactionSummary
	if err := c.do(ctx, http.MethodGet, "/v1/report/transactions-summary", q, nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// ListPayouts lists paid out payouts of the account.
func (c *LedgerClient) ListPayouts(ctx context.Context, accountID int64, page int) (*domain.Page[domain.Payout], error) {
	q := url.Values{
		"gateway_account_id": {id(accountID)},
		"state":              {"paidout"},
	}
	setPaging(q, page, 15)

	var res domain.Page[domain.Payout]
	if err := c.do(ctx, http.MethodGet, "/v1/payout", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetAgreement fetches one agreement of the service.
func (c *LedgerClient) GetAgreement(ctx context.Context, serviceExternalID, agreementID string) (*domain.Agreement, error) {
	var a domain.Agreement
	p := paths.FormattedPathFor("/v1/agreement/:agreementId", agreementID)
	q := url.Values{"service_id": {serviceExternalID}}
	if err := c.do(ctx, http.MethodGet, p, q, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAgreements searches the service's agreements in live or test mode.
func (c *LedgerClient) ListAgreements(ctx context.Context, serviceExternalID string, live bool, search domain.AgreementSearch) (*domain.Page[domain.Agreement], error) {
	q := url.Values{
		"service_id": {serviceExternalID},
		"live":       {strconv.FormatBool(live)},
	}
	setPaging(q, search.Page, 20)
	setIfPresent(q, "status", search.Status)
	setIfPresent(q, "reference", search.Reference)

	var res domain.Page[domain.Agreement]
	if err := c.do(ctx, http.MethodGet, "/v1/agreement", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func setIfPresent(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setPaging(q url.Values, page, displaySize int) {
	if page < 1 {
		page = 1
	}
	if displaySize <= 0 {
		displaySize = DefaultDisplaySize
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("display_size", strconv.Itoa(displaySize))
}
