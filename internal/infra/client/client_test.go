package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/client"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/resilience"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

var testCfg = resilience.Config{Timeout: time.Second, MaxConcurrency: 4}

func TestConnector_GetAccount(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"gateway_account_id":42,"external_id":"ext-1","type":"live","payment_provider":"stripe","allow_moto":true}`))
	}))
	defer srv.Close()

	c := client.NewConnectorClient(srv.Client(), srv.URL, testCfg, observability.NewMetrics(), zap.NewNop())
	acc, err := c.GetAccount(context.Background(), 42)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotPath != "/v1/frontend/accounts/42" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if acc.ExternalID != "ext-1" || !acc.IsLive() || !acc.AllowMoto {
		t.Errorf("unexpected account %+v", acc)
	}
}

func TestConnector_CreateChargeSendsPayload(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/api/accounts/7/charges" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type")
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"charge_id":"ch_1","amount":1000,"links":[{"rel":"next_url","href":"https://pay/next","method":"GET"}]}`))
	}))
	defer srv.Close()

	c := client.NewConnectorClient(srv.Client(), srv.URL, testCfg, observability.NewMetrics(), zap.NewNop())
	ch, err := c.CreateCharge(context.Background(), 7, domain.ChargeRequest{
		Amount: 1000, Description: "demo", Reference: "REF", ReturnURL: "https://example.org",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ch.NextURL() != "https://pay/next" {
		t.Errorf("unexpected next url %q", ch.NextURL())
	}
	if body["amount"] != float64(1000) || body["reference"] != "REF" {
		t.Errorf("unexpected body %v", body)
	}
	if _, ok := body["email"]; ok {
		t.Error("expected unset email to be absent")
	}
}

func TestBackend_PercentEncodesPathValues(t *testing.T) {
	var rawPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := client.NewAdminUsersClient(srv.Client(), srv.URL, testCfg, observability.NewMetrics(), zap.NewNop())
	if _, err := c.GetService(context.Background(), "a/b"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rawPath != "/v1/api/services/a%2Fb" {
		t.Errorf("expected escaped id, got %s", rawPath)
	}
}

func TestBackend_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"not found", http.StatusNotFound, ``, func(t *testing.T, err error) {
			var nf *domain.ErrNotFound
			if !errors.As(err, &nf) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		}},
		{"client error with message list", http.StatusBadRequest, `{"message":["bad field"],"error_identifier":"GENERIC"}`, func(t *testing.T, err error) {
			var ce *domain.ErrBackendClient
			if !errors.As(err, &ce) {
				t.Fatalf("expected ErrBackendClient, got %v", err)
			}
			if ce.Status != 400 || ce.Identifier != "GENERIC" || ce.Message != "bad field" {
				t.Errorf("unexpected client error %+v", ce)
			}
		}},
		{"client error with message string", http.StatusConflict, `{"message":"exists"}`, func(t *testing.T, err error) {
			var ce *domain.ErrBackendClient
			if !errors.As(err, &ce) || ce.Message != "exists" {
				t.Fatalf("expected ErrBackendClient with message, got %v", err)
			}
		}},
		{"server error", http.StatusBadGateway, `oops`, func(t *testing.T, err error) {
			var up *domain.ErrUpstream
			if !errors.As(err, &up) {
				t.Fatalf("expected ErrUpstream, got %v", err)
			}
			if up.Status != http.StatusBadGateway {
				t.Errorf("expected status 502, got %d", up.Status)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := client.NewLedgerClient(srv.Client(), srv.URL, testCfg, observability.NewMetrics(), zap.NewNop())
			_, err := c.GetTransaction(context.Background(), 1, "tx")
			tt.check(t, err)
		})
	}
}

func TestBackend_TimeoutIsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	metrics := observability.NewMetrics()
	cfg := resilience.Config{Timeout: 50 * time.Millisecond, MaxConcurrency: 1}
	c := client.NewPublicAuthClient(srv.Client(), srv.URL, cfg, metrics, zap.NewNop())

	_, err := c.ListTokens(context.Background(), 1, domain.TokenStateActive)
	var up *domain.ErrUpstream
	if !errors.As(err, &up) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !up.Timeout {
		t.Errorf("expected timeout flag, got %+v", up)
	}
	if metrics.BackendErrors(client.PublicAuth) != 1 {
		t.Errorf("expected backend error recorded, got %v", metrics.BackendErrors(client.PublicAuth))
	}
}

func TestBackend_NoRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := client.NewProductsClient(srv.Client(), srv.URL, testCfg, observability.NewMetrics(), zap.NewNop())
	_, _ = c.ListProducts(context.Background(), 1, domain.ProductTypeAdhoc)

	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls.Load())
	}
}

func TestBackend_ClientErrorsDoNotOpenBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := client.NewAdminUsersClient(srv.Client(), srv.URL, testCfg, observability.NewMetrics(), zap.NewNop())
	for i := 0; i < 10; i++ {
		_, err := c.GetInvite(context.Background(), "code")
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			t.Fatalf("call %d: expected ErrNotFound, got %v", i, err)
		}
	}
}

func TestBackend_PropagatesRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-Id")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	c := client.NewWebhooksClient(srv.Client(), srv.URL, testCfg, observability.NewMetrics(), zap.NewNop())
	if _, err := c.ListWebhooks(ctx, "svc", 1, false); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "req-123" {
		t.Errorf("expected request id to be forwarded, got %q", got)
	}
}

func TestLedger_ListTransactionsQuery(t *testing.T) {
	var q map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		_, _ = w.Write([]byte(`{"total":1,"count":1,"page":1,"results":[{"transaction_id":"tx","amount":100,"state":{"status":"success","finished":true}}]}`))
	}))
	defer srv.Close()

	c := client.NewLedgerClient(srv.Client(), srv.URL, testCfg, observability.NewMetrics(), zap.NewNop())
	page, err := c.ListTransactions(context.Background(), 9, domain.TransactionSearch{
		Reference: "REF", States: []string{"success", "failed"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(page.Results) != 1 || !page.Results[0].State.Succeeded() {
		t.Errorf("unexpected page %+v", page)
	}
	if q["account_id"][0] != "9" || q["reference"][0] != "REF" || q["payment_states"][0] != "success,failed" {
		t.Errorf("unexpected query %v", q)
	}
	if q["page"][0] != "1" || q["display_size"][0] != "100" {
		t.Errorf("expected default paging, got %v", q)
	}
	if _, ok := q["email"]; ok {
		t.Error("expected unset email filter to be absent")
	}
}

func TestPublicAuth_RevokeToken(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v1/frontend/auth/3" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"revoked":"1 Jan 2024"}`))
	}))
	defer srv.Close()

	c := client.NewPublicAuthClient(srv.Client(), srv.URL, testCfg, observability.NewMetrics(), zap.NewNop())
	res, err := c.RevokeToken(context.Background(), 3, "link-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if body["token_link"] != "link-1" || res.Revoked != "1 Jan 2024" {
		t.Errorf("unexpected exchange body=%v res=%+v", body, res)
	}
}

func TestConnector_SetStripeAccountSetupFlag(t *testing.T) {
	var ops []domain.PatchOperation
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&ops)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := client.NewConnectorClient(srv.Client(), srv.URL, testCfg, observability.NewMetrics(), zap.NewNop())
	if err := c.SetStripeAccountSetupFlag(context.Background(), 1, domain.StripeSetupBankAccount); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ops) != 1 || ops[0].Path != "bank_account" || ops[0].Value != true {
		t.Errorf("unexpected patch %v", ops)
	}
}
