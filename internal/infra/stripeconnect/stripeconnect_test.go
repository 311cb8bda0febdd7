package stripeconnect_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/stripeconnect"
	"github.com/guregu/null/v5"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type recorded struct {
	method string
	path   string
	form   url.Values
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		calls = append(calls, recorded{method: r.Method, path: r.URL.Path, form: r.PostForm})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newClient(srv *httptest.Server) (*stripeconnect.Client, *observability.Metrics) {
	m := observability.NewMetrics()
	c := stripeconnect.New(stripeconnect.Config{
		SecretKey:  "sk_test_123",
		URL:        srv.URL,
		HTTPClient: srv.Client(),
	}, m, zap.NewNop())
	return c, m
}

func TestUpdateBankAccount(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"id":"acct_1","object":"account"}`)
	c, _ := newClient(srv)

	err := c.UpdateBankAccount(context.Background(), "acct_1", domain.BankAccount{SortCode: "309430", AccountNumber: "00733445"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(*calls))
	}
	got := (*calls)[0]
	if got.method != http.MethodPost || got.path != "/v1/accounts/acct_1" {
		t.Errorf("unexpected request %s %s", got.method, got.path)
	}
	if got.form.Get("external_account[routing_number]") != "309430" {
		t.Errorf("expected sort code as routing number, got %v", got.form)
	}
	if got.form.Get("external_account[currency]") != "gbp" {
		t.Errorf("expected gbp currency, got %v", got.form)
	}
}

func TestCreateResponsiblePerson(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"id":"person_1","object":"person"}`)
	c, _ := newClient(srv)

	err := c.CreateResponsiblePerson(context.Background(), "acct_1", domain.Person{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.org",
		DOB:       time.Date(1990, time.March, 4, 0, 0, 0, 0, time.UTC),
		Address:   &domain.Address{Line1: "1 Street", City: "London", Postcode: "N1 1AA", Country: "GB"},
		Phone:     null.StringFrom("01632 960 001"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := (*calls)[0]
	if got.path != "/v1/accounts/acct_1/persons" {
		t.Errorf("unexpected path %s", got.path)
	}
	if got.form.Get("relationship[representative]") != "true" {
		t.Errorf("expected representative relationship, got %v", got.form)
	}
	if got.form.Get("dob[month]") != "3" || got.form.Get("address[postal_code]") != "N1 1AA" {
		t.Errorf("unexpected person form %v", got.form)
	}
	if _, ok := got.form["address[line2]"]; ok {
		t.Error("expected absent line2 to be omitted")
	}
}

func TestClientErrorMapping(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest,
		`{"error":{"type":"invalid_request_error","code":"parameter_invalid_empty","message":"vat_id is invalid"}}`)
	c, m := newClient(srv)

	err := c.UpdateVATNumber(context.Background(), "acct_1", "nope")
	var ce *domain.ErrBackendClient
	if !errors.As(err, &ce) {
		t.Fatalf("expected ErrBackendClient, got %v", err)
	}
	if ce.Status != http.StatusBadRequest || ce.Message != "vat_id is invalid" {
		t.Errorf("unexpected client error %+v", ce)
	}
	if m.BackendErrors(stripeconnect.Backend) != 0 {
		t.Errorf("expected client errors not to count as backend failures")
	}
}

func TestServerErrorMapping(t *testing.T) {
	srv, calls := newServer(t, http.StatusInternalServerError,
		`{"error":{"type":"api_error","message":"boom"}}`)
	c, m := newClient(srv)

	err := c.UpdateCompanyNumber(context.Background(), "acct_1", "01234567")
	var up *domain.ErrUpstream
	if !errors.As(err, &up) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if len(*calls) != 1 {
		t.Errorf("expected exactly 1 call, got %d", len(*calls))
	}
	if m.BackendErrors(stripeconnect.Backend) != 1 {
		t.Errorf("expected backend error recorded")
	}
}

type spanRecordingTransport struct {
	next http.RoundTripper
	seen []trace.SpanContext
}

func (t *spanRecordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.seen = append(t.seen, trace.SpanContextFromContext(req.Context()))
	return t.next.RoundTrip(req)
}

func TestCallsRunInsideTheirSpan(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))

	srv, _ := newServer(t, http.StatusOK, `{"id":"acct_1","object":"account"}`)
	transport := &spanRecordingTransport{next: srv.Client().Transport}
	c := stripeconnect.New(stripeconnect.Config{
		SecretKey:  "sk_test_123",
		URL:        srv.URL,
		HTTPClient: &http.Client{Transport: transport},
	}, observability.NewMetrics(), zap.NewNop())

	if err := c.UpdateVATNumber(context.Background(), "acct_1", "GB123456789"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ended := spans.Ended()
	if len(ended) != 1 || ended[0].Name() != "stripe update_vat_number" {
		t.Fatalf("expected one stripe span, got %d", len(ended))
	}
	if len(transport.seen) != 1 {
		t.Fatalf("expected 1 request, got %d", len(transport.seen))
	}
	if got, want := transport.seen[0].SpanID(), ended[0].SpanContext().SpanID(); got != want {
		t.Errorf("expected request in span %s, got %s", want, got)
	}
}
