package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/pay-selfservice-go/internal/session"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"
)

// withRecord runs fn against a fresh record served through the middleware.
func withRecord(t *testing.T, fn func(rec *session.Record)) {
	t.Helper()
	m, _, _ := newManager(t)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(session.FromContext(r.Context()))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestFlow_DefaultsToZeroValue(t *testing.T) {
	withRecord(t, func(rec *session.Record) {
		if session.PaymentLinkFlow.Exists(rec) {
			t.Error("expected flow not started")
		}
		if got := session.PaymentLinkFlow.Get(rec); got != (session.PaymentLinkCreation{}) {
			t.Errorf("expected zero value, got %+v", got)
		}
	})
}

func TestFlow_UpdateMergesAndClearRemoves(t *testing.T) {
	withRecord(t, func(rec *session.Record) {
		_ = session.PaymentLinkFlow.Update(rec, func(p *session.PaymentLinkCreation) { p.Title = "Parking" })
		_ = session.PaymentLinkFlow.Update(rec, func(p *session.PaymentLinkCreation) { p.AmountPence = 500 })

		got := session.PaymentLinkFlow.Get(rec)
		if got.Title != "Parking" || got.AmountPence != 500 {
			t.Errorf("expected merged state, got %+v", got)
		}

		_ = session.PaymentLinkFlow.SetRecovered(rec, "amount", session.Recovered{Values: map[string]string{"a": "b"}})
		session.PaymentLinkFlow.Clear(rec)
		if session.PaymentLinkFlow.Exists(rec) {
			t.Error("expected flow cleared")
		}
		if _, ok := session.PaymentLinkFlow.PopRecovered(rec, "amount"); ok {
			t.Error("expected recovered input cleared with the flow")
		}
	})
}

func TestFlow_RecoveredIsConsumedOnce(t *testing.T) {
	withRecord(t, func(rec *session.Record) {
		in := session.Recovered{
			Values: map[string]string{validation.FieldPaymentAmount: "abc"},
			Errors: []validation.Error{{Field: validation.FieldPaymentAmount, Message: "bad"}},
		}
		if err := session.DemoPaymentFlow.SetRecovered(rec, "edit", in); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := session.DemoPaymentFlow.PopRecovered(rec, "other-page"); ok {
			t.Error("expected recovered input scoped to its page")
		}

		out, ok := session.DemoPaymentFlow.PopRecovered(rec, "edit")
		if !ok {
			t.Fatal("expected recovered input")
		}
		if out.Values[validation.FieldPaymentAmount] != "abc" || out.Result().Valid() {
			t.Errorf("unexpected recovered input %+v", out)
		}
		if _, ok := session.DemoPaymentFlow.PopRecovered(rec, "edit"); ok {
			t.Error("expected recovered input to be consumed")
		}
	})
}

func TestFlow_TakeConsumesOnce(t *testing.T) {
	withRecord(t, func(rec *session.Record) {
		_ = session.NewAPIKeyFlow.Set(rec, session.NewAPIKey{Token: "api_test_abc", Description: "key"})

		got, ok := session.NewAPIKeyFlow.Take(rec)
		if !ok || got.Token != "api_test_abc" {
			t.Fatalf("expected stored key, got %+v ok=%v", got, ok)
		}
		if _, ok := session.NewAPIKeyFlow.Take(rec); ok {
			t.Error("expected key to be shown only once")
		}
	})
}
