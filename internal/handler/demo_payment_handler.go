package handler

import (
	"net/http"
	"strings"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/session"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"
)

// Demo payment defaults shown before the user edits them.
const (
	defaultDemoDescription = "An example payment description"
	defaultDemoAmountPence = 1000
	pageDemoPaymentEdit    = "demo-payment-edit"
)

var demoPaymentSchema = append(append(validation.Schema{}, validation.DemoPaymentDescription...), validation.PaymentAmount...)

func demoPayment(rec *session.Record) session.DemoPayment {
	d := session.DemoPaymentFlow.Get(rec)
	if d.Description == "" {
		d.Description = defaultDemoDescription
	}
	if d.AmountPence == 0 {
		d.AmountPence = defaultDemoAmountPence
	}
	return d
}

func demoPaymentPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := demoPayment(session.FromContext(r.Context()))
		rs.render(w, r, http.StatusOK, "demo_payment", rs.page(r, "Make a demo payment", d))
	}
}

func demoPaymentEditPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := demoPayment(session.FromContext(r.Context()))
		p := rs.page(r, "Edit demo payment", d)
		p.Values[validation.FieldPaymentDescription] = d.Description
		p.Values[validation.FieldPaymentAmount] = domain.PenceToPounds(d.AmountPence)
		applyRecovered(r, session.DemoPaymentFlow, pageDemoPaymentEdit, p)
		rs.render(w, r, http.StatusOK, "demo_payment_edit", p)
	}
}

func demoPaymentEditHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if res := demoPaymentSchema.Validate(r.PostForm); !res.Valid() {
			rs.recoverInput(w, r, session.DemoPaymentFlow, pageDemoPaymentEdit, res)
			return
		}
		amount, err := domain.PoundsToPence(r.PostForm.Get(validation.FieldPaymentAmount))
		if err != nil {
			rs.recoverInput(w, r, session.DemoPaymentFlow, pageDemoPaymentEdit, fieldFailure(validation.FieldPaymentAmount, "Enter an amount in pounds and pence using digits and a decimal point, like 123.45 or 156.00"))
			return
		}
		err = session.DemoPaymentFlow.Set(session.FromContext(r.Context()), session.DemoPayment{
			Description: strings.TrimSpace(r.PostForm.Get(validation.FieldPaymentDescription)),
			AmountPence: amount,
		})
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		redirect(w, r, accountPath(accountFrom(r.Context()), paths.DemoPayment))
	}
}

// demoPaymentConfirmHandler creates the charge and sends the user to the
// payment pages. The user comes back to the demo payment page afterwards.
func demoPaymentConfirmHandler(demo *service.DemoPaymentService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /demo-payment/confirm")
		defer span.End()

		rec := session.FromContext(ctx)
		ac := accountFrom(ctx)
		d := demoPayment(rec)

		returnURL := requestOrigin(r) + accountPath(ac, paths.DemoPayment)
		next, err := demo.Start(ctx, ac, d.Description, d.AmountPence, returnURL)
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		session.DemoPaymentFlow.Clear(rec)
		redirect(w, r, next)
	}
}

// requestOrigin is the scheme and host the request was made to, honouring a
// TLS-terminating proxy.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
