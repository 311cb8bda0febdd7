package handler

import (
	"net/http"
	"strings"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/session"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"

	"github.com/go-chi/chi/v5"
)

// Recovered input slots of the payment link wizard pages.
const (
	pageLinkInformation = "payment-link-information"
	pageLinkReference   = "payment-link-reference"
	pageLinkAmount      = "payment-link-amount"
)

const fieldAmountType = "amount-type-group"

var amountType = validation.Schema{{Name: fieldAmountType, Rules: []validation.Rule{
	validation.Required("Select if the payment is a fixed amount"),
	validation.OneOf([]string{"fixed", "variable"}, "Select if the payment is a fixed amount"),
}}}

func toPaymentLink(c session.PaymentLinkCreation) service.PaymentLink {
	return service.PaymentLink{
		Title:            c.Title,
		Details:          c.Details,
		Welsh:            c.IsWelsh,
		ReferenceEnabled: c.ReferenceEnabled,
		ReferenceLabel:   c.ReferenceLabel,
		ReferenceHint:    c.ReferenceHint,
		AmountPence:      c.AmountPence,
	}
}

// linkStarted sends requests for later wizard pages back to the first page
// when no title has been entered yet.
func linkStarted(w http.ResponseWriter, r *http.Request) (session.PaymentLinkCreation, bool) {
	c := session.PaymentLinkFlow.Get(session.FromContext(r.Context()))
	if c.Title == "" {
		redirect(w, r, accountPath(accountFrom(r.Context()), paths.PaymentLinksInformation))
		return c, false
	}
	return c, true
}

func listPaymentLinksHandler(links *service.PaymentLinkService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /payment-links")
		defer span.End()

		products, err := links.List(ctx, accountFrom(ctx))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "payment_links", rs.page(r, "Payment links", products))
	}
}

// ============================================================
// Creation wizard
// ============================================================

func paymentLinkInformationPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := session.FromContext(r.Context())
		if lang := r.URL.Query().Get("language"); lang != "" {
			if err := session.PaymentLinkFlow.Update(rec, func(c *session.PaymentLinkCreation) {
				c.IsWelsh = lang == "cy"
			}); err != nil {
				rs.handleError(w, r, err)
				return
			}
		}
		c := session.PaymentLinkFlow.Get(rec)
		p := rs.page(r, "Set payment link information", c)
		p.Values[validation.FieldPaymentLinkTitle] = c.Title
		p.Values[validation.FieldPaymentLinkDescription] = c.Details
		applyRecovered(r, session.PaymentLinkFlow, pageLinkInformation, p)
		rs.render(w, r, http.StatusOK, "payment_link_information", p)
	}
}

func paymentLinkInformationHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if res := validation.PaymentLinkInformation.Validate(r.PostForm); !res.Valid() {
			rs.recoverInput(w, r, session.PaymentLinkFlow, pageLinkInformation, res)
			return
		}
		rec := session.FromContext(r.Context())
		var next string
		err := session.PaymentLinkFlow.Update(rec, func(c *session.PaymentLinkCreation) {
			c.Title = strings.TrimSpace(r.PostForm.Get(validation.FieldPaymentLinkTitle))
			c.Details = strings.TrimSpace(r.PostForm.Get(validation.FieldPaymentLinkDescription))
			switch {
			case c.ReferencePageSet && c.AmountPageSet:
				next = paths.PaymentLinksReview
			case c.ReferencePageSet:
				next = paths.PaymentLinksAmount
			default:
				next = paths.PaymentLinksReference
			}
		})
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		redirect(w, r, accountPath(accountFrom(r.Context()), next))
	}
}

func paymentLinkReferencePageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := linkStarted(w, r)
		if !ok {
			return
		}
		p := rs.page(r, "Do your users already have a payment reference?", c)
		if c.ReferencePageSet {
			p.Values[validation.FieldReferenceType] = "standard"
			if c.ReferenceEnabled {
				p.Values[validation.FieldReferenceType] = "custom"
			}
			p.Values[validation.FieldReferenceLabel] = c.ReferenceLabel
			p.Values[validation.FieldReferenceHint] = c.ReferenceHint
		}
		applyRecovered(r, session.PaymentLinkFlow, pageLinkReference, p)
		rs.render(w, r, http.StatusOK, "payment_link_reference", p)
	}
}

func paymentLinkReferenceHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := linkStarted(w, r); !ok {
			return
		}
		custom := r.PostForm.Get(validation.FieldReferenceType) == "custom"
		if res := validation.PaymentLinkReference(custom).Validate(r.PostForm); !res.Valid() {
			rs.recoverInput(w, r, session.PaymentLinkFlow, pageLinkReference, res)
			return
		}
		var next string
		err := session.PaymentLinkFlow.Update(session.FromContext(r.Context()), func(c *session.PaymentLinkCreation) {
			c.ReferenceEnabled = custom
			c.ReferenceLabel, c.ReferenceHint = "", ""
			if custom {
				c.ReferenceLabel = r.PostForm.Get(validation.FieldReferenceLabel)
				c.ReferenceHint = r.PostForm.Get(validation.FieldReferenceHint)
			}
			c.ReferencePageSet = true
			next = paths.PaymentLinksAmount
			if c.AmountPageSet {
				next = paths.PaymentLinksReview
			}
		})
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		redirect(w, r, accountPath(accountFrom(r.Context()), next))
	}
}

func paymentLinkAmountPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := linkStarted(w, r)
		if !ok {
			return
		}
		p := rs.page(r, "Is the payment for a fixed amount?", c)
		if c.AmountPageSet {
			p.Values[fieldAmountType] = "variable"
			if c.AmountPence > 0 {
				p.Values[fieldAmountType] = "fixed"
				p.Values[validation.FieldPaymentAmount] = domain.PenceToPounds(c.AmountPence)
			}
		}
		applyRecovered(r, session.PaymentLinkFlow, pageLinkAmount, p)
		rs.render(w, r, http.StatusOK, "payment_link_amount", p)
	}
}

func paymentLinkAmountHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := linkStarted(w, r); !ok {
			return
		}
		fixed := r.PostForm.Get(fieldAmountType) == "fixed"
		schema := amountType
		if fixed {
			schema = append(append(validation.Schema{}, amountType...), validation.PaymentAmount...)
		}
		res := schema.Validate(r.PostForm)
		if !res.Valid() {
			rs.recoverInput(w, r, session.PaymentLinkFlow, pageLinkAmount, res)
			return
		}
		var amount int64
		if fixed {
			var err error
			if amount, err = domain.PoundsToPence(r.PostForm.Get(validation.FieldPaymentAmount)); err != nil {
				rs.recoverInput(w, r, session.PaymentLinkFlow, pageLinkAmount, fieldFailure(validation.FieldPaymentAmount, "Enter an amount in pounds and pence using digits and a decimal point, like 123.45 or 156.00"))
				return
			}
		}
		err := session.PaymentLinkFlow.Update(session.FromContext(r.Context()), func(c *session.PaymentLinkCreation) {
			c.AmountPence = amount
			c.AmountPageSet = true
		})
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		redirect(w, r, accountPath(accountFrom(r.Context()), paths.PaymentLinksReview))
	}
}

type paymentLinkReview struct {
	Link       session.PaymentLinkCreation
	PreviewURL string
}

func paymentLinkReviewPageHandler(links *service.PaymentLinkService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := linkStarted(w, r)
		if !ok {
			return
		}
		v := paymentLinkReview{Link: c, PreviewURL: links.PreviewURL(accountFrom(r.Context()), toPaymentLink(c))}
		rs.render(w, r, http.StatusOK, "payment_link_review", rs.page(r, "Check your payment link", v))
	}
}

func paymentLinkCreateHandler(links *service.PaymentLinkService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /payment-links/create/review")
		defer span.End()

		c, ok := linkStarted(w, r)
		if !ok {
			return
		}
		ac := accountFrom(ctx)
		if _, err := links.Create(ctx, ac, userFrom(ctx), toPaymentLink(c)); err != nil {
			rs.handleError(w, r, err)
			return
		}
		session.PaymentLinkFlow.Clear(session.FromContext(ctx))
		flash(r, "Your payment link is now live")
		redirect(w, r, accountPath(ac, paths.PaymentLinks))
	}
}

// ============================================================
// Deletion
// ============================================================

func deletePaymentLinkPageHandler(links *service.PaymentLinkService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /payment-links/{productExternalId}/delete")
		defer span.End()

		id := chi.URLParam(r, "productExternalId")
		products, err := links.List(ctx, accountFrom(ctx))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		for i := range products {
			if products[i].ExternalID == id {
				rs.render(w, r, http.StatusOK, "payment_link_delete", rs.page(r, "Delete payment link", &products[i]))
				return
			}
		}
		rs.handleError(w, r, &domain.ErrNotFound{Resource: "payment link", ID: id})
	}
}

func deletePaymentLinkHandler(links *service.PaymentLinkService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /payment-links/{productExternalId}/delete")
		defer span.End()

		ac := accountFrom(ctx)
		if err := links.Delete(ctx, ac, chi.URLParam(r, "productExternalId")); err != nil {
			rs.handleError(w, r, err)
			return
		}
		flash(r, "The payment link was successfully deleted")
		redirect(w, r, accountPath(ac, paths.PaymentLinks))
	}
}
