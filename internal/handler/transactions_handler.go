package handler

import (
	"net/http"
	"net/url"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/service"

	"github.com/go-chi/chi/v5"
)

// transactionsDisplaySize is the ledger page size of the transaction list.
const transactionsDisplaySize = 100

type listView[T any] struct {
	Page     *domain.Page[T]
	Query    url.Values
	HasNext  bool
	NextPage int
	PrevPage int
}

func newListView[T any](page *domain.Page[T], q url.Values, displaySize int) listView[T] {
	v := listView[T]{Page: page, Query: q}
	if page.HasNext(displaySize) {
		v.HasNext, v.NextPage = true, page.Page+1
	}
	if page.Page > 1 {
		v.PrevPage = page.Page - 1
	}
	return v
}

// ============================================================
// Transactions
// ============================================================

func transactionSearch(q url.Values) domain.TransactionSearch {
	return domain.TransactionSearch{
		Page:        parsePage(q),
		DisplaySize: transactionsDisplaySize,
		Reference:   q.Get("reference"),
		Email:       q.Get("email"),
		CardBrands:  q["brand"],
		States:      q["state"],
		FromDate:    q.Get("fromDate"),
		ToDate:      q.Get("toDate"),
		LastDigits:  q.Get("lastDigitsCardNumber"),
	}
}

func listTransactionsHandler(transactions *service.TransactionService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /transactions")
		defer span.End()

		q := r.URL.Query()
		page, err := transactions.List(ctx, accountFrom(ctx), transactionSearch(q))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "transactions", rs.page(r, "Transactions", newListView(page, q, transactionsDisplaySize)))
	}
}

func transactionDetailHandler(transactions *service.TransactionService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /transactions/{transactionId}")
		defer span.End()

		detail, err := transactions.Detail(ctx, accountFrom(ctx), chi.URLParam(r, "transactionId"))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "transaction", rs.page(r, "Transaction details", detail))
	}
}

// ============================================================
// Payouts
// ============================================================

// payoutsDisplaySize matches the page size ledger uses for payouts.
const payoutsDisplaySize = 15

func listPayoutsHandler(transactions *service.TransactionService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /payouts")
		defer span.End()

		q := r.URL.Query()
		page, err := transactions.Payouts(ctx, accountFrom(ctx), parsePage(q))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "payouts", rs.page(r, "Payments to your bank account", newListView(page, q, payoutsDisplaySize)))
	}
}

// ============================================================
// Recurring agreements
// ============================================================

// agreementsDisplaySize matches the page size ledger uses for agreements.
const agreementsDisplaySize = 20

func listAgreementsHandler(agreements *service.AgreementService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /agreements")
		defer span.End()

		q := r.URL.Query()
		page, err := agreements.List(ctx, accountFrom(ctx), domain.AgreementSearch{
			Page:      parsePage(q),
			Status:    q.Get("status"),
			Reference: q.Get("reference"),
		})
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "agreements", rs.page(r, "Agreements", newListView(page, q, agreementsDisplaySize)))
	}
}

func agreementDetailHandler(agreements *service.AgreementService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /agreements/{agreementId}")
		defer span.End()

		a, err := agreements.Get(ctx, accountFrom(ctx), chi.URLParam(r, "agreementId"))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "agreement", rs.page(r, "Agreement detail", a))
	}
}

func cancelAgreementPageHandler(agreements *service.AgreementService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /agreements/{agreementId}/cancel")
		defer span.End()

		a, err := agreements.Get(ctx, accountFrom(ctx), chi.URLParam(r, "agreementId"))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		if !a.Cancellable() {
			rs.handleError(w, r, &domain.ErrNotFound{Resource: "cancellable agreement", ID: a.ExternalID})
			return
		}
		rs.render(w, r, http.StatusOK, "agreement_cancel", rs.page(r, "Cancel agreement", a))
	}
}

func cancelAgreementHandler(agreements *service.AgreementService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /agreements/{agreementId}/cancel")
		defer span.End()

		ac, id := accountFrom(ctx), chi.URLParam(r, "agreementId")
		if err := agreements.Cancel(ctx, ac, userFrom(ctx), id); err != nil {
			rs.handleError(w, r, err)
			return
		}
		flash(r, "Agreement cancelled")
		redirect(w, r, accountPath(ac, paths.AgreementDetail, id))
	}
}
