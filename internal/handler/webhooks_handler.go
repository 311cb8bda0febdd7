package handler

import (
	"errors"
	"net/http"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/guregu/null/v5"
)

type webhookView struct {
	Webhook  *domain.Webhook
	Events   []string
	Selected []string
}

func listWebhooksHandler(webhooks *service.WebhookService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /webhooks")
		defer span.End()

		list, err := webhooks.List(ctx, accountFrom(ctx))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "webhooks", rs.page(r, "Webhooks", list))
	}
}

func webhookDetailHandler(webhooks *service.WebhookService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /webhooks/{webhookExternalId}")
		defer span.End()

		wh, err := webhooks.Get(ctx, accountFrom(ctx), chi.URLParam(r, "webhookExternalId"))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "webhook", rs.page(r, "Webhook", webhookView{Webhook: wh, Events: domain.WebhookEvents}))
	}
}

func updateWebhookPageHandler(webhooks *service.WebhookService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /webhooks/{webhookExternalId}/update")
		defer span.End()

		wh, err := webhooks.Get(ctx, accountFrom(ctx), chi.URLParam(r, "webhookExternalId"))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		p := rs.page(r, "Update webhook", webhookView{Webhook: wh, Events: domain.WebhookEvents, Selected: wh.Subscriptions})
		p.Values[validation.FieldCallbackURL] = wh.CallbackURL
		p.Values[validation.FieldDescription] = wh.Description.String
		rs.render(w, r, http.StatusOK, "webhook_update", p)
	}
}

func updateWebhookHandler(webhooks *service.WebhookService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /webhooks/{webhookExternalId}/update")
		defer span.End()

		ac, id := accountFrom(ctx), chi.URLParam(r, "webhookExternalId")
		reject := func(res validation.Result) {
			wh, err := webhooks.Get(ctx, ac, id)
			if err != nil {
				rs.handleError(w, r, err)
				return
			}
			v := webhookView{Webhook: wh, Events: domain.WebhookEvents, Selected: r.PostForm[validation.FieldSubscriptions]}
			rs.invalid(w, r, "webhook_update", rs.page(r, "Update webhook", v), "webhook_update", res)
		}

		if res := validation.WebhookUpdate.Validate(r.PostForm); !res.Valid() {
			reject(res)
			return
		}
		_, err := webhooks.Update(ctx, ac, id, domain.WebhookUpdateRequest{
			CallbackURL:   null.StringFrom(r.PostForm.Get(validation.FieldCallbackURL)),
			Description:   null.StringFrom(r.PostForm.Get(validation.FieldDescription)),
			Subscriptions: r.PostForm[validation.FieldSubscriptions],
		})
		var invalid *domain.ErrValidation
		if errors.As(err, &invalid) {
			reject(fieldFailure(validation.FieldSubscriptions, invalid.Message))
			return
		}
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		flash(r, "Webhook details updated")
		redirect(w, r, accountPath(ac, paths.WebhookDetail, id))
	}
}
