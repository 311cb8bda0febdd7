package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/session"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"

	"github.com/go-chi/chi/v5"
)

// ============================================================
// Dashboard
// ============================================================

func dashboardHandler(dashboard *service.DashboardService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /dashboard")
		defer span.End()

		d, err := dashboard.Get(ctx, accountFrom(ctx))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "dashboard", rs.page(r, "Dashboard", d))
	}
}

// ============================================================
// API keys
// ============================================================

type apiKeysView struct {
	Tokens  []domain.Token
	Revoked bool
}

func listAPIKeysHandler(tokens *service.TokenService, rs *responder, revoked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api-keys")
		defer span.End()

		list, err := tokens.List(ctx, accountFrom(ctx), revoked)
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		title := "API keys"
		if revoked {
			title = "Revoked API keys"
		}
		rs.render(w, r, http.StatusOK, "api_keys", rs.page(r, title, apiKeysView{Tokens: list, Revoked: revoked}))
	}
}

func createAPIKeyPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs.render(w, r, http.StatusOK, "api_key_create", rs.page(r, "Create an API key", nil))
	}
}

func createAPIKeyHandler(tokens *service.TokenService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api-keys/create")
		defer span.End()

		if res := validation.APIKeyDescription.Validate(r.PostForm); !res.Valid() {
			rs.invalid(w, r, "api_key_create", rs.page(r, "Create an API key", nil), "api_key_create", res)
			return
		}

		description := strings.TrimSpace(r.PostForm.Get(validation.FieldDescription))
		created, err := tokens.Create(ctx, accountFrom(ctx), userFrom(ctx), description)
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rec := session.FromContext(ctx)
		if err := session.NewAPIKeyFlow.Set(rec, session.NewAPIKey{Token: created.Token, Description: description}); err != nil {
			rs.handleError(w, r, err)
			return
		}
		redirect(w, r, accountPath(accountFrom(ctx), paths.APIKeysCreated))
	}
}

// createdAPIKeyHandler shows a new key exactly once.
func createdAPIKeyHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := session.NewAPIKeyFlow.Take(session.FromContext(r.Context()))
		if !ok {
			redirect(w, r, accountPath(accountFrom(r.Context()), paths.APIKeys))
			return
		}
		rs.render(w, r, http.StatusOK, "api_key_created", rs.page(r, "New API key", key))
	}
}

func changeAPIKeyNamePageHandler(tokens *service.TokenService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api-keys/{tokenLink}/change-name")
		defer span.End()

		token, err := tokens.Get(ctx, accountFrom(ctx), chi.URLParam(r, "tokenLink"))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		p := rs.page(r, "Change API key name", token)
		p.Values[validation.FieldDescription] = token.Description
		rs.render(w, r, http.StatusOK, "api_key_name", p)
	}
}

func changeAPIKeyNameHandler(tokens *service.TokenService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api-keys/{tokenLink}/change-name")
		defer span.End()

		ac, link := accountFrom(ctx), chi.URLParam(r, "tokenLink")
		if res := validation.APIKeyDescription.Validate(r.PostForm); !res.Valid() {
			token, err := tokens.Get(ctx, ac, link)
			if err != nil {
				rs.handleError(w, r, err)
				return
			}
			rs.invalid(w, r, "api_key_name", rs.page(r, "Change API key name", token), "api_key_name", res)
			return
		}
		if _, err := tokens.Rename(ctx, ac, link, r.PostForm.Get(validation.FieldDescription)); err != nil {
			rs.handleError(w, r, err)
			return
		}
		redirect(w, r, accountPath(ac, paths.APIKeys))
	}
}

func revokeAPIKeyPageHandler(tokens *service.TokenService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api-keys/{tokenLink}/revoke")
		defer span.End()

		token, err := tokens.Get(ctx, accountFrom(ctx), chi.URLParam(r, "tokenLink"))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "api_key_revoke", rs.page(r, "Revoke API key", token))
	}
}

func revokeAPIKeyHandler(tokens *service.TokenService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api-keys/{tokenLink}/revoke")
		defer span.End()

		ac := accountFrom(ctx)
		token, err := tokens.Revoke(ctx, ac, userFrom(ctx), chi.URLParam(r, "tokenLink"))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		flash(r, fmt.Sprintf("The API key %q was successfully revoked", token.Description))
		redirect(w, r, accountPath(ac, paths.APIKeys))
	}
}
