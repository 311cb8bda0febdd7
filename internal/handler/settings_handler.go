package handler

import (
	"errors"
	"net/http"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"
)

const fieldCardTypes = "card-types"

var toggleTitles = map[string]string{
	service.ToggleApplePay:             "Apple Pay",
	service.ToggleGooglePay:            "Google Pay",
	service.ToggleMotoMaskCardNumber:   "Hide card numbers",
	service.ToggleMotoMaskSecurityCode: "Hide card security codes",
}

// ============================================================
// Card types
// ============================================================

func cardTypesPageHandler(settings *service.SettingsService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /settings/card-types")
		defer span.End()

		cards, err := settings.CardTypes(ctx, accountFrom(ctx))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "card_types", rs.page(r, "Card types", cards))
	}
}

func cardTypesHandler(settings *service.SettingsService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /settings/card-types")
		defer span.End()

		ac := accountFrom(ctx)
		selected := r.PostForm[fieldCardTypes]
		err := settings.UpdateCardTypes(ctx, ac, selected)
		var invalid *domain.ErrValidation
		if errors.As(err, &invalid) {
			cards, loadErr := settings.CardTypes(ctx, ac)
			if loadErr != nil {
				rs.handleError(w, r, loadErr)
				return
			}
			// Show the submitted selection, not the stored one.
			cards.Accepted = make(map[string]bool, len(selected))
			for _, id := range selected {
				cards.Accepted[id] = true
			}
			rs.invalid(w, r, "card_types", rs.page(r, "Card types", cards), "card_types", fieldFailure(fieldCardTypes, invalid.Message))
			return
		}
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		flash(r, "Accepted card types have been updated")
		redirect(w, r, r.URL.Path)
	}
}

// ============================================================
// Wallets and MOTO toggles
// ============================================================

type toggleView struct {
	Toggle  string
	Heading string
	Enabled bool
}

const fieldToggle = "enabled"

func togglePageHandler(rs *responder, toggle string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac := accountFrom(r.Context())
		v := toggleView{Toggle: toggle, Heading: toggleTitles[toggle], Enabled: service.ToggleState(ac.Account, toggle)}
		rs.render(w, r, http.StatusOK, "toggle", rs.page(r, v.Heading, v))
	}
}

func toggleHandler(settings *service.SettingsService, rs *responder, toggle string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /settings/"+toggle)
		defer span.End()

		ac := accountFrom(ctx)
		schema := validation.Schema{{Name: fieldToggle, Rules: []validation.Rule{
			validation.Required("Select on or off"),
			validation.OneOf([]string{"on", "off"}, "Select on or off"),
		}}}
		if res := schema.Validate(r.PostForm); !res.Valid() {
			v := toggleView{Toggle: toggle, Heading: toggleTitles[toggle], Enabled: service.ToggleState(ac.Account, toggle)}
			rs.invalid(w, r, "toggle", rs.page(r, v.Heading, v), toggle, res)
			return
		}

		enabled := r.PostForm.Get(fieldToggle) == "on"
		if err := settings.Toggle(ctx, ac, toggle, enabled); err != nil {
			rs.handleError(w, r, err)
			return
		}
		state := "off"
		if enabled {
			state = "on"
		}
		flash(r, toggleTitles[toggle]+" successfully turned "+state)
		redirect(w, r, r.URL.Path)
	}
}
