package handler

import (
	"errors"
	"net/http"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/session"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/guregu/null/v5"
	"go.uber.org/zap"
)

// ============================================================
// Sign in, security codes and invites
// ============================================================

func loginPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec := session.FromContext(r.Context()); rec != nil && rec.UserExternalID != "" && rec.Authenticated() {
			redirect(w, r, paths.MyServices)
			return
		}
		rs.render(w, r, http.StatusOK, "login", rs.page(r, "Sign in", nil))
	}
}

func loginHandler(auth *service.AuthService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /login")
		defer span.End()

		p := rs.page(r, "Sign in", nil)
		if res := validation.Login.Validate(r.PostForm); !res.Valid() {
			rs.invalid(w, r, "login", p, "login", res)
			return
		}

		user, err := auth.Login(ctx, r.PostForm.Get(validation.FieldUsername), r.PostForm.Get(validation.FieldPassword))
		if err != nil {
			var unauthorized *domain.ErrUnauthorized
			if errors.As(err, &unauthorized) {
				rs.invalid(w, r, "login", p, "login", fieldFailure(validation.FieldUsername, unauthorized.Message))
				return
			}
			rs.handleError(w, r, err)
			return
		}

		rec := session.FromContext(ctx)
		rec.SignIn(user.ExternalID, user.RequiresSecondFactor())
		rs.logger.Info("user signed in",
			zap.String("user_external_id", user.ExternalID),
			zap.Bool("second_factor", user.RequiresSecondFactor()),
		)
		if user.RequiresSecondFactor() {
			redirect(w, r, paths.OTPVerify)
			return
		}
		redirect(w, r, paths.MyServices)
	}
}

func otpPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := session.FromContext(r.Context())
		if rec == nil || rec.UserExternalID == "" {
			redirect(w, r, paths.Login)
			return
		}
		if rec.Authenticated() {
			redirect(w, r, paths.MyServices)
			return
		}
		rs.render(w, r, http.StatusOK, "otp", rs.page(r, "Enter security code", nil))
	}
}

func otpHandler(auth *service.AuthService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /otp-verify")
		defer span.End()

		rec := session.FromContext(ctx)
		if rec == nil || rec.UserExternalID == "" {
			redirect(w, r, paths.Login)
			return
		}

		p := rs.page(r, "Enter security code", nil)
		if res := validation.SecurityCode.Validate(r.PostForm); !res.Valid() {
			rs.invalid(w, r, "otp", p, "otp", res)
			return
		}

		code := null.StringFrom(r.PostForm.Get(validation.FieldSecurityCode))
		if _, err := auth.VerifySecondFactor(ctx, rec.UserExternalID, code); err != nil {
			var unauthorized *domain.ErrUnauthorized
			if errors.As(err, &unauthorized) {
				rs.invalid(w, r, "otp", p, "otp", fieldFailure(validation.FieldSecurityCode, "The security code you’ve used is incorrect or has expired"))
				return
			}
			rs.handleError(w, r, err)
			return
		}

		rec.CompleteSecondFactor()
		redirect(w, r, paths.MyServices)
	}
}

func logoutHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec := session.FromContext(r.Context()); rec != nil {
			if rec.UserExternalID != "" {
				rs.logger.Info("user signed out", zap.String("user_external_id", rec.UserExternalID))
			}
			rec.Destroy()
		}
		redirect(w, r, paths.Login)
	}
}

type inviteView struct {
	Invite *domain.Invite
	Code   string
}

func invitePageHandler(auth *service.AuthService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /invites/{code}")
		defer span.End()

		code := chi.URLParam(r, "code")
		invite, err := auth.GetInvite(ctx, code)
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "invite", rs.page(r, "You have been invited", inviteView{Invite: invite, Code: code}))
	}
}

func acceptInviteHandler(auth *service.AuthService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /invites/{code}/accept")
		defer span.End()

		done, err := auth.AcceptInvite(ctx, userFrom(ctx), chi.URLParam(r, "code"))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		flash(r, "You have been added to the service")
		rs.logger.Info("invite accepted",
			zap.String("user_external_id", done.UserExternalID),
			zap.String("service_external_id", done.ServiceExternalID.String),
		)
		redirect(w, r, paths.MyServices)
	}
}

func myServicesHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		rs.render(w, r, http.StatusOK, "my_services", rs.page(r, "Your services", user.ServiceRoles))
	}
}
