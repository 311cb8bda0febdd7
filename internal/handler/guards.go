package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/session"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FeatureFlags reports whether a named feature is switched on.
type FeatureFlags interface {
	Enabled(name string) bool
}

// Guards are the route preconditions. Each one either calls through or stops
// the request with a typed error. Generic guards (auth, account) are mounted
// before specific ones (provider, task) so a missing account never reveals
// which later check would have failed.
type Guards struct {
	accounts   *service.AccountService
	auth       *service.AuthService
	onboarding *service.OnboardingService
	features   FeatureFlags
	rs         *responder
}

// RequireAuth loads the signed in user. Anonymous requests are sent to sign in,
// half-finished sign ins to the security code page.
func (g *Guards) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := session.FromContext(r.Context())
		if rec == nil || rec.UserExternalID == "" {
			redirect(w, r, paths.Login)
			return
		}
		if !rec.Authenticated() {
			redirect(w, r, paths.OTPVerify)
			return
		}
		user, err := g.auth.CurrentUser(r.Context(), rec.UserExternalID)
		if err != nil {
			var unauthorized *domain.ErrUnauthorized
			if errors.As(err, &unauthorized) {
				g.rs.logger.Info("session user no longer valid", zap.String("user_external_id", rec.UserExternalID))
				rec.Destroy()
			}
			g.rs.handleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// ResolveService loads the service named in the URL. Services the user has no
// role on are not found.
func (g *Guards) ResolveService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc, err := g.accounts.ResolveService(r.Context(), userFrom(r.Context()), chi.URLParam(r, "serviceExternalId"))
		if err != nil {
			g.rs.handleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), serviceKey, svc)))
	})
}

// ResolveAccount loads the service and its gateway account of the type named
// in the URL.
func (g *Guards) ResolveAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, err := g.accounts.Resolve(r.Context(), userFrom(r.Context()),
			chi.URLParam(r, "serviceExternalId"),
			domain.AccountType(chi.URLParam(r, "accountType")),
		)
		if err != nil {
			g.rs.handleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), serviceKey, ac.Service)
		ctx = context.WithValue(ctx, accountKey, ac)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireFeature hides routes behind a feature flag.
func (g *Guards) RequireFeature(flag string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.features.Enabled(flag) {
				g.rs.handleError(w, r, &domain.ErrNotFound{Resource: "feature", ID: flag})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission checks the user's role on the resolved service.
func (g *Guards) RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, svc := userFrom(r.Context()), serviceFrom(r.Context())
			if user == nil || svc == nil || !user.HasPermission(svc.ExternalID, perm) {
				g.rs.handleError(w, r, &domain.ErrForbidden{Action: perm})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireMoto limits routes to accounts that take MOTO payments.
func (g *Guards) RequireMoto(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := accountFrom(r.Context())
		if ac == nil || !ac.Account.AllowMoto {
			g.rs.handleError(w, r, &domain.ErrNotFound{Resource: "moto settings"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCredential loads the credential named in the URL. It must belong to
// the resolved account.
func (g *Guards) RequireCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := accountFrom(r.Context())
		if ac == nil {
			g.rs.handleError(w, r, &domain.ErrNotFound{Resource: "gateway account"})
			return
		}
		cred, err := service.ResolveCredential(ac, chi.URLParam(r, "credentialExternalId"))
		if err != nil {
			g.rs.handleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), credentialKey, cred)))
	})
}

// RequirePaymentProvider limits routes to one provider. The credential's
// provider is used when a credential is resolved, so a provider switch is
// configured against the new provider.
func (g *Guards) RequirePaymentProvider(provider string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var current string
			if cred := credentialFrom(r.Context()); cred != nil {
				current = cred.PaymentProvider
			} else if ac := accountFrom(r.Context()); ac != nil {
				current = ac.Account.PaymentProvider
			}
			if current != provider {
				g.rs.handleError(w, r, &domain.ErrNotFound{Resource: "payment provider", ID: provider})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTaskNotCompleted stops onboarding task pages that are already done
// or whose prerequisites are not.
func (g *Guards) RequireTaskNotCompleted(task string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, cred := accountFrom(r.Context()), credentialFrom(r.Context())
			if ac == nil || cred == nil {
				g.rs.handleError(w, r, &domain.ErrNotFound{Resource: "onboarding task", ID: task})
				return
			}
			if err := g.onboarding.CheckTask(r.Context(), ac, cred, task); err != nil {
				g.rs.handleError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
