package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/session"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// responder renders pages and maps errors to error pages.
type responder struct {
	views   *views
	metrics *observability.Metrics
	logger  *zap.Logger
}

// page builds the template data shared by every page of the request.
func (rs *responder) page(r *http.Request, title string, data any) *page {
	p := &page{
		Title:   title,
		User:    userFrom(r.Context()),
		Service: serviceFrom(r.Context()),
		Account: accountFrom(r.Context()),
		Values:  map[string]string{},
		Data:    data,
	}
	if p.Service == nil && p.Account != nil {
		p.Service = p.Account.Service
	}
	if rec := session.FromContext(r.Context()); rec != nil {
		p.CSRFToken = rec.CSRFToken()
		p.Flash = rec.PopFlash()
	}
	return p
}

func (rs *responder) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	if err := rs.views.render(w, status, name, p); err != nil {
		rs.logger.Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// invalid re-renders a form with its errors and the submitted values.
func (rs *responder) invalid(w http.ResponseWriter, r *http.Request, name string, p *page, form string, res validation.Result) {
	rs.metrics.IncrValidationFailure(form)
	p.Errors = res.Summary()
	p.FieldErrors = res.FieldErrors()
	p.Values = submitted(r)
	rs.render(w, r, http.StatusOK, name, p)
}

// handleError maps domain errors to an error page or a redirect. Error pages
// never show internal details.
func (rs *responder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *domain.ErrNotFound
	var forbidden *domain.ErrForbidden
	var completed *domain.ErrTaskAlreadyCompleted
	var outOfSequence *domain.ErrTaskOutOfSequence
	var unauthorized *domain.ErrUnauthorized
	var csrf *domain.ErrCSRF
	var tooLarge *domain.ErrPayloadTooLarge
	var invalid *domain.ErrValidation
	var upstream *domain.ErrUpstream

	switch {
	case errors.As(err, &completed):
		rs.logger.Info("task already completed", zap.String("task", completed.Task), zap.String("path", r.URL.Path))
		redirect(w, r, completedTaskRedirect(r))
	case errors.As(err, &outOfSequence):
		rs.logger.Info("task accessed out of sequence",
			zap.String("task", outOfSequence.Task),
			zap.Strings("missing", outOfSequence.Missing),
		)
		rs.errorPage(w, r, http.StatusNotFound)
	case errors.As(err, &notFound):
		rs.logger.Debug("not found", zap.String("error", err.Error()))
		rs.errorPage(w, r, http.StatusNotFound)
	case errors.As(err, &forbidden):
		rs.logger.Info("permission denied", zap.String("action", forbidden.Action), zap.String("path", r.URL.Path))
		rs.errorPage(w, r, http.StatusNotFound)
	case errors.As(err, &unauthorized):
		redirect(w, r, paths.Login)
	case errors.As(err, &csrf):
		rs.logger.Warn("csrf check failed", zap.String("path", r.URL.Path))
		rs.errorPage(w, r, http.StatusBadRequest)
	case errors.As(err, &tooLarge):
		rs.logger.Info("request body too large", zap.String("path", r.URL.Path), zap.Int64("limit", tooLarge.Limit))
		rs.errorPage(w, r, http.StatusRequestEntityTooLarge)
	case errors.As(err, &invalid):
		rs.logger.Debug("validation error", zap.String("error", err.Error()))
		rs.errorPage(w, r, http.StatusBadRequest)
	case errors.As(err, &upstream):
		rs.logger.Error("backend failure", zap.String("backend", upstream.Backend), zap.Error(err))
		rs.errorPage(w, r, http.StatusInternalServerError)
	default:
		rs.logger.Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
		rs.errorPage(w, r, http.StatusInternalServerError)
	}
}

type errorView struct {
	Status  int
	Heading string
	Message string
}

func (rs *responder) errorPage(w http.ResponseWriter, r *http.Request, status int) {
	v := errorView{Status: status}
	switch status {
	case http.StatusNotFound:
		v.Heading, v.Message = "Page not found", "If you typed the web address, check it is correct."
	case http.StatusBadRequest:
		v.Heading, v.Message = "There is a problem with your request", "Go back and try again."
	case http.StatusRequestEntityTooLarge:
		v.Heading, v.Message = "The file or form you sent is too large", "Files must be smaller than 10MB. Go back and try again."
	default:
		v.Heading, v.Message = "Sorry, there is a problem with the service", "Try again later. If the problem continues, contact support."
	}
	rs.render(w, r, status, "error", rs.page(r, v.Heading, v))
}

// completedTaskRedirect is the page a completed task sends the user back to:
// the PSP task list, the go-live overview, or the service list.
func completedTaskRedirect(r *http.Request) string {
	ctx := r.Context()
	if ac, cred := accountFrom(ctx), credentialFrom(ctx); ac != nil && cred != nil {
		return accountPath(ac, paths.YourPSP, cred.ExternalID)
	}
	if svc := serviceFrom(ctx); svc != nil {
		return paths.ServicePath(svc.ExternalID, paths.GoLiveIndex)
	}
	return paths.MyServices
}

// redirect sends a 303 so the next request is always a GET.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// submitted returns the posted form values, leaving out secrets.
func submitted(r *http.Request) map[string]string {
	values := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		switch k {
		case session.CSRFField, validation.FieldPassword:
			continue
		}
		if len(v) > 0 {
			values[k] = v[0]
		}
	}
	return values
}

// recoverer is the part of a wizard flow that keeps failed submissions.
type recoverer interface {
	SetRecovered(rec *session.Record, page string, r session.Recovered) error
	PopRecovered(rec *session.Record, page string) (session.Recovered, bool)
}

// recoverInput stores a failed wizard submission and sends the user back to
// the same page, which shows it once.
func (rs *responder) recoverInput(w http.ResponseWriter, r *http.Request, flow recoverer, pageName string, res validation.Result) {
	rs.metrics.IncrValidationFailure(pageName)
	rec := session.FromContext(r.Context())
	if err := flow.SetRecovered(rec, pageName, session.Recovered{Values: submitted(r), Errors: res.Errors}); err != nil {
		rs.handleError(w, r, err)
		return
	}
	redirect(w, r, r.URL.Path)
}

// applyRecovered fills p from a failed submission of the page, if any.
func applyRecovered(r *http.Request, flow recoverer, pageName string, p *page) bool {
	rec := session.FromContext(r.Context())
	recovered, ok := flow.PopRecovered(rec, pageName)
	if !ok {
		return false
	}
	res := recovered.Result()
	p.Errors = res.Summary()
	p.FieldErrors = res.FieldErrors()
	for k, v := range recovered.Values {
		p.Values[k] = v
	}
	return true
}

// fieldFailure turns a single field error into a validation result.
func fieldFailure(field, message string) validation.Result {
	return validation.Result{Errors: []validation.Error{{Field: field, Message: message}}}
}

func flash(r *http.Request, msg string) {
	if rec := session.FromContext(r.Context()); rec != nil {
		rec.AddFlash(msg)
	}
}

func parsePage(q url.Values) int {
	if v := q.Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			return p
		}
	}
	return 1
}
