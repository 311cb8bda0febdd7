package handler

import (
	"net/http"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/session"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"

	"github.com/guregu/null/v5"
)

// Recovered input slots of the go-live pages.
const (
	pageGoLiveName    = "go-live-organisation-name"
	pageGoLiveAddress = "go-live-organisation-address"
	pageGoLivePSP     = "go-live-choose-psp"
	pageGoLiveAgree   = "go-live-agreement"
)

type goLiveView struct {
	Stage     domain.GoLiveStage
	Requested bool
	NextPage  string
}

func goLiveIndexHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := serviceFrom(r.Context())
		v := goLiveView{Stage: svc.CurrentGoLiveStage, Requested: svc.GoLiveRequested()}
		if next := service.GoLiveNextPage(svc.CurrentGoLiveStage); next != "" && !v.Requested {
			v.NextPage = paths.ServicePath(svc.ExternalID, next)
		}
		rs.render(w, r, http.StatusOK, "go_live", rs.page(r, "Request a live account", v))
	}
}

// goLiveStepOpen stops wizard pages once the request has been made and
// pages whose earlier steps are not done.
func goLiveStepOpen(w http.ResponseWriter, r *http.Request, rs *responder, step service.GoLiveStep) bool {
	if err := service.CheckGoLiveStep(serviceFrom(r.Context()), step); err != nil {
		rs.handleError(w, r, err)
		return false
	}
	return true
}

// goLiveContinue sends the user to the page the updated stage continues at.
func goLiveContinue(w http.ResponseWriter, r *http.Request, svc *domain.Service) {
	next := service.GoLiveNextPage(svc.CurrentGoLiveStage)
	if next == "" {
		next = paths.GoLiveIndex
	}
	redirect(w, r, paths.ServicePath(svc.ExternalID, next))
}

func organisationNamePageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !goLiveStepOpen(w, r, rs, service.GoLiveStepOrganisationName) {
			return
		}
		svc := serviceFrom(r.Context())
		p := rs.page(r, "What is the name of your organisation?", nil)
		p.Values[validation.FieldOrganisationName] = session.GoLiveFlow.Get(session.FromContext(r.Context())).OrganisationName
		if p.Values[validation.FieldOrganisationName] == "" && svc.MerchantDetails != nil {
			p.Values[validation.FieldOrganisationName] = svc.MerchantDetails.Name
		}
		applyRecovered(r, session.GoLiveFlow, pageGoLiveName, p)
		rs.render(w, r, http.StatusOK, "go_live_name", p)
	}
}

func organisationNameHandler(golive *service.GoLiveService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /request-to-go-live/organisation-name")
		defer span.End()

		if res := validation.OrganisationName.Validate(r.PostForm); !res.Valid() {
			rs.recoverInput(w, r, session.GoLiveFlow, pageGoLiveName, res)
			return
		}
		name := r.PostForm.Get(validation.FieldOrganisationName)
		updated, err := golive.SetOrganisationName(ctx, serviceFrom(ctx), name)
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		if err := session.GoLiveFlow.Update(session.FromContext(ctx), func(g *session.GoLive) {
			g.OrganisationName = name
		}); err != nil {
			rs.handleError(w, r, err)
			return
		}
		goLiveContinue(w, r, updated)
	}
}

func organisationAddressPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !goLiveStepOpen(w, r, rs, service.GoLiveStepOrganisationAddress) {
			return
		}
		g := session.GoLiveFlow.Get(session.FromContext(r.Context()))
		p := rs.page(r, "Enter your organisation’s contact details", nil)
		p.Values[validation.FieldAddressLine1] = g.AddressLine1
		p.Values[validation.FieldAddressLine2] = g.AddressLine2
		p.Values[validation.FieldAddressCity] = g.AddressCity
		p.Values[validation.FieldAddressPostcode] = g.AddressPostcode
		p.Values[validation.FieldAddressCountry] = g.AddressCountry
		if g.AddressCountry == "" {
			p.Values[validation.FieldAddressCountry] = "GB"
		}
		p.Values[validation.FieldTelephoneNumber] = g.TelephoneNumber
		p.Values[validation.FieldURL] = g.URL
		applyRecovered(r, session.GoLiveFlow, pageGoLiveAddress, p)
		rs.render(w, r, http.StatusOK, "go_live_address", p)
	}
}

func organisationAddressHandler(golive *service.GoLiveService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /request-to-go-live/organisation-address")
		defer span.End()

		if res := validation.OrganisationAddress.Validate(r.PostForm); !res.Valid() {
			rs.recoverInput(w, r, session.GoLiveFlow, pageGoLiveAddress, res)
			return
		}
		f := r.PostForm
		contact := service.OrganisationContact{
			Address: domain.Address{
				Line1:    f.Get(validation.FieldAddressLine1),
				Postcode: f.Get(validation.FieldAddressPostcode),
				City:     f.Get(validation.FieldAddressCity),
				Country:  f.Get(validation.FieldAddressCountry),
			},
			TelephoneNumber: f.Get(validation.FieldTelephoneNumber),
			URL:             f.Get(validation.FieldURL),
		}
		if line2 := f.Get(validation.FieldAddressLine2); line2 != "" {
			contact.Address.Line2 = null.StringFrom(line2)
		}
		updated, err := golive.SetOrganisationContact(ctx, serviceFrom(ctx), contact)
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		if err := session.GoLiveFlow.Update(session.FromContext(ctx), func(g *session.GoLive) {
			g.AddressLine1 = contact.Address.Line1
			g.AddressLine2 = contact.Address.Line2.String
			g.AddressCity = contact.Address.City
			g.AddressPostcode = contact.Address.Postcode
			g.AddressCountry = contact.Address.Country
			g.TelephoneNumber = contact.TelephoneNumber
			g.URL = contact.URL
		}); err != nil {
			rs.handleError(w, r, err)
			return
		}
		goLiveContinue(w, r, updated)
	}
}

func choosePSPPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !goLiveStepOpen(w, r, rs, service.GoLiveStepChoosePSP) {
			return
		}
		p := rs.page(r, "Choose how to process payments", nil)
		p.Values[validation.FieldPSP] = session.GoLiveFlow.Get(session.FromContext(r.Context())).PSP
		applyRecovered(r, session.GoLiveFlow, pageGoLivePSP, p)
		rs.render(w, r, http.StatusOK, "go_live_psp", p)
	}
}

func choosePSPHandler(golive *service.GoLiveService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /request-to-go-live/choose-how-to-process-payments")
		defer span.End()

		if res := validation.ChoosePSP.Validate(r.PostForm); !res.Valid() {
			rs.recoverInput(w, r, session.GoLiveFlow, pageGoLivePSP, res)
			return
		}
		psp := r.PostForm.Get(validation.FieldPSP)
		updated, err := golive.ChoosePSP(ctx, serviceFrom(ctx), psp)
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		if err := session.GoLiveFlow.Update(session.FromContext(ctx), func(g *session.GoLive) {
			g.PSP = psp
		}); err != nil {
			rs.handleError(w, r, err)
			return
		}
		goLiveContinue(w, r, updated)
	}
}

func agreementPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !goLiveStepOpen(w, r, rs, service.GoLiveStepAgreement) {
			return
		}
		svc := serviceFrom(r.Context())
		p := rs.page(r, "Read and accept our legal terms", svc.CurrentGoLiveStage)
		applyRecovered(r, session.GoLiveFlow, pageGoLiveAgree, p)
		rs.render(w, r, http.StatusOK, "go_live_agreement", p)
	}
}

func agreementHandler(golive *service.GoLiveService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /request-to-go-live/agreement")
		defer span.End()

		if res := validation.GoLiveAgreement.Validate(r.PostForm); !res.Valid() {
			rs.recoverInput(w, r, session.GoLiveFlow, pageGoLiveAgree, res)
			return
		}
		updated, err := golive.Agree(ctx, serviceFrom(ctx), userFrom(ctx))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		session.GoLiveFlow.Clear(session.FromContext(ctx))
		redirect(w, r, paths.ServicePath(updated.ExternalID, paths.GoLiveIndex))
	}
}
