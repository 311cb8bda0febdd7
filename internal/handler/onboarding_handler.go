package handler

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"

	"github.com/guregu/null/v5"
)

// Onboarding form fields that are not shared with other forms.
const (
	fieldConfirmOrgDetails        = "confirm-org-details"
	fieldGovernmentEntityDocument = "government-entity-document"
)

const maxDocumentBytes = 10 << 20

var documentExtensions = map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true}

// ============================================================
// Task list
// ============================================================

func taskListHandler(onboarding *service.OnboardingService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /your-psp/{credentialExternalId}")
		defer span.End()

		tasks, err := onboarding.Tasks(ctx, accountFrom(ctx), credentialFrom(ctx))
		if err != nil {
			rs.handleError(w, r, err)
			return
		}
		rs.render(w, r, http.StatusOK, "task_list", rs.page(r, "Your payment service provider", tasks))
	}
}

func taskListPath(r *http.Request) string {
	return accountPath(accountFrom(r.Context()), paths.YourPSP, credentialFrom(r.Context()).ExternalID)
}

// taskFailed re-renders a task form for failures the user can correct and
// falls back to the error page for everything else. A submission Stripe
// rejects is shown against the form's first field.
func (rs *responder) taskFailed(w http.ResponseWriter, r *http.Request, name, title, firstField string, data any, err error) {
	var invalid *domain.ErrValidation
	var rejected *domain.ErrBackendClient
	switch {
	case errors.As(err, &invalid):
		rs.invalid(w, r, name, rs.page(r, title, data), name, fieldFailure(invalid.Field, invalid.Message))
	case errors.As(err, &rejected) && rejected.Backend == "stripe":
		rs.invalid(w, r, name, rs.page(r, title, data), name, fieldFailure(firstField, "Check the details you entered and try again"))
	default:
		rs.handleError(w, r, err)
	}
}

// taskForm validates a task form, submits it and returns to the task list.
func taskForm(rs *responder, name, title string, schema func(r *http.Request) validation.Schema, submit func(ctx context.Context, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /your-psp/{credentialExternalId}/"+name)
		defer span.End()

		s := schema(r)
		if res := s.Validate(r.PostForm); !res.Valid() {
			rs.invalid(w, r, name, rs.page(r, title, nil), name, res)
			return
		}
		if err := submit(ctx, r); err != nil {
			rs.taskFailed(w, r, name, title, s[0].Name, nil, err)
			return
		}
		redirect(w, r, taskListPath(r))
	}
}

func formPage(rs *responder, name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs.render(w, r, http.StatusOK, name, rs.page(r, title, nil))
	}
}

// ============================================================
// Stripe tasks
// ============================================================

func bankDetailsPageHandler(rs *responder) http.HandlerFunc {
	return formPage(rs, "stripe_bank_details", "Enter your organisation’s banking details")
}

func bankDetailsHandler(onboarding *service.OnboardingService, rs *responder) http.HandlerFunc {
	return fixedTaskForm(rs, "stripe_bank_details", "Enter your organisation’s banking details", validation.BankDetails,
		func(ctx context.Context, r *http.Request) error {
			return onboarding.SubmitBankDetails(ctx, accountFrom(ctx), domain.BankAccount{
				SortCode:      validation.SanitiseSortCode(r.PostForm.Get(validation.FieldSortCode)),
				AccountNumber: validation.SanitiseSortCode(r.PostForm.Get(validation.FieldAccountNumber)),
			})
		})
}

type personForm struct {
	Title       string
	WithContact bool
	schema      validation.Schema
	submit      func(*service.OnboardingService, context.Context, *service.AccountContext, domain.Person) error
}

var (
	responsiblePersonForm = personForm{
		Title:       "Enter responsible person details",
		WithContact: true,
		schema:      validation.ResponsiblePerson,
		submit:      (*service.OnboardingService).SubmitResponsiblePerson,
	}
	directorForm = personForm{
		Title:  "Enter the director’s details",
		schema: validation.Director,
		submit: (*service.OnboardingService).SubmitDirector,
	}
)

func personPageHandler(rs *responder, form personForm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs.render(w, r, http.StatusOK, "stripe_person", rs.page(r, form.Title, form))
	}
}

// dateOfBirth builds a past calendar date from the three date fields.
func dateOfBirth(r *http.Request, now time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(r.PostForm.Get(validation.FieldDOBDay))
	month, _ := strconv.Atoi(r.PostForm.Get(validation.FieldDOBMonth))
	year, _ := strconv.Atoi(r.PostForm.Get(validation.FieldDOBYear))
	dob := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if dob.Day() != day || int(dob.Month()) != month || !dob.Before(now) {
		return time.Time{}, false
	}
	return dob, true
}

func personHandler(onboarding *service.OnboardingService, rs *responder, form personForm) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /your-psp/{credentialExternalId}/person")
		defer span.End()

		if res := form.schema.Validate(r.PostForm); !res.Valid() {
			rs.invalid(w, r, "stripe_person", rs.page(r, form.Title, form), "stripe_person", res)
			return
		}
		dob, ok := dateOfBirth(r, time.Now())
		if !ok {
			rs.invalid(w, r, "stripe_person", rs.page(r, form.Title, form), "stripe_person",
				fieldFailure(validation.FieldDOBDay, "Date of birth must be a real date in the past"))
			return
		}

		f := r.PostForm
		p := domain.Person{
			FirstName: strings.TrimSpace(f.Get(validation.FieldFirstName)),
			LastName:  strings.TrimSpace(f.Get(validation.FieldLastName)),
			DOB:       dob,
			Email:     f.Get(validation.FieldEmail),
		}
		if form.WithContact {
			p.Address = &domain.Address{
				Line1:    f.Get(validation.FieldAddressLine1),
				City:     f.Get(validation.FieldAddressCity),
				Postcode: f.Get(validation.FieldAddressPostcode),
				Country:  "GB",
			}
			if line2 := f.Get(validation.FieldAddressLine2); line2 != "" {
				p.Address.Line2 = null.StringFrom(line2)
			}
			p.Phone = null.StringFrom(f.Get(validation.FieldTelephoneNumber))
		}

		if err := form.submit(onboarding, ctx, accountFrom(ctx), p); err != nil {
			rs.taskFailed(w, r, "stripe_person", form.Title, validation.FieldFirstName, form, err)
			return
		}
		redirect(w, r, taskListPath(r))
	}
}

// declared returns the normalised identifier when the declaration is "yes".
func declared(r *http.Request, declField, valueField string) null.String {
	if r.PostForm.Get(declField) != "yes" {
		return null.String{}
	}
	return null.StringFrom(validation.NormaliseIdentifier(r.PostForm.Get(valueField)))
}

func vatNumberPageHandler(rs *responder) http.HandlerFunc {
	return formPage(rs, "stripe_vat_number", "Does your organisation have a VAT number?")
}

func vatNumberHandler(onboarding *service.OnboardingService, rs *responder) http.HandlerFunc {
	return taskForm(rs, "stripe_vat_number", "Does your organisation have a VAT number?",
		func(r *http.Request) validation.Schema {
			return validation.VATNumber(r.PostForm.Get(validation.FieldVATNumberDeclaration) == "yes")
		},
		func(ctx context.Context, r *http.Request) error {
			return onboarding.SubmitVATNumber(ctx, accountFrom(ctx), declared(r, validation.FieldVATNumberDeclaration, validation.FieldVATNumber))
		})
}

func companyNumberPageHandler(rs *responder) http.HandlerFunc {
	return formPage(rs, "stripe_company_number", "Does your organisation have a company registration number?")
}

func companyNumberHandler(onboarding *service.OnboardingService, rs *responder) http.HandlerFunc {
	return taskForm(rs, "stripe_company_number", "Does your organisation have a company registration number?",
		func(r *http.Request) validation.Schema {
			return validation.CompanyNumber(r.PostForm.Get(validation.FieldCompanyNumberDecl) == "yes")
		},
		func(ctx context.Context, r *http.Request) error {
			return onboarding.SubmitCompanyNumber(ctx, accountFrom(ctx), declared(r, validation.FieldCompanyNumberDecl, validation.FieldCompanyNumber))
		})
}

var confirmOrgDetails = validation.Schema{{Name: fieldConfirmOrgDetails, Rules: []validation.Rule{
	validation.Required("Select yes if your organisation’s details match the details on your government entity document"),
	validation.OneOf([]string{"yes", "no"}, "Select yes if your organisation’s details match the details on your government entity document"),
}}}

func checkOrganisationPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := serviceFrom(r.Context())
		rs.render(w, r, http.StatusOK, "stripe_check_organisation", rs.page(r, "Check your organisation’s details", svc.MerchantDetails))
	}
}

func checkOrganisationHandler(onboarding *service.OnboardingService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /your-psp/{credentialExternalId}/check-organisation-details")
		defer span.End()

		const title = "Check your organisation’s details"
		details := serviceFrom(ctx).MerchantDetails
		if res := confirmOrgDetails.Validate(r.PostForm); !res.Valid() {
			rs.invalid(w, r, "stripe_check_organisation", rs.page(r, title, details), "stripe_check_organisation", res)
			return
		}
		if r.PostForm.Get(fieldConfirmOrgDetails) == "no" {
			flash(r, "Contact support to change your organisation details")
			redirect(w, r, taskListPath(r))
			return
		}
		if err := onboarding.ConfirmOrganisationDetails(ctx, accountFrom(ctx)); err != nil {
			rs.taskFailed(w, r, "stripe_check_organisation", title, fieldConfirmOrgDetails, details, err)
			return
		}
		redirect(w, r, taskListPath(r))
	}
}

func governmentDocumentPageHandler(rs *responder) http.HandlerFunc {
	return formPage(rs, "stripe_government_document", "Upload a government entity document")
}

func governmentDocumentHandler(onboarding *service.OnboardingService, rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /your-psp/{credentialExternalId}/government-entity-document")
		defer span.End()

		const name, title = "stripe_government_document", "Upload a government entity document"
		reject := func(msg string) {
			rs.invalid(w, r, name, rs.page(r, title, nil), name, fieldFailure(fieldGovernmentEntityDocument, msg))
		}

		if err := r.ParseMultipartForm(maxDocumentBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				reject("File size must be smaller than 10MB")
				return
			}
		}
		file, header, err := r.FormFile(fieldGovernmentEntityDocument)
		if err != nil {
			reject("Select a file to upload")
			return
		}
		defer file.Close()
		if header.Size > maxDocumentBytes {
			reject("File size must be smaller than 10MB")
			return
		}
		if !documentExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
			reject("File type must be pdf, jpg or png")
			return
		}

		if err := onboarding.UploadGovernmentEntityDocument(ctx, accountFrom(ctx), header.Filename, file); err != nil {
			rs.taskFailed(w, r, name, title, fieldGovernmentEntityDocument, nil, err)
			return
		}
		redirect(w, r, taskListPath(r))
	}
}

// ============================================================
// Worldpay tasks
// ============================================================

func worldpayCredentialsPageHandler(rs *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rs.page(r, "Your Worldpay credentials", nil)
		cred := credentialFrom(r.Context())
		if cred.Credentials != nil && cred.Credentials.OneOffCustomerInitiated != nil {
			p.Values[validation.FieldMerchantCode] = cred.Credentials.OneOffCustomerInitiated.MerchantCode
			p.Values[validation.FieldUsername] = cred.Credentials.OneOffCustomerInitiated.Username
		}
		rs.render(w, r, http.StatusOK, "worldpay_credentials", p)
	}
}

func worldpayCredentialsHandler(onboarding *service.OnboardingService, rs *responder) http.HandlerFunc {
	return fixedTaskForm(rs, "worldpay_credentials", "Your Worldpay credentials", validation.WorldpayCredentials,
		func(ctx context.Context, r *http.Request) error {
			f := r.PostForm
			return onboarding.SubmitWorldpayCredentials(ctx, accountFrom(ctx), userFrom(ctx), credentialFrom(ctx), domain.WorldpayCredentials{
				MerchantCode: strings.TrimSpace(f.Get(validation.FieldMerchantCode)),
				Username:     strings.TrimSpace(f.Get(validation.FieldUsername)),
				Password:     f.Get(validation.FieldPassword),
			})
		})
}

func worldpay3DSFlexPageHandler(rs *responder) http.HandlerFunc {
	return formPage(rs, "worldpay_3ds_flex", "Your Worldpay 3DS Flex credentials")
}

func worldpay3DSFlexHandler(onboarding *service.OnboardingService, rs *responder) http.HandlerFunc {
	return fixedTaskForm(rs, "worldpay_3ds_flex", "Your Worldpay 3DS Flex credentials", validation.Worldpay3DSFlex,
		func(ctx context.Context, r *http.Request) error {
			f := r.PostForm
			return onboarding.SubmitWorldpay3DSFlex(ctx, accountFrom(ctx), domain.Worldpay3DSFlexRequest{
				OrganisationalUnitID: strings.TrimSpace(f.Get(validation.FieldOrganisationalUnitID)),
				Issuer:               strings.TrimSpace(f.Get(validation.FieldIssuer)),
				JWTMacKey:            strings.TrimSpace(f.Get(validation.FieldJWTMacKey)),
			})
		})
}

// fixedTaskForm is a taskForm whose schema does not depend on the input.
func fixedTaskForm(rs *responder, name, title string, schema validation.Schema, submit func(ctx context.Context, r *http.Request) error) http.HandlerFunc {
	return taskForm(rs, name, title, func(*http.Request) validation.Schema { return schema }, submit)
}
