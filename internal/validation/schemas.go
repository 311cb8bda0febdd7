package validation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/guregu/null/v5"
)

// Payment amounts accepted for payment links and demo payments, in pence.
const (
	MinAmountPence int64 = 30
	MaxAmountPence int64 = 10000000
)

// Form field names shared between schemas, handlers and templates.
const (
	FieldPaymentAmount          = "payment-amount"
	FieldDescription            = "description"
	FieldPaymentLinkTitle       = "payment-link-title"
	FieldPaymentLinkDescription = "payment-link-description"
	FieldReferenceType          = "reference-type-group"
	FieldReferenceLabel         = "reference-label"
	FieldReferenceHint          = "reference-hint"
	FieldPaymentDescription     = "payment-description"
	FieldOrganisationName       = "organisation-name"
	FieldAddressLine1           = "address-line1"
	FieldAddressLine2           = "address-line2"
	FieldAddressCity            = "address-city"
	FieldAddressPostcode        = "address-postcode"
	FieldAddressCountry         = "address-country"
	FieldTelephoneNumber        = "telephone-number"
	FieldURL                    = "url"
	FieldPSP                    = "choose-how-to-process-payments-mode"
	FieldAgreement              = "agreement"
	FieldMerchantCode           = "merchant-code"
	FieldUsername               = "username"
	FieldPassword               = "password"
	FieldOrganisationalUnitID   = "organisational-unit-id"
	FieldIssuer                 = "issuer"
	FieldJWTMacKey              = "jwt-mac-key"
	FieldSortCode               = "sort-code"
	FieldAccountNumber          = "account-number"
	FieldFirstName              = "first-name"
	FieldLastName               = "last-name"
	FieldDOBDay                 = "dob-day"
	FieldDOBMonth               = "dob-month"
	FieldDOBYear                = "dob-year"
	FieldEmail                  = "email"
	FieldVATNumberDeclaration   = "vat-number-declaration"
	FieldVATNumber              = "vat-number"
	FieldCompanyNumberDecl      = "company-number-declaration"
	FieldCompanyNumber          = "company-number"
	FieldCallbackURL            = "callback-url"
	FieldSubscriptions          = "subscriptions"
	FieldSecurityCode           = "code"
)

var (
	postcodePattern = regexp.MustCompile(`(?i)^[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}$`)
	countryPattern  = regexp.MustCompile(`^[A-Z]{2}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
	hex24Pattern    = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	uuidPattern     = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	vatPattern      = regexp.MustCompile(`^(GB)?([0-9]{9}|[0-9]{12}|GD[0-4][0-9]{2}|HA[5-9][0-9]{2})$`)
	companyPattern  = regexp.MustCompile(`^(?:[0-9]{8}|[A-Z]{2}[0-9]{6})$`)
)

// PaymentAmount validates a pounds amount.
var PaymentAmount = Schema{
	{Name: FieldPaymentAmount, Rules: []Rule{
		Required("Enter a payment amount"),
		Amount("Enter an amount in pounds and pence using digits and a decimal point, like 123.45 or 156.00"),
		AmountRange(MinAmountPence, MaxAmountPence, "Enter an amount between £0.30 and £100,000"),
	}},
}

// APIKeyDescription validates the name of a new or renamed API key.
var APIKeyDescription = Schema{
	{Name: FieldDescription, Rules: []Rule{
		Required("Enter a name for the API key"),
		MaxLength(50, "Name must be 50 characters or fewer"),
	}},
}

// PaymentLinkInformation validates the title page of the payment link wizard.
var PaymentLinkInformation = Schema{
	{Name: FieldPaymentLinkTitle, Rules: []Rule{
		Required("Enter a title"),
		MaxLength(230, "Title must be 230 characters or fewer"),
	}},
	{Name: FieldPaymentLinkDescription, Rules: []Rule{
		MaxLength(5000, "Details must be 5000 characters or fewer"),
	}},
}

// PaymentLinkReference validates the reference page of the payment link
// wizard. The label is only required when the user supplies their own
// reference.
func PaymentLinkReference(custom bool) Schema {
	s := Schema{
		{Name: FieldReferenceType, Rules: []Rule{
			Required("Select if your users already have a payment reference"),
			OneOf([]string{"custom", "standard"}, "Select if your users already have a payment reference"),
		}},
	}
	if custom {
		s = append(s,
			Field{Name: FieldReferenceLabel, Rules: []Rule{
				Required("Enter a name for your payment reference"),
				MaxLength(50, "Name must be 50 characters or fewer"),
			}},
			Field{Name: FieldReferenceHint, Rules: []Rule{
				MaxLength(255, "Hint text must be 255 characters or fewer"),
			}},
		)
	}
	return s
}

// DemoPaymentDescription validates the description of a demo payment.
var DemoPaymentDescription = Schema{
	{Name: FieldPaymentDescription, Rules: []Rule{
		Required("Enter a payment description"),
		MaxLength(255, "Description must be 255 characters or fewer"),
	}},
}

// OrganisationName validates the organisation name page of go-live.
var OrganisationName = Schema{
	{Name: FieldOrganisationName, Rules: []Rule{
		Required("Enter the name of your organisation"),
		MaxLength(100, "Organisation name must be 100 characters or fewer"),
	}},
}

// OrganisationAddress validates an organisation's address and contact details.
var OrganisationAddress = Schema{
	{Name: FieldAddressLine1, Rules: []Rule{
		Required("Enter a building and street"),
		MaxLength(255, "Building and street must be 255 characters or fewer"),
	}},
	{Name: FieldAddressLine2, Rules: []Rule{
		MaxLength(255, "Building and street must be 255 characters or fewer"),
	}},
	{Name: FieldAddressCity, Rules: []Rule{
		Required("Enter a town or city"),
		MaxLength(255, "Town or city must be 255 characters or fewer"),
	}},
	{Name: FieldAddressPostcode, Rules: []Rule{
		Required("Enter a postcode"),
		Matches(postcodePattern, "Enter a real postcode"),
	}},
	{Name: FieldAddressCountry, Rules: []Rule{
		Required("Select a country"),
		Matches(countryPattern, "Select a country"),
	}},
	{Name: FieldTelephoneNumber, Rules: []Rule{
		Required("Enter a telephone number"),
		Matches(phonePattern, "Enter a telephone number in the correct format, like 01632 960 001"),
	}},
	{Name: FieldURL, Rules: []Rule{
		Required("Enter a website address"),
		HTTPSURL("Enter a valid website address starting with https://"),
	}},
}

// ChoosePSP validates the payment service provider choice.
var ChoosePSP = Schema{
	{Name: FieldPSP, Rules: []Rule{
		Required("Select how you want to process payments"),
		OneOf([]string{"stripe", "worldpay"}, "Select how you want to process payments"),
	}},
}

// GoLiveAgreement validates acceptance of the terms.
var GoLiveAgreement = Schema{
	{Name: FieldAgreement, Rules: []Rule{
		Required("You must confirm that you have read and accepted the terms"),
		OneOf([]string{"true"}, "You must confirm that you have read and accepted the terms"),
	}},
}

// WorldpayCredentials validates merchant credentials.
var WorldpayCredentials = Schema{
	{Name: FieldMerchantCode, Rules: []Rule{Required("Enter your merchant code")}},
	{Name: FieldUsername, Rules: []Rule{Required("Enter your username")}},
	{Name: FieldPassword, Rules: []Rule{Required("Enter your password")}},
}

// Worldpay3DSFlex validates 3DS Flex credentials.
var Worldpay3DSFlex = Schema{
	{Name: FieldOrganisationalUnitID, Rules: []Rule{
		Required("Enter your organisational unit ID"),
		Matches(hex24Pattern, "Enter your organisational unit ID in the format you received it"),
	}},
	{Name: FieldIssuer, Rules: []Rule{
		Required("Enter your issuer"),
		Matches(hex24Pattern, "Enter your issuer in the format you received it"),
	}},
	{Name: FieldJWTMacKey, Rules: []Rule{
		Required("Enter your JWT MAC key"),
		Matches(uuidPattern, "Enter your JWT MAC key in the format you received it"),
	}},
}

// BankDetails validates a UK bank account.
var BankDetails = Schema{
	{Name: FieldSortCode, Rules: []Rule{
		Required("Enter a sort code"),
		Func(func(v string) bool { return digits(SanitiseSortCode(v), 6, 6) }, "Enter a valid sort code like 309430"),
	}},
	{Name: FieldAccountNumber, Rules: []Rule{
		Required("Enter an account number"),
		Func(func(v string) bool { return digits(SanitiseSortCode(v), 6, 8) }, "Enter a valid account number like 00733445"),
	}},
}

func personSchema(withContact bool) Schema {
	s := Schema{
		{Name: FieldFirstName, Rules: []Rule{
			Required("Enter the first name"),
			MaxLength(100, "First name must be 100 characters or fewer"),
		}},
		{Name: FieldLastName, Rules: []Rule{
			Required("Enter the last name"),
			MaxLength(100, "Last name must be 100 characters or fewer"),
		}},
		{Name: FieldDOBDay, Rules: []Rule{
			Required("Enter the date of birth"),
			Func(intBetween(1, 31), "Date of birth must be a real date"),
		}},
		{Name: FieldDOBMonth, Rules: []Rule{
			Required("Enter the date of birth"),
			Func(intBetween(1, 12), "Date of birth must be a real date"),
		}},
		{Name: FieldDOBYear, Rules: []Rule{
			Required("Enter the date of birth"),
			Func(intBetween(1900, 2100), "Date of birth must be a real date"),
		}},
		{Name: FieldEmail, Rules: []Rule{
			Required("Enter an email address"),
			Email("Enter a real email address"),
		}},
	}
	if withContact {
		s = append(s,
			Field{Name: FieldAddressLine1, Rules: []Rule{Required("Enter a building and street")}},
			Field{Name: FieldAddressCity, Rules: []Rule{Required("Enter a town or city")}},
			Field{Name: FieldAddressPostcode, Rules: []Rule{
				Required("Enter a postcode"),
				Matches(postcodePattern, "Enter a real postcode"),
			}},
			Field{Name: FieldTelephoneNumber, Rules: []Rule{
				Required("Enter a telephone number"),
				Matches(phonePattern, "Enter a telephone number in the correct format, like 01632 960 001"),
			}},
		)
	}
	return s
}

// ResponsiblePerson validates the responsible person of a Stripe account.
var ResponsiblePerson = personSchema(true)

// Director validates a company director.
var Director = personSchema(false)

// VATNumber validates the VAT number page. The number is only required when
// the organisation declares it has one.
func VATNumber(declared bool) Schema {
	s := Schema{
		{Name: FieldVATNumberDeclaration, Rules: []Rule{
			Required("Select yes if your organisation has a VAT number"),
			OneOf([]string{"yes", "no"}, "Select yes if your organisation has a VAT number"),
		}},
	}
	if declared {
		s = append(s, Field{Name: FieldVATNumber, Rules: []Rule{
			Required("Enter a VAT registration number"),
			Func(func(v string) bool { return vatPattern.MatchString(NormaliseIdentifier(v)) }, "Enter a valid VAT registration number"),
		}})
	}
	return s
}

// CompanyNumber validates the company registration number page.
func CompanyNumber(declared bool) Schema {
	s := Schema{
		{Name: FieldCompanyNumberDecl, Rules: []Rule{
			Required("Select yes if your organisation is registered with Companies House"),
			OneOf([]string{"yes", "no"}, "Select yes if your organisation is registered with Companies House"),
		}},
	}
	if declared {
		s = append(s, Field{Name: FieldCompanyNumber, Rules: []Rule{
			Required("Enter a company registration number"),
			Func(func(v string) bool { return companyPattern.MatchString(NormaliseIdentifier(v)) }, "Enter a valid company registration number"),
		}})
	}
	return s
}

// WebhookUpdate validates the webhook edit form.
var WebhookUpdate = Schema{
	{Name: FieldCallbackURL, Rules: []Rule{
		Required("Enter a callback URL"),
		HTTPSURL("Callback URL must begin with https://"),
		MaxLength(2048, "Callback URL must be 2048 characters or fewer"),
	}},
	{Name: FieldDescription, Rules: []Rule{
		Required("Enter a description"),
		MaxLength(50, "Description must be 50 characters or fewer"),
	}},
	{Name: FieldSubscriptions, Rules: []Rule{
		Required("Select at least one payment event"),
	}},
}

// Login validates the sign in form.
var Login = Schema{
	{Name: FieldUsername, Rules: []Rule{Required("Enter an email address")}},
	{Name: FieldPassword, Rules: []Rule{Required("Enter a password")}},
}

// SecurityCode validates a second factor code after sanitising.
var SecurityCode = Schema{
	{Name: FieldSecurityCode, Rules: []Rule{
		Required("Enter your security code"),
		Func(func(v string) bool {
			return digits(SanitiseSecurityCode(null.StringFrom(v)).String, 6, 6)
		}, "The security code must be 6 digits"),
	}},
}

// SanitiseSecurityCode removes whitespace and dashes, including en dashes,
// from a security code. An absent code stays absent.
func SanitiseSecurityCode(code null.String) null.String {
	if !code.Valid {
		return code
	}
	return null.StringFrom(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '–' {
			return -1
		}
		return r
	}, code.String))
}

// SanitiseSortCode removes spaces and dashes from a sort code or account number.
func SanitiseSortCode(v string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(v)
}

// NormaliseIdentifier upper-cases a VAT or company number and removes spaces.
func NormaliseIdentifier(v string) string {
	return strings.ToUpper(strings.ReplaceAll(v, " ", ""))
}

func digits(v string, minLen, maxLen int) bool {
	if len(v) < minLen || len(v) > maxLen {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func intBetween(lo, hi int) func(string) bool {
	return func(v string) bool {
		n, err := strconv.Atoi(v)
		return err == nil && n >= lo && n <= hi
	}
}
