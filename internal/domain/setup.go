package domain

import (
	"time"

	"github.com/guregu/null/v5"
)

// ============================================================
// PSP onboarding checklists
// ============================================================

// StripeAccountSetup is connector's checklist for a Stripe credential. Flags
// only ever move from false to true.
type StripeAccountSetup struct {
	BankAccount              bool `json:"bank_account"`
	ResponsiblePerson        bool `json:"responsible_person"`
	Director                 bool `json:"director"`
	VATNumber                bool `json:"vat_number"`
	CompanyNumber            bool `json:"company_number"`
	GovernmentEntityDocument bool `json:"government_entity_document"`
	OrganisationDetails      bool `json:"organisation_details"`
}

// Stripe setup flag names as connector expects them in a patch path.
const (
	StripeSetupBankAccount              = "bank_account"
	StripeSetupResponsiblePerson        = "responsible_person"
	StripeSetupDirector                 = "director"
	StripeSetupVATNumber                = "vat_number"
	StripeSetupCompanyNumber            = "company_number"
	StripeSetupGovernmentEntityDocument = "government_entity_document"
	StripeSetupOrganisationDetails      = "organisation_details"
)

// Flags returns every task flag keyed by its wire name.
func (s StripeAccountSetup) Flags() map[string]bool {
	return map[string]bool{
		StripeSetupBankAccount:              s.BankAccount,
		StripeSetupResponsiblePerson:        s.ResponsiblePerson,
		StripeSetupDirector:                 s.Director,
		StripeSetupVATNumber:                s.VATNumber,
		StripeSetupCompanyNumber:            s.CompanyNumber,
		StripeSetupGovernmentEntityDocument: s.GovernmentEntityDocument,
		StripeSetupOrganisationDetails:      s.OrganisationDetails,
	}
}

// AllComplete reports whether every task is done.
func (s StripeAccountSetup) AllComplete() bool {
	for _, done := range s.Flags() {
		if !done {
			return false
		}
	}
	return true
}

// Worldpay task names.
const (
	WorldpayTaskCredentials = "worldpay-credentials"
	WorldpayTaskThreeDSFlex = "worldpay-3ds-flex"
)

// WorldpayTasks is the Worldpay checklist, derived from the account and the
// credential being configured.
type WorldpayTasks struct {
	Credentials bool
	ThreeDSFlex bool
}

// NewWorldpayTasks derives the checklist. 3DS Flex is only considered done when
// the account has an organisational unit configured.
func NewWorldpayTasks(account *GatewayAccount, credential *GatewayAccountCredential) WorldpayTasks {
	t := WorldpayTasks{}
	if credential != nil {
		t.Credentials = credential.HasWorldpayCredentials()
	}
	if account != nil && account.Worldpay3DSFlex != nil {
		t.ThreeDSFlex = account.Worldpay3DSFlex.OrganisationalUnitID != ""
	}
	return t
}

// AllComplete reports whether every task is done.
func (t WorldpayTasks) AllComplete() bool {
	return t.Credentials && t.ThreeDSFlex
}

// ============================================================
// Stripe onboarding inputs
// ============================================================

// BankAccount is a UK bank account for Stripe payouts.
type BankAccount struct {
	SortCode      string
	AccountNumber string
}

// Person is a responsible person or director of a Stripe connected account.
// Address and Phone are only collected for the responsible person.
type Person struct {
	FirstName string
	LastName  string
	DOB       time.Time
	Email     string
	Address   *Address
	Phone     null.String
}

// OrganisationDetails is the organisation as confirmed to Stripe.
type OrganisationDetails struct {
	Name string
	URL  null.String
}
