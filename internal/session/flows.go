package session

// PaymentLinkCreation is the state of the payment link wizard.
type PaymentLinkCreation struct {
	Title            string `json:"title,omitempty"`
	Details          string `json:"details,omitempty"`
	IsWelsh          bool   `json:"isWelsh,omitempty"`
	ReferenceEnabled bool   `json:"referenceEnabled,omitempty"`
	ReferenceLabel   string `json:"referenceLabel,omitempty"`
	ReferenceHint    string `json:"referenceHint,omitempty"`
	AmountPence      int64  `json:"amount,omitempty"`
	ReferencePageSet bool   `json:"referencePageSet,omitempty"`
	AmountPageSet    bool   `json:"amountPageSet,omitempty"`
}

// DemoPayment is the state of the demo payment wizard.
type DemoPayment struct {
	Description string `json:"description,omitempty"`
	AmountPence int64  `json:"amount,omitempty"`
}

// GoLive is the state of the request-to-go-live wizard.
type GoLive struct {
	OrganisationName string `json:"organisationName,omitempty"`
	AddressLine1     string `json:"addressLine1,omitempty"`
	AddressLine2     string `json:"addressLine2,omitempty"`
	AddressCity      string `json:"addressCity,omitempty"`
	AddressPostcode  string `json:"addressPostcode,omitempty"`
	AddressCountry   string `json:"addressCountry,omitempty"`
	TelephoneNumber  string `json:"telephoneNumber,omitempty"`
	URL              string `json:"url,omitempty"`
	PSP              string `json:"psp,omitempty"`
}

// NewAPIKey carries a freshly created key to the page that shows it once.
type NewAPIKey struct {
	Token       string `json:"token"`
	Description string `json:"description"`
}

// Session slots of the wizard flows.
var (
	PaymentLinkFlow = Flow[PaymentLinkCreation]{Slot: "paymentLinkCreation"}
	DemoPaymentFlow = Flow[DemoPayment]{Slot: "demoPayment"}
	GoLiveFlow      = Flow[GoLive]{Slot: "goLive"}
	NewAPIKeyFlow   = Flow[NewAPIKey]{Slot: "newAPIKey"}
)
