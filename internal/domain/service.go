// Package domain defines the projections of backend state used by selfservice.
// Structs carry the backend wire field names in their json tags, so decoding a
// backend response is the snake_case → Go mapping. Optional wire fields use
// guregu/null or pointers and stay invalid/nil when absent.
package domain

import (
	"github.com/guregu/null/v5"
)

// ============================================================
// Services
// ============================================================

// GoLiveStage is the service's progress through the request-to-go-live flow.
type GoLiveStage string

const (
	GoLiveStageNotStarted              GoLiveStage = "NOT_STARTED"
	GoLiveStageEnteredOrganisationName GoLiveStage = "ENTERED_ORGANISATION_NAME"
	GoLiveStageEnteredOrganisationAddr GoLiveStage = "ENTERED_ORGANISATION_ADDRESS"
	GoLiveStageChosenPSPStripe         GoLiveStage = "CHOSEN_PSP_STRIPE"
	GoLiveStageChosenPSPWorldpay       GoLiveStage = "CHOSEN_PSP_WORLDPAY"
	GoLiveStageTermsAgreedStripe       GoLiveStage = "TERMS_AGREED_STRIPE"
	GoLiveStageTermsAgreedWorldpay     GoLiveStage = "TERMS_AGREED_WORLDPAY"
	GoLiveStageDenied                  GoLiveStage = "DENIED"
	GoLiveStageLive                    GoLiveStage = "LIVE"
)

// ServiceName holds the localised service names. Cy is absent for services
// without a Welsh name.
type ServiceName struct {
	En string      `json:"en"`
	Cy null.String `json:"cy"`
}

// MerchantDetails is the organisation information captured while going live.
type MerchantDetails struct {
	Name            string      `json:"name"`
	AddressLine1    string      `json:"address_line1"`
	AddressLine2    null.String `json:"address_line2"`
	AddressCity     string      `json:"address_city"`
	AddressPostcode string      `json:"address_postcode"`
	AddressCountry  string      `json:"address_country"`
	TelephoneNumber null.String `json:"telephone_number"`
	URL             null.String `json:"url"`
	Email           null.String `json:"email"`
}

// Service is an adminusers service.
type Service struct {
	ExternalID                  string           `json:"external_id"`
	Name                        string           `json:"name"`
	ServiceName                 ServiceName      `json:"service_name"`
	GatewayAccountIDs           []string         `json:"gateway_account_ids"`
	CurrentGoLiveStage          GoLiveStage      `json:"current_go_live_stage"`
	MerchantDetails             *MerchantDetails `json:"merchant_details,omitempty"`
	ExperimentalFeaturesEnabled bool             `json:"experimental_features_enabled"`
}

// DisplayName returns the Welsh name when requested and present, otherwise English.
func (s *Service) DisplayName(welsh bool) string {
	if welsh && s.ServiceName.Cy.Valid && s.ServiceName.Cy.String != "" {
		return s.ServiceName.Cy.String
	}
	if s.ServiceName.En != "" {
		return s.ServiceName.En
	}
	return s.Name
}

// HasGatewayAccount reports whether id is one of the service's accounts.
func (s *Service) HasGatewayAccount(id string) bool {
	for _, a := range s.GatewayAccountIDs {
		if a == id {
			return true
		}
	}
	return false
}

// GoLiveRequested reports whether the service finished the request-to-go-live flow.
func (s *Service) GoLiveRequested() bool {
	switch s.CurrentGoLiveStage {
	case GoLiveStageTermsAgreedStripe, GoLiveStageTermsAgreedWorldpay, GoLiveStageLive, GoLiveStageDenied:
		return true
	}
	return false
}

// ============================================================
// Users
// ============================================================

// Permission names checked by the router.
const (
	PermTokensRead          = "tokens:read"
	PermTokensCreate        = "tokens:create"
	PermTokensUpdate        = "tokens:update"
	PermTokensDelete        = "tokens:delete"
	PermTransactionsRead    = "transactions:read"
	PermPaymentTypesUpdate  = "payment-types:update"
	PermTransactionsDetails = "transactions-details:read"
	PermAgreementsRead      = "agreements:read"
	PermAgreementsUpdate    = "agreements:update"
	PermPaymentLinksCreate  = "tokens:create"
	PermMerchantDetails     = "merchant-details:update"
	PermGoLiveStageUpdate   = "go-live-stage:update"
	PermStripeUpdate        = "stripe-bank-details:update"
	PermGatewayCredentials  = "gateway-credentials:update"
	PermWebhooksRead        = "webhooks:read"
	PermWebhooksUpdate      = "webhooks:update"
	PermPayoutsRead         = "payouts:read"
	PermMotoUpdate          = "moto-mask-input:update"
	PermWalletsUpdate       = "toggle-3ds:update"
)

// Permission is a single named capability.
type Permission struct {
	Name string `json:"name"`
}

// Role groups permissions.
type Role struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

// ServiceRole binds a user to a service with a role.
type ServiceRole struct {
	Service Service `json:"service"`
	Role    Role    `json:"role"`
}

// User is an adminusers user.
type User struct {
	ExternalID      string        `json:"external_id"`
	Username        string        `json:"username"`
	Email           string        `json:"email"`
	Disabled        bool          `json:"disabled"`
	TelephoneNumber null.String   `json:"telephone_number"`
	SecondFactor    null.String   `json:"second_factor"`
	ServiceRoles    []ServiceRole `json:"service_roles"`
}

// RequiresSecondFactor reports whether sign in needs a security code.
func (u *User) RequiresSecondFactor() bool {
	return u.SecondFactor.Valid && u.SecondFactor.String != ""
}

// RoleFor returns the user's role on a service, or nil.
func (u *User) RoleFor(serviceExternalID string) *ServiceRole {
	for i := range u.ServiceRoles {
		if u.ServiceRoles[i].Service.ExternalID == serviceExternalID {
			return &u.ServiceRoles[i]
		}
	}
	return nil
}

// HasService reports whether the user has any role on the service.
func (u *User) HasService(serviceExternalID string) bool {
	return u.RoleFor(serviceExternalID) != nil
}

// HasPermission reports whether the user's role on the service grants perm.
func (u *User) HasPermission(serviceExternalID, perm string) bool {
	sr := u.RoleFor(serviceExternalID)
	if sr == nil {
		return false
	}
	for _, p := range sr.Role.Permissions {
		if p.Name == perm {
			return true
		}
	}
	return false
}

// ============================================================
// Invites
// ============================================================

// MaxInviteAttempts is the number of failed security-code attempts after which
// an invite stops being usable.
const MaxInviteAttempts = 10

// Invite is a pending membership invitation.
type Invite struct {
	Code                  string      `json:"code"`
	Email                 string      `json:"email"`
	Role                  string      `json:"role"`
	ServiceExternalID     null.String `json:"service_external_id"`
	Expired               bool        `json:"expired"`
	Disabled              bool        `json:"disabled"`
	AttemptCounter        int         `json:"attempt_counter"`
	UserExist             bool        `json:"user_exist"`
	IsInviteToJoinService bool        `json:"is_invite_to_join_service"`
	OTPKey                null.String `json:"otp_key"`
}

// Usable reports whether the invite can still be accepted.
func (i *Invite) Usable() bool {
	return !i.Expired && !i.Disabled && i.AttemptCounter < MaxInviteAttempts
}

// InviteCompletion is returned by adminusers when an invite is accepted.
type InviteCompletion struct {
	Invite            Invite      `json:"invite"`
	UserExternalID    string      `json:"user_external_id"`
	ServiceExternalID null.String `json:"service_external_id"`
}
