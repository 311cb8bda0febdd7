package domain

import (
	"github.com/guregu/null/v5"
)

// Product is a payment link.
type Product struct {
	ExternalID       string      `json:"external_id"`
	GatewayAccountID int64       `json:"gateway_account_id"`
	Name             string      `json:"name"`
	Description      null.String `json:"description"`
	Price            null.Int    `json:"price"`
	Type             string      `json:"type"`
	Status           string      `json:"status"`
	Language         string      `json:"language"`
	ReferenceEnabled bool        `json:"reference_enabled"`
	ReferenceLabel   null.String `json:"reference_label"`
	ReferenceHint    null.String `json:"reference_hint"`
	ServiceNamePath  null.String `json:"service_name_path"`
	ProductNamePath  null.String `json:"product_name_path"`
	Links            []Link      `json:"_links"`
}

// PayURL returns the pay link, preferring the friendly URL.
func (p *Product) PayURL() string {
	var pay string
	for _, l := range p.Links {
		switch l.Rel {
		case "friendly":
			return l.Href
		case "pay":
			pay = l.Href
		}
	}
	return pay
}

// IsWelsh reports whether the payment link is in Welsh.
func (p *Product) IsWelsh() bool {
	return p.Language == "cy"
}
