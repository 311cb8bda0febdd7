package domain

import (
	"time"

	"github.com/guregu/null/v5"
)

// Webhook statuses.
const (
	WebhookActive   = "ACTIVE"
	WebhookInactive = "INACTIVE"
)

// WebhookEvents are the event types a webhook can subscribe to.
var WebhookEvents = []string{
	"card_payment_succeeded",
	"card_payment_captured",
	"card_payment_refunded",
}

// Webhook is a webhooks-service subscription.
type Webhook struct {
	ExternalID    string      `json:"external_id"`
	CallbackURL   string      `json:"callback_url"`
	Description   null.String `json:"description"`
	Status        string      `json:"status"`
	Subscriptions []string    `json:"subscriptions"`
	Live          bool        `json:"live"`
	CreatedDate   time.Time   `json:"created_date"`
}

// Subscribed reports whether the webhook receives the given event.
func (w *Webhook) Subscribed(event string) bool {
	for _, s := range w.Subscriptions {
		if s == event {
			return true
		}
	}
	return false
}
