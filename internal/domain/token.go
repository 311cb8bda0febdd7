package domain

import (
	"time"

	"github.com/guregu/null/v5"
)

// Token states used when listing keys.
const (
	TokenStateActive  = "active"
	TokenStateRevoked = "revoked"
)

// Token is an issued API key. Only the description can change after issue;
// RevokedDate is set at most once.
type Token struct {
	TokenLink   string      `json:"token_link"`
	Description string      `json:"description"`
	CreatedBy   string      `json:"created_by"`
	IssuedDate  time.Time   `json:"issued_date"`
	LastUsed    null.Time   `json:"last_used"`
	RevokedDate null.Time   `json:"revoked"`
	TokenType   string      `json:"token_type"`
	Type        string      `json:"type"`
	ServiceMode null.String `json:"service_mode"`
}

// IsRevoked reports whether the token has been revoked.
func (t *Token) IsRevoked() bool {
	return t.RevokedDate.Valid
}

// Revoke marks the token revoked at the given time. A revoked token keeps its
// original revocation date.
func (t *Token) Revoke(at time.Time) bool {
	if t.IsRevoked() {
		return false
	}
	t.RevokedDate = null.TimeFrom(at)
	return true
}

// TokenList is the public-auth list envelope.
type TokenList struct {
	Tokens []Token `json:"tokens"`
}

// NewToken is returned by public-auth when a key is created. The token value
// is shown once and never retrievable again.
type NewToken struct {
	Token string `json:"token"`
}

// RevokedToken is returned by public-auth when a key is revoked.
type RevokedToken struct {
	Revoked string `json:"revoked"`
}
