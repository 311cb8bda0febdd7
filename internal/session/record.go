package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is the server-side session. Handlers read and mutate it through the
// request context; the session middleware persists it when it changed.
type Record struct {
	ID                  string                     `json:"id"`
	UserExternalID      string                     `json:"user_external_id,omitempty"`
	SecondFactorPending bool                       `json:"second_factor_pending,omitempty"`
	CSRFSecret          string                     `json:"csrf_secret,omitempty"`
	CreatedAt           time.Time                  `json:"created_at"`
	Flows               map[string]json.RawMessage `json:"flows,omitempty"`
	Recovered           map[string]json.RawMessage `json:"recovered,omitempty"`
	Flash               []string                   `json:"flash,omitempty"`

	isNew     bool
	dirty     bool
	renew     bool
	destroyed bool
}

func newRecord() *Record {
	return &Record{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		isNew:     true,
	}
}

// Authenticated reports whether a user completed sign in.
func (r *Record) Authenticated() bool {
	return r.UserExternalID != "" && !r.SecondFactorPending
}

// SignIn binds the user to the session. The session id is rotated on save.
// secondFactor marks the sign in as waiting for a security code.
func (r *Record) SignIn(userExternalID string, secondFactor bool) {
	r.UserExternalID = userExternalID
	r.SecondFactorPending = secondFactor
	r.renew = true
	r.dirty = true
}

// CompleteSecondFactor finishes a two step sign in.
func (r *Record) CompleteSecondFactor() {
	r.SecondFactorPending = false
	r.renew = true
	r.dirty = true
}

// Destroy discards the record and expires the cookie.
func (r *Record) Destroy() {
	r.destroyed = true
}

// CSRFToken returns the session's CSRF secret, creating one on first use.
func (r *Record) CSRFToken() string {
	if r.CSRFSecret == "" {
		r.CSRFSecret = uuid.NewString()
		r.dirty = true
	}
	return r.CSRFSecret
}

// AddFlash queues a message for the next rendered page.
func (r *Record) AddFlash(msg string) {
	r.Flash = append(r.Flash, msg)
	r.dirty = true
}

// PopFlash returns and clears the queued messages.
func (r *Record) PopFlash() []string {
	if len(r.Flash) == 0 {
		return nil
	}
	out := r.Flash
	r.Flash = nil
	r.dirty = true
	return out
}

func (r *Record) slot(m map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := m[key]
	return raw, ok
}

func (r *Record) setSlot(m *map[string]json.RawMessage, key string, raw json.RawMessage) {
	if *m == nil {
		*m = make(map[string]json.RawMessage)
	}
	(*m)[key] = raw
	r.dirty = true
}

func (r *Record) deleteSlot(m map[string]json.RawMessage, key string) {
	if _, ok := m[key]; ok {
		delete(m, key)
		r.dirty = true
	}
}
