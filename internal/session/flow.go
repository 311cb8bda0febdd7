package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boddenberg/pay-selfservice-go/internal/validation"
)

// Flow binds a multi-page form's state type to its session slot.
type Flow[T any] struct {
	Slot string
}

// Recovered is what a failed POST leaves for the next render of the same
// page: the submitted values and the validation errors.
type Recovered struct {
	Values map[string]string  `json:"values"`
	Errors []validation.Error `json:"errors"`
}

// Result rebuilds the validation result for rendering.
func (r Recovered) Result() validation.Result {
	return validation.Result{Errors: r.Errors}
}

// Exists reports whether the flow has been started.
func (f Flow[T]) Exists(rec *Record) bool {
	_, ok := rec.slot(rec.Flows, f.Slot)
	return ok
}

// Get returns the stored state, or the zero value when the flow has not been
// started or the stored state no longer decodes.
func (f Flow[T]) Get(rec *Record) T {
	var v T
	if raw, ok := rec.slot(rec.Flows, f.Slot); ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

// Set replaces the stored state.
func (f Flow[T]) Set(rec *Record, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.Slot, err)
	}
	rec.setSlot(&rec.Flows, f.Slot, raw)
	return nil
}

// Update reads the stored state, applies fn and writes it back.
func (f Flow[T]) Update(rec *Record, fn func(*T)) error {
	v := f.Get(rec)
	fn(&v)
	return f.Set(rec, v)
}

// Take returns the stored state and removes it, so it is seen only once.
func (f Flow[T]) Take(rec *Record) (T, bool) {
	v, ok := f.Get(rec), f.Exists(rec)
	f.Clear(rec)
	return v, ok
}

// Clear deletes the state and any recovered input of the flow.
func (f Flow[T]) Clear(rec *Record) {
	rec.deleteSlot(rec.Flows, f.Slot)
	for k := range rec.Recovered {
		if strings.HasPrefix(k, f.Slot+":") {
			rec.deleteSlot(rec.Recovered, k)
		}
	}
}

func (f Flow[T]) recoveredKey(page string) string {
	return f.Slot + ":" + page + "Recovered"
}

// SetRecovered stores a failed submission for page.
func (f Flow[T]) SetRecovered(rec *Record, page string, r Recovered) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode recovered %s: %w", page, err)
	}
	rec.setSlot(&rec.Recovered, f.recoveredKey(page), raw)
	return nil
}

// PopRecovered returns and removes the failed submission for page.
func (f Flow[T]) PopRecovered(rec *Record, page string) (Recovered, bool) {
	key := f.recoveredKey(page)
	raw, ok := rec.slot(rec.Recovered, key)
	if !ok {
		return Recovered{}, false
	}
	rec.deleteSlot(rec.Recovered, key)
	var r Recovered
	if err := json.Unmarshal(raw, &r); err != nil {
		return Recovered{}, false
	}
	return r, true
}
