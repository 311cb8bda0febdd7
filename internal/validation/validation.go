// Package validation applies per-field rule sets to submitted forms. Every
// field is checked in one pass; within a field a gating rule (required,
// numeric) stops the rules after it when it fails.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// Values is the form lookup a schema reads from. url.Values satisfies it.
type Values interface {
	Get(key string) string
}

// Error is a single field failure, rendered inline and in the page summary.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of applying a schema.
type Result struct {
	Errors []Error `json:"errors"`
}

// Valid reports whether no rule failed.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Summary returns the first message of each failing field in schema order.
func (r Result) Summary() []Error {
	seen := make(map[string]bool, len(r.Errors))
	out := make([]Error, 0, len(r.Errors))
	for _, e := range r.Errors {
		if seen[e.Field] {
			continue
		}
		seen[e.Field] = true
		out = append(out, e)
	}
	return out
}

// FieldErrors returns the first message per field, for inline display.
func (r Result) FieldErrors() map[string]string {
	m := make(map[string]string, len(r.Errors))
	for _, e := range r.Summary() {
		m[e.Field] = e.Message
	}
	return m
}

// Rule checks one value. Rules other than Required pass on empty input so
// optional fields only need the rules for their content.
type Rule struct {
	check   func(string) bool
	message string
	gate    bool
	always  bool
}

// Field binds a form field to its rules.
type Field struct {
	Name  string
	Rules []Rule
}

// Schema is an ordered set of fields.
type Schema []Field

// Validate applies every field's rules to values.
func (s Schema) Validate(values Values) Result {
	var res Result
	for _, f := range s {
		v := strings.TrimSpace(values.Get(f.Name))
		for _, r := range f.Rules {
			if v == "" && !r.always {
				break
			}
			if r.check(v) {
				continue
			}
			res.Errors = append(res.Errors, Error{Field: f.Name, Message: r.message})
			if r.gate {
				break
			}
		}
	}
	return res
}

// Required fails on empty input and stops further rules for the field.
func Required(message string) Rule {
	return Rule{check: func(v string) bool { return v != "" }, message: message, gate: true, always: true}
}

// MaxLength fails when the value has more than n characters.
func MaxLength(n int, message string) Rule {
	return Rule{check: func(v string) bool { return utf8.RuneCountInString(v) <= n }, message: message}
}

// Amount fails unless the value is pounds with at most two decimal places.
// It gates AmountRange.
func Amount(message string) Rule {
	return Rule{check: isAmount, message: message, gate: true}
}

// AmountRange fails when the pounds value falls outside [min, max] pence.
func AmountRange(minPence, maxPence int64, message string) Rule {
	lo, hi := decimal.New(minPence, -2), decimal.New(maxPence, -2)
	return Rule{
		check: func(v string) bool {
			d, err := parseAmount(v)
			if err != nil {
				return false
			}
			return d.GreaterThanOrEqual(lo) && d.LessThanOrEqual(hi)
		},
		message: message,
	}
}

// OneOf fails unless the value is one of allowed.
func OneOf(allowed []string, message string) Rule {
	return Rule{
		check: func(v string) bool {
			for _, a := range allowed {
				if v == a {
					return true
				}
			}
			return false
		},
		message: message,
	}
}

// Matches fails unless re matches the value.
func Matches(re *regexp.Regexp, message string) Rule {
	return Rule{check: re.MatchString, message: message}
}

// Email fails unless the value is an email address.
func Email(message string) Rule {
	return Rule{check: func(v string) bool { return validate.Var(v, "email") == nil }, message: message}
}

// HTTPSURL fails unless the value is an absolute https URL.
func HTTPSURL(message string) Rule {
	return Rule{check: func(v string) bool { return validate.Var(v, "url,startswith=https://") == nil }, message: message}
}

// Func wraps an arbitrary check.
func Func(check func(string) bool, message string) Rule {
	return Rule{check: check, message: message}
}

var amountPattern = regexp.MustCompile(`^£?[0-9][0-9,]*(\.[0-9]{1,2})?$`)

func isAmount(v string) bool {
	if !amountPattern.MatchString(v) {
		return false
	}
	_, err := parseAmount(v)
	return err == nil
}

func parseAmount(v string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimPrefix(v, "£"), ",", "")
	return decimal.NewFromString(s)
}
