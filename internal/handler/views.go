package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/paths"
	"github.com/boddenberg/pay-selfservice-go/internal/service"
	"github.com/boddenberg/pay-selfservice-go/internal/validation"

	"github.com/guregu/null/v5"
)

//go:embed templates
var templateFS embed.FS

// page is the data every template receives.
type page struct {
	Title       string
	CSRFToken   string
	User        *domain.User
	Service     *domain.Service
	Account     *service.AccountContext
	Flash       []string
	Errors      []validation.Error
	FieldErrors map[string]string
	Values      map[string]string
	Data        any
}

// Value returns the submitted or stored value of a form field.
func (p *page) Value(field string) string {
	return p.Values[field]
}

// formField is one input as the "input" and "textarea" templates render it.
type formField struct {
	Name  string
	Label string
	Value string
	Error string
}

// Field returns a form field with its current value and error.
func (p *page) Field(name, label string) formField {
	return formField{Name: name, Label: label, Value: p.Values[name], Error: p.FieldErrors[name]}
}

// views holds one parsed template set per page, each sharing the layout.
type views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"path":        paths.FormattedPathFor,
	"accountPath": accountPath,
	"servicePath": paths.ServicePath,
	"pounds":      pounds,
	"date":        formatDate,
	"join":        strings.Join,
	"has":         contains,
	"pageQuery":   pageQuery,
}

func newViews() (*views, error) {
	base, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	v := &views{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		v.pages[strings.TrimSuffix(path.Base(f), ".html")] = t
	}
	return v, nil
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (v *views) render(w http.ResponseWriter, status int, name string, p *page) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func accountPath(ac *service.AccountContext, sub string, values ...string) string {
	return paths.AccountPath(ac.ServiceExternalID(), string(ac.Account.Type), sub, values...)
}

func pounds(v any) string {
	switch n := v.(type) {
	case int64:
		return "£" + domain.PenceToPounds(n)
	case int:
		return "£" + domain.PenceToPounds(int64(n))
	case null.Int:
		if !n.Valid {
			return ""
		}
		return "£" + domain.PenceToPounds(n.Int64)
	}
	return ""
}

func formatDate(v any) string {
	const layout = "2 Jan 2006 15:04:05"
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(layout)
	case null.Time:
		if !t.Valid {
			return ""
		}
		return t.Time.UTC().Format(layout)
	}
	return ""
}

// pageQuery keeps the list filters of q when linking to another page.
func pageQuery(q url.Values, n int) string {
	next := url.Values{}
	for k, v := range q {
		next[k] = v
	}
	next.Set("page", strconv.Itoa(n))
	return "?" + next.Encode()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
