package paths_test

import (
	"testing"

	"github.com/boddenberg/pay-selfservice-go/internal/paths"
)

func TestFormattedPathFor(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   []string
		want     string
	}{
		{"all values", "/foo/:a/bar/:b", []string{"x", "y"}, "/foo/x/bar/y"},
		{"fewer values", "/foo/:a/bar/:b", []string{"x"}, "/foo/x/bar/:b"},
		{"no values", "/foo/:a", nil, "/foo/:a"},
		{"positional not by name", "/:b/:a", []string{"first", "second"}, "/first/second"},
		{"slash escaped", "/foo/:a", []string{"a/b"}, "/foo/a%2Fb"},
		{"non ascii escaped", "/foo/:a", []string{"café"}, "/foo/caf%C3%A9"},
		{"reserved characters escaped", "/foo/:a", []string{"a:b@c+d,e;f=g$h&i"}, "/foo/a%3Ab%40c%2Bd%2Ce%3Bf%3Dg%24h%26i"},
		{"unreserved marks kept", "/foo/:a", []string{"a-b_c.d!e~f*g'h(i)"}, "/foo/a-b_c.d!e~f*g'h(i)"},
		{"space escaped", "/foo/:a", []string{"a b"}, "/foo/a%20b"},
		{"extra values ignored", "/foo/:a", []string{"x", "y"}, "/foo/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paths.FormattedPathFor(tt.template, tt.values...); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAccountPath(t *testing.T) {
	got := paths.AccountPath("svc-1", "test", paths.APIKeysRevoke, "tok/1")
	want := "/service/svc-1/account/test/api-keys/tok%2F1/revoke"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestServicePath(t *testing.T) {
	got := paths.ServicePath("svc-1", paths.GoLiveOrganisationName)
	want := "/service/svc-1/request-to-go-live/organisation-name"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestChiPattern(t *testing.T) {
	got := paths.ChiPattern(paths.APIKeysChangeName)
	if got != "/api-keys/{tokenLink}/change-name" {
		t.Errorf("unexpected pattern %q", got)
	}
}
