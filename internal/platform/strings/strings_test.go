package strings

import (
	"slices"
	"testing"

	"listingsync/internal/platform/testkit"
)

func TestIfEmpty(t *testing.T) {
	def := []string{"GET", "POST"}
	if got := IfEmpty(nil, def); !slices.Equal(got, def) {
		t.Fatalf("nil input: got %v", got)
	}
	if got := IfEmpty([]string{}, def); !slices.Equal(got, def) {
		t.Fatalf("empty input: got %v", got)
	}
	if got := IfEmpty([]string{"PUT"}, def); !slices.Equal(got, []string{"PUT"}) {
		t.Fatalf("set input: got %v", got)
	}
}

func TestMustString(t *testing.T) {
	if got := MustString("meta", "name"); got != "meta" {
		t.Fatalf("got %q", got)
	}
	testkit.MustPanic(t, func() { MustString(" \t", "module name") })
}

func TestMustPrefix(t *testing.T) {
	cases := []struct{ in, want string }{
		{"runs", "/runs"},
		{"/runs", "/runs"},
		{"/runs/", "/runs"},
		{" //meta// ", "/meta"},
		{"api/v1", "/api/v1"},
	}
	for _, tc := range cases {
		if got := MustPrefix(tc.in); got != tc.want {
			t.Fatalf("MustPrefix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	for _, in := range []string{"", "/", " / "} {
		testkit.MustPanic(t, func() { MustPrefix(in) })
	}
}
