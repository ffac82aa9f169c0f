package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeInvalidArgument, http.StatusUnprocessableEntity},
		{ErrorCodeDuplicateKey, http.StatusConflict},
		{ErrorCodeConflict, http.StatusConflict},
		{ErrorCodeRaced, http.StatusConflict},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeMalformed, http.StatusBadRequest},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeTimeout, http.StatusGatewayTimeout},
		{ErrorCodeDB, http.StatusInternalServerError},
		{9999, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestErrorCode_String(t *testing.T) {
	if ErrorCodeMalformed.String() != "malformed" || ErrorCodeUnavailable.String() != "unavailable" {
		t.Fatalf("unexpected names %q %q", ErrorCodeMalformed, ErrorCodeUnavailable)
	}
	if got := ErrorCode(999).String(); got != "code(999)" {
		t.Fatalf("out of range name = %q", got)
	}
}

func TestMalformedCarriesField(t *testing.T) {
	err := Malformed("title", "record has no title, source id or coordinates")
	wrapped := fmt.Errorf("normalize: %w", err)

	if CodeOf(wrapped) != ErrorCodeMalformed {
		t.Fatalf("code = %v", CodeOf(wrapped))
	}
	if FieldOf(wrapped) != "title" {
		t.Fatalf("field = %q", FieldOf(wrapped))
	}
	w := WireFrom(wrapped)
	if w.Field != "title" || w.Code != ErrorCodeMalformed {
		t.Fatalf("wire = %+v", w)
	}
}

func TestCopyOnWriteMutators(t *testing.T) {
	base := New(ErrorCodeConflict, "link owned elsewhere")
	withOp := WithOp(base, "catalog.link")
	if e, _ := As(base); e.Op() != "" {
		t.Fatalf("base mutated: %q", e.Op())
	}
	if e, _ := As(withOp); e.Op() != "catalog.link" {
		t.Fatalf("op = %q", e.Op())
	}
	foreign := stderrs.New("plain")
	if WithField(foreign, "x") != foreign {
		t.Fatalf("foreign errors pass through unchanged")
	}
}

func TestRootAndWrap(t *testing.T) {
	cause := stderrs.New("dial tcp: refused")
	err := Wrap(Wrap(cause, ErrorCodeDB, "inner"), ErrorCodeUnavailable, "outer")
	if Root(err) != cause {
		t.Fatalf("Root = %v", Root(err))
	}
	if CodeOf(err) != ErrorCodeUnavailable {
		t.Fatalf("outermost code wins, got %v", CodeOf(err))
	}
	if got := err.Error(); got != "outer: inner: dial tcp: refused" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"raced", Racedf("lost race"), true},
		{"bare deadline", context.DeadlineExceeded, true},
		{"cancel", context.Canceled, false},
		{"conflict", Conflictf("owned elsewhere"), false},
		{"malformed", Malformed("price", "bad"), false},
		{"nil", nil, false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Fatalf("%s: Retryable = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestHTTPStatusAndWire(t *testing.T) {
	err := NotFoundf("run %s", "abc")
	if s, w := HTTPStatus(err), WireFrom(err); s != http.StatusNotFound || w.Message != "run abc" {
		t.Fatalf("status %d wire %+v", s, w)
	}
	if w := WireFrom(nil); w != (Wire{}) {
		t.Fatalf("nil wire %+v", w)
	}
}
