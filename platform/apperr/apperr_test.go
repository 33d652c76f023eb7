package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapsKinds(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{BadRequest("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{Forbidden("x"), http.StatusForbidden},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Unavailable("x"), http.StatusServiceUnavailable},
		{Internal("x"), http.StatusInternalServerError},
		{New(KindUnknown, "x"), http.StatusBadRequest},
	}
	for _, c := range cases {
		if got := c.err.HTTPStatus(); got != c.want {
			t.Fatalf("kind %d mapped to %d, want %d", c.err.Kind, got, c.want)
		}
	}
}

func TestGetKindWalksWrappedChains(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Conflict("duplicate lead"))
	if GetKind(wrapped) != KindConflict {
		t.Fatalf("expected conflict kind, got %d", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected unknown kind for plain errors")
	}
	if !Is(wrapped, KindConflict) {
		t.Fatal("expected Is to match the wrapped kind")
	}
}

func TestErrorStringIncludesOp(t *testing.T) {
	err := NotFound("tenant not found").WithOp("tenant.ByID")
	if err.Error() != "tenant.ByID: tenant not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindUnavailable, "graph api unreachable", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected the cause reachable via errors.Is")
	}
}
