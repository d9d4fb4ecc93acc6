package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "saving order")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected wrapped error to match cause")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %q", err.Code())
	}
}

func TestAsFindsTypedError(t *testing.T) {
	base := New(CodeNotFound, "order not found")
	wrapped := fmt.Errorf("handler: %w", base)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("unexpected code %q", typed.Code())
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeStateConflict, "cannot pay order"))
	if !IsCode(err, CodeStateConflict) {
		t.Fatal("expected state conflict code")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatal("unexpected not found code")
	}
	if IsCode(nil, CodeNotFound) {
		t.Fatal("nil error should not match any code")
	}
}

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeStateConflict, http.StatusBadRequest},
		{CodePaymentDeclined, http.StatusBadRequest},
		{CodeValidation, http.StatusBadRequest},
		{CodeIdempotency, http.StatusConflict},
		{Code("made_up"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("code %q: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}
