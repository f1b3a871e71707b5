package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	err := New("TEST_CODE", "something broke", http.StatusBadRequest)
	if err.Error() != "something broke" {
		t.Fatalf("unexpected message: %s", err.Error())
	}

	inner := errors.New("db down")
	withInternal := err.WithInternal(inner)
	if withInternal.Error() != "something broke: db down" {
		t.Fatalf("unexpected message: %s", withInternal.Error())
	}
	if !errors.Is(withInternal, inner) {
		t.Fatal("expected Unwrap to expose internal error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Fatal("expected nil for nil input")
	}

	appErr := FromError(ErrNotFound)
	if appErr != ErrNotFound {
		t.Fatal("expected AppError passthrough")
	}

	wrapped := fmt.Errorf("handler: %w", ErrForbidden)
	if FromError(wrapped) != ErrForbidden {
		t.Fatal("expected wrapped AppError to be unwrapped")
	}

	generic := FromError(errors.New("boom"))
	if generic.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server error, got %s", generic.Code)
	}
	if generic.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", generic.StatusCode)
	}
}

func TestWrap(t *testing.T) {
	inner := errors.New("socket closed")
	err := Wrap(inner, "failed to reach store")

	if err.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
	if !errors.Is(err, inner) {
		t.Fatal("expected wrapped error to match inner")
	}
}
