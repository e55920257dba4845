package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"menumatch/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "describe", "chat completion", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"describe", "chat completion", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestFailureKindMapping(t *testing.T) {
	tests := []struct {
		err       error
		kind      string
		retryable bool
	}{
		{services.Wrap(services.ErrValidation, "tag", "decode", "bad body", nil), services.KindValidation, false},
		{services.Wrap(services.ErrConfiguration, "describe", "", "missing key", nil), services.KindConfiguration, false},
		{fmt.Errorf("outer: %w", services.Wrap(services.ErrNotFound, "image", "read", "", nil)), services.KindNotFound, false},
		{services.Wrap(services.ErrTimeout, "describe", "", "", nil), services.KindTimeout, true},
		{services.Wrap(services.ErrExternalTool, "tag", "", "", nil), services.KindExternal, true},
		{errors.New("plain"), services.KindTransient, true},
	}
	for _, tt := range tests {
		if got := services.FailureKind(tt.err); got != tt.kind {
			t.Fatalf("FailureKind(%v) = %q, want %q", tt.err, got, tt.kind)
		}
		if got := services.Retryable(tt.err); got != tt.retryable {
			t.Fatalf("Retryable(%v) = %v, want %v", tt.err, got, tt.retryable)
		}
	}
	if services.Retryable(nil) {
		t.Fatal("nil error should not be retryable")
	}
}
