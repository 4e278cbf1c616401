package faults

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindModelCall, "MODEL_CALL_FAILURE"},
		{KindResponseParse, "RESPONSE_PARSE_FAILURE"},
		{KindImageLoad, "IMAGE_LOAD_FAILURE"},
		{KindGeometryInvariant, "GEOMETRY_INVARIANT_VIOLATION"},
		{KindUnknown, "UNKNOWN"},
		{Kind(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestKindPageFatal(t *testing.T) {
	if !KindImageLoad.PageFatal() {
		t.Error("an unloadable raster must fail the page")
	}
	for _, kind := range []Kind{KindUnknown, KindModelCall, KindResponseParse, KindGeometryInvariant} {
		if kind.PageFatal() {
			t.Errorf("%s should degrade, not fail the page", kind)
		}
	}
}

func TestFailureError(t *testing.T) {
	tests := []struct {
		name    string
		failure *Failure
		want    []string
	}{
		{
			name:    "with page",
			failure: New(KindResponseParse, 3, "truncated after %d records", 2),
			want:    []string{"[RESPONSE_PARSE_FAILURE]", "page 3", "truncated after 2 records"},
		},
		{
			name:    "without page",
			failure: New(KindUnknown, 0, "run cancelled"),
			want:    []string{"[UNKNOWN]", "run cancelled"},
		},
		{
			name:    "wrapped",
			failure: Wrap(KindImageLoad, 7, fmt.Errorf("open page-7.png: no such file"), "page input unavailable"),
			want:    []string{"[IMAGE_LOAD_FAILURE]", "page 7", "page input unavailable", "no such file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.failure.Error()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
		})
	}
}

func TestFailureUnwrap(t *testing.T) {
	underlying := errors.New("connection reset")
	failure := Wrap(KindModelCall, 1, underlying, "vision model call failed")

	if !errors.Is(failure, underlying) {
		t.Error("errors.Is should reach the wrapped error")
	}

	wrapped := fmt.Errorf("page 1: %w", failure)
	var f *Failure
	if !errors.As(wrapped, &f) {
		t.Fatal("errors.As should find the Failure in the chain")
	}
	if f.Kind != KindModelCall {
		t.Errorf("Kind = %v, want KindModelCall", f.Kind)
	}
}

func TestKindOf(t *testing.T) {
	failure := New(KindGeometryInvariant, 4, "corrected box has non-positive area")

	if got := KindOf(fmt.Errorf("discarded: %w", failure)); got != KindGeometryInvariant {
		t.Errorf("KindOf(wrapped failure) = %v, want KindGeometryInvariant", got)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain error) = %v, want KindUnknown", got)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %v, want KindUnknown", got)
	}
}
