// Package faults defines the failure taxonomy shared by the layout pipeline.
// Failures are classified so the orchestrator can decide whether a page
// degrades gracefully or is marked failed, and so operators can identify
// weak pages from the final status report.
package faults

import (
	"errors"
	"fmt"
	"time"
)

// Kind categorizes a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota

	// KindModelCall covers network errors, timeouts and rate limits on the
	// outbound vision-model call. Retried, then degraded.
	KindModelCall

	// KindResponseParse covers malformed model output. Repaired when
	// possible, otherwise degraded. Never fatal for a page.
	KindResponseParse

	// KindImageLoad covers a missing or corrupt page raster. Fatal for the
	// page only; the document continues with remaining pages.
	KindImageLoad

	// KindGeometryInvariant covers boxes that violate geometric invariants
	// after processing, such as a non-positive area after border correction.
	// The offending box is discarded, not propagated.
	KindGeometryInvariant
)

// String returns the wire name of the failure kind.
func (k Kind) String() string {
	switch k {
	case KindModelCall:
		return "MODEL_CALL_FAILURE"
	case KindResponseParse:
		return "RESPONSE_PARSE_FAILURE"
	case KindImageLoad:
		return "IMAGE_LOAD_FAILURE"
	case KindGeometryInvariant:
		return "GEOMETRY_INVARIANT_VIOLATION"
	default:
		return "UNKNOWN"
	}
}

// PageFatal reports whether a failure of this kind fails the whole page.
// Only an unloadable raster is unrecoverable; everything else degrades.
func (k Kind) PageFatal() bool {
	return k == KindImageLoad
}

// Failure is a classified pipeline error carrying page context.
type Failure struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Page      int       `json:"page,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

// New creates a Failure of the given kind.
func New(kind Kind, page int, format string, args ...any) *Failure {
	return &Failure{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Page:      page,
		Timestamp: time.Now(),
	}
}

// Wrap creates a Failure wrapping an underlying error.
func Wrap(kind Kind, page int, err error, message string) *Failure {
	return &Failure{
		Kind:      kind,
		Message:   message,
		Page:      page,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("[%s] page %d: %s: %v", f.Kind, f.Page, f.Message, f.Err)
	}
	if f.Page > 0 {
		return fmt.Sprintf("[%s] page %d: %s", f.Kind, f.Page, f.Message)
	}
	return fmt.Sprintf("[%s] %s", f.Kind, f.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf extracts the failure kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}
