// Package backend abstracts the text-rewrite model behind a narrow interface
// so the repair engine can run against Vertex AI, OpenAI, or a test double
// without caring which. Transient transport failures are retried here; they
// never consume the pipeline's quality iteration budget.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/googleapi"
)

// Request is one rewrite instruction for the model.
type Request struct {
	// System frames the model's role. Empty means the backend's default.
	System string
	// Prompt carries the instruction and the text to rewrite.
	Prompt string
}

// Generator produces a completion for a request. Implementations must be safe
// for concurrent use; the pipeline fans out across sections.
type Generator interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// UnavailableError wraps the final error after the retry budget is spent.
// Callers treat it as a hard failure for the section, not a quality defect.
type UnavailableError struct {
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsTransient reports whether an error is worth retrying: rate limits,
// server-side 5xx, timeouts, and transport drops. Anything else fails fast.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 429 || gerr.Code >= 500
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
