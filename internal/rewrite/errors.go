package rewrite

import (
	"errors"
	"fmt"
)

// Kind classifies rewrite failures so the orchestrator can decide between
// skipping, counting an error, or trying the fallback provider.
type Kind string

const (
	// Transient covers network errors, timeouts, and non-200 provider
	// responses. Worth one fallback attempt, never a loop.
	Transient Kind = "transient"
	// MalformedOutput means the model reply did not parse as JSON.
	MalformedOutput Kind = "malformed_output"
	// Incomplete means the parsed object is missing headline or body.
	Incomplete Kind = "incomplete"
	// QualityReject means the body fell below the minimum word count.
	// A content-quality skip, not an error.
	QualityReject Kind = "quality_reject"
)

// Error is a classified rewrite failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rewrite %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("rewrite %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the rewrite failure kind of err, or "" when err is not a
// rewrite error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
