package guide

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. It is logged and exposed as error_kind;
// the HTTP status is the same for every kind.
type Kind string

const (
	KindGeneration Kind = "generation"
	KindSynthesis  Kind = "synthesis"
	KindTimeout    Kind = "timeout"
	KindInternal   Kind = "internal"
	// KindInput is used by the HTTP layer for undecodable bodies. The pipeline
	// itself never rejects input.
	KindInput Kind = "input"
)

// Error is returned by every failing pipeline run.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind, defaulting to internal for errors that did
// not come from the pipeline.
func KindOf(err error) Kind {
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr.Kind
	}
	return KindInternal
}

// classify wraps an adapter failure. A run whose deadline expired is reported
// as a timeout regardless of which stage noticed it.
func classify(ctx context.Context, kind Kind, stage string, err error) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: fmt.Errorf("%s timed out: %w", stage, err)}
	}
	return &Error{Kind: kind, Err: fmt.Errorf("%s failed: %w", stage, err)}
}
