// Package bumperr classifies the failures of the bump workflow.
// None of the kinds are retried automatically, recovery is re-running the
// command after the environment or the manifest was fixed.
package bumperr

import (
	"errors"
	"fmt"
)

// Kind identifies which responsibility of the workflow caused a failure.
type Kind int

const (
	// KindConfig is returned when the manifest is missing the tracked
	// dependency or its entry is malformed.
	KindConfig Kind = iota + 1
	// KindNetwork is returned when querying the upstream release metadata
	// fails or the upstream has no published release.
	KindNetwork
	// KindTool is returned when an external formatter or lock-resolver
	// invocation fails. The working tree may contain partial edits.
	KindTool
	// KindPublish is returned when a git or review-service operation
	// fails. A branch without a pull request may be left behind.
	KindPublish
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindNetwork:
		return "network error"
	case KindTool:
		return "tool error"
	case KindPublish:
		return "publish error"
	default:
		return fmt.Sprintf("unknown error kind (%d)", int(k))
	}
}

// Error wraps an underlying failure with its workflow classification.
type Error struct {
	Kind Kind
	// Err is the wrapped original error
	Err error
}

func NewConfigError(originalErr error) *Error {
	return &Error{Kind: KindConfig, Err: originalErr}
}

func NewNetworkError(originalErr error) *Error {
	return &Error{Kind: KindNetwork, Err: originalErr}
}

func NewToolError(originalErr error) *Error {
	return &Error{Kind: KindTool, Err: originalErr}
}

func NewPublishError(originalErr error) *Error {
	return &Error{Kind: KindPublish, Err: originalErr}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

// IsKind reports if err or an error in its chain is an *Error of the given
// kind.
func IsKind(err error, kind Kind) bool {
	var bumpErr *Error
	if !errors.As(err, &bumpErr) {
		return false
	}

	return bumpErr.Kind == kind
}
