package sagemaker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Kind classifies a control plane error by whether retrying can help
type Kind int

const (
	// KindTransient errors may succeed on the next attempt
	KindTransient Kind = iota
	// KindNotFound means the named resource does not exist
	KindNotFound
	// KindTerminal errors will not go away by retrying
	KindTerminal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindTerminal:
		return "terminal"
	default:
		return "transient"
	}
}

// Error wraps a failed control plane operation
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Terminal reports whether retrying the operation is pointless
func (e *Error) Terminal() bool {
	return e.Kind != KindTransient
}

var notFoundCodes = map[string]bool{
	"ResourceNotFound":          true,
	"ResourceNotFoundException": true,
	"NoSuchEntity":              true,
	"NoSuchBucket":              true,
	"NotFound":                  true,
}

var terminalCodes = map[string]bool{
	"AccessDenied":                   true,
	"AccessDeniedException":          true,
	"UnrecognizedClientException":    true,
	"InvalidClientTokenId":           true,
	"ExpiredTokenException":          true,
	"ValidationException":            true,
	"ValidationError":                true,
	"InvalidParameterValue":          true,
	"InvalidParameterValueException": true,
	"ResourceLimitExceeded":          true,
	"ResourceInUse":                  true,
}

// Classify maps an error to a Kind. Errors that carry no API code, such as
// network failures and i/o timeouts, are transient. Only cancellation is
// terminal; a deadline of the caller's context is seen through ctx.Err().
func Classify(err error) Kind {
	if err == nil {
		return KindTransient
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindTerminal
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return KindTransient
	}

	code := apiErr.ErrorCode()
	switch {
	case notFoundCodes[code]:
		return KindNotFound
	case code == "ValidationException" && strings.HasPrefix(apiErr.ErrorMessage(), "Could not find"):
		return KindNotFound
	case terminalCodes[code]:
		return KindTerminal
	default:
		return KindTransient
	}
}

// IsNotFound reports whether err means the resource does not exist
func IsNotFound(err error) bool {
	return err != nil && Classify(err) == KindNotFound
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: Classify(err), Err: err}
}
