package services

import "errors"

// ErrorKind classifies pipeline failures
type ErrorKind string

const (
	// ErrValidation is bad caller input; the caller may retry with corrected input
	ErrValidation ErrorKind = "validation"
	// ErrUpstream is a failed external dependency such as the weather provider
	ErrUpstream ErrorKind = "upstream"
	// ErrInference is a failure inside the classifier for one request
	ErrInference ErrorKind = "inference"
)

// AdvisoryError is the single error shape returned by the advisory pipeline
type AdvisoryError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *AdvisoryError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *AdvisoryError) Unwrap() error {
	return e.Err
}

func validationError(reason string, err error) *AdvisoryError {
	return &AdvisoryError{Kind: ErrValidation, Reason: reason, Err: err}
}

// IsValidation reports whether err is a caller input error
func IsValidation(err error) bool {
	var advErr *AdvisoryError
	return errors.As(err, &advErr) && advErr.Kind == ErrValidation
}

// ChatError is a failed chat turn. The session survives it.
type ChatError struct {
	SessionID string
	Err       error
}

func (e *ChatError) Error() string {
	return e.Err.Error()
}

func (e *ChatError) Unwrap() error {
	return e.Err
}
