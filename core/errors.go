package core

import (
	"errors"
	"fmt"
)

// Error kinds raised at the catalogue boundary. Check them with errors.Is.
var (
	// ErrRequestNotFound - no definition, version or variant matches a requirement
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidRequirement - the requirement string is malformed
	ErrInvalidRequirement = errors.New("invalid requirement")

	// ErrInvalidVersion - a version or specifier is malformed
	ErrInvalidVersion = errors.New("invalid version")

	// ErrNamespaceAmbiguous - a bare name matches several namespaces and no default could be guessed
	ErrNamespaceAmbiguous = fmt.Errorf("%w: ambiguous namespace", ErrRequestNotFound)

	// ErrDuplicateDefinition - two definitions share the same identity
	ErrDuplicateDefinition = errors.New("duplicate definition")
)

// RequestError describes a requirement the catalogue could not serve.
type RequestError struct {
	// Requirement is the requirement as written
	Requirement string

	// Message is the detailed reason
	Message string

	// Err is the error kind (ErrRequestNotFound, ErrNamespaceAmbiguous, ...)
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Requirement, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Requirement, e.Message)
}

// Unwrap returns the error kind.
func (e *RequestError) Unwrap() error {
	return e.Err
}

func newRequestError(req Requirement, kind error, format string, args ...any) *RequestError {
	return &RequestError{
		Requirement: req.String(),
		Message:     fmt.Sprintf(format, args...),
		Err:         kind,
	}
}
