package ca

import (
	"errors"
	"fmt"
)

// CAError represents a Certificate Authority operation error with structured context.
// It supports errors.Is() and errors.As() for improved error handling.
type CAError struct {
	Op     string // Operation: "create", "load", "issue"
	Serial string // Certificate serial number (if applicable)
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *CAError) Error() string {
	if e.Serial != "" {
		return fmt.Sprintf("ca %s [%s]: %v", e.Op, e.Serial, e.Err)
	}
	return fmt.Sprintf("ca %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CAError) Unwrap() error { return e.Err }

// NewCAError creates a new CAError with the given operation and error.
func NewCAError(op string, err error) *CAError {
	return &CAError{Op: op, Err: err}
}

// NewCAErrorWithSerial creates a new CAError with operation, serial, and error.
func NewCAErrorWithSerial(op, serial string, err error) *CAError {
	return &CAError{Op: op, Serial: serial, Err: err}
}

// Sentinel errors for CA operations.
// Use errors.Is() to check for these errors through the error chain.
var (
	// ErrCANotFound indicates the requested CA does not exist.
	ErrCANotFound = errors.New("CA not found")

	// ErrCAExists indicates a CA with the same name already exists.
	ErrCAExists = errors.New("CA already exists")

	// ErrCertNotFound indicates the requested certificate was not found.
	ErrCertNotFound = errors.New("certificate not found")

	// ErrInvalidCSR indicates the certificate signing request is invalid.
	ErrInvalidCSR = errors.New("invalid CSR")

	// ErrUnknownCSRFormat indicates an unsupported CSR encoding was requested.
	ErrUnknownCSRFormat = errors.New("unknown CSR format")

	// ErrMissingIdentity indicates neither a subject common name nor a
	// subject alternative name was given.
	ErrMissingIdentity = errors.New("certificate requires at least a common name or a subject alternative name")

	// ErrCAExpired indicates the issuing CA certificate has expired.
	ErrCAExpired = errors.New("CA certificate has expired")
)
