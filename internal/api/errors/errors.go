// Package errors provides error handling and HTTP status code mapping.
package errors

import (
	"errors"
	"net/http"

	"github.com/remiblancher/private-ca/internal/api/dto"
	"github.com/remiblancher/private-ca/internal/ca"
	"github.com/remiblancher/private-ca/internal/extensions"
	"github.com/remiblancher/private-ca/internal/keys"
	"github.com/remiblancher/private-ca/internal/policy"
	"github.com/remiblancher/private-ca/internal/subject"
)

// Error codes for API responses.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeCANotFound         = "CA_NOT_FOUND"
	CodeCAExists           = "CA_ALREADY_EXISTS"
	CodeCAExpired          = "CA_EXPIRED"
	CodeCertNotFound       = "CERT_NOT_FOUND"
	CodeInvalidCSR         = "INVALID_CSR"
	CodePolicyViolation    = "POLICY_VIOLATION"
	CodePassphraseRequired = "PASSPHRASE_REQUIRED"
	CodeDecryptionFailed   = "DECRYPTION_FAILED"
)

// statusMappings orders matters: the first matching sentinel wins.
var statusMappings = []struct {
	target error
	status int
	code   string
}{
	{ca.ErrCANotFound, http.StatusNotFound, CodeCANotFound},
	{ca.ErrCertNotFound, http.StatusNotFound, CodeCertNotFound},
	{ca.ErrCAExists, http.StatusConflict, CodeCAExists},
	{ca.ErrCAExpired, http.StatusGone, CodeCAExpired},
	{ca.ErrUnknownCSRFormat, http.StatusBadRequest, CodeInvalidCSR},
	{ca.ErrInvalidCSR, http.StatusBadRequest, CodeInvalidCSR},
	{ca.ErrMissingIdentity, http.StatusUnprocessableEntity, CodeValidation},
	{subject.ErrInvalidSubjectKey, http.StatusBadRequest, CodeValidation},
	{extensions.ErrUnknownValue, http.StatusBadRequest, CodeValidation},
	{extensions.ErrInvalidNameConstraint, http.StatusBadRequest, CodeValidation},
	{extensions.ErrCommonNameNotDNSName, http.StatusUnprocessableEntity, CodeValidation},
	{keys.ErrKeySize, http.StatusBadRequest, CodeValidation},
	{keys.ErrUnknownCurve, http.StatusBadRequest, CodeValidation},
	{keys.ErrUnknownAlgorithm, http.StatusBadRequest, CodeValidation},
	{keys.ErrPasswordRequired, http.StatusUnauthorized, CodePassphraseRequired},
	{keys.ErrDecryptionFailed, http.StatusForbidden, CodeDecryptionFailed},
	{policy.ErrPathlenRestriction, http.StatusUnprocessableEntity, CodePolicyViolation},
	{policy.ErrRootCACRLNotAllowed, http.StatusUnprocessableEntity, CodePolicyViolation},
	{policy.ErrRootCAOCSPNotAllowed, http.StatusUnprocessableEntity, CodePolicyViolation},
	{policy.ErrExpiryExceedsIssuer, http.StatusUnprocessableEntity, CodePolicyViolation},
}

// MapError maps an internal error to an HTTP status code and APIError.
func MapError(err error) (int, *dto.APIError) {
	if err == nil {
		return http.StatusOK, nil
	}

	for _, m := range statusMappings {
		if errors.Is(err, m.target) {
			return m.status, &dto.APIError{
				Code:    m.code,
				Message: err.Error(),
			}
		}
	}

	// A CAError carries its operation context into the response.
	var caErr *ca.CAError
	if errors.As(err, &caErr) {
		details := map[string]string{"operation": caErr.Op}
		if caErr.Serial != "" {
			details["serial"] = caErr.Serial
		}
		return http.StatusInternalServerError, &dto.APIError{
			Code:    CodeInternal,
			Message: caErr.Error(),
			Details: details,
		}
	}

	return http.StatusInternalServerError, &dto.APIError{
		Code:    CodeInternal,
		Message: "An internal error occurred",
	}
}

// NewBadRequest creates a bad request error.
func NewBadRequest(message string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeInvalidRequest,
		Message: message,
	}
}

// NewNotFound creates a not found error.
func NewNotFound(resource, id string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeNotFound,
		Message: resource + " not found",
		Details: map[string]string{"id": id},
	}
}
