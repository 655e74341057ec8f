package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced by the client core. The stub backend maps them onto
// HTTP statuses; containers store the human-readable message in lastError.
const (
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTicketNotFound     = "TICKET_NOT_FOUND"
	CodeCredentialNotFound = "CREDENTIAL_NOT_FOUND"
	CodeSelfBanForbidden   = "SELF_BAN_FORBIDDEN"
	CodeRemoteFailure      = "REMOTE_FAILURE"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewNotAuthenticated() error {
	return NewDomainError(CodeNotAuthenticated, "authentication required", http.StatusUnauthorized, nil)
}

func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "invalid email or password", http.StatusUnauthorized, nil)
}

func NewTicketNotFound(ticketID string) error {
	return NewDomainError(CodeTicketNotFound, "ticket not found", http.StatusNotFound, map[string]any{"ticketId": ticketID})
}

func NewCredentialNotFound(credentialID string) error {
	return NewDomainError(CodeCredentialNotFound, "credential not found", http.StatusNotFound, map[string]any{"credentialId": credentialID})
}

func NewSelfBanForbidden() error {
	return NewDomainError(CodeSelfBanForbidden, "cannot ban your own account", http.StatusForbidden, nil)
}

// NewRemoteFailure wraps any transport-level or non-2xx failure from the
// external backend.
func NewRemoteFailure(err error) error {
	return &DomainError{
		Code:       CodeRemoteFailure,
		Message:    "remote request failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}
