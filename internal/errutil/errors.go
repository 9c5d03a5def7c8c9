// Package errutil holds the error taxonomy shared by the auth service, the
// chat proxy and the HTTP layer. Every client-facing failure is an oops error
// carrying one of the codes below; anything without a known code is treated
// as an internal failure.
package errutil

import (
	"github.com/samber/oops"
)

// Error codes.
const (
	CodeValidation         = "VALIDATION"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidResetToken  = "AUTH_RESET_TOKEN_INVALID"
	CodeInvalidAuthToken   = "AUTH_TOKEN_INVALID"
	CodeNotFound           = "NOT_FOUND"
	CodeExternalService    = "EXTERNAL_SERVICE"
)

// Validation reports a missing or malformed request field.
func Validation(msg string) error {
	return oops.Code(CodeValidation).Errorf("%s", msg)
}

// Conflict reports an attempt to create something that already exists.
func Conflict(msg string) error {
	return oops.Code(CodeConflict).Errorf("%s", msg)
}

// NotFound reports an unknown entity.
func NotFound(msg string) error {
	return oops.Code(CodeNotFound).Errorf("%s", msg)
}

// Auth reports an authentication failure. code must be one of the AUTH_* codes.
func Auth(code, msg string) error {
	return oops.Code(code).Errorf("%s", msg)
}

// ExternalService wraps a failure of a downstream dependency (mail, chat API).
func ExternalService(service string, err error) error {
	return oops.Code(CodeExternalService).
		With("service", service).
		Wrap(err)
}

// Code returns the code carried by err, or "" when err carries none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// IsPublic reports whether the message of err is safe to return to a client.
func IsPublic(err error) bool {
	switch Code(err) {
	case CodeValidation, CodeConflict, CodeNotFound,
		CodeInvalidCredentials, CodeInvalidResetToken, CodeInvalidAuthToken:
		return true
	}
	return false
}
