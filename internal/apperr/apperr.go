// Package apperr defines the error taxonomy shared by services and workers.
// Adapter and transport failures are converted into these kinds at the service
// boundary; raw provider errors never cross it.
package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies an error for callers. Kinds are stable API; messages are not.
type Kind string

const (
	// KindValidation marks malformed or missing caller input.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindAuthInvalid marks bad credentials or an invalid/expired one-time code.
	KindAuthInvalid Kind = "AUTH_INVALID"
	// KindRateLimited marks a lockout or send-interval violation.
	KindRateLimited Kind = "RATE_LIMITED"
	// KindPermissionDenied marks a role or group-membership mismatch.
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	// KindOtpRequired marks a missing or expired elevation grant.
	KindOtpRequired Kind = "OTP_REQUIRED"
	// KindNotFound marks an unknown subject or record.
	KindNotFound Kind = "OBJECT_NOT_FOUND"
	// KindDirectory marks a generic directory failure.
	KindDirectory Kind = "AD_ERROR"
	// KindDirectoryPolicy marks a directory failure whose message suggests a
	// password-policy rejection. Best-effort text classification, not a contract.
	KindDirectoryPolicy Kind = "AD_POLICY_VIOLATION"
	// KindDirectoryNonLeaf marks an OU delete rejected because children exist.
	KindDirectoryNonLeaf Kind = "AD_NON_LEAF"
	// KindConfig marks incomplete delivery configuration.
	KindConfig Kind = "CONFIG_ERROR"
	// KindGateway marks a failed transport call or non-success provider code.
	KindGateway Kind = "GATEWAY_ERROR"
)

// Error is a taxonomy-tagged error. Callers switch on Kind instead of
// matching provider-specific types.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	// LockedUntil is set on KindRateLimited lockouts so callers can report it.
	LockedUntil *time.Time
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a taxonomy error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns a taxonomy error wrapping err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the taxonomy kind of err, or "" if err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FromDirectory converts a raw directory error into the taxonomy. The policy
// and non-leaf sub-kinds come from substring matches on the provider message;
// the directory exposes no structured code for either.
func FromDirectory(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "CANT_ON_NON_LEAF"):
		return Wrap(KindDirectoryNonLeaf, "object has children", err)
	case strings.Contains(lower, "password"):
		return Wrap(KindDirectoryPolicy, "password rejected by directory policy", err)
	default:
		return Wrap(KindDirectory, "directory operation failed", err)
	}
}
