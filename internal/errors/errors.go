// internal/errors/errors.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Domain sentinels shared by the ledger, dispatch and realtime layers.
// Handlers (HTTP and socket) surface them via Status/Reason below.
var (
	// ErrNotAParticipant: the caller is not one of a match's two dogs.
	ErrNotAParticipant = errors.New("not a participant of this match")

	// ErrAlreadyActed: the acting dog's slot was already decided.
	ErrAlreadyActed = errors.New("already acted on this match")

	// ErrMatchNotEstablished: messaging attempted on a match that is not
	// mutually accepted, or that has been archived.
	ErrMatchNotEstablished = errors.New("match is not established")

	// ErrAuthenticationFailed: bad or missing bearer token.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrEditWindowClosed: message edit attempted after the allowed window.
	ErrEditWindowClosed = errors.New("edit window has closed")

	// ErrSelfMatch: a dog cannot act on itself.
	ErrSelfMatch = errors.New("cannot match a dog with itself")

	// ErrSameOwner: both dogs of a pair belong to one account.
	ErrSameOwner = errors.New("dogs belong to the same owner")

	// ErrMatchExpired: action attempted on an expired match. Expiry is
	// terminal; the row is never resurrected.
	ErrMatchExpired = errors.New("match has expired")

	// ErrNotFound: requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput: request payload failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

// Status converts domain/infra errors into an HTTP status code.
// Keeps handlers clean by centralizing error mapping.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrAuthenticationFailed):
		return http.StatusUnauthorized

	case errors.Is(err, ErrNotAParticipant):
		return http.StatusForbidden

	case errors.Is(err, ErrAlreadyActed),
		errors.Is(err, ErrMatchExpired):
		return http.StatusConflict

	case errors.Is(err, ErrMatchNotEstablished),
		errors.Is(err, ErrEditWindowClosed),
		errors.Is(err, ErrSelfMatch),
		errors.Is(err, ErrSameOwner),
		errors.Is(err, ErrInvalidInput):
		return http.StatusUnprocessableEntity

	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return 499 // client closed request

	default:
		return http.StatusInternalServerError
	}
}

// Reason returns the human-readable reason carried by realtime error events.
// Internal errors are masked; domain errors pass through verbatim.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	if Status(err) == http.StatusInternalServerError {
		return "internal error"
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound.Error()
	}
	return err.Error()
}

// Invalid wraps a validation message in ErrInvalidInput.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
