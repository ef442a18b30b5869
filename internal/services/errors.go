package services

import (
	"errors"
	"fmt"
	"strings"

	"shopfront/internal/apiclient"
)

// Messages shown to the user for the auth failures that have a fixed wording.
const (
	MsgBadCreds       = "Invalid email or password"
	MsgSessionExpired = "Your session has expired. Please login again."
)

var (
	ErrBadCreds       = errors.New("invalid email or password")
	ErrSessionExpired = errors.New("session expired")
	ErrCorruptSlot    = errors.New("stored data was unreadable and has been reset")
	ErrWrongStep      = errors.New("registration is not at that step")
	ErrAnonymous      = errors.New("no session token")
)

// ValidationError is a local input failure caught before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CorruptSlotError names the slots that held malformed data. It matches ErrCorruptSlot.
type CorruptSlotError struct {
	Slots []string
	Cause error
}

func (e *CorruptSlotError) Error() string {
	return fmt.Sprintf("corrupt storage slot(s) %s: %v", strings.Join(e.Slots, ","), e.Cause)
}

func (e *CorruptSlotError) Is(target error) bool { return target == ErrCorruptSlot }

func (e *CorruptSlotError) Unwrap() error { return e.Cause }

// RemoteError is an API failure reduced to the message the user should see.
type RemoteError struct {
	Message string
	Err     error
}

func (e *RemoteError) Error() string { return e.Message + ": " + e.Err.Error() }

func (e *RemoteError) Unwrap() error { return e.Err }

// remoteFailure prefers the server's own message over the fallback.
func remoteFailure(err error, fallback string) error {
	msg := apiclient.MessageOf(err)
	if msg == "" {
		msg = fallback
	}
	return &RemoteError{Message: msg, Err: err}
}

// UserMessage is the text to show for err in a toast or inline alert.
func UserMessage(err error) string {
	var ve *ValidationError
	var re *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrBadCreds):
		return MsgBadCreds
	case errors.Is(err, ErrSessionExpired):
		return MsgSessionExpired
	case errors.Is(err, ErrAnonymous):
		return "Please log in to continue."
	case errors.Is(err, ErrWrongStep):
		return "Please complete the current registration step first."
	case errors.Is(err, ErrCorruptSlot):
		return "Some saved data could not be read and has been reset."
	case errors.As(err, &re):
		return re.Message
	}
	return "An error occurred. Please try again."
}
