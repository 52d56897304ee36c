package domain

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// ErrAuthExpired signals that the provider rejected the user's
// credentials. Callers distinguish it to trigger a re-authentication
// flow instead of a generic failure.
var ErrAuthExpired = errors.New("provider authorization expired")

// ErrTransientProvider marks network/5xx failures. Not retried here;
// retry policy belongs to the caller.
var ErrTransientProvider = errors.New("transient provider error")

// ErrValidation marks malformed caller input, rejected before any I/O.
var ErrValidation = errors.New("invalid request")

// DecodeError wraps a MIME decode failure for a single message. The
// owning sync run logs it and moves on to sibling messages.
type DecodeError struct {
	MessageID string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message %s: %v", e.MessageID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AttachmentError wraps a byte fetch, storage or enrichment failure for
// one attachment. Never fatal to the owning message or send.
type AttachmentError struct {
	Filename string
	Err      error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment %q: %v", e.Filename, e.Err)
}

func (e *AttachmentError) Unwrap() error { return e.Err }

// ClassifyProviderError maps raw provider errors onto the error
// taxonomy: 401 becomes ErrAuthExpired, 5xx becomes
// ErrTransientProvider, anything else passes through unchanged.
func ClassifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401:
			return fmt.Errorf("%w: %v", ErrAuthExpired, err)
		case gerr.Code >= 500:
			return fmt.Errorf("%w: %v", ErrTransientProvider, err)
		}
	}
	return err
}
