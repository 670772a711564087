package donortools

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks failures to reach the API or read its response.
	ErrTransport = errors.New("donortools transport failure")
	// ErrMalformedResponse marks responses that are not well-formed XML.
	ErrMalformedResponse = errors.New("donortools returned malformed XML")
	// ErrMissingField marks a required element that is absent or empty.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidField marks an element whose value has the wrong type.
	ErrInvalidField = errors.New("invalid field")
)

// TransportError wraps a connection, timeout or body read failure.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("unable to reach donortools API (%s %s): %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("donortools API error: %s %s returned status %d, body: %s",
		e.Method, e.URL, e.StatusCode, e.Body)
}

// MalformedResponseError is returned when a response body cannot be parsed.
type MalformedResponseError struct {
	Resource string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response for %s: %v", e.Resource, e.Err)
}

func (e *MalformedResponseError) Unwrap() []error { return []error{ErrMalformedResponse, e.Err} }

// FieldError is returned when a record is missing a required element or
// carries a value of the wrong type.
type FieldError struct {
	Resource string
	Record   string // Record identifier or position, when known
	Field    string
	Value    string
	Err      error // ErrMissingField or ErrInvalidField, possibly wrapped
}

func (e *FieldError) Error() string {
	msg := fmt.Sprintf("%s: field %q", e.Resource, e.Field)
	if e.Record != "" {
		msg = fmt.Sprintf("%s record %s: field %q", e.Resource, e.Record, e.Field)
	}
	if e.Value != "" {
		return fmt.Sprintf("%s (value %q): %v", msg, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// PartialSaveError is returned when a persona was created but the donation
// that should reference it could not be saved. The persona is not removed.
type PartialSaveError struct {
	PersonaID string
	Err       error
}

func (e *PartialSaveError) Error() string {
	return fmt.Sprintf("persona %s created but donation was not saved: %v", e.PersonaID, e.Err)
}

func (e *PartialSaveError) Unwrap() error { return e.Err }
