package apiclient

import (
	"errors"
	"fmt"

	"reqdesk/internal/domain"
)

// Kind classifies why a call failed.
type Kind int

const (
	// KindTransport covers network failures, timeouts and cancellation.
	KindTransport Kind = iota + 1
	// KindServer is an HTTP status >= 400.
	KindServer
	// KindDecode means the response body was not the expected envelope.
	KindDecode
	// KindInvalid means the call was refused before any request was sent.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is the normalized failure every call returns.
type Error struct {
	Kind       Kind
	StatusCode int
	// Message is the user-facing text: the server's "message" field, or the
	// transport error text. Empty when neither exists.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s error: status %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Invalid wraps a pre-request failure such as a missing identifier or a
// payload that did not validate.
func Invalid(err error) *Error {
	msg := err.Error()
	var verr *domain.ValidationError
	if errors.As(err, &verr) && verr.Reason != "" {
		msg = verr.Reason
	}
	return &Error{Kind: KindInvalid, Message: msg, Err: err}
}

// MissingID is the Invalid error for an operation called without its id.
func MissingID(what string) *Error {
	return Invalid(&domain.ValidationError{Field: "id", Reason: fmt.Sprintf("%s id is required", what)})
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// Message yields the single string shown to users for err: the server or
// transport message when there is one, fallback otherwise.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) && verr.Reason != "" {
		return verr.Reason
	}
	return fallback
}
