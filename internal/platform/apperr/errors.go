// Package apperr defines the failure taxonomy shared by every provider-facing call.
package apperr

import "errors"

type Kind int

const (
	KindCredential Kind = iota + 1
	KindInteractionCancelled
	KindUnauthorized
	KindValidation
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindInteractionCancelled:
		return "interaction cancelled"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error carries a Kind plus an optional user-facing message and cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when the target carries no message,
// so errors.Is(err, ErrValidation) works for every validation failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

var (
	ErrCredential           = &Error{Kind: KindCredential}
	ErrInteractionCancelled = &Error{Kind: KindInteractionCancelled}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrTransport            = &Error{Kind: KindTransport}
)

func Credential(msg string, cause error) error   { return &Error{Kind: KindCredential, Msg: msg, Err: cause} }
func Unauthorized(msg string, cause error) error { return &Error{Kind: KindUnauthorized, Msg: msg, Err: cause} }
func Validation(msg string) error                { return &Error{Kind: KindValidation, Msg: msg} }
func Transport(msg string, cause error) error    { return &Error{Kind: KindTransport, Msg: msg, Err: cause} }

func Cancelled(cause error) error {
	return &Error{Kind: KindInteractionCancelled, Msg: "sign-in was cancelled", Err: cause}
}

// KindOf reports the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Message returns the text to show the user for err, or fallback when err has none.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
