package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a backend or transport failure into one of a small fixed
// set of categories the UI can react to.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// User-facing messages. The storefront's locale is Spanish; raw backend
// payloads are never surfaced.
const (
	MsgUnauthorized = "Tu sesión ha expirado. Inicia sesión nuevamente."
	MsgForbidden    = "No tienes permisos para realizar esta acción."
	MsgNotFound     = "Recurso no encontrado."
	MsgValidation   = "Los datos enviados no son válidos."
	MsgNetwork      = "Sin conexión. Revisa tu conexión a internet e intenta de nuevo."
	MsgUnknown      = "Ocurrió un error inesperado. Intenta de nuevo."
)

// Error is a classified API failure. Message is safe to show to the user;
// Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the human-readable message for the UI.
func (e *Error) UserMessage() string { return e.Message }

// New builds a classified error with an explicit message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Network wraps a transport-level failure (no HTTP response at all).
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Message: MsgNetwork, Err: err}
}

// FromStatus maps an HTTP status plus the backend-declared message and
// validation details to a classified error.
func FromStatus(status int, backendMsg string, details []string) *Error {
	switch status {
	case http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, Message: MsgUnauthorized, Status: status}
	case http.StatusForbidden:
		return &Error{Kind: KindForbidden, Message: MsgForbidden, Status: status}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Message: MsgNotFound, Status: status}
	case http.StatusBadRequest:
		msg := MsgValidation
		if len(details) > 0 {
			msg = strings.Join(details, "; ")
		} else if backendMsg != "" {
			msg = backendMsg
		}
		return &Error{Kind: KindValidation, Message: msg, Status: status}
	default:
		msg := MsgUnknown
		if backendMsg != "" {
			msg = backendMsg
		}
		return &Error{Kind: KindUnknown, Message: msg, Status: status}
	}
}

// KindOf extracts the classification, KindUnknown when err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// Message returns the user-facing message for any error, falling back to the
// generic one when err was never classified.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return MsgUnknown
}
