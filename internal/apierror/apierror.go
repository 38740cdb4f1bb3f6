// Package apierror provides the typed error model shared by the domain core
// and the HTTP layer. Every failure a caller can act on carries a Kind; the
// handler layer maps kinds to HTTP status codes and returns the message
// verbatim so the panel can show it without translation logic.
package apierror

import "net/http"

// Kind classifies a domain failure machine-readably.
type Kind string

const (
	// KindValidation — malformed or missing input; retryable after fixing the request.
	KindValidation Kind = "validation_error"
	// KindInvalidState — the operation is not legal from the current state.
	KindInvalidState Kind = "invalid_state"
	// KindInvalidTransition — the requested target is not the immediate successor
	// of the current logistics state.
	KindInvalidTransition Kind = "invalid_transition"
	// KindPrecondition — a cross-cutting guard (crédito, retención, factura) blocks
	// the action; retryable once the guard condition is satisfied.
	KindPrecondition Kind = "precondition_failed"
	// KindNotFound — unknown pedido or history entry.
	KindNotFound Kind = "not_found"
	// KindAlreadyClosed — phase close attempted twice (idempotency guard).
	KindAlreadyClosed Kind = "already_closed"
	// KindInternal — unexpected infrastructure failure; details stay server-side.
	KindInternal Kind = "internal_error"

	// HTTP-layer kinds used by the middleware chain, outside the domain mapping.
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindRateLimited  Kind = "rate_limited"
)

// Error is the canonical domain error. It implements the error interface and
// doubles as the JSON envelope for 4xx/5xx responses.
type Error struct {
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string { return e.Detail }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Detail: msg} }

func Validation(msg string) *Error        { return New(KindValidation, msg) }
func InvalidState(msg string) *Error      { return New(KindInvalidState, msg) }
func InvalidTransition(msg string) *Error { return New(KindInvalidTransition, msg) }
func Precondition(msg string) *Error      { return New(KindPrecondition, msg) }
func NotFound(msg string) *Error          { return New(KindNotFound, msg) }
func AlreadyClosed(msg string) *Error     { return New(KindAlreadyClosed, msg) }
func Internal(msg string) *Error          { return New(KindInternal, msg) }
func Unauthorized(msg string) *Error      { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error         { return New(KindForbidden, msg) }
func RateLimited(msg string) *Error       { return New(KindRateLimited, msg) }

// HTTPStatus maps a Kind to the status code the handler layer responds with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindInvalidState, KindInvalidTransition, KindAlreadyClosed:
		return http.StatusConflict
	case KindPrecondition:
		return http.StatusPreconditionFailed
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ValidationFields wraps per-field binding errors from the DTO validator.
type ValidationFields struct {
	Kind   Kind              `json:"kind"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidationFields(fields map[string]string) *ValidationFields {
	return &ValidationFields{Kind: KindValidation, Detail: "Error de validacion", Fields: fields}
}
