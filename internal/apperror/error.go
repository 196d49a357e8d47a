// Package apperror holds the error kinds the product service reports to its callers.
package apperror

import "errors"

// Kind identifies which of the known failure classes an Error belongs to.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInsert
)

const (
	defaultNotFoundMessage = "Not Found"
	defaultInsertMessage   = "Error inserting document"
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They compare by Kind only.
var (
	ErrNotFound = &Error{Kind: KindNotFound, Message: defaultNotFoundMessage}
	ErrInsert   = &Error{Kind: KindInsert, Message: defaultInsertMessage}
)

// Error is a tagged service error. Message is always human readable; Err, when set,
// is the underlying cause reported by the store.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// NotFound builds a not-found error. An empty message falls back to "Not Found".
func NotFound(message string) *Error {
	if message == "" {
		message = defaultNotFoundMessage
	}
	return &Error{Kind: KindNotFound, Message: message}
}

// Insert builds an insert failure carrying the store's cause.
// An empty message falls back to "Error inserting document".
func Insert(message string, cause error) *Error {
	if message == "" {
		message = defaultInsertMessage
	}
	return &Error{Kind: KindInsert, Message: message, Err: cause}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0 when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
