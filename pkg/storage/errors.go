package storage

import "fmt"

// Kind enumerates the error taxonomy surfaced by every backend (spec §7).
// Backends map their native driver errors onto one of these at the
// boundary rather than returning stringly-typed errors.
type Kind int

const (
	// KindUnknown is never returned by a backend; it exists so the zero
	// value of Kind is not mistaken for a valid one.
	KindUnknown Kind = iota
	// AlreadyExists: wallet create against an existing wallet.
	AlreadyExists
	// NotFound: wallet open/delete on a missing wallet.
	NotFound
	// ItemNotFound: record addressed by (type, id) absent.
	ItemNotFound
	// ItemAlreadyExists: add of an existing (type, id), or a tag-uniqueness
	// violation encountered while adding.
	ItemAlreadyExists
	// InvalidStructure: malformed JSON, malformed key, empty query group,
	// string operator applied to an encrypted tag.
	InvalidStructure
	// AccessFailed: authentication/authorization failure, or a file-open
	// failure consistent with a corrupt or wrongly-keyed file.
	AccessFailed
	// IOError: unexpected backend failure (lost connection, disk error).
	IOError
	// InvalidState: an internal invariant was broken, e.g. an UPDATE
	// affected more than one row.
	InvalidState
)

func (k Kind) String() string {
	switch k {
	case AlreadyExists:
		return "AlreadyExists"
	case NotFound:
		return "NotFound"
	case ItemNotFound:
		return "ItemNotFound"
	case ItemAlreadyExists:
		return "ItemAlreadyExists"
	case InvalidStructure:
		return "InvalidStructure"
	case AccessFailed:
		return "AccessFailed"
	case IOError:
		return "IOError"
	case InvalidState:
		return "InvalidState"
	default:
		return "Unknown"
	}
}

// Error is the sum type every backend returns for a failed operation.
// Wrap a driver error via Wrap so callers can still Unwrap to it.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("storage: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target names the same Kind, so callers can write
// errors.Is(err, storage.ErrKind(storage.ItemNotFound)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and message to an underlying driver error, keeping
// it reachable via errors.Unwrap.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// ErrKind returns a sentinel usable with errors.Is to test only the Kind,
// ignoring message and wrapped cause.
func ErrKind(kind Kind) error {
	return &Error{Kind: kind}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error,
// returning KindUnknown otherwise.
func KindOf(err error) Kind {
	var se *Error
	if As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// As is a thin indirection over errors.As kept local so callers of this
// package do not need a second import for the common case.
func As(err error, target **Error) bool {
	for err != nil {
		if se, ok := err.(*Error); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
