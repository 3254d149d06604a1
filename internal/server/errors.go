package server

import (
	"errors"
	"fmt"
	"net/http"
)

// Messages written as the body of error responses.
const (
	msgForbidden = "Forbidden"
	msgNotFound  = "Not found"
	msgInternal  = "Internal server error"
)

// Kind classifies why a request path was rejected.
type Kind int

const (
	NotFound Kind = iota
	Forbidden
)

func (k Kind) String() string {
	switch k {
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status returns the HTTP status code answered for the kind.
func (k Kind) Status() int {
	if k == Forbidden {
		return http.StatusForbidden
	}
	return http.StatusNotFound
}

// Message returns the plain-text body answered for the kind.
func (k Kind) Message() string {
	if k == Forbidden {
		return msgForbidden
	}
	return msgNotFound
}

// Sentinels matched by ResolutionError.Is.
var (
	ErrForbidden = errors.New("path escapes root directory")
	ErrNotFound  = errors.New("file not found")
)

var (
	errOutsideRoot = errors.New("canonical path outside root")
	errNotRegular  = errors.New("not a regular file")
)

// ResolutionError is returned by Resolve for every rejected request path.
type ResolutionError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is matches ErrForbidden or ErrNotFound according to the error's kind.
func (e *ResolutionError) Is(target error) bool {
	switch target {
	case ErrForbidden:
		return e.Kind == Forbidden
	case ErrNotFound:
		return e.Kind == NotFound
	}
	return false
}

// TransferError reports an I/O failure while serving a resolved file.
// HeadersSent tells the caller whether a status line already went out.
type TransferError struct {
	Op          string
	Path        string
	HeadersSent bool
	Err         error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// respondError writes a single plain-text error response.
func respondError(w http.ResponseWriter, status int, message string) {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	fmt.Fprint(w, message)
}
