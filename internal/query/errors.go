package query

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorKind classifies a QueryError so callers can react to the class of
// failure instead of matching message text.
type ErrorKind int

const (
	KindInvalidQuery ErrorKind = iota + 1
	KindInvalidColumn
	KindNoTableLoaded
	KindLoadFailed
	KindNotImplemented
)

type QueryError struct {
	kind ErrorKind
	msg  string
}

func NewQueryError(kind ErrorKind, msg string) *QueryError {
	return &QueryError{kind: kind, msg: msg}
}

func (e QueryError) Error() string   { return e.msg }
func (e QueryError) Kind() ErrorKind { return e.kind }

// Status maps the error kind to an HTTP-ish status code, used by the
// websocket watch responses.
func (e QueryError) Status() int {
	switch e.kind {
	case KindInvalidQuery, KindInvalidColumn:
		return http.StatusBadRequest
	case KindNoTableLoaded:
		return http.StatusNotFound
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func InvalidQuery(format string, args ...any) *QueryError {
	return NewQueryError(KindInvalidQuery, fmt.Sprintf(format, args...))
}

func InvalidColumn(name string) *QueryError {
	return NewQueryError(KindInvalidColumn, fmt.Sprintf("unknown column %q", name))
}

func NoTableLoaded() *QueryError {
	return NewQueryError(KindNoTableLoaded, "no table loaded (use 'from' to name one)")
}

func NotImplemented(msg string) *QueryError {
	return NewQueryError(KindNotImplemented, msg)
}

// LoadFailed wraps the underlying cause so its text survives into the
// error line sent to the client.
func LoadFailed(cause error, what string) *QueryError {
	return NewQueryError(KindLoadFailed, errors.Wrapf(cause, "loading %s", what).Error())
}

func LoadFailedMsg(format string, args ...any) *QueryError {
	return NewQueryError(KindLoadFailed, fmt.Sprintf(format, args...))
}

// KindOf reports the ErrorKind of err, or 0 for non-query errors.
func KindOf(err error) ErrorKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind()
	}
	return 0
}
