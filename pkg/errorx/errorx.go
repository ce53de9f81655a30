// Package errorx provides coded business errors. Every error surfaced by the
// HTTP layer carries a registered code that maps to an HTTP status and a
// user-safe message.
package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Coder describes a registered error code.
type Coder interface {
	// Code returns the business code.
	Code() int
	// HTTPStatus returns the associated HTTP status code.
	HTTPStatus() int
	// String returns the user-safe message for the code.
	String() string
	// Reference returns an optional document reference for the code.
	Reference() string
}

var (
	codeMux sync.Mutex
	codes   = map[int]Coder{}
)

type defaultCoder struct {
	code int
	http int
	msg  string
	ref  string
}

func (c defaultCoder) Code() int         { return c.code }
func (c defaultCoder) HTTPStatus() int   { return c.http }
func (c defaultCoder) String() string    { return c.msg }
func (c defaultCoder) Reference() string { return c.ref }

// unknownCoder is returned by ParseCoder for errors without a registered code.
var unknownCoder = defaultCoder{
	code: 1,
	http: http.StatusInternalServerError,
	msg:  "An internal server error occurred",
}

// Register registers a coder. Codes must be unique; code 1 is reserved.
func Register(coder Coder) error {
	if coder.Code() == unknownCoder.Code() {
		return fmt.Errorf("code %d is reserved as the unknown error code", unknownCoder.Code())
	}

	codeMux.Lock()
	defer codeMux.Unlock()

	if _, ok := codes[coder.Code()]; ok {
		return fmt.Errorf("code %d is already registered", coder.Code())
	}
	codes[coder.Code()] = coder

	return nil
}

// MustRegister registers a coder and panics on conflict. Intended for use
// from init() of the package owning the codes.
func MustRegister(coder Coder) {
	if err := Register(coder); err != nil {
		panic(err)
	}
}

type withCode struct {
	msg   string
	code  int
	cause error
}

func (w *withCode) Error() string {
	if w.cause != nil {
		return fmt.Sprintf("%s: %s", w.msg, w.cause.Error())
	}
	return w.msg
}

func (w *withCode) Unwrap() error { return w.cause }

// WithCode creates a new error with the given code and message.
func WithCode(code int, format string, args ...interface{}) error {
	return &withCode{
		msg:  fmt.Sprintf(format, args...),
		code: code,
	}
}

// WrapC annotates err with a code and message, keeping err as the cause.
func WrapC(err error, code int, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	return &withCode{
		msg:   fmt.Sprintf(format, args...),
		code:  code,
		cause: err,
	}
}

// ParseCoder resolves the coder attached to err. Errors without a registered
// code resolve to the unknown coder. A nil error resolves to nil.
func ParseCoder(err error) Coder {
	if err == nil {
		return nil
	}

	var w *withCode
	if errors.As(err, &w) {
		codeMux.Lock()
		defer codeMux.Unlock()
		if coder, ok := codes[w.code]; ok {
			return coder
		}
	}

	return unknownCoder
}

// IsCode reports whether any error in err's chain carries the given code.
func IsCode(err error, code int) bool {
	var w *withCode
	if errors.As(err, &w) {
		if w.code == code {
			return true
		}
		if w.cause != nil {
			return IsCode(w.cause, code)
		}
	}

	return false
}
