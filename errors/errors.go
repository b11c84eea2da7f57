package errors

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Code categorizes the error.
type Code string

const (
	CodeSyntax         Code = "syntax"
	CodeRuntime        Code = "runtime"
	CodeMemory         Code = "memory"
	CodeReadOnly       Code = "read_only_access"
	CodePathResolution Code = "path_resolution"
	CodeCallback       Code = "callback"
	CodeCoroutine      Code = "coroutine"
	CodeInit           Code = "initialization_failed"
	CodeUnknown        Code = "unknown"
)

// Error is the structured error type used throughout the library.
// Path is set for errors tied to a data-server path; Cause chains the
// originating error when one exists.
type Error struct {
	Code   Code
	Path   string
	Detail string
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Code))
	b.WriteByte(']')

	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder.
func New(code Code) *Builder {
	return &Builder{err: Error{Code: code}}
}

// Path sets the data-server path the error refers to.
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(detail string) *Builder {
	b.err.Detail = detail
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Syntax reports code that failed to compile.
func Syntax(detail string) *Error {
	return &Error{Code: CodeSyntax, Detail: detail}
}

// Runtime reports an error raised during execution.
func Runtime(detail string) *Error {
	return &Error{Code: CodeRuntime, Detail: detail}
}

// Memory reports an allocation that would exceed the configured limit.
func Memory(detail string) *Error {
	return &Error{Code: CodeMemory, Detail: detail}
}

// ReadOnly reports a write rejected by a data server's permission check.
func ReadOnly(path string) *Error {
	return &Error{Code: CodeReadOnly, Path: path, Detail: "path is read-only"}
}

// PathResolution reports a write attempted against an unregistered
// namespace.
func PathResolution(path string) *Error {
	return &Error{Code: CodePathResolution, Path: path, Detail: "no data server answers for this path"}
}

// Callback reports a failure raised by a host closure.
func Callback(detail string) *Error {
	return &Error{Code: CodeCallback, Detail: detail}
}

// Coroutine reports a coroutine create/resume failure.
func Coroutine(detail string) *Error {
	return &Error{Code: CodeCoroutine, Detail: detail}
}

// Init reports interpreter construction failure.
func Init(cause error) *Error {
	return &Error{Code: CodeInit, Detail: "interpreter construction failed", Cause: cause}
}

// Unknown is the fallback for errors that fit no other code.
func Unknown(detail string) *Error {
	return &Error{Code: CodeUnknown, Detail: detail}
}

// As extracts a structured error if err carries one.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// FromLua classifies an interpreter error into the taxonomy. The
// native channel only carries strings, so the message is preserved
// verbatim as the detail.
func FromLua(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	apiErr, ok := err.(*lua.ApiError)
	if !ok {
		return &Error{Code: CodeUnknown, Detail: err.Error(), Cause: err}
	}

	detail := apiErr.Object.String()
	switch apiErr.Type {
	case lua.ApiErrorSyntax:
		return &Error{Code: CodeSyntax, Detail: detail, Cause: err}
	case lua.ApiErrorRun, lua.ApiErrorError:
		return &Error{Code: CodeRuntime, Detail: detail, Cause: err}
	case lua.ApiErrorPanic:
		return &Error{Code: CodeRuntime, Detail: detail, Cause: err}
	default:
		return &Error{Code: CodeUnknown, Detail: detail, Cause: err}
	}
}
