// Package qerrors defines the three error kinds exported across the
// plugin boundary: parse, execution, and plugin errors. Each kind
// preserves its cause so callers can unwrap back to the original
// plugin/library failure.
package qerrors

import (
	"fmt"

	"github.com/pkg/errors"
	goerrors "gopkg.in/src-d/go-errors.v1"
)

// Code identifies which of the three error kinds produced an error.
type Code string

const (
	CodeParse     Code = "PARSE_ERROR"
	CodeExecution Code = "EXECUTION_ERROR"
	CodePlugin    Code = "PLUGIN_ERROR"

	// CodeCancelled is a distinguished PLUGIN_ERROR so callers can tell
	// cancellation apart from a genuine plugin failure.
	CodeCancelled Code = "PLUGIN_CANCELLED"
)

var (
	// ParseErrorKind classifies lexer/parser failures.
	ParseErrorKind = goerrors.NewKind("parse error: %s")
	// ExecutionErrorKind classifies executor failures (unknown table,
	// bad SHOW target, bad cache command).
	ExecutionErrorKind = goerrors.NewKind("execution error: %s")
	// PluginErrorKind classifies any failure that crosses the plugin
	// boundary, including cancellation and timeout.
	PluginErrorKind = goerrors.NewKind("plugin error: %s")
)

// QueryError is the concrete error value returned to callers. It
// carries enough context to render a useful message while keeping the
// original cause reachable via errors.Unwrap.
type QueryError struct {
	Code    Code
	Message string
	Cause   error
	Details map[string]interface{}
	Line    int
	Column  int
}

func (e *QueryError) Error() string {
	if e.Line > 0 || e.Column > 0 {
		return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Line, e.Column)
	}
	return e.Message
}

// Unwrap exposes the preserved cause to errors.Is/errors.As.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Parse builds a parse-kind error at a given source position.
func Parse(message string, line, column int) *QueryError {
	return &QueryError{
		Code:    CodeParse,
		Message: ParseErrorKind.New(message).Error(),
		Line:    line,
		Column:  column,
	}
}

// Execution builds an execution-kind error, optionally naming the
// offending identifier in details.
func Execution(message string, details map[string]interface{}) *QueryError {
	return &QueryError{
		Code:    CodeExecution,
		Message: ExecutionErrorKind.New(message).Error(),
		Details: details,
	}
}

// Plugin wraps a foreign error raised by (or on behalf of) a named
// plugin. The cause is stack-annotated with errors.Wrap before being
// preserved, so a later errors.As/errors.Is unwind through Cause keeps
// the originating call site even when the plugin's own error carries
// none.
func Plugin(source, operation string, cause error) *QueryError {
	wrapped := errors.Wrapf(cause, "%s failed for plugin %q", operation, source)
	return &QueryError{
		Code:    CodePlugin,
		Message: PluginErrorKind.New(fmt.Sprintf("%s failed for plugin %q: %v", operation, source, cause)).Error(),
		Cause:   wrapped,
	}
}

// Cancelled wraps a context cancellation/deadline error as a
// distinguished plugin-kind error.
func Cancelled(source, operation string, cause error) *QueryError {
	e := Plugin(source, operation, cause)
	e.Code = CodeCancelled
	return e
}

// IsCancelled reports whether err is a cancellation-flavored plugin error.
func IsCancelled(err error) bool {
	qe, ok := err.(*QueryError)
	return ok && qe.Code == CodeCancelled
}
