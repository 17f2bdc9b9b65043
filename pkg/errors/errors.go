// Package errors defines the coded errors returned by lscgrid packages.
//
// Each [Error] carries a [Code] for programmatic handling and, for
// validation failures, the 0-based indices of the offending mesh nodes:
//
//	err := errors.AtNode(errors.ErrCodeInvalidBounds, 4821, "minlayer(%d) > maxlayer(%d)", 8, 5)
//	// INVALID_BOUNDS: node 4821: minlayer(8) > maxlayer(5)
//	errors.Nodes(err) // [4821]
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidBounds Code = "INVALID_BOUNDS"
	ErrCodeInvalidDepth  Code = "INVALID_DEPTH"
	ErrCodeInvalidLayers Code = "INVALID_LAYERS"
	ErrCodeInvalidMesh   Code = "INVALID_MESH"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"

	ErrCodeCancelled Code = "CANCELLED"
	ErrCodeInternal  Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code, the offending nodes, and an
// optional cause.
type Error struct {
	Code    Code
	Message string
	Nodes   []int // offending 0-based node indices, if any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// AtNode creates an Error for a single offending node. The message is
// prefixed with "node <i>: ".
func AtNode(code Code, node int, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("node %d: ", node) + fmt.Sprintf(format, args...),
		Nodes:   []int{node},
	}
}

// AtNodes creates an Error for a set of offending nodes. The message lists
// the first few indices; the full set is available through [Nodes].
func AtNodes(code Code, nodes []int, format string, args ...any) *Error {
	if len(nodes) == 1 {
		return AtNode(code, nodes[0], format, args...)
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("nodes %s: ", FormatNodes(nodes, maxListedNodes)) + fmt.Sprintf(format, args...),
		Nodes:   append([]int(nil), nodes...),
	}
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether err or any error it wraps is an *Error with code.
func Is(err error, code Code) bool {
	e, ok := asError(err)
	return ok && e.Code == code
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return ""
}

// Nodes returns the offending node indices carried by err, or nil.
func Nodes(err error) []int {
	if e, ok := asError(err); ok {
		return e.Nodes
	}
	return nil
}

// UserMessage returns the message of err without its code prefix or
// cause, falling back to err.Error() for uncoded errors.
func UserMessage(err error) string {
	if e, ok := asError(err); ok {
		return e.Message
	}
	return err.Error()
}
