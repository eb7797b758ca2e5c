package vm

import (
	"fmt"

	"github.com/zurustar/sketch/pkg/compiler/token"
)

// ErrorType represents the type of runtime error.
type ErrorType string

// Every runtime error is fatal: it aborts Execute and is returned once.
const (
	ErrorUndefinedVar     ErrorType = "UNDEFINED_VARIABLE"
	ErrorRedefinedName    ErrorType = "REDEFINED_NAME"
	ErrorTypeMismatch     ErrorType = "TYPE_MISMATCH"
	ErrorArityMismatch    ErrorType = "ARITY_MISMATCH"
	ErrorIndexOutOfRange  ErrorType = "INDEX_OUT_OF_RANGE"
	ErrorImportNotFound   ErrorType = "IMPORT_NOT_FOUND"
	ErrorSignalEscaped    ErrorType = "SIGNAL_ESCAPED"
	ErrorForeignCall      ErrorType = "FOREIGN_CALL"
	ErrorIO               ErrorType = "IO_FAILURE"
	ErrorStackOverflow    ErrorType = "STACK_OVERFLOW"
	ErrorInvalidOperation ErrorType = "INVALID_OPERATION"
)

// RuntimeError represents a runtime error in the evaluator.
type RuntimeError struct {
	Type    ErrorType
	Message string
	Token   *token.Token // offending token if available
	Err     error        // underlying cause, e.g. a sink write error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Token != nil {
		return fmt.Sprintf("[%s] %s at line %d", e.Type, e.Message, e.Token.Line)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Line returns the line of the offending token, or -1.
func (e *RuntimeError) Line() int {
	if e.Token == nil {
		return -1
	}
	return e.Token.Line
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
	}
}

// NewRuntimeErrorAt creates a new RuntimeError pointing at tok.
func NewRuntimeErrorAt(errType ErrorType, tok token.Token, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		Token:   &tok,
	}
}

// at attaches tok to err if it is a RuntimeError without a token.
func at(err error, tok token.Token) error {
	if re, ok := err.(*RuntimeError); ok && re.Token == nil {
		re.Token = &tok
	}
	return err
}

// Error helper functions for common error types

// NewUndefinedVariableError creates an undefined variable error.
func NewUndefinedVariableError(name string) *RuntimeError {
	return NewRuntimeError(ErrorUndefinedVar, fmt.Sprintf("Unable to find memory location %q", name))
}

// NewUndefinedFunctionError creates an undefined function error.
func NewUndefinedFunctionError(name string) *RuntimeError {
	return NewRuntimeError(ErrorUndefinedVar, fmt.Sprintf("Unable to find function %q", name))
}

// NewRedefinedError creates an error for a name defined twice in one frame.
func NewRedefinedError(frame, name string) *RuntimeError {
	return NewRuntimeError(ErrorRedefinedName, fmt.Sprintf("[%s] Name already defined %q", frame, name))
}

// NewTypeMismatchError creates an error for an operator or native applied
// to values of the wrong type.
func NewTypeMismatchError(tok token.Token, format string, args ...any) *RuntimeError {
	return NewRuntimeErrorAt(ErrorTypeMismatch, tok, fmt.Sprintf(format, args...))
}

// NewOperatorError reports an operator that cannot be applied to its operands.
func NewOperatorError(tok token.Token, operands ...Value) *RuntimeError {
	kinds := make([]any, len(operands))
	for i, v := range operands {
		kinds[i] = v.Kind()
	}
	switch len(kinds) {
	case 1:
		return NewTypeMismatchError(tok, "Operator '%s' cannot be applied on %s", tok.Lexeme, kinds[0])
	case 2:
		return NewTypeMismatchError(tok, "Operator '%s' cannot be applied on %s and %s", tok.Lexeme, kinds[0], kinds[1])
	}
	return NewTypeMismatchError(tok, "Operator '%s' cannot be applied", tok.Lexeme)
}

// NewArityError creates a wrong argument count error.
func NewArityError(tok token.Token, name string, expected, got int) *RuntimeError {
	return NewRuntimeErrorAt(ErrorArityMismatch, tok,
		fmt.Sprintf("fun %s() expects %d arguments, but got %d", name, expected, got))
}

// NewIndexOutOfRangeError creates an index out of range error.
func NewIndexOutOfRangeError(tok token.Token, index, length int) *RuntimeError {
	return NewRuntimeErrorAt(ErrorIndexOutOfRange, tok,
		fmt.Sprintf("index %d out of range (length %d)", index, length))
}

// NewSignalEscapedError reports break, continue or forward outside a loop.
func NewSignalEscapedError(tok token.Token, signal string) *RuntimeError {
	return NewRuntimeErrorAt(ErrorSignalEscaped, tok,
		fmt.Sprintf("control-flow signal '%s' escaped its loop", signal))
}

// NewStackOverflowError creates a stack overflow error.
func NewStackOverflowError(tok token.Token, depth, limit int) *RuntimeError {
	return NewRuntimeErrorAt(ErrorStackOverflow, tok,
		fmt.Sprintf("stack overflow: depth %d exceeds maximum %d", depth, limit))
}

// NewIOError wraps a failed write to the output sink.
func NewIOError(err error) *RuntimeError {
	return &RuntimeError{
		Type:    ErrorIO,
		Message: fmt.Sprintf("cannot write to output: %v", err),
		Err:     err,
	}
}
