package errors

// ErrorDetails represents detailed information about an error.
type ErrorDetails struct {
	// Message (required) is the user-defined error message.
	// E.g. "quantity must be greater than 0".
	Message string

	// Code (required) is one of the ErrorCode values, e.g. "insufficient_balance".
	Code string

	// Field (optional) is the related field the error occurred on, if any.
	Field string

	// Object (optional) is the related object the error occured on, if any.
	Object interface{}

	// Cause (optional) is the lower level error this detail classifies.
	Cause error
}

// NewErrorDetails creates a new ErrorDetails struct with the given parameters.
func NewErrorDetails(message, code, field string) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
	}
}

// NewErrorDetailsWithObject creates a new ErrorDetails struct with an associated object.
func NewErrorDetailsWithObject(message, code, field string, object interface{}) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
		Object:  object,
	}
}

// WithCause attaches the underlying error and returns the same details.
func (e *ErrorDetails) WithCause(err error) *ErrorDetails {
	e.Cause = err
	return e
}

// Error() is used to implement the Golang `error` interface.
func (e *ErrorDetails) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the cause, if any.
func (e *ErrorDetails) Unwrap() error {
	return e.Cause
}

// ErrorCodeEquals checks whether a given `error` has a specific code.
func ErrorCodeEquals(err error, code string) bool {
	errDetails, ok := err.(*ErrorDetails)
	if !ok {
		return false
	}

	return errDetails.Code == code
}

// Persistence classifies err as a storage failure and attaches a stack trace.
func Persistence(message string, err error) *ErrorTracer {
	return TracerFromError(NewErrorDetails(message, string(PersistenceFailure), "").WithCause(err))
}

// Invariant builds a stack-traced invariant violation.
func Invariant(message string, object interface{}) *ErrorTracer {
	return TracerFromError(NewErrorDetailsWithObject(message, string(InvariantViolation), "", object))
}

// NotOpen reports that a conditional update found the order closed or changed.
func NotOpen(orderID string) *ErrorDetails {
	return NewErrorDetailsWithObject("order "+orderID+" is no longer open", string(OrderNotOpen), "id", orderID)
}

// NotFound reports that the order does not exist.
func NotFound(orderID string) *ErrorDetails {
	return NewErrorDetailsWithObject("order "+orderID+" not found", string(OrderNotFound), "id", orderID)
}
