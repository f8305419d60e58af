package errors

import (
	"bytes"
	stderrors "errors"
	"reflect"
	"strings"
)

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"
	// GeneralRepositoryError represents a generic repository error.
	GeneralRepositoryError ErrorCode = "general_repository_error"

	// OrderValidationError is returned when an order fails a static check and is rejected before admission.
	OrderValidationError ErrorCode = "order_validation_error"
	// InsufficientBalance is returned when the spend asset balance cannot cover an order or a debit.
	InsufficientBalance ErrorCode = "insufficient_balance"
	// InvariantViolation marks a state that must never happen, e.g. a non-positive fill quantity.
	InvariantViolation ErrorCode = "invariant_violation"
	// PersistenceFailure is returned when a storage write or transaction commit fails.
	PersistenceFailure ErrorCode = "persistence_failure"
	// OrderNotFound is returned when an order id does not exist.
	OrderNotFound ErrorCode = "order_not_found"
	// OrderNotOpen is returned when a conditional order update finds the order already closed.
	OrderNotOpen ErrorCode = "order_not_open"
	// UnknownAdjustmentSource is returned for ledger adjustments whose source is not supported.
	UnknownAdjustmentSource ErrorCode = "unknown_adjustment_source"

	// EventPublishError represents a failure to hand events over to a broker.
	EventPublishError ErrorCode = "event_publish_error"
	// EventDecodeError represents an intake message that cannot be decoded.
	EventDecodeError ErrorCode = "event_decode_error"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisDisconnectionError represents an error when disconnecting from Redis.
	RedisDisconnectionError ErrorCode = "redis_disconnection_error"
	// RedisPingError represents an error when pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
	// RedisDelError represents an error when deleting a value from Redis.
	RedisDelError ErrorCode = "redis_del_error"
	// RedisHGetError represents an error when getting a field from a hash in Redis.
	RedisHGetError ErrorCode = "redis_hget_error"
	// RedisHSetError represents an error when setting fields in a hash in Redis.
	RedisHSetError ErrorCode = "redis_hset_error"
	// RedisPublishError represents an error when publishing messages to channels in Redis.
	RedisPublishError ErrorCode = "redis_publish_error"
	// RedisSubscribeError represents an error when subscribing to channels in Redis.
	RedisSubscribeError ErrorCode = "redis_subscribe_error"
)

// Category represents the category of an error.
type Category string

const (
	// CategoryDatabase indicates an error related to database operations.
	CategoryDatabase Category = "database"
	// CategoryValidation indicates an error related to validation of input data.
	CategoryValidation Category = "validation"
	// CategoryBusinessLogic indicates an error related to business logic processing.
	CategoryBusinessLogic Category = "business_logic"
	// CategoryExternal indicates an error related to external services or APIs.
	CategoryExternal Category = "external"
	// CategoryUnknown indicates an unknown error category.
	CategoryUnknown Category = "unknown"
)

// CategoryOf maps a settlement error code to its category.
func CategoryOf(code ErrorCode) Category {
	switch code {
	case OrderValidationError, InsufficientBalance, UnknownAdjustmentSource, OrderNotFound:
		return CategoryValidation
	case InvariantViolation, OrderNotOpen:
		return CategoryBusinessLogic
	case PersistenceFailure, GeneralRepositoryError:
		return CategoryDatabase
	case EventPublishError, EventDecodeError:
		return CategoryExternal
	default:
		return CategoryUnknown
	}
}

// BaseError is an `error` type containing an array of ErrorDetails.
// This error provides basic functions for performing transformations
// on a list of ErrorDetails.
type BaseError struct {
	details []*ErrorDetails
}

// NewBaseError create BaseError with ErrorDetails
func NewBaseError(details ...*ErrorDetails) *BaseError {
	return &BaseError{details: details}
}

// AddErrorDetails add more ErrorDetails to BaseError
func (b *BaseError) AddErrorDetails(errors ...*ErrorDetails) {
	b.details = append(b.details, errors...)
}

// GetDetails get array ErrorDetails on BaseError
func (b *BaseError) GetDetails() []*ErrorDetails {
	return b.details
}

// HasDetails reports whether at least one detail was collected.
func (b *BaseError) HasDetails() bool {
	return len(b.details) > 0
}

// Error implement error interface
func (b *BaseError) Error() string {
	buff := bytes.NewBufferString("")

	buff.WriteString("Error on\n")
	for _, err := range b.details {
		buff.WriteString("code: ")
		buff.WriteString(err.Code)
		buff.WriteString("; error: ")
		buff.WriteString(err.Error())
		buff.WriteString("; field: ")
		buff.WriteString(err.Field)
		buff.WriteString("; object: ")
		if err.Object != nil {
			buff.WriteString(reflect.TypeOf(err.Object).String())
		}
		buff.WriteString("\n")
	}

	return strings.TrimSpace(buff.String())
}

// Fields returns the distinct fields that have at least one detail, in insertion order.
func (b *BaseError) Fields() []string {
	seen := make(map[string]bool, len(b.details))
	fields := make([]string, 0, len(b.details))
	for _, d := range b.details {
		if d.Field == "" || seen[d.Field] {
			continue
		}
		seen[d.Field] = true
		fields = append(fields, d.Field)
	}
	return fields
}

// ReplaceAllObjects set all object on ErrorDetails with given object
func (b *BaseError) ReplaceAllObjects(object interface{}) {
	for _, d := range b.GetDetails() {
		d.Object = object
	}
}

// IsAnyCodeEqual check if any ErrorDetails code is equal with given code
func (b *BaseError) IsAnyCodeEqual(code string) bool {
	for _, d := range b.GetDetails() {
		if d.Code == code {
			return true
		}
	}
	return false
}

// HasCode walks the wrap chain of err and reports whether any ErrorDetails
// or BaseError along it carries the given code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		switch e := err.(type) {
		case *ErrorDetails:
			if e.Code == string(code) {
				return true
			}
		case *BaseError:
			if e.IsAnyCodeEqual(string(code)) {
				return true
			}
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsValidation reports whether err rejects its input rather than signalling a failure.
func IsValidation(err error) bool {
	return HasCode(err, OrderValidationError) || HasCode(err, InsufficientBalance)
}
