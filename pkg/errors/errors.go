package errors

import "errors"

func (d Definition) Error() string {
	return d.Message
}

// Definition is a business error code with its default message.
type Definition struct {
	Code    string
	Message string
}

// Demo API errors.
var (
	InvalidRequest    = Definition{Code: "INVALID_REQUEST", Message: "Invalid request payload"}
	InvalidID         = Definition{Code: "INVALID_ID", Message: "Invalid identifier format"}
	UserNotFound      = Definition{Code: "USER_NOT_FOUND", Message: "User not found"}
	UserEmailConflict = Definition{Code: "USER_EMAIL_CONFLICT", Message: "Email already registered"}
	OrderNotFound     = Definition{Code: "ORDER_NOT_FOUND", Message: "Order not found"}
	OrderEmpty        = Definition{Code: "ORDER_EMPTY", Message: "Order has no items"}
	ProductNotFound   = Definition{Code: "PRODUCT_NOT_FOUND", Message: "Product not found"}
	TooManyRequests   = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
)

// Infrastructure errors.
var (
	StorageUnavailable    = Definition{Code: "STORAGE_UNAVAILABLE", Message: "Storage backend unavailable"}
	QueueUnavailable      = Definition{Code: "QUEUE_UNAVAILABLE", Message: "Message queue unavailable"}
	CollectorUnreachable  = Definition{Code: "COLLECTOR_UNREACHABLE", Message: "OTLP collector unreachable"}
	DBMSetupFailed        = Definition{Code: "DBM_SETUP_FAILED", Message: "Database monitoring setup failed"}
	QueryAPIUnauthorized  = Definition{Code: "QUERY_API_UNAUTHORIZED", Message: "Last9 query API rejected credentials"}
	QueryAPIRequestFailed = Definition{Code: "QUERY_API_REQUEST_FAILED", Message: "Last9 query API request failed"}
)

// Lookup indexes definitions by code.
var Lookup = map[string]Definition{
	InvalidRequest.Code:        InvalidRequest,
	InvalidID.Code:             InvalidID,
	UserNotFound.Code:          UserNotFound,
	UserEmailConflict.Code:     UserEmailConflict,
	OrderNotFound.Code:         OrderNotFound,
	OrderEmpty.Code:            OrderEmpty,
	ProductNotFound.Code:       ProductNotFound,
	TooManyRequests.Code:       TooManyRequests,
	StorageUnavailable.Code:    StorageUnavailable,
	QueueUnavailable.Code:      QueueUnavailable,
	CollectorUnreachable.Code:  CollectorUnreachable,
	DBMSetupFailed.Code:        DBMSetupFailed,
	QueryAPIUnauthorized.Code:  QueryAPIUnauthorized,
	QueryAPIRequestFailed.Code: QueryAPIRequestFailed,
}

// Get returns the Definition for code, or a generic one when unknown.
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// SkipMessageError tells a consumer loop to ack and drop a message instead of
// requeueing it: unparsable payloads and already-seen events never succeed on
// redelivery.
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return e.Reason
}

// IsSkipMessageError reports whether err is, or wraps, a SkipMessageError.
func IsSkipMessageError(err error) bool {
	var skip *SkipMessageError
	return errors.As(err, &skip)
}
