package apifetch

import "encoding/json"

// Error codes returned by this adapter
const (
	CodeTransactionFailed = "transaction_failed"
	CodeBatchFailed       = "batch_failed"
	CodeInvalidResponse   = "invalid_response"
	CodeHTTPError         = "http_error"
)

// ErrorData carries the HTTP-style status of an error
type ErrorData struct {
	Status int `json:"status"`
}

// Error is the service's error shape: {code, message, data: {status}}
type Error struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    ErrorData `json:"data"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new Error
func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    ErrorData{Status: status},
	}
}

// NewTransactionFailedError reports a transaction that was already in the
// error state when its batch was processed
func NewTransactionFailedError() *Error {
	return NewError(CodeTransactionFailed, "Transaction failed.", 500)
}

// BatchError reports a combined call that the endpoint marked failed. Bodies
// holds every response item's body in request order; a caller finds its own
// failure detail at its request's position.
type BatchError struct {
	Bodies []json.RawMessage
}

// Error implements the error interface
func (e *BatchError) Error() string {
	return "batch request failed"
}
