// Package apierr implements the response envelope and error taxonomy
// described in SPEC_FULL.md §6.1/§7, grounded on the original Rust
// implementation's response.rs Status enum and error.rs AppError variants.
package apierr

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/gin-gonic/gin"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Status is the envelope's numeric status code. It is not an HTTP status
// code: per spec, the HTTP status stays 200 for every case except panic
// (500) and unauthenticated (401).
type Status int

const (
	StatusSuccess        Status = 0
	StatusPanic          Status = 500
	StatusValidation     Status = 1400
	StatusUnauthorized   Status = 1401
	StatusForbidden      Status = 1403
	StatusNotFound       Status = 1404
	StatusConflict       Status = 1409
	StatusInvalidRequest Status = 1422
	StatusInternal       Status = 1500
	StatusOperationError Status = 1600
)

// Error is the taxonomy type handlers return; Respond maps it to the wire
// envelope and the matching HTTP status.
type Error struct {
	Status  Status
	Message string
	Data    map[string]interface{}
}

func (e *Error) Error() string { return e.Message }

func New(status Status, message string) *Error {
	return &Error{Status: status, Message: message}
}

func NewWithData(status Status, message string, data map[string]interface{}) *Error {
	return &Error{Status: status, Message: message, Data: data}
}

func NotFound(message string) *Error      { return New(StatusNotFound, message) }
func Conflict(message string) *Error      { return New(StatusConflict, message) }
func Validation(message string) *Error    { return New(StatusValidation, message) }
func Unauthorized(message string) *Error  { return New(StatusUnauthorized, message) }
func Forbidden(message string) *Error     { return New(StatusForbidden, message) }
func Internal(message string) *Error      { return New(StatusInternal, message) }
func InvalidRequest(message string) *Error {
	return New(StatusInvalidRequest, message)
}
func OperationError(message string, data map[string]interface{}) *Error {
	return NewWithData(StatusOperationError, message, data)
}

// httpStatusFor returns the HTTP status code accompanying status. Per
// spec.md §6.1, this is always 200 except panic (500); unauthorized is the
// one case the auth middleware short-circuits with a real 401 before a
// handler ever runs.
func httpStatusFor(s Status) int {
	switch s {
	case StatusPanic:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// Success writes the envelope for a successful response. payload's fields
// are flattened into the envelope alongside status/message, emulating
// serde's #[serde(flatten)] since encoding/json has no native equivalent.
func Success(c *gin.Context, message string, payload map[string]interface{}) {
	body := map[string]interface{}{
		"status": StatusSuccess,
	}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", mustMarshal(body))
}

// Respond writes the envelope for err, deriving the envelope status and
// HTTP status from its taxonomy tag. Any non-*Error is treated as internal.
func Respond(c *gin.Context, err error) {
	apiErr, ok := err.(*Error)
	if !ok {
		apiErr = Internal(err.Error())
	}
	body := map[string]interface{}{
		"status": apiErr.Status,
	}
	if apiErr.Message != "" {
		body["message"] = apiErr.Message
	}
	for k, v := range apiErr.Data {
		body[k] = v
	}
	c.Data(httpStatusFor(apiErr.Status), "application/json; charset=utf-8", mustMarshal(body))
}

// Unauthorized401 writes the one case where the HTTP status itself carries
// the failure: a missing/mismatched bearer token.
func Unauthorized401(c *gin.Context, message string) {
	body := map[string]interface{}{
		"status":  StatusUnauthorized,
		"message": message,
	}
	c.Data(http.StatusUnauthorized, "application/json; charset=utf-8", mustMarshal(body))
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Marshaling a map[string]interface{} built from our own types
		// cannot fail; a failure here means a caller stuffed something
		// unmarshalable (e.g. a channel) into the payload.
		panic("apierr: failed to marshal response: " + err.Error())
	}
	return b
}
