// Package response defines the JSON envelope every HTTP endpoint
// returns. Success and error payloads share one structure so clients
// always read code, message, and request_id the same way.
package response

import (
	"net/http"

	"github.com/kart-io/regqa/pkg/utils/errors"
)

// Response is the wire envelope for all API responses.
type Response struct {
	// Code is the business error code (0 = success).
	Code int `json:"code"`

	// HTTPCode mirrors the HTTP status for clients that only see the
	// body, such as log pipelines.
	HTTPCode int `json:"http_code,omitempty"`

	// Message is a human-readable message.
	Message string `json:"message"`

	// Data carries the payload. Errors leave it nil.
	Data interface{} `json:"data,omitempty"`

	// RequestID links the response to server-side logs and traces.
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response time in Unix milliseconds.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Success builds a success envelope around data. The Response comes
// from the pool; callers hand it back via Release once written.
func Success(data interface{}) *Response {
	r := Acquire()
	r.Code = 0
	r.HTTPCode = http.StatusOK
	r.Message = "success"
	r.Data = data
	return r
}

// Err builds an error envelope from an Errno with its English message.
func Err(e *errors.Errno) *Response {
	return ErrWithLang(e, "")
}

// ErrWithLang builds an error envelope with the message localized for
// lang. Empty or unknown languages fall back to English. A nil errno
// degrades to an empty success envelope.
func ErrWithLang(e *errors.Errno, lang string) *Response {
	if e == nil {
		return Success(nil)
	}
	r := Acquire()
	r.Code = e.Code
	r.HTTPCode = e.HTTPStatus()
	r.Message = e.Message(lang)
	return r
}

// IsSuccess reports whether the envelope carries a success code.
func (r *Response) IsSuccess() bool {
	return r.Code == 0
}

// categoryStatus maps error-code categories to HTTP statuses for
// envelopes whose code was never registered as an Errno.
var categoryStatus = map[int]int{
	errors.CategoryRequest:    http.StatusBadRequest,
	errors.CategoryAuth:       http.StatusUnauthorized,
	errors.CategoryPermission: http.StatusForbidden,
	errors.CategoryResource:   http.StatusNotFound,
	errors.CategoryConflict:   http.StatusConflict,
	errors.CategoryRateLimit:  http.StatusTooManyRequests,
	errors.CategoryTimeout:    http.StatusGatewayTimeout,
	errors.CategoryNetwork:    http.StatusServiceUnavailable,
}

// HTTPStatus resolves the HTTP status for the envelope: the explicit
// HTTPCode when set, otherwise the registered errno, otherwise the
// code category.
func (r *Response) HTTPStatus() int {
	if r.HTTPCode != 0 {
		return r.HTTPCode
	}
	if r.Code == 0 {
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}
	if status, ok := categoryStatus[errors.GetCategory(r.Code)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
