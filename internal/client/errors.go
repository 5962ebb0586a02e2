package client

import (
	"encoding/json"
	"fmt"
)

// GenericFailureMessage is used when the server gives no usable detail.
const GenericFailureMessage = "Request failed"

// RequestFailedError is returned for every non-2xx response.
type RequestFailedError struct {
	StatusCode int
	Detail     string
}

func (e *RequestFailedError) Error() string {
	return e.Detail
}

func newRequestFailed(status int, body []byte) *RequestFailedError {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	detail := GenericFailureMessage
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			detail = s
		}
	}
	return &RequestFailedError{StatusCode: status, Detail: detail}
}

// ValidationError is a local input check that failed before any request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
