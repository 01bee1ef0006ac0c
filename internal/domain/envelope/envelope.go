// Package envelope builds the gateway-compatible response envelope.
// Every handler result and every fault funnels through this single seam.
package envelope

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the transport envelope the gateway expects back from the
// proxy. Body is a JSON-encoded Payload.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers"`
}

// Payload is the decoded body of a Response. Exactly one of Data and Error
// is present, gated by Success.
type Payload struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Success wraps handler data in a 200 envelope with a UTC timestamp.
func Success(data map[string]any) Response {
	return build(http.StatusOK, Payload{
		Success:   true,
		Data:      data,
		Timestamp: timestamp(),
	})
}

// Failure wraps an error message in a client-error envelope (status 400).
func Failure(message string) Response {
	return FailureWithStatus(message, http.StatusBadRequest)
}

// FailureWithStatus wraps an error message with an explicit status code
// (e.g. 429 for throttling, 500 for unexpected faults).
func FailureWithStatus(message string, status int) Response {
	return build(status, Payload{
		Success:   false,
		Error:     message,
		Timestamp: timestamp(),
	})
}

func build(status int, payload Payload) Response {
	body, err := json.Marshal(payload)
	if err != nil {
		// Payload is a plain struct over JSON-safe types; Marshal cannot
		// fail for handler data that itself round-tripped through JSON.
		// Degrade to a minimal error body rather than panic.
		body = []byte(`{"success":false,"error":"failed to encode response body","timestamp":"` + timestamp() + `"}`)
		status = http.StatusInternalServerError
	}
	return Response{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// timestamp renders the current UTC time in ISO-8601 with a trailing "Z",
// microsecond precision.
func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}

// Decode parses the JSON body of a Response. Used by tests and by the CLI
// when unwrapping the nested gateway result.
func Decode(r Response) (Payload, error) {
	var p Payload
	err := json.Unmarshal([]byte(r.Body), &p)
	return p, err
}
