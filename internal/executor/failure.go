package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// RequestFailure is the uniform error value for any non-success outcome of an
// outbound call.
//
// Status is 0 when no response was ever received (DNS, refused connection,
// timeout). Any other value is the HTTP status the server answered with, or
// 500 for a success response whose body could not be decoded.
type RequestFailure struct {
	Message string
	Status  int
	Body    []byte // raw error body, may be nil
	Err     error  // underlying transport or decode error, may be nil
}

func (f *RequestFailure) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", f.Status, f.Message)
}

func (f *RequestFailure) Unwrap() error { return f.Err }

// IsTransport reports whether the server was never reached.
func (f *RequestFailure) IsTransport() bool { return f.Status == 0 }

// DecodeBody unmarshals the raw error body into v.
func (f *RequestFailure) DecodeBody(v any) error {
	if len(f.Body) == 0 {
		return errors.New("empty error body")
	}
	return json.Unmarshal(f.Body, v)
}

// AsFailure extracts a *RequestFailure from err's chain.
func AsFailure(err error) (*RequestFailure, bool) {
	var f *RequestFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// StatusOf returns the failure status carried by err, or -1 when err is not a
// RequestFailure.
func StatusOf(err error) int {
	if f, ok := AsFailure(err); ok {
		return f.Status
	}
	return -1
}

// IsTransport reports whether err is a RequestFailure with the status-0 sentinel.
func IsTransport(err error) bool {
	f, ok := AsFailure(err)
	return ok && f.IsTransport()
}

// messageKeys are tried in order when reading a structured error body.
var messageKeys = []string{"error", "message", "detail"}

func transportFailure(err error) *RequestFailure {
	msg := "network error"
	if err != nil {
		msg = err.Error()
	}
	return &RequestFailure{Message: msg, Status: 0, Err: err}
}

func decodeFailure(body []byte, err error) *RequestFailure {
	return &RequestFailure{
		Message: "invalid response body",
		Status:  http.StatusInternalServerError,
		Body:    body,
		Err:     err,
	}
}

// tooLargeFailure reports a body over limit. A non-2xx answer keeps its
// status; a success one becomes 500 like any unusable success body.
func tooLargeFailure(status int, limit int64) *RequestFailure {
	if status >= 200 && status <= 299 {
		status = http.StatusInternalServerError
	}
	return &RequestFailure{
		Message: fmt.Sprintf("response body exceeds %d bytes", limit),
		Status:  status,
		Err:     ErrBodyTooLarge,
	}
}

// statusFailure classifies a non-2xx response.
func statusFailure(resp *http.Response, body []byte) *RequestFailure {
	return &RequestFailure{
		Message: failureMessage(resp.StatusCode, statusText(resp), body),
		Status:  resp.StatusCode,
		Body:    body,
	}
}

func failureMessage(status int, text string, body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		if text != "" {
			return text
		}
		return "HTTP " + strconv.Itoa(status)
	}
	for _, key := range messageKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return "HTTP " + strconv.Itoa(status)
}

// statusText returns the reason phrase the server sent, e.g. "Bad Request".
func statusText(resp *http.Response) string {
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
