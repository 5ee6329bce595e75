package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrUnauthenticated is wrapped by the *Error returned for a 401. By the
// time a caller sees it the session has already been torn down.
var ErrUnauthenticated = errors.New("api: authentication rejected")

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Message    string
	Payload    map[string]any

	cause error
}

func (e *Error) Error() string {
	if code := e.Code(); code != "" && code != e.Message {
		return fmt.Sprintf("%s (status %d, code %s)", e.Message, e.StatusCode, code)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Unwrap exposes ErrUnauthenticated for 401 responses.
func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the machine-readable error code from the payload. The
// backend uses both "error" and "code"; "code" wins when both are set.
// Values containing spaces are prose, not codes, and are skipped.
func (e *Error) Code() string {
	if e == nil {
		return ""
	}
	for _, key := range []string{"code", "error"} {
		if s, ok := e.Payload[key].(string); ok && s != "" && !strings.Contains(s, " ") {
			return s
		}
	}
	return ""
}

// Details returns the validation messages carried in the payload.
// Field errors are reported as "field: message".
func (e *Error) Details() []string {
	if e == nil || len(e.Payload) == 0 {
		return nil
	}

	var out []string
	for _, key := range []string{"errors", "details", "non_field_errors"} {
		out = append(out, flattenMessages("", e.Payload[key])...)
	}

	fields := make([]string, 0, len(e.Payload))
	for k, v := range e.Payload {
		if _, ok := v.([]any); !ok {
			continue
		}
		switch k {
		case "errors", "details", "non_field_errors":
			continue
		}
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		out = append(out, flattenMessages(k, e.Payload[k])...)
	}
	return out
}

// ErrorCode reports the structured code to the logger.
func (e *Error) ErrorCode() string {
	return e.Code()
}

// Status reports the HTTP status to the logger.
func (e *Error) Status() int {
	return e.StatusCode
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// CodeOf returns the structured error code carried by err, if any.
func CodeOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code()
	}
	return ""
}

// TransportError means no HTTP response was obtained. It carries no
// status code.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func flattenMessages(prefix string, v any) []string {
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if prefix != "" {
			s = prefix + ": " + s
		}
		out = append(out, s)
	}

	switch t := v.(type) {
	case string:
		add(t)
	case []any:
		for _, item := range t {
			switch it := item.(type) {
			case string:
				add(it)
			case map[string]any:
				if msg := messageFrom(it); msg != "" {
					add(msg)
				}
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			name := k
			if prefix != "" {
				name = prefix + "." + k
			}
			out = append(out, flattenMessages(name, t[k])...)
		}
	}
	return out
}

var messageKeys = []string{"detail", "message", "error_description", "error"}

func messageFrom(payload map[string]any) string {
	for _, key := range messageKeys {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	if list, ok := payload["non_field_errors"].([]any); ok && len(list) > 0 {
		if s, ok := list[0].(string); ok {
			return s
		}
	}
	return ""
}

func genericMessage(status int) string {
	text := http.StatusText(status)
	if text == "" {
		text = "unknown status"
	}
	return fmt.Sprintf("request failed with status %d (%s)", status, text)
}

// newError builds the typed error for a non-2xx response body. It never
// fails: bodies that are not JSON objects or arrays get a generic message.
func newError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}

	var decoded any
	if len(body) > 0 && json.Unmarshal(body, &decoded) == nil {
		switch v := decoded.(type) {
		case map[string]any:
			e.Payload = v
			e.Message = messageFrom(v)
		case []any:
			e.Payload = map[string]any{"errors": v}
			if msgs := flattenMessages("", v); len(msgs) > 0 {
				e.Message = msgs[0]
			}
		}
	}

	if e.Message == "" {
		e.Message = genericMessage(status)
	}
	if status == http.StatusUnauthorized {
		e.cause = ErrUnauthenticated
	}
	return e
}
