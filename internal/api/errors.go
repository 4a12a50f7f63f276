package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies a failed backend exchange.
type ErrorKind int

const (
	// KindConnectivity: the request never produced an HTTP response.
	KindConnectivity ErrorKind = iota + 1
	// KindCredential: HTTP 401 from the token endpoint.
	KindCredential
	// KindValidation: 4xx with a structured field-error body.
	KindValidation
	// KindServer: any other HTTP error.
	KindServer
)

// Error is the only error type returned by Client methods. Callers decide
// user-facing wording from Kind; raw server payloads for the credential case
// must never reach the user.
type Error struct {
	Kind   ErrorKind
	Status int
	Fields map[string][]string
	cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConnectivity:
		return fmt.Sprintf("no response from server: %v", e.cause)
	case KindCredential:
		return "credentials rejected"
	case KindValidation:
		return fmt.Sprintf("validation failed: %s", e.FieldMessages())
	default:
		return fmt.Sprintf("server returned status %d", e.Status)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// FieldMessages concatenates every field-level message into a single line,
// fields in stable order.
func (e *Error) FieldMessages() string {
	if len(e.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, strings.Join(e.Fields[k], " "))
	}
	return strings.Join(parts, " ")
}

// parseFieldErrors decodes a DRF-style error body: an object whose values are
// either a message string or a list of message strings. Anything else yields
// no fields.
func parseFieldErrors(body []byte) map[string][]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return nil
	}

	fields := make(map[string][]string, len(raw))
	for key, val := range raw {
		var single string
		if err := json.Unmarshal(val, &single); err == nil {
			fields[key] = []string{single}
			continue
		}
		var many []string
		if err := json.Unmarshal(val, &many); err == nil && len(many) > 0 {
			fields[key] = many
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
