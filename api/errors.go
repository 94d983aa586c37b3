package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/MrEthical07/goAuthClient/transport"
)

// Kind classifies an API failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindServer
	KindValidation
)

var (
	ErrNetwork      = errors.New("network error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrValidation   = errors.New("validation error")
	ErrUnknown      = errors.New("unknown api error")
)

const (
	// MessageUnknown is used when the backend gave no usable error text.
	MessageUnknown = "An unknown error occurred"
	// MessageNetwork is used for transport failures.
	MessageNetwork = "Network error. Please check your connection."
	// MessageSessionExpired is used when a refresh could not recover a 401.
	MessageSessionExpired = "Your session has expired. Please log in again."
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindServer:
		return ErrServer
	case KindValidation:
		return ErrValidation
	default:
		return ErrUnknown
	}
}

// KindForStatus maps an HTTP status code to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	case status == http.StatusBadRequest,
		status == http.StatusConflict,
		status == http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindUnknown
	}
}

// Error is a classified API failure.
type Error struct {
	Kind      Kind
	Status    int
	Message   string
	Fields    map[string][]string
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return MessageUnknown
}

// Unwrap exposes the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	out := []error{e.Kind.sentinel()}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// FieldErrors returns the messages recorded for field, if any.
func (e *Error) FieldErrors(field string) []string {
	if e == nil || e.Fields == nil {
		return nil
	}
	return e.Fields[field]
}

// NewValidationError builds a validation error from a field map without a
// round trip to the backend. Fields are rendered in sorted order.
func NewValidationError(fields map[string][]string) *Error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(fields[k], ", "))
	}

	msg := strings.Join(parts, "; ")
	if msg == "" {
		msg = MessageUnknown
	}
	return &Error{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: msg,
		Fields:  fields,
	}
}

// Classify interprets an error response body.
func Classify(status int, body []byte) *Error {
	msg, fields := FlattenBody(body)
	if msg == "" {
		msg = MessageUnknown
	}
	return &Error{
		Kind:    KindForStatus(status),
		Status:  status,
		Message: msg,
		Fields:  fields,
	}
}

// FromTransport classifies an error returned by http.Client.Do.
func FromTransport(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, transport.ErrRefreshFailed) {
		return &Error{
			Kind:    KindUnauthorized,
			Status:  http.StatusUnauthorized,
			Message: MessageSessionExpired,
			Err:     err,
		}
	}
	return &Error{
		Kind:    KindNetwork,
		Message: MessageNetwork,
		Err:     err,
	}
}

// Message returns the user-facing text for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}

// FlattenBody turns a backend error body into a single message and, when the
// body is a field map, the per-field messages. Precedence: "detail", then
// "non_field_errors" joined with ", ", then an envelope "message", then every
// key rendered as "key: a, b" and joined with "; " in body order.
func FlattenBody(body []byte) (string, map[string][]string) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return "", nil
	}

	entries, err := orderedObject(body)
	if err != nil {
		return "", nil
	}

	index := make(map[string]json.RawMessage, len(entries))
	for _, e := range entries {
		index[e.key] = e.value
	}

	if raw, ok := index["detail"]; ok {
		if s := renderValue(raw); s != "" {
			return s, nil
		}
	}

	fields := make(map[string][]string, len(entries))
	for _, e := range entries {
		fields[e.key] = valueList(e.value)
	}

	if raw, ok := index["non_field_errors"]; ok {
		return strings.Join(valueList(raw), ", "), fields
	}

	if raw, ok := index["message"]; ok {
		if _, enveloped := index["status"]; enveloped {
			if s := renderValue(raw); s != "" {
				return s, nil
			}
		}
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.key+": "+strings.Join(fields[e.key], ", "))
	}
	return strings.Join(parts, "; "), fields
}

type objectEntry struct {
	key   string
	value json.RawMessage
}

// orderedObject decodes the top-level members of a JSON object preserving
// their order.
func orderedObject(body []byte) ([]objectEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object")
	}

	var out []objectEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		out = append(out, objectEntry{key: key, value: value})
	}
	return out, nil
}

func valueList(raw json.RawMessage) []string {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, renderValue(item))
		}
		return out
	}
	return []string{renderValue(raw)}
}

func renderValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
