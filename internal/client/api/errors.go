package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrUnavailable marks transport-level failures: no HTTP response was
	// received at all.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized matches any *Error of KindUnauthorized.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrGone matches any *Error of KindGone.
	ErrGone = errors.New("content revoked")
	// ErrNotFound matches any *Error with status 404.
	ErrNotFound = errors.New("not found")
)

// Kind classifies a server error.
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindGone
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindGone:
		return "gone"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "server"
	}
}

// Error is the normalised shape of every non-2xx response.
type Error struct {
	Status     int                 `json:"status"`
	StatusText string              `json:"statusText"`
	Detail     map[string][]string `json:"detail,omitempty"`
	Kind       Kind                `json:"-"`
}

func (e *Error) Error() string {
	if len(e.Detail) == 0 {
		return fmt.Sprintf("%d %s", e.Status, e.StatusText)
	}

	fields := make([]string, 0, len(e.Detail))
	for f := range e.Detail {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e.Detail[f], "; "))
	}
	return fmt.Sprintf("%d %s (%s)", e.Status, e.StatusText, strings.Join(parts, ", "))
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrGone:
		return e.Kind == KindGone
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// FieldErrors returns the field→messages mapping of a validation error.
func (e *Error) FieldErrors() map[string][]string {
	return e.Detail
}

// KindOf returns the kind of err, or KindServer if err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindServer
}

// IsConnectivity reports whether err means the server could not be reached.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusGone:
		return KindGone
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	default:
		return KindServer
	}
}

// newError normalises a failed response. 400 and 410 bodies are parsed the
// same way; every other status only reports status and status text.
func newError(status int, body []byte) *Error {
	e := &Error{Status: status, StatusText: http.StatusText(status), Kind: kindForStatus(status)}

	if status != http.StatusBadRequest && status != http.StatusGone {
		return e
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
			e.StatusText = text
		}
		return e
	}

	switch v := raw.(type) {
	case string:
		e.StatusText = v
	case map[string]any:
		detail, ok := v["detail"]
		if !ok {
			e.Detail = fieldErrors(v)
			break
		}
		switch d := detail.(type) {
		case string:
			e.StatusText = d
		case map[string]any:
			e.Detail = fieldErrors(d)
		}
	case []any:
		if msgs := messages(v); len(msgs) > 0 {
			e.StatusText = strings.Join(msgs, "; ")
		}
	}
	return e
}

func fieldErrors(m map[string]any) map[string][]string {
	out := make(map[string][]string, len(m))
	for field, v := range m {
		switch msg := v.(type) {
		case string:
			out[field] = []string{msg}
		case []any:
			out[field] = messages(msg)
		default:
			b, _ := json.Marshal(msg)
			out[field] = []string{string(b)}
		}
	}
	return out
}

func messages(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
			continue
		}
		b, _ := json.Marshal(item)
		out = append(out, string(b))
	}
	return out
}
