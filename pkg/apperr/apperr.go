// Package apperr normalises every failure shape the transport can produce into
// one discriminated AppError so callers never sniff ad hoc error shapes.
package apperr

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Kind discriminates AppError.
type Kind string

const (
	// KindValidation is a client-side, per-field failure. It never crosses the
	// wire and never reaches the notification surface.
	KindValidation Kind = "validation"
	// KindTransport is a network failure without a structured body.
	KindTransport Kind = "transport"
	// KindAPI is a structured failure body returned by the remote service.
	KindAPI Kind = "api"
)

// StatusCoder is implemented by transport errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// BodyCarrier is implemented by transport errors that carry a decoded
// structured failure body.
type BodyCarrier interface {
	ErrorBody() map[string]any
}

// AppError is the single error shape used past the transport boundary.
type AppError struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string][]string
	Form    []string
	Cause   error
}

// Error implements error.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if msg := e.Display(); msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

// Unwrap exposes the original transport error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Display returns the preferred human-readable message: the structured
// message field first, then the first validation entry. It is empty when
// neither exists and callers must use their localised fallback.
func (e *AppError) Display() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if len(e.Form) > 0 {
		return e.Form[0]
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for key := range e.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if msgs := e.Fields[key]; len(msgs) > 0 {
				return msgs[0]
			}
		}
	}
	return ""
}

// IsKind reports whether err normalises to the supplied kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Validation builds a client-side validation error from per-field messages.
func Validation(fields map[string]string) *AppError {
	out := &AppError{Kind: KindValidation, Fields: make(map[string][]string, len(fields))}
	for name, msg := range fields {
		out.Fields[name] = []string{msg}
	}
	return out
}

// Normalize converts any error returned by a request function into an
// AppError. Errors carrying a structured body become KindAPI; everything else
// is KindTransport with no display message.
func Normalize(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	status := 0
	var coder StatusCoder
	if errors.As(err, &coder) {
		status = coder.StatusCode()
	}

	var carrier BodyCarrier
	if errors.As(err, &carrier) {
		if body := carrier.ErrorBody(); len(body) > 0 {
			out := FromBody(body)
			out.Status = status
			out.Cause = err
			return out
		}
	}

	return &AppError{Kind: KindTransport, Status: status, Cause: err}
}

// FromBody extracts message, error and errors entries from a decoded failure
// body. Strings are sanitised because they are shown verbatim.
func FromBody(body map[string]any) *AppError {
	out := &AppError{Kind: KindAPI}
	if msg := sanitize(stringField(body, "message")); msg != "" {
		out.Message = msg
	} else if msg := sanitize(stringField(body, "error")); msg != "" {
		out.Message = msg
	} else if nested, ok := body["error"].(map[string]any); ok {
		out.Message = sanitize(stringField(nested, "message"))
	}

	switch errs := body["errors"].(type) {
	case []any:
		for _, entry := range errs {
			if msg := sanitize(entryMessage(entry)); msg != "" {
				out.Form = append(out.Form, msg)
			}
		}
	case map[string]any:
		out.Fields = make(map[string][]string, len(errs))
		for field, raw := range errs {
			for _, msg := range messages(raw) {
				if msg = sanitize(msg); msg != "" {
					out.Fields[field] = append(out.Fields[field], msg)
				}
			}
		}
		if len(out.Fields) == 0 {
			out.Fields = nil
		}
	}
	return out
}

func stringField(body map[string]any, key string) string {
	if body == nil {
		return ""
	}
	s, _ := body[key].(string)
	return strings.TrimSpace(s)
}

func entryMessage(entry any) string {
	switch v := entry.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"message", "msg", "error"} {
			if s := stringField(v, key); s != "" {
				return s
			}
		}
	}
	return ""
}

func messages(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s := entryMessage(entry); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

var stripPolicy = bluemonday.StrictPolicy()

func sanitize(msg string) string {
	if msg == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(msg)))
}
