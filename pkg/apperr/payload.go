package apperr

import (
	"strconv"
	"strings"
)

// Routed holds server messages split between known form fields and the
// form-level summary.
type Routed struct {
	Fields map[string][]string
	Form   []string
}

// First returns the first message per field, the shape forms display.
func (r Routed) First() map[string]string {
	if len(r.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(r.Fields))
	for name, msgs := range r.Fields {
		if len(msgs) > 0 {
			out[name] = msgs[0]
		}
	}
	return out
}

// Route assigns server field errors to the supplied form field names.
// Paths may be dotted, slash separated or JSON pointers and may be wrapped
// in body/request/payload/data segments. Anything that does not resolve to a
// known field is kept as a form-level message so it is never lost.
func Route(fields []string, payload map[string][]string) Routed {
	routed := Routed{Fields: make(map[string][]string)}
	known := knownPaths(fields)

	for raw, msgs := range payload {
		msgs = dedupe(msgs)
		if len(msgs) == 0 {
			continue
		}
		target := resolvePath(raw, known)
		if target == "" {
			routed.Form = append(routed.Form, msgs...)
			continue
		}
		routed.Fields[target] = append(routed.Fields[target], msgs...)
	}

	if len(routed.Fields) == 0 {
		routed.Fields = nil
	}
	routed.Form = dedupe(routed.Form)
	return routed
}

// RouteError is Route applied to the field map of an AppError. Form-level
// entries of the error are carried over unchanged.
func RouteError(err *AppError, fields []string) Routed {
	if err == nil {
		return Routed{}
	}
	routed := Route(fields, err.Fields)
	routed.Form = dedupe(append(append([]string(nil), err.Form...), routed.Form...))
	return routed
}

func knownPaths(fields []string) map[string]struct{} {
	out := make(map[string]struct{}, len(fields))
	for _, name := range fields {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		parts := strings.Split(name, ".")
		for i := 1; i <= len(parts); i++ {
			out[strings.Join(parts[:i], ".")] = struct{}{}
		}
	}
	return out
}

func dedupe(msgs []string) []string {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]string, 0, len(msgs))
	seen := make(map[string]struct{}, len(msgs))
	for _, msg := range msgs {
		msg = strings.TrimSpace(msg)
		if msg == "" {
			continue
		}
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}
		out = append(out, msg)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolvePath(raw string, known map[string]struct{}) string {
	if formLevel(raw) {
		return ""
	}
	segments := splitPath(raw)
	if len(segments) == 0 {
		return ""
	}

	unwrapped := unwrap(segments)
	best := ""
	for _, candidate := range [][]string{segments, unwrapped, dropIndexes(segments), dropIndexes(unwrapped)} {
		match := longestPrefix(candidate, known)
		if depth(match) > depth(best) {
			best = match
		}
	}
	return best
}

func depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, ".") + 1
}

func splitPath(raw string) []string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// JSON pointer escapes
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		out = append(out, part)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body": {}, "request": {}, "payload": {}, "data": {}, "attributes": {},
}

func unwrap(segments []string) []string {
	for len(segments) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(segments[0])]; !ok {
			break
		}
		segments = segments[1:]
	}
	return segments
}

func dropIndexes(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func longestPrefix(segments []string, known map[string]struct{}) string {
	for end := len(segments); end > 0; end-- {
		candidate := strings.Join(segments[:end], ".")
		if _, ok := known[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func formLevel(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	}
	return false
}
