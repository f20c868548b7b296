package entity

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/validation"
)

// Shape maps each form field to candidate source keys. Candidates are tried
// in order, compared case-insensitively, may use dotted paths into nested
// objects, and the first non-empty value wins.
type Shape map[string][]string

// Build turns raw entity data into form defaults. Fields with no non-empty
// candidate are left out so the form seeds its typed zero.
func (s Shape) Build(raw map[string]any) model.Values {
	out := make(model.Values, len(s))
	for field, candidates := range s {
		if len(candidates) == 0 {
			candidates = []string{field}
		}
		for _, candidate := range candidates {
			value, ok := lookup(raw, candidate)
			if ok && !validation.IsEmpty(value) {
				out[field] = value
				break
			}
		}
	}
	return out
}

// Func adapts the shape to Config.BuildDefaults.
func (s Shape) Func() func(map[string]any) model.Values {
	return s.Build
}

func lookup(raw map[string]any, path string) (any, bool) {
	current := any(raw)
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = fold(node, segment)
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func fold(node map[string]any, key string) (any, bool) {
	if value, ok := node[key]; ok {
		return value, true
	}
	// case-insensitive matches resolve to the first key in sorted order
	var (
		match string
		found bool
	)
	for candidate := range node {
		if strings.EqualFold(candidate, key) && (!found || candidate < match) {
			match, found = candidate, true
		}
	}
	if !found {
		return nil, false
	}
	return node[match], true
}

// LabelFrom returns an item label function reading the first non-empty
// candidate key. It accepts model.Values and plain maps.
func LabelFrom(candidates ...string) func(item any) string {
	shape := Shape{"label": candidates}
	return func(item any) string {
		raw := asMap(item)
		if raw == nil {
			return ""
		}
		value, ok := shape.Build(raw)["label"]
		if !ok {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

// JoinLabel returns an item label function joining the non-empty values of
// fields with spaces, e.g. first and last name.
func JoinLabel(fields ...string) func(item any) string {
	return func(item any) string {
		raw := asMap(item)
		parts := make([]string, 0, len(fields))
		for _, field := range fields {
			if value, ok := lookup(raw, field); ok && !validation.IsEmpty(value) {
				parts = append(parts, strings.TrimSpace(fmt.Sprint(value)))
			}
		}
		return strings.Join(parts, " ")
	}
}

func asMap(item any) map[string]any {
	switch v := item.(type) {
	case model.Values:
		return v
	case map[string]any:
		return v
	}
	return nil
}
