package query

import (
	"net/url"
	"sort"
	"strings"
)

// Key names a cache partition. Keys are hierarchical: invalidating a key
// invalidates every key it prefixes.
type Key []string

// String renders the key with "/" separators.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// With returns a copy of k extended with parts.
func (k Key) With(parts ...string) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

// HasPrefix reports whether p is a prefix of k. The empty key prefixes
// everything.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both keys have the same parts.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// itemKey and listKey share the entity key as prefix so list and detail
// entries invalidate together.
func itemKey(base Key, id string) Key {
	return base.With("item", id)
}

func listKey(base Key, params map[string]string) Key {
	if len(params) == 0 {
		return base.With("list")
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, k := range keys {
		values.Set(k, params[k])
	}
	return base.With("list", values.Encode())
}
