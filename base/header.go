package base

import (
	"net/http"
	"strings"
)

// Header maps header field names to values, comparing names without regard to case.
// Writes that differ only in casing collapse into one entry; the last write wins.
// Names are lower-cased on every access, so a Header must be created with NewHeader.
type Header struct {
	fields map[string]string
}

// NewHeader copies an http.Header, joining multiple values of a field with ", ". A nil
// source yields an empty Header.
func NewHeader(h http.Header) Header {
	header := Header{fields: make(map[string]string, len(h))}
	for name, values := range h {
		if len(values) > 0 {
			header.Set(name, strings.Join(values, ", "))
		}
	}
	return header
}

// Set stores value under the lower-cased name.
func (h Header) Set(name string, value string) {
	h.fields[strings.ToLower(name)] = value
}

// Get returns the value for name, or "" when absent.
func (h Header) Get(name string) string {
	return h.fields[strings.ToLower(name)]
}

// Lookup returns the value for name and whether it was present.
func (h Header) Lookup(name string) (string, bool) {
	value, ok := h.fields[strings.ToLower(name)]
	return value, ok
}

// Has reports whether name is present.
func (h Header) Has(name string) bool {
	_, ok := h.fields[strings.ToLower(name)]
	return ok
}

// Del removes name and reports whether it was present.
func (h Header) Del(name string) bool {
	key := strings.ToLower(name)
	if _, ok := h.fields[key]; !ok {
		return false
	}
	delete(h.fields, key)
	return true
}

func (h Header) Len() int {
	return len(h.fields)
}

// Names returns the lower-cased field names in no particular order.
func (h Header) Names() []string {
	names := make([]string, 0, len(h.fields))
	for name := range h.fields {
		names = append(names, name)
	}
	return names
}

// Clone returns an independent copy.
func (h Header) Clone() Header {
	clone := Header{fields: make(map[string]string, len(h.fields))}
	for k, v := range h.fields {
		clone.fields[k] = v
	}
	return clone
}

// Apply sets every entry on an http.Header, replacing previous values of the same field.
func (h Header) Apply(target http.Header) {
	for name, value := range h.fields {
		target.Set(name, value)
	}
}
