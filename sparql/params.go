package sparql

import (
	"strings"
)

// Params is a multimap of request parameters that remembers the order in which keys
// were first added, so encoded requests are reproducible byte for byte.
type Params struct {
	keys   []string
	values map[string][]string
}

// NewParams returns an empty multimap.
func NewParams() *Params {
	return &Params{values: make(map[string][]string)}
}

// Add appends value to key.
func (p *Params) Add(key string, values ...string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = append(p.values[key], values...)
}

// Del removes key and reports whether it was present.
func (p *Params) Del(key string) bool {
	if _, ok := p.values[key]; !ok {
		return false
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the values of key in insertion order.
func (p *Params) Get(key string) []string {
	return p.values[key]
}

// Has reports whether key is present.
func (p *Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Len returns the number of keys.
func (p *Params) Len() int {
	return len(p.keys)
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	clone := NewParams()
	for _, k := range p.keys {
		clone.Add(k, p.values[k]...)
	}
	return clone
}

// Encode joins key=value pairs with '&', percent-encoding keys and values as UTF-8 with
// '/' left as is. Spaces become %20.
func (p *Params) Encode() string {
	var b strings.Builder
	for _, k := range p.keys {
		for _, v := range p.values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(escape(k))
			b.WriteByte('=')
			b.WriteString(escape(v))
		}
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes every byte except unreserved characters and '/'.
// url.QueryEscape turns spaces into '+' and url.PathEscape keeps ':' '@' '&' '=' '+',
// neither matches the form endpoints expect here.
func escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldKeep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '~', '/':
		return true
	}
	return false
}
