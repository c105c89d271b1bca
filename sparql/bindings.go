package sparql

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/knakk/rdf"
	"github.com/knakk/sparql"
)

// ErrOutOfRange is returned by Select and First when no row qualifies. It is not part of
// the protocol error kinds.
var ErrOutOfRange = errors.New("no matching binding")

// Kind is the term type of a bound value, as written in SPARQL JSON results.
type Kind string

const (
	KindIRI          Kind = "uri"
	KindLiteral      Kind = "literal"
	KindTypedLiteral Kind = "typed-literal"
	KindBlankNode    Kind = "bnode"
)

// Value is one bound value. Language and Datatype are never both set.
type Value struct {
	Kind     Kind   `json:"type"`
	Value    string `json:"value"`
	Language string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// String renders the value in N-Triples term syntax.
func (v Value) String() string {
	switch v.Kind {
	case KindIRI:
		return "<" + v.Value + ">"
	case KindBlankNode:
		return "_:" + v.Value
	}
	literal := strconv.Quote(v.Value)
	switch {
	case v.Language != "":
		return literal + "@" + v.Language
	case v.Datatype != "":
		return literal + "^^<" + v.Datatype + ">"
	}
	return literal
}

// Term converts the value into a knakk/rdf term.
func (v Value) Term() (rdf.Term, error) {
	switch v.Kind {
	case KindIRI:
		return rdf.NewIRI(v.Value)
	case KindBlankNode:
		return rdf.NewBlank(v.Value)
	case KindLiteral, KindTypedLiteral:
		switch {
		case v.Language != "":
			return rdf.NewLangLiteral(v.Value, v.Language)
		case v.Datatype != "":
			datatype, err := rdf.NewIRI(v.Datatype)
			if err != nil {
				return nil, err
			}
			return rdf.NewTypedLiteral(v.Value, datatype), nil
		}
		return rdf.NewLiteral(v.Value)
	}
	return nil, fmt.Errorf("unknown term kind %q", v.Kind)
}

// Row maps the variables bound in one solution to their values. Unbound variables are
// absent.
type Row map[string]Value

// Bindings is the typed view of a SPARQL JSON results document.
type Bindings struct {
	// Head is the raw head block.
	Head json.RawMessage
	// Variables is nil for ASK results.
	Variables []string
	Rows      []Row
	AskResult bool

	results *sparql.Results
}

// ParseBindings projects a SPARQL 1.1 JSON results document. Only variables listed in
// head.vars are kept; without head.vars every bound key is kept.
func ParseBindings(data []byte) (*Bindings, error) {
	res, err := sparql.ParseJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	// knakk/sparql keeps only link and vars of the head
	var head struct {
		Head json.RawMessage `json:"head"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	bindings := &Bindings{
		Head:      head.Head,
		Variables: res.Head.Vars,
		AskResult: res.Boolean,
		results:   res,
	}
	for _, solution := range res.Results.Bindings {
		row := make(Row, len(solution))
		if bindings.Variables == nil {
			for name, b := range solution {
				row[name] = newValue(b.Type, b.Value, b.Lang, b.DataType)
			}
		} else {
			for _, name := range bindings.Variables {
				if b, ok := solution[name]; ok {
					row[name] = newValue(b.Type, b.Value, b.Lang, b.DataType)
				}
			}
		}
		bindings.Rows = append(bindings.Rows, row)
	}
	return bindings, nil
}

// newValue builds a bound value; a language tag wins over a datatype.
func newValue(kind string, value string, lang string, datatype string) Value {
	v := Value{Kind: Kind(kind), Value: value}
	if lang != "" {
		v.Language = lang
	} else {
		v.Datatype = datatype
	}
	return v
}

// ValuesOf returns every value bound to variable, in row order.
func (b *Bindings) ValuesOf(variable string) []Value {
	var values []Value
	for _, row := range b.Rows {
		if v, ok := row[variable]; ok {
			values = append(values, v)
		}
	}
	return values
}

// ContainsVariable reports whether any row binds variable.
func (b *Bindings) ContainsVariable(variable string) bool {
	for _, row := range b.Rows {
		if _, ok := row[variable]; ok {
			return true
		}
	}
	return false
}

// ContainsAll reports whether a single row binds every one of variables.
func (b *Bindings) ContainsAll(variables ...string) bool {
	for _, row := range b.Rows {
		if row.binds(variables) {
			return true
		}
	}
	return false
}

// Select returns the rows binding every require variable and none of the forbid
// variables. It returns ErrOutOfRange when no row qualifies.
func (b *Bindings) Select(require []string, forbid []string) ([]Row, error) {
	var rows []Row
	for _, row := range b.Rows {
		if row.binds(require) && !row.bindsAny(forbid) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, ErrOutOfRange
	}
	return rows, nil
}

// First returns the first row Select would return.
func (b *Bindings) First(require []string, forbid []string) (Row, error) {
	rows, err := b.Select(require, forbid)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// Solutions returns the rows as knakk/rdf terms. Bindings that do not form a valid term
// are left out of their row.
func (b *Bindings) Solutions() []map[string]rdf.Term {
	if b.results == nil {
		return nil
	}
	return b.results.Solutions()
}

func (r Row) binds(variables []string) bool {
	for _, v := range variables {
		if _, ok := r[v]; !ok {
			return false
		}
	}
	return true
}

func (r Row) bindsAny(variables []string) bool {
	for _, v := range variables {
		if _, ok := r[v]; ok {
			return true
		}
	}
	return false
}
