package rdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/deiu/rdf2go"
	"github.com/knakk/rdf"
)

// media types ParseGraph understands
const (
	MIMETurtle   = "text/turtle"
	MIMENTriples = "application/n-triples"
	MIMERDFXML   = "application/rdf+xml"
	MIMEJSONLD   = "application/ld+json"
)

// XSDString is the datatype of plain literals, omitted when converting terms.
const XSDString = "http://www.w3.org/2001/XMLSchema#string"

// ErrUnsupportedSerialization is returned by ParseGraph for media types it cannot decode.
var ErrUnsupportedSerialization = errors.New("unsupported graph serialization")

var fixBooleanRegex = regexp.MustCompile(`(true|false)(\s*)]`)

// FixBooleansInRDF works around rdf2go's turtle parser, which fails on a boolean literal
// directly followed by the closing bracket of a blank node property list.
func FixBooleansInRDF(data []byte) []byte {
	return fixBooleanRegex.ReplaceAll(data, []byte("${1} ; ]"))
}

// ParseGraph reads a serialized RDF graph. The media type may carry parameters.
// It returns the parsed graph or ErrUnsupportedSerialization.
func ParseGraph(reader io.Reader, mime string) (*rdf2go.Graph, error) {
	mime = strings.ToLower(mime)
	switch {
	case strings.Contains(mime, "rdf+xml"):
		return decodeTriples(reader, rdf.RDFXML)
	case strings.Contains(mime, "n-triples"):
		return decodeTriples(reader, rdf.NTriples)
	case strings.Contains(mime, "ld+json"), strings.Contains(mime, "json+ld"):
		graph := rdf2go.NewGraph("")
		if err := graph.Parse(reader, MIMEJSONLD); err != nil {
			return nil, fmt.Errorf("failed parsing JSON-LD: %w", err)
		}
		return graph, nil
	case strings.Contains(mime, "turtle"), strings.Contains(mime, "n3"):
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, err
		}
		graph := rdf2go.NewGraph("")
		if err := graph.Parse(bytes.NewReader(FixBooleansInRDF(data)), MIMETurtle); err != nil {
			return nil, fmt.Errorf("failed parsing turtle: %w", err)
		}
		return graph, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedSerialization, mime)
}

// decodeTriples decodes with knakk/rdf, which covers the syntaxes rdf2go lacks.
func decodeTriples(reader io.Reader, format rdf.Format) (*rdf2go.Graph, error) {
	triples, err := rdf.NewTripleDecoder(reader, format).DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("failed decoding triples: %w", err)
	}
	return FromTriples(triples), nil
}

// FromTriples copies knakk/rdf triples into a new rdf2go graph.
func FromTriples(triples []rdf.Triple) *rdf2go.Graph {
	graph := rdf2go.NewGraph("")
	for _, t := range triples {
		graph.Add(rdf2go.NewTriple(ToGraphTerm(t.Subj), ToGraphTerm(t.Pred), ToGraphTerm(t.Obj)))
	}
	return graph
}

// ToGraphTerm converts a knakk/rdf term into its rdf2go equivalent.
func ToGraphTerm(term rdf.Term) rdf2go.Term {
	switch t := term.(type) {
	case rdf.IRI:
		return rdf2go.NewResource(t.String())
	case rdf.Blank:
		return rdf2go.NewBlankNode(t.String())
	case rdf.Literal:
		if lang := t.Lang(); lang != "" {
			return rdf2go.NewLiteralWithLanguage(t.String(), lang)
		}
		if datatype := t.DataType.String(); datatype != "" && datatype != XSDString {
			return rdf2go.NewLiteralWithDatatype(t.String(), rdf2go.NewResource(datatype))
		}
		return rdf2go.NewLiteral(t.String())
	}
	return rdf2go.NewLiteral(term.String())
}

// Turtle serializes a graph as turtle.
func Turtle(graph *rdf2go.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := graph.Serialize(&buf, MIMETurtle); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
