package sparql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sparql-client/base"
	rdfgraph "sparql-client/rdf"

	"github.com/antchfx/xmlquery"
	"github.com/deiu/rdf2go"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/exp/slices"
)

// QueryResult wraps a successful response and converts it on demand.
type QueryResult struct {
	raw    *RawResponse
	logger *slog.Logger
}

func newQueryResult(raw *RawResponse, logger *slog.Logger) *QueryResult {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryResult{raw: raw, logger: logger}
}

// Raw returns the underlying response.
func (r *QueryResult) Raw() *RawResponse { return r.raw }

// Info returns a copy of the response headers, keyed case-insensitively.
func (r *QueryResult) Info() base.Header { return r.raw.Header.Clone() }

// URL returns the final URL of the exchange.
func (r *QueryResult) URL() string { return r.raw.URL }

// StatusCode returns the HTTP status.
func (r *QueryResult) StatusCode() int { return r.raw.Status }

// Format returns the serialization that was requested.
func (r *QueryResult) Format() Format { return r.raw.Format }

// ContentType returns the Content-Type the endpoint answered with.
func (r *QueryResult) ContentType() string { return r.raw.Header.Get(headerContentType) }

// Bytes returns the response body.
func (r *QueryResult) Bytes() []byte { return r.raw.Body }

// interpreter maps a family of returned media types to a decoder and to the requested
// formats that family satisfies.
type interpreter struct {
	name     string
	mimes    []string
	satisfy  []Format
	decode   func(r *QueryResult) (any, error)
	optional bool
}

// checked in order, first match wins
var interpreters = []interpreter{
	{name: "XML", mimes: mimeSPARQLXML, satisfy: []Format{XML}, decode: decodeXML},
	{name: "XML", mimes: mimeXML, satisfy: []Format{XML}, decode: decodeXML},
	{name: "JSON", mimes: mimeSPARQLJSON, satisfy: []Format{JSON}, decode: decodeJSON},
	{name: "RDF/XML", mimes: mimeRDFXML, satisfy: []Format{RDF, XML, RDFXML}, decode: decodeGraph},
	{name: "N3", mimes: mimeN3, satisfy: []Format{N3, Turtle}, decode: decodeBytes},
	{name: "CSV", mimes: mimeCSV, satisfy: []Format{CSV}, decode: decodeBytes},
	{name: "TSV", mimes: mimeTSV, satisfy: []Format{TSV}, decode: decodeBytes},
	{name: "JSON-LD", mimes: mimeJSONLD, satisfy: []Format{JSONLD, JSON}, decode: decodeGraph, optional: true},
}

// Convert decodes the body according to the returned Content-Type:
//
//	sparql-results+xml, application/xml  *xmlquery.Node
//	sparql-results+json family           map[string]any
//	application/rdf+xml, ld+json         *rdf2go.Graph
//	turtle/n3, csv, tsv, anything else   []byte
//
// A media type that does not satisfy the requested format is logged, not rejected.
func (r *QueryResult) Convert() (any, error) {
	contentType := r.ContentType()
	if contentType == "" {
		r.logger.Debug("response without content type, returning bytes", "url", r.raw.URL, "sniffed", mimetype.Detect(r.raw.Body).String())
		return r.raw.Body, nil
	}
	match := r.interpreterFor(contentType)
	if match == nil {
		r.logger.Warn("unknown response content type, returning bytes", "content-type", contentType, "url", r.raw.URL)
		return r.raw.Body, nil
	}
	if !slices.Contains(match.satisfy, r.raw.Format) {
		r.logger.Warn(fmt.Sprintf("format requested was %s, but %s (%s) has been returned by the endpoint", r.raw.Format, match.name, contentType),
			"format", r.raw.Format, "content-type", contentType)
	}
	if match.optional && !jsonLDAvailable {
		r.logger.Warn("JSON-LD support is not available in this build, returning bytes", "content-type", contentType)
		return r.raw.Body, nil
	}
	return match.decode(r)
}

func (r *QueryResult) interpreterFor(contentType string) *interpreter {
	for i := range interpreters {
		if containsAny(contentType, interpreters[i].mimes) {
			return &interpreters[i]
		}
	}
	return nil
}

// ConvertXML parses the body as an XML document.
func (r *QueryResult) ConvertXML() (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(r.raw.Body))
	if err != nil {
		return nil, r.decodeError(err)
	}
	return doc, nil
}

// ConvertJSON parses the body as a JSON object.
func (r *QueryResult) ConvertJSON() (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(r.raw.Body, &doc); err != nil {
		return nil, r.decodeError(err)
	}
	return doc, nil
}

// ConvertGraph parses the body as an RDF graph. Without a Content-Type the body is
// sniffed: XML is read as RDF/XML and JSON as JSON-LD, anything else falls back to the
// media type of the requested format.
func (r *QueryResult) ConvertGraph() (*rdf2go.Graph, error) {
	contentType := r.ContentType()
	if contentType == "" {
		contentType = r.sniffGraphType()
	}
	if containsAny(contentType, mimeJSONLD) && !jsonLDAvailable {
		return nil, unsupportedFormat(JSONLD)
	}
	graph, err := rdfgraph.ParseGraph(bytes.NewReader(r.raw.Body), contentType)
	if err != nil {
		return nil, r.decodeError(err)
	}
	return graph, nil
}

func (r *QueryResult) sniffGraphType() string {
	detected := mimetype.Detect(r.raw.Body)
	for m := detected; m != nil; m = m.Parent() {
		switch {
		case m.Is("text/xml"):
			return mimeRDFXML[0]
		case m.Is("application/json"):
			return mimeJSONLD[0]
		}
	}
	r.logger.Debug("no graph syntax sniffed, assuming the requested format", "sniffed", detected.String(), "format", r.raw.Format)
	if mimes := MIMETypes(r.raw.Format); len(mimes) > 0 {
		return mimes[0]
	}
	return ""
}

// Bindings projects a SPARQL JSON results body.
func (r *QueryResult) Bindings() (*Bindings, error) {
	bindings, err := ParseBindings(r.raw.Body)
	if err != nil {
		return nil, r.decodeError(err)
	}
	return bindings, nil
}

// decodeError keeps the response attached to a body the client could not decode.
func (r *QueryResult) decodeError(err error) error {
	return &Error{Kind: ErrTransport, URL: r.raw.URL, Body: r.raw.Body, Err: fmt.Errorf("failed decoding response: %w", err)}
}

func decodeXML(r *QueryResult) (any, error) {
	return r.ConvertXML()
}

func decodeJSON(r *QueryResult) (any, error) {
	return r.ConvertJSON()
}

func decodeGraph(r *QueryResult) (any, error) {
	return r.ConvertGraph()
}

func decodeBytes(r *QueryResult) (any, error) {
	return r.raw.Body, nil
}
