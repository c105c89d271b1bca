package sparql

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Format is a serialization the client can ask the endpoint for.
type Format string

const (
	XML    Format = "xml"
	JSON   Format = "json"
	Turtle Format = "turtle"
	N3     Format = "n3"
	RDF    Format = "rdf"
	RDFXML Format = "rdf+xml"
	CSV    Format = "csv"
	TSV    Format = "tsv"
	JSONLD Format = "json-ld"
)

// media type lists, primary type first
var (
	mimeSPARQLXML  = []string{"application/sparql-results+xml"}
	mimeSPARQLJSON = []string{"application/sparql-results+json", "application/json", "text/javascript", "application/javascript"}
	mimeXML        = []string{"application/xml"}
	mimeRDFXML     = []string{"application/rdf+xml"}
	mimeTurtle     = []string{"application/turtle", "text/turtle"}
	mimeN3         = append(slices.Clone(mimeTurtle), "text/rdf+n3", "application/n-triples", "application/n3", "text/n3")
	mimeCSV        = []string{"text/csv"}
	mimeTSV        = []string{"text/tab-separated-values"}
	mimeJSONLD     = []string{"application/ld+json", "application/x-json+ld"}
	mimeAll        = []string{"*/*"}
)

var allFormats = []Format{XML, JSON, Turtle, N3, RDF, RDFXML, CSV, TSV, JSONLD}

// Formats lists the serializations supported by this build.
func Formats() []Format {
	formats := make([]Format, 0, len(allFormats))
	for _, f := range allFormats {
		if Supported(f) {
			formats = append(formats, f)
		}
	}
	return formats
}

// Supported reports whether f can be requested. JSON-LD depends on the build.
func Supported(f Format) bool {
	if f == JSONLD {
		return jsonLDAvailable
	}
	return slices.Contains(allFormats, f)
}

// ParseFormat normalizes a symbolic format name.
func ParseFormat(value string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(value)))
	if !slices.Contains(allFormats, f) {
		return "", false
	}
	return f, true
}

// MIMETypes returns the media types used to negotiate f, primary type first.
// The returned slice is a copy.
func MIMETypes(f Format) []string {
	var list []string
	switch f {
	case XML:
		list = append(slices.Clone(mimeSPARQLXML), mimeXML...)
	case JSON:
		list = mimeSPARQLJSON
	case CSV:
		list = mimeCSV
	case TSV:
		list = mimeTSV
	case Turtle:
		list = mimeTurtle
	case N3:
		list = mimeN3
	case RDF, RDFXML:
		list = mimeRDFXML
	case JSONLD:
		if jsonLDAvailable {
			list = mimeJSONLD
		}
	}
	return slices.Clone(list)
}

// LooksLike reports whether the media type (parameters allowed) belongs to f.
func LooksLike(mime string, f Format) bool {
	return containsAny(mime, MIMETypes(f))
}

// containsAny mirrors how endpoints are matched in the wild: a case-insensitive substring
// test, so "Application/SPARQL-Results+JSON; charset=utf-8" still matches.
func containsAny(contentType string, candidates []string) bool {
	contentType = strings.ToLower(contentType)
	return slices.ContainsFunc(candidates, func(mime string) bool {
		return strings.Contains(contentType, mime)
	})
}
