package sparql

import (
	"bytes"
	"net/http"
	"sparql-client/base"
	"testing"

	"github.com/antchfx/xmlquery"
	"github.com/deiu/rdf2go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	xmlResults  = `<?xml version="1.0"?><sparql xmlns="http://www.w3.org/2005/sparql-results#"><head><variable name="s"/></head><results><result><binding name="s"><uri>urn:x</uri></binding></result></results></sparql>`
	jsonResults = `{"head":{"vars":["s"]},"results":{"bindings":[{"s":{"type":"uri","value":"urn:x"}}]}}`
	rdfXML      = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://ex/ns#">
  <rdf:Description rdf:about="http://ex/a">
    <ex:name>Alice</ex:name>
  </rdf:Description>
</rdf:RDF>`
)

func resultFor(t *testing.T, contentType string, body string, format Format) (*QueryResult, *bytes.Buffer) {
	t.Helper()
	logger, logs := captureLogger()
	header := base.NewHeader(nil)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	raw := &RawResponse{Status: http.StatusOK, Header: header, URL: "http://ex/sparql", Body: []byte(body), Format: format}
	return newQueryResult(raw, logger), logs
}

func TestConvertXML(t *testing.T) {
	for _, contentType := range []string{"application/sparql-results+xml", "application/xml; charset=utf-8"} {
		result, logs := resultFor(t, contentType, xmlResults, XML)
		converted, err := result.Convert()
		require.NoError(t, err)
		doc, ok := converted.(*xmlquery.Node)
		require.True(t, ok)
		uri := xmlquery.FindOne(doc, "//uri")
		require.NotNil(t, uri)
		assert.Equal(t, "urn:x", uri.InnerText())
		assert.Empty(t, logs.String())
	}
}

func TestConvertJSON(t *testing.T) {
	for _, contentType := range []string{"application/sparql-results+json", "application/json", "text/javascript; charset=utf-8", "application/javascript"} {
		result, logs := resultFor(t, contentType, jsonResults, JSON)
		converted, err := result.Convert()
		require.NoError(t, err)
		doc, ok := converted.(map[string]any)
		require.True(t, ok, contentType)
		assert.Equal(t, map[string]any{"vars": []any{"s"}}, doc["head"])
		assert.Empty(t, logs.String())
	}
}

func TestConvertRDFXML(t *testing.T) {
	for _, format := range []Format{RDF, RDFXML, XML} {
		result, logs := resultFor(t, "application/rdf+xml", rdfXML, format)
		converted, err := result.Convert()
		require.NoError(t, err)
		graph, ok := converted.(*rdf2go.Graph)
		require.True(t, ok)
		assert.Equal(t, 1, graph.Len())
		assert.Empty(t, logs.String())
	}
}

func TestConvertBytes(t *testing.T) {
	tests := []struct {
		contentType string
		format      Format
	}{
		{"text/turtle", Turtle},
		{"text/turtle", N3},
		{"text/rdf+n3", N3},
		{"application/n-triples", Turtle},
		{"text/csv", CSV},
		{"text/tab-separated-values", TSV},
	}
	for _, test := range tests {
		result, logs := resultFor(t, test.contentType, "payload", test.format)
		converted, err := result.Convert()
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), converted)
		assert.Empty(t, logs.String(), test.contentType)
	}
}

func TestConvertMismatchWarns(t *testing.T) {
	result, logs := resultFor(t, "application/sparql-results+json", jsonResults, XML)
	converted, err := result.Convert()
	require.NoError(t, err)
	assert.IsType(t, map[string]any{}, converted)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "format requested was xml, but JSON")

	result, logs = resultFor(t, "text/csv", "a,b\n", TSV)
	converted, err = result.Convert()
	require.NoError(t, err)
	assert.Equal(t, []byte("a,b\n"), converted)
	assert.Contains(t, logs.String(), "but CSV (text/csv)")
}

func TestConvertUnknownContentType(t *testing.T) {
	result, logs := resultFor(t, "text/html", "<html/>", JSON)
	converted, err := result.Convert()
	require.NoError(t, err)
	assert.Equal(t, []byte("<html/>"), converted)
	assert.Contains(t, logs.String(), "unknown response content type")
}

func TestConvertWithoutContentType(t *testing.T) {
	result, logs := resultFor(t, "", jsonResults, JSON)
	converted, err := result.Convert()
	require.NoError(t, err)
	assert.Equal(t, []byte(jsonResults), converted)
	assert.NotContains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "sniffed=application/json")
}

func TestConvertMalformedBody(t *testing.T) {
	result, _ := resultFor(t, "application/sparql-results+json", "{not json", JSON)
	_, err := result.Convert()
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, []byte("{not json"), ResponseBody(err))
}

func TestConvertGraphTurtle(t *testing.T) {
	result, _ := resultFor(t, "text/turtle; charset=utf-8", "<http://ex/a> <http://ex/p> \"x\" .\n<http://ex/a> <http://ex/p> \"y\" .\n", Turtle)
	graph, err := result.ConvertGraph()
	require.NoError(t, err)
	assert.Equal(t, 2, graph.Len())

	// without a content type the requested format decides
	result, _ = resultFor(t, "", `<http://ex/a> <http://ex/p> <http://ex/b> .`, Turtle)
	graph, err = result.ConvertGraph()
	require.NoError(t, err)
	assert.Equal(t, 1, graph.Len())
}

func TestConvertGraphSniffsMissingContentType(t *testing.T) {
	// RDF/XML answered without a Content-Type to a turtle request
	result, logs := resultFor(t, "", rdfXML, Turtle)
	graph, err := result.ConvertGraph()
	require.NoError(t, err)
	assert.Equal(t, 1, graph.Len())
	assert.NotContains(t, logs.String(), "no graph syntax sniffed")

	result, logs = resultFor(t, "", "s,p,o\n", CSV)
	_, err = result.ConvertGraph()
	require.Error(t, err)
	assert.Contains(t, logs.String(), "no graph syntax sniffed")
}

func TestConvertContentTypeCase(t *testing.T) {
	result, logs := resultFor(t, "Application/SPARQL-Results+JSON; charset=UTF-8", jsonResults, JSON)
	converted, err := result.Convert()
	require.NoError(t, err)
	assert.IsType(t, map[string]any{}, converted)
	assert.Empty(t, logs.String())

	result, logs = resultFor(t, "Application/RDF+XML", rdfXML, RDFXML)
	converted, err = result.Convert()
	require.NoError(t, err)
	assert.IsType(t, &rdf2go.Graph{}, converted)
	assert.Empty(t, logs.String())
}

func TestQueryResultAccessors(t *testing.T) {
	result, _ := resultFor(t, "text/csv", "s\nurn:x\n", CSV)
	assert.Equal(t, "text/csv", result.ContentType())
	assert.Equal(t, "text/csv", result.Info().Get("content-TYPE"))
	assert.Equal(t, http.StatusOK, result.StatusCode())
	assert.Equal(t, "http://ex/sparql", result.URL())
	assert.Equal(t, CSV, result.Format())
	assert.Equal(t, []byte("s\nurn:x\n"), result.Bytes())

	// Info hands out a copy
	result.Info().Set("Content-Type", "text/plain")
	assert.Equal(t, "text/csv", result.ContentType())
}

func TestPrintResults(t *testing.T) {
	result, _ := resultFor(t, "application/sparql-results+json", `{"head":{"vars":["s","label"]},"results":{"bindings":[{"s":{"type":"uri","value":"urn:x"},"label":{"type":"literal","value":"X","xml:lang":"en"}},{"s":{"type":"bnode","value":"b0"}}]}}`, JSON)
	var out bytes.Buffer
	require.NoError(t, result.PrintResults(&out))
	assert.Contains(t, out.String(), "<urn:x>")
	assert.Contains(t, out.String(), `"X"@en`)
	assert.Contains(t, out.String(), "_:b0")

	result, _ = resultFor(t, "application/sparql-results+json", `{"head":{},"boolean":false}`, JSON)
	out.Reset()
	require.NoError(t, result.PrintResults(&out))
	assert.Equal(t, "false\n", out.String())
}
