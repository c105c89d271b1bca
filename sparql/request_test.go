package sparql

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonAccept = "application/sparql-results+json,application/json,text/javascript,application/javascript"

func TestBuildSelectOverGet(t *testing.T) {
	s, _ := newTestSession(t, "http://ex/sparql")
	s.SetQuery("SELECT ?s WHERE { ?s a <urn:T> } LIMIT 1")
	require.NoError(t, s.SetReturnFormat(JSON))

	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "http://ex/sparql?query=SELECT%20%3Fs%20WHERE%20%7B%20%3Fs%20a%20%3Curn%3AT%3E%20%7D%20LIMIT%201&format=json&output=json&results=json", req.URL)
	assert.Equal(t, jsonAccept, req.Header.Get("Accept"))
	assert.Equal(t, DefaultAgent, req.Header.Get("User-Agent"))
	assert.Empty(t, req.Header.Get("Content-Type"))
	assert.Nil(t, req.Body)
}

func TestBuildAskOverPostContentNegotiationOnly(t *testing.T) {
	s, _ := newTestSession(t, "http://ex/sparql")
	s.SetQuery("ASK { ?s ?p ?o }")
	s.SetMethod(http.MethodPost)
	s.SetOnlyConneg(true)

	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "http://ex/sparql", req.URL)
	assert.Equal(t, "query=ASK%20%7B%20%3Fs%20%3Fp%20%3Fo%20%7D", string(req.Body))
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	assert.Equal(t, "application/sparql-results+xml", req.Header.Get("Accept"))
}

func TestBuildUpdateWithGetIsSentAsPost(t *testing.T) {
	s, logs := newTestSession(t, "http://ex/sparql", WithUpdateEndpoint("http://ex/update"))
	s.SetQuery("INSERT DATA { <urn:a> <urn:b> <urn:c> }")
	s.SetMethod(http.MethodGet)

	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "http://ex/update", req.URL)
	assert.Equal(t, "update=INSERT%20DATA%20%7B%20%3Curn%3Aa%3E%20%3Curn%3Ab%3E%20%3Curn%3Ac%3E%20%7D", string(req.Body))
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	assert.Contains(t, logs.String(), "update requests must use POST")
	// the session keeps its configuration
	assert.Equal(t, http.MethodGet, s.Method())
}

func TestBuildConstructWithTSV(t *testing.T) {
	s, logs := newTestSession(t, "http://ex/sparql")
	s.SetQuery("CONSTRUCT WHERE { ?s ?p ?o }")
	require.NoError(t, s.SetReturnFormat(TSV))

	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, "*/*", req.Header.Get("Accept"))
	assert.Contains(t, logs.String(), "no media type matches")

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	for _, key := range []string{"format", "output", "results"} {
		assert.Equal(t, []string{"tsv", "text/tab-separated-values"}, u.Query()[key], key)
	}
	assert.Contains(t, req.URL, "format=tsv&format=text/tab-separated-values&output=tsv")
}

func TestBuildFormatHint(t *testing.T) {
	tests := []struct {
		query  string
		format Format
		values []string
	}{
		{"SELECT * WHERE { ?s ?p ?o }", JSON, []string{"json"}},
		{"SELECT * WHERE { ?s ?p ?o }", CSV, []string{"csv"}},
		{"CONSTRUCT WHERE { ?s ?p ?o }", RDFXML, []string{"rdf+xml", "application/rdf+xml"}},
		{"CONSTRUCT WHERE { ?s ?p ?o }", Turtle, []string{"turtle"}},
		{"ASK { ?s ?p ?o }", TSV, []string{"tsv", "text/tab-separated-values"}},
	}
	for _, test := range tests {
		s, _ := newTestSession(t, "http://ex/sparql")
		s.SetQuery(test.query)
		require.NoError(t, s.SetReturnFormat(test.format))
		req, err := s.BuildRequest()
		require.NoError(t, err)
		u, err := url.Parse(req.URL)
		require.NoError(t, err)
		assert.Equal(t, test.values, u.Query()["results"], test.format)
	}
}

func TestBuildAccept(t *testing.T) {
	tests := []struct {
		form   Form
		format Format
		accept string
	}{
		{Select, XML, "application/sparql-results+xml"},
		{Ask, JSON, jsonAccept},
		{Select, CSV, "text/csv"},
		{Select, TSV, "text/tab-separated-values"},
		{Select, Turtle, "*/*"},
		{Construct, Turtle, "application/turtle,text/turtle"},
		{Describe, N3, "application/turtle,text/turtle,text/rdf+n3,application/n-triples,application/n3,text/n3"},
		{Construct, XML, "application/rdf+xml"},
		{Describe, RDFXML, "application/rdf+xml"},
		{Construct, JSON, "*/*"},
		{Insert, XML, "application/sparql-results+xml"},
		{Drop, JSON, jsonAccept},
		{Load, CSV, "*/*"},
	}
	for _, test := range tests {
		assert.Equal(t, test.accept, AcceptHeader(test.form, test.format), "%s %s", test.form, test.format)
	}
	if jsonLDAvailable {
		assert.Equal(t, "application/ld+json,application/x-json+ld", AcceptHeader(Construct, JSONLD))
	} else {
		assert.Equal(t, "*/*", AcceptHeader(Construct, JSONLD))
	}
}

func TestBuildUpdateWarningOnlyForQueries(t *testing.T) {
	s, logs := newTestSession(t, "http://ex/sparql")
	s.SetQuery("CLEAR ALL")
	s.SetMethod(http.MethodPost)
	require.NoError(t, s.SetReturnFormat(CSV))
	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, "*/*", req.Header.Get("Accept"))
	assert.NotContains(t, logs.String(), "no media type matches")
}

func TestBuildPostDirectly(t *testing.T) {
	s, _ := newTestSession(t, "http://ex/sparql")
	s.SetQuery("SELECT ?s WHERE { ?s ?p \"é\" }")
	s.SetMethod(http.MethodPost)
	s.SetRequestMethod(PostDirectly)
	s.AddDefaultGraph("http://ex/g")

	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, "http://ex/sparql?default-graph-uri=http%3A//ex/g&format=xml&output=xml&results=xml", req.URL)
	assert.Equal(t, "application/sparql-query", req.Header.Get("Content-Type"))
	assert.Equal(t, "SELECT ?s WHERE { ?s ?p \"é\" }", string(req.Body))
}

func TestBuildUpdatePostDirectly(t *testing.T) {
	s, _ := newTestSession(t, "http://ex/sparql")
	s.SetQuery("DELETE WHERE { ?s ?p ?o }")
	s.SetMethod(http.MethodPost)
	s.SetRequestMethod(PostDirectly)
	s.AddNamedGraph("urn:g")

	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, "http://ex/sparql?named-graph-uri=urn%3Ag", req.URL)
	assert.Equal(t, "application/sparql-update", req.Header.Get("Content-Type"))
	assert.Equal(t, "DELETE WHERE { ?s ?p ?o }", string(req.Body))
}

func TestBuildEndpointWithQueryString(t *testing.T) {
	s, _ := newTestSession(t, "http://ex/sparql?apikey=1")
	s.SetOnlyConneg(true)
	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(req.URL, "http://ex/sparql?apikey=1&query="), req.URL)
}

func TestBuildOnlyConnegOmitsFormatParameters(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		for _, encoding := range []Encoding{URLEncoded, PostDirectly} {
			s, _ := newTestSession(t, "http://ex/sparql")
			s.SetMethod(method)
			s.SetRequestMethod(encoding)
			s.SetOnlyConneg(true)
			req, err := s.BuildRequest()
			require.NoError(t, err)
			u, err := url.Parse(req.URL)
			require.NoError(t, err)
			values := u.Query()
			if len(req.Body) > 0 && encoding == URLEncoded {
				values, err = url.ParseQuery(string(req.Body))
				require.NoError(t, err)
			}
			for _, key := range []string{"format", "output", "results"} {
				assert.NotContains(t, values, key)
				assert.NotContains(t, u.Query(), key)
			}
		}
	}
}

func TestBuildUpdatesAlwaysPost(t *testing.T) {
	for _, query := range []string{"INSERT DATA { <urn:a> <urn:b> <urn:c> }", "DROP ALL", "LOAD <http://ex/d.ttl>"} {
		for _, method := range []string{http.MethodGet, http.MethodPost} {
			s, _ := newTestSession(t, "http://ex/sparql")
			s.SetQuery(query)
			s.SetMethod(method)
			req, err := s.BuildRequest()
			require.NoError(t, err)
			assert.Equal(t, http.MethodPost, req.Method)
		}
	}
}

func TestBuildHeaders(t *testing.T) {
	s, _ := newTestSession(t, "http://ex/sparql", WithAgent("tester/1"))
	s.SetCredentials("user", "pässword", "")
	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, "tester/1", req.Header.Get("User-Agent"))
	assert.Equal(t, "Basic dXNlcjpww6Rzc3dvcmQ=", req.Header.Get("Authorization"))

	s.SetCustomHTTPHeader("accept", "text/plain")
	s.SetCustomHTTPHeader("AUTHORIZATION", "Bearer token")
	s.SetCustomHTTPHeader("Content-Type", "application/sparql-query")
	s.SetCustomHTTPHeader("content-type", "text/x-custom")
	req, err = s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", req.Header.Get("Accept"))
	assert.Equal(t, "Bearer token", req.Header.Get("Authorization"))
	assert.Equal(t, []string{"text/x-custom"}, req.Header.Values("Content-Type"))

	assert.True(t, s.ClearCustomHTTPHeader("Accept"))
	req, err = s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, "application/sparql-results+xml", req.Header.Get("Accept"))
}

func TestBuildDigestSetsNoAuthorization(t *testing.T) {
	s, _ := newTestSession(t, "http://ex/sparql")
	s.SetCredentials("u", "p", "R")
	require.NoError(t, s.SetHTTPAuth(DigestAuth))
	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestBuildReplayIsByteIdentical(t *testing.T) {
	s, _ := newTestSession(t, "http://ex/sparql")
	s.SetQuery("PREFIX ex: <http://ex/>\nSELECT ?s WHERE { ?s ex:p \"a b\" }")
	s.SetMethod(http.MethodPost)
	s.AddParameter("timeout", "30")
	s.AddDefaultGraph("http://ex/g1")
	s.AddDefaultGraph("http://ex/g2")
	s.SetCustomHTTPHeader("X-Trace", "1")

	first, err := s.BuildRequest()
	require.NoError(t, err)
	second, err := s.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	a, err := first.HTTPRequest(t.Context())
	require.NoError(t, err)
	b, err := second.HTTPRequest(t.Context())
	require.NoError(t, err)
	assert.Equal(t, a.URL.String(), b.URL.String())
	assert.Equal(t, a.Header, b.Header)
	assert.Equal(t, a.ContentLength, b.ContentLength)
}

func TestBuildGetRoundTrip(t *testing.T) {
	queries := []string{
		"SELECT ?s WHERE { ?s a <urn:T> } LIMIT 1",
		"# comment\nPREFIX ex: <http://ex/ns#>\nASK { ?s ex:p \"x & y = z\" }",
		"DESCRIBE <http://ex/ns#foo>",
	}
	for _, query := range queries {
		s, _ := newTestSession(t, "http://ex/sparql")
		s.SetQuery(query)
		req, err := s.BuildRequest()
		require.NoError(t, err)
		u, err := url.Parse(req.URL)
		require.NoError(t, err)
		parsed := u.Query().Get("query")
		assert.Equal(t, query, parsed)
		form, _ := Classify(parsed)
		assert.Equal(t, s.QueryForm(), form)
	}
}

func TestBuildExtraParametersComeFirst(t *testing.T) {
	s, _ := newTestSession(t, "http://ex/sparql", WithDefaultGraph("http://ex/default"))
	s.AddParameter("named-graph-uri", "http://ex/named")
	req, err := s.BuildRequest()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(req.URL, "http://ex/sparql?default-graph-uri=http%3A//ex/default&named-graph-uri=http%3A//ex/named&query="), req.URL)
}
