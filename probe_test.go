package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sparql-client/base"
	"sparql-client/sparql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEndpoint(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	previous := base.Configuration
	base.Configuration.Endpoint = server.URL + "/sparql"
	base.Configuration.User = ""
	t.Cleanup(func() { base.Configuration = previous })
}

func TestRunProbe(t *testing.T) {
	var query string
	withEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write([]byte(`{"head":{},"boolean":false}`))
	})
	require.NoError(t, runProbe(context.Background()))
	assert.Equal(t, probeQuery, query)
}

func TestRunProbeFailure(t *testing.T) {
	withEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	err := runProbe(context.Background())
	assert.ErrorIs(t, err, sparql.ErrEndPointNotFound)
	assert.ErrorContains(t, err, "probe query failed")
}

func TestRunProbeCredentials(t *testing.T) {
	withEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok || user != "probe" || password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write([]byte(`{"head":{},"boolean":true}`))
	})
	base.Configuration.User = "probe"
	base.Configuration.Password = "secret"
	base.Configuration.AuthScheme = "basic"
	require.NoError(t, runProbe(context.Background()))

	base.Configuration.AuthScheme = "kerberos"
	assert.ErrorIs(t, runProbe(context.Background()), sparql.ErrInvalidArgument)
}
