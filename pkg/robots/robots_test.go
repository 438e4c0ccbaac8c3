package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestGateDisallowedPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	gate, err := NewGate(context.Background(), server.Client(), server.URL, true, testLogger())
	require.NoError(t, err)

	assert.True(t, gate.Allowed(server.URL+"/"))
	assert.True(t, gate.Allowed(server.URL+"/public/page"))
	assert.False(t, gate.Allowed(server.URL+"/private"))
	assert.False(t, gate.Allowed(server.URL+"/private/page"))
}

func TestGateFailsOpenOnFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	server.Close() // gate construction hits a dead server

	gate, err := NewGate(context.Background(), http.DefaultClient, server.URL, true, testLogger())
	require.NoError(t, err)

	assert.True(t, gate.Allowed(server.URL+"/anything"))
}

func TestGateDisabled(t *testing.T) {
	// No server at all: a disabled gate never fetches robots.txt.
	gate, err := NewGate(context.Background(), http.DefaultClient, "http://site.invalid", false, testLogger())
	require.NoError(t, err)

	assert.True(t, gate.Allowed("http://site.invalid/private"))
}

func TestGateMalformedURL(t *testing.T) {
	_, err := NewGate(context.Background(), http.DefaultClient, "://bad", true, testLogger())
	assert.Error(t, err)
}
