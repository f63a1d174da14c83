package probe

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newProber(t *testing.T, url string) *HTTPProber {
	t.Helper()

	prober, err := NewHTTPProber(&Config{URL: url, Timeout: time.Second})
	require.NoError(t, err)

	return prober
}

func TestProbeSuccess(t *testing.T) {
	var method string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	assert.True(t, newProber(t, server.URL).Probe(context.Background()))
	assert.Equal(t, http.MethodHead, method)
}

func TestProbeRedirectIsCaptive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://portal.example/login", http.StatusFound)
	}))
	defer server.Close()

	assert.False(t, newProber(t, server.URL).Probe(context.Background()))
}

func TestProbeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	assert.False(t, newProber(t, server.URL).Probe(context.Background()))
}

func TestProbeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	assert.False(t, newProber(t, url).Probe(context.Background()))
}

func TestProbeTimeout(t *testing.T) {
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	prober, err := NewHTTPProber(&Config{URL: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	assert.False(t, prober.Probe(context.Background()))
}

func TestProbeDefaults(t *testing.T) {
	prober, err := NewHTTPProber(&Config{})
	require.NoError(t, err)

	assert.Equal(t, DefaultURL, prober.url)
	assert.Equal(t, DefaultTimeout, prober.timeout)
}

func TestProbeInvalidURL(t *testing.T) {
	_, err := NewHTTPProber(&Config{URL: "http://[::1"})
	assert.Error(t, err)
}

func newExpectingProber(t *testing.T, url string, expect string) *HTTPProber {
	t.Helper()

	prober, err := NewHTTPProber(&Config{URL: url, Timeout: time.Second, Expect: expect})
	require.NoError(t, err)

	return prober
}

func TestExpectedContentIsReachable(t *testing.T) {
	var method string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Write([]byte("NetworkManager is online\n"))
	}))
	defer server.Close()

	assert.True(t, newExpectingProber(t, server.URL, DefaultExpect).Probe(context.Background()))
	assert.Equal(t, http.MethodGet, method)
}

func TestLoginPageIsCaptive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>Hotel WiFi login</html>"))
	}))
	defer server.Close()

	assert.False(t, newExpectingProber(t, server.URL, DefaultExpect).Probe(context.Background()))
}

func TestExpectedContentWithErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("NetworkManager is online\n"))
	}))
	defer server.Close()

	assert.False(t, newExpectingProber(t, server.URL, DefaultExpect).Probe(context.Background()))
}

func TestExpectedContentBeyondReadLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat(" ", maxBodySize)))
		w.Write([]byte("NetworkManager is online\n"))
	}))
	defer server.Close()

	assert.False(t, newExpectingProber(t, server.URL, DefaultExpect).Probe(context.Background()))
}

func TestEmptyBodyIsCaptive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	assert.False(t, newExpectingProber(t, server.URL, DefaultExpect).Probe(context.Background()))
}
