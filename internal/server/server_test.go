package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iTrooz/favicon-cache/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIcon = []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x10, 0x10}

func fixtureConfig(t *testing.T, withIcon bool) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Favicon.BaseDir = t.TempDir()
	if withIcon {
		writeIcon(t, cfg)
	}
	return cfg
}

func writeIcon(t *testing.T, cfg *config.Config) {
	t.Helper()

	path := filepath.Join(cfg.Favicon.BaseDir, filepath.FromSlash(cfg.Favicon.IconPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, testIcon, 0644))
}

func TestNew(t *testing.T) {
	s, err := New(fixtureConfig(t, false))
	require.NoError(t, err)
	assert.NotNil(t, s.Handler())
	assert.Equal(t, 365, s.Favicon().Options().CacheDays())
}

func TestNewZeroMaxCacheDays(t *testing.T) {
	cfg := fixtureConfig(t, false)
	cfg.Favicon.MaxCacheDays = 0
	writeIcon(t, cfg)

	s, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Favicon().Options().CacheDays())

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=0", rr.Header().Get("Cache-Control"))
}

func TestIconFile(t *testing.T) {
	cfg := fixtureConfig(t, false)

	s, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Favicon.BaseDir, "public", "favicon.ico"), s.IconFile())
}

func TestNewInvalidShutdownTimeout(t *testing.T) {
	cfg := fixtureConfig(t, false)
	cfg.Server.ShutdownTimeout = "soon"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s, err := New(fixtureConfig(t, false))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestFaviconServed(t *testing.T) {
	s, err := New(fixtureConfig(t, true))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, testIcon, rr.Body.Bytes())
	assert.Equal(t, "image/x-icon", rr.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000", rr.Header().Get("Cache-Control"))
}

func TestMissingIconThenCreated(t *testing.T) {
	cfg := fixtureConfig(t, false)
	s, err := New(cfg)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	writeIcon(t, cfg)

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, testIcon, rr.Body.Bytes())
}

func TestNotFoundWithoutUpstream(t *testing.T) {
	s, err := New(fixtureConfig(t, true))
	require.NoError(t, err)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(method, "/index.html", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, method)
	}
}

func TestUpstreamForwarding(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", "yes")
		_, _ = io.WriteString(w, r.Method+" "+r.URL.Path)
	}))
	defer upstream.Close()

	cfg := fixtureConfig(t, true)
	cfg.Upstream.URL = upstream.URL
	s, err := New(cfg)
	require.NoError(t, err)

	front := httptest.NewServer(s.Handler())
	defer front.Close()

	resp, err := http.Post(front.URL+"/api/items", "text/plain", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "yes", resp.Header.Get("X-Upstream"))
	assert.Equal(t, "POST /api/items", string(body))

	// The favicon never reaches the upstream
	resp2, err := http.Get(front.URL + "/favicon.ico")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Empty(t, resp2.Header.Get("X-Upstream"))
	assert.Equal(t, "image/x-icon", resp2.Header.Get("Content-Type"))
}

func TestUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstreamURL := upstream.URL
	upstream.Close()

	cfg := fixtureConfig(t, true)
	cfg.Upstream.URL = upstreamURL
	s, err := New(cfg)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestStartShutdown(t *testing.T) {
	cfg := fixtureConfig(t, true)
	cfg.Server.Port = freePort(t)
	cfg.Server.ShutdownTimeout = "1s"
	s, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	addr := "http://" + listenAddr(cfg.Server.Port) + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(addr)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
