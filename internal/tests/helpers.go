package tests

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/iTrooz/favicon-cache/internal/config"
	"github.com/iTrooz/favicon-cache/internal/server"
)

// fixture_upstream creates a test upstream application
func fixture_upstream() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, requ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "Hello from upstream", "path": "` + requ.URL.Path + `"}`))
	}))
}

// fixture_icon writes icon below baseDir at iconPath
func fixture_icon(baseDir, iconPath string, icon []byte) error {
	path := filepath.Join(baseDir, filepath.FromSlash(iconPath))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, icon, 0644)
}

// fixture_config creates a test config serving icons from baseDir
func fixture_config(baseDir string, maxCacheDays int, upstreamURL string) *config.Config {
	cfg := config.Default()
	cfg.Favicon.BaseDir = baseDir
	cfg.Favicon.MaxCacheDays = maxCacheDays
	cfg.Upstream.URL = upstreamURL
	return cfg
}

// fixture_server creates a favicon server with the given config and returns the server, test server, and HTTP client
func fixture_server(cfg *config.Config) (*server.Server, *httptest.Server, *http.Client, error) {
	srv, err := server.New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	testServer := httptest.NewServer(srv.Handler())

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	return srv, testServer, client, nil
}
