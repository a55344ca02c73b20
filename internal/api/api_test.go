// internal/api/api_test.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"netwatch/internal/config"
	"netwatch/internal/database"
	"netwatch/internal/loader"
	"netwatch/internal/metrics"
	"netwatch/internal/view"
)

const testLatest = `{
  "timestamp_human": "2026-10-16 09:00",
  "subnet": "192.168.1.0/24",
  "devices": [
    {"id": "router", "ip": "192.168.1.1", "mac": "aa:bb:cc:00:00:01", "type": "gateway", "name": "Router", "vendor": "Ubiquiti"},
    {"id": "cast", "ip": "192.168.1.20", "mac": "aa:bb:cc:00:00:02", "mdns": ["Living-Room.local"],
     "mdns_services": ["_googlecast._tcp"], "open_ports": [{"port": "8008", "service": "http"}], "risk_flags": ["Telnet open"]},
    {"id": "laptop", "ip": "192.168.1.30", "mac": "aa:bb:cc:00:00:03", "type": "client", "name": "Laptop"}
  ],
  "diff": {"new_ids": ["cast"], "gone_ids": []}
}`

const testHistory = `{"t": ["a", "b", "c"], "devices": [3, 5, 4], "openPorts": [1, 2, 2], "risks": [0, 1, 1]}`

const testStats = `{"devices": {
  "cast": {"display": "Living-Room.local", "seenHours": 20, "totalHours": 48, "flaps": 3, "uniqueIps": 2, "ipTail": ["192.168.1.19", "192.168.1.20"]}
}}`

const testLessons = `{"lessons": [{"id": "ports", "title": "Open ports", "summary": "What they mean", "level": "beginner", "body": ["A port is a door."]}]}`

type testEnv struct {
	tempDir  string
	stateDir string
	cfg      *config.Config
	db       *database.DB
	service  *loader.Service
	metrics  *metrics.Metrics
	router   *mux.Router
}

// setupTestEnvironment builds a router over a database and a loader that
// reads fixture resources from a temp directory. Nothing is loaded yet.
func setupTestEnvironment(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "api-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	stateDir := filepath.Join(tempDir, "state")
	os.MkdirAll(stateDir, 0755)
	os.MkdirAll(filepath.Join(tempDir, "data"), 0755)

	resources := map[string]string{
		loader.ResourceSnapshot: testLatest,
		loader.ResourceHistory:  testHistory,
		loader.ResourceStats:    testStats,
		loader.ResourceLessons:  testLessons,
	}
	for name, body := range resources {
		if err := os.WriteFile(filepath.Join(stateDir, name), []byte(body), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	cfg := config.New()
	cfg.Data.Source = stateDir
	cfg.Data.EnableScheduler = false
	cfg.Data.WatchFiles = false
	cfg.Database.Path = filepath.Join(tempDir, "data", "test.db")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	m := metrics.New()
	svc := loader.New(cfg, loader.DirSource{Dir: stateDir}, db, m)

	env := &testEnv{
		tempDir:  tempDir,
		stateDir: stateDir,
		cfg:      cfg,
		db:       db,
		service:  svc,
		metrics:  m,
		router:   NewRouter(cfg, db, svc, m, view.DefaultOptions()),
	}

	t.Cleanup(func() {
		svc.Stop()
		db.Close()
		os.RemoveAll(tempDir)
	})

	return env
}

// load runs one pass and fails the test if it does not publish
func (e *testEnv) load(t *testing.T) {
	t.Helper()
	if _, err := e.service.Reload(context.Background()); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
}

// do serves one request through the router
func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// decode parses a JSON response body into v
func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Handler returned wrong content type: got %v want application/json", ct)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response: %v\n%s", err, rr.Body.String())
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("Handler returned wrong status code: got %v want %v (%s)", rr.Code, want, rr.Body.String())
	}
}
