package applib

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/VacantAardvark/joseki/applib/config"
	"github.com/VacantAardvark/joseki/types"
)

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.DatabaseURL = "sqlite3://" + filepath.Join(dir, "app.db")
	cfg.JWTSecretPath = filepath.Join(dir, "jwtsecret.key")
	cfg.PollTimeout = "100ms"
	return cfg
}

func TestInit(t *testing.T) {
	app, err := Init(context.Background(), testConfig(t), "test")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer app.Close()

	handler, err := app.Handler()
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var status types.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil || status.CurrentActionID == 0 {
		t.Errorf("Unexpected status %s (%v)", rec.Body.String(), err)
	}
}

func TestInitTwiceReusesSchema(t *testing.T) {
	cfg := testConfig(t)
	for i := 0; i < 2; i++ {
		db, err := OpenDatabase(cfg, "test")
		if err != nil {
			t.Fatalf("OpenDatabase #%d failed: %v", i+1, err)
		}
		db.Close()
	}
}

func TestInitFailsOnBadDatabaseURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseURL = "mysql://nope"
	if _, err := Init(context.Background(), cfg, "test"); err == nil {
		t.Fatal("Expected Init to fail")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	// Reserve a free port for the server
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	cfg.Addr = listener.Addr().String()
	listener.Close()

	app, err := Init(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + cfg.Addr + "/api/status")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Server never came up: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
