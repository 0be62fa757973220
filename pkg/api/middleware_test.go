package api

import (
	"net/http"
	"strings"
	"testing"
)

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.get(t, "/api/v1/nodes")
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRequestIDPreserved(t *testing.T) {
	env := newTestEnv(t, Options{})

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/nodes", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "fixed-id" {
		t.Errorf("X-Request-ID = %q, want fixed-id", got)
	}
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp := env.get(t, "/api/v1/nodes")
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, Options{})

	req, _ := http.NewRequest(http.MethodOptions, env.server.URL+"/api/v1/links/apply", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected Access-Control-Allow-Methods header")
	}
}

func TestBodySizeLimit(t *testing.T) {
	env := newTestEnv(t, Options{BodyLimit: 64})

	big := `{"name": "` + strings.Repeat("x", 256) + `"}`
	resp := env.post(t, "/api/v1/links/apply", big)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}
