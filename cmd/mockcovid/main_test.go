package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetPort(t *testing.T) {
	tests := []struct {
		name     string
		port     string
		expected string
	}{
		{"default port when not set", "", "8089"},
		{"custom port 9000", "9000", "9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", tt.port)

			if port := getPort(); port != tt.expected {
				t.Errorf("expected port %s, got %s", tt.expected, port)
			}
		})
	}
}

func TestGetPortAddr(t *testing.T) {
	if addr := getPortAddr("8089"); addr != ":8089" {
		t.Errorf("expected :8089, got %s", addr)
	}
}

func TestCreateHTTPServer(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := createHTTPServer("8089", handler)

	if httpServer.Addr != ":8089" {
		t.Errorf("expected Addr to be :8089, got %s", httpServer.Addr)
	}
	if httpServer.Handler == nil {
		t.Error("expected Handler to be non-nil")
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := createAPI().Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestRequireAuthFromEnvironment(t *testing.T) {
	t.Setenv("MOCKCOVID_REQUIRE_AUTH", "true")
	handler := createAPI().Handler()

	req := httptest.NewRequest(http.MethodGet, "/countries", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestDoHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(createAPI().Handler())
	defer healthy.Close()

	if code := doHealthCheck(healthy.URL + "/health"); code != 0 {
		t.Errorf("expected 0 for healthy server, got %d", code)
	}
	if code := doHealthCheck(healthy.URL + "/missing"); code != 1 {
		t.Errorf("expected 1 for 404, got %d", code)
	}

	healthy.Close()
	if code := doHealthCheck(healthy.URL + "/health"); code != 1 {
		t.Errorf("expected 1 for closed server, got %d", code)
	}
}
