package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sipico/covid-counter-client/internal/testutil/mockcovid"
)

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run() = %d, stderr: %s", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "covid-counter ") {
		t.Errorf("unexpected version output %q", stdout.String())
	}
}

func TestRunStatus(t *testing.T) {
	server := mockcovid.New()
	defer server.Close()

	t.Setenv("COVID_API_URL", server.URL())
	t.Setenv("STORAGE_BACKEND", "memory")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"status"}, &stdout, &stderr); code != 0 {
		t.Fatalf("run() = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "LOGGED_OUT") {
		t.Errorf("expected LOGGED_OUT in status, got %q", stdout.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"frobnicate"}, &stdout, &stderr); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Errorf("expected unknown command error, got %q", stderr.String())
	}
}

func TestRunBadConfig(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"status"}, &stdout, &stderr); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "STORAGE_BACKEND") {
		t.Errorf("expected STORAGE_BACKEND error, got %q", stderr.String())
	}
}
