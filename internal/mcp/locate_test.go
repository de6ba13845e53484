package mcp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestServerCandidatesOrder(t *testing.T) {
	cands := serverCandidates("/opt/custom/server.js", "/dev", "/exe", "linux", "amd64")

	wantPaths := []string{
		"/opt/custom/server.js",
		filepath.Join("/dev", "mcp-server", "dist", "mcp-server"),
		filepath.Join("/dev", "mcp-server", "dist", "index.js"),
		filepath.Join("/exe", "mcp-server-linux-amd64"),
		filepath.Join("/exe", "mcp-server"),
	}
	if len(cands) != len(wantPaths) {
		t.Fatalf("candidate count = %d, want %d", len(cands), len(wantPaths))
	}
	for i, want := range wantPaths {
		if cands[i].path != want {
			t.Errorf("candidate[%d].path = %q, want %q", i, cands[i].path, want)
		}
	}

	if cands[0].interpreter != "node" {
		t.Errorf("js override interpreter = %q, want node", cands[0].interpreter)
	}
	if cands[2].interpreter != "node" {
		t.Errorf("dev index.js interpreter = %q, want node", cands[2].interpreter)
	}
	if cands[1].interpreter != "" || cands[3].interpreter != "" || cands[4].interpreter != "" {
		t.Error("native candidates should not carry an interpreter")
	}
}

func TestServerCandidatesSkipEmptyDirs(t *testing.T) {
	cands := serverCandidates("", "", "/exe", "linux", "arm64")
	if len(cands) != 2 {
		t.Fatalf("candidate count = %d, want 2", len(cands))
	}
	if cands[0].path != filepath.Join("/exe", "mcp-server-linux-arm64") {
		t.Errorf("first candidate = %q", cands[0].path)
	}
}

func TestInterpreterFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"dist/index.js", "node"},
		{"dist/index.mjs", "node"},
		{"mcp-server", ""},
		{"mcp-server-linux-amd64", ""},
	}
	for _, tt := range tests {
		if got := interpreterFor(tt.path); got != tt.want {
			t.Errorf("interpreterFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// TestResolvePrefersEarlierCandidates lays out two existing files and
// checks the first one wins, then removes it and checks the fallback.
func TestResolvePrefersEarlierCandidates(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	cands := []candidate{{path: first}, {path: second}}

	got, err := resolve(cands)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.path != first {
		t.Errorf("resolve picked %q, want %q", got.path, first)
	}

	if err := os.Remove(first); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, err = resolve(cands)
	if err != nil {
		t.Fatalf("resolve after remove: %v", err)
	}
	if got.path != second {
		t.Errorf("resolve picked %q, want %q", got.path, second)
	}
}

func TestResolveSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	asDir := filepath.Join(dir, "mcp-server")
	if err := os.Mkdir(asDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, err := resolve([]candidate{{path: asDir}})
	if !errors.Is(err, ErrServerUnavailable) {
		t.Errorf("resolve on directory = %v, want ErrServerUnavailable", err)
	}
}

func TestResolveNoCandidatesReturnsUnavailable(t *testing.T) {
	_, err := resolve(serverCandidates("", t.TempDir(), t.TempDir(), "linux", "amd64"))
	if !errors.Is(err, ErrServerUnavailable) {
		t.Errorf("resolve = %v, want ErrServerUnavailable", err)
	}
}
