package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vertextoedge/image-loader/internal/adapter/sqlite"
	"github.com/vertextoedge/image-loader/internal/domain"
)

func TestLogLevelOverride(t *testing.T) {
	tests := []struct {
		name        string
		verbose     int
		veryVerbose bool
		wantLevel   string
		wantOK      bool
	}{
		{"no flags", 0, false, "", false},
		{"-v", 1, false, "info", true},
		{"-vv", 2, false, "debug", true},
		{"-vvv", 3, false, "debug", true},
		{"--very-verbose", 0, true, "debug", true},
		{"-v --very-verbose", 1, true, "debug", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok := logLevelOverride(tt.verbose, tt.veryVerbose)
			if level != tt.wantLevel || ok != tt.wantOK {
				t.Errorf("logLevelOverride() = (%q, %v), want (%q, %v)", level, ok, tt.wantLevel, tt.wantOK)
			}
		})
	}
}

func TestRootCommand_Version(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := out.String(); got != "image-loader "+version+"\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestRootCommand_RequiresTwoArgs(t *testing.T) {
	for _, args := range [][]string{{}, {"urls.txt"}, {"a", "b", "c"}} {
		cmd := newRootCommand()
		cmd.SetArgs(args)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		if err := cmd.Execute(); err == nil {
			t.Errorf("Execute(%v) should fail", args)
		}
	}
}

func TestRootCommand_DestinationNotDirectory(t *testing.T) {
	dir := t.TempDir()
	notDir := filepath.Join(dir, "file")
	if err := os.WriteFile(notDir, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	urlFile := filepath.Join(dir, "urls.txt")
	if err := os.WriteFile(urlFile, []byte("http://127.0.0.1:1/a.png\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetArgs([]string{urlFile, notDir})
	err := cmd.Execute()
	if !domain.IsConfigError(err) {
		t.Fatalf("Execute() error = %v, want ConfigError", err)
	}
}

func TestRootCommand_InvalidFlagValue(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--workers", "0", filepath.Join(dir, "urls.txt"), dir})
	if err := cmd.Execute(); !domain.IsConfigError(err) {
		t.Fatalf("Execute() error = %v, want ConfigError", err)
	}
}

func TestRootCommand_Run(t *testing.T) {
	var (
		mu        sync.Mutex
		userAgent string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		userAgent = r.Header.Get("User-Agent")
		mu.Unlock()
		w.Header().Set("Content-Type", "image/gif")
		w.Write([]byte("GIF89a"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	urlFile := filepath.Join(dir, "urls.txt")
	if err := os.WriteFile(urlFile, []byte(srv.URL+"/pic.gif\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	destDir := filepath.Join(dir, "out")
	historyPath := filepath.Join(dir, "history.db")
	metricsPath := filepath.Join(dir, "image_loader.prom")

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"--workers", "2",
		"--history-db", historyPath,
		"--metrics-file", metricsPath,
		urlFile, destDir,
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(destDir, "pic.gif"))
	if err != nil || string(data) != "GIF89a" {
		t.Fatalf("pic.gif = %q, %v", data, err)
	}
	mu.Lock()
	if userAgent != "image-loader/"+version {
		t.Errorf("User-Agent = %q", userAgent)
	}
	mu.Unlock()

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(prom), `image_loader_downloads_total{outcome="fetched"} 1`) {
		t.Errorf("metrics file missing fetched counter:\n%s", prom)
	}

	store, err := sqlite.Open(historyPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	entry, err := store.LastForURL(srv.URL + "/pic.gif")
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil || entry.Outcome != "fetched" || entry.RunID == "" {
		t.Errorf("history entry = %+v", entry)
	}
}
