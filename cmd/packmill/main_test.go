package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"packmill/internal/config"
	"packmill/internal/testsupport"
)

// writeTestConfig renders a config file pointing at workerURL and returns
// its path for the --config flag.
func writeTestConfig(t *testing.T, workerURL string, opts ...testsupport.ConfigOption) string {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithWorkerURL(workerURL)}, opts...)
	return testsupport.WriteConfigFile(t, testsupport.NewConfig(t, opts...))
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConfigInitAndPath(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Errorf("init output missing target path: %q", output)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	output, err = runCommand(t, "--config", target, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(output) != target {
		t.Errorf("config path = %q, want %q", strings.TrimSpace(output), target)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init to refuse overwriting")
	}
}

func TestPublishValidatesShortName(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:9")
	_, err := runCommand(t, "--config", cfgPath,
		"publish", "a.bin", "--title", "My Pack", "--short-name", "My-Pack")
	if err == nil || !strings.Contains(err.Error(), "short name") {
		t.Fatalf("expected short-name validation error, got %v", err)
	}
}

func TestPublishRequiresTitle(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:9")
	_, err := runCommand(t, "--config", cfgPath,
		"publish", "a.bin", "--short-name", "mypack")
	if err == nil || !strings.Contains(err.Error(), "--title") {
		t.Fatalf("expected missing title error, got %v", err)
	}
}

func TestConvertRunsToCompletion(t *testing.T) {
	fake := testsupport.NewFakeWorker(t, "op-cli-1",
		testsupport.FakeFrame{
			Status:     "running",
			Progress:   testsupport.IntPtr(40),
			TotalCount: 1,
			Items: map[int]testsupport.FakeItem{
				0: {Status: "processing", Progress: testsupport.IntPtr(40)},
			},
		},
		testsupport.FakeFrame{
			Status:         "completed",
			Progress:       testsupport.IntPtr(100),
			CompletedCount: 1,
			TotalCount:     1,
			Items: map[int]testsupport.FakeItem{
				0: {Status: "completed", Progress: testsupport.IntPtr(100)},
			},
		},
	)

	cfgPath := writeTestConfig(t, fake.URL())
	output, err := runCommand(t, "--config", cfgPath, "convert", "clip.mov")
	if err != nil {
		t.Fatalf("convert: %v\noutput:\n%s", err, output)
	}
	if !strings.Contains(output, "convert completed: 1/1 items succeeded") {
		t.Errorf("missing completion line in output:\n%s", output)
	}
	if fake.StartCalls() != 1 {
		t.Errorf("start calls = %d, want 1", fake.StartCalls())
	}
}

func TestStatusReportsUnreachableWorker(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:9")
	_, err := runCommand(t, "--config", cfgPath, "status")
	if err == nil {
		t.Fatal("expected error for unreachable worker")
	}
}

func TestHistoryEmptyDatabase(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:9")
	output, err := runCommand(t, "--config", cfgPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(output, "No operations recorded yet") {
		t.Errorf("unexpected history output:\n%s", output)
	}
}

func TestConvertExitsNonZeroOnPersistentPollErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start-convert", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "operationId": "op-err"}`))
	})
	mux.HandleFunc("/progress", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfgPath := writeTestConfig(t, server.URL, testsupport.WithClassLimits(config.ClassLimits{
		PollIntervalMs:       5,
		MaxConsecutiveErrors: 2,
		MaxDurationSeconds:   5,
	}))

	output, err := runCommand(t, "--config", cfgPath, "convert", "clip.mov")
	if err == nil {
		t.Fatalf("expected non-zero exit for aborted operation, output:\n%s", output)
	}
	if !strings.Contains(err.Error(), "persistent-error") {
		t.Fatalf("error = %v, want persistent-error abort", err)
	}
	if !strings.Contains(output, "convert aborted: persistent-error") {
		t.Errorf("missing abort line in output:\n%s", output)
	}
}
