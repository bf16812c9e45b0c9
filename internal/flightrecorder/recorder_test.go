package flightrecorder_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jersjar7/Fit14-sub001/internal/flightrecorder"
	"github.com/jersjar7/Fit14-sub001/internal/testhelpers"
)

func newRecorder(t *testing.T, dir string, now func() time.Time) *flightrecorder.Recorder {
	t.Helper()
	r, err := flightrecorder.New(flightrecorder.Config{
		Logger:          testhelpers.NewLogger(testhelpers.NewWriter(t)),
		MinAge:          0,
		MaxBytes:        0,
		Cooldown:        time.Minute,
		TracesDirectory: dir,
		Now:             now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func traceFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read trace directory: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces", "nested")
	newRecorder(t, dir, nil)
	if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
		t.Errorf("traces directory not created: %v", err)
	}
}

func TestNew_RejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_, err := flightrecorder.New(flightrecorder.Config{
		Logger:          testhelpers.NewLogger(testhelpers.NewWriter(t)),
		MinAge:          0,
		MaxBytes:        0,
		Cooldown:        0,
		TracesDirectory: path,
		Now:             nil,
	})
	if err == nil {
		t.Error("expected an error for a traces path that is a file")
	}
}

func TestRecorder_CaptureGenerationTimeout(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	r := newRecorder(t, dir, func() time.Time { return now })

	ctx := t.Context()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop(ctx)

	r.CaptureGenerationTimeout(ctx)
	files := traceFiles(t, dir)
	if len(files) != 1 || files[0] != "generation-timeout-20260601-090000.trace" {
		t.Fatalf("trace files = %v", files)
	}

	now = now.Add(30 * time.Second)
	r.CaptureGenerationTimeout(ctx)
	if files = traceFiles(t, dir); len(files) != 1 {
		t.Errorf("cooldown should prevent a second capture, got %v", files)
	}

	now = now.Add(time.Minute)
	r.CaptureGenerationTimeout(ctx)
	files = traceFiles(t, dir)
	if len(files) != 2 {
		t.Errorf("expected a second capture after the cooldown, got %v", files)
	}
	for _, name := range files {
		if !strings.HasSuffix(name, ".trace") {
			t.Errorf("unexpected file %s", name)
		}
	}
}

func TestRecorder_CaptureWithoutStart(t *testing.T) {
	dir := t.TempDir()
	r := newRecorder(t, dir, nil)
	r.CaptureGenerationTimeout(t.Context())
	if files := traceFiles(t, dir); len(files) != 0 {
		t.Errorf("no trace expected when the recorder isn't running, got %v", files)
	}
}
