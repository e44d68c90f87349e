package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeCheckpoint(t *testing.T, dir, name string) string {
	t.Helper()
	ckpt := filepath.Join(dir, name)
	if err := os.MkdirAll(ckpt, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(ckpt, "config.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write config for %s: %v", name, err)
	}
	return ckpt
}

func TestDiscoverCheckpointsSorted(t *testing.T) {
	dir := t.TempDir()
	writeCheckpoint(t, dir, "b-model")
	writeCheckpoint(t, dir, "a-model")
	// A directory without config.json is not a checkpoint.
	if err := os.MkdirAll(filepath.Join(dir, "scratch"), 0o755); err != nil {
		t.Fatalf("mkdir scratch: %v", err)
	}
	// Plain files are skipped.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	got, err := discoverCheckpoints(dir)
	if err != nil {
		t.Fatalf("discoverCheckpoints returned error: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a-model"),
		filepath.Join(dir, "b-model"),
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected checkpoint count: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected ordering at %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestResolveCheckpointDir(t *testing.T) {
	t.Run("model flag bypasses env", func(t *testing.T) {
		t.Setenv(envKilnModelsDir, "")
		got, err := resolveCheckpointDir("/models/llama-7b", "", bytes.NewBuffer(nil), io.Discard)
		if err != nil {
			t.Fatalf("resolveCheckpointDir returned error: %v", err)
		}
		if got != filepath.Clean("/models/llama-7b") {
			t.Fatalf("unexpected checkpoint path: got %q", got)
		}
	})

	t.Run("single checkpoint selects automatically", func(t *testing.T) {
		dir := t.TempDir()
		only := writeCheckpoint(t, dir, "only-model")
		t.Setenv(envKilnModelsDir, dir)

		prevTTY := stdinIsTTY
		stdinIsTTY = func() bool { return false }
		defer func() { stdinIsTTY = prevTTY }()

		got, err := resolveCheckpointDir("", "", bytes.NewBuffer(nil), io.Discard)
		if err != nil {
			t.Fatalf("resolveCheckpointDir returned error: %v", err)
		}
		if got != only {
			t.Fatalf("unexpected checkpoint path: got %q want %q", got, only)
		}
	})

	t.Run("multiple checkpoints requires tty", func(t *testing.T) {
		dir := t.TempDir()
		writeCheckpoint(t, dir, "a-model")
		writeCheckpoint(t, dir, "b-model")
		t.Setenv(envKilnModelsDir, dir)

		prevTTY := stdinIsTTY
		stdinIsTTY = func() bool { return false }
		defer func() { stdinIsTTY = prevTTY }()

		if _, err := resolveCheckpointDir("", "", bytes.NewBuffer(nil), io.Discard); err == nil {
			t.Fatalf("expected error when multiple checkpoints and stdin is not a tty")
		}
	})

	t.Run("interactive selection chooses sorted index", func(t *testing.T) {
		dir := t.TempDir()
		writeCheckpoint(t, dir, "a-model")
		b := writeCheckpoint(t, dir, "b-model")
		t.Setenv(envKilnModelsDir, dir)

		prevTTY := stdinIsTTY
		stdinIsTTY = func() bool { return true }
		defer func() { stdinIsTTY = prevTTY }()

		got, err := resolveCheckpointDir("", "", bytes.NewBufferString("2\n"), io.Discard)
		if err != nil {
			t.Fatalf("resolveCheckpointDir returned error: %v", err)
		}
		if got != b {
			t.Fatalf("unexpected checkpoint selection: got %q want %q", got, b)
		}
	})

	t.Run("no models dir configured", func(t *testing.T) {
		t.Setenv(envKilnModelsDir, "")
		if _, err := resolveCheckpointDir("", "", bytes.NewBuffer(nil), io.Discard); err == nil {
			t.Fatalf("expected error when nothing points at a checkpoint")
		}
	})
}
