package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-scansort")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-scansort" {
			t.Errorf("expected path /tmp/test-scansort, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-scansort")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"IntakePath", dir.IntakePath(), "/tmp/test-scansort/intake"},
		{"ArchivePath", dir.ArchivePath(), "/tmp/test-scansort/archive"},
		{"OutputPath", dir.OutputPath(), "/tmp/test-scansort/output"},
		{"CategoryPath", dir.CategoryPath("invoices"), "/tmp/test-scansort/output/invoices"},
		{"StateDBPath", dir.StateDBPath(), "/tmp/test-scansort/state/scansort.db"},
		{"BatchTmpPath", dir.BatchTmpPath("b1"), "/tmp/test-scansort/tmp/b1"},
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-scansort/config.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	sortDir := filepath.Join(tmpDir, "scansort-test")

	dir, err := New(sortDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Fatal("directory should not exist yet")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}

	for _, p := range []string{
		dir.IntakePath(),
		dir.ArchivePath(),
		dir.OutputPath(),
		dir.StatePath(),
		dir.TmpPath(),
	} {
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("expected %s to be a directory", p)
		}
	}
}

func TestDir_EnsureCategoryDir(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := dir.EnsureCategoryDir("receipts")
	if err != nil {
		t.Fatalf("EnsureCategoryDir() error = %v", err)
	}
	if filepath.Base(p) != "receipts" {
		t.Errorf("expected receipts directory, got %s", p)
	}
	if _, err := os.Stat(p); err != nil {
		t.Errorf("expected directory to exist: %v", err)
	}
}
