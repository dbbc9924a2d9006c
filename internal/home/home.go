// Package home manages the scansort home directory layout.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the scansort home directory.
	DefaultDirName = ".scansort"

	// IntakeDirName holds raw scanned PDFs waiting to be processed.
	IntakeDirName = "intake"

	// ArchiveDirName holds source files of fully completed batches.
	ArchiveDirName = "archive"

	// OutputDirName is the root of the category-keyed destination tree.
	OutputDirName = "output"

	// StateDirName holds the resumability database.
	StateDirName = "state"

	// TmpDirName holds per-batch intermediate files (merged/split PDFs).
	TmpDirName = "tmp"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the scansort home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.scansort).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// IntakePath returns the intake directory path.
func (d *Dir) IntakePath() string {
	return filepath.Join(d.path, IntakeDirName)
}

// ArchivePath returns the archive directory path.
func (d *Dir) ArchivePath() string {
	return filepath.Join(d.path, ArchiveDirName)
}

// OutputPath returns the output root directory path.
func (d *Dir) OutputPath() string {
	return filepath.Join(d.path, OutputDirName)
}

// CategoryPath returns the destination directory for a category.
func (d *Dir) CategoryPath(category string) string {
	return filepath.Join(d.OutputPath(), category)
}

// StatePath returns the state directory path.
func (d *Dir) StatePath() string {
	return filepath.Join(d.path, StateDirName)
}

// StateDBPath returns the path of the resumability database.
func (d *Dir) StateDBPath() string {
	return filepath.Join(d.StatePath(), "scansort.db")
}

// TmpPath returns the temp directory path.
func (d *Dir) TmpPath() string {
	return filepath.Join(d.path, TmpDirName)
}

// BatchTmpPath returns the temp directory for one batch.
func (d *Dir) BatchTmpPath(batchID string) string {
	return filepath.Join(d.TmpPath(), batchID)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{
		d.IntakePath(),
		d.ArchivePath(),
		d.OutputPath(),
		d.StatePath(),
		d.TmpPath(),
	} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", p, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// EnsureCategoryDir creates the destination directory for a category.
func (d *Dir) EnsureCategoryDir(category string) (string, error) {
	p := d.CategoryPath(category)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", fmt.Errorf("failed to create category directory %s: %w", p, err)
	}
	return p, nil
}
