// Package storage defines the workspace file-system abstraction.
package storage

import "time"

// FileInfo describes one notebook file on disk.
type FileInfo struct {
	Path      string // relative to the workspace root
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for workspace file operations.
type Provider interface {
	// List returns metadata for every .ipynb file under dir (relative to
	// the workspace root).
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to the
	// workspace root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the workspace root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the workspace root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the workspace root).
	Move(oldPath, newPath string) error
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
}
