// Package testutil provides shared test helpers for setting up workspaces and databases.
package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "laguz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory with a storage.Provider.
func TestWorkspace(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// SampleNotebook returns a minimal valid nbformat 4 document whose first
// markdown cell carries the given heading.
func SampleNotebook(heading string) []byte {
	return []byte(fmt.Sprintf(`{
		"metadata": {},
		"nbformat": 4,
		"nbformat_minor": 5,
		"cells": [{
			"cell_type": "markdown",
			"metadata": {},
			"source": "# %s"
		}]
	}`, heading))
}
