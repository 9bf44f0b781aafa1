package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/laguz/internal/storage"
)

// minimalNotebook returns a one-cell notebook whose markdown title is heading.
func minimalNotebook(heading string) []byte {
	return []byte(fmt.Sprintf(`{
		"nbformat": 4, "nbformat_minor": 0, "metadata": {},
		"cells": [{"cell_type": "markdown", "metadata": {}, "source": "# %s"}]
	}`, heading))
}

// watcherTestEnv sets up a workspace dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	dbFile, err := os.CreateTemp("", "laguz-watcher-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return root, store, db
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSync_IndexesAndPrunes(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(root, "keep.ipynb"), minimalNotebook("Keep"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "gone.ipynb"), minimalNotebook("Gone"), 0o644)

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	row, err := db.GetNotebook("keep.ipynb")
	if err != nil {
		t.Fatalf("GetNotebook after sync: %v", err)
	}
	if row.Title != "Keep" || row.CellCount != 1 {
		t.Errorf("indexed row = %+v", row)
	}

	_ = os.Remove(filepath.Join(root, "gone.ipynb"))
	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if cs, _ := db.GetChecksum("gone.ipynb"); cs != "" {
		t.Error("stale entry not pruned by sync")
	}
}

func TestSync_SkipsInvalidNotebook(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(root, "ok.ipynb"), minimalNotebook("OK"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "broken.ipynb"), []byte("{not json"), 0o644)

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync should not fail on one bad file: %v", err)
	}
	if cs, _ := db.GetChecksum("ok.ipynb"); cs == "" {
		t.Error("valid notebook not indexed")
	}
	if cs, _ := db.GetChecksum("broken.ipynb"); cs != "" {
		t.Error("invalid notebook should not be indexed")
	}
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, root, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "new.ipynb"), minimalNotebook("New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new.ipynb")
		return cs != ""
	}, "new notebook not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.ipynb" {
				return true
			}
		}
		return false
	}, "expected created:new.ipynb callback")
}

func TestWatcher_CreateThenWriteEmitsCreated(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, root, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	// Non-atomic writer: the file appears empty first, the content lands in
	// a separate write. The empty file cannot be decoded, so only the later
	// write indexes it; the event kind must still be "created".
	path := filepath.Join(root, "slow.ipynb")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	if _, err := f.Write(minimalNotebook("Slow")); err != nil {
		t.Fatal(err)
	}
	f.Close()

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("slow.ipynb")
		return cs != ""
	}, "notebook not indexed after content write")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:slow.ipynb" {
				return true
			}
		}
		return false
	}, "expected created:slow.ipynb when the create event carried no content")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(root, "subdir")
	_ = os.MkdirAll(subDir, 0o755)

	time.Sleep(200 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.ipynb"), minimalNotebook("Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(filepath.Join("subdir", "deep.ipynb"))
		return cs != ""
	}, "notebook in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(root, "del.ipynb"), minimalNotebook("Delete Me"), 0o644)
	Sync(db, store, logger)

	if cs, _ := db.GetChecksum("del.ipynb"); cs == "" {
		t.Fatal("precondition: notebook should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(root, "del.ipynb"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.ipynb")
		return cs == ""
	}, "deleted notebook still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(root, "old.ipynb"), minimalNotebook("Rename"), 0o644)
	Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(root, "old.ipynb"), filepath.Join(root, "renamed.ipynb"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.ipynb")
		newCS, _ := db.GetChecksum("renamed.ipynb")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
