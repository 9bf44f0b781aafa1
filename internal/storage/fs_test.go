package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/laguz/internal/apperr"
)

func newTestFS(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestFS_WriteRead(t *testing.T) {
	fs := newTestFS(t)
	content := []byte(`{"nbformat": 4}`)

	if err := fs.Write("analysis/report.ipynb", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := fs.Read("analysis/report.ipynb")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Read = %q, want %q", got, content)
	}
}

func TestFS_Read_NotFound(t *testing.T) {
	fs := newTestFS(t)
	_, err := fs.Read("missing.ipynb")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFS_Write_LeavesNoTempFiles(t *testing.T) {
	fs := newTestFS(t)
	if err := fs.Write("a.ipynb", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(fs.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "a.ipynb" {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestFS_List_OnlyNotebooks(t *testing.T) {
	fs := newTestFS(t)
	if err := fs.Write("one.ipynb", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Write("sub/two.ipynb", []byte("{ }")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fs.Root(), "readme.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	infos, err := fs.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List returned %d files, want 2", len(infos))
	}
	for _, fi := range infos {
		if fi.Checksum == "" {
			t.Errorf("%s: empty checksum", fi.Path)
		}
		if fi.Size == 0 {
			t.Errorf("%s: zero size", fi.Path)
		}
	}
}

func TestFS_SafePath_RejectsTraversal(t *testing.T) {
	fs := newTestFS(t)
	for _, p := range []string{"../outside.ipynb", "/etc/passwd", "a/../../b.ipynb"} {
		if _, err := fs.Read(p); err == nil {
			t.Errorf("Read(%q) should be rejected", p)
		}
		if err := fs.Write(p, []byte("x")); err == nil {
			t.Errorf("Write(%q) should be rejected", p)
		}
	}
}

func TestFS_DeleteMove(t *testing.T) {
	fs := newTestFS(t)
	if err := fs.Write("a.ipynb", []byte("{}")); err != nil {
		t.Fatal(err)
	}

	if err := fs.Move("a.ipynb", "archive/b.ipynb"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	ok, err := fs.Exists("archive/b.ipynb")
	if err != nil || !ok {
		t.Fatalf("Exists after move = %v, %v", ok, err)
	}
	ok, err = fs.Exists("a.ipynb")
	if err != nil || ok {
		t.Fatalf("old path still exists after move")
	}

	if err := fs.Delete("archive/b.ipynb"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := fs.Delete("archive/b.ipynb"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}
