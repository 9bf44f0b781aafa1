package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/laguz/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "laguz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRow(path string) (NotebookRow, []CellRow) {
	row := NotebookRow{
		Path:          path,
		Title:         "Weekly Report",
		Kernel:        "python3",
		Language:      "python",
		Checksum:      "abc123",
		CellCount:     2,
		CodeCellCount: 1,
		UpdatedAt:     time.Now(),
	}
	cells := []CellRow{
		{Notebook: path, Position: 0, Type: "markdown", Source: "# Weekly Report"},
		{Notebook: path, Position: 1, Type: "code", Source: "import pandas"},
	}
	return row, cells
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notebooks`).Scan(&count); err != nil {
		t.Fatalf("notebooks table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM cells`).Scan(&count); err != nil {
		t.Fatalf("cells table missing: %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	row, cells := sampleRow("report.ipynb")
	if err := db.UpsertNotebook(row, cells); err != nil {
		t.Fatalf("UpsertNotebook: %v", err)
	}

	got, err := db.GetNotebook("report.ipynb")
	if err != nil {
		t.Fatalf("GetNotebook: %v", err)
	}
	if got.Title != "Weekly Report" || got.Kernel != "python3" || got.CellCount != 2 || got.CodeCellCount != 1 {
		t.Errorf("row = %+v", got)
	}

	rows, err := db.Cells("report.ipynb")
	if err != nil {
		t.Fatalf("Cells: %v", err)
	}
	if len(rows) != 2 || rows[0].Position != 0 || rows[1].Type != "code" {
		t.Errorf("cells = %+v", rows)
	}
}

func TestGetNotebook_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetNotebook("nope.ipynb")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	row, cells := sampleRow("up.ipynb")
	if err := db.UpsertNotebook(row, cells); err != nil {
		t.Fatal(err)
	}

	row.Title = "Revised"
	row.Checksum = "def456"
	if err := db.UpsertNotebook(row, cells[:1]); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetNotebook("up.ipynb")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Revised" || got.Checksum != "def456" {
		t.Errorf("row after upsert = %+v", got)
	}
	rows, _ := db.Cells("up.ipynb")
	if len(rows) != 1 {
		t.Errorf("cells after upsert = %d, want 1", len(rows))
	}
}

func TestDeleteNotebook(t *testing.T) {
	db := testDB(t)
	row, cells := sampleRow("del.ipynb")
	if err := db.UpsertNotebook(row, cells); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteNotebook("del.ipynb"); err != nil {
		t.Fatalf("DeleteNotebook: %v", err)
	}
	if _, err := db.GetNotebook("del.ipynb"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted notebook still present: %v", err)
	}
	rows, _ := db.Cells("del.ipynb")
	if len(rows) != 0 {
		t.Errorf("cells not removed with notebook: %+v", rows)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.ipynb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListNotebooks_Pagination(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"a.ipynb", "b.ipynb", "c.ipynb"} {
		row, cells := sampleRow(p)
		if err := db.UpsertNotebook(row, cells); err != nil {
			t.Fatal(err)
		}
	}

	page, total, err := db.ListNotebooks(2, 0)
	if err != nil {
		t.Fatalf("ListNotebooks: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(page) != 2 || page[0].Path != "a.ipynb" || page[1].Path != "b.ipynb" {
		t.Errorf("page = %+v", page)
	}

	page, _, err = db.ListNotebooks(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Path != "c.ipynb" {
		t.Errorf("second page = %+v", page)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	row, cells := sampleRow("s.ipynb")
	cells[1].Source = "uniqueword = load()"
	if err := db.UpsertNotebook(row, cells); err != nil {
		t.Fatal(err)
	}

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.ipynb" || results[0].Position != 1 {
		t.Errorf("search results = %+v, want 1 hit for s.ipynb cell 1", results)
	}
}
