//go:build sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM cells_fts`).Scan(&count); err != nil {
		t.Fatalf("cells_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := NotebookRow{
		Path:      "fts.ipynb",
		Title:     "FTS Notebook",
		Checksum:  "f1",
		CellCount: 1,
		UpdatedAt: time.Now(),
	}
	cells := []CellRow{
		{Notebook: "fts.ipynb", Position: 0, Type: "code", Source: "df = spark.sql('select powerful analytics')"},
	}
	if err := db.UpsertNotebook(row, cells); err != nil {
		t.Fatalf("UpsertNotebook: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "fts.ipynb" || results[0].Position != 0 {
		t.Errorf("hit = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	cells := []CellRow{{Notebook: "gone.ipynb", Position: 0, Type: "code", Source: "vanishing content"}}
	_ = db.UpsertNotebook(NotebookRow{Path: "gone.ipynb", Checksum: "g", CellCount: 1, UpdatedAt: time.Now()}, cells)
	_ = db.DeleteNotebook("gone.ipynb")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.Path == "gone.ipynb" {
			t.Error("deleted notebook still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	old := []CellRow{{Notebook: "evo.ipynb", Position: 0, Type: "code", Source: "original text"}}
	_ = db.UpsertNotebook(NotebookRow{Path: "evo.ipynb", Checksum: "1", CellCount: 1, UpdatedAt: now}, old)
	repl := []CellRow{{Notebook: "evo.ipynb", Position: 0, Type: "code", Source: "replacement text"}}
	_ = db.UpsertNotebook(NotebookRow{Path: "evo.ipynb", Checksum: "2", CellCount: 1, UpdatedAt: now}, repl)

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 {
		t.Errorf("FTS not updated: %+v", results)
	}
}
