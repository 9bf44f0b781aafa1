package index

// NotebookIndex defines the interface for notebook indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NotebookIndex interface {
	UpsertNotebook(n NotebookRow, cells []CellRow) error
	DeleteNotebook(path string) error
	GetNotebook(path string) (*NotebookRow, error)
	ListNotebooks(limit, offset int) ([]NotebookRow, int, error)
	Cells(path string) ([]CellRow, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies NotebookIndex at compile time.
var _ NotebookIndex = (*DB)(nil)
