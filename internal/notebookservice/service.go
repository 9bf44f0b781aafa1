// Package notebookservice coordinates storage, codec and index operations on
// workspace notebooks.
package notebookservice

import (
	"context"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/nbformat"
	"github.com/starford/laguz/internal/notebook"
	"github.com/starford/laguz/internal/storage"
)

// CellSummary is one cell in a detail response. Source is the full cell body;
// outputs are summarized by count only.
type CellSummary struct {
	Index          int    `json:"index"`
	Type           string `json:"type"`
	Source         string `json:"source"`
	ExecutionCount *int   `json:"execution_count,omitempty"`
	OutputCount    int    `json:"output_count"`
}

// NotebookDetail is the full representation of a notebook.
type NotebookDetail struct {
	Path        string        `json:"path"`
	Title       string        `json:"title"`
	Kernel      string        `json:"kernel,omitempty"`
	Language    string        `json:"language,omitempty"`
	Format      int           `json:"nbformat"`
	FormatMinor int           `json:"nbformat_minor"`
	Checksum    string        `json:"checksum"`
	Cells       []CellSummary `json:"cells"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NotebookListItem is a lightweight item in a list response.
type NotebookListItem struct {
	Path          string    `json:"path"`
	Title         string    `json:"title"`
	Kernel        string    `json:"kernel,omitempty"`
	CellCount     int       `json:"cell_count"`
	CodeCellCount int       `json:"code_cell_count"`
	Checksum      string    `json:"checksum"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Publisher receives notebook change notifications. kind is one of
// "created", "updated", "deleted", "outputs_cleared", "run_requested".
type Publisher interface {
	PublishNotebookEvent(kind, path string)
}

// Service coordinates storage and index operations.
type Service struct {
	store  storage.Provider
	db     *index.DB
	events Publisher
}

// NewService creates a new notebook service. events may be nil when no
// broadcast is wanted.
func NewService(store storage.Provider, db *index.DB, events Publisher) *Service {
	return &Service{store: store, db: db, events: events}
}

// Get reads a notebook from storage and decodes it.
func (s *Service) Get(_ context.Context, path string) (*NotebookDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	doc, err := nbformat.Decode(data)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(path, data, doc), nil
}

// Raw returns the on-disk bytes of a notebook together with their checksum.
func (s *Service) Raw(_ context.Context, path string) ([]byte, string, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, "", err
	}
	return data, checksum.Sum(data), nil
}

// Create writes a new empty notebook. kernel, when non-empty, becomes the
// kernelspec name.
func (s *Service) Create(_ context.Context, path, kernel string) (*NotebookDetail, error) {
	if !strings.HasSuffix(path, ".ipynb") {
		path += ".ipynb"
	}
	exists, err := s.store.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrAlreadyExists
	}

	doc := notebook.New()
	if kernel != "" {
		doc.Metadata.KernelSpec = &notebook.KernelSpec{Name: kernel}
	}
	data, err := nbformat.Encode(doc)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(path, data); err != nil {
		return nil, err
	}
	if err := index.IndexNotebook(s.db, path, data, time.Now()); err != nil {
		return nil, err
	}
	s.publish("created", path)
	return s.buildDetail(path, data, doc), nil
}

// Update replaces a notebook's content with optimistic concurrency. content
// must decode cleanly; invalid documents are rejected before anything is
// written.
func (s *Service) Update(_ context.Context, path string, content []byte, ifMatch string) (*NotebookDetail, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	doc, err := nbformat.Decode(content)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := index.IndexNotebook(s.db, path, content, time.Now()); err != nil {
		return nil, err
	}
	s.publish("updated", path)
	return s.buildDetail(path, content, doc), nil
}

// Delete removes a notebook from storage and index.
func (s *Service) Delete(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		return err
	}
	if err := s.db.DeleteNotebook(path); err != nil {
		return err
	}
	s.publish("deleted", path)
	return nil
}

// List returns paginated notebooks from the index.
func (s *Service) List(_ context.Context, limit, offset int) ([]NotebookListItem, int, error) {
	rows, total, err := s.db.ListNotebooks(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NotebookListItem, len(rows))
	for i, r := range rows {
		items[i] = NotebookListItem{
			Path:          r.Path,
			Title:         r.Title,
			Kernel:        r.Kernel,
			CellCount:     r.CellCount,
			CodeCellCount: r.CodeCellCount,
			Checksum:      r.Checksum,
			UpdatedAt:     r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search over cell sources to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Edit applies a structural edit under optimistic concurrency: the notebook
// is read, decoded, handed to fn, re-encoded and written back atomically.
// A failing fn leaves the file untouched.
func (s *Service) Edit(ctx context.Context, path, ifMatch string, fn func(*notebook.Document) error) (*NotebookDetail, error) {
	return s.edit(ctx, path, ifMatch, "updated", fn)
}

// ClearOutputs empties the outputs of every code cell in the notebook.
func (s *Service) ClearOutputs(ctx context.Context, path, ifMatch string) (*NotebookDetail, error) {
	return s.edit(ctx, path, ifMatch, "outputs_cleared", func(doc *notebook.Document) error {
		doc.ClearOutputs()
		return nil
	})
}

// RequestRun announces that every code cell of the notebook should be
// executed and returns how many there are. Execution itself is the
// subscriber's job; the service never runs code.
func (s *Service) RequestRun(_ context.Context, path string) (int, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return 0, err
	}
	doc, err := nbformat.Decode(data)
	if err != nil {
		return 0, err
	}
	var n int
	doc.RunAll(func(int, *notebook.CodeCell) { n++ })
	s.publish("run_requested", path)
	return n, nil
}

func (s *Service) edit(_ context.Context, path, ifMatch, kind string, fn func(*notebook.Document) error) (*NotebookDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(data) {
		return nil, apperr.ErrConflict
	}
	doc, err := nbformat.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	out, err := nbformat.Encode(doc)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(path, out); err != nil {
		return nil, err
	}
	if err := index.IndexNotebook(s.db, path, out, time.Now()); err != nil {
		return nil, err
	}
	s.publish(kind, path)
	return s.buildDetail(path, out, doc), nil
}

func (s *Service) publish(kind, path string) {
	if s.events != nil {
		s.events.PublishNotebookEvent(kind, path)
	}
}

// buildDetail constructs a NotebookDetail from already-decoded content
// without re-reading the file.
func (s *Service) buildDetail(path string, data []byte, doc *notebook.Document) *NotebookDetail {
	d := &NotebookDetail{
		Path:        path,
		Title:       doc.Title(),
		Format:      doc.Format,
		FormatMinor: doc.FormatMinor,
		Checksum:    checksum.Sum(data),
		Cells:       make([]CellSummary, 0, doc.Len()),
		UpdatedAt:   time.Now(),
	}
	if ks := doc.Metadata.KernelSpec; ks != nil {
		d.Kernel = ks.Name
	}
	if li := doc.Metadata.LanguageInfo; li != nil {
		d.Language = li.Name
	}
	for i, c := range doc.Cells() {
		cs := CellSummary{
			Index:  i,
			Type:   string(c.Type()),
			Source: notebook.Source(c),
		}
		if code, ok := c.(*notebook.CodeCell); ok {
			cs.ExecutionCount = code.ExecutionCount
			cs.OutputCount = len(code.Outputs)
		}
		d.Cells = append(d.Cells, cs)
	}
	return d
}
