package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/laguz/internal/notebook"
	"github.com/starford/laguz/internal/notebookservice"
)

// CreateNotebookRequest is the request body for creating a notebook.
type CreateNotebookRequest struct {
	Path   string `json:"path" example:"analysis/report.ipynb"`
	Kernel string `json:"kernel,omitempty" example:"python3"`
}

// Validate implements request validation.
func (r CreateNotebookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required, validation.Length(1, 4096)),
	)
}

// Edit operation names accepted by POST /edit/*.
const (
	OpInsertCell   = "insert_cell"
	OpMoveCell     = "move_cell"
	OpDeleteCell   = "delete_cell"
	OpClearOutputs = "clear_outputs"
	OpRunAll       = "run_all"
)

// EditRequest is the request body for a structural notebook edit. The set of
// required fields depends on Op; integer fields are pointers so that 0 and
// "absent" stay distinct.
type EditRequest struct {
	Op       string `json:"op" example:"insert_cell"`
	Position *int   `json:"position,omitempty"` // insert_cell; defaults to the end
	From     *int   `json:"from,omitempty"`     // move_cell
	To       *int   `json:"to,omitempty"`       // move_cell
	Index    *int   `json:"index,omitempty"`    // delete_cell
	CellType string `json:"cell_type,omitempty" example:"code"`
	Source   string `json:"source,omitempty"`
}

// Validate implements request validation.
func (r EditRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Op, validation.Required,
			validation.In(OpInsertCell, OpMoveCell, OpDeleteCell, OpClearOutputs, OpRunAll)),
		validation.Field(&r.CellType,
			validation.When(r.Op == OpInsertCell, validation.Required,
				validation.In(string(notebook.CellCode), string(notebook.CellMarkdown), string(notebook.CellRaw)))),
		validation.Field(&r.From, validation.When(r.Op == OpMoveCell, validation.NotNil)),
		validation.Field(&r.To, validation.When(r.Op == OpMoveCell, validation.NotNil)),
		validation.Field(&r.Index, validation.When(r.Op == OpDeleteCell, validation.NotNil)),
	)
}

// apply performs the requested structural edit on doc. Only ops that reduce
// to a document mutation are handled here; clear_outputs and run_all go
// through their own service methods.
func (r EditRequest) apply(doc *notebook.Document) error {
	switch r.Op {
	case OpInsertCell:
		pos := doc.Len()
		if r.Position != nil {
			pos = *r.Position
		}
		var c notebook.Cell
		switch notebook.CellType(r.CellType) {
		case notebook.CellMarkdown:
			c = notebook.NewMarkdownCell(r.Source)
		case notebook.CellRaw:
			c = notebook.NewRawCell(r.Source)
		default:
			c = notebook.NewCodeCell(r.Source)
		}
		return doc.InsertCell(pos, c)

	case OpMoveCell:
		return doc.MoveCell(*r.From, *r.To)

	case OpDeleteCell:
		_, err := doc.DeleteCell(*r.Index)
		return err
	}
	return nil
}

// NotebookDetail is the full notebook response type (aliased from the domain layer).
type NotebookDetail = notebookservice.NotebookDetail

// NotebookListItem is a lightweight item in a list response (aliased from the domain layer).
type NotebookListItem = notebookservice.NotebookListItem

// NotebookListResponse wraps paginated notebook listings.
type NotebookListResponse struct {
	Notebooks []NotebookListItem `json:"notebooks"`
	Total     int                `json:"total" example:"42"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path     string `json:"path" example:"analysis/report.ipynb"`
	Position int    `json:"position" example:"3"`
	CellType string `json:"cell_type" example:"code"`
	Snippet  string `json:"snippet" example:"...matched text..."`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// RunResponse reports how many code cells a run request covers.
type RunResponse struct {
	Path      string `json:"path"`
	CodeCells int    `json:"code_cells" example:"4"`
}

// AssetUploadResponse is returned after a successful asset upload.
type AssetUploadResponse struct {
	Filename string `json:"filename" example:"figure.png"`
	Size     int64  `json:"size" example:"12345"`
	URL      string `json:"url" example:"/assets/figure.png"`
}
