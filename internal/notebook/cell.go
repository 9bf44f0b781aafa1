// Package notebook defines the in-memory model of a computational notebook:
// an ordered sequence of cells with structural edit operations and a single
// selection cursor. The model stores already-computed outputs; it never
// executes anything itself.
package notebook

import "encoding/json"

// CellType discriminates the cell variants.
type CellType string

// Cell variants.
const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
	CellRaw      CellType = "raw"
)

// Cell is one unit of a notebook document. The concrete types are *CodeCell,
// *MarkdownCell and *RawCell; consumers dispatch with a type switch.
type Cell interface {
	Type() CellType
	sealed()
}

// CodeCell is an executable cell with its recorded outputs.
type CodeCell struct {
	Metadata CellMetadata
	Source   string
	// ExecutionCount is nil while the cell has never been run.
	ExecutionCount *int
	Outputs        []Output
}

// MarkdownCell is a prose cell. Attachments holds the raw "attachments"
// payload verbatim so it survives a round trip; the model never interprets it.
type MarkdownCell struct {
	Metadata    CellMetadata
	Source      string
	Attachments json.RawMessage
}

// RawCell is an uninterpreted text cell.
type RawCell struct {
	Metadata CellMetadata
	Source   string
}

// Type implements Cell.
func (*CodeCell) Type() CellType { return CellCode }

// Type implements Cell.
func (*MarkdownCell) Type() CellType { return CellMarkdown }

// Type implements Cell.
func (*RawCell) Type() CellType { return CellRaw }

func (*CodeCell) sealed()     {}
func (*MarkdownCell) sealed() {}
func (*RawCell) sealed()      {}

// NewCodeCell returns a never-run code cell with the given source.
func NewCodeCell(source string) *CodeCell {
	return &CodeCell{Source: source}
}

// NewMarkdownCell returns a markdown cell with the given source.
func NewMarkdownCell(source string) *MarkdownCell {
	return &MarkdownCell{Source: source}
}

// NewRawCell returns a raw cell with the given source.
func NewRawCell(source string) *RawCell {
	return &RawCell{Source: source}
}

// Source returns the body of any cell variant.
func Source(c Cell) string {
	switch c := c.(type) {
	case *CodeCell:
		return c.Source
	case *MarkdownCell:
		return c.Source
	case *RawCell:
		return c.Source
	}
	return ""
}

// CellMetadata carries the per-cell options of the interchange format.
// Every field is optional; a nil pointer (or nil Tags slice) means the field
// was absent on disk, which is distinct from an explicit false/empty value.
type CellMetadata struct {
	Collapsed *bool
	Scrolled  *Scrolled
	Deletable *bool
	Editable  *bool
	Format    *string
	Name      *string
	Tags      []string
	// Extra preserves unknown metadata keys, in their original order.
	Extra *RawMap
}

// Scrolled is the cell "scrolled" flag. The format allows either a boolean
// or an arbitrary value ("auto" is common); exactly one of the fields is set.
type Scrolled struct {
	Bool *bool
	Raw  json.RawMessage
}
