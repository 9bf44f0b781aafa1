package notebook

import "strings"

// Default format version for newly created documents.
const (
	DefaultFormat      = 4
	DefaultFormatMinor = 0
)

// NoSelection is the Selected value of an empty document.
const NoSelection = -1

// Metadata is the document-level metadata of a notebook.
type Metadata struct {
	KernelSpec   *KernelSpec
	LanguageInfo *LanguageInfo
	// Extra preserves unknown top-level metadata keys, in their original order.
	Extra *RawMap
}

// KernelSpec names the kernel the notebook was written for.
type KernelSpec struct {
	Name string
}

// LanguageInfo describes the notebook's source language.
type LanguageInfo struct {
	Name           string
	Version        *string
	CodemirrorMode *string
}

// Document is an in-memory notebook: a format version, metadata and an
// ordered cell sequence. Cell order is the sole ordering signal; cells carry
// no position of their own.
//
// The selection cursor is the only transient state. Every structural edit
// keeps it clamped: Selected is NoSelection exactly when the document is
// empty, and a valid index otherwise. A Document is exclusively owned by its
// host; no operation blocks and none is safe for concurrent use.
type Document struct {
	Format      int
	FormatMinor int
	Metadata    Metadata

	cells    []Cell
	selected int
}

// New returns an empty document with default metadata and the current
// format version. Nothing is selected until the first cell is inserted.
func New() *Document {
	return &Document{
		Format:      DefaultFormat,
		FormatMinor: DefaultFormatMinor,
		selected:    NoSelection,
	}
}

// Len returns the number of cells.
func (d *Document) Len() int { return len(d.cells) }

// Cell returns the cell at index i, or nil if i is out of range.
func (d *Document) Cell(i int) Cell {
	if i < 0 || i >= len(d.cells) {
		return nil
	}
	return d.cells[i]
}

// Cells returns the cell sequence in order. The returned slice is the
// document's own backing store; callers must not modify it.
func (d *Document) Cells() []Cell { return d.cells }

// Selected returns the index of the selected cell, or NoSelection when the
// document is empty.
func (d *Document) Selected() int { return d.selected }

// Select moves the selection cursor to index i.
func (d *Document) Select(i int) error {
	if i < 0 || i >= len(d.cells) {
		return &IndexError{Op: "select", Index: i, Len: len(d.cells)}
	}
	d.selected = i
	return nil
}

// InsertCell inserts c at position pos (0 <= pos <= Len), shifting later
// cells down. The selection keeps tracking the cell it pointed at; inserting
// into an empty document selects the new cell.
func (d *Document) InsertCell(pos int, c Cell) error {
	if pos < 0 || pos > len(d.cells) {
		return &IndexError{Op: "insert", Index: pos, Len: len(d.cells)}
	}
	d.cells = append(d.cells, nil)
	copy(d.cells[pos+1:], d.cells[pos:])
	d.cells[pos] = c

	switch {
	case d.selected == NoSelection:
		d.selected = pos
	case pos <= d.selected:
		d.selected++
	}
	return nil
}

// Append adds c after the last cell.
func (d *Document) Append(c Cell) {
	_ = d.InsertCell(len(d.cells), c)
}

// MoveCell relocates the cell at from to position to, preserving the
// relative order of all other cells. Selection follows a moved selected
// cell and otherwise keeps tracking the cell it pointed at.
func (d *Document) MoveCell(from, to int) error {
	n := len(d.cells)
	if from < 0 || from >= n {
		return &IndexError{Op: "move", Index: from, Len: n}
	}
	if to < 0 || to >= n {
		return &IndexError{Op: "move", Index: to, Len: n}
	}
	if from == to {
		return nil
	}

	c := d.cells[from]
	if from < to {
		copy(d.cells[from:], d.cells[from+1:to+1])
	} else {
		copy(d.cells[to+1:], d.cells[to:from])
	}
	d.cells[to] = c

	switch {
	case d.selected == from:
		d.selected = to
	case from < d.selected && to >= d.selected:
		d.selected--
	case from > d.selected && to <= d.selected:
		d.selected++
	}
	return nil
}

// DeleteCell removes and returns the cell at index i. If the deleted cell
// was selected, selection moves to the following cell, then the preceding
// one, then NoSelection when the document becomes empty.
func (d *Document) DeleteCell(i int) (Cell, error) {
	if i < 0 || i >= len(d.cells) {
		return nil, &IndexError{Op: "delete", Index: i, Len: len(d.cells)}
	}
	c := d.cells[i]
	d.cells = append(d.cells[:i], d.cells[i+1:]...)

	switch {
	case len(d.cells) == 0:
		d.selected = NoSelection
	case i < d.selected:
		d.selected--
	case i == d.selected && d.selected >= len(d.cells):
		d.selected = len(d.cells) - 1
	}
	return c, nil
}

// ClearOutputs empties the output sequence of every code cell. Execution
// counts are kept; clearing outputs is not the same as never having run.
func (d *Document) ClearOutputs() {
	for _, c := range d.cells {
		if code, ok := c.(*CodeCell); ok {
			code.Outputs = nil
		}
	}
}

// RunAll visits every code cell in order and hands it to fn. The model
// performs no execution itself; fn is the hook through which a host wires
// in its own runner.
func (d *Document) RunAll(fn func(index int, cell *CodeCell)) {
	if fn == nil {
		return
	}
	for i, c := range d.cells {
		if code, ok := c.(*CodeCell); ok {
			fn(i, code)
		}
	}
}

// Title returns the text of the first markdown heading in the document,
// or "" when there is none.
func (d *Document) Title() string {
	for _, c := range d.cells {
		md, ok := c.(*MarkdownCell)
		if !ok {
			continue
		}
		for _, line := range strings.Split(md.Source, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "#") {
				return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			}
		}
	}
	return ""
}
