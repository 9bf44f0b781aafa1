package notebook

import "fmt"

// IndexError reports a structural edit that referenced an out-of-range cell
// index. The document is never mutated by a failed edit.
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("notebook: %s: index %d out of range (%d cells)", e.Op, e.Index, e.Len)
}
