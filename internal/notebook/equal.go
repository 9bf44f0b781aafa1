package notebook

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Equal reports field-by-field equality of two documents: format version,
// metadata, and every cell and output. The selection cursor is transient
// state and is deliberately not compared.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Format != b.Format || a.FormatMinor != b.FormatMinor {
		return false
	}
	if !metadataEqual(a.Metadata, b.Metadata) {
		return false
	}
	if len(a.cells) != len(b.cells) {
		return false
	}
	for i := range a.cells {
		if !CellEqual(a.cells[i], b.cells[i]) {
			return false
		}
	}
	return true
}

// CellEqual reports field-by-field equality of two cells.
func CellEqual(a, b Cell) bool {
	switch a := a.(type) {
	case *CodeCell:
		b, ok := b.(*CodeCell)
		if !ok {
			return false
		}
		if a.Source != b.Source || !intPtrEqual(a.ExecutionCount, b.ExecutionCount) {
			return false
		}
		if !cellMetadataEqual(a.Metadata, b.Metadata) {
			return false
		}
		if len(a.Outputs) != len(b.Outputs) {
			return false
		}
		for i := range a.Outputs {
			if !OutputEqual(a.Outputs[i], b.Outputs[i]) {
				return false
			}
		}
		return true
	case *MarkdownCell:
		b, ok := b.(*MarkdownCell)
		if !ok {
			return false
		}
		return a.Source == b.Source &&
			cellMetadataEqual(a.Metadata, b.Metadata) &&
			rawEqual(a.Attachments, b.Attachments)
	case *RawCell:
		b, ok := b.(*RawCell)
		if !ok {
			return false
		}
		return a.Source == b.Source && cellMetadataEqual(a.Metadata, b.Metadata)
	}
	return false
}

// OutputEqual reports field-by-field equality of two outputs.
func OutputEqual(a, b Output) bool {
	switch a := a.(type) {
	case *StreamOutput:
		b, ok := b.(*StreamOutput)
		return ok && a.Name == b.Name && a.Text == b.Text
	case *DisplayDataOutput:
		b, ok := b.(*DisplayDataOutput)
		return ok && rawMapEqual(a.Data, b.Data) && rawMapEqual(a.Metadata, b.Metadata)
	case *ExecuteResultOutput:
		b, ok := b.(*ExecuteResultOutput)
		return ok && a.ExecutionCount == b.ExecutionCount &&
			rawMapEqual(a.Data, b.Data) && rawMapEqual(a.Metadata, b.Metadata)
	case *ErrorOutput:
		b, ok := b.(*ErrorOutput)
		if !ok || a.Name != b.Name || a.Value != b.Value || len(a.Traceback) != len(b.Traceback) {
			return false
		}
		for i := range a.Traceback {
			if a.Traceback[i] != b.Traceback[i] {
				return false
			}
		}
		return true
	}
	return false
}

func metadataEqual(a, b Metadata) bool {
	if (a.KernelSpec == nil) != (b.KernelSpec == nil) {
		return false
	}
	if a.KernelSpec != nil && a.KernelSpec.Name != b.KernelSpec.Name {
		return false
	}
	if (a.LanguageInfo == nil) != (b.LanguageInfo == nil) {
		return false
	}
	if a.LanguageInfo != nil {
		if a.LanguageInfo.Name != b.LanguageInfo.Name ||
			!strPtrEqual(a.LanguageInfo.Version, b.LanguageInfo.Version) ||
			!strPtrEqual(a.LanguageInfo.CodemirrorMode, b.LanguageInfo.CodemirrorMode) {
			return false
		}
	}
	return rawMapEqual(a.Extra, b.Extra)
}

func cellMetadataEqual(a, b CellMetadata) bool {
	if !boolPtrEqual(a.Collapsed, b.Collapsed) ||
		!boolPtrEqual(a.Deletable, b.Deletable) ||
		!boolPtrEqual(a.Editable, b.Editable) ||
		!strPtrEqual(a.Format, b.Format) ||
		!strPtrEqual(a.Name, b.Name) {
		return false
	}
	if !scrolledEqual(a.Scrolled, b.Scrolled) {
		return false
	}
	if len(a.Tags) != len(b.Tags) || (a.Tags == nil) != (b.Tags == nil) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return rawMapEqual(a.Extra, b.Extra)
}

func scrolledEqual(a, b *Scrolled) bool {
	if a == nil || b == nil {
		return a == b
	}
	return boolPtrEqual(a.Bool, b.Bool) && rawEqual(a.Raw, b.Raw)
}

// rawMapEqual treats nil and empty maps as equal; both mean "no payload".
func rawMapEqual(a, b *RawMap) bool {
	if mapLen(a) != mapLen(b) {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	pa, pb := a.Oldest(), b.Oldest()
	for pa != nil && pb != nil {
		if pa.Key != pb.Key || !rawEqual(pa.Value, pb.Value) {
			return false
		}
		pa, pb = pa.Next(), pb.Next()
	}
	return pa == nil && pb == nil
}

func mapLen(m *RawMap) int {
	if m == nil {
		return 0
	}
	return m.Len()
}

// rawEqual compares opaque JSON payloads by value. Re-encoding a payload may
// change its bytes (insignificant whitespace, HTML escaping of <, > and &),
// so byte equality is only a fast path.
func rawEqual(a, b []byte) bool {
	ta, tb := bytes.TrimSpace(a), bytes.TrimSpace(b)
	if bytes.Equal(ta, tb) {
		return true
	}
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	var va, vb any
	if json.Unmarshal(ta, &va) != nil || json.Unmarshal(tb, &vb) != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
