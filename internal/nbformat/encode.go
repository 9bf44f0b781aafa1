package nbformat

import (
	"encoding/json"
	"fmt"

	"github.com/starford/laguz/internal/notebook"
)

type docOut struct {
	Metadata    json.RawMessage   `json:"metadata"`
	Format      int               `json:"nbformat"`
	FormatMinor int               `json:"nbformat_minor"`
	Cells       []json.RawMessage `json:"cells"`
}

type codeCellOut struct {
	CellType       string            `json:"cell_type"`
	ExecutionCount *int              `json:"execution_count"`
	Metadata       json.RawMessage   `json:"metadata"`
	Outputs        []json.RawMessage `json:"outputs"`
	Source         string            `json:"source"`
}

type markdownCellOut struct {
	CellType    string          `json:"cell_type"`
	Attachments json.RawMessage `json:"attachments,omitempty"`
	Metadata    json.RawMessage `json:"metadata"`
	Source      string          `json:"source"`
}

type rawCellOut struct {
	CellType string          `json:"cell_type"`
	Metadata json.RawMessage `json:"metadata"`
	Source   string          `json:"source"`
}

type streamOut struct {
	Name       string `json:"name"`
	OutputType string `json:"output_type"`
	Text       string `json:"text"`
}

type displayDataOut struct {
	Data       json.RawMessage `json:"data"`
	Metadata   json.RawMessage `json:"metadata"`
	OutputType string          `json:"output_type"`
}

type executeResultOut struct {
	Data           json.RawMessage `json:"data"`
	ExecutionCount int             `json:"execution_count"`
	Metadata       json.RawMessage `json:"metadata"`
	OutputType     string          `json:"output_type"`
}

type errorOut struct {
	Ename      string   `json:"ename"`
	Evalue     string   `json:"evalue"`
	OutputType string   `json:"output_type"`
	Traceback  []string `json:"traceback"`
}

type kernelSpecOut struct {
	Name string `json:"name"`
}

type languageInfoOut struct {
	Name           string  `json:"name"`
	Version        *string `json:"version,omitempty"`
	CodemirrorMode *string `json:"codemirror_mode,omitempty"`
}

// Encode serializes doc to interchange JSON.
//
// The output is deterministic: typed keys are emitted in a fixed order,
// opaque payloads keep their insertion order, and encoding the same
// Document twice yields byte-identical output. Cell sources are always
// emitted as a single string, so the two accepted input spellings collapse
// into one canonical form; encode(decode(b)) is semantically equal to b,
// not byte-identical.
func Encode(doc *notebook.Document) ([]byte, error) {
	md, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return nil, err
	}

	out := docOut{
		Metadata:    md,
		Format:      doc.Format,
		FormatMinor: doc.FormatMinor,
		Cells:       make([]json.RawMessage, 0, doc.Len()),
	}
	for i, c := range doc.Cells() {
		raw, err := encodeCell(c)
		if err != nil {
			return nil, fmt.Errorf("nbformat: encode cells[%d]: %w", i, err)
		}
		out.Cells = append(out.Cells, raw)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("nbformat: encode: %w", err)
	}
	return data, nil
}

func encodeMetadata(md notebook.Metadata) (json.RawMessage, error) {
	m := notebook.NewRawMap()
	if md.KernelSpec != nil {
		raw, err := json.Marshal(kernelSpecOut{Name: md.KernelSpec.Name})
		if err != nil {
			return nil, fmt.Errorf("nbformat: encode kernelspec: %w", err)
		}
		m.Set("kernelspec", raw)
	}
	if md.LanguageInfo != nil {
		raw, err := json.Marshal(languageInfoOut{
			Name:           md.LanguageInfo.Name,
			Version:        md.LanguageInfo.Version,
			CodemirrorMode: md.LanguageInfo.CodemirrorMode,
		})
		if err != nil {
			return nil, fmt.Errorf("nbformat: encode language_info: %w", err)
		}
		m.Set("language_info", raw)
	}
	copyExtra(m, md.Extra)
	return json.Marshal(m)
}

func encodeCell(c notebook.Cell) (json.RawMessage, error) {
	switch c := c.(type) {
	case *notebook.CodeCell:
		md, err := encodeCellMetadata(c.Metadata)
		if err != nil {
			return nil, err
		}
		outputs := make([]json.RawMessage, 0, len(c.Outputs))
		for i, o := range c.Outputs {
			raw, err := encodeOutput(o)
			if err != nil {
				return nil, fmt.Errorf("outputs[%d]: %w", i, err)
			}
			outputs = append(outputs, raw)
		}
		return json.Marshal(codeCellOut{
			CellType:       string(notebook.CellCode),
			ExecutionCount: c.ExecutionCount,
			Metadata:       md,
			Outputs:        outputs,
			Source:         c.Source,
		})

	case *notebook.MarkdownCell:
		md, err := encodeCellMetadata(c.Metadata)
		if err != nil {
			return nil, err
		}
		return json.Marshal(markdownCellOut{
			CellType:    string(notebook.CellMarkdown),
			Attachments: c.Attachments,
			Metadata:    md,
			Source:      c.Source,
		})

	case *notebook.RawCell:
		md, err := encodeCellMetadata(c.Metadata)
		if err != nil {
			return nil, err
		}
		return json.Marshal(rawCellOut{
			CellType: string(notebook.CellRaw),
			Metadata: md,
			Source:   c.Source,
		})
	}
	return nil, fmt.Errorf("unknown cell variant %T", c)
}

func encodeOutput(o notebook.Output) (json.RawMessage, error) {
	switch o := o.(type) {
	case *notebook.StreamOutput:
		return json.Marshal(streamOut{
			Name:       o.Name,
			OutputType: string(notebook.OutputStream),
			Text:       o.Text,
		})
	case *notebook.DisplayDataOutput:
		return json.Marshal(displayDataOut{
			Data:       rawMapOrEmpty(o.Data),
			Metadata:   rawMapOrEmpty(o.Metadata),
			OutputType: string(notebook.OutputDisplayData),
		})
	case *notebook.ExecuteResultOutput:
		return json.Marshal(executeResultOut{
			Data:           rawMapOrEmpty(o.Data),
			ExecutionCount: o.ExecutionCount,
			Metadata:       rawMapOrEmpty(o.Metadata),
			OutputType:     string(notebook.OutputExecuteResult),
		})
	case *notebook.ErrorOutput:
		tb := o.Traceback
		if tb == nil {
			tb = []string{}
		}
		return json.Marshal(errorOut{
			Ename:      o.Name,
			Evalue:     o.Value,
			OutputType: string(notebook.OutputError),
			Traceback:  tb,
		})
	}
	return nil, fmt.Errorf("unknown output variant %T", o)
}

// encodeCellMetadata writes the typed keys in a fixed order, then any
// preserved unknown keys in their original order.
func encodeCellMetadata(md notebook.CellMetadata) (json.RawMessage, error) {
	m := notebook.NewRawMap()
	if md.Collapsed != nil {
		m.Set("collapsed", mustMarshal(*md.Collapsed))
	}
	if md.Scrolled != nil {
		if md.Scrolled.Bool != nil {
			m.Set("scrolled", mustMarshal(*md.Scrolled.Bool))
		} else if len(md.Scrolled.Raw) > 0 {
			m.Set("scrolled", md.Scrolled.Raw)
		}
	}
	if md.Deletable != nil {
		m.Set("deletable", mustMarshal(*md.Deletable))
	}
	if md.Editable != nil {
		m.Set("editable", mustMarshal(*md.Editable))
	}
	if md.Format != nil {
		m.Set("format", mustMarshal(*md.Format))
	}
	if md.Name != nil {
		m.Set("name", mustMarshal(*md.Name))
	}
	if md.Tags != nil {
		m.Set("tags", mustMarshal(md.Tags))
	}
	copyExtra(m, md.Extra)
	return json.Marshal(m)
}

func copyExtra(dst *notebook.RawMap, extra *notebook.RawMap) {
	if extra == nil {
		return
	}
	for p := extra.Oldest(); p != nil; p = p.Next() {
		dst.Set(p.Key, p.Value)
	}
}

func rawMapOrEmpty(m *notebook.RawMap) json.RawMessage {
	if m == nil || m.Len() == 0 {
		return json.RawMessage(`{}`)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

// mustMarshal is for values that cannot fail to marshal (bools, strings,
// string slices).
func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
