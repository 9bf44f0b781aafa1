// Package nbformat implements the .ipynb interchange codec: Decode parses
// on-disk JSON into a notebook.Document, Encode serializes one back out
// deterministically. Both are pure functions over in-memory buffers; file
// I/O belongs to the caller.
package nbformat

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/starford/laguz/internal/notebook"
)

// SupportedFormat is the major notebook format version this codec
// implements. Unknown minor revisions of the same major are accepted;
// fields they introduce are preserved opaquely where the model carries an
// Extra map and ignored otherwise.
const SupportedFormat = 4

type docJSON struct {
	Metadata    json.RawMessage   `json:"metadata"`
	Format      json.Number       `json:"nbformat"`
	FormatMinor json.Number       `json:"nbformat_minor"`
	Cells       []json.RawMessage `json:"cells"`
}

type cellJSON struct {
	CellType       string            `json:"cell_type"`
	Metadata       json.RawMessage   `json:"metadata"`
	Source         json.RawMessage   `json:"source"`
	ExecutionCount json.Number       `json:"execution_count"`
	Outputs        []json.RawMessage `json:"outputs"`
	Attachments    json.RawMessage   `json:"attachments"`
}

type outputJSON struct {
	OutputType     string          `json:"output_type"`
	Name           json.RawMessage `json:"name"`
	Text           json.RawMessage `json:"text"`
	Data           json.RawMessage `json:"data"`
	Metadata       json.RawMessage `json:"metadata"`
	ExecutionCount json.Number     `json:"execution_count"`
	Ename          json.RawMessage `json:"ename"`
	Evalue         json.RawMessage `json:"evalue"`
	Traceback      json.RawMessage `json:"traceback"`
}

// Decode parses notebook interchange JSON into a Document.
//
// Tolerances: cell sources (and stream text) may be a single string or an
// array of fragments, which are concatenated verbatim; document and cell
// metadata may be absent and default to empty; unknown metadata keys are
// preserved in order. Unknown keys inside the typed kernelspec and
// language_info objects are dropped.
//
// An unrecognized cell_type or output_type fails the whole decode with a
// path-annotated *SchemaError; a partially understood notebook is never
// returned. Decode allocates a fresh Document and mutates no caller state
// on failure.
func Decode(data []byte) (*notebook.Document, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformedInput)
	}
	if err := probeFormat(data); err != nil {
		return nil, err
	}

	var raw docJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaError{Path: "$", Reason: "expected a notebook object: " + err.Error()}
	}

	major, err := wholeInt(raw.Format, "nbformat")
	if err != nil {
		return nil, err
	}
	if raw.FormatMinor == "" {
		return nil, &SchemaError{Path: "nbformat_minor", Reason: "required whole-number field"}
	}
	minor, err := wholeInt(raw.FormatMinor, "nbformat_minor")
	if err != nil {
		return nil, err
	}
	if raw.Cells == nil {
		return nil, &SchemaError{Path: "cells", Reason: "required field"}
	}

	md, err := decodeMetadata(raw.Metadata)
	if err != nil {
		return nil, err
	}

	doc := notebook.New()
	doc.Format = major
	doc.FormatMinor = minor
	doc.Metadata = md

	for i, rawCell := range raw.Cells {
		cell, err := decodeCell(rawCell, fmt.Sprintf("cells[%d]", i))
		if err != nil {
			return nil, err
		}
		doc.Append(cell)
	}
	return doc, nil
}

// probeFormat reads just the nbformat field, so oversized documents of an
// unsupported major version are rejected before the full parse.
func probeFormat(data []byte) error {
	major, err := jsonparser.GetInt(data, "nbformat")
	if err != nil {
		return &SchemaError{Path: "nbformat", Reason: "required whole-number field"}
	}
	if major != SupportedFormat {
		return &UnsupportedVersionError{Found: int(major)}
	}
	return nil
}

func decodeMetadata(raw json.RawMessage) (notebook.Metadata, error) {
	var md notebook.Metadata
	if isAbsent(raw) {
		return md, nil
	}
	m := notebook.NewRawMap()
	if err := json.Unmarshal(raw, m); err != nil {
		return md, &SchemaError{Path: "metadata", Reason: "expected an object"}
	}
	if v, ok := m.Get("kernelspec"); ok {
		ks, err := decodeKernelSpec(v)
		if err != nil {
			return md, err
		}
		md.KernelSpec = ks
		m.Delete("kernelspec")
	}
	if v, ok := m.Get("language_info"); ok {
		li, err := decodeLanguageInfo(v)
		if err != nil {
			return md, err
		}
		md.LanguageInfo = li
		m.Delete("language_info")
	}
	if m.Len() > 0 {
		md.Extra = m
	}
	return md, nil
}

func decodeKernelSpec(raw json.RawMessage) (*notebook.KernelSpec, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &SchemaError{Path: "metadata.kernelspec", Reason: "expected an object"}
	}
	name, err := requireString(fields["name"], "metadata.kernelspec.name")
	if err != nil {
		return nil, err
	}
	return &notebook.KernelSpec{Name: name}, nil
}

func decodeLanguageInfo(raw json.RawMessage) (*notebook.LanguageInfo, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &SchemaError{Path: "metadata.language_info", Reason: "expected an object"}
	}
	name, err := requireString(fields["name"], "metadata.language_info.name")
	if err != nil {
		return nil, err
	}
	li := &notebook.LanguageInfo{Name: name}
	if li.Version, err = optString(fields["version"], "metadata.language_info.version"); err != nil {
		return nil, err
	}
	if li.CodemirrorMode, err = optString(fields["codemirror_mode"], "metadata.language_info.codemirror_mode"); err != nil {
		return nil, err
	}
	return li, nil
}

func decodeCell(raw json.RawMessage, path string) (notebook.Cell, error) {
	var cj cellJSON
	if err := json.Unmarshal(raw, &cj); err != nil {
		return nil, &SchemaError{Path: path, Reason: "invalid cell: " + err.Error()}
	}
	if cj.CellType == "" {
		return nil, &SchemaError{Path: path + ".cell_type", Reason: "required field"}
	}

	meta, err := decodeCellMetadata(cj.Metadata, path+".metadata")
	if err != nil {
		return nil, err
	}
	src, err := decodeText(cj.Source, path+".source")
	if err != nil {
		return nil, err
	}

	switch notebook.CellType(cj.CellType) {
	case notebook.CellMarkdown:
		cell := &notebook.MarkdownCell{Metadata: meta, Source: src}
		if !isAbsent(cj.Attachments) {
			cell.Attachments = cj.Attachments
		}
		return cell, nil

	case notebook.CellRaw:
		return &notebook.RawCell{Metadata: meta, Source: src}, nil

	case notebook.CellCode:
		cell := &notebook.CodeCell{Metadata: meta, Source: src}
		if cj.ExecutionCount != "" {
			n, err := wholeInt(cj.ExecutionCount, path+".execution_count")
			if err != nil {
				return nil, err
			}
			cell.ExecutionCount = &n
		}
		for j, rawOut := range cj.Outputs {
			out, err := decodeOutput(rawOut, fmt.Sprintf("%s.outputs[%d]", path, j))
			if err != nil {
				return nil, err
			}
			cell.Outputs = append(cell.Outputs, out)
		}
		return cell, nil

	default:
		return nil, &SchemaError{
			Path:   path + ".cell_type",
			Reason: fmt.Sprintf("unrecognized cell type %q", cj.CellType),
		}
	}
}

func decodeOutput(raw json.RawMessage, path string) (notebook.Output, error) {
	var oj outputJSON
	if err := json.Unmarshal(raw, &oj); err != nil {
		return nil, &SchemaError{Path: path, Reason: "invalid output: " + err.Error()}
	}
	if oj.OutputType == "" {
		return nil, &SchemaError{Path: path + ".output_type", Reason: "required field"}
	}

	switch notebook.OutputType(oj.OutputType) {
	case notebook.OutputStream:
		name, err := requireString(oj.Name, path+".name")
		if err != nil {
			return nil, err
		}
		text, err := decodeText(oj.Text, path+".text")
		if err != nil {
			return nil, err
		}
		return &notebook.StreamOutput{Name: name, Text: text}, nil

	case notebook.OutputDisplayData:
		data, err := decodeRawMap(oj.Data, path+".data")
		if err != nil {
			return nil, err
		}
		md, err := decodeRawMap(oj.Metadata, path+".metadata")
		if err != nil {
			return nil, err
		}
		return &notebook.DisplayDataOutput{Data: data, Metadata: md}, nil

	case notebook.OutputExecuteResult:
		if oj.ExecutionCount == "" {
			return nil, &SchemaError{Path: path + ".execution_count", Reason: "required whole-number field"}
		}
		n, err := wholeInt(oj.ExecutionCount, path+".execution_count")
		if err != nil {
			return nil, err
		}
		data, err := decodeRawMap(oj.Data, path+".data")
		if err != nil {
			return nil, err
		}
		md, err := decodeRawMap(oj.Metadata, path+".metadata")
		if err != nil {
			return nil, err
		}
		return &notebook.ExecuteResultOutput{ExecutionCount: n, Data: data, Metadata: md}, nil

	case notebook.OutputError:
		ename, err := requireString(oj.Ename, path+".ename")
		if err != nil {
			return nil, err
		}
		evalue, err := requireString(oj.Evalue, path+".evalue")
		if err != nil {
			return nil, err
		}
		var traceback []string
		if !isAbsent(oj.Traceback) {
			if err := json.Unmarshal(oj.Traceback, &traceback); err != nil {
				return nil, &SchemaError{Path: path + ".traceback", Reason: "expected an array of strings"}
			}
		}
		return &notebook.ErrorOutput{Name: ename, Value: evalue, Traceback: traceback}, nil

	default:
		return nil, &SchemaError{
			Path:   path + ".output_type",
			Reason: fmt.Sprintf("unrecognized output type %q", oj.OutputType),
		}
	}
}

func decodeCellMetadata(raw json.RawMessage, path string) (notebook.CellMetadata, error) {
	var md notebook.CellMetadata
	if isAbsent(raw) {
		return md, nil
	}
	m := notebook.NewRawMap()
	if err := json.Unmarshal(raw, m); err != nil {
		return md, &SchemaError{Path: path, Reason: "expected an object"}
	}

	var err error
	if md.Collapsed, err = takeBool(m, "collapsed", path); err != nil {
		return md, err
	}
	if v, ok := m.Get("scrolled"); ok {
		md.Scrolled = decodeScrolled(v)
		m.Delete("scrolled")
	}
	if md.Deletable, err = takeBool(m, "deletable", path); err != nil {
		return md, err
	}
	if md.Editable, err = takeBool(m, "editable", path); err != nil {
		return md, err
	}
	if md.Format, err = takeString(m, "format", path); err != nil {
		return md, err
	}
	if md.Name, err = takeString(m, "name", path); err != nil {
		return md, err
	}
	if v, ok := m.Get("tags"); ok {
		var tags []string
		if err := json.Unmarshal(v, &tags); err != nil {
			return md, &SchemaError{Path: path + ".tags", Reason: "expected an array of strings"}
		}
		if tags == nil {
			tags = []string{}
		}
		md.Tags = tags
		m.Delete("tags")
	}
	if m.Len() > 0 {
		md.Extra = m
	}
	return md, nil
}

// decodeScrolled keeps a boolean as a boolean and anything else verbatim.
func decodeScrolled(raw json.RawMessage) *notebook.Scrolled {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &notebook.Scrolled{Bool: &b}
	}
	return &notebook.Scrolled{Raw: raw}
}

// decodeText accepts the format's two source spellings: a single string or
// an array of fragments, concatenated without inserting separators.
func decodeText(raw json.RawMessage, path string) (string, error) {
	if isAbsent(raw) {
		return "", &SchemaError{Path: path, Reason: "required field"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, ""), nil
	}
	return "", &SchemaError{Path: path, Reason: "expected a string or an array of strings"}
}

func decodeRawMap(raw json.RawMessage, path string) (*notebook.RawMap, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	m := notebook.NewRawMap()
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, &SchemaError{Path: path, Reason: "expected an object"}
	}
	return m, nil
}

// wholeInt rejects fractional and out-of-range numbers; the format's
// counters and version components are 32-bit whole numbers.
func wholeInt(n json.Number, path string) (int, error) {
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, &SchemaError{Path: path, Reason: fmt.Sprintf("expected a whole number, got %s", n.String())}
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, &SchemaError{Path: path, Reason: fmt.Sprintf("value %d out of range", v)}
	}
	return int(v), nil
}

func requireString(raw json.RawMessage, path string) (string, error) {
	if isAbsent(raw) {
		return "", &SchemaError{Path: path, Reason: "required field"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &SchemaError{Path: path, Reason: "expected a string"}
	}
	return s, nil
}

func optString(raw json.RawMessage, path string) (*string, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &SchemaError{Path: path, Reason: "expected a string"}
	}
	return &s, nil
}

func takeBool(m *notebook.RawMap, key, path string) (*bool, error) {
	v, ok := m.Get(key)
	if !ok {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return nil, &SchemaError{Path: path + "." + key, Reason: "expected a boolean"}
	}
	m.Delete(key)
	return &b, nil
}

func takeString(m *notebook.RawMap, key, path string) (*string, error) {
	v, ok := m.Get(key)
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, &SchemaError{Path: path + "." + key, Reason: "expected a string"}
	}
	m.Delete(key)
	return &s, nil
}

// isAbsent treats a missing field and an explicit null the same way.
func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
