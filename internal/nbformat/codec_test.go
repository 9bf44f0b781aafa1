package nbformat

import (
	"bytes"
	"errors"
	"testing"

	"github.com/starford/laguz/internal/notebook"
)

const sampleNotebook = `{
  "nbformat": 4,
  "nbformat_minor": 5,
  "metadata": {
    "kernelspec": {"name": "python3", "display_name": "Python 3"},
    "language_info": {"name": "python", "version": "3.11.4"},
    "orig_nbformat": 4
  },
  "cells": [
    {
      "cell_type": "markdown",
      "metadata": {},
      "source": ["# Sales Report\n", "Quarterly figures."]
    },
    {
      "cell_type": "code",
      "execution_count": null,
      "metadata": {"collapsed": false, "tags": ["setup"], "scrolled": "auto"},
      "outputs": [],
      "source": "import pandas as pd"
    },
    {
      "cell_type": "code",
      "execution_count": 2,
      "metadata": {},
      "outputs": [
        {"output_type": "stream", "name": "stdout", "text": ["loading\n", "done\n"]},
        {
          "output_type": "execute_result",
          "execution_count": 2,
          "data": {"text/plain": "42", "text/html": "<b>42</b>"},
          "metadata": {}
        },
        {
          "output_type": "error",
          "ename": "ValueError",
          "evalue": "bad input",
          "traceback": ["Traceback...", "ValueError: bad input"]
        }
      ],
      "source": "run()"
    },
    {
      "cell_type": "raw",
      "metadata": {"format": "text/restructuredtext"},
      "source": ".. note:: raw block"
    }
  ]
}`

func TestDecode_SampleNotebook(t *testing.T) {
	doc, err := Decode([]byte(sampleNotebook))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if doc.Format != 4 || doc.FormatMinor != 5 {
		t.Errorf("format = %d.%d, want 4.5", doc.Format, doc.FormatMinor)
	}
	if doc.Metadata.KernelSpec == nil || doc.Metadata.KernelSpec.Name != "python3" {
		t.Errorf("kernelspec = %+v, want name python3", doc.Metadata.KernelSpec)
	}
	li := doc.Metadata.LanguageInfo
	if li == nil || li.Name != "python" || li.Version == nil || *li.Version != "3.11.4" {
		t.Errorf("language_info = %+v", li)
	}
	if doc.Metadata.Extra == nil {
		t.Fatal("unknown metadata key orig_nbformat was not preserved")
	}
	if _, ok := doc.Metadata.Extra.Get("orig_nbformat"); !ok {
		t.Error("orig_nbformat missing from preserved metadata")
	}

	if doc.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", doc.Len())
	}
	if doc.Selected() != 0 {
		t.Errorf("Selected() = %d, want 0 after decode", doc.Selected())
	}

	md, ok := doc.Cell(0).(*notebook.MarkdownCell)
	if !ok {
		t.Fatalf("cell 0 is %T, want markdown", doc.Cell(0))
	}
	if md.Source != "# Sales Report\nQuarterly figures." {
		t.Errorf("markdown source = %q", md.Source)
	}

	never, ok := doc.Cell(1).(*notebook.CodeCell)
	if !ok {
		t.Fatalf("cell 1 is %T, want code", doc.Cell(1))
	}
	if never.ExecutionCount != nil {
		t.Errorf("null execution_count decoded as %d, want nil", *never.ExecutionCount)
	}
	if never.Metadata.Collapsed == nil || *never.Metadata.Collapsed {
		t.Errorf("collapsed = %v, want false", never.Metadata.Collapsed)
	}
	if len(never.Metadata.Tags) != 1 || never.Metadata.Tags[0] != "setup" {
		t.Errorf("tags = %v", never.Metadata.Tags)
	}
	sc := never.Metadata.Scrolled
	if sc == nil || sc.Bool != nil || string(sc.Raw) != `"auto"` {
		t.Errorf("scrolled = %+v, want raw \"auto\"", sc)
	}

	ran, ok := doc.Cell(2).(*notebook.CodeCell)
	if !ok {
		t.Fatalf("cell 2 is %T, want code", doc.Cell(2))
	}
	if ran.ExecutionCount == nil || *ran.ExecutionCount != 2 {
		t.Errorf("execution_count = %v, want 2", ran.ExecutionCount)
	}
	if len(ran.Outputs) != 3 {
		t.Fatalf("outputs = %d, want 3", len(ran.Outputs))
	}
	stream := ran.Outputs[0].(*notebook.StreamOutput)
	if stream.Name != "stdout" || stream.Text != "loading\ndone\n" {
		t.Errorf("stream = %+v", stream)
	}
	res := ran.Outputs[1].(*notebook.ExecuteResultOutput)
	if res.ExecutionCount != 2 {
		t.Errorf("execute_result count = %d", res.ExecutionCount)
	}
	if v, ok := res.Data.Get("text/plain"); !ok || string(v) != `"42"` {
		t.Errorf("text/plain = %s", v)
	}
	fail := ran.Outputs[2].(*notebook.ErrorOutput)
	if fail.Name != "ValueError" || fail.Value != "bad input" || len(fail.Traceback) != 2 {
		t.Errorf("error output = %+v", fail)
	}

	raw, ok := doc.Cell(3).(*notebook.RawCell)
	if !ok {
		t.Fatalf("cell 3 is %T, want raw", doc.Cell(3))
	}
	if raw.Metadata.Format == nil || *raw.Metadata.Format != "text/restructuredtext" {
		t.Errorf("raw format = %v", raw.Metadata.Format)
	}
}

func TestDecode_SourceForms(t *testing.T) {
	asString := `{"nbformat": 4, "nbformat_minor": 0, "cells": [
		{"cell_type": "markdown", "source": "line one\nline two"}
	]}`
	asArray := `{"nbformat": 4, "nbformat_minor": 0, "cells": [
		{"cell_type": "markdown", "source": ["line one\n", "line two"]}
	]}`

	a, err := Decode([]byte(asString))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Decode([]byte(asArray))
	if err != nil {
		t.Fatal(err)
	}
	if !notebook.Equal(a, b) {
		t.Error("string and fragment-array sources should decode to equal documents")
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"nbformat": 4,`))
	if !errors.Is(err, ErrMalformedInput) {
		t.Errorf("err = %v, want ErrMalformedInput", err)
	}
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	_, err := Decode([]byte(`{"nbformat": 3, "nbformat_minor": 0, "cells": []}`))
	var uv *UnsupportedVersionError
	if !errors.As(err, &uv) {
		t.Fatalf("err = %v, want *UnsupportedVersionError", err)
	}
	if uv.Found != 3 {
		t.Errorf("Found = %d, want 3", uv.Found)
	}
}

func TestDecode_SchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPath string
	}{
		{
			"missing nbformat",
			`{"nbformat_minor": 0, "cells": []}`,
			"nbformat",
		},
		{
			"missing nbformat_minor",
			`{"nbformat": 4, "cells": []}`,
			"nbformat_minor",
		},
		{
			"missing cells",
			`{"nbformat": 4, "nbformat_minor": 0}`,
			"cells",
		},
		{
			"unknown cell type",
			`{"nbformat": 4, "nbformat_minor": 0, "cells": [
				{"cell_type": "markdown", "source": "ok"},
				{"cell_type": "widget", "source": ""}
			]}`,
			"cells[1].cell_type",
		},
		{
			"missing cell type",
			`{"nbformat": 4, "nbformat_minor": 0, "cells": [{"source": ""}]}`,
			"cells[0].cell_type",
		},
		{
			"missing source",
			`{"nbformat": 4, "nbformat_minor": 0, "cells": [{"cell_type": "code"}]}`,
			"cells[0].source",
		},
		{
			"unknown output type",
			`{"nbformat": 4, "nbformat_minor": 0, "cells": [
				{"cell_type": "code", "source": "x", "outputs": [{"output_type": "hologram"}]}
			]}`,
			"cells[0].outputs[0].output_type",
		},
		{
			"fractional execution count",
			`{"nbformat": 4, "nbformat_minor": 0, "cells": [
				{"cell_type": "code", "source": "x", "execution_count": 1.5}
			]}`,
			"cells[0].execution_count",
		},
		{
			"stream without name",
			`{"nbformat": 4, "nbformat_minor": 0, "cells": [
				{"cell_type": "code", "source": "x", "outputs": [{"output_type": "stream", "text": "hi"}]}
			]}`,
			"cells[0].outputs[0].name",
		},
		{
			"execute_result without count",
			`{"nbformat": 4, "nbformat_minor": 0, "cells": [
				{"cell_type": "code", "source": "x", "outputs": [{"output_type": "execute_result", "data": {}}]}
			]}`,
			"cells[0].outputs[0].execution_count",
		},
		{
			"kernelspec without name",
			`{"nbformat": 4, "nbformat_minor": 0, "metadata": {"kernelspec": {}}, "cells": []}`,
			"metadata.kernelspec.name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *SchemaError", err)
			}
			if se.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", se.Path, tt.wantPath)
			}
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	doc, err := Decode([]byte(sampleNotebook))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode of encoded output: %v", err)
	}
	if !notebook.Equal(doc, again) {
		t.Error("document changed across an encode/decode round trip")
	}
}

func TestEncode_Deterministic(t *testing.T) {
	doc, err := Decode([]byte(sampleNotebook))
	if err != nil {
		t.Fatal(err)
	}
	a, err := Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two encodes of the same document differ")
	}
}

func TestEncode_CanonicalSource(t *testing.T) {
	asArray := `{"nbformat": 4, "nbformat_minor": 0, "cells": [
		{"cell_type": "code", "source": ["a\n", "b"]}
	]}`
	doc, err := Decode([]byte(asArray))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte(`"source":"a\nb"`)) {
		t.Errorf("source not collapsed to a single string: %s", out)
	}
}

func TestEncode_EmptyDocument(t *testing.T) {
	out, err := Encode(notebook.New())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"metadata":{},"nbformat":4,"nbformat_minor":0,"cells":[]}`
	if string(out) != want {
		t.Errorf("Encode(empty) = %s, want %s", out, want)
	}
}

func TestEncode_NeverRunCell(t *testing.T) {
	doc := notebook.New()
	doc.Append(notebook.NewCodeCell("x = 1"))
	out, err := Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte(`"execution_count":null`)) {
		t.Errorf("never-run cell should carry a null execution_count: %s", out)
	}
	if !bytes.Contains(out, []byte(`"outputs":[]`)) {
		t.Errorf("outputs should encode as an empty array, not null: %s", out)
	}
}

func TestEncode_PreservesUnknownMetadataOrder(t *testing.T) {
	input := `{"nbformat": 4, "nbformat_minor": 0,
		"metadata": {"zebra": 1, "alpha": 2, "kernelspec": {"name": "go"}},
		"cells": []}`
	doc, err := Decode([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	// Typed keys come first, then unknown keys in their original order.
	want := `"metadata":{"kernelspec":{"name":"go"},"zebra":1,"alpha":2}`
	if !bytes.Contains(out, []byte(want)) {
		t.Errorf("metadata = %s, want to contain %s", out, want)
	}
}

func TestEncode_RoundTripReencodedPayloads(t *testing.T) {
	// Mime payloads survive a round trip even though json.Marshal
	// HTML-escapes strings and compacts whitespace.
	input := `{
		"nbformat": 4, "nbformat_minor": 5,
		"metadata": {"widgets": {"state": { "a": 1 }}},
		"cells": [{
			"cell_type": "code",
			"execution_count": 2,
			"metadata": {},
			"outputs": [{
				"output_type": "execute_result",
				"execution_count": 2,
				"data": {
					"text/html": "<b>42</b>",
					"application/json": { "answer": 42, "tags": ["a", "b"] }
				},
				"metadata": {}
			}],
			"source": "df"
		}]
	}`
	doc, err := Decode([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode of encoded output: %v", err)
	}
	if !notebook.Equal(doc, again) {
		t.Error("document with html/json payloads changed across a round trip")
	}
}
