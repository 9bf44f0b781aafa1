package mcpserver

// NotebookFormatContract describes the canonical notebook structure that
// LLM consumers should follow when creating or updating notebooks.
const NotebookFormatContract = `# Laguz Notebook Format Contract

Every notebook stored in Laguz is a UTF-8 JSON file following nbformat 4.

## Structure

` + "```" + `json
{
  "metadata": {
    "kernelspec": {"name": "python3"},
    "language_info": {"name": "python", "version": "3.12"}
  },
  "nbformat": 4,
  "nbformat_minor": 5,
  "cells": [
    {
      "cell_type": "markdown",
      "metadata": {},
      "source": "# Title heading"
    },
    {
      "cell_type": "code",
      "execution_count": null,
      "metadata": {},
      "outputs": [],
      "source": "print(\"hello\")"
    }
  ]
}
` + "```" + `

## Rules

1. **` + "`" + `nbformat` + "`" + ` must be 4.** Other major versions are rejected.
2. **Cell types** are ` + "`" + `code` + "`" + `, ` + "`" + `markdown` + "`" + ` and ` + "`" + `raw` + "`" + `. Unknown types are rejected.
3. **Code cells** carry ` + "`" + `execution_count` + "`" + ` (integer or null) and an ` + "`" + `outputs` + "`" + ` array.
   A never-run cell has ` + "`" + `"execution_count": null` + "`" + ` and ` + "`" + `"outputs": []` + "`" + `.
4. **Source** may be a single string or an array of string fragments; fragments
   are concatenated verbatim. Prefer a single string when writing.
5. **Output types** are ` + "`" + `stream` + "`" + `, ` + "`" + `display_data` + "`" + `, ` + "`" + `execute_result` + "`" + ` and ` + "`" + `error` + "`" + `.
6. **The title** of a notebook is the first line of its first markdown cell,
   with leading ` + "`" + `#` + "`" + ` markers stripped. Start notebooks with a markdown heading cell.
7. **File paths** end with ` + "`" + `.ipynb` + "`" + ` and use forward slashes. File and directory
   names MUST be in English (Latin characters); cell content may use any language.
8. **Do not execute code.** Laguz stores and edits notebooks; execution is the
   job of a kernel, never of these tools.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. For images it returns a ` + "`" + `markdownImage` + "`" + `
  field, for data files (pdf, csv, json) a ` + "`" + `markdownLink` + "`" + ` field, both ready to paste
  into a markdown cell.
- Assets are stored in the shared ` + "`" + `assets/` + "`" + ` directory (flat, no sub-folders).
- Reference in cells using the absolute path: ` + "`" + `![description](/assets/filename.png)` + "`" + `
  or ` + "`" + `[description](/assets/data.csv)` + "`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf, csv, json.
- Do **not** use relative paths like ` + "`" + `./assets/...` + "`" + ` — always use ` + "`" + `/assets/filename` + "`" + `.
`
