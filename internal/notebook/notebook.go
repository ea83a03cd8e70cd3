// Package notebook defines the notebook document model and its JSON envelope.
package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// CellType tags a cell as prose or code.
type CellType string

const (
	Markdown CellType = "markdown"
	Code     CellType = "code"
)

// Cell is one entry of a notebook's ordered cell list. Keys other than
// cell_type, metadata and source are carried through untouched.
type Cell struct {
	Type     CellType
	Metadata map[string]any
	Source   []string

	extra map[string]json.RawMessage
}

// Notebook is a whole .ipynb document.
type Notebook struct {
	Cells         []*Cell
	Metadata      map[string]any
	NBFormat      int
	NBFormatMinor int

	extra map[string]json.RawMessage
}

// CommonMetadata is the kernel description stamped on generated and cleaned notebooks.
func CommonMetadata() map[string]any {
	return map[string]any{
		"kernelspec": map[string]any{
			"display_name": "Python 3",
			"language":     "python",
			"name":         "python3",
		},
		"language_info": map[string]any{
			"name": "python",
		},
	}
}

// NewMarkdown wraps lines in a single-cell markdown notebook.
func NewMarkdown(lines []string) *Notebook {
	return &Notebook{
		Cells:         []*Cell{NewMarkdownCell(lines)},
		Metadata:      CommonMetadata(),
		NBFormat:      4,
		NBFormatMinor: 4,
	}
}

// NewMarkdownCell returns a markdown cell holding lines.
func NewMarkdownCell(lines []string) *Cell {
	return &Cell{Type: Markdown, Metadata: map[string]any{}, Source: lines}
}

// NewCodeCell returns an unexecuted code cell holding lines.
func NewCodeCell(lines []string) *Cell {
	return &Cell{
		Type:     Code,
		Metadata: map[string]any{},
		Source:   lines,
		extra: map[string]json.RawMessage{
			"execution_count": json.RawMessage("null"),
			"outputs":         json.RawMessage("[]"),
		},
	}
}

// ClearOutputs drops execution results from a code cell.
func (c *Cell) ClearOutputs() {
	if c.Type != Code {
		return
	}
	if c.extra == nil {
		c.extra = make(map[string]json.RawMessage)
	}
	c.extra["execution_count"] = json.RawMessage("null")
	c.extra["outputs"] = json.RawMessage("[]")
}

// Text returns the cell source joined into one string.
func (c *Cell) Text() string {
	return strings.Join(c.Source, "")
}

// MarkdownLines concatenates the sources of all markdown cells, in order,
// into the document's prose stream.
func (nb *Notebook) MarkdownLines() []string {
	var lines []string
	for _, c := range nb.Cells {
		if c.Type == Markdown {
			lines = append(lines, SplitLines(c.Text())...)
		}
	}
	return lines
}

// SplitLines splits s after every newline, keeping the terminators.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Load reads and decodes the notebook at path.
func Load(path string) (*Notebook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	nb, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nb, nil
}

// Decode reads one notebook from r.
func Decode(r io.Reader) (*Notebook, error) {
	var nb Notebook
	if err := json.NewDecoder(r).Decode(&nb); err != nil {
		return nil, fmt.Errorf("decoding notebook: %w", err)
	}
	return &nb, nil
}

// Save writes nb to path in the canonical on-disk layout.
func Save(path string, nb *Notebook) error {
	var buf bytes.Buffer
	if err := Encode(&buf, nb); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Encode writes nb with one-space indentation, raw non-ASCII text and a
// trailing newline.
func Encode(w io.Writer, nb *Notebook) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	return enc.Encode(nb)
}

func (nb *Notebook) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["cells"]; ok {
		if err := json.Unmarshal(v, &nb.Cells); err != nil {
			return fmt.Errorf("cells: %w", err)
		}
		delete(raw, "cells")
	}
	if v, ok := raw["metadata"]; ok {
		if err := json.Unmarshal(v, &nb.Metadata); err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		delete(raw, "metadata")
	}
	if v, ok := raw["nbformat"]; ok {
		if err := json.Unmarshal(v, &nb.NBFormat); err != nil {
			return fmt.Errorf("nbformat: %w", err)
		}
		delete(raw, "nbformat")
	}
	if v, ok := raw["nbformat_minor"]; ok {
		if err := json.Unmarshal(v, &nb.NBFormatMinor); err != nil {
			return fmt.Errorf("nbformat_minor: %w", err)
		}
		delete(raw, "nbformat_minor")
	}
	nb.extra = raw
	return nil
}

func (nb *Notebook) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(nb.extra)+4)
	for k, v := range nb.extra {
		out[k] = v
	}
	cells := nb.Cells
	if cells == nil {
		cells = []*Cell{}
	}
	out["cells"] = cells
	out["metadata"] = orEmpty(nb.Metadata)
	out["nbformat"] = nb.NBFormat
	out["nbformat_minor"] = nb.NBFormatMinor
	return marshalNoEscape(out)
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["cell_type"]; ok {
		if err := json.Unmarshal(v, &c.Type); err != nil {
			return fmt.Errorf("cell_type: %w", err)
		}
		delete(raw, "cell_type")
	}
	if v, ok := raw["metadata"]; ok {
		if err := json.Unmarshal(v, &c.Metadata); err != nil {
			return fmt.Errorf("cell metadata: %w", err)
		}
		delete(raw, "metadata")
	}
	if v, ok := raw["source"]; ok {
		src, err := decodeSource(v)
		if err != nil {
			return err
		}
		c.Source = src
		delete(raw, "source")
	}
	c.extra = raw
	return nil
}

func (c *Cell) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.extra)+3)
	for k, v := range c.extra {
		out[k] = v
	}
	src := c.Source
	if src == nil {
		src = []string{}
	}
	out["cell_type"] = c.Type
	out["metadata"] = orEmpty(c.Metadata)
	out["source"] = src
	return marshalNoEscape(out)
}

// decodeSource accepts both the list-of-lines and the single-string forms
// nbformat allows.
func decodeSource(v json.RawMessage) ([]string, error) {
	var lines []string
	if err := json.Unmarshal(v, &lines); err == nil {
		return lines, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	return SplitLines(s), nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
