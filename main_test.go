package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/nbdoc/internal/colab"
	"github.com/phobologic/nbdoc/internal/fence"
	"github.com/phobologic/nbdoc/internal/inline"
	"github.com/phobologic/nbdoc/internal/notebook"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeNotebook(t *testing.T, root, rel string, cells ...*notebook.Cell) {
	t.Helper()
	nb := &notebook.Notebook{Cells: cells, Metadata: notebook.CommonMetadata(), NBFormat: 4, NBFormatMinor: 4}
	var buf bytes.Buffer
	require.NoError(t, notebook.Encode(&buf, nb))
	writeTestFile(t, root, rel, buf.String())
}

func loadNotebook(t *testing.T, path string) *notebook.Notebook {
	t.Helper()
	nb, err := notebook.Load(path)
	require.NoError(t, err)
	return nb
}

func md(lines ...string) *notebook.Cell { return notebook.NewMarkdownCell(lines) }

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-V"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "nbdoc dev\n", stdout.String())
}

func TestRunUnknownCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"frobnicate"}, &stdout, &stderr)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr.String(), `unknown command "frobnicate"`)

	err = run(nil, &stdout, &stderr)
	assert.ErrorIs(t, err, errUsage)
}

func TestRunSubcommandHelp(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"index", "-h"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "Usage: nbdoc index")
}

func TestIndexEndToEnd(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeNotebook(t, dir, "doc1.ipynb", md("# One\n", "## Intro\n", "The **Widget** appears.\n"))
	writeNotebook(t, dir, "doc2.ipynb",
		md("# Two\n", "## Usage\n"),
		notebook.NewCodeCell([]string{"**NotATerm**\n"}),
		md("Use **Widget** here.\n"),
	)

	var stdout, stderr bytes.Buffer
	err := run([]string{"index", "-t", "Index", dir}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	out := filepath.Join(dir, "index_of_terms.ipynb")
	assert.Equal(t, out+"\n", stdout.String())

	nb := loadNotebook(t, out)
	require.Len(t, nb.Cells, 1)
	assert.Equal(t, []string{
		"# Index\n",
		"\n",
		"- Widget [doc1#Intro](doc1.ipynb#Intro), [doc2#Usage](doc2.ipynb#Usage)\n",
	}, nb.Cells[0].Source)

	// The generated index is not read back as a source on a second run.
	stdout.Reset()
	require.NoError(t, run([]string{"index", "-t", "Index", dir}, &stdout, &stderr))
	assert.Equal(t, nb.Cells[0].Source, loadNotebook(t, out).Cells[0].Source)
}

func TestIndexDictionaryAndDestination(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeNotebook(t, dir, "src/ch1/a.ipynb", md("# A\n", "**富士** and **アルファ**\n"))
	writeTestFile(t, dir, "yomi.json", `{"富士": "ふじ"}`)

	var stdout, stderr bytes.Buffer
	err := run([]string{
		"index",
		filepath.Join(dir, "src"),
		"-d", filepath.Join(dir, "out"),
		"-n", "terms",
		"-y", filepath.Join(dir, "yomi.json"),
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	nb := loadNotebook(t, filepath.Join(dir, "out", "terms.ipynb"))
	assert.Equal(t, []string{
		"# 索引\n",
		"\n",
		"- アルファ [../src/ch1/a#A](../src/ch1/a.ipynb#A)\n",
		"- 富士 [../src/ch1/a#A](../src/ch1/a.ipynb#A)\n",
	}, nb.Cells[0].Source)
}

func TestIndexMalformedFence(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeNotebook(t, dir, "good.ipynb", md("# Good\n", "**term**\n"))
	writeNotebook(t, dir, "bad.ipynb", md("# Bad\n", "```a``` **x**\n"))

	var stdout, stderr bytes.Buffer
	err := run([]string{"index", dir}, &stdout, &stderr)
	require.ErrorIs(t, err, fence.ErrMalformed)
	assert.Contains(t, err.Error(), "bad.ipynb")
	assert.NoFileExists(t, filepath.Join(dir, "index_of_terms.ipynb"))
}

func TestTOCEndToEnd(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeNotebook(t, dir, "a.ipynb", md("# Alpha\n", "## One\n", "```\n", "## not a heading\n", "```\n", "### Deep\n"))
	writeNotebook(t, dir, "b/b.ipynb", md("# Beta\n"))

	var stdout, stderr bytes.Buffer
	err := run([]string{"toc", dir}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	nb := loadNotebook(t, filepath.Join(dir, "index.ipynb"))
	assert.Equal(t, []string{
		"# 目次\n",
		"\n",
		"## [Alpha](a.ipynb)\n",
		"\n",
		"- One\n",
		"\n",
		"## [Beta](b/b.ipynb)\n",
		"\n",
		"\n",
	}, nb.Cells[0].Source)

	rst, err := os.ReadFile(filepath.Join(dir, "index.rst"))
	require.NoError(t, err)
	assert.Equal(t, "\n目次\n====\n\n.. toctree::\n   :maxdepth: 2\n   :glob:\n\n   a\n   b/b\n", string(rst))
}

func TestTOCPreambleAndDepth(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeNotebook(t, dir, "src/a.ipynb", md("# Alpha\n", "## One\n", "### Deep\n"))
	writeTestFile(t, dir, "preamble.md", "Welcome.\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{
		"toc", "-l", "3", "-t", "Contents",
		"-p", filepath.Join(dir, "preamble.md"),
		filepath.Join(dir, "src"),
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	nb := loadNotebook(t, filepath.Join(dir, "src", "index.ipynb"))
	assert.Equal(t, []string{
		"# Contents\n",
		"Welcome.\n",
		"\n",
		"## [Alpha](a.ipynb)\n",
		"\n",
		"- One\n",
		"  - Deep\n",
		"\n",
	}, nb.Cells[0].Source)
}

func TestTOCRequiresTitle(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeNotebook(t, dir, "a.ipynb", md("## Untitled\n"))

	var stdout, stderr bytes.Buffer
	err := run([]string{"toc", dir}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.ipynb")
}

func TestColabEndToEnd(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeNotebook(t, dir, "src/ch1/doc.ipynb",
		md("# Doc\n", "![fig](fig.png)\n", "```\n", "![code](fig.png)\n", "```\n"),
		notebook.NewCodeCell([]string{"print(1)"}),
	)
	writeTestFile(t, dir, "src/ch1/fig.png", "png")
	writeTestFile(t, dir, "src/ch1/data.csv", "a,b")
	writeTestFile(t, dir, "src/ch1/big.bin", "xx")
	writeTestFile(t, dir, "src/ch1/.download_ignore", "*.bin\n")

	args := []string{
		"colab",
		"-root", dir,
		"-p", filepath.Join(dir, "docs"),
		"-d", filepath.Join(dir, "colab"),
		"-b", "https://h/r/",
		filepath.Join(dir, "src"),
	}
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(args, &stdout, &stderr), stderr.String())

	out := filepath.Join(dir, "colab", "src", "ch1", "doc.ipynb")
	nb := loadNotebook(t, out)
	require.Len(t, nb.Cells, 3)
	assert.True(t, colab.IsHeader(nb.Cells[0]))
	assert.Equal(t, "!wget -P . https://h/r/src/ch1/data.csv", nb.Cells[0].Source[len(nb.Cells[0].Source)-1])
	assert.Equal(t, []string{
		"# Doc\n",
		"![fig](https://h/r/src/ch1/fig.png)\n",
		"```\n",
		"![code](fig.png)\n",
		"```\n",
	}, nb.Cells[1].Source)

	assert.FileExists(t, filepath.Join(dir, "docs", "src", "ch1", "fig.png"))
	assert.FileExists(t, filepath.Join(dir, "docs", "src", "ch1", "data.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "docs", "src", "ch1", "doc.ipynb"))
	assert.NoFileExists(t, filepath.Join(dir, "docs", "src", "ch1", ".download_ignore"))

	// Running again yields the same single header.
	require.NoError(t, run(args, &stdout, &stderr), stderr.String())
	again := loadNotebook(t, out)
	require.Len(t, again.Cells, 3)
	assert.Equal(t, nb.Cells[0].Source, again.Cells[0].Source)
}

func TestColabRejectsSourceOutsideRoot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	other := t.TempDir()

	writeNotebook(t, other, "doc.ipynb", md("# Doc\n"))

	var stdout, stderr bytes.Buffer
	err := run([]string{"colab", "-root", dir, "-d", filepath.Join(dir, "colab"), "-p", filepath.Join(dir, "docs"), other}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not under")
}

func TestSanitizeEndToEnd(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeNotebook(t, dir, "src/a.ipynb", md("```python\n", "x = 1\n", "```\n", "---\n", "use **`f`**\n"))
	writeNotebook(t, dir, "src/b.ipynb", md("text ```\n", "```\n"))

	var stdout, stderr bytes.Buffer
	err := run([]string{"sanitize", "-root", dir, "-d", filepath.Join(dir, "out"), filepath.Join(dir, "src")}, &stdout, &stderr)
	require.ErrorIs(t, err, fence.ErrMalformed)
	assert.Contains(t, err.Error(), "b.ipynb")

	nb := loadNotebook(t, filepath.Join(dir, "out", "src", "a.ipynb"))
	assert.Equal(t, []string{"```\n", "x = 1\n", "```\n", "\n", "use `f`\n"}, nb.Cells[0].Source)
	assert.NoFileExists(t, filepath.Join(dir, "out", "src", "b.ipynb"))
}

func TestCheckReportsFindings(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeNotebook(t, dir, "a.ipynb", md("# A\n", "## S\n", "a <em>b</em>\n", "## S\n"))

	var stdout, stderr bytes.Buffer
	err := run([]string{"check", dir}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "a.ipynb:3: html-tag")
	assert.Contains(t, out, "a.ipynb:4: duplicate-heading")
}

func TestCleanEndToEnd(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := filepath.Join(dir, "a.ipynb")
	writeTestFile(t, dir, "a.ipynb", `{
 "cells": [
  {"cell_type": "code", "execution_count": 3, "metadata": {"scrolled": true, "keepme": 1},
   "outputs": [{"output_type": "stream", "text": ["x"]}], "source": ["x"]}
 ],
 "metadata": {"celltoolbar": "Tags", "kernelspec": {"name": "other"}},
 "nbformat": 4,
 "nbformat_minor": 5
}`)

	var stdout, stderr bytes.Buffer
	err := run([]string{"clean", "-p", "keepme", path}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	nb := loadNotebook(t, path)
	assert.Equal(t, notebook.CommonMetadata(), nb.Metadata)
	assert.Equal(t, map[string]any{"keepme": float64(1)}, nb.Cells[0].Metadata)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outputs": []`)
	assert.Contains(t, string(data), `"execution_count": null`)
	assert.Contains(t, stderr.String(), "metadata removed")
}

func TestCleanInteractive(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := filepath.Join(dir, "a.ipynb")
	writeTestFile(t, dir, "a.ipynb", `{"cells": [], "metadata": {"celltoolbar": "Tags", "widgets": {}}, "nbformat": 4, "nbformat_minor": 5}`)

	var stdout, stderr bytes.Buffer
	// celltoolbar: an invalid answer, then "no" keeps it; widgets: "yes" removes it.
	err := runClean([]string{"-i", path}, strings.NewReader("maybe\nno\nyes\n"), &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	nb := loadNotebook(t, path)
	assert.Equal(t, "Tags", nb.Metadata["celltoolbar"])
	assert.NotContains(t, nb.Metadata, "widgets")
	assert.Contains(t, stdout.String(), `"maybe" is not a valid answer.`)
}

func TestExtractAllKeepsOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var paths []string
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		writeNotebook(t, dir, name+".ipynb", md("# "+name+"\n"))
		paths = append(paths, filepath.Join(dir, name+".ipynb"))
	}
	writeTestFile(t, dir, "broken.ipynb", "{not json")
	paths = append(paths[:2], append([]string{filepath.Join(dir, "broken.ipynb")}, paths[2:]...)...)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	got, err := extractAll(logger, paths, func(_ *inline.Engine, _ string, nb *notebook.Notebook) (string, error) {
		return nb.Cells[0].Source[0], nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.ipynb")
	assert.Equal(t, []string{"# a\n", "# b\n", "# c\n", "# d\n", "# e\n"}, got)
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		args []string
		want string
	}{
		{[]string{"dir"}, ""},
		{[]string{"-config", "x.yaml", "dir"}, "x.yaml"},
		{[]string{"dir", "--config=y.yaml"}, "y.yaml"},
		{[]string{"--", "-config", "z.yaml"}, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, configPath(tc.args), "args %v", tc.args)
	}
}

func TestIndexConfigFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeNotebook(t, dir, "src/a.ipynb", md("# A\n", "**t**\n"))
	writeTestFile(t, dir, "cfg.yaml", "index:\n  name: glossary\n  title: Glossary\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"index", "-config", filepath.Join(dir, "cfg.yaml"), filepath.Join(dir, "src")}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	nb := loadNotebook(t, filepath.Join(dir, "src", "glossary.ipynb"))
	assert.Equal(t, "# Glossary\n", nb.Cells[0].Source[0])
}

func TestReorderArgs(t *testing.T) {
	t.Parallel()

	fs := newFlagSet("test", "", io.Discard)
	fs.String("n", "", "")
	fs.Bool("i", false, "")

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "flags already first",
			in:   []string{"-n", "terms", "/tmp/repo"},
			want: []string{"-n", "terms", "/tmp/repo"},
		},
		{
			name: "positional before flags",
			in:   []string{"/tmp/repo", "-n", "terms"},
			want: []string{"-n", "terms", "/tmp/repo"},
		},
		{
			name: "bool flag takes no value",
			in:   []string{"-i", "/tmp/a.ipynb"},
			want: []string{"-i", "/tmp/a.ipynb"},
		},
		{
			name: "flag with equals",
			in:   []string{"/tmp/repo", "-config=x.yaml"},
			want: []string{"-config=x.yaml", "/tmp/repo"},
		},
		{
			name: "double dash ends flags",
			in:   []string{"-i", "--", "-odd.ipynb"},
			want: []string{"-i", "-odd.ipynb"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, reorderArgs(fs, tt.in))
		})
	}
}
