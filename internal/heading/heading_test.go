package heading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/nbdoc/internal/fence"
)

func levelsAndTexts(o *Outline) [][2]any {
	var out [][2]any
	for _, h := range o.Headings {
		out = append(out, [2]any{h.Level, h.Text})
	}
	return out
}

func TestExtractOrder(t *testing.T) {
	t.Parallel()

	o, err := Extract("doc.ipynb", []string{"# A\n", "text\n", "## B\n", "### C\n"}, 0)
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{1, "A"}, {2, "B"}, {3, "C"}}, levelsAndTexts(o))

	title, err := o.Title()
	require.NoError(t, err)
	assert.Equal(t, "A", title.Text)
}

func TestExtractSkipsFences(t *testing.T) {
	t.Parallel()

	lines := []string{"# A\n", "```python\n", "# comment\n", "```\n", "## B\n"}
	o, err := Extract("doc.ipynb", lines, 0)
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{1, "A"}, {2, "B"}}, levelsAndTexts(o))
	assert.Equal(t, 5, o.Headings[1].Line)
}

func TestExtractMaxLevel(t *testing.T) {
	t.Parallel()

	o, err := Extract("doc.ipynb", []string{"# A\n", "## B\n", "### C\n"}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{1, "A"}, {2, "B"}}, levelsAndTexts(o))
}

func TestExtractSecondTitle(t *testing.T) {
	t.Parallel()

	_, err := Extract("doc.ipynb", []string{"# A\n", "# B\n"}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStructure)

	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Line)
}

func TestExtractMalformedFence(t *testing.T) {
	t.Parallel()

	_, err := Extract("doc.ipynb", []string{"# A\n", "```x```\n"}, 0)
	assert.ErrorIs(t, err, fence.ErrMalformed)
}

func TestTitleMissing(t *testing.T) {
	t.Parallel()

	o, err := Extract("doc.ipynb", []string{"## B\n", "# A\n"}, 0)
	require.NoError(t, err)
	_, err = o.Title()
	assert.ErrorIs(t, err, ErrStructure)

	o, err = Extract("doc.ipynb", []string{"no headings\n"}, 0)
	require.NoError(t, err)
	_, err = o.Title()
	assert.ErrorIs(t, err, ErrStructure)
}

func TestDuplicateHeadingIsWarning(t *testing.T) {
	t.Parallel()

	o, err := Extract("doc.ipynb", []string{"# A\n", "## Usage\n", "## Usage\n"}, 0)
	require.NoError(t, err)
	require.Len(t, o.Duplicates, 1)
	assert.Equal(t, Duplicate{Text: "Usage", Line: 3}, o.Duplicates[0])
	assert.Len(t, o.Headings, 3)
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		ok    bool
		level int
		text  string
	}{
		{"# Title\n", true, 1, "Title"},
		{"###   Deep  \n", true, 3, "Deep"},
		{"#\n", true, 1, ""},
		{"#hashtag\n", false, 0, ""},
		{"text # not\n", false, 0, ""},
	}
	for _, tt := range tests {
		h, ok := Parse(tt.in)
		assert.Equal(t, tt.ok, ok, "Parse(%q)", tt.in)
		if ok {
			assert.Equal(t, tt.level, h.Level)
			assert.Equal(t, tt.text, h.Text)
		}
	}
}

func TestTrackerCurrent(t *testing.T) {
	t.Parallel()

	tr := NewTracker("doc.ipynb", 2)
	_, _, err := tr.Observe(1, "# Title\n")
	require.NoError(t, err)
	assert.Equal(t, "Title", tr.Current())

	_, ok, err := tr.Observe(2, "### Too deep\n")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Title", tr.Current())
}
