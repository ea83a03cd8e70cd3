package termindex

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	hiraganaFirst = 'ぁ' // U+3041
	hiraganaLast  = 'ゖ' // U+3096
	kanaOffset    = 'ァ' - 'ぁ'
)

var hiraganaToKatakana = runes.Map(func(r rune) rune {
	switch {
	case r >= hiraganaFirst && r <= hiraganaLast:
		return r + kanaOffset
	case r == 'ゝ', r == 'ゞ':
		return r + kanaOffset
	}
	return r
})

// FoldKana maps every hiragana character of s to its katakana equivalent.
func FoldKana(s string) string {
	out, _, err := transform.String(hiraganaToKatakana, s)
	if err != nil {
		return s
	}
	return out
}

// Keyer computes sort keys from an optional reading dictionary.
type Keyer struct {
	readings map[string]string
}

// NewKeyer returns a keyer; a nil dictionary sorts terms by their own
// spelling.
func NewKeyer(readings map[string]string) *Keyer {
	return &Keyer{readings: readings}
}

// Key returns the sort key of term: its reading if the dictionary has one
// (looked up without code backticks), otherwise the bare term, with
// hiragana folded to katakana.
func (k *Keyer) Key(term string) string {
	bare := strings.ReplaceAll(term, "`", "")
	if reading, ok := k.readings[bare]; ok {
		bare = reading
	}
	return FoldKana(bare)
}

// LoadDictionary reads a JSON object mapping terms to readings. An empty
// path yields an empty dictionary. A missing file yields an empty
// dictionary and an error matching fs.ErrNotExist, which callers may treat
// as a fallback.
func LoadDictionary(path string) (map[string]string, error) {
	dict := map[string]string{}
	if path == "" {
		return dict, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return dict, err
	}
	if err := json.Unmarshal(data, &dict); err != nil {
		return map[string]string{}, fmt.Errorf("%s: %w", path, err)
	}
	return dict, nil
}
