package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"Lowercases", "Crawler TRAPS", []string{"crawler", "traps"}},
		{"DropsStopWords", "the crawler and the frontier", []string{"crawler", "frontier"}},
		{"DropsSingleLetters", "a b c x crawler y", []string{"crawler"}},
		{"SplitsOnPunctuation", "url-parser, trap.detector!", []string{"url", "parser", "trap", "detector"}},
		{"SkipsAlphanumericRuns", "cs121 abc 42 x1y", []string{"abc"}},
		{"ApostropheSplits", "don't crawler's", []string{"don", "crawler"}},
		{"DropsWordsWithAccents", "café naïve résumé crawler", []string{"crawler"}},
		{"DropsNonLatinRuns", "検索 поиск crawler", []string{"crawler"}},
		{"UnderscoreJoinsRun", "snake_case crawler", []string{"crawler"}},
		{"Empty", "", nil},
		{"OnlyStopWords", "The And Of", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(tt.expected) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTokenize_NeverReturnsStopWords(t *testing.T) {
	var text string
	for w := range StopWords {
		text += w + " "
	}
	for _, w := range Tokenize(text) {
		_, stop := StopWords[w]
		assert.False(t, stop, "stop word %q leaked through", w)
		assert.GreaterOrEqual(t, len(w), 2)
	}
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords(" \n\t "))
	assert.Equal(t, 3, CountWords("one  two\nthree"))
	assert.Equal(t, 2, CountWords("don't stop-words"))
}
