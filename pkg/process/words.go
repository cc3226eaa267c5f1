package process

import (
	"regexp"
	"strings"
)

// wordRun matches a maximal run of Unicode word characters. A run counts as a
// word only when it is made entirely of ASCII letters, so "café" and "naïve"
// are dropped instead of leaving "caf" or "na" behind.
var wordRun = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// StopWords are common English words left out of the word histogram
var StopWords = toSet([]string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and", "any", "are",
	"aren't", "as", "at", "be", "because", "been", "before", "being", "below", "between", "both",
	"but", "by", "can't", "cannot", "could", "couldn't", "did", "didn't", "do", "does", "doesn't",
	"doing", "don't", "down", "during", "each", "few", "for", "from", "further", "had", "hadn't",
	"has", "hasn't", "have", "haven't", "having", "he", "he'd", "he'll", "he's", "her", "here",
	"here's", "hers", "herself", "him", "himself", "his", "how", "how's", "i", "i'd", "i'll", "i'm",
	"i've", "if", "in", "into", "is", "isn't", "it", "it's", "its", "itself", "let's", "me", "more",
	"most", "mustn't", "my", "myself", "no", "nor", "not", "of", "off", "on", "once", "only", "or",
	"other", "ought", "our", "ours", "ourselves", "out", "over", "own", "same", "shan't", "she",
	"she'd", "she'll", "she's", "should", "shouldn't", "so", "some", "such", "than", "that", "that's",
	"the", "their", "theirs", "them", "themselves", "then", "there", "there's", "these", "they",
	"they'd", "they'll", "they're", "they've", "this", "those", "through", "to", "too", "under",
	"until", "up", "very", "was", "wasn't", "we", "we'd", "we'll", "we're", "we've", "were",
	"weren't", "what", "what's", "when", "when's", "where", "where's", "which", "while", "who",
	"who's", "whom", "why", "why's", "with", "won't", "would", "wouldn't", "you", "you'd", "you'll",
	"you're", "you've", "your", "yours", "yourself", "yourselves"})

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Tokenize lowercases text and returns its alphabetic words of two or more
// letters, in order, with stop words removed
func Tokenize(text string) []string {
	matches := wordRun.FindAllString(strings.ToLower(text), -1)
	words := matches[:0]
	for _, w := range matches {
		if !isASCIIWord(w) {
			continue
		}
		if _, stop := StopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}

func isASCIIWord(w string) bool {
	if len(w) < 2 {
		return false
	}
	for i := 0; i < len(w); i++ {
		if w[i] < 'a' || w[i] > 'z' {
			return false
		}
	}
	return true
}

// CountWords returns the number of whitespace-separated fields in text
func CountWords(text string) int {
	return len(strings.Fields(text))
}
