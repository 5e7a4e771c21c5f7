package utils

import (
	"regexp"
	"strings"
)

// sentencePattern matches a run of non-terminal characters followed by one or
// more terminal marks. Text after the last terminal mark never matches.
var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// SplitSentences splits text into sentences on '.', '!' and '?'.
// Each sentence keeps its trailing punctuation and is trimmed of surrounding
// whitespace. Trailing text without terminal punctuation is dropped, so
// "Intro. no ending" yields only "Intro.".
func SplitSentences(text string) []string {
	matches := sentencePattern.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
