package chunk

import (
	"strings"
	"unicode"
)

// EstimateTokens approximates the token count of text for budget
// decisions during chunking. It does not need to match any model's
// tokenizer exactly, only to be deterministic and roughly proportional:
// whitespace-separated words count once, with long words counted as
// multiple tokens (one per 4 characters, rounded up), which tracks
// subword splitting closely enough for sizing chunks.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	total := 0
	for _, word := range strings.FieldsFunc(text, unicode.IsSpace) {
		n := len(word)
		if n <= 4 {
			total++
			continue
		}
		total += (n + 3) / 4
	}
	return total
}
