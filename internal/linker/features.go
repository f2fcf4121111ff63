package linker

import (
	"strings"
	"unicode"
)

// stopwords are excluded from title features; they carry no topical signal
// and would inflate similarity between unrelated notes.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "this": {}, "that": {},
	"from": {}, "about": {}, "into": {}, "over": {}, "are": {}, "was": {},
	"has": {}, "have": {}, "not": {}, "you": {}, "your": {}, "how": {},
}

// titleTokens splits a title into lowercase word tokens, dropping
// stopwords and tokens shorter than three characters.
func titleTokens(title string) []string {
	fields := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.ToLower(f)
		if len(tok) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
