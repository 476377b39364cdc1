package index

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase tokens. A token is a maximal run of
// Unicode word characters (letters, digits, underscore); everything else
// is a separator. All input is valid; the result may simply be empty.
// The result is never nil: a nil token sequence on a chunk means it was
// never tokenized, while empty means its text holds no word characters.
func Tokenize(text string) []string {
	tokens := []string{}
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}
