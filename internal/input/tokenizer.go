package input

import (
	"regexp"

	"pikvm/internal/keymap"
)

var specialKeyRe = regexp.MustCompile(`<(\w+)>`)

// Tokenize finds the <name> special keys in text. A candidate is kept only
// when name is a key of the unshifted map, so stray angle brackets are
// typed literally.
func Tokenize(text string, table *keymap.Table) []Token {
	var tokens []Token
	for _, m := range specialKeyRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		if !table.HasUnshifted(name) {
			continue
		}
		tokens = append(tokens, Token{Name: name, Start: m[0], End: m[1]})
	}
	return tokens
}
