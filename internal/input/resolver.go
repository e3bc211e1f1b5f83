package input

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"pikvm/internal/keymap"
)

// Resolution is the keycode for a key name and whether shift must be held
// while it is pressed.
type Resolution struct {
	Code  keymap.Keycode
	Shift bool
}

// Resolver classifies characters and key names into keycodes.
type Resolver struct {
	table *keymap.Table
}

// NewResolver creates a resolver over a loaded keymap table.
func NewResolver(table *keymap.Table) *Resolver {
	return &Resolver{table: table}
}

// Lookup applies the table-backed rules only. ok is false when the name
// is neither an uppercase letter, the double quote, nor present in any map.
func (r *Resolver) Lookup(name string) (Resolution, bool) {
	if c, ok := singleRune(name); ok && unicode.IsUpper(c) && unicode.IsLetter(c) {
		return Resolution{Code: keyCode(name), Shift: true}, true
	}
	if name == `"` {
		return Resolution{Code: "Quote", Shift: true}, true
	}
	if code, ok := r.table.Shifted(name); ok {
		return Resolution{Code: code, Shift: true}, true
	}
	if code, ok := r.table.Unshifted(name); ok {
		return Resolution{Code: code}, true
	}
	if code, ok := r.table.Alias(name); ok {
		return Resolution{Code: code}, true
	}
	return Resolution{}, false
}

// Resolve never fails: names the tables do not know fall through to the
// digit, whitespace and Key<NAME> rules.
func (r *Resolver) Resolve(name string) Resolution {
	if res, ok := r.Lookup(name); ok {
		return res
	}
	if c, ok := singleRune(name); ok {
		switch {
		case c >= '0' && c <= '9':
			return Resolution{Code: keymap.Keycode("Digit" + name)}
		case unicode.IsSpace(c):
			return Resolution{Code: "Space"}
		}
	}
	return Resolution{Code: keyCode(name)}
}

// NeedsShift reports whether name is produced with shift held.
func (r *Resolver) NeedsShift(name string) bool {
	return r.Resolve(name).Shift
}

func keyCode(name string) keymap.Keycode {
	return keymap.Keycode("Key" + strings.ToUpper(name))
}

func singleRune(s string) (rune, bool) {
	c, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) {
		return 0, false
	}
	return c, true
}
