// Package keymap loads the static tables that translate key names and
// characters into kvmd keycodes.
package keymap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Keycode is the key identifier understood by the kvmd key-event protocol
// (e.g. "KeyA", "Digit5", "ShiftLeft").
type Keycode string

// Resource file names inside a keymap directory.
const (
	UnshiftedFile = "keymap.csv"
	ShiftFile     = "keymap_shift.csv"
	AliasFile     = "keymap_alias.csv"
)

// Table holds the unshifted, shift and alias maps. It is immutable once
// loaded and safe for concurrent reads.
type Table struct {
	unshifted map[string]Keycode
	shifted   map[string]Keycode
	alias     map[string]Keycode
}

// New builds a table from in-memory maps. The maps are copied.
func New(unshifted, shifted, alias map[string]Keycode) *Table {
	return &Table{
		unshifted: clone(unshifted),
		shifted:   clone(shifted),
		alias:     clone(alias),
	}
}

// Load reads the three CSV resources from fsys.
func Load(fsys fs.FS, log zerolog.Logger) (*Table, error) {
	log = log.With().Str("component", "keymap").Logger()

	t := &Table{}
	var err error
	if t.unshifted, err = readFile(fsys, UnshiftedFile, log); err != nil {
		return nil, err
	}
	if t.shifted, err = readFile(fsys, ShiftFile, log); err != nil {
		return nil, err
	}
	if t.alias, err = readFile(fsys, AliasFile, log); err != nil {
		return nil, err
	}

	log.Debug().
		Int("unshifted", len(t.unshifted)).
		Int("shifted", len(t.shifted)).
		Int("alias", len(t.alias)).
		Msg("keymaps loaded")
	return t, nil
}

// LoadDir reads the keymap resources from a directory on disk.
func LoadDir(dir string, log zerolog.Logger) (*Table, error) {
	return Load(os.DirFS(dir), log)
}

func readFile(fsys fs.FS, name string, log zerolog.Logger) (map[string]Keycode, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResource, name, err)
	}
	defer f.Close()

	m, err := parse(f, name, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResource, name, err)
	}
	return m, nil
}

// parse reads sourceName,keycode rows. Short rows are skipped.
func parse(r io.Reader, name string, log zerolog.Logger) (map[string]Keycode, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	m := make(map[string]Keycode)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			line, _ := cr.FieldPos(0)
			log.Warn().Str("file", name).Int("line", line).Strs("row", record).Msg("skipping malformed keymap row")
			continue
		}
		m[record[0]] = Keycode(record[1])
	}
	return m, nil
}

// Unshifted returns the keycode for name in the unshifted map.
func (t *Table) Unshifted(name string) (Keycode, bool) {
	return lookupForms(t.unshifted, name)
}

// Shifted returns the keycode for name in the shift map.
func (t *Table) Shifted(name string) (Keycode, bool) {
	return lookupForms(t.shifted, name)
}

// Alias returns the keycode for an automation-style name such as "ctrl".
func (t *Table) Alias(name string) (Keycode, bool) {
	code, ok := t.alias[name]
	return code, ok
}

// HasUnshifted reports whether name is a key of the unshifted map, with or
// without brackets.
func (t *Table) HasUnshifted(name string) bool {
	_, ok := t.Unshifted(name)
	return ok
}

// Lookup tries, in order: the unshifted map, the shift map and the alias
// map. shifted reports whether the match came from the shift map.
func (t *Table) Lookup(name string) (code Keycode, shifted bool, ok bool) {
	if code, ok := t.Unshifted(name); ok {
		return code, false, true
	}
	if code, ok := t.Shifted(name); ok {
		return code, true, true
	}
	if code, ok := t.Alias(name); ok {
		return code, false, true
	}
	return "", false, false
}

// lookupForms tries the raw name then the bracketed form.
func lookupForms(m map[string]Keycode, name string) (Keycode, bool) {
	if code, ok := m[name]; ok {
		return code, true
	}
	if IsBracketed(name) {
		return "", false
	}
	code, ok := m[Bracket(name)]
	return code, ok
}

// Bracket wraps name in angle brackets.
func Bracket(name string) string {
	return "<" + name + ">"
}

// IsBracketed reports whether name already uses the <name> token syntax.
func IsBracketed(name string) bool {
	return len(name) > 2 && strings.HasPrefix(name, "<") && strings.HasSuffix(name, ">")
}

func clone(m map[string]Keycode) map[string]Keycode {
	out := make(map[string]Keycode, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
