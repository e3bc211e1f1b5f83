package keymap

import (
	"embed"
	"io/fs"

	"github.com/rs/zerolog"
)

//go:embed resources/*.csv
var resourcesFS embed.FS

// Default loads the keymaps bundled with the binary.
func Default(log zerolog.Logger) (*Table, error) {
	sub, err := fs.Sub(resourcesFS, "resources")
	if err != nil {
		return nil, err
	}
	return Load(sub, log)
}
