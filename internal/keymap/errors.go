package keymap

import "errors"

var (
	// ErrResource is returned when a keymap resource is missing or unreadable
	ErrResource = errors.New("keymap resource unavailable")
)
