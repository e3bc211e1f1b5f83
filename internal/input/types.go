// Package input translates text, key names and pointer requests into kvmd
// input events and paces their delivery.
package input

import (
	"context"

	"pikvm/internal/keymap"
)

// Token is a special key found in text using the <name> syntax. Start and
// End are byte offsets into the source; End is one past the closing '>'.
type Token struct {
	Name  string
	Start int
	End   int
}

// Action asserts (Pressed) or deasserts one keycode
type Action struct {
	Code    keymap.Keycode
	Pressed bool
}

// Sender delivers one serialized event over the live session
type Sender interface {
	Send(payload []byte) error
}

// FrameSizer reports the current video frame dimensions in pixels
type FrameSizer interface {
	FrameSize(ctx context.Context) (width, height int, err error)
}
