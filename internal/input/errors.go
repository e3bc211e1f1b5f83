package input

import "errors"

var (
	// ErrInvalidButton is returned for a mouse button kvmd does not know
	ErrInvalidButton = errors.New("invalid mouse button")

	// ErrUnknownChord is returned when a named chord is not defined
	ErrUnknownChord = errors.New("unknown chord")

	// ErrFrameSize is returned when the video frame size is unusable for scaling
	ErrFrameSize = errors.New("invalid frame size")
)
