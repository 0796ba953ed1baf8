package vgm

import "errors"

// Error kinds surfaced by the transcoding pipeline. All of them are fatal
// when they occur during preprocessing.
var (
	// ErrInvalidInput indicates a malformed header field or an impossible
	// offset in the source image.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFeature indicates an unknown opcode or a chip outside
	// the supported set.
	ErrUnsupportedFeature = errors.New("unsupported feature")

	// ErrState indicates a command that contradicts tracked chip state,
	// such as a YM2612 write without a YM2612 clock in the header.
	ErrState = errors.New("state error")
)
