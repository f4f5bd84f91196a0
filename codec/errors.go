// Package codec errors shared by codec implementations and the registry.
package codec

import "errors"

var (
	// ErrCodecNotFound is returned when no codec serves a transfer
	// syntax UID.
	ErrCodecNotFound = errors.New("codec not found")

	// ErrInvalidParameter indicates encoding/decoding parameters are
	// invalid.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnsupportedFormat indicates the pixel format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported format")
)
