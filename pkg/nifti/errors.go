package nifti

import (
	"errors"
	"fmt"
)

// Sentinel errors for parsing and construction.
var (
	// ErrNotNIfTI is returned when neither the header-size field nor the
	// magic token identifies a recognized NIfTI variant.
	ErrNotNIfTI = errors.New("not a recognized NIfTI stream")
	// ErrExtensionSize is returned when an extension size is not a
	// positive multiple of 16.
	ErrExtensionSize = errors.New("extension size must be a positive multiple of 16")
	// ErrByteOrder is returned when an extension size is out of bounds
	// under both byte orders.
	ErrByteOrder = errors.New("cannot reconcile extension byte order")
)

// HeaderSizeError is returned when a buffer is shorter than the fixed
// header size required by the detected version.
type HeaderSizeError struct {
	Need int // bytes required
	Got  int // bytes supplied
}

func (e *HeaderSizeError) Error() string {
	return fmt.Sprintf("header requires %d bytes, got %d", e.Need, e.Got)
}

func errBadMagic(magic string) error {
	return fmt.Errorf("%w: magic %q", ErrNotNIfTI, magic)
}
