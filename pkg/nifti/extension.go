package nifti

import (
	"encoding/binary"
	"fmt"
)

// extensionHeaderSize is the 4-byte size plus 4-byte code prefix counted
// inside every extension's total size.
const extensionHeaderSize = 8

// Extension is one variable-length metadata block following the fixed
// header. Size counts the 8-byte size/code prefix plus the payload and
// must be a positive multiple of 16. Order is the byte order the size and
// code fields were encoded in, which may legitimately differ from the host
// header's byte order.
type Extension struct {
	Size  int32
	Code  int32
	Data  []byte
	Order binary.ByteOrder
}

// NewExtension validates the size invariant and constructs an immutable
// Extension. The payload must be Size-8 bytes long.
func NewExtension(size, code int32, data []byte, order binary.ByteOrder) (*Extension, error) {
	if size <= 0 || size%16 != 0 {
		return nil, fmt.Errorf("%w: esize %d", ErrExtensionSize, size)
	}
	if len(data) != int(size)-extensionHeaderSize {
		return nil, fmt.Errorf("%w: esize %d with %d payload bytes", ErrExtensionSize, size, len(data))
	}
	return &Extension{Size: size, Code: code, Data: data, Order: order}, nil
}

// ReadExtensions walks the extension blocks between offset (immediately
// after the fixed header plus the 4-byte presence flag) and bound (the
// header's data offset), pulling bytes through read. A zero size field
// terminates the walk. A size that would overrun the bound is re-read
// under the opposite byte order before being rejected, since each
// extension carries its own byte order.
//
// It returns the decoded extensions and the number of bytes consumed.
func ReadExtensions(read func(int) ([]byte, error), offset, bound int64, order binary.ByteOrder) ([]*Extension, int64, error) {
	var exts []*Extension
	consumed := int64(0)

	for offset+consumed < bound {
		raw, err := read(4)
		if err != nil {
			return exts, consumed, err
		}
		consumed += 4

		extOrder := order
		size := int32(extOrder.Uint32(raw))
		if size == 0 {
			break
		}
		if outOfBounds(offset+consumed-4, size, bound) {
			extOrder = oppositeOrder(extOrder)
			size = int32(extOrder.Uint32(raw))
			if outOfBounds(offset+consumed-4, size, bound) {
				return exts, consumed, fmt.Errorf("%w: esize %d exceeds data offset %d", ErrByteOrder, size, bound)
			}
		}
		if size%16 != 0 {
			return exts, consumed, fmt.Errorf("%w: esize %d", ErrExtensionSize, size)
		}

		raw, err = read(4)
		if err != nil {
			return exts, consumed, err
		}
		consumed += 4
		code := int32(extOrder.Uint32(raw))

		data, err := read(int(size) - extensionHeaderSize)
		if err != nil {
			return exts, consumed, err
		}
		consumed += int64(size) - extensionHeaderSize

		ext, err := NewExtension(size, code, data, extOrder)
		if err != nil {
			return exts, consumed, err
		}
		exts = append(exts, ext)
	}
	return exts, consumed, nil
}

// DecodeExtensions reads the extensions of a complete in-memory file
// buffer, starting right after the header's presence flag and bounded by
// its data offset.
func DecodeExtensions(b []byte, h *Header) ([]*Extension, error) {
	offset := int64(h.HeaderSize()) + 4
	pos := offset
	read := func(n int) ([]byte, error) {
		if pos+int64(n) > int64(len(b)) {
			return nil, &HeaderSizeError{Need: int(pos) + n, Got: len(b)}
		}
		out := b[pos : pos+int64(n)]
		pos += int64(n)
		return out, nil
	}
	exts, _, err := ReadExtensions(read, offset, h.VoxOffset, h.Order)
	return exts, err
}

func outOfBounds(offset int64, size int32, bound int64) bool {
	return size < 0 || offset+int64(size) > bound
}

func oppositeOrder(order binary.ByteOrder) binary.ByteOrder {
	if order == binary.ByteOrder(binary.LittleEndian) {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
