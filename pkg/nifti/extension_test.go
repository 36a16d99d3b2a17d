package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// sliceReadFn adapts an in-memory buffer to the reader contract of
// ReadExtensions
func sliceReadFn(b []byte) func(int) ([]byte, error) {
	pos := 0
	return func(n int) ([]byte, error) {
		if pos+n > len(b) {
			return nil, &HeaderSizeError{Need: pos + n, Got: len(b)}
		}
		out := b[pos : pos+n]
		pos += n
		return out, nil
	}
}

// writeExtension appends one encoded extension block
func writeExtension(buf *bytes.Buffer, order binary.ByteOrder, size, code int32, payload []byte) {
	binary.Write(buf, order, size)
	binary.Write(buf, order, code)
	buf.Write(payload)
}

// TestNewExtensionSizeInvariant verifies that construction rejects any
// size that is not a positive multiple of 16
func TestNewExtensionSizeInvariant(t *testing.T) {
	for _, size := range []int32{-16, 0, 8, 15, 24} {
		if _, err := NewExtension(size, 4, make([]byte, 24), binary.LittleEndian); !errors.Is(err, ErrExtensionSize) {
			t.Errorf("Expected ErrExtensionSize for esize %d, got %v", size, err)
		}
	}

	ext, err := NewExtension(32, 4, make([]byte, 24), binary.LittleEndian)
	if err != nil {
		t.Fatalf("Unexpected error for esize 32: %v", err)
	}
	if len(ext.Data) != 32-8 {
		t.Errorf("Expected %d payload bytes, got %d", 32-8, len(ext.Data))
	}
}

// TestReadExtensions verifies the walk over consecutive extension blocks
func TestReadExtensions(t *testing.T) {
	order := binary.LittleEndian
	var buf bytes.Buffer
	writeExtension(&buf, order, 32, 4, bytes.Repeat([]byte{0xAB}, 24))
	writeExtension(&buf, order, 16, 6, bytes.Repeat([]byte{0xCD}, 8))

	offset := int64(HeaderSizeNIfTI1 + 4)
	bound := offset + int64(buf.Len())
	exts, consumed, err := ReadExtensions(sliceReadFn(buf.Bytes()), offset, bound, order)
	if err != nil {
		t.Fatalf("ReadExtensions failed: %v", err)
	}
	if len(exts) != 2 {
		t.Fatalf("Expected 2 extensions, got %d", len(exts))
	}
	if consumed != int64(buf.Len()) {
		t.Errorf("Expected %d bytes consumed, got %d", buf.Len(), consumed)
	}
	if exts[0].Code != 4 || exts[0].Size != 32 || len(exts[0].Data) != 24 {
		t.Errorf("First extension decoded wrong: %+v", exts[0])
	}
	if exts[1].Code != 6 || exts[1].Size != 16 || len(exts[1].Data) != 8 {
		t.Errorf("Second extension decoded wrong: %+v", exts[1])
	}
}

// TestReadExtensionsZeroSizeStops verifies that a zero size field ends the
// walk before the bound is reached
func TestReadExtensionsZeroSizeStops(t *testing.T) {
	order := binary.LittleEndian
	var buf bytes.Buffer
	writeExtension(&buf, order, 16, 2, make([]byte, 8))
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write(bytes.Repeat([]byte{0xFF}, 64)) // padding past the terminator

	offset := int64(HeaderSizeNIfTI1 + 4)
	exts, _, err := ReadExtensions(sliceReadFn(buf.Bytes()), offset, offset+int64(buf.Len()), order)
	if err != nil {
		t.Fatalf("ReadExtensions failed: %v", err)
	}
	if len(exts) != 1 {
		t.Errorf("Expected 1 extension before the terminator, got %d", len(exts))
	}
}

// TestReadExtensionsForeignByteOrder verifies that a size field encoded in
// the opposite byte order is retried and accepted, and that the extension
// records its own order
func TestReadExtensionsForeignByteOrder(t *testing.T) {
	// Host header is little-endian, extension encodes itself big-endian.
	var buf bytes.Buffer
	writeExtension(&buf, binary.BigEndian, 32, 4, make([]byte, 24))

	offset := int64(HeaderSizeNIfTI1 + 4)
	exts, _, err := ReadExtensions(sliceReadFn(buf.Bytes()), offset, offset+int64(buf.Len()), binary.LittleEndian)
	if err != nil {
		t.Fatalf("ReadExtensions failed: %v", err)
	}
	if len(exts) != 1 {
		t.Fatalf("Expected 1 extension, got %d", len(exts))
	}
	if exts[0].Size != 32 || exts[0].Code != 4 {
		t.Errorf("Expected size 32 code 4, got size %d code %d", exts[0].Size, exts[0].Code)
	}
	if exts[0].Order != binary.ByteOrder(binary.BigEndian) {
		t.Errorf("Expected extension to record big-endian, got %v", exts[0].Order)
	}
}

// TestReadExtensionsIrreconcilable verifies the format error when the size
// overruns the bound under both byte orders
func TestReadExtensionsIrreconcilable(t *testing.T) {
	var buf bytes.Buffer
	writeExtension(&buf, binary.LittleEndian, 4096, 4, nil)

	offset := int64(HeaderSizeNIfTI1 + 4)
	_, _, err := ReadExtensions(sliceReadFn(buf.Bytes()), offset, offset+64, binary.LittleEndian)
	if !errors.Is(err, ErrByteOrder) {
		t.Errorf("Expected ErrByteOrder, got %v", err)
	}
}

// TestReadExtensionsBadMultiple verifies the format error for an in-bounds
// size that is not a multiple of 16
func TestReadExtensionsBadMultiple(t *testing.T) {
	var buf bytes.Buffer
	writeExtension(&buf, binary.LittleEndian, 24, 4, make([]byte, 16))
	buf.Write(bytes.Repeat([]byte{0}, 4096)) // keep both orders in bounds

	offset := int64(HeaderSizeNIfTI1 + 4)
	_, _, err := ReadExtensions(sliceReadFn(buf.Bytes()), offset, offset+int64(buf.Len()), binary.LittleEndian)
	if !errors.Is(err, ErrExtensionSize) {
		t.Errorf("Expected ErrExtensionSize, got %v", err)
	}
}

// TestDecodeExtensions verifies the in-memory whole-file entry point
func TestDecodeExtensions(t *testing.T) {
	h := sampleHeader(MagicNIfTI1, binary.LittleEndian)

	var file bytes.Buffer
	file.Write(SerializeNIfTI1(h))
	file.Write([]byte{1, 0, 0, 0}) // extension presence flag
	writeExtension(&file, binary.LittleEndian, 48, 6, bytes.Repeat([]byte{0x11}, 40))
	h.VoxOffset = int64(file.Len())

	exts, err := DecodeExtensions(file.Bytes(), h)
	if err != nil {
		t.Fatalf("DecodeExtensions failed: %v", err)
	}
	if len(exts) != 1 {
		t.Fatalf("Expected 1 extension, got %d", len(exts))
	}
	if exts[0].Code != 6 || len(exts[0].Data) != 40 {
		t.Errorf("Extension decoded wrong: code %d, %d payload bytes", exts[0].Code, len(exts[0].Data))
	}
}
