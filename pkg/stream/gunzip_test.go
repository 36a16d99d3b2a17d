package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close failed: %v", err)
	}
	return buf.Bytes()
}

// TestNewReaderPlain verifies that uncompressed input passes through
// byte-identically, including the sniffed first chunk
func TestNewReaderPlain(t *testing.T) {
	data := make([]byte, 100000)
	for i := range data {
		data[i] = byte(i * 7)
	}

	r, err := NewReader(&chunkedReader{data: data, chunk: 1000})
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Passthrough altered the stream: %d bytes in, %d out", len(data), len(got))
	}
}

// TestNewReaderGzip verifies that a gzip stream and its decompressed
// equivalent yield identical bytes downstream
func TestNewReaderGzip(t *testing.T) {
	data := make([]byte, 100000)
	for i := range data {
		data[i] = byte(i % 251)
	}

	r, err := NewReader(&chunkedReader{data: gzipped(t, data), chunk: 1000})
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Decompressed stream differs from original: %d bytes in, %d out", len(data), len(got))
	}
}

// TestNewReaderEmpty verifies that an exhausted input yields an empty
// stream rather than an error
func TestNewReaderEmpty(t *testing.T) {
	r, err := NewReader(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty stream, got %d bytes", len(got))
	}
}

// TestNewReaderSingleByte verifies that a first chunk too short to sniff
// is replayed unmodified
func TestNewReaderSingleByte(t *testing.T) {
	r, err := NewReader(&chunkedReader{data: []byte{0x1F}, chunk: 1})
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(got, []byte{0x1F}) {
		t.Errorf("Expected the single byte replayed, got %v", got)
	}
}
