package stream

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// gzip stream signature.
const (
	gzipID1 = 0x1F
	gzipID2 = 0x8B
)

// NewReader sniffs the first chunk of r for the gzip signature and returns
// either a decompressing reader or r's bytes unmodified. Exactly one read
// is consumed for sniffing and the chunk it yields is re-emitted exactly
// once downstream, so no bytes are dropped or duplicated.
//
// An already-exhausted input yields an empty reader; a first chunk too
// short to test (a single byte) is replayed unmodified.
func NewReader(r io.Reader) (io.Reader, error) {
	first := make([]byte, defaultChunkSize)
	n, err := r.Read(first)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if n == 0 {
		if err == io.EOF {
			return bytes.NewReader(nil), nil
		}
		return r, nil
	}

	replay := io.MultiReader(bytes.NewReader(first[:n]), r)
	if n >= 2 && first[0] == gzipID1 && first[1] == gzipID2 {
		return gzip.NewReader(replay)
	}
	return replay, nil
}
