// Package stream turns an arbitrarily chunked byte stream into decoded
// NIfTI units: it sniffs and transparently decompresses gzip input,
// re-chunks the stream into exact fixed-size reads, and drives a
// header -> extensions -> slices session with caller-supplied handlers.
package stream

import (
	"fmt"
	"io"
)

// defaultChunkSize is how many bytes one upstream pull requests.
const defaultChunkSize = 32 * 1024

// maxStalledPulls bounds how many consecutive zero-byte reads the refill
// loop tolerates before giving up on a misbehaving upstream.
const maxStalledPulls = 100

// UnexpectedEndError reports an input that ended before a fixed-size read
// could be satisfied.
type UnexpectedEndError struct {
	Requested int // bytes the read needed
	Available int // unread bytes actually buffered
}

func (e *UnexpectedEndError) Error() string {
	return fmt.Sprintf("unexpected end of stream: requested %d bytes, %d available", e.Requested, e.Available)
}

// accumulator adapts an io.Reader delivering arbitrary-sized chunks into
// exact fixed-length reads, carrying the unread remainder forward between
// reads. It is the single suspension point for all header, extension and
// slice reads; it is not safe for concurrent use.
type accumulator struct {
	r   io.Reader
	buf []byte // accumulation buffer
	pos int    // read cursor into buf
	tmp []byte // scratch for upstream pulls
	eof bool
}

func newAccumulator(r io.Reader) *accumulator {
	return &accumulator{r: r, tmp: make([]byte, defaultChunkSize)}
}

// unread reports how many buffered bytes the cursor has not yet passed.
func (a *accumulator) unread() int {
	return len(a.buf) - a.pos
}

// ReadExact returns the next n bytes, pulling upstream chunks until enough
// have accumulated. The returned slice is a copy owned by the caller; it
// never aliases the accumulation buffer. If the stream ends first, it
// fails with an UnexpectedEndError carrying the requested and available
// counts.
func (a *accumulator) ReadExact(n int) ([]byte, error) {
	stalled := 0
	for a.unread() < n {
		if a.eof {
			return nil, &UnexpectedEndError{Requested: n, Available: a.unread()}
		}
		pulled, err := a.pull()
		if err != nil {
			return nil, err
		}
		if pulled == 0 && !a.eof {
			if stalled++; stalled >= maxStalledPulls {
				return nil, io.ErrNoProgress
			}
			continue
		}
		stalled = 0
	}
	out := make([]byte, n)
	copy(out, a.buf[a.pos:a.pos+n])
	a.pos += n
	return out, nil
}

// NextChunk returns whatever is buffered, or failing that whatever the
// next upstream pull delivers, without imposing a size. It returns io.EOF
// once the stream is exhausted. The returned slice is a copy owned by the
// caller.
func (a *accumulator) NextChunk() ([]byte, error) {
	for a.unread() == 0 {
		if a.eof {
			return nil, io.EOF
		}
		if _, err := a.pull(); err != nil {
			return nil, err
		}
	}
	out := make([]byte, a.unread())
	copy(out, a.buf[a.pos:])
	a.pos = len(a.buf)
	return out, nil
}

// pull performs one upstream read and splices the result onto the unread
// remainder, resetting the cursor. Bytes already consumed are dropped so
// the buffer does not grow with the stream.
func (a *accumulator) pull() (int, error) {
	n, err := a.r.Read(a.tmp)
	if n > 0 {
		rem := a.unread()
		next := make([]byte, rem+n)
		copy(next, a.buf[a.pos:])
		copy(next[rem:], a.tmp[:n])
		a.buf, a.pos = next, 0
	}
	if err == io.EOF {
		a.eof = true
		return n, nil
	}
	return n, err
}
