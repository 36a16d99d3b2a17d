package stream

import (
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"niftistream/pkg/nifti"
)

// Handler signatures. A true return value requests an early stop, which
// takes effect before the next read is issued.
type (
	// HeaderHandler receives the parsed header.
	HeaderHandler func(h *nifti.Header) bool
	// ExtensionHandler receives each decoded extension, or nil once when
	// the stream carries none.
	ExtensionHandler func(ext *nifti.Extension) bool
	// SliceHandler receives one image chunk, its multi-dimensional index
	// (empty in passthrough mode) and the session header.
	SliceHandler func(data []byte, indices []int64, h *nifti.Header) bool
	// ErrorHandler observes the session's terminal error.
	ErrorHandler func(err error)
)

// Options configures a streaming session. Omitting OnExtension and OnSlice
// ends the session right after the header is available; omitting only
// OnSlice ends it after the extensions. Errors raised during the session
// are funneled to OnError and silently swallowed when it is nil.
type Options struct {
	// SliceDim selects the chunk granularity: 2 for 2D planes, 3 for 3D
	// volumes, 4 for 4D timepoints. Zero leaves the image data in raw
	// passthrough chunks.
	SliceDim int

	OnHeader    HeaderHandler
	OnExtension ExtensionHandler
	OnSlice     SliceHandler
	OnError     ErrorHandler
}

// Session states.
const (
	stateInit = iota
	stateHeaderRead
	stateExtensionRead
	stateStreaming
	stateStopped
	stateDone
	stateError
)

// Session drives one input stream through header, extension and slice
// phases, invoking the configured handlers for each decoded unit. A
// session owns its accumulation buffer, processes exactly one stream, and
// is not reentrant; all scheduling is cooperative on the caller's
// goroutine.
type Session struct {
	opts    Options
	acc     *accumulator
	header  *nifti.Header
	count   int64
	state   int
	stopped bool
	closer  io.Closer
}

// NewSession creates a session with the given options. It does nothing
// until Run is called.
func NewSession(opts Options) *Session {
	return &Session{opts: opts}
}

// Stop requests a cooperative stop. It is checked before every phase
// transition and before every slice read, so a stop requested from within
// a handler takes effect before the next read begins; a read already in
// flight completes first.
func (s *Session) Stop() {
	s.stopped = true
}

// Run consumes the stream to completion, stop or error. Failures are
// reported through Options.OnError, never returned across the session
// boundary; configure OnError to observe them. If r is an io.ReadCloser
// it is closed when a stop cancels the session.
func (s *Session) Run(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	defer s.teardown()

	src, err := NewReader(r)
	if err != nil {
		s.fail(err)
		return
	}
	s.acc = newAccumulator(src)

	if !s.readHeader() {
		return
	}
	if s.opts.OnExtension == nil && s.opts.OnSlice == nil {
		s.state = stateDone
		return
	}
	if s.halted() {
		return
	}
	if !s.readExtensions() {
		return
	}
	if s.opts.OnSlice == nil {
		s.state = stateDone
		return
	}
	if s.halted() {
		return
	}
	s.streamSlices()
}

// readHeader pulls the minimum NIfTI-1-sized block, sniffs it, extends the
// read for NIfTI-2 and parses. Returns false when the session ended.
func (s *Session) readHeader() bool {
	s.state = stateHeaderRead

	b, err := s.acc.ReadExact(nifti.HeaderSizeNIfTI1)
	if err != nil {
		s.fail(err)
		return false
	}
	version, order, err := nifti.SniffHeader(b)
	if err != nil {
		s.fail(err)
		return false
	}
	if version == 2 {
		rest, err := s.acc.ReadExact(nifti.HeaderSizeNIfTI2 - nifti.HeaderSizeNIfTI1)
		if err != nil {
			s.fail(err)
			return false
		}
		b = append(b, rest...)
	}

	h, err := nifti.ParseHeader(b, version, order)
	if err != nil {
		s.fail(err)
		return false
	}
	s.header = h

	if s.opts.OnHeader != nil && s.opts.OnHeader(h) {
		s.stopped = true
		s.state = stateStopped
		return false
	}
	return true
}

// readExtensions consumes the 4-byte presence flag and, when set, every
// extension block up to the header's data offset. The extension handler
// sees each block in order, or nil once when there are none. Returns false
// when the session ended.
func (s *Session) readExtensions() bool {
	s.state = stateExtensionRead

	flag, err := s.acc.ReadExact(4)
	if err != nil {
		s.fail(err)
		return false
	}

	offset := int64(s.header.HeaderSize()) + 4
	var exts []*nifti.Extension
	if flag[0] != 0 {
		var consumed int64
		exts, consumed, err = nifti.ReadExtensions(s.acc.ReadExact, offset, s.header.VoxOffset, s.header.Order)
		offset += consumed
		if err != nil {
			s.fail(err)
			return false
		}
	}

	log.WithFields(log.Fields{
		"extensions": len(exts),
		"dataOffset": s.header.VoxOffset,
	}).Debug("Extension phase complete")

	if s.opts.OnExtension != nil {
		if len(exts) == 0 {
			if s.opts.OnExtension(nil) {
				s.stopped = true
				s.state = stateStopped
				return false
			}
		}
		for _, ext := range exts {
			if s.opts.OnExtension(ext) || s.halted() {
				s.stopped = true
				s.state = stateStopped
				return false
			}
		}
	}

	// Skip any padding between the last extension and the image data.
	if gap := s.header.VoxOffset - offset; gap > 0 {
		if _, err := s.acc.ReadExact(int(gap)); err != nil {
			s.fail(err)
			return false
		}
	}
	return true
}

// streamSlices repeatedly delivers image chunks until end-of-stream or a
// stop. With a slice dimension configured, every iteration is exactly one
// fixed-size read of that dimension's byte length; without one, chunks
// pass through at whatever size the upstream delivers.
func (s *Session) streamSlices() {
	s.state = stateStreaming

	for {
		if s.halted() {
			return
		}
		if s.opts.SliceDim == 0 {
			chunk, err := s.acc.NextChunk()
			if err == io.EOF {
				s.state = stateDone
				return
			}
			if err != nil {
				s.fail(err)
				return
			}
			if s.opts.OnSlice(chunk, nil, s.header) {
				s.stopped = true
				s.state = stateStopped
				return
			}
			continue
		}

		size := s.header.SliceBytes(s.opts.SliceDim)
		if size <= 0 {
			s.fail(errBadSliceSize(s.header, s.opts.SliceDim))
			return
		}
		data, err := s.acc.ReadExact(int(size))
		if err != nil {
			// End-of-stream at a slice boundary is a clean completion;
			// a partial slice is not.
			var end *UnexpectedEndError
			if errors.As(err, &end) && end.Available == 0 {
				s.state = stateDone
				return
			}
			s.fail(err)
			return
		}

		indices := s.sliceIndex()
		s.count++
		if s.opts.OnSlice(data, indices, s.header) {
			s.stopped = true
			s.state = stateStopped
			return
		}
	}
}

// sliceIndex builds the multi-dimensional position of the chunk about to
// be delivered: one slot per dimension, all zero except the slot one past
// the slice dimension, which carries the running chunk counter. The array
// grows past Dim[0] when the counter slot would not otherwise fit.
func (s *Session) sliceIndex() []int64 {
	slot := s.opts.SliceDim + 1
	n := int(s.header.Dim[0])
	if n < slot+1 {
		n = slot + 1
	}
	indices := make([]int64, n)
	indices[slot] = s.count
	return indices
}

// halted folds the stop flag into the terminal state.
func (s *Session) halted() bool {
	if s.stopped {
		s.state = stateStopped
	}
	return s.stopped
}

// fail routes a session error to the configured handler. Sessions swallow
// errors when no handler is set.
func (s *Session) fail(err error) {
	s.state = stateError
	log.WithFields(log.Fields{
		"error": err,
	}).Debug("Session failed")
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
}

func (s *Session) teardown() {
	if s.stopped && s.closer != nil {
		s.closer.Close()
	}
}

func errBadSliceSize(h *nifti.Header, dim int) error {
	return fmt.Errorf("%w: slice dimension %d with bitpix %d yields no bytes", nifti.ErrNotNIfTI, dim, h.Bitpix)
}
