package nifti

import (
	"bytes"
	"encoding/binary"
	"math"

	log "github.com/sirupsen/logrus"
)

// Header holds every fixed-layout header field of either format version,
// widened to the NIfTI-2 field types so one struct covers both. Version
// records which layout the fields were decoded from (1 or 2); Order is the
// byte order of the source bytes.
//
// A Header is an immutable snapshot as produced by ParseHeader, but callers
// may mutate fields before re-serializing (e.g. for version conversion).
type Header struct {
	Version int              // layout the header was decoded from: 1 or 2
	Order   binary.ByteOrder // byte order on disk

	DimInfo  uint8    // MRI slice ordering (packed freq/phase/slice dims)
	Dim      [8]int64 // Dim[0] = rank in [1,7], Dim[1..7] = sizes
	IntentP1 float64  // 1st intent parameter
	IntentP2 float64  // 2nd intent parameter
	IntentP3 float64  // 3rd intent parameter

	IntentCode int32 // NIFTI_INTENT_* code
	Datatype   int16 // DT_* code
	Bitpix     int16 // bits per voxel

	SliceStart int64      // first slice index
	PixDim     [8]float64 // PixDim[0] = qfac, PixDim[1..7] = grid spacings
	VoxOffset  int64      // offset of image data in the file

	SclSlope float64 // data scaling: slope
	SclInter float64 // data scaling: intercept

	SliceEnd      int64   // last slice index
	SliceCode     int32   // slice timing order
	XYZTUnits     int32   // packed spatial+temporal units of PixDim[1..4]
	CalMax        float64 // max display intensity
	CalMin        float64 // min display intensity
	SliceDuration float64 // time per slice
	TOffset       float64 // time axis shift

	Descrip string // free text, at most 80 bytes
	AuxFile string // auxiliary filename, at most 24 bytes

	QFormCode int32 // NIFTI_XFORM_* code
	SFormCode int32 // NIFTI_XFORM_* code

	QuaternB float64 // quaternion b parameter
	QuaternC float64 // quaternion c parameter
	QuaternD float64 // quaternion d parameter
	QOffsetX float64 // quaternion x shift
	QOffsetY float64 // quaternion y shift
	QOffsetZ float64 // quaternion z shift

	SRowX [4]float64 // 1st affine transform row
	SRowY [4]float64 // 2nd affine transform row
	SRowZ [4]float64 // 3rd affine transform row

	IntentName string // name or meaning of the data, at most 16 bytes

	Magic string // "n+1", "ni1", "n+2" or "ni2"
}

// HeaderSize returns the fixed header size of the layout the header was
// decoded from.
func (h *Header) HeaderSize() int {
	if h.Version == 2 {
		return HeaderSizeNIfTI2
	}
	return HeaderSizeNIfTI1
}

// BytesPerVoxel derives the per-voxel byte count from Bitpix.
func (h *Header) BytesPerVoxel() int64 {
	return int64(h.Bitpix) / 8
}

// SliceBytes computes the byte length of one sub-volume chunk at slice
// dimension d: bytes per voxel times the product of Dim[1..d]. Non-positive
// dimension sizes do not contribute.
func (h *Header) SliceBytes(d int) int64 {
	size := h.BytesPerVoxel()
	for i := 1; i <= d && i < len(h.Dim); i++ {
		if h.Dim[i] > 0 {
			size *= h.Dim[i]
		}
	}
	return size
}

// SpaceUnits returns the spatial units code packed into the low 3 bits of
// XYZTUnits (NIFTI_UNITS_METER, _MM or _MICRON).
func (h *Header) SpaceUnits() int32 {
	return h.XYZTUnits & spaceUnitsMask
}

// TimeUnits returns the temporal units code packed into bits 3-5 of
// XYZTUnits (NIFTI_UNITS_SEC, _MSEC or _USEC).
func (h *Header) TimeUnits() int32 {
	return h.XYZTUnits & timeUnitsMask
}

// SetSpaceUnits replaces the spatial units bits of XYZTUnits, leaving the
// temporal bits untouched.
func (h *Header) SetSpaceUnits(u int32) {
	h.XYZTUnits = (h.XYZTUnits &^ spaceUnitsMask) | (u & spaceUnitsMask)
}

// SetTimeUnits replaces the temporal units bits of XYZTUnits, leaving the
// spatial bits untouched.
func (h *Header) SetTimeUnits(u int32) {
	h.XYZTUnits = (h.XYZTUnits &^ timeUnitsMask) | (u & timeUnitsMask)
}

// fieldReader reads fixed-offset fields out of a header buffer in the
// file's byte order.
type fieldReader struct {
	b     []byte
	order binary.ByteOrder
}

func (r fieldReader) i16(off int) int16 {
	return int16(r.order.Uint16(r.b[off:]))
}

func (r fieldReader) i32(off int) int32 {
	return int32(r.order.Uint32(r.b[off:]))
}

func (r fieldReader) i64(off int) int64 {
	return int64(r.order.Uint64(r.b[off:]))
}

func (r fieldReader) f32(off int) float64 {
	return float64(math.Float32frombits(r.order.Uint32(r.b[off:])))
}

func (r fieldReader) f64(off int) float64 {
	return math.Float64frombits(r.order.Uint64(r.b[off:]))
}

// str reads a fixed-width ASCII field, truncated at the first zero byte.
func (r fieldReader) str(off, n int) string {
	f := r.b[off : off+n]
	if i := bytes.IndexByte(f, 0); i >= 0 {
		f = f[:i]
	}
	return string(f)
}

// Decode sniffs a complete in-memory header buffer and parses it. It is
// the non-streaming entry point; errors are returned synchronously.
func Decode(b []byte) (*Header, error) {
	version, order, err := SniffHeader(b)
	if err != nil {
		return nil, err
	}
	return ParseHeader(b, version, order)
}

// ParseHeader decodes every fixed header field at its byte offset for the
// given version (1 or 2) and byte order. The buffer must hold at least the
// version's full header size; extra trailing bytes are ignored.
func ParseHeader(b []byte, version int, order binary.ByteOrder) (*Header, error) {
	var h *Header
	var err error
	if version == 2 {
		h, err = parseNIfTI2(b, order)
	} else {
		h, err = parseNIfTI1(b, order)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"magic":    h.Magic,
		"datatype": h.Datatype,
		"rank":     h.Dim[0],
	}).Debug("Parsed header")

	return h, nil
}

func parseNIfTI1(b []byte, order binary.ByteOrder) (*Header, error) {
	if len(b) < HeaderSizeNIfTI1 {
		return nil, &HeaderSizeError{Need: HeaderSizeNIfTI1, Got: len(b)}
	}
	r := fieldReader{b: b, order: order}

	h := &Header{Version: 1, Order: order}
	h.DimInfo = b[39]
	for i := range h.Dim {
		h.Dim[i] = int64(r.i16(40 + 2*i))
	}
	h.IntentP1 = r.f32(56)
	h.IntentP2 = r.f32(60)
	h.IntentP3 = r.f32(64)
	h.IntentCode = int32(r.i16(68))
	h.Datatype = r.i16(70)
	h.Bitpix = r.i16(72)
	h.SliceStart = int64(r.i16(74))
	for i := range h.PixDim {
		h.PixDim[i] = r.f32(76 + 4*i)
	}
	h.VoxOffset = int64(r.f32(108))
	h.SclSlope = r.f32(112)
	h.SclInter = r.f32(116)
	h.SliceEnd = int64(r.i16(120))
	h.SliceCode = int32(int8(b[122]))
	h.XYZTUnits = int32(int8(b[123]))
	h.CalMax = r.f32(124)
	h.CalMin = r.f32(128)
	h.SliceDuration = r.f32(132)
	h.TOffset = r.f32(136)
	h.Descrip = r.str(148, 80)
	h.AuxFile = r.str(228, 24)
	h.QFormCode = int32(r.i16(252))
	h.SFormCode = int32(r.i16(254))
	h.QuaternB = r.f32(256)
	h.QuaternC = r.f32(260)
	h.QuaternD = r.f32(264)
	h.QOffsetX = r.f32(268)
	h.QOffsetY = r.f32(272)
	h.QOffsetZ = r.f32(276)
	for i := 0; i < 4; i++ {
		h.SRowX[i] = r.f32(280 + 4*i)
		h.SRowY[i] = r.f32(296 + 4*i)
		h.SRowZ[i] = r.f32(312 + 4*i)
	}
	h.IntentName = r.str(328, 16)
	h.Magic = r.str(magicOffsetNIfTI1, 4)

	if h.Magic != MagicNIfTI1 && h.Magic != MagicNIfTI1Pair {
		return nil, errBadMagic(h.Magic)
	}
	return h, nil
}

func parseNIfTI2(b []byte, order binary.ByteOrder) (*Header, error) {
	if len(b) < HeaderSizeNIfTI2 {
		return nil, &HeaderSizeError{Need: HeaderSizeNIfTI2, Got: len(b)}
	}
	r := fieldReader{b: b, order: order}

	h := &Header{Version: 2, Order: order}
	h.Magic = r.str(magicOffsetNIfTI2, 4)
	h.Datatype = r.i16(12)
	h.Bitpix = r.i16(14)
	for i := range h.Dim {
		h.Dim[i] = r.i64(16 + 8*i)
	}
	h.IntentP1 = r.f64(80)
	h.IntentP2 = r.f64(88)
	h.IntentP3 = r.f64(96)
	for i := range h.PixDim {
		h.PixDim[i] = r.f64(104 + 8*i)
	}
	h.VoxOffset = r.i64(168)
	h.SclSlope = r.f64(176)
	h.SclInter = r.f64(184)
	h.CalMax = r.f64(192)
	h.CalMin = r.f64(200)
	h.SliceDuration = r.f64(208)
	h.TOffset = r.f64(216)
	h.SliceStart = r.i64(224)
	h.SliceEnd = r.i64(232)
	h.Descrip = r.str(240, 80)
	h.AuxFile = r.str(320, 24)
	h.QFormCode = r.i32(344)
	h.SFormCode = r.i32(348)
	h.QuaternB = r.f64(352)
	h.QuaternC = r.f64(360)
	h.QuaternD = r.f64(368)
	h.QOffsetX = r.f64(376)
	h.QOffsetY = r.f64(384)
	h.QOffsetZ = r.f64(392)
	for i := 0; i < 4; i++ {
		h.SRowX[i] = r.f64(400 + 8*i)
		h.SRowY[i] = r.f64(432 + 8*i)
		h.SRowZ[i] = r.f64(464 + 8*i)
	}
	h.SliceCode = r.i32(496)
	h.XYZTUnits = r.i32(500)
	h.IntentCode = r.i32(504)
	h.IntentName = r.str(508, 16)
	h.DimInfo = b[524]

	if h.Magic != MagicNIfTI2 && h.Magic != MagicNIfTI2Pair {
		return nil, errBadMagic(h.Magic)
	}
	return h, nil
}
