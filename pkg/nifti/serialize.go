package nifti

import (
	"encoding/binary"
	"math"
)

// fieldWriter writes fixed-offset fields into a header buffer in the
// file's byte order. Inverse of fieldReader.
type fieldWriter struct {
	b     []byte
	order binary.ByteOrder
}

func (w fieldWriter) i16(off int, v int16) {
	w.order.PutUint16(w.b[off:], uint16(v))
}

func (w fieldWriter) i32(off int, v int32) {
	w.order.PutUint32(w.b[off:], uint32(v))
}

func (w fieldWriter) i64(off int, v int64) {
	w.order.PutUint64(w.b[off:], uint64(v))
}

func (w fieldWriter) f32(off int, v float64) {
	w.order.PutUint32(w.b[off:], math.Float32bits(float32(v)))
}

func (w fieldWriter) f64(off int, v float64) {
	w.order.PutUint64(w.b[off:], math.Float64bits(v))
}

// str writes a fixed-width ASCII field, zero-padded; over-long values are
// truncated to the field width.
func (w fieldWriter) str(off, n int, s string) {
	if len(s) > n {
		s = s[:n]
	}
	copy(w.b[off:off+n], s)
}

// Serialize encodes the header in the version implied by its magic token.
func Serialize(h *Header) ([]byte, error) {
	switch h.Magic {
	case MagicNIfTI2, MagicNIfTI2Pair:
		return SerializeNIfTI2(h), nil
	case MagicNIfTI1, MagicNIfTI1Pair:
		return SerializeNIfTI1(h), nil
	default:
		return nil, errBadMagic(h.Magic)
	}
}

// magicForVersion remaps a magic token into the target version's family.
// Same-family tokens pass through; foreign-family tokens keep their
// single-file/paired kind ("n+" vs "ni") and swap the version character.
func magicForVersion(magic string, version int) string {
	if version == 1 {
		switch magic {
		case MagicNIfTI2:
			return MagicNIfTI1
		case MagicNIfTI2Pair:
			return MagicNIfTI1Pair
		}
		return magic
	}
	switch magic {
	case MagicNIfTI1:
		return MagicNIfTI2
	case MagicNIfTI1Pair:
		return MagicNIfTI2Pair
	}
	return magic
}

// SerializeNIfTI1 encodes the header in the 348-byte NIfTI-1 layout using
// the header's byte order. A NIfTI-2 magic token is silently remapped to
// its NIfTI-1 equivalent, so this doubles as the downgrade conversion;
// wide fields are narrowed with plain casts.
func SerializeNIfTI1(h *Header) []byte {
	b := make([]byte, HeaderSizeNIfTI1)
	w := fieldWriter{b: b, order: h.Order}

	w.i32(0, HeaderSizeNIfTI1)
	b[39] = h.DimInfo
	for i, d := range h.Dim {
		w.i16(40+2*i, int16(d))
	}
	w.f32(56, h.IntentP1)
	w.f32(60, h.IntentP2)
	w.f32(64, h.IntentP3)
	w.i16(68, int16(h.IntentCode))
	w.i16(70, h.Datatype)
	w.i16(72, h.Bitpix)
	w.i16(74, int16(h.SliceStart))
	for i, d := range h.PixDim {
		w.f32(76+4*i, d)
	}
	w.f32(108, float64(h.VoxOffset))
	w.f32(112, h.SclSlope)
	w.f32(116, h.SclInter)
	w.i16(120, int16(h.SliceEnd))
	b[122] = byte(int8(h.SliceCode))
	b[123] = byte(int8(h.XYZTUnits))
	w.f32(124, h.CalMax)
	w.f32(128, h.CalMin)
	w.f32(132, h.SliceDuration)
	w.f32(136, h.TOffset)
	w.str(148, 80, h.Descrip)
	w.str(228, 24, h.AuxFile)
	w.i16(252, int16(h.QFormCode))
	w.i16(254, int16(h.SFormCode))
	w.f32(256, h.QuaternB)
	w.f32(260, h.QuaternC)
	w.f32(264, h.QuaternD)
	w.f32(268, h.QOffsetX)
	w.f32(272, h.QOffsetY)
	w.f32(276, h.QOffsetZ)
	for i := 0; i < 4; i++ {
		w.f32(280+4*i, h.SRowX[i])
		w.f32(296+4*i, h.SRowY[i])
		w.f32(312+4*i, h.SRowZ[i])
	}
	w.str(328, 16, h.IntentName)
	w.str(magicOffsetNIfTI1, 4, magicForVersion(h.Magic, 1))

	return b
}

// SerializeNIfTI2 encodes the header in the 540-byte NIfTI-2 layout using
// the header's byte order. A NIfTI-1 magic token is silently remapped to
// its NIfTI-2 equivalent, so this doubles as the upgrade conversion.
func SerializeNIfTI2(h *Header) []byte {
	b := make([]byte, HeaderSizeNIfTI2)
	w := fieldWriter{b: b, order: h.Order}

	w.i32(0, HeaderSizeNIfTI2)
	// 8-byte magic: token, NUL, then the dos/unix line-ending signature
	// that detects transfer corruption.
	w.str(magicOffsetNIfTI2, 4, magicForVersion(h.Magic, 2))
	copy(b[8:12], []byte{0x0D, 0x0A, 0x1A, 0x0A})
	w.i16(12, h.Datatype)
	w.i16(14, h.Bitpix)
	for i, d := range h.Dim {
		w.i64(16+8*i, d)
	}
	w.f64(80, h.IntentP1)
	w.f64(88, h.IntentP2)
	w.f64(96, h.IntentP3)
	for i, d := range h.PixDim {
		w.f64(104+8*i, d)
	}
	w.i64(168, h.VoxOffset)
	w.f64(176, h.SclSlope)
	w.f64(184, h.SclInter)
	w.f64(192, h.CalMax)
	w.f64(200, h.CalMin)
	w.f64(208, h.SliceDuration)
	w.f64(216, h.TOffset)
	w.i64(224, h.SliceStart)
	w.i64(232, h.SliceEnd)
	w.str(240, 80, h.Descrip)
	w.str(320, 24, h.AuxFile)
	w.i32(344, h.QFormCode)
	w.i32(348, h.SFormCode)
	w.f64(352, h.QuaternB)
	w.f64(360, h.QuaternC)
	w.f64(368, h.QuaternD)
	w.f64(376, h.QOffsetX)
	w.f64(384, h.QOffsetY)
	w.f64(392, h.QOffsetZ)
	for i := 0; i < 4; i++ {
		w.f64(400+8*i, h.SRowX[i])
		w.f64(432+8*i, h.SRowY[i])
		w.f64(464+8*i, h.SRowZ[i])
	}
	w.i32(496, h.SliceCode)
	w.i32(500, h.XYZTUnits)
	w.i32(504, h.IntentCode)
	w.str(508, 16, h.IntentName)
	b[524] = h.DimInfo

	return b
}
