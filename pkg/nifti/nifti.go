// Package nifti implements the fixed-layout binary header codec for the
// NIfTI-1 and NIfTI-2 neuroimaging formats: version and byte-order
// detection, header parsing and serialization, the voxel-to-world affine
// derivation, and the variable-length header extensions.
//
// Field layouts follow the official definitions:
// https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
// https://nifti.nimh.nih.gov/pub/dist/doc/nifti2.h
package nifti

// Version identifies a NIfTI format variant as reported by the magic token.
type Version int

const (
	// VersionNone means the buffer did not carry a recognized magic token.
	VersionNone Version = iota
	// VersionNIfTI1 is NIfTI-1 with header and data in one file ("n+1").
	VersionNIfTI1
	// VersionNIfTI1Pair is NIfTI-1 with a separate data file ("ni1").
	VersionNIfTI1Pair
	// VersionNIfTI2 is NIfTI-2 with header and data in one file ("n+2").
	VersionNIfTI2
	// VersionNIfTI2Pair is NIfTI-2 with a separate data file ("ni2").
	VersionNIfTI2Pair
)

// String returns the magic token for the version, or "none".
func (v Version) String() string {
	switch v {
	case VersionNIfTI1:
		return MagicNIfTI1
	case VersionNIfTI1Pair:
		return MagicNIfTI1Pair
	case VersionNIfTI2:
		return MagicNIfTI2
	case VersionNIfTI2Pair:
		return MagicNIfTI2Pair
	default:
		return "none"
	}
}

// Magic tokens. Single-file variants use "n+", paired header/data files "ni".
const (
	MagicNIfTI1     = "n+1"
	MagicNIfTI1Pair = "ni1"
	MagicNIfTI2     = "n+2"
	MagicNIfTI2Pair = "ni2"
)

// Fixed header sizes in bytes.
const (
	HeaderSizeNIfTI1 = 348
	HeaderSizeNIfTI2 = 540
)

// Byte offset of the magic token within each header layout.
const (
	magicOffsetNIfTI1 = 344
	magicOffsetNIfTI2 = 4
)

// Values of the 4-byte header-size field at offset 0 when read as a
// big-endian integer, one per (version, byte order) combination. A
// little-endian file shows the byte-swapped header size.
const (
	sniffNIfTI1BE = 348        // 0x0000015C
	sniffNIfTI1LE = 1543569408 // 0x5C010000
	sniffNIfTI2BE = 540        // 0x0000021C
	sniffNIfTI2LE = 469893120  // 0x1C020000
)

// Datatype codes (DT_* in nifti1.h).
const (
	DatatypeUint8      int16 = 2
	DatatypeInt16      int16 = 4
	DatatypeInt32      int16 = 8
	DatatypeFloat32    int16 = 16
	DatatypeComplex64  int16 = 32
	DatatypeFloat64    int16 = 64
	DatatypeRGB24      int16 = 128
	DatatypeInt8       int16 = 256
	DatatypeUint16     int16 = 512
	DatatypeUint32     int16 = 768
	DatatypeInt64      int16 = 1024
	DatatypeUint64     int16 = 1280
	DatatypeFloat128   int16 = 1536
	DatatypeComplex128 int16 = 1792
	DatatypeComplex256 int16 = 2048
	DatatypeRGBA32     int16 = 2304
)

// Transform codes for QFormCode and SFormCode (NIFTI_XFORM_*).
const (
	XFormUnknown     int32 = 0
	XFormScannerAnat int32 = 1
	XFormAlignedAnat int32 = 2
	XFormTalairach   int32 = 3
	XFormMNI152      int32 = 4
)

// Units codes (NIFTI_UNITS_*). Spatial and temporal codes share the packed
// XYZTUnits field; see Header.SpaceUnits and Header.TimeUnits.
const (
	UnitsUnknown int32 = 0
	UnitsMeter   int32 = 1
	UnitsMM      int32 = 2
	UnitsMicron  int32 = 3
	UnitsSec     int32 = 8
	UnitsMsec    int32 = 16
	UnitsUsec    int32 = 24
	UnitsHz      int32 = 32
	UnitsPPM     int32 = 40
	UnitsRads    int32 = 48
)

// Masks for the packed XYZTUnits field: spatial units occupy the low 3
// bits, temporal units the next 3.
const (
	spaceUnitsMask int32 = 0x07
	timeUnitsMask  int32 = 0x38
)
