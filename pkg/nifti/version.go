package nifti

import (
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// SniffHeader classifies the format version and byte order of a header by
// its 4-byte header-size field, without parsing anything else. The buffer
// must hold at least 4 bytes from the start of the (decompressed) stream.
//
// It returns the format version (1 or 2) and the byte order the rest of
// the header is encoded in.
func SniffHeader(b []byte) (version int, order binary.ByteOrder, err error) {
	if len(b) < 4 {
		return 0, nil, &HeaderSizeError{Need: 4, Got: len(b)}
	}
	switch binary.BigEndian.Uint32(b) {
	case sniffNIfTI1BE:
		version, order = 1, binary.BigEndian
	case sniffNIfTI1LE:
		version, order = 1, binary.LittleEndian
	case sniffNIfTI2BE:
		version, order = 2, binary.BigEndian
	case sniffNIfTI2LE:
		version, order = 2, binary.LittleEndian
	default:
		return 0, nil, fmt.Errorf("%w: header size field %#x", ErrNotNIfTI, binary.BigEndian.Uint32(b))
	}

	log.WithFields(log.Fields{
		"version":   version,
		"byteOrder": order,
	}).Debug("Sniffed header layout")

	return version, order, nil
}

// DetectVersion classifies a buffer purely by its magic token: offset 344
// for NIfTI-1 variants, offset 4 for NIfTI-2 variants. Buffers shorter
// than the NIfTI-1 header size, or with no matching token, yield
// VersionNone. This detector is independent of the streaming path.
func DetectVersion(b []byte) Version {
	if len(b) < HeaderSizeNIfTI1 {
		return VersionNone
	}
	switch string(b[magicOffsetNIfTI1 : magicOffsetNIfTI1+3]) {
	case MagicNIfTI1:
		return VersionNIfTI1
	case MagicNIfTI1Pair:
		return VersionNIfTI1Pair
	}
	switch string(b[magicOffsetNIfTI2 : magicOffsetNIfTI2+3]) {
	case MagicNIfTI2:
		return VersionNIfTI2
	case MagicNIfTI2Pair:
		return VersionNIfTI2Pair
	}
	return VersionNone
}
