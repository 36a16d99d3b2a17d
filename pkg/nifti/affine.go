package nifti

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Affine derives the 4x4 voxel-to-world transform from the header, using
// the first applicable method:
//
//  1. qform: QFormCode >= 1 and SFormCode < QFormCode. The rotation is
//     rebuilt from the stored quaternion and scaled by the voxel spacings.
//  2. sform: SFormCode >= 1. The three stored direction rows are used
//     verbatim.
//  3. Neither code set: a diagonal scaling matrix from PixDim[1..3].
//
// The last row is always [0 0 0 1].
func Affine(h *Header) *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	m.Set(3, 3, 1)

	switch {
	case h.QFormCode >= 1 && h.SFormCode < h.QFormCode:
		setQuaternionRows(m, h)
	case h.SFormCode >= 1:
		for j, v := range h.SRowX {
			m.Set(0, j, v)
		}
		for j, v := range h.SRowY {
			m.Set(1, j, v)
		}
		for j, v := range h.SRowZ {
			m.Set(2, j, v)
		}
	default:
		for i := 0; i < 3; i++ {
			m.Set(i, i, h.PixDim[1+i])
		}
	}
	return m
}

// setQuaternionRows fills the first three rows from the stored quaternion
// (b,c,d), voxel spacings and offsets. The real component is recovered as
// a = sqrt(max(0, 1-b^2-c^2-d^2)); the floor keeps rounding noise in
// stored components from producing a NaN.
func setQuaternionRows(m *mat.Dense, h *Header) {
	b, c, d := h.QuaternB, h.QuaternC, h.QuaternD
	a := math.Sqrt(math.Max(0, 1-b*b-c*c-d*d))

	// qfac lives in PixDim[0]; zero means unset and reads as +1.
	qfac := h.PixDim[0]
	if qfac == 0 {
		qfac = 1
	}
	sx, sy, sz := h.PixDim[1], h.PixDim[2], h.PixDim[3]*qfac

	m.Set(0, 0, (a*a+b*b-c*c-d*d)*sx)
	m.Set(0, 1, (2*b*c-2*a*d)*sy)
	m.Set(0, 2, (2*b*d+2*a*c)*sz)
	m.Set(1, 0, (2*b*c+2*a*d)*sx)
	m.Set(1, 1, (a*a+c*c-b*b-d*d)*sy)
	m.Set(1, 2, (2*c*d-2*a*b)*sz)
	m.Set(2, 0, (2*b*d-2*a*c)*sx)
	m.Set(2, 1, (2*c*d+2*a*b)*sy)
	m.Set(2, 2, (a*a+d*d-b*b-c*c)*sz)

	m.Set(0, 3, h.QOffsetX)
	m.Set(1, 3, h.QOffsetY)
	m.Set(2, 3, h.QOffsetZ)
}
