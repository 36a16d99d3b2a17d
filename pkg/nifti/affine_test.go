package nifti

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const affineTol = 1e-9

// TestAffineScalingMethod verifies that with neither transform code set
// the result is a diagonal matrix of the voxel spacings
func TestAffineScalingMethod(t *testing.T) {
	h := &Header{}
	h.PixDim = [8]float64{0, 2, 3, 4, 0, 0, 0, 0}

	m := Affine(h)
	want := mat.NewDense(4, 4, []float64{
		2, 0, 0, 0,
		0, 3, 0, 0,
		0, 0, 4, 0,
		0, 0, 0, 1,
	})
	if !mat.EqualApprox(m, want, affineTol) {
		t.Errorf("Expected diagonal pixdim matrix, got:\n%v", mat.Formatted(m))
	}
}

// TestAffineExplicitMethod verifies that the stored direction rows are
// copied verbatim when the sform code wins the precedence
func TestAffineExplicitMethod(t *testing.T) {
	h := &Header{}
	h.SFormCode = XFormAlignedAnat
	h.QFormCode = XFormScannerAnat // lower than sform, must lose
	h.PixDim = [8]float64{0, 9, 9, 9, 0, 0, 0, 0}
	h.SRowX = [4]float64{2, 0, 0.1, -90}
	h.SRowY = [4]float64{0, 2, 0, 126}
	h.SRowZ = [4]float64{0, 0.1, 2.5, -72}

	m := Affine(h)
	rows := [][4]float64{h.SRowX, h.SRowY, h.SRowZ}
	for i, row := range rows {
		for j, v := range row {
			if m.At(i, j) != v {
				t.Errorf("Expected row %d col %d = %v, got %v", i, j, v, m.At(i, j))
			}
		}
	}
	for j := 0; j < 3; j++ {
		if m.At(3, j) != 0 {
			t.Errorf("Expected last row [0 0 0 1], got %v at col %d", m.At(3, j), j)
		}
	}
	if m.At(3, 3) != 1 {
		t.Errorf("Expected last row [0 0 0 1], got %v at col 3", m.At(3, 3))
	}
}

// TestAffineQuaternionMethod verifies the quaternion reconstruction: the
// rotation part must be a proper rotation before voxel-spacing scaling
func TestAffineQuaternionMethod(t *testing.T) {
	h := &Header{}
	h.QFormCode = XFormScannerAnat
	h.SFormCode = XFormUnknown
	// 90 degree rotation about z: a = d = sqrt(1/2), b = c = 0
	h.QuaternD = math.Sqrt(0.5)
	h.PixDim = [8]float64{1, 2, 3, 4, 0, 0, 0, 0}
	h.QOffsetX = 10
	h.QOffsetY = -20
	h.QOffsetZ = 30

	m := Affine(h)
	want := mat.NewDense(4, 4, []float64{
		0, -3, 0, 10,
		2, 0, 0, -20,
		0, 0, 4, 30,
		0, 0, 0, 1,
	})
	if !mat.EqualApprox(m, want, affineTol) {
		t.Errorf("Expected rotation-scaled matrix, got:\n%v", mat.Formatted(m))
	}

	// Unscale the columns and check RtR = I
	r := mat.NewDense(3, 3, nil)
	for j, s := range []float64{h.PixDim[1], h.PixDim[2], h.PixDim[3]} {
		for i := 0; i < 3; i++ {
			r.Set(i, j, m.At(i, j)/s)
		}
	}
	var rtr mat.Dense
	rtr.Mul(r.T(), r)
	if !mat.EqualApprox(&rtr, mat.NewDiagDense(3, []float64{1, 1, 1}), affineTol) {
		t.Errorf("Rotation part is not orthonormal:\n%v", mat.Formatted(&rtr))
	}
	if d := mat.Det(r); math.Abs(d-1) > affineTol {
		t.Errorf("Expected proper rotation with determinant 1, got %v", d)
	}
}

// TestAffineQfacFlip verifies that a negative pixdim[0] flips the third
// column and that a zero pixdim[0] reads as +1
func TestAffineQfacFlip(t *testing.T) {
	h := &Header{}
	h.QFormCode = XFormScannerAnat
	h.PixDim = [8]float64{-1, 1, 1, 2, 0, 0, 0, 0}

	m := Affine(h)
	if got := m.At(2, 2); got != -2 {
		t.Errorf("Expected third column flipped to -2, got %v", got)
	}

	h.PixDim[0] = 0
	m = Affine(h)
	if got := m.At(2, 2); got != 2 {
		t.Errorf("Expected qfac 0 treated as +1, got %v", got)
	}
}

// TestAffineDegenerateQuaternion verifies the zero floor under the square
// root: stored components whose squares sum past 1 must not produce NaN
func TestAffineDegenerateQuaternion(t *testing.T) {
	h := &Header{}
	h.QFormCode = XFormScannerAnat
	h.QuaternB = 0.8
	h.QuaternC = 0.8
	h.QuaternD = 0.8
	h.PixDim = [8]float64{1, 1, 1, 1, 0, 0, 0, 0}

	m := Affine(h)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.IsNaN(m.At(i, j)) {
				t.Fatalf("NaN at (%d,%d) for degenerate quaternion", i, j)
			}
		}
	}
}
