package models

import "niftistream/pkg/nifti"

// SliceChunk represents one delivered image chunk with its position metadata
type SliceChunk struct {
	// Data is the raw chunk bytes, owned by the receiver
	Data []byte

	// Indices is the multi-dimensional position of the chunk; all slots
	// are zero except the one carrying the running counter
	Indices []int64

	// Number is the zero-based delivery order of the chunk
	Number int64
}

// Geometry summarizes the grid layout of a parsed volume
type Geometry struct {
	// Rank is the number of meaningful dimensions (Dim[0])
	Rank int64

	// Dims are the dimension sizes Dim[1..Rank]
	Dims []int64

	// Spacings are the voxel spacings PixDim[1..Rank]
	Spacings []float64

	// SpaceUnits and TimeUnits are the unpacked NIFTI_UNITS_* codes
	SpaceUnits int64
	TimeUnits  int64

	// BytesPerVoxel is derived from the header's bitpix field
	BytesPerVoxel int64
}

// GeometryFromHeader extracts the grid summary from a parsed header.
// Ranks outside [1,7] yield an empty geometry since the dims array holds
// no meaningful sizes.
func GeometryFromHeader(h *nifti.Header) Geometry {
	g := Geometry{
		Rank:          h.Dim[0],
		SpaceUnits:    int64(h.SpaceUnits()),
		TimeUnits:     int64(h.TimeUnits()),
		BytesPerVoxel: h.BytesPerVoxel(),
	}
	if g.Rank < 1 || g.Rank > 7 {
		g.Rank = 0
		return g
	}
	g.Dims = make([]int64, g.Rank)
	g.Spacings = make([]float64, g.Rank)
	for i := int64(0); i < g.Rank; i++ {
		g.Dims[i] = h.Dim[1+i]
		g.Spacings[i] = h.PixDim[1+i]
	}
	return g
}

// VoxelCount is the total number of voxels in the grid
func (g Geometry) VoxelCount() int64 {
	if g.Rank == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range g.Dims {
		if d > 0 {
			n *= d
		}
	}
	return n
}
