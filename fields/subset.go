package fields

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/hdf5"
)

// Range selects the half-open index window [Start, Stop) with the given
// stride along one dimension. Stride must be at least 1.
type Range struct {
	Start  int64
	Stop   int64
	Stride int64
}

// Subset narrows a read. Ranges maps dimension index to a window; missing
// dimensions read their full extent with stride 1. Theta, when set, switches
// mode-decomposed fields to angular reconstruction at that angle.
type Subset struct {
	Ranges map[int]Range
	Theta  *float64
}

// Grid is a read result: row-major data with its selection shape. The
// buffer is owned by the caller and never aliases reader state.
type Grid struct {
	Data  []float64
	Shape []int64
}

func (s *Subset) ranges() map[int]Range {
	if s == nil {
		return nil
	}
	return s.Ranges
}

func (s *Subset) theta() *float64 {
	if s == nil {
		return nil
	}
	return s.Theta
}

// resolveSelection turns per-dimension ranges into a slab selection over a
// dataset of the given shape. Stops are clamped to the extent.
func resolveSelection(shape []uint64, ranges map[int]Range) ([]hdf5.Slab, error) {
	slabs := make([]hdf5.Slab, len(shape))
	for dim, extent := range shape {
		r, ok := ranges[dim]
		if !ok {
			slabs[dim] = hdf5.Slab{Start: 0, Count: extent, Stride: 1}
			continue
		}

		if r.Stride < 1 {
			return nil, fmt.Errorf("dimension %d: stride %d is below 1", dim, r.Stride)
		}
		if r.Start < 0 {
			return nil, fmt.Errorf("dimension %d: negative start %d", dim, r.Start)
		}

		stop := r.Stop
		if stop > int64(extent) {
			stop = int64(extent)
		}

		var count uint64
		if stop > r.Start {
			count = uint64((stop - r.Start + r.Stride - 1) / r.Stride)
		}

		slabs[dim] = hdf5.Slab{
			Start:  uint64(r.Start),
			Count:  count,
			Stride: uint64(r.Stride),
		}
	}
	return slabs, nil
}

// interleave doubles the selection on the interleaved dimension so it lands
// on the real (offset 0) or imaginary (offset 1) samples of a mode dataset:
// window [a, b) with stride s reads on-disk indices {2a+off, 2a+off+2s, ...}
// with the original element count.
func interleave(sel []hdf5.Slab, dim int, offset uint64) []hdf5.Slab {
	out := make([]hdf5.Slab, len(sel))
	copy(out, sel)
	out[dim].Start = 2*sel[dim].Start + offset
	out[dim].Stride = 2 * sel[dim].Stride
	return out
}

func selectionShape(sel []hdf5.Slab) []int64 {
	shape := make([]int64, len(sel))
	for i, s := range sel {
		shape[i] = int64(s.Count)
	}
	return shape
}

func selectionCount(sel []hdf5.Slab) int {
	n := 1
	for _, s := range sel {
		n *= int(s.Count)
	}
	return n
}
