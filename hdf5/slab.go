package hdf5

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/internal/dtype"
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

// Slab selects a strided window along one dataset dimension: elements
// Start, Start+Stride, ... for Count elements.
type Slab struct {
	Start  uint64
	Count  uint64
	Stride uint64
}

// ReadSlab reads a strided hyperslab selection, one Slab per dimension, and
// decodes it as float64 values in row-major order of the selection.
func (d *Dataset) ReadSlab(slabs []Slab) ([]float64, error) {
	if d.file.closed {
		return nil, ErrClosed
	}

	dims := d.dataspace.Dimensions
	if len(slabs) != len(dims) {
		return nil, fmt.Errorf("selection rank %d does not match dataset rank %d", len(slabs), len(dims))
	}
	if len(dims) == 0 {
		raw, err := d.readScalar()
		if err != nil {
			return nil, err
		}
		return dtype.ToFloat64(d.datatype, raw, 1)
	}
	if err := validateSlabs(slabs, dims); err != nil {
		return nil, err
	}

	total := slabCount(slabs)
	if total == 0 {
		return []float64{}, nil
	}

	var raw []byte
	var err error
	switch d.layout.Class {
	case message.LayoutCompact:
		raw, err = gatherSlab(d.layout.CompactData, dims, slabs, uint64(d.elemSize()))
	case message.LayoutContiguous:
		raw, err = d.readContiguousSlab(slabs)
	case message.LayoutChunked:
		raw, err = d.readChunkedSlab(slabs)
	default:
		return nil, fmt.Errorf("layout class %d: %w", d.layout.Class, ErrUnsupported)
	}
	if err != nil {
		return nil, err
	}

	return dtype.ToFloat64(d.datatype, raw, total)
}

func validateSlabs(slabs []Slab, dims []uint64) error {
	for i, s := range slabs {
		if s.Stride == 0 {
			return fmt.Errorf("dimension %d: zero stride", i)
		}
		if s.Count == 0 {
			continue
		}
		last := s.Start + (s.Count-1)*s.Stride
		if last >= dims[i] {
			return fmt.Errorf("dimension %d: selection reaches %d, size is %d", i, last, dims[i])
		}
	}
	return nil
}

func slabCount(slabs []Slab) uint64 {
	total := uint64(1)
	for _, s := range slabs {
		total *= s.Count
	}
	return total
}

// rowMajorStrides returns per-dimension element strides for a row-major
// array of the given shape.
func rowMajorStrides(dims []uint64) []uint64 {
	strides := make([]uint64, len(dims))
	acc := uint64(1)
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= dims[i]
	}
	return strides
}

// gatherSlab extracts a selection from a fully resident row-major buffer.
func gatherSlab(src []byte, dims []uint64, slabs []Slab, es uint64) ([]byte, error) {
	strides := rowMajorStrides(dims)
	total := slabCount(slabs)
	out := make([]byte, total*es)

	idx := make([]uint64, len(slabs))
	for pos := uint64(0); pos < total; pos++ {
		var elem uint64
		for dim, k := range idx {
			elem += (slabs[dim].Start + k*slabs[dim].Stride) * strides[dim]
		}
		off := elem * es
		if off+es > uint64(len(src)) {
			return nil, fmt.Errorf("selection outside stored data at element %d", elem)
		}
		copy(out[pos*es:], src[off:off+es])
		advance(idx, slabs)
	}

	return out, nil
}

// advance steps a selection odometer, innermost dimension fastest.
func advance(idx []uint64, slabs []Slab) {
	for dim := len(idx) - 1; dim >= 0; dim-- {
		idx[dim]++
		if idx[dim] < slabs[dim].Count {
			return
		}
		idx[dim] = 0
	}
}

// readContiguousSlab reads a selection from contiguous storage. Each
// innermost run is fetched with a single read covering its span.
func (d *Dataset) readContiguousSlab(slabs []Slab) ([]byte, error) {
	dims := d.dataspace.Dimensions
	es := uint64(d.elemSize())
	strides := rowMajorStrides(dims)
	total := slabCount(slabs)
	out := make([]byte, total*es)

	inner := len(slabs) - 1
	is := slabs[inner]
	runs := total / is.Count

	span := ((is.Count-1)*is.Stride + 1) * es
	var buf []byte
	if is.Stride > 1 {
		buf = make([]byte, span)
	}

	idx := make([]uint64, inner)
	outPos := uint64(0)
	for run := uint64(0); run < runs; run++ {
		base := is.Start * strides[inner]
		for dim, k := range idx {
			base += (slabs[dim].Start + k*slabs[dim].Stride) * strides[dim]
		}
		off := int64(d.layout.Address + base*es)

		if is.Stride == 1 {
			if err := d.file.reader.ReadAt(out[outPos:outPos+is.Count*es], off); err != nil {
				return nil, err
			}
		} else {
			if err := d.file.reader.ReadAt(buf, off); err != nil {
				return nil, err
			}
			for k := uint64(0); k < is.Count; k++ {
				copy(out[outPos+k*es:], buf[k*is.Stride*es:k*is.Stride*es+es])
			}
		}

		outPos += is.Count * es
		advance(idx, slabs[:inner])
	}

	return out, nil
}

// readChunkedSlab assembles a selection from chunked storage. Chunks that
// do not intersect the selection are never decoded; regions with no stored
// chunk read back as zero, the default fill value.
func (d *Dataset) readChunkedSlab(slabs []Slab) ([]byte, error) {
	dims := d.dataspace.Dimensions
	es := uint64(d.elemSize())
	rank := len(dims)

	if len(d.layout.ChunkDims) < rank {
		return nil, fmt.Errorf("chunk dimensionality %d below dataset rank %d", len(d.layout.ChunkDims), rank)
	}
	chunkDims := make([]uint64, rank)
	for i := 0; i < rank; i++ {
		chunkDims[i] = uint64(d.layout.ChunkDims[i])
	}

	total := slabCount(slabs)
	out := make([]byte, total*es)
	outStrides := make([]uint64, rank)
	acc := uint64(1)
	for i := rank - 1; i >= 0; i-- {
		outStrides[i] = acc
		acc *= slabs[i].Count
	}
	chunkStrides := rowMajorStrides(chunkDims)

	chunks, err := d.loadChunks()
	if err != nil {
		return nil, err
	}

	kmin := make([]uint64, rank)
	kmax := make([]uint64, rank)

	for _, c := range chunks {
		if !chunkIntersection(c.Offset, chunkDims, dims, slabs, kmin, kmax) {
			continue
		}

		raw := make([]byte, c.Size)
		if err := d.file.reader.ReadAt(raw, int64(c.Address)); err != nil {
			return nil, fmt.Errorf("reading chunk at %#x: %w", c.Address, err)
		}
		if !d.pipeline.Empty() {
			if raw, err = d.pipeline.Decode(raw, c.FilterMask); err != nil {
				return nil, fmt.Errorf("decoding chunk at %#x: %w", c.Address, err)
			}
		}

		k := make([]uint64, rank)
		copy(k, kmin)
		for {
			var chunkElem, outElem uint64
			for dim := 0; dim < rank; dim++ {
				global := slabs[dim].Start + k[dim]*slabs[dim].Stride
				chunkElem += (global - c.Offset[dim]) * chunkStrides[dim]
				outElem += k[dim] * outStrides[dim]
			}
			srcOff := chunkElem * es
			if srcOff+es > uint64(len(raw)) {
				return nil, fmt.Errorf("chunk at %#x too short: %d bytes", c.Address, len(raw))
			}
			copy(out[outElem*es:], raw[srcOff:srcOff+es])

			dim := rank - 1
			for ; dim >= 0; dim-- {
				k[dim]++
				if k[dim] <= kmax[dim] {
					break
				}
				k[dim] = kmin[dim]
			}
			if dim < 0 {
				break
			}
		}
	}

	return out, nil
}

// chunkIntersection computes, per dimension, the range of selection indices
// falling inside the chunk. It reports false when the chunk misses the
// selection entirely.
func chunkIntersection(chunkOff, chunkDims, dims []uint64, slabs []Slab, kmin, kmax []uint64) bool {
	for dim := range slabs {
		s := slabs[dim]

		var lo uint64
		if chunkOff[dim] > s.Start {
			lo = (chunkOff[dim] - s.Start + s.Stride - 1) / s.Stride
		}

		limit := chunkOff[dim] + chunkDims[dim]
		if limit > dims[dim] {
			limit = dims[dim]
		}
		if limit == 0 || s.Start >= limit {
			return false
		}
		hi := (limit - 1 - s.Start) / s.Stride
		if hi > s.Count-1 {
			hi = s.Count - 1
		}
		if lo > hi {
			return false
		}

		kmin[dim] = lo
		kmax[dim] = hi
	}
	return true
}
