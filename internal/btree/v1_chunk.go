package btree

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/internal/binary"
)

// Chunk describes one stored chunk of a chunked dataset.
type Chunk struct {
	// Offset of the chunk within the dataset, in elements, one per dimension.
	Offset []uint64
	// Address and size of the (possibly filtered) chunk data in the file.
	Address uint64
	Size    uint32
	// FilterMask has a bit set for each pipeline filter skipped for this chunk.
	FilterMask uint32
}

// ReadChunks walks a v1 chunk B-tree and returns every allocated chunk.
// ndims is the dataset dimensionality, without the trailing element-size
// dimension the keys carry.
func ReadChunks(r *binary.Reader, btreeAddr uint64, ndims int) ([]Chunk, error) {
	if btreeAddr == binary.UndefinedOffset {
		return nil, nil
	}
	return readChunkNode(r, btreeAddr, ndims)
}

func readChunkNode(r *binary.Reader, address uint64, ndims int) ([]Chunk, error) {
	nr := r.At(int64(address))

	level, entriesUsed, err := readNodeHeader(nr, 1)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for i := uint16(0); i < entriesUsed; i++ {
		key, err := readChunkKey(nr, ndims)
		if err != nil {
			return nil, fmt.Errorf("reading chunk key %d: %w", i, err)
		}
		childAddr, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}

		if level == 0 {
			if childAddr == binary.UndefinedOffset {
				continue
			}
			key.Address = childAddr
			chunks = append(chunks, key)
			continue
		}

		childChunks, err := readChunkNode(r, childAddr, ndims)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, childChunks...)
	}

	return chunks, nil
}

// readChunkKey parses one chunk key: size, filter mask, then ndims+1 offsets
// where the last offset is always zero.
func readChunkKey(nr *binary.Reader, ndims int) (Chunk, error) {
	var c Chunk

	size, err := nr.ReadUint32()
	if err != nil {
		return c, err
	}
	mask, err := nr.ReadUint32()
	if err != nil {
		return c, err
	}

	offsets := make([]uint64, ndims)
	for d := 0; d < ndims; d++ {
		if offsets[d], err = nr.ReadUint64(); err != nil {
			return c, err
		}
	}
	if _, err = nr.ReadUint64(); err != nil { // element-size dimension
		return c, err
	}

	c.Size = size
	c.FilterMask = mask
	c.Offset = offsets
	return c, nil
}
