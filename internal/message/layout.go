package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/Dartrisen/smilei-diagnostics/internal/binary"
)

// LayoutClass is the dataset storage layout class.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0 // data embedded in the object header
	LayoutContiguous LayoutClass = 1 // single contiguous block
	LayoutChunked    LayoutClass = 2 // B-tree indexed chunks
)

// DataLayout is a data layout message (type 0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Compact
	CompactData []byte

	// Contiguous
	Address uint64
	Size    uint64

	// Chunked. ChunkDims includes the trailing element-size dimension the
	// format appends; callers trim it against the dataspace rank.
	ChunkDims      []uint32
	ChunkIndexAddr uint64
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// IsChunked reports whether data is stored as indexed chunks.
func (m *DataLayout) IsChunked() bool { return m.Class == LayoutChunked }

func parseDataLayout(data []byte, r *binpkg.Reader) (*DataLayout, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("data layout message too short")
	}

	layout := &DataLayout{Version: data[0]}
	switch layout.Version {
	case 1, 2:
		return parseDataLayoutV1V2(data, r, layout)
	case 3:
		return parseDataLayoutV3(data, r, layout)
	default:
		return nil, fmt.Errorf("unsupported data layout version: %d", layout.Version)
	}
}

func parseDataLayoutV1V2(data []byte, r *binpkg.Reader, layout *DataLayout) (*DataLayout, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("data layout v%d message too short", layout.Version)
	}

	ndims := int(data[1])
	layout.Class = LayoutClass(data[2])
	offset := 4

	switch layout.Class {
	case LayoutCompact:
		if offset+4 > len(data) {
			return nil, fmt.Errorf("compact layout truncated")
		}
		size := int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
		if offset+size > len(data) {
			return nil, fmt.Errorf("compact data truncated")
		}
		layout.CompactData = append([]byte(nil), data[offset:offset+size]...)

	case LayoutContiguous:
		osize, lsize := r.OffsetSize(), r.LengthSize()
		if offset+osize+lsize > len(data) {
			return nil, fmt.Errorf("contiguous layout truncated")
		}
		layout.Address = binpkg.DecodeUint(data[offset:], osize, r.ByteOrder())
		layout.Size = binpkg.DecodeUint(data[offset+osize:], lsize, r.ByteOrder())

	case LayoutChunked:
		osize := r.OffsetSize()
		if offset+osize > len(data) {
			return nil, fmt.Errorf("chunked layout truncated")
		}
		layout.ChunkIndexAddr = binpkg.DecodeUint(data[offset:], osize, r.ByteOrder())
		offset += osize
		layout.ChunkDims = make([]uint32, ndims)
		for i := 0; i < ndims && offset+4 <= len(data); i++ {
			layout.ChunkDims[i] = binary.LittleEndian.Uint32(data[offset:])
			offset += 4
		}

	default:
		return nil, fmt.Errorf("unsupported layout class: %d", layout.Class)
	}

	return layout, nil
}

func parseDataLayoutV3(data []byte, r *binpkg.Reader, layout *DataLayout) (*DataLayout, error) {
	layout.Class = LayoutClass(data[1])
	offset := 2

	switch layout.Class {
	case LayoutCompact:
		if offset+2 > len(data) {
			return nil, fmt.Errorf("compact layout truncated")
		}
		size := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if offset+size > len(data) {
			return nil, fmt.Errorf("compact data truncated")
		}
		layout.CompactData = append([]byte(nil), data[offset:offset+size]...)

	case LayoutContiguous:
		osize, lsize := r.OffsetSize(), r.LengthSize()
		if offset+osize+lsize > len(data) {
			return nil, fmt.Errorf("contiguous layout truncated")
		}
		layout.Address = binpkg.DecodeUint(data[offset:], osize, r.ByteOrder())
		layout.Size = binpkg.DecodeUint(data[offset+osize:], lsize, r.ByteOrder())

	case LayoutChunked:
		osize := r.OffsetSize()
		if offset+1+osize > len(data) {
			return nil, fmt.Errorf("chunked layout truncated")
		}
		ndims := int(data[offset])
		offset++
		layout.ChunkIndexAddr = binpkg.DecodeUint(data[offset:], osize, r.ByteOrder())
		offset += osize
		layout.ChunkDims = make([]uint32, ndims)
		for i := 0; i < ndims && offset+4 <= len(data); i++ {
			layout.ChunkDims[i] = binary.LittleEndian.Uint32(data[offset:])
			offset += 4
		}

	default:
		return nil, fmt.Errorf("unsupported layout class: %d", layout.Class)
	}

	return layout, nil
}
