package message

import (
	"encoding/binary"
	"fmt"
)

// Filter IDs registered by the HDF5 library.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// FilterInfo describes one filter in a pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
}

// IsOptional reports whether the filter may be skipped when unavailable.
func (f *FilterInfo) IsOptional() bool { return f.Flags&0x01 != 0 }

// FilterPipeline is a filter pipeline message (type 0x000B). Filters were
// applied in order at write time and are undone in reverse on read.
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func parseFilterPipeline(data []byte) (*FilterPipeline, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("filter pipeline message too short")
	}

	fp := &FilterPipeline{
		Version: data[0],
		Filters: make([]FilterInfo, data[1]),
	}

	offset := 2
	if fp.Version == 1 {
		offset = 8 // six reserved bytes
	}

	for i := range fp.Filters {
		info, consumed, err := parseFilterInfo(data[offset:], fp.Version)
		if err != nil {
			return nil, fmt.Errorf("parsing filter %d: %w", i, err)
		}
		fp.Filters[i] = info
		offset += consumed
	}

	return fp, nil
}

func parseFilterInfo(data []byte, version uint8) (FilterInfo, int, error) {
	var f FilterInfo
	if len(data) < 6 {
		return f, 0, fmt.Errorf("filter info too short")
	}

	f.ID = binary.LittleEndian.Uint16(data)
	offset := 2

	// The name length field is present in v1 always, in v2 only for
	// dynamically registered filters.
	var nameLen int
	if version == 1 || f.ID >= 256 {
		nameLen = int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
	}

	f.Flags = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	numClientData := int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2

	if nameLen > 0 {
		if offset+nameLen > len(data) {
			return f, 0, fmt.Errorf("filter name truncated")
		}
		nameEnd := offset
		for nameEnd < offset+nameLen && data[nameEnd] != 0 {
			nameEnd++
		}
		f.Name = string(data[offset:nameEnd])
		offset += nameLen
		if version == 1 && nameLen%8 != 0 {
			offset += 8 - nameLen%8
		}
	}

	f.ClientData = make([]uint32, numClientData)
	for j := 0; j < numClientData && offset+4 <= len(data); j++ {
		f.ClientData[j] = binary.LittleEndian.Uint32(data[offset:])
		offset += 4
	}
	if version == 1 && numClientData%2 != 0 {
		offset += 4 // padding word
	}

	return f, offset, nil
}
