// Package filter decodes the chunk filters a dataset's pipeline message
// declares. Filters are undone in reverse pipeline order while reading.
package filter

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

// Filter undoes one encoding stage of a chunk pipeline.
type Filter interface {
	ID() uint16
	Decode(input []byte) ([]byte, error)
}

var constructors = map[uint16]func([]uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return newDeflate() },
	message.FilterShuffle:    func(cd []uint32) Filter { return newShuffle(cd) },
	message.FilterFletcher32: func(cd []uint32) Filter { return newFletcher32() },
}

var filterNames = map[uint16]string{
	message.FilterDeflate:     "deflate",
	message.FilterShuffle:     "shuffle",
	message.FilterFletcher32:  "fletcher32",
	message.FilterSZIP:        "szip",
	message.FilterNBit:        "n-bit",
	message.FilterScaleOffset: "scale-offset",
}

// New builds a filter from its pipeline entry. Unknown optional filters
// return (nil, nil) and are dropped from the pipeline.
func New(info message.FilterInfo) (Filter, error) {
	ctor, ok := constructors[info.ID]
	if !ok {
		if info.IsOptional() {
			return nil, nil
		}
		if name, known := filterNames[info.ID]; known {
			return nil, fmt.Errorf("unsupported %s filter (ID %d)", name, info.ID)
		}
		return nil, fmt.Errorf("unsupported filter ID %d", info.ID)
	}
	return ctor(info.ClientData), nil
}
