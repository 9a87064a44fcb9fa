package filter

import (
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

// shuffle undoes the byte transpose filter (HDF5 filter 2). Encoded data
// groups byte 0 of every element, then byte 1, and so on.
type shuffle struct {
	elemSize int
}

func newShuffle(clientData []uint32) *shuffle {
	elemSize := 1
	if len(clientData) > 0 && clientData[0] > 0 {
		elemSize = int(clientData[0])
	}
	return &shuffle{elemSize: elemSize}
}

func (f *shuffle) ID() uint16 { return message.FilterShuffle }

func (f *shuffle) Decode(input []byte) ([]byte, error) {
	if f.elemSize <= 1 {
		return input, nil
	}

	numElems := len(input) / f.elemSize
	if numElems == 0 {
		return input, nil
	}

	output := make([]byte, len(input))
	for j := 0; j < f.elemSize; j++ {
		for i := 0; i < numElems; i++ {
			output[i*f.elemSize+j] = input[j*numElems+i]
		}
	}
	// Trailing bytes beyond a whole number of elements pass through as-is.
	copy(output[numElems*f.elemSize:], input[numElems*f.elemSize:])
	return output, nil
}
