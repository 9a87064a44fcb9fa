// Package dtype converts raw dataset bytes into Go numeric values. Only the
// fixed-point and floating-point classes are handled, which is what field
// snapshots and their grid attributes contain.
package dtype

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

// ToFloat64 decodes numElements values of the given numeric datatype from
// data into a freshly allocated []float64.
func ToFloat64(dt *message.Datatype, data []byte, numElements uint64) ([]float64, error) {
	if dt == nil {
		return nil, fmt.Errorf("nil datatype")
	}
	if !dt.IsNumeric() {
		return nil, fmt.Errorf("unsupported datatype class %d", dt.Class)
	}

	size := int(dt.Size)
	if size == 0 {
		return nil, fmt.Errorf("datatype has zero size")
	}
	if uint64(len(data)) < numElements*uint64(size) {
		return nil, fmt.Errorf("short data: have %d bytes, need %d", len(data), numElements*uint64(size))
	}

	order := byteOrder(dt)
	out := make([]float64, numElements)

	switch {
	case dt.IsFloat():
		if err := decodeFloats(out, data, size, order); err != nil {
			return nil, err
		}
	case dt.Signed:
		decodeSigned(out, data, size, order)
	default:
		decodeUnsigned(out, data, size, order)
	}

	return out, nil
}

func byteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func decodeFloats(out []float64, data []byte, size int, order binary.ByteOrder) error {
	switch size {
	case 4:
		for i := range out {
			bits := order.Uint32(data[i*4:])
			out[i] = float64(math.Float32frombits(bits))
		}
	case 8:
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(data[i*8:]))
		}
	default:
		return fmt.Errorf("unsupported float size %d", size)
	}
	return nil
}

func decodeSigned(out []float64, data []byte, size int, order binary.ByteOrder) {
	for i := range out {
		raw := readUint(data[i*size:], size, order)
		// Sign-extend from the value's own width.
		shift := uint(64 - size*8)
		out[i] = float64(int64(raw<<shift) >> shift)
	}
}

func decodeUnsigned(out []float64, data []byte, size int, order binary.ByteOrder) {
	for i := range out {
		out[i] = float64(readUint(data[i*size:], size, order))
	}
}

func readUint(b []byte, size int, order binary.ByteOrder) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	default:
		return order.Uint64(b)
	}
}
