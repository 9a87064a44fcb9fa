package message

import (
	"encoding/binary"
	"fmt"
)

// DatatypeClass is the class of an HDF5 datatype.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

// ByteOrder of a numeric datatype's on-disk representation.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// Datatype is a datatype message (type 0x0003). Field diagnostic files only
// contain fixed-point and floating-point data; other classes are parsed just
// far enough to be recognized and rejected with a useful error.
type Datatype struct {
	Class     DatatypeClass
	ClassBits uint32
	Size      uint32

	ByteOrder ByteOrder
	Signed    bool // fixed-point only

	// Raw class-specific property bytes.
	Properties []byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsInteger reports whether this is a fixed-point type.
func (m *Datatype) IsInteger() bool { return m.Class == ClassFixedPoint }

// IsFloat reports whether this is a floating-point type.
func (m *Datatype) IsFloat() bool { return m.Class == ClassFloatPoint }

// IsNumeric reports whether the type is readable by the numeric converter.
func (m *Datatype) IsNumeric() bool { return m.IsInteger() || m.IsFloat() }

func parseDatatype(data []byte) (*Datatype, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("datatype message too short")
	}

	dt := &Datatype{
		Class:      DatatypeClass(data[0] & 0x0F),
		ClassBits:  uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16,
		Size:       binary.LittleEndian.Uint32(data[4:8]),
		Properties: data[8:],
	}

	switch dt.Class {
	case ClassFixedPoint:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		dt.Signed = dt.ClassBits&0x08 != 0
	case ClassFloatPoint:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
	}

	return dt, nil
}
