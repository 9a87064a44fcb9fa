package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/Dartrisen/smilei-diagnostics/internal/binary"
)

// Attribute is an attribute message (type 0x000C): a named small value
// attached to a dataset or group, with its own datatype and dataspace.
type Attribute struct {
	Version   uint8
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

func parseAttribute(data []byte, r *binpkg.Reader) (*Attribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("attribute message too short")
	}

	attr := &Attribute{Version: data[0]}
	switch attr.Version {
	case 1, 2, 3:
	default:
		return nil, fmt.Errorf("unsupported attribute version: %d", attr.Version)
	}

	nameSize := int(binary.LittleEndian.Uint16(data[2:4]))
	datatypeSize := int(binary.LittleEndian.Uint16(data[4:6]))
	dataspaceSize := int(binary.LittleEndian.Uint16(data[6:8]))

	offset := 8
	if attr.Version == 3 {
		offset = 9 // extra name-encoding byte
	}

	// Name is null-terminated within its size field. Version 1 pads the
	// name, datatype and dataspace regions to 8-byte boundaries; versions
	// 2 and 3 pack them.
	pad := func(n int) int {
		if attr.Version == 1 && n%8 != 0 {
			return n + 8 - n%8
		}
		return n
	}

	if offset+nameSize > len(data) {
		return nil, fmt.Errorf("attribute name truncated")
	}
	nameEnd := offset
	for nameEnd < offset+nameSize && data[nameEnd] != 0 {
		nameEnd++
	}
	attr.Name = string(data[offset:nameEnd])
	offset += pad(nameSize)

	if offset+datatypeSize > len(data) {
		return nil, fmt.Errorf("attribute %q datatype truncated", attr.Name)
	}
	dt, err := parseDatatype(data[offset : offset+datatypeSize])
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
	}
	attr.Datatype = dt
	offset += pad(datatypeSize)

	if offset+dataspaceSize > len(data) {
		return nil, fmt.Errorf("attribute %q dataspace truncated", attr.Name)
	}
	ds, err := parseDataspace(data[offset:offset+dataspaceSize], r)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
	}
	attr.Dataspace = ds
	offset += pad(dataspaceSize)

	if offset < len(data) {
		attr.Data = append([]byte(nil), data[offset:]...)
	}

	return attr, nil
}
