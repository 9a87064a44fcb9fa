package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/Dartrisen/smilei-diagnostics/internal/binary"
)

// LinkType distinguishes hard and soft links. External links are not
// supported; field diagnostic files are self-contained.
type LinkType uint8

const (
	LinkTypeHard LinkType = 0
	LinkTypeSoft LinkType = 1
)

// Link is a link message (type 0x0006), used by groups with the
// "new style" (version 2) layout to name their children.
type Link struct {
	Version  uint8
	LinkType LinkType
	Name     string

	ObjectAddress uint64 // hard links
	SoftTarget    string // soft links
}

func (m *Link) Type() Type { return TypeLink }

// IsHard reports whether the link carries an object header address.
func (m *Link) IsHard() bool { return m.LinkType == LinkTypeHard }

func parseLink(data []byte, r *binpkg.Reader) (*Link, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("link message too short")
	}

	link := &Link{Version: data[0]}
	flags := data[1]
	offset := 2

	nameLenSize := 1 << (flags & 0x03)

	if flags&0x08 != 0 { // explicit link type
		if offset >= len(data) {
			return nil, fmt.Errorf("link type truncated")
		}
		link.LinkType = LinkType(data[offset])
		offset++
	}
	if flags&0x04 != 0 { // creation order, unused
		offset += 8
	}
	if flags&0x10 != 0 { // charset, unused
		offset++
	}

	if offset+nameLenSize > len(data) {
		return nil, fmt.Errorf("link name length truncated")
	}
	nameLen := int(binpkg.DecodeUint(data[offset:], nameLenSize, binary.LittleEndian))
	offset += nameLenSize

	if offset+nameLen > len(data) {
		return nil, fmt.Errorf("link name truncated")
	}
	link.Name = string(data[offset : offset+nameLen])
	offset += nameLen

	switch link.LinkType {
	case LinkTypeHard:
		osize := r.OffsetSize()
		if offset+osize > len(data) {
			return nil, fmt.Errorf("hard link %q address truncated", link.Name)
		}
		link.ObjectAddress = binpkg.DecodeUint(data[offset:], osize, r.ByteOrder())

	case LinkTypeSoft:
		if offset+2 > len(data) {
			return nil, fmt.Errorf("soft link %q length truncated", link.Name)
		}
		targetLen := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if offset+targetLen > len(data) {
			return nil, fmt.Errorf("soft link %q target truncated", link.Name)
		}
		link.SoftTarget = string(data[offset : offset+targetLen])

	default:
		return nil, fmt.Errorf("unsupported link type %d for %q", link.LinkType, link.Name)
	}

	return link, nil
}
