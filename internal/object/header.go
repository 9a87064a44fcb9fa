// Package object parses HDF5 object headers, the per-object message lists
// that describe groups and datasets.
package object

import (
	"errors"
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/internal/binary"
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
)

// Header is a parsed object header (version 1 or 2).
type Header struct {
	Version  uint8
	Address  uint64
	Flags    uint8
	Messages []message.Message
}

// Read parses the object header at the given file address. The version is
// detected from the leading bytes: version 2 headers start with "OHDR",
// version 1 headers with a bare version byte.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))

	peek, err := hr.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}

	if string(peek) == "OHDR" {
		return readV2(hr, address)
	}
	if peek[0] == 1 {
		return readV1(hr, address)
	}
	return nil, fmt.Errorf("%w: unknown format at address %d", ErrInvalidHeader, address)
}

// GetMessage returns the first message of the given type, or nil.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// GetMessages returns all messages of the given type.
func (h *Header) GetMessages(typ message.Type) []message.Message {
	var out []message.Message
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			out = append(out, msg)
		}
	}
	return out
}

// Dataspace returns the dataspace message, or nil. An object with a
// dataspace is a dataset; one without is a group.
func (h *Header) Dataspace() *message.Dataspace {
	if msg := h.GetMessage(message.TypeDataspace); msg != nil {
		return msg.(*message.Dataspace)
	}
	return nil
}

// Datatype returns the datatype message, or nil.
func (h *Header) Datatype() *message.Datatype {
	if msg := h.GetMessage(message.TypeDatatype); msg != nil {
		return msg.(*message.Datatype)
	}
	return nil
}

// DataLayout returns the data layout message, or nil.
func (h *Header) DataLayout() *message.DataLayout {
	if msg := h.GetMessage(message.TypeDataLayout); msg != nil {
		return msg.(*message.DataLayout)
	}
	return nil
}

// FilterPipeline returns the filter pipeline message, or nil.
func (h *Header) FilterPipeline() *message.FilterPipeline {
	if msg := h.GetMessage(message.TypeFilterPipeline); msg != nil {
		return msg.(*message.FilterPipeline)
	}
	return nil
}
