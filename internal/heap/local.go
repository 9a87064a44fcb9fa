// Package heap reads HDF5 local heaps, which store the link names of
// old-style groups.
package heap

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/internal/binary"
)

// Local is a fully loaded local heap.
type Local struct {
	data []byte
}

// ReadLocal loads the local heap at the given address.
func ReadLocal(r *binary.Reader, address uint64) (*Local, error) {
	nr := r.At(int64(address))

	sig, err := nr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading local heap signature: %w", err)
	}
	if string(sig) != "HEAP" {
		return nil, fmt.Errorf("invalid local heap signature %q", sig)
	}

	version, err := nr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, fmt.Errorf("unsupported local heap version: %d", version)
	}
	nr.Skip(3)

	dataSize, err := nr.ReadLength()
	if err != nil {
		return nil, err
	}
	if _, err := nr.ReadLength(); err != nil { // free list head
		return nil, err
	}
	dataAddr, err := nr.ReadOffset()
	if err != nil {
		return nil, err
	}

	data, err := r.At(int64(dataAddr)).ReadBytes(int(dataSize))
	if err != nil {
		return nil, fmt.Errorf("reading local heap data segment: %w", err)
	}

	return &Local{data: data}, nil
}

// GetString returns the NUL-terminated string at the given heap offset, or
// the empty string when the offset is out of range.
func (h *Local) GetString(offset uint64) string {
	if h == nil || offset >= uint64(len(h.data)) {
		return ""
	}
	end := offset
	for end < uint64(len(h.data)) && h.data[end] != 0 {
		end++
	}
	return string(h.data[offset:end])
}
