package filter

import (
	"encoding/binary"
	"fmt"

	ibinary "github.com/Dartrisen/smilei-diagnostics/internal/binary"
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

// fletcher32 verifies and strips the trailing chunk checksum (HDF5 filter 3).
type fletcher32 struct{}

func newFletcher32() *fletcher32 { return &fletcher32{} }

func (f *fletcher32) ID() uint16 { return message.FilterFletcher32 }

func (f *fletcher32) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("fletcher32 chunk too short: %d bytes", len(input))
	}

	payload := input[:len(input)-4]
	stored := binary.LittleEndian.Uint32(input[len(input)-4:])
	computed := ibinary.Fletcher32(payload)
	if stored != computed {
		return nil, fmt.Errorf("fletcher32 mismatch: stored %#08x, computed %#08x", stored, computed)
	}
	return payload, nil
}
