package message

import (
	"fmt"

	binpkg "github.com/Dartrisen/smilei-diagnostics/internal/binary"
)

// SymbolTable is a symbol table message (type 0x0011). Version 1 ("old
// style") groups store their members in a B-tree whose names live in a
// local heap; this message carries the addresses of both. Smilei writes
// its timestep groups this way.
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, r *binpkg.Reader) (*SymbolTable, error) {
	osize := r.OffsetSize()
	if len(data) < 2*osize {
		return nil, fmt.Errorf("symbol table message too short")
	}
	return &SymbolTable{
		BTreeAddress:     binpkg.DecodeUint(data, osize, r.ByteOrder()),
		LocalHeapAddress: binpkg.DecodeUint(data[osize:], osize, r.ByteOrder()),
	}, nil
}
