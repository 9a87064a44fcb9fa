// Package btree reads version 1 HDF5 B-trees: the group trees that index
// symbol table nodes, and the chunk trees that index dataset chunks.
package btree

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/internal/binary"
	"github.com/Dartrisen/smilei-diagnostics/internal/heap"
)

// GroupEntry is one named member of a version 1 group.
type GroupEntry struct {
	Name          string
	ObjectAddress uint64
	IsSoftLink    bool
	SoftTarget    string
}

// ReadGroupEntries walks a v1 group B-tree and returns every member, with
// names resolved against the group's local heap.
func ReadGroupEntries(r *binary.Reader, btreeAddr uint64, localHeap *heap.Local) ([]GroupEntry, error) {
	return readGroupNode(r, btreeAddr, localHeap)
}

func readGroupNode(r *binary.Reader, address uint64, localHeap *heap.Local) ([]GroupEntry, error) {
	nr := r.At(int64(address))

	level, entriesUsed, err := readNodeHeader(nr, 0)
	if err != nil {
		return nil, err
	}

	var entries []GroupEntry
	for i := uint16(0); i < entriesUsed; i++ {
		if _, err := nr.ReadLength(); err != nil { // key, unused
			return nil, err
		}
		childAddr, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}

		var childEntries []GroupEntry
		if level == 0 {
			childEntries, err = readSymbolTableNode(r, childAddr, localHeap)
		} else {
			childEntries, err = readGroupNode(r, childAddr, localHeap)
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, childEntries...)
	}

	return entries, nil
}

// readNodeHeader validates the TREE signature and node type and returns the
// node level and entry count, leaving the reader after the sibling fields.
func readNodeHeader(nr *binary.Reader, wantType uint8) (level uint8, entriesUsed uint16, err error) {
	sig, err := nr.ReadBytes(4)
	if err != nil {
		return 0, 0, fmt.Errorf("reading B-tree signature: %w", err)
	}
	if string(sig) != "TREE" {
		return 0, 0, fmt.Errorf("invalid B-tree signature %q", sig)
	}

	nodeType, err := nr.ReadUint8()
	if err != nil {
		return 0, 0, err
	}
	if nodeType != wantType {
		return 0, 0, fmt.Errorf("unexpected B-tree node type %d (want %d)", nodeType, wantType)
	}

	if level, err = nr.ReadUint8(); err != nil {
		return 0, 0, err
	}
	if entriesUsed, err = nr.ReadUint16(); err != nil {
		return 0, 0, err
	}
	if _, err = nr.ReadOffset(); err != nil { // left sibling
		return 0, 0, err
	}
	if _, err = nr.ReadOffset(); err != nil { // right sibling
		return 0, 0, err
	}
	return level, entriesUsed, nil
}

const (
	cacheTypeNone     uint32 = 0
	cacheTypeHardLink uint32 = 1
	cacheTypeSoftLink uint32 = 2
)

func readSymbolTableNode(r *binary.Reader, address uint64, localHeap *heap.Local) ([]GroupEntry, error) {
	nr := r.At(int64(address))

	sig, err := nr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading symbol table node signature: %w", err)
	}
	if string(sig) != "SNOD" {
		return nil, fmt.Errorf("invalid symbol table node signature %q", sig)
	}

	version, err := nr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("unsupported symbol table node version: %d", version)
	}
	nr.Skip(1)

	numSymbols, err := nr.ReadUint16()
	if err != nil {
		return nil, err
	}

	entries := make([]GroupEntry, 0, numSymbols)
	for i := uint16(0); i < numSymbols; i++ {
		entry, err := readSymbolTableEntry(nr, localHeap)
		if err != nil {
			return nil, fmt.Errorf("reading symbol table entry %d: %w", i, err)
		}
		if entry.Name != "" {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

func readSymbolTableEntry(nr *binary.Reader, localHeap *heap.Local) (GroupEntry, error) {
	var entry GroupEntry

	nameOffset, err := nr.ReadOffset()
	if err != nil {
		return entry, err
	}
	objAddr, err := nr.ReadOffset()
	if err != nil {
		return entry, err
	}
	cacheType, err := nr.ReadUint32()
	if err != nil {
		return entry, err
	}
	nr.Skip(4) // reserved

	scratch, err := nr.ReadBytes(16)
	if err != nil {
		return entry, err
	}

	entry.Name = localHeap.GetString(nameOffset)
	entry.ObjectAddress = objAddr

	if cacheType == cacheTypeSoftLink {
		// Scratch pad holds the heap offset of the link target.
		linkOffset := uint64(scratch[0]) | uint64(scratch[1])<<8 |
			uint64(scratch[2])<<16 | uint64(scratch[3])<<24
		entry.IsSoftLink = true
		entry.SoftTarget = localHeap.GetString(linkOffset)
		entry.ObjectAddress = 0
	}

	return entry, nil
}
