package btree

import (
	"bytes"
	"encoding/binary"
	"testing"

	binpkg "github.com/Dartrisen/smilei-diagnostics/internal/binary"
	"github.com/Dartrisen/smilei-diagnostics/internal/heap"
)

func appendU16(b []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(b, v) }
func appendU32(b []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(b, v) }
func appendU64(b []byte, v uint64) []byte { return binary.LittleEndian.AppendUint64(b, v) }

// buildGroupTree assembles a local heap, one SNOD node and a level-0 TREE
// node in a single buffer and returns the buffer with the TREE address.
func buildGroupTree(t *testing.T) ([]byte, uint64) {
	t.Helper()

	// Heap data segment: empty string at 0, then the member names and a
	// soft link target. The heap header occupies the first 32 bytes.
	names := []byte("\x00alpha\x00beta\x00gamma\x00/linked\x00")
	const dataAddr = 32

	buf := []byte("HEAP")
	buf = append(buf, 0, 0, 0, 0)
	buf = appendU64(buf, uint64(len(names))) // data segment size
	buf = appendU64(buf, 0)                  // free list head
	buf = appendU64(buf, dataAddr)
	buf = append(buf, names...)

	snodAddr := uint64(len(buf))
	buf = append(buf, "SNOD"...)
	buf = append(buf, 1, 0)
	buf = appendU16(buf, 3)

	entry := func(nameOffset, objAddr uint64, cacheType uint32, scratch []byte) {
		buf = appendU64(buf, nameOffset)
		buf = appendU64(buf, objAddr)
		buf = appendU32(buf, cacheType)
		buf = appendU32(buf, 0)
		pad := make([]byte, 16)
		copy(pad, scratch)
		buf = append(buf, pad...)
	}
	entry(1, 0x100, 0, nil)                                 // alpha
	entry(7, 0x200, 1, make([]byte, 16))                    // beta, cached header
	entry(12, 0, 2, binary.LittleEndian.AppendUint32(nil, 18)) // gamma -> /linked

	treeAddr := uint64(len(buf))
	buf = append(buf, "TREE"...)
	buf = append(buf, 0, 0) // node type 0, level 0
	buf = appendU16(buf, 1)
	buf = appendU64(buf, binpkg.UndefinedOffset) // left sibling
	buf = appendU64(buf, binpkg.UndefinedOffset) // right sibling
	buf = appendU64(buf, 0) // key
	buf = appendU64(buf, snodAddr)

	return buf, treeAddr
}

func TestReadGroupEntries(t *testing.T) {
	buf, treeAddr := buildGroupTree(t)
	r := binpkg.NewReader(bytes.NewReader(buf), binpkg.DefaultConfig())

	local, err := heap.ReadLocal(r, 0)
	if err != nil {
		t.Fatalf("ReadLocal failed: %v", err)
	}
	if got := local.GetString(1); got != "alpha" {
		t.Errorf("GetString(1) = %q, want alpha", got)
	}
	if got := local.GetString(9999); got != "" {
		t.Errorf("GetString out of range = %q, want empty", got)
	}

	entries, err := ReadGroupEntries(r, treeAddr, local)
	if err != nil {
		t.Fatalf("ReadGroupEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(entries), entries)
	}

	if entries[0].Name != "alpha" || entries[0].ObjectAddress != 0x100 {
		t.Errorf("entry 0: %+v", entries[0])
	}
	if entries[1].Name != "beta" || entries[1].ObjectAddress != 0x200 {
		t.Errorf("entry 1: %+v", entries[1])
	}
	if !entries[2].IsSoftLink || entries[2].Name != "gamma" || entries[2].SoftTarget != "/linked" {
		t.Errorf("entry 2: %+v", entries[2])
	}
}

func TestReadGroupEntriesBadSignature(t *testing.T) {
	buf := []byte("XXXX\x00\x00\x00\x00")
	r := binpkg.NewReader(bytes.NewReader(buf), binpkg.DefaultConfig())

	if _, err := ReadGroupEntries(r, 0, nil); err == nil {
		t.Fatal("expected error for bad signature")
	}
}

// buildChunkTree assembles a level-0 chunk B-tree with three entries, one of
// which is unallocated.
func buildChunkTree(t *testing.T) []byte {
	t.Helper()

	buf := []byte("TREE")
	buf = append(buf, 1, 0) // node type 1, level 0
	buf = appendU16(buf, 3)
	buf = appendU64(buf, binpkg.UndefinedOffset)
	buf = appendU64(buf, binpkg.UndefinedOffset)

	key := func(size uint32, mask uint32, offsets []uint64) {
		buf = appendU32(buf, size)
		buf = appendU32(buf, mask)
		for _, o := range offsets {
			buf = appendU64(buf, o)
		}
		buf = appendU64(buf, 0) // element-size dimension
	}

	key(256, 0, []uint64{0, 0})
	buf = appendU64(buf, 0x1000)
	key(128, 1, []uint64{0, 16})
	buf = appendU64(buf, 0x2000)
	key(64, 0, []uint64{4, 0})
	buf = appendU64(buf, binpkg.UndefinedOffset) // never written

	return buf
}

func TestReadChunks(t *testing.T) {
	buf := buildChunkTree(t)
	r := binpkg.NewReader(bytes.NewReader(buf), binpkg.DefaultConfig())

	chunks, err := ReadChunks(r, 0, 2)
	if err != nil {
		t.Fatalf("ReadChunks failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %+v", len(chunks), chunks)
	}

	c := chunks[0]
	if c.Address != 0x1000 || c.Size != 256 || c.FilterMask != 0 {
		t.Errorf("chunk 0: %+v", c)
	}
	if c.Offset[0] != 0 || c.Offset[1] != 0 {
		t.Errorf("chunk 0 offset: %v", c.Offset)
	}

	c = chunks[1]
	if c.Address != 0x2000 || c.Size != 128 || c.FilterMask != 1 {
		t.Errorf("chunk 1: %+v", c)
	}
	if c.Offset[0] != 0 || c.Offset[1] != 16 {
		t.Errorf("chunk 1 offset: %v", c.Offset)
	}
}

func TestReadChunksUndefinedTree(t *testing.T) {
	r := binpkg.NewReader(bytes.NewReader(nil), binpkg.DefaultConfig())

	chunks, err := ReadChunks(r, binpkg.UndefinedOffset, 2)
	if err != nil {
		t.Fatalf("ReadChunks failed: %v", err)
	}
	if chunks != nil {
		t.Errorf("got %v, want nil", chunks)
	}
}
