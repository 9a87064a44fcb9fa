package object

import (
	"bytes"
	"encoding/binary"
	"testing"

	binpkg "github.com/Dartrisen/smilei-diagnostics/internal/binary"
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

// buildV1Header assembles a version 1 object header at offset 16 with a
// symbol table message, a NIL message and a dataspace message.
func buildV1Header(t *testing.T) []byte {
	t.Helper()

	var msgs []byte
	appendMsg := func(typ uint16, data []byte) {
		msgs = binary.LittleEndian.AppendUint16(msgs, typ)
		msgs = binary.LittleEndian.AppendUint16(msgs, uint16(len(data)))
		msgs = append(msgs, 0, 0, 0, 0) // flags, reserved
		msgs = append(msgs, data...)
		for len(msgs)%8 != 0 {
			msgs = append(msgs, 0)
		}
	}

	st := binary.LittleEndian.AppendUint64(nil, 0x88)
	st = binary.LittleEndian.AppendUint64(st, 0xA8)
	appendMsg(uint16(message.TypeSymbolTable), st)

	appendMsg(uint16(message.TypeNIL), make([]byte, 8))

	ds := []byte{1, 1, 0, 0, 0, 0, 0, 0}
	ds = binary.LittleEndian.AppendUint64(ds, 10)
	appendMsg(uint16(message.TypeDataspace), ds)

	buf := make([]byte, 16)
	buf = append(buf, 1, 0) // version, reserved
	buf = binary.LittleEndian.AppendUint16(buf, 3)
	buf = binary.LittleEndian.AppendUint32(buf, 1)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(msgs)))
	buf = append(buf, 0, 0, 0, 0) // pad to 8-byte boundary
	return append(buf, msgs...)
}

func TestReadV1Header(t *testing.T) {
	buf := buildV1Header(t)
	r := binpkg.NewReader(bytes.NewReader(buf), binpkg.DefaultConfig())

	hdr, err := Read(r, 16)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if hdr.Version != 1 {
		t.Errorf("version = %d, want 1", hdr.Version)
	}
	// The NIL message is dropped during parsing.
	if len(hdr.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(hdr.Messages))
	}

	st, ok := hdr.GetMessage(message.TypeSymbolTable).(*message.SymbolTable)
	if !ok {
		t.Fatal("symbol table message missing")
	}
	if st.BTreeAddress != 0x88 || st.LocalHeapAddress != 0xA8 {
		t.Errorf("symbol table: %+v", st)
	}

	ds := hdr.Dataspace()
	if ds == nil {
		t.Fatal("dataspace message missing")
	}
	if len(ds.Dimensions) != 1 || ds.Dimensions[0] != 10 {
		t.Errorf("dimensions = %v", ds.Dimensions)
	}
}

func TestReadUnknownFormat(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0}
	r := binpkg.NewReader(bytes.NewReader(buf), binpkg.DefaultConfig())

	if _, err := Read(r, 0); err == nil {
		t.Fatal("expected error for unknown header format")
	}
}
