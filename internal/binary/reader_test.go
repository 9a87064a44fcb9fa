package binary

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func newTestReader(data []byte) *Reader {
	return NewReader(bytes.NewReader(data), DefaultConfig())
}

func TestReadScalars(t *testing.T) {
	data := []byte{
		0xAB,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0xEF, 0xCD, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01,
	}
	r := newTestReader(data)

	if v, err := r.ReadUint8(); err != nil || v != 0xAB {
		t.Errorf("ReadUint8 = %#x, %v", v, err)
	}
	if v, err := r.ReadUint16(); err != nil || v != 0x1234 {
		t.Errorf("ReadUint16 = %#x, %v", v, err)
	}
	if v, err := r.ReadUint32(); err != nil || v != 0x12345678 {
		t.Errorf("ReadUint32 = %#x, %v", v, err)
	}
	if v, err := r.ReadUint64(); err != nil || v != 0x0123456789ABCDEF {
		t.Errorf("ReadUint64 = %#x, %v", v, err)
	}
	if r.Pos() != int64(len(data)) {
		t.Errorf("Pos = %d, want %d", r.Pos(), len(data))
	}
}

func TestReadUintN(t *testing.T) {
	r := newTestReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})

	v, err := r.ReadUintN(3)
	if err != nil || v != 0x030201 {
		t.Errorf("ReadUintN(3) = %#x, %v", v, err)
	}
	v, err = r.ReadUintN(1)
	if err != nil || v != 0x04 {
		t.Errorf("ReadUintN(1) = %#x, %v", v, err)
	}
}

func TestAtIsIndependent(t *testing.T) {
	r := newTestReader([]byte{1, 2, 3, 4})
	r.Skip(1)

	sub := r.At(2)
	if v, _ := sub.ReadUint8(); v != 3 {
		t.Errorf("sub read = %d, want 3", v)
	}
	if r.Pos() != 1 {
		t.Errorf("parent position moved to %d", r.Pos())
	}
}

func TestAlign(t *testing.T) {
	r := newTestReader(make([]byte, 32))

	r.Skip(3)
	r.Align(8)
	if r.Pos() != 8 {
		t.Errorf("Align(8) from 3: pos = %d, want 8", r.Pos())
	}
	r.Align(8)
	if r.Pos() != 8 {
		t.Errorf("Align(8) at boundary moved to %d", r.Pos())
	}
}

func TestReadBytesShort(t *testing.T) {
	r := newTestReader([]byte{1, 2})
	if _, err := r.ReadBytes(5); err == nil {
		t.Error("short read succeeded")
	}
}

func TestOffsetSizes(t *testing.T) {
	cfg := Config{ByteOrder: binary.LittleEndian, OffsetSize: 4, LengthSize: 2}
	r := NewReader(bytes.NewReader([]byte{0x78, 0x56, 0x34, 0x12, 0xCD, 0xAB}), cfg)

	off, err := r.ReadOffset()
	if err != nil || off != 0x12345678 {
		t.Errorf("ReadOffset = %#x, %v", off, err)
	}
	length, err := r.ReadLength()
	if err != nil || length != 0xABCD {
		t.Errorf("ReadLength = %#x, %v", length, err)
	}
}

func TestDecodeUint(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	if v := DecodeUint(buf, 2, binary.LittleEndian); v != 0x0201 {
		t.Errorf("little-endian = %#x", v)
	}
	if v := DecodeUint(buf, 2, binary.BigEndian); v != 0x0102 {
		t.Errorf("big-endian = %#x", v)
	}
}
