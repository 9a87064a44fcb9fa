package filter

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"

	ibinary "github.com/Dartrisen/smilei-diagnostics/internal/binary"
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

func deflateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDeflateDecode(t *testing.T) {
	plain := []byte("field diagnostics chunk payload")

	f := newDeflate()
	got, err := f.Decode(deflateBytes(t, plain))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("got %q, want %q", got, plain)
	}

	if _, err := f.Decode([]byte("not zlib")); err == nil {
		t.Error("garbage input accepted")
	}
}

func TestShuffleDecode(t *testing.T) {
	// Three 4-byte elements, byte-transposed: all byte 0s, then byte 1s...
	shuffled := []byte{
		0x01, 0x05, 0x09,
		0x02, 0x06, 0x0A,
		0x03, 0x07, 0x0B,
		0x04, 0x08, 0x0C,
	}
	want := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x05, 0x06, 0x07, 0x08,
		0x09, 0x0A, 0x0B, 0x0C,
	}

	f := newShuffle([]uint32{4})
	got, err := f.Decode(shuffled)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestShuffleSingleByteElements(t *testing.T) {
	data := []byte{1, 2, 3}
	f := newShuffle([]uint32{1})
	got, err := f.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("single-byte elements changed: % x", got)
	}
}

func TestFletcher32Decode(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6}
	chunk := make([]byte, len(payload)+4)
	copy(chunk, payload)
	binary.LittleEndian.PutUint32(chunk[len(payload):], ibinary.Fletcher32(payload))

	f := newFletcher32()
	got, err := f.Decode(chunk)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got % x, want % x", got, payload)
	}

	chunk[0] ^= 0xFF
	if _, err := f.Decode(chunk); err == nil {
		t.Error("corrupted chunk accepted")
	}
}

func TestPipelineDecode(t *testing.T) {
	// Pipeline order as stored: shuffle then deflate. Decoding runs in
	// reverse: inflate first, then unshuffle.
	plain := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x05, 0x06, 0x07, 0x08,
	}
	shuffled := []byte{
		0x01, 0x05,
		0x02, 0x06,
		0x03, 0x07,
		0x04, 0x08,
	}

	fp := &message.FilterPipeline{
		Filters: []message.FilterInfo{
			{ID: message.FilterShuffle, ClientData: []uint32{4}},
			{ID: message.FilterDeflate, ClientData: []uint32{6}},
		},
	}
	p, err := NewPipeline(fp)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	got, err := p.Decode(deflateBytes(t, shuffled), 0)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("got % x, want % x", got, plain)
	}

	// Mask bit 0 skips the shuffle stage.
	got, err = p.Decode(deflateBytes(t, shuffled), 1)
	if err != nil {
		t.Fatalf("Decode with mask failed: %v", err)
	}
	if !bytes.Equal(got, shuffled) {
		t.Errorf("masked decode = % x, want % x", got, shuffled)
	}
}

func TestUnsupportedFilter(t *testing.T) {
	if _, err := New(message.FilterInfo{ID: message.FilterSZIP}); err == nil {
		t.Error("szip accepted")
	}

	f, err := New(message.FilterInfo{ID: 9999, Flags: 0x01}) // optional
	if err != nil || f != nil {
		t.Errorf("unknown optional filter: f=%v err=%v, want nil, nil", f, err)
	}
}

func TestEmptyPipeline(t *testing.T) {
	p, err := NewPipeline(nil)
	if err != nil {
		t.Fatalf("NewPipeline(nil) failed: %v", err)
	}
	if !p.Empty() {
		t.Error("nil message did not yield an empty pipeline")
	}

	data := []byte{1, 2, 3}
	got, err := p.Decode(data, 0)
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("pass-through decode = % x, %v", got, err)
	}
}
