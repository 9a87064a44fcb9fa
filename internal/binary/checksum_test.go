package binary

import "testing"

func TestFletcher32(t *testing.T) {
	// Words are assembled big-endian; an odd trailing byte is padded with
	// a zero low byte. Expected values computed by hand from the running
	// sums: checksum = sum2<<16 | sum1.
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{"empty", nil, 0},
		{"one word", []byte{0xAB, 0xCD}, 0xABCDABCD},
		{"odd byte pads low", []byte{0xAB}, 0xAB00AB00},
		{"two words", []byte{0x00, 0x01, 0x00, 0x02}, 0x00040003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fletcher32(tt.data); got != tt.want {
				t.Errorf("Fletcher32 = %#08x, want %#08x", got, tt.want)
			}
		})
	}
}

func TestLookup3Deterministic(t *testing.T) {
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz")

	first := Lookup3(data)
	if second := Lookup3(data); second != first {
		t.Fatalf("checksum not deterministic: %#x vs %#x", first, second)
	}

	// Any single-byte change must alter the checksum.
	for i := range data {
		mutated := append([]byte(nil), data...)
		mutated[i] ^= 0xFF
		if Lookup3(mutated) == first {
			t.Errorf("flipping byte %d did not change the checksum", i)
		}
	}

	if Lookup3(data[:11]) == Lookup3(data[:12]) || Lookup3(data[:12]) == Lookup3(data[:13]) {
		t.Error("checksum insensitive to length around the 12-byte block boundary")
	}
}
