// Package superblock parses the HDF5 superblock, the entry point of every
// file: format version, offset/length sizes, and the root group address.
package superblock

import (
	"encoding/binary"
	"errors"
	"io"

	binpkg "github.com/Dartrisen/smilei-diagnostics/internal/binary"
)

// Signature is the HDF5 file signature: 0x89 H D F \r \n 0x1a \n.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// The signature may sit at the start of the file or at one of the
// power-of-two offsets used by user-block files.
var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrBadChecksum        = errors.New("superblock checksum mismatch")
)

// Superblock holds the file-level metadata needed to read anything else.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8

	BaseAddress      uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	// v0/v1 root group symbol-table scratch pad. Zero when absent.
	RootGroupBTreeAddress     uint64
	RootGroupLocalHeapAddress uint64

	// Offset at which the signature was found.
	FileOffset int64
}

// Read locates and parses the superblock.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, 9)

	for _, offset := range searchOffsets {
		if _, err := r.ReadAt(sig, offset); err != nil {
			if errors.Is(err, io.EOF) {
				continue
			}
			return nil, err
		}
		if string(sig[:8]) != string(Signature) {
			continue
		}

		var (
			sb  *Superblock
			err error
		)
		switch version := sig[8]; version {
		case 0, 1:
			sb, err = readV0V1(r, offset, version)
		case 2, 3:
			sb, err = readV2V3(r, offset, version)
		default:
			return nil, ErrUnsupportedVersion
		}
		if err != nil {
			return nil, err
		}
		sb.FileOffset = offset
		return sb, nil
	}

	return nil, ErrNotHDF5
}

// ReaderConfig returns the binary reader configuration this superblock
// implies. HDF5 metadata is always little-endian.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

/*
Version 0/1 layout (after the 8-byte signature):

	0   1  Version
	1   1  Free-space storage version
	2   1  Root group symbol table entry version
	3   1  Reserved
	4   1  Shared header message format version
	5   1  Size of offsets
	6   1  Size of lengths
	7   1  Reserved
	8   2  Group leaf node K
	10  2  Group internal node K
	12  4  File consistency flags
	[v1 only: 2 bytes indexed storage K + 2 reserved]
	then O-sized: base address, free-space address, EOF address,
	driver info address, and the root group symbol table entry
	(link name offset, object header address, cache type, reserved,
	16-byte scratch pad holding the B-tree and local heap addresses).
*/
func readV0V1(r io.ReaderAt, offset int64, version uint8) (*Superblock, error) {
	fixed := make([]byte, 16)
	if _, err := r.ReadAt(fixed, offset+8); err != nil {
		return nil, err
	}

	sb := &Superblock{
		Version:    version,
		OffsetSize: fixed[5],
		LengthSize: fixed[6],
	}

	osize := int64(sb.OffsetSize)
	pos := offset + 24
	if version == 1 {
		pos += 4 // indexed storage K + reserved
	}

	addr := make([]byte, osize)
	readAddr := func(p int64) (uint64, error) {
		if _, err := r.ReadAt(addr, p); err != nil {
			return 0, err
		}
		return binpkg.DecodeUint(addr, int(osize), binary.LittleEndian), nil
	}

	var err error
	if sb.BaseAddress, err = readAddr(pos); err != nil {
		return nil, err
	}
	// Skip free-space info address.
	if sb.EOFAddress, err = readAddr(pos + 2*osize); err != nil {
		return nil, err
	}
	// Skip driver info block address; then the root group symbol table
	// entry begins with the link name offset.
	entry := pos + 4*osize
	if sb.RootGroupAddress, err = readAddr(entry + osize); err != nil {
		return nil, err
	}

	// Cache type 1 means the scratch pad holds the B-tree and heap
	// addresses of the root group.
	cacheBuf := make([]byte, 4)
	if _, err := r.ReadAt(cacheBuf, entry+2*osize); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(cacheBuf) == 1 {
		scratch := make([]byte, 2*osize)
		if _, err := r.ReadAt(scratch, entry+2*osize+8); err != nil {
			return nil, err
		}
		sb.RootGroupBTreeAddress = binpkg.DecodeUint(scratch, int(osize), binary.LittleEndian)
		sb.RootGroupLocalHeapAddress = binpkg.DecodeUint(scratch[osize:], int(osize), binary.LittleEndian)
	}

	return sb, nil
}

/*
Version 2/3 layout (after the 8-byte signature):

	0   1  Version
	1   1  Size of offsets
	2   1  Size of lengths
	3   1  File consistency flags
	4   O  Base address
	+O  O  Superblock extension address
	+2O O  EOF address
	+3O O  Root group object header address
	+4O 4  Lookup3 checksum over everything above
*/
func readV2V3(r io.ReaderAt, offset int64, version uint8) (*Superblock, error) {
	fixed := make([]byte, 4)
	if _, err := r.ReadAt(fixed, offset+8); err != nil {
		return nil, err
	}

	sb := &Superblock{
		Version:    version,
		OffsetSize: fixed[1],
		LengthSize: fixed[2],
	}

	osize := int(sb.OffsetSize)
	body := make([]byte, 12+4*osize)
	if _, err := r.ReadAt(body, offset); err != nil {
		return nil, err
	}

	at := 12
	next := func() uint64 {
		v := binpkg.DecodeUint(body[at:], osize, binary.LittleEndian)
		at += osize
		return v
	}
	sb.BaseAddress = next()
	_ = next() // superblock extension, unused
	sb.EOFAddress = next()
	sb.RootGroupAddress = next()

	sumBuf := make([]byte, 4)
	if _, err := r.ReadAt(sumBuf, offset+int64(len(body))); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(sumBuf) != binpkg.Lookup3(body) {
		return nil, ErrBadChecksum
	}

	return sb, nil
}
