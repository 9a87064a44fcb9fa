package object

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/internal/binary"
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

/*
Version 2 object header:

	0   4   Signature "OHDR"
	4   1   Version (2)
	5   1   Flags
	        bits 0-1: width of the chunk-0 size field (1 << value bytes)
	        bit 2: message creation order tracked
	        bit 4: attribute storage phase-change values present
	        bit 5: timestamps present
	...     Optional timestamps (4×4) and phase-change values (2×2)
	var     Size of chunk 0
	var     Messages
	4       Lookup3 checksum

Each message: type (1), data size (2), flags (1), optional creation
order (2), data. Continuation blocks start with "OCHK" and end with
their own checksum.
*/
func readV2(r *binary.Reader, address uint64) (*Header, error) {
	r.Skip(4) // signature, verified by caller

	version, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 2 {
		return nil, fmt.Errorf("%w: expected version 2, got %d", ErrUnsupportedVersion, version)
	}

	flags, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}

	hdr := &Header{Version: 2, Address: address, Flags: flags}

	if flags&0x20 != 0 {
		r.Skip(16) // access/mod/change/birth times
	}
	if flags&0x10 != 0 {
		r.Skip(4) // max compact / min dense attribute counts
	}

	chunk0Size, err := r.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return nil, err
	}

	trackOrder := flags&0x04 != 0
	end := r.Pos() + int64(chunk0Size) // gap before the trailing checksum

	msgs, err := readV2Messages(r, r, end, trackOrder)
	if err != nil {
		return nil, err
	}
	hdr.Messages = msgs
	return hdr, nil
}

// readV2Messages reads messages until end, following continuations via base.
func readV2Messages(mr, base *binary.Reader, end int64, trackOrder bool) ([]message.Message, error) {
	var msgs []message.Message

	// A message needs at least type+size+flags (4 bytes).
	for mr.Pos()+4 <= end {
		msgType, err := mr.ReadUint8()
		if err != nil {
			break
		}
		dataSize, err := mr.ReadUint16()
		if err != nil {
			break
		}
		if _, err := mr.ReadUint8(); err != nil { // flags, unused
			break
		}
		if trackOrder {
			mr.Skip(2)
		}

		data, err := mr.ReadBytes(int(dataSize))
		if err != nil {
			break
		}

		if message.Type(msgType) == message.TypeNIL {
			continue
		}

		if message.Type(msgType) == message.TypeObjectHeaderContinuation {
			cont, err := message.ParseContinuation(data, base)
			if err != nil {
				continue
			}
			contMsgs, err := readV2Continuation(base, cont, trackOrder)
			if err == nil {
				msgs = append(msgs, contMsgs...)
			}
			continue
		}

		msg, err := message.Parse(message.Type(msgType), data, base)
		if err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

func readV2Continuation(base *binary.Reader, cont *message.Continuation, trackOrder bool) ([]message.Message, error) {
	cr := base.At(int64(cont.Offset))

	sig, err := cr.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != "OCHK" {
		return nil, fmt.Errorf("invalid continuation block signature %q", sig)
	}

	// Block length covers the signature and trailing checksum.
	end := int64(cont.Offset+cont.Length) - 4
	return readV2Messages(cr, base, end, trackOrder)
}
