package object

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/internal/binary"
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

/*
Version 1 object header:

	0   1  Version (1)
	1   1  Reserved
	2   2  Number of header messages
	4   4  Object reference count
	8   4  Size of header messages in bytes
	12     Messages, 8-byte aligned

Each message: type (2), data size (2), flags (1), reserved (3), data,
padded to an 8-byte boundary.
*/
func readV1(r *binary.Reader, address uint64) (*Header, error) {
	version, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("%w: expected version 1, got %d", ErrUnsupportedVersion, version)
	}
	r.Skip(1)

	if _, err := r.ReadUint16(); err != nil { // message count, unused
		return nil, err
	}
	if _, err := r.ReadUint32(); err != nil { // reference count, unused
		return nil, err
	}
	headerSize, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	hdr := &Header{Version: 1, Address: address}

	r.Align(8)
	msgs, err := readV1Messages(r, r.Pos(), int64(headerSize))
	if err != nil {
		return nil, err
	}
	hdr.Messages = msgs
	return hdr, nil
}

// readV1Messages reads a block of v1 messages, following continuation
// messages into their blocks.
func readV1Messages(r *binary.Reader, start, length int64) ([]message.Message, error) {
	mr := r.At(start)
	end := start + length

	var msgs []message.Message
	for mr.Pos() < end {
		msgType, err := mr.ReadUint16()
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
		mr.Skip(3)

		data, err := mr.ReadBytes(int(dataSize))
		if err != nil {
			break
		}
		mr.Align(8)

		if message.Type(msgType) == message.TypeNIL {
			continue
		}

		if message.Type(msgType) == message.TypeObjectHeaderContinuation {
			cont, err := message.ParseContinuation(data, r)
			if err != nil {
				continue
			}
			contMsgs, err := readV1Messages(r, int64(cont.Offset), int64(cont.Length))
			if err == nil {
				msgs = append(msgs, contMsgs...)
			}
			continue
		}

		msg, err := message.Parse(message.Type(msgType), data, r)
		if err != nil {
			// Unparseable messages are skipped; the caller fails later
			// with a precise error if it actually needed one of them.
			continue
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}
