// Package mkh5 writes small HDF5 files for tests: version 2 superblock,
// version 2 object headers with hard link messages, and float64 datasets
// with numeric attributes, stored contiguously or chunked behind a v1
// chunk B-tree with optional deflate. It covers exactly the format subset
// the reader consumes, so fixtures stay self-describing Go instead of
// binary blobs checked into the tree.
package mkh5

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	ibinary "github.com/Dartrisen/smilei-diagnostics/internal/binary"
)

// Attr is a float64 attribute. A single value is written as a scalar, more
// values as a 1-D array.
type Attr struct {
	Name   string
	Values []float64
	Scalar bool
}

// Dataset is a float64 dataset. With ChunkDims unset the data is stored
// contiguously; set, it is split into chunks indexed by a v1 B-tree, edge
// chunks zero-padded to full size.
type Dataset struct {
	Name  string
	Dims  []uint64
	Data  []float64
	Attrs []Attr

	ChunkDims []uint64
	// Deflate compresses each stored chunk with zlib and attaches the
	// matching filter pipeline message.
	Deflate bool
	// Unallocated lists chunk offsets (in elements) to leave out of the
	// index, as HDF5 does for never-written chunks.
	Unallocated [][]uint64
}

// Group is a group with hard-linked members.
type Group struct {
	Name     string
	Attrs    []Attr
	Groups   []*Group
	Datasets []*Dataset
}

// WriteFile encodes the tree rooted at root and writes it to path. The
// root's own name is ignored.
func WriteFile(path string, root *Group) error {
	data, err := Encode(root)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

const superblockSize = 48 // signature + fields + 4 addresses + checksum

// Encode builds the file image in memory.
func Encode(root *Group) ([]byte, error) {
	w := &writer{buf: make([]byte, superblockSize)}

	rootAddr, err := w.writeGroup(root)
	if err != nil {
		return nil, err
	}

	w.writeSuperblock(rootAddr)
	return w.buf, nil
}

type writer struct {
	buf []byte
}

func (w *writer) writeGroup(g *Group) (uint64, error) {
	type child struct {
		name string
		addr uint64
	}
	var children []child

	for _, ds := range g.Datasets {
		addr, err := w.writeDataset(ds)
		if err != nil {
			return 0, err
		}
		children = append(children, child{ds.Name, addr})
	}
	for _, sub := range g.Groups {
		addr, err := w.writeGroup(sub)
		if err != nil {
			return 0, err
		}
		children = append(children, child{sub.Name, addr})
	}

	var msgs []headerMessage
	for _, a := range g.Attrs {
		msgs = append(msgs, headerMessage{typ: 0x0C, body: encodeAttribute(a)})
	}
	for _, c := range children {
		msgs = append(msgs, headerMessage{typ: 0x06, body: encodeHardLink(c.name, c.addr)})
	}

	return w.writeObjectHeader(msgs), nil
}

func (w *writer) writeDataset(ds *Dataset) (uint64, error) {
	n := uint64(1)
	for _, d := range ds.Dims {
		n *= d
	}
	if uint64(len(ds.Data)) != n {
		return 0, fmt.Errorf("dataset %q: %d values for shape %v", ds.Name, len(ds.Data), ds.Dims)
	}

	msgs := []headerMessage{
		{typ: 0x01, body: encodeSimpleDataspace(ds.Dims)},
		{typ: 0x03, body: encodeFloat64Type()},
	}

	if ds.ChunkDims == nil {
		dataAddr := uint64(len(w.buf))
		for _, v := range ds.Data {
			w.buf = appendUint64(w.buf, math.Float64bits(v))
		}
		msgs = append(msgs, headerMessage{typ: 0x08, body: encodeContiguousLayout(dataAddr, n*8)})
	} else {
		btreeAddr, err := w.writeChunks(ds)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, headerMessage{typ: 0x08, body: encodeChunkedLayout(btreeAddr, ds.ChunkDims)})
		if ds.Deflate {
			msgs = append(msgs, headerMessage{typ: 0x0B, body: encodeDeflatePipeline()})
		}
	}

	for _, a := range ds.Attrs {
		msgs = append(msgs, headerMessage{typ: 0x0C, body: encodeAttribute(a)})
	}

	return w.writeObjectHeader(msgs), nil
}

// writeChunks stores every allocated chunk of a chunked dataset and a
// level-0 v1 chunk B-tree over them, returning the tree address.
func (w *writer) writeChunks(ds *Dataset) (uint64, error) {
	if len(ds.ChunkDims) != len(ds.Dims) {
		return 0, fmt.Errorf("dataset %q: chunk rank %d for shape %v", ds.Name, len(ds.ChunkDims), ds.Dims)
	}

	type chunk struct {
		offset []uint64
		addr   uint64
		size   uint32
	}
	var chunks []chunk

	for _, off := range chunkOffsets(ds.Dims, ds.ChunkDims) {
		if containsOffset(ds.Unallocated, off) {
			continue
		}
		raw := gatherChunk(ds.Data, ds.Dims, ds.ChunkDims, off)
		if ds.Deflate {
			var buf bytes.Buffer
			zw := zlib.NewWriter(&buf)
			if _, err := zw.Write(raw); err != nil {
				return 0, err
			}
			if err := zw.Close(); err != nil {
				return 0, err
			}
			raw = buf.Bytes()
		}
		addr := uint64(len(w.buf))
		w.buf = append(w.buf, raw...)
		chunks = append(chunks, chunk{offset: off, addr: addr, size: uint32(len(raw))})
	}

	btreeAddr := uint64(len(w.buf))
	node := []byte("TREE")
	node = append(node, 1, 0) // node type 1, level 0
	node = appendUint16(node, uint16(len(chunks)))
	node = appendUint64(node, ^uint64(0)) // left sibling
	node = appendUint64(node, ^uint64(0)) // right sibling
	for _, c := range chunks {
		node = appendUint32(node, c.size)
		node = appendUint32(node, 0) // filter mask
		for _, o := range c.offset {
			node = appendUint64(node, o)
		}
		node = appendUint64(node, 0) // element-size dimension
		node = appendUint64(node, c.addr)
	}
	w.buf = append(w.buf, node...)

	return btreeAddr, nil
}

// chunkOffsets enumerates chunk origins covering the dataset extent in
// row-major order.
func chunkOffsets(dims, chunkDims []uint64) [][]uint64 {
	offsets := [][]uint64{make([]uint64, len(dims))}
	for dim := len(dims) - 1; dim >= 0; dim-- {
		var next [][]uint64
		for _, off := range offsets {
			for o := uint64(0); o < dims[dim]; o += chunkDims[dim] {
				stepped := append([]uint64(nil), off...)
				stepped[dim] = o
				next = append(next, stepped)
			}
		}
		offsets = next
	}
	return offsets
}

func containsOffset(set [][]uint64, off []uint64) bool {
	for _, s := range set {
		match := len(s) == len(off)
		for d := range s {
			if !match {
				break
			}
			match = s[d] == off[d]
		}
		if match {
			return true
		}
	}
	return false
}

// gatherChunk extracts one full chunk from row-major data, zero-padding
// past the dataset extent.
func gatherChunk(data []float64, dims, chunkDims, off []uint64) []byte {
	strides := make([]uint64, len(dims))
	acc := uint64(1)
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= dims[i]
	}

	n := uint64(1)
	for _, d := range chunkDims {
		n *= d
	}

	out := make([]byte, 0, n*8)
	idx := make([]uint64, len(chunkDims))
	for pos := uint64(0); pos < n; pos++ {
		var elem uint64
		inside := true
		for dim, k := range idx {
			global := off[dim] + k
			if global >= dims[dim] {
				inside = false
				break
			}
			elem += global * strides[dim]
		}

		var v float64
		if inside {
			v = data[elem]
		}
		out = appendUint64(out, math.Float64bits(v))

		for dim := len(idx) - 1; dim >= 0; dim-- {
			idx[dim]++
			if idx[dim] < chunkDims[dim] {
				break
			}
			idx[dim] = 0
		}
	}
	return out
}

type headerMessage struct {
	typ  uint8
	body []byte
}

// writeObjectHeader appends a version 2 object header with a 4-byte chunk
// size field and returns its address.
func (w *writer) writeObjectHeader(msgs []headerMessage) uint64 {
	addr := uint64(len(w.buf))

	var chunk0 uint32
	for _, m := range msgs {
		chunk0 += 4 + uint32(len(m.body))
	}

	header := []byte("OHDR")
	header = append(header, 2, 0x02) // version, flags: 4-byte chunk size
	header = appendUint32(header, chunk0)
	for _, m := range msgs {
		header = append(header, m.typ)
		header = appendUint16(header, uint16(len(m.body)))
		header = append(header, 0) // message flags
		header = append(header, m.body...)
	}
	header = appendUint32(header, ibinary.Lookup3(header))

	w.buf = append(w.buf, header...)
	return addr
}

func (w *writer) writeSuperblock(rootAddr uint64) {
	body := []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}
	body = append(body, 2, 8, 8, 0) // version, offset size, length size, flags
	body = appendUint64(body, 0)    // base address
	body = appendUint64(body, ^uint64(0))
	body = appendUint64(body, uint64(len(w.buf))) // EOF
	body = appendUint64(body, rootAddr)
	body = appendUint32(body, ibinary.Lookup3(body))
	copy(w.buf, body)
}

// encodeSimpleDataspace emits a version 2 simple dataspace.
func encodeSimpleDataspace(dims []uint64) []byte {
	body := []byte{2, uint8(len(dims)), 0, 1}
	for _, d := range dims {
		body = appendUint64(body, d)
	}
	return body
}

func encodeScalarDataspace() []byte {
	return []byte{2, 0, 0, 0}
}

// encodeFloat64Type emits an IEEE 754 little-endian float64 datatype.
func encodeFloat64Type() []byte {
	body := []byte{0x11, 0x20, 0x3F, 0x00}
	body = appendUint32(body, 8)
	body = appendUint16(body, 0)  // bit offset
	body = appendUint16(body, 64) // bit precision
	body = append(body, 52, 11, 0, 52)
	body = appendUint32(body, 1023) // exponent bias
	return body
}

func encodeContiguousLayout(addr, size uint64) []byte {
	body := []byte{3, 1}
	body = appendUint64(body, addr)
	body = appendUint64(body, size)
	return body
}

// encodeChunkedLayout emits a version 3 chunked layout whose dimensionality
// carries the trailing element-size entry.
func encodeChunkedLayout(btreeAddr uint64, chunkDims []uint64) []byte {
	body := []byte{3, 2, uint8(len(chunkDims) + 1)}
	body = appendUint64(body, btreeAddr)
	for _, d := range chunkDims {
		body = appendUint32(body, uint32(d))
	}
	body = appendUint32(body, 8) // element size
	return body
}

// encodeDeflatePipeline emits a version 1 filter pipeline with a single
// deflate filter at default compression level.
func encodeDeflatePipeline() []byte {
	body := []byte{1, 1, 0, 0, 0, 0, 0, 0}
	body = appendUint16(body, 1) // filter id: deflate
	body = appendUint16(body, 0) // name length
	body = appendUint16(body, 0) // flags
	body = appendUint16(body, 1) // client data count
	body = appendUint32(body, 6)
	body = appendUint32(body, 0) // odd-count padding
	return body
}

// encodeAttribute emits a version 3 attribute with float64 values.
func encodeAttribute(a Attr) []byte {
	name := append([]byte(a.Name), 0)
	dt := encodeFloat64Type()

	var ds []byte
	if a.Scalar || len(a.Values) == 0 {
		ds = encodeScalarDataspace()
	} else {
		ds = encodeSimpleDataspace([]uint64{uint64(len(a.Values))})
	}

	body := []byte{3, 0}
	body = appendUint16(body, uint16(len(name)))
	body = appendUint16(body, uint16(len(dt)))
	body = appendUint16(body, uint16(len(ds)))
	body = append(body, 0) // name encoding: ASCII
	body = append(body, name...)
	body = append(body, dt...)
	body = append(body, ds...)
	for _, v := range a.Values {
		body = appendUint64(body, math.Float64bits(v))
	}
	return body
}

// encodeHardLink emits a version 1 link message with default flags: hard
// link, 1-byte name length.
func encodeHardLink(name string, addr uint64) []byte {
	body := []byte{1, 0, uint8(len(name))}
	body = append(body, name...)
	body = appendUint64(body, addr)
	return body
}

func appendUint16(b []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(b, v)
}

func appendUint32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func appendUint64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}
