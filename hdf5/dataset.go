package hdf5

import (
	"fmt"
	"path"

	"github.com/Dartrisen/smilei-diagnostics/internal/btree"
	"github.com/Dartrisen/smilei-diagnostics/internal/dtype"
	"github.com/Dartrisen/smilei-diagnostics/internal/filter"
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
	"github.com/Dartrisen/smilei-diagnostics/internal/object"
)

// Dataset is an HDF5 dataset.
type Dataset struct {
	file      *File
	path      string
	header    *object.Header
	dataspace *message.Dataspace
	datatype  *message.Datatype
	layout    *message.DataLayout
	pipeline  *filter.Pipeline

	chunks       []btree.Chunk // chunk index, loaded on first strided read
	chunksLoaded bool
}

func newDataset(f *File, path string, header *object.Header) (*Dataset, error) {
	ds := &Dataset{file: f, path: path, header: header}

	if ds.dataspace = header.Dataspace(); ds.dataspace == nil {
		return nil, fmt.Errorf("dataset %s: missing dataspace message", path)
	}
	if ds.datatype = header.Datatype(); ds.datatype == nil {
		return nil, fmt.Errorf("dataset %s: missing datatype message", path)
	}
	if ds.layout = header.DataLayout(); ds.layout == nil {
		return nil, fmt.Errorf("dataset %s: missing layout message", path)
	}

	pipeline, err := filter.NewPipeline(header.FilterPipeline())
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	ds.pipeline = pipeline

	return ds, nil
}

// Name returns the last component of the dataset path.
func (d *Dataset) Name() string {
	return path.Base(d.path)
}

// Path returns the full path to this dataset.
func (d *Dataset) Path() string {
	return d.path
}

// Shape returns the dataset dimensions, nil for scalars.
func (d *Dataset) Shape() []uint64 {
	if d.dataspace.IsScalar() {
		return nil
	}
	return d.dataspace.Dimensions
}

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int {
	return d.dataspace.Rank
}

// NumElements returns the total element count.
func (d *Dataset) NumElements() uint64 {
	return d.dataspace.NumElements()
}

// ReadFloat64 reads the whole dataset as float64 values.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	dims := d.Shape()
	if len(dims) == 0 {
		raw, err := d.readScalar()
		if err != nil {
			return nil, err
		}
		return dtype.ToFloat64(d.datatype, raw, 1)
	}

	slabs := make([]Slab, len(dims))
	for i, dim := range dims {
		slabs[i] = Slab{Start: 0, Count: dim, Stride: 1}
	}
	return d.ReadSlab(slabs)
}

// Attr returns the named attribute, or nil when absent.
func (d *Dataset) Attr(name string) *Attribute {
	return findAttr(d.header, d.file, name)
}

// Attrs returns the names of the dataset's attributes.
func (d *Dataset) Attrs() []string {
	return attrNames(d.header)
}

func (d *Dataset) elemSize() int {
	return int(d.datatype.Size)
}

func (d *Dataset) readScalar() ([]byte, error) {
	switch d.layout.Class {
	case message.LayoutCompact:
		return d.layout.CompactData, nil
	case message.LayoutContiguous:
		buf := make([]byte, d.elemSize())
		if err := d.file.reader.ReadAt(buf, int64(d.layout.Address)); err != nil {
			return nil, err
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("scalar dataset with layout class %d: %w", d.layout.Class, ErrUnsupported)
	}
}

// loadChunks reads the chunk B-tree once and caches it.
func (d *Dataset) loadChunks() ([]btree.Chunk, error) {
	if d.chunksLoaded {
		return d.chunks, nil
	}
	chunks, err := btree.ReadChunks(d.file.reader, d.layout.ChunkIndexAddr, d.dataspace.Rank)
	if err != nil {
		return nil, fmt.Errorf("reading chunk index: %w", err)
	}
	d.chunks = chunks
	d.chunksLoaded = true
	return chunks, nil
}
