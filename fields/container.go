package fields

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/hdf5"
)

// container is the storage seam the reader works against. The production
// implementation wraps an HDF5 file; tests substitute an in-memory fake.
type container interface {
	// Members lists the children of a group, sorted.
	Members(path string) ([]string, error)
	// Shape returns the dimensions of a dataset.
	Shape(path string) ([]uint64, error)
	// ReadSlab performs a strided read of a dataset selection.
	ReadSlab(path string, sel []hdf5.Slab) ([]float64, error)
	// AttrFloat64 reads a numeric array attribute of a dataset. The second
	// return is false when the attribute is absent.
	AttrFloat64(path, name string) ([]float64, bool, error)
	Close() error
}

// h5Container adapts an hdf5.File to the container interface.
type h5Container struct {
	file *hdf5.File
}

func openContainer(path string) (container, error) {
	file, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	return &h5Container{file: file}, nil
}

func (c *h5Container) Members(path string) ([]string, error) {
	group, err := c.file.OpenGroup(path)
	if err != nil {
		return nil, fmt.Errorf("opening group %s: %w", path, err)
	}
	return group.Members()
}

func (c *h5Container) Shape(path string) ([]uint64, error) {
	ds, err := c.file.OpenDataset(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	return ds.Shape(), nil
}

func (c *h5Container) ReadSlab(path string, sel []hdf5.Slab) ([]float64, error) {
	ds, err := c.file.OpenDataset(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	return ds.ReadSlab(sel)
}

func (c *h5Container) AttrFloat64(path, name string) ([]float64, bool, error) {
	ds, err := c.file.OpenDataset(path)
	if err != nil {
		return nil, false, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	attr := ds.Attr(name)
	if attr == nil {
		return nil, false, nil
	}
	values, err := attr.ReadFloat64()
	if err != nil {
		return nil, false, fmt.Errorf("reading attribute %s of %s: %w", name, path, err)
	}
	return values, true, nil
}

func (c *h5Container) Close() error {
	return c.file.Close()
}
