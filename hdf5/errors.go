// Package hdf5 is a pure Go reader for the HDF5 files produced by
// particle-in-cell field diagnostics.
package hdf5

import "errors"

// Common errors.
var (
	ErrNotHDF5     = errors.New("not an HDF5 file")
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrUnsupported = errors.New("unsupported feature")
	ErrClosed      = errors.New("file is closed")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")
)

// MaxLinkDepth bounds soft link resolution during path traversal.
const MaxLinkDepth = 100
