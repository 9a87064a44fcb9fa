package hdf5

import (
	"fmt"
	"os"
	"strings"

	"github.com/Dartrisen/smilei-diagnostics/internal/binary"
	"github.com/Dartrisen/smilei-diagnostics/internal/object"
	"github.com/Dartrisen/smilei-diagnostics/internal/superblock"
)

// File is an open HDF5 file.
type File struct {
	path       string
	file       *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	sb, err := superblock.Read(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	hdf := &File{
		path:       path,
		file:       f,
		reader:     binary.NewReader(f, sb.ReaderConfig()),
		superblock: sb,
	}

	root, err := hdf.openGroupAt(sb.RootGroupAddress, "/")
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	hdf.root = root

	return hdf, nil
}

// Close releases the underlying file. Closing twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}

// Root returns the root group.
func (f *File) Root() *Group {
	return f.root
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Version returns the superblock version.
func (f *File) Version() int {
	return int(f.superblock.Version)
}

// OpenGroup opens a group by absolute or root-relative path.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by absolute or root-relative path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

func (f *File) openGroupAt(address uint64, path string) (*Group, error) {
	header, err := object.Read(f.reader, address)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	return &Group{file: f, path: path, header: header}, nil
}

func (f *File) openDatasetAt(address uint64, path string) (*Dataset, error) {
	header, err := object.Read(f.reader, address)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	return newDataset(f, path, header)
}

// findByAbsolutePath resolves a path from the root, following soft links.
func (f *File) findByAbsolutePath(target string, visited map[string]bool) (uint64, bool, error) {
	current := f.root
	parts := splitPath(target)
	if len(parts) == 0 {
		return 0, false, ErrNotFound
	}

	for i, name := range parts {
		addr, isDataset, err := current.findChild(name, visited)
		if err != nil {
			return 0, false, err
		}
		if i == len(parts)-1 {
			return addr, isDataset, nil
		}
		if isDataset {
			return 0, false, fmt.Errorf("%q: %w", name, ErrNotGroup)
		}
		current, err = f.openGroupAt(addr, "/"+strings.Join(parts[:i+1], "/"))
		if err != nil {
			return 0, false, err
		}
	}
	return 0, false, ErrNotFound
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
