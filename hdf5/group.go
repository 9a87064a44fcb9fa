package hdf5

import (
	"fmt"
	"path"
	"sort"

	"github.com/Dartrisen/smilei-diagnostics/internal/btree"
	"github.com/Dartrisen/smilei-diagnostics/internal/heap"
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
	"github.com/Dartrisen/smilei-diagnostics/internal/object"
)

// Group is an HDF5 group.
type Group struct {
	file   *File
	path   string
	header *object.Header
}

// Name returns the last component of the group path.
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return path.Base(g.path)
}

// Path returns the full path to this group.
func (g *Group) Path() string {
	return g.path
}

// OpenGroup opens a subgroup by relative path.
func (g *Group) OpenGroup(relativePath string) (*Group, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	group, ok := obj.(*Group)
	if !ok {
		return nil, ErrNotGroup
	}
	return group, nil
}

// OpenDataset opens a dataset by relative path.
func (g *Group) OpenDataset(relativePath string) (*Dataset, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	dataset, ok := obj.(*Dataset)
	if !ok {
		return nil, ErrNotDataset
	}
	return dataset, nil
}

func (g *Group) open(relativePath string) (interface{}, error) {
	parts := splitPath(relativePath)
	if len(parts) == 0 {
		return g, nil
	}

	current := g
	visited := make(map[string]bool)

	for i, name := range parts {
		addr, isDataset, err := current.findChild(name, visited)
		if err != nil {
			return nil, fmt.Errorf("finding %q: %w", name, err)
		}

		fullPath := path.Join(current.path, name)
		if i == len(parts)-1 {
			if isDataset {
				return g.file.openDatasetAt(addr, fullPath)
			}
			return g.file.openGroupAt(addr, fullPath)
		}

		if isDataset {
			return nil, fmt.Errorf("%q: %w", fullPath, ErrNotGroup)
		}
		current, err = g.file.openGroupAt(addr, fullPath)
		if err != nil {
			return nil, err
		}
	}

	return current, nil
}

// findChild locates a member by name through link messages, a v1 symbol
// table, or the root scratch pad, and reports whether it is a dataset.
func (g *Group) findChild(name string, visited map[string]bool) (uint64, bool, error) {
	for _, msg := range g.header.GetMessages(message.TypeLink) {
		link := msg.(*message.Link)
		if link.Name != name {
			continue
		}
		if link.IsHard() {
			isDataset, err := g.isDataset(link.ObjectAddress)
			if err != nil {
				return 0, false, err
			}
			return link.ObjectAddress, isDataset, nil
		}
		return g.resolveSoft(link.SoftTarget, visited)
	}

	if symTable := g.symbolTable(); symTable != nil {
		return g.findChildV1(name, symTable, visited)
	}

	return 0, false, ErrNotFound
}

// symbolTable returns the group's v1 symbol table, falling back to the
// superblock scratch pad for the root group of old files.
func (g *Group) symbolTable() *message.SymbolTable {
	if msg := g.header.GetMessage(message.TypeSymbolTable); msg != nil {
		return msg.(*message.SymbolTable)
	}
	if g.path == "/" && g.file.superblock.RootGroupBTreeAddress != 0 {
		return &message.SymbolTable{
			BTreeAddress:     g.file.superblock.RootGroupBTreeAddress,
			LocalHeapAddress: g.file.superblock.RootGroupLocalHeapAddress,
		}
	}
	return nil
}

func (g *Group) findChildV1(name string, symTable *message.SymbolTable, visited map[string]bool) (uint64, bool, error) {
	entries, err := g.readV1Entries(symTable)
	if err != nil {
		return 0, false, err
	}

	for _, entry := range entries {
		if entry.Name != name {
			continue
		}
		if entry.IsSoftLink {
			return g.resolveSoft(entry.SoftTarget, visited)
		}
		isDataset, err := g.isDataset(entry.ObjectAddress)
		if err != nil {
			return 0, false, err
		}
		return entry.ObjectAddress, isDataset, nil
	}

	return 0, false, ErrNotFound
}

func (g *Group) resolveSoft(target string, visited map[string]bool) (uint64, bool, error) {
	if len(visited) >= MaxLinkDepth {
		return 0, false, ErrLinkDepth
	}
	if visited[target] {
		return 0, false, fmt.Errorf("circular soft link %q", target)
	}
	visited[target] = true
	return g.file.findByAbsolutePath(target, visited)
}

func (g *Group) readV1Entries(symTable *message.SymbolTable) ([]btree.GroupEntry, error) {
	localHeap, err := heap.ReadLocal(g.file.reader, symTable.LocalHeapAddress)
	if err != nil {
		return nil, fmt.Errorf("reading local heap: %w", err)
	}
	entries, err := btree.ReadGroupEntries(g.file.reader, symTable.BTreeAddress, localHeap)
	if err != nil {
		return nil, fmt.Errorf("reading group B-tree: %w", err)
	}
	return entries, nil
}

func (g *Group) isDataset(address uint64) (bool, error) {
	header, err := object.Read(g.file.reader, address)
	if err != nil {
		return false, err
	}
	return header.GetMessage(message.TypeDataspace) != nil, nil
}

// Members returns the names of the group's members in sorted order.
func (g *Group) Members() ([]string, error) {
	var names []string

	for _, msg := range g.header.GetMessages(message.TypeLink) {
		names = append(names, msg.(*message.Link).Name)
	}

	if len(names) == 0 {
		if symTable := g.symbolTable(); symTable != nil {
			entries, err := g.readV1Entries(symTable)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				names = append(names, entry.Name)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

// Attr returns the named attribute, or nil when absent.
func (g *Group) Attr(name string) *Attribute {
	return findAttr(g.header, g.file, name)
}

// Attrs returns the names of the group's attributes.
func (g *Group) Attrs() []string {
	return attrNames(g.header)
}
