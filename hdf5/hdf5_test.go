package hdf5

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Dartrisen/smilei-diagnostics/internal/mkh5"
)

// writeFixture builds a file with a nested group, a 1-D and a 2-D dataset,
// and numeric attributes.
func writeFixture(t *testing.T) string {
	t.Helper()

	flat := make([]float64, 24)
	for i := range flat {
		flat[i] = float64(i) * 0.5
	}
	grid := make([]float64, 6*4)
	for i := range grid {
		grid[i] = float64(i)
	}

	root := &mkh5.Group{
		Groups: []*mkh5.Group{{
			Name: "data",
			Groups: []*mkh5.Group{{
				Name: "0000000500",
				Datasets: []*mkh5.Dataset{
					{
						Name: "Ex",
						Dims: []uint64{24},
						Data: flat,
						Attrs: []mkh5.Attr{
							{Name: "gridGlobalOffset", Values: []float64{0, 1}},
							{Name: "gridSpacing", Values: []float64{0.1, 0.2}},
						},
					},
					{
						Name: "Rho",
						Dims: []uint64{6, 4},
						Data: grid,
					},
				},
			}},
		}},
	}

	path := filepath.Join(t.TempDir(), "fixture.h5")
	if err := mkh5.WriteFile(path, root); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestOpenFixture(t *testing.T) {
	path := writeFixture(t)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	if f.Version() != 2 {
		t.Errorf("superblock version = %d, want 2", f.Version())
	}

	members, err := f.Root().Members()
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 1 || members[0] != "data" {
		t.Errorf("root members = %v, want [data]", members)
	}
}

func TestOpenNotHDF5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.bin")
	if err := os.WriteFile(path, []byte("0123456789abcdef"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for non-HDF5 file")
	}
}

func TestGroupTraversal(t *testing.T) {
	path := writeFixture(t)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	g, err := f.OpenGroup("data/0000000500")
	if err != nil {
		t.Fatalf("OpenGroup failed: %v", err)
	}
	if g.Name() != "0000000500" {
		t.Errorf("group name = %q", g.Name())
	}

	members, err := g.Members()
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 2 || members[0] != "Ex" || members[1] != "Rho" {
		t.Errorf("members = %v, want [Ex Rho]", members)
	}

	if _, err := g.OpenGroup("Ex"); !errors.Is(err, ErrNotGroup) {
		t.Errorf("opening dataset as group: got %v, want ErrNotGroup", err)
	}
	if _, err := g.OpenDataset("nope"); err == nil {
		t.Error("opening missing member succeeded")
	}
}

func TestDatasetRead(t *testing.T) {
	path := writeFixture(t)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	ds, err := f.OpenDataset("data/0000000500/Ex")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}

	shape := ds.Shape()
	if len(shape) != 1 || shape[0] != 24 {
		t.Fatalf("shape = %v, want [24]", shape)
	}

	values, err := ds.ReadFloat64()
	if err != nil {
		t.Fatalf("ReadFloat64 failed: %v", err)
	}
	for i, v := range values {
		if v != float64(i)*0.5 {
			t.Fatalf("values[%d] = %v, want %v", i, v, float64(i)*0.5)
		}
	}
}

func TestDatasetAttr(t *testing.T) {
	path := writeFixture(t)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	ds, err := f.OpenDataset("data/0000000500/Ex")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}

	attr := ds.Attr("gridSpacing")
	if attr == nil {
		t.Fatal("gridSpacing attribute not found")
	}
	values, err := attr.ReadFloat64()
	if err != nil {
		t.Fatalf("ReadFloat64 failed: %v", err)
	}
	if len(values) != 2 || values[0] != 0.1 || values[1] != 0.2 {
		t.Errorf("gridSpacing = %v, want [0.1 0.2]", values)
	}

	if ds.Attr("absent") != nil {
		t.Error("Attr returned a value for a missing name")
	}
}

func TestReadSlabContiguous(t *testing.T) {
	path := writeFixture(t)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	ds, err := f.OpenDataset("data/0000000500/Rho")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}

	tests := []struct {
		name string
		sel  []Slab
		want []float64
	}{
		{
			name: "full extent",
			sel:  []Slab{{0, 6, 1}, {0, 4, 1}},
			want: nil, // checked against i below
		},
		{
			name: "strided rows, contiguous columns",
			sel:  []Slab{{1, 2, 3}, {0, 4, 1}},
			want: []float64{4, 5, 6, 7, 16, 17, 18, 19},
		},
		{
			name: "strided both dimensions",
			sel:  []Slab{{0, 3, 2}, {1, 2, 2}},
			want: []float64{1, 3, 9, 11, 17, 19},
		},
		{
			name: "single element",
			sel:  []Slab{{5, 1, 1}, {3, 1, 1}},
			want: []float64{23},
		},
		{
			name: "empty selection",
			sel:  []Slab{{0, 0, 1}, {0, 4, 1}},
			want: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ds.ReadSlab(tt.sel)
			if err != nil {
				t.Fatalf("ReadSlab failed: %v", err)
			}
			if tt.want == nil {
				if len(got) != 24 {
					t.Fatalf("got %d values, want 24", len(got))
				}
				for i, v := range got {
					if v != float64(i) {
						t.Fatalf("values[%d] = %v, want %v", i, v, i)
					}
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d values, want %d", len(got), len(tt.want))
			}
			for i, v := range tt.want {
				if got[i] != v {
					t.Errorf("values[%d] = %v, want %v", i, got[i], v)
				}
			}
		})
	}
}

// writeChunkedFixture builds a file with chunked datasets: a deflated 1-D
// one, a 2-D one whose edge chunks are zero-padded, and one with an
// unallocated chunk.
func writeChunkedFixture(t *testing.T) string {
	t.Helper()

	flat := make([]float64, 16)
	for i := range flat {
		flat[i] = float64(i) * 10
	}
	grid := make([]float64, 4*5)
	for i := range grid {
		grid[i] = float64(i)
	}
	sparse := make([]float64, 16)
	for i := range sparse {
		sparse[i] = float64(i) + 1
	}

	root := &mkh5.Group{
		Datasets: []*mkh5.Dataset{
			{
				Name:      "Phi",
				Dims:      []uint64{16},
				Data:      flat,
				ChunkDims: []uint64{8},
				Deflate:   true,
			},
			{
				Name:      "Jl",
				Dims:      []uint64{4, 5},
				Data:      grid,
				ChunkDims: []uint64{2, 3},
			},
			{
				Name:        "Sparse",
				Dims:        []uint64{16},
				Data:        sparse,
				ChunkDims:   []uint64{8},
				Unallocated: [][]uint64{{8}},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "chunked.h5")
	if err := mkh5.WriteFile(path, root); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestReadSlabChunkedDeflate(t *testing.T) {
	path := writeChunkedFixture(t)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	ds, err := f.OpenDataset("Phi")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}

	values, err := ds.ReadFloat64()
	if err != nil {
		t.Fatalf("ReadFloat64 failed: %v", err)
	}
	if len(values) != 16 {
		t.Fatalf("got %d values, want 16", len(values))
	}
	for i, v := range values {
		if v != float64(i)*10 {
			t.Fatalf("values[%d] = %v, want %v", i, v, float64(i)*10)
		}
	}

	// Strided selection crossing the chunk boundary at index 8.
	got, err := ds.ReadSlab([]Slab{{Start: 2, Count: 5, Stride: 3}})
	if err != nil {
		t.Fatalf("ReadSlab failed: %v", err)
	}
	want := []float64{20, 50, 80, 110, 140}
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i, v := range want {
		if got[i] != v {
			t.Errorf("values[%d] = %v, want %v", i, got[i], v)
		}
	}
}

func TestReadSlabChunked2D(t *testing.T) {
	path := writeChunkedFixture(t)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	ds, err := f.OpenDataset("Jl")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}

	tests := []struct {
		name string
		sel  []Slab
		want []float64
	}{
		{
			name: "full extent through padded edge chunks",
			sel:  []Slab{{0, 4, 1}, {0, 5, 1}},
			want: []float64{
				0, 1, 2, 3, 4,
				5, 6, 7, 8, 9,
				10, 11, 12, 13, 14,
				15, 16, 17, 18, 19,
			},
		},
		{
			name: "strided both dimensions across chunks",
			sel:  []Slab{{1, 2, 2}, {0, 3, 2}},
			want: []float64{5, 7, 9, 15, 17, 19},
		},
		{
			name: "window inside one chunk",
			sel:  []Slab{{0, 2, 1}, {0, 3, 1}},
			want: []float64{0, 1, 2, 5, 6, 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ds.ReadSlab(tt.sel)
			if err != nil {
				t.Fatalf("ReadSlab failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d values, want %d", len(got), len(tt.want))
			}
			for i, v := range tt.want {
				if got[i] != v {
					t.Errorf("values[%d] = %v, want %v", i, got[i], v)
				}
			}
		})
	}
}

func TestReadSlabChunkedUnallocated(t *testing.T) {
	path := writeChunkedFixture(t)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	ds, err := f.OpenDataset("Sparse")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}

	values, err := ds.ReadFloat64()
	if err != nil {
		t.Fatalf("ReadFloat64 failed: %v", err)
	}
	if len(values) != 16 {
		t.Fatalf("got %d values, want 16", len(values))
	}
	for i, v := range values {
		want := float64(i) + 1
		if i >= 8 {
			want = 0 // never-written chunk reads as fill
		}
		if v != want {
			t.Fatalf("values[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestReadSlabValidation(t *testing.T) {
	path := writeFixture(t)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	ds, err := f.OpenDataset("data/0000000500/Rho")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}

	if _, err := ds.ReadSlab([]Slab{{0, 6, 1}}); err == nil {
		t.Error("rank mismatch accepted")
	}
	if _, err := ds.ReadSlab([]Slab{{0, 7, 1}, {0, 4, 1}}); err == nil {
		t.Error("out-of-range selection accepted")
	}
	if _, err := ds.ReadSlab([]Slab{{0, 6, 0}, {0, 4, 1}}); err == nil {
		t.Error("zero stride accepted")
	}
}

func TestCloseIdempotent(t *testing.T) {
	path := writeFixture(t)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, err := f.OpenDataset("data/0000000500/Ex"); !errors.Is(err, ErrClosed) {
		t.Errorf("open after close: got %v, want ErrClosed", err)
	}
}
