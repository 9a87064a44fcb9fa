// Package fields reads particle-in-cell field diagnostic files lazily: it
// catalogs timestep groups and field datasets at open, then serves windowed
// strided reads without ever loading a full snapshot. Azimuthally
// mode-decomposed fields can be reconstructed at an arbitrary angle from
// their stored Fourier modes.
package fields

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	dataGroup     = "data"
	modeSeparator = "_mode_"

	attrGridGlobalOffset = "gridGlobalOffset"
	attrGridSpacing      = "gridSpacing"
)

// Reader is a lazy field reader over one diagnostics file. It is not safe
// for concurrent use.
type Reader struct {
	path string
	c    container
	log  *zap.Logger

	timesteps []int64          // ascending
	groups    map[int64]string // timestep -> group path

	fields []string // stored field names, catalog order

	// Grid metadata, captured from the first field of the first timestep.
	// Shape is assumed constant across timesteps and fields; this is not
	// re-verified on later reads.
	shape   []uint64
	offset  []float64
	spacing []float64
	axes    [][]float64

	cylindrical bool
	modes       map[string][]int // base field name -> ascending mode numbers

	closed bool
}

// Open catalogs the file and captures its grid metadata. The returned
// reader holds the file open until Close.
func Open(path string, opts ...Option) (*Reader, error) {
	options := defaultReaderOptions()
	for _, opt := range opts {
		opt(options)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}

	c, err := openContainer(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}
	return newReader(path, c, options)
}

// newReader builds a reader over an already opened container, closing it on
// any construction failure.
func newReader(path string, c container, options *readerOptions) (*Reader, error) {
	r := &Reader{
		path:   path,
		c:      c,
		log:    options.logger,
		groups: make(map[int64]string),
		modes:  make(map[string][]int),
	}

	if err := r.init(options.fieldNames); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}

	r.log.Info("field reader initialized",
		zap.String("path", path),
		zap.Int("timesteps", len(r.timesteps)),
		zap.Int("fields", len(r.fields)),
		zap.Bool("cylindrical", r.cylindrical))

	return r, nil
}

func (r *Reader) init(fieldFilter []string) error {
	if err := r.buildCatalog(fieldFilter); err != nil {
		return err
	}
	if err := r.readGridMetadata(); err != nil {
		return err
	}
	r.buildModeIndex()
	r.axes = buildAxes(r.shape, r.offset, r.spacing)
	return nil
}

// buildCatalog enumerates timestep groups and the fields of the first one.
func (r *Reader) buildCatalog(fieldFilter []string) error {
	names, err := r.c.Members(dataGroup)
	if err != nil {
		return fmt.Errorf("enumerating timestep groups: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no timestep groups under %q", dataGroup)
	}

	for _, name := range names {
		ts, err := parseTimestep(name)
		if err != nil {
			return err
		}
		r.timesteps = append(r.timesteps, ts)
		r.groups[ts] = dataGroup + "/" + name
	}
	sort.Slice(r.timesteps, func(i, j int) bool { return r.timesteps[i] < r.timesteps[j] })

	first := r.groups[r.timesteps[0]]
	present, err := r.c.Members(first)
	if err != nil {
		return fmt.Errorf("listing fields of %s: %w", first, err)
	}

	if fieldFilter == nil {
		r.fields = present
	} else {
		presentSet := make(map[string]bool, len(present))
		for _, name := range present {
			presentSet[name] = true
		}
		for _, name := range fieldFilter {
			if presentSet[name] {
				r.fields = append(r.fields, name)
			}
		}
	}
	if len(r.fields) == 0 {
		return fmt.Errorf("no fields available in %s", first)
	}

	return nil
}

// parseTimestep extracts the trailing zero-padded decimal id of a timestep
// group name.
func parseTimestep(name string) (int64, error) {
	end := len(name)
	start := end
	for start > 0 && name[start-1] >= '0' && name[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, fmt.Errorf("timestep group %q has no numeric suffix", name)
	}
	ts, err := strconv.ParseInt(name[start:end], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing timestep of group %q: %w", name, err)
	}
	return ts, nil
}

// readGridMetadata captures shape, offset and spacing from the first field
// of the first timestep. Absent attributes default to zero offset and unit
// spacing.
func (r *Reader) readGridMetadata() error {
	first := r.datasetPath(r.timesteps[0], r.fields[0])

	shape, err := r.c.Shape(first)
	if err != nil {
		return fmt.Errorf("reading shape of %s: %w", first, err)
	}
	r.shape = shape

	offset, ok, err := r.c.AttrFloat64(first, attrGridGlobalOffset)
	if err != nil {
		return err
	}
	if !ok {
		offset = make([]float64, len(shape))
	}
	r.offset = offset

	spacing, ok, err := r.c.AttrFloat64(first, attrGridSpacing)
	if err != nil {
		return err
	}
	if !ok {
		spacing = make([]float64, len(shape))
		for i := range spacing {
			spacing[i] = 1
		}
	}
	r.spacing = spacing

	return nil
}

// buildModeIndex groups fields named {base}_mode_{n} by base name.
func (r *Reader) buildModeIndex() {
	for _, field := range r.fields {
		idx := strings.LastIndex(field, modeSeparator)
		if idx < 0 {
			continue
		}
		mode, err := strconv.Atoi(field[idx+len(modeSeparator):])
		if err != nil || mode < 0 {
			continue
		}
		base := field[:idx]
		r.modes[base] = append(r.modes[base], mode)
		r.cylindrical = true
	}
	for base := range r.modes {
		sort.Ints(r.modes[base])
	}
}

func buildAxes(shape []uint64, offset, spacing []float64) [][]float64 {
	axes := make([][]float64, len(shape))
	for d := range shape {
		axis := make([]float64, shape[d])
		for i := range axis {
			axis[i] = offset[d] + float64(i)*spacing[d]
		}
		axes[d] = axis
	}
	return axes
}

func (r *Reader) datasetPath(timestep int64, field string) string {
	return r.groups[timestep] + "/" + field
}

// Close releases the underlying file. Closing twice is a no-op. Buffers
// returned by earlier reads stay valid.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.c.Close()
}

// Timesteps returns the stored timestep ids in ascending order.
func (r *Reader) Timesteps() []int64 {
	out := make([]int64, len(r.timesteps))
	copy(out, r.timesteps)
	return out
}

// GetAxes returns one physical coordinate array per dimension, with
// value[i] = offset[d] + i*spacing[d]. The arrays are caller-owned copies.
func (r *Reader) GetAxes() [][]float64 {
	axes := make([][]float64, len(r.axes))
	for d, axis := range r.axes {
		axes[d] = make([]float64, len(axis))
		copy(axes[d], axis)
	}
	return axes
}

// GetAvailableFields returns the readable field names. For cylindrical
// files these are base names; the per-mode dataset names are never exposed.
func (r *Reader) GetAvailableFields() []string {
	if !r.cylindrical {
		out := make([]string, len(r.fields))
		copy(out, r.fields)
		return out
	}

	var out []string
	for _, field := range r.fields {
		if !strings.Contains(field, modeSeparator) {
			out = append(out, field)
		}
	}
	for base := range r.modes {
		out = append(out, base)
	}
	sort.Strings(out)
	return out
}

// Info is a read-only snapshot of the reader's catalog and grid metadata.
type Info struct {
	Path        string
	Shape       []int64
	Offset      []float64
	Spacing     []float64
	Timesteps   []int64
	Cylindrical bool
	Fields      []string
	Modes       map[string][]int
}

// GetInfo assembles an Info snapshot. All slices are copies.
func (r *Reader) GetInfo() Info {
	info := Info{
		Path:        r.path,
		Shape:       make([]int64, len(r.shape)),
		Offset:      make([]float64, len(r.offset)),
		Spacing:     make([]float64, len(r.spacing)),
		Timesteps:   r.Timesteps(),
		Cylindrical: r.cylindrical,
		Fields:      r.GetAvailableFields(),
	}
	for i, v := range r.shape {
		info.Shape[i] = int64(v)
	}
	copy(info.Offset, r.offset)
	copy(info.Spacing, r.spacing)

	if r.cylindrical {
		info.Modes = make(map[string][]int, len(r.modes))
		for base, modes := range r.modes {
			info.Modes[base] = append([]int(nil), modes...)
		}
	}
	return info
}

// resolveTimestep picks the stored id nearest to the request. Ties go to
// the smaller id.
func (r *Reader) resolveTimestep(timestep float64) (int64, error) {
	if math.IsNaN(timestep) || math.IsInf(timestep, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimestep, timestep)
	}

	best := r.timesteps[0]
	bestDist := math.Abs(float64(best) - timestep)
	for _, ts := range r.timesteps[1:] {
		dist := math.Abs(float64(ts) - timestep)
		if dist < bestDist {
			best = ts
			bestDist = dist
		}
	}
	return best, nil
}

// GetFieldAtTime reads a rectangular window of the named field at the
// stored timestep nearest to the request.
//
// Three cases: a plainly stored field is read directly; a mode-decomposed
// field without Subset.Theta returns its axisymmetric mode 0; with Theta
// set, the field is reconstructed at that angle as the weighted mode sum
// cos(m·theta)·Re(m) + sin(m·theta)·Im(m). Mode 0 must be stored; other
// missing modes are skipped.
func (r *Reader) GetFieldAtTime(field string, timestep float64, subset *Subset) (*Grid, error) {
	if r.closed {
		return nil, ErrClosed
	}

	ts, err := r.resolveTimestep(timestep)
	if err != nil {
		return nil, err
	}

	if r.hasField(field) {
		return r.readSimple(field, ts, subset)
	}

	modes, ok := r.modes[field]
	if ok {
		if theta := subset.theta(); theta != nil {
			return r.readReconstructed(field, modes, ts, *theta, subset)
		}
		return r.readMode0(field, ts, subset)
	}

	return nil, fmt.Errorf("%w: %q at timestep %d", ErrFieldNotFound, field, ts)
}

func (r *Reader) hasField(name string) bool {
	for _, f := range r.fields {
		if f == name {
			return true
		}
	}
	return false
}

// readSimple reads a plainly stored field with the resolved selection.
func (r *Reader) readSimple(field string, ts int64, subset *Subset) (*Grid, error) {
	path := r.datasetPath(ts, field)

	shape, err := r.c.Shape(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q at timestep %d: %w", field, ts, err)
	}
	sel, err := resolveSelection(shape, subset.ranges())
	if err != nil {
		return nil, fmt.Errorf("reading %q at timestep %d: %w", field, ts, err)
	}

	data, err := r.c.ReadSlab(path, sel)
	if err != nil {
		return nil, fmt.Errorf("reading %q at timestep %d: %w", field, ts, err)
	}
	return &Grid{Data: data, Shape: selectionShape(sel)}, nil
}

// readMode0 returns the axisymmetric component of a mode-decomposed field.
func (r *Reader) readMode0(field string, ts int64, subset *Subset) (*Grid, error) {
	path := r.modePath(ts, field, 0)
	if _, err := r.c.Shape(path); err != nil {
		return nil, fmt.Errorf("%w: %q has no mode 0 at timestep %d", ErrFieldNotFound, field, ts)
	}
	return r.readSimple(field+modeSeparator+"0", ts, subset)
}

// readReconstructed sums the stored Fourier modes of a field at angle
// theta. Mode 0 fixes the result shape; real and imaginary parts of higher
// modes sit interleaved along the second dimension, so their selections are
// the caller's selection with start and stride doubled, the imaginary part
// shifted one sample right.
func (r *Reader) readReconstructed(field string, modes []int, ts int64, theta float64, subset *Subset) (*Grid, error) {
	mode0 := r.modePath(ts, field, 0)
	shape, err := r.c.Shape(mode0)
	if err != nil {
		return nil, fmt.Errorf("%w: %q has no mode 0 at timestep %d", ErrFieldNotFound, field, ts)
	}

	sel, err := resolveSelection(shape, subset.ranges())
	if err != nil {
		return nil, fmt.Errorf("reconstructing %q at timestep %d: %w", field, ts, err)
	}

	interDim := 1
	if len(shape) < 2 {
		interDim = 0
	}

	result := make([]float64, selectionCount(sel))

	for _, mode := range modes {
		path := r.modePath(ts, field, mode)

		if mode == 0 {
			data, err := r.c.ReadSlab(mode0, sel)
			if err != nil {
				return nil, fmt.Errorf("reconstructing %q at timestep %d: %w", field, ts, err)
			}
			for i, v := range data {
				result[i] += v
			}
			continue
		}

		if _, err := r.c.Shape(path); err != nil {
			r.log.Debug("skipping missing mode dataset",
				zap.String("field", field),
				zap.Int("mode", mode),
				zap.Int64("timestep", ts))
			continue
		}

		cosW := math.Cos(float64(mode) * theta)
		sinW := math.Sin(float64(mode) * theta)

		re, err := r.c.ReadSlab(path, interleave(sel, interDim, 0))
		if err != nil {
			return nil, fmt.Errorf("reconstructing %q mode %d at timestep %d: %w", field, mode, ts, err)
		}
		im, err := r.c.ReadSlab(path, interleave(sel, interDim, 1))
		if err != nil {
			return nil, fmt.Errorf("reconstructing %q mode %d at timestep %d: %w", field, mode, ts, err)
		}
		for i := range result {
			result[i] += cosW*re[i] + sinW*im[i]
		}
	}

	return &Grid{Data: result, Shape: selectionShape(sel)}, nil
}

func (r *Reader) modePath(ts int64, field string, mode int) string {
	return r.datasetPath(ts, fmt.Sprintf("%s%s%d", field, modeSeparator, mode))
}
