// Command fieldinfo inspects a field diagnostics file: it prints the
// catalog summary and optionally extracts a windowed read of one field to
// CSV with summary statistics.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Dartrisen/smilei-diagnostics/fields"
)

func main() {
	var (
		field   = flag.String("field", "", "field to extract (default: print file summary)")
		time    = flag.Float64("time", 0, "requested timestep, resolved to the nearest stored one")
		theta   = flag.Float64("theta", math.NaN(), "reconstruction angle in radians for mode-decomposed fields")
		output  = flag.String("o", "", "write the extracted window as CSV to this file")
		l0      = flag.Float64("l0", 0, "divide axis coordinates by this reference length")
		verbose = flag.Bool("v", false, "log reader activity to stderr")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: fieldinfo [flags] <Fields.h5>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	opts := []fields.Option{}
	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		opts = append(opts, fields.WithLogger(logger))
	}

	r, err := fields.Open(flag.Arg(0), opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	defer r.Close()

	if *field == "" {
		printInfo(r)
		return
	}

	if err := extract(r, *field, *time, *theta, *output, *l0); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func printInfo(r *fields.Reader) {
	info := r.GetInfo()

	fmt.Printf("File:        %s\n", info.Path)
	fmt.Printf("Shape:       %v\n", info.Shape)
	fmt.Printf("Offset:      %v\n", info.Offset)
	fmt.Printf("Spacing:     %v\n", info.Spacing)
	fmt.Printf("Timesteps:   %d", len(info.Timesteps))
	if len(info.Timesteps) > 0 {
		first := info.Timesteps[0]
		last := info.Timesteps[len(info.Timesteps)-1]
		fmt.Printf(" (%d .. %d)", first, last)
	}
	fmt.Println()
	fmt.Printf("Cylindrical: %v\n", info.Cylindrical)

	fmt.Println("Fields:")
	for _, name := range info.Fields {
		if modes, ok := info.Modes[name]; ok {
			fmt.Printf("  %s (modes %v)\n", name, modes)
		} else {
			fmt.Printf("  %s\n", name)
		}
	}
}

func extract(r *fields.Reader, field string, time, theta float64, output string, l0 float64) error {
	subset := &fields.Subset{}
	if !math.IsNaN(theta) {
		subset.Theta = &theta
	}

	grid, err := r.GetFieldAtTime(field, time, subset)
	if err != nil {
		return err
	}

	fmt.Printf("Field:  %s\n", field)
	fmt.Printf("Shape:  %v\n", grid.Shape)
	if len(grid.Data) > 0 {
		fmt.Printf("Min:    %g\n", floats.Min(grid.Data))
		fmt.Printf("Max:    %g\n", floats.Max(grid.Data))
		fmt.Printf("Mean:   %g\n", stat.Mean(grid.Data, nil))
		fmt.Printf("StdDev: %g\n", stat.StdDev(grid.Data, nil))
	}

	if output == "" {
		return nil
	}
	return writeCSV(output, r.GetAxes(), grid, l0)
}

// writeCSV writes the window as rows of coordinate plus values: one value
// column for 1-D data, one column per second-dimension sample otherwise.
func writeCSV(path string, axes [][]float64, grid *fields.Grid, l0 float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	rows := int64(1)
	if len(grid.Shape) > 0 {
		rows = grid.Shape[0]
	}
	cols := int64(len(grid.Data))
	if rows > 0 {
		cols = int64(len(grid.Data)) / rows
	}

	coord := func(i int64) float64 {
		if len(axes) == 0 || int(i) >= len(axes[0]) {
			return float64(i)
		}
		c := axes[0][i]
		if l0 > 0 {
			c /= l0
		}
		return c
	}

	record := make([]string, 1+cols)
	for i := int64(0); i < rows; i++ {
		record[0] = strconv.FormatFloat(coord(i), 'g', -1, 64)
		for j := int64(0); j < cols; j++ {
			record[1+j] = strconv.FormatFloat(grid.Data[i*cols+j], 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	return w.Error()
}
