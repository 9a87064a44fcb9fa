package filter

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

// deflate undoes zlib compression (HDF5 filter 1).
type deflate struct{}

func newDeflate() *deflate { return &deflate{} }

func (f *deflate) ID() uint16 { return message.FilterDeflate }

func (f *deflate) Decode(input []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer zr.Close()

	output, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return output, nil
}
