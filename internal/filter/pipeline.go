package filter

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/internal/message"
)

// Pipeline decodes chunk data through the dataset's filter stack.
type Pipeline struct {
	filters []Filter
}

// NewPipeline builds a decoding pipeline from a filter pipeline message.
// A nil or empty message yields an empty, pass-through pipeline.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, fmt.Errorf("creating filter %d: %w", info.ID, err)
		}
		if f != nil {
			p.filters = append(p.filters, f)
		}
	}
	return p, nil
}

// Decode undoes the pipeline in reverse order. Bit i of filterMask marks
// filter i as skipped for this chunk.
func (p *Pipeline) Decode(input []byte, filterMask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if filterMask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		data, err = p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", p.filters[i].ID(), err)
		}
	}
	return data, nil
}

// Empty reports whether the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}
