package hdf5

import (
	"fmt"

	"github.com/Dartrisen/smilei-diagnostics/internal/dtype"
	"github.com/Dartrisen/smilei-diagnostics/internal/message"
	"github.com/Dartrisen/smilei-diagnostics/internal/object"
)

// Attribute is an attribute attached to a group or dataset.
type Attribute struct {
	msg  *message.Attribute
	file *File
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.msg.Name
}

// Shape returns the attribute value dimensions, nil for scalars.
func (a *Attribute) Shape() []uint64 {
	if a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar() {
		return nil
	}
	return a.msg.Dataspace.Dimensions
}

// NumElements returns the total number of elements.
func (a *Attribute) NumElements() uint64 {
	if a.msg.Dataspace == nil {
		return 1
	}
	return a.msg.Dataspace.NumElements()
}

// IsScalar reports whether the attribute holds a single value.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar()
}

// ReadFloat64 decodes the attribute's numeric payload as float64 values.
func (a *Attribute) ReadFloat64() ([]float64, error) {
	if a.msg.Datatype == nil {
		return nil, fmt.Errorf("attribute %q has no datatype", a.msg.Name)
	}
	if a.msg.Data == nil {
		return nil, fmt.Errorf("attribute %q has no data", a.msg.Name)
	}
	return dtype.ToFloat64(a.msg.Datatype, a.msg.Data, a.NumElements())
}

// ReadScalarFloat64 reads a single-valued numeric attribute.
func (a *Attribute) ReadScalarFloat64() (float64, error) {
	vals, err := a.ReadFloat64()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("attribute %q is empty", a.msg.Name)
	}
	return vals[0], nil
}

func findAttr(header *object.Header, f *File, name string) *Attribute {
	for _, msg := range header.GetMessages(message.TypeAttribute) {
		attr := msg.(*message.Attribute)
		if attr.Name == name {
			return &Attribute{msg: attr, file: f}
		}
	}
	return nil
}

func attrNames(header *object.Header) []string {
	var names []string
	for _, msg := range header.GetMessages(message.TypeAttribute) {
		names = append(names, msg.(*message.Attribute).Name)
	}
	return names
}
