package schema

import (
	"fmt"

	"github.com/sarchlab/regmap/reg"
)

// MemoryMap is the expanded, immutable form of a memory-map document:
// templates resolved, reserved gaps applied, register arrays either
// flattened or recorded as accessor descriptors, and every offset made
// explicit. It is the input to Validate and to the loader's construction
// pass.
type MemoryMap struct {
	Name        string
	Description string
	Blocks      []Block
}

// Block is one address block of the expanded map. Register offsets are
// relative to BaseAddress.
type Block struct {
	Name        string
	BaseAddress uint64
	Range       uint64
	Usage       string
	Description string
	Registers   []RegisterDescriptor
	Arrays      []ArrayDescriptor
}

// RegisterDescriptor describes one concrete register of the expanded map.
type RegisterDescriptor struct {
	Name        string
	Offset      uint32
	Size        int
	Access      reg.Access
	Description string

	// HasReset marks an explicit register-level reset value; it seeds the
	// reset word under the per-field reset values.
	HasReset   bool
	ResetValue uint32

	Fields []FieldDescriptor

	// Provenance is set on registers produced by flattening a counted
	// register group, so UIs can group them under the parent array.
	Provenance *reg.Provenance
}

// FieldDescriptor describes one bit field of the expanded map.
type FieldDescriptor struct {
	Name        string
	Offset      int
	Width       int
	Access      reg.Access
	Reset       uint32
	Description string
}

// ArrayDescriptor describes an on-demand register array: a counted register
// with a field template and no children. The loader turns it into a
// reg.ArrayAccessor rather than flattening it.
type ArrayDescriptor struct {
	Name        string
	Base        uint32
	Count       int
	Stride      uint32
	Description string
	Fields      []FieldDescriptor
}

// BitFields converts the descriptor's fields into reg.BitField values.
func (d RegisterDescriptor) BitFields() ([]reg.BitField, error) {
	return buildBitFields(d.Fields)
}

// BitFields converts the array template's fields into reg.BitField values.
func (d ArrayDescriptor) BitFields() ([]reg.BitField, error) {
	return buildBitFields(d.Fields)
}

func buildBitFields(descs []FieldDescriptor) ([]reg.BitField, error) {
	fields := make([]reg.BitField, 0, len(descs))
	for _, fd := range descs {
		f, err := reg.NewBitField(fd.Name, fd.Offset, fd.Width, fd.Access,
			reg.WithReset(fd.Reset),
			reg.WithDescription(fd.Description))
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// End returns the first byte offset past the register.
func (d RegisterDescriptor) End() uint32 {
	return d.Offset + uint32(d.Size/8)
}

// End returns the first byte offset past the array.
func (d ArrayDescriptor) End() uint32 {
	return d.Base + uint32(d.Count)*d.Stride
}

// String renders the descriptor header for diagnostics and tooling output.
func (d RegisterDescriptor) String() string {
	return fmt.Sprintf("%s @ 0x%08X", d.Name, d.Offset)
}
