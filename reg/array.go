package reg

import (
	"fmt"

	"github.com/sarchlab/regmap/bus"
)

// ArrayInfo summarizes an array's geometry for editors and code
// generators.
type ArrayInfo struct {
	Name      string
	Base      uint32
	Count     int
	Stride    uint32
	TotalSize uint32
	// AddrFirst and AddrLast bound the byte addresses the array occupies,
	// inclusive.
	AddrFirst uint32
	AddrLast  uint32
}

// ArrayAccessor produces registers for the elements of a repeated block,
// Block-RAM style. It owns no concrete Register instances: every At call
// constructs a fresh one at base + index*stride, so an array with thousands
// of elements costs nothing until an element is touched. There is no
// identity guarantee across repeated access to the same index.
type ArrayAccessor struct {
	name        string
	base        uint32
	count       int
	stride      uint32
	template    []BitField
	bus         bus.Bus
	description string
}

// NewArrayAccessor creates an accessor for count elements starting at base,
// spaced stride bytes apart. The field template is shared by every element
// and validated once here, so At never fails on layout.
func NewArrayAccessor(name string, base uint32, count int, stride uint32, template []BitField, b bus.Bus, description string) (*ArrayAccessor, error) {
	if name == "" {
		return nil, &ConfigError{Reason: "array name must not be empty"}
	}
	if b == nil {
		return nil, &ConfigError{Subject: name, Reason: "nil bus"}
	}
	if count < 1 {
		return nil, &ConfigError{
			Subject: name,
			Reason:  fmt.Sprintf("count %d must be at least 1", count),
		}
	}
	if stride == 0 || stride%4 != 0 {
		return nil, &ConfigError{
			Subject: name,
			Reason:  fmt.Sprintf("stride %d is not a positive word-aligned byte count", stride),
		}
	}
	if err := checkFieldSet(name, template); err != nil {
		return nil, err
	}

	return &ArrayAccessor{
		name:        name,
		base:        base,
		count:       count,
		stride:      stride,
		template:    template,
		bus:         b,
		description: description,
	}, nil
}

// Name returns the array name.
func (a *ArrayAccessor) Name() string {
	return a.name
}

// Len returns the element count.
func (a *ArrayAccessor) Len() int {
	return a.count
}

// Description returns the human-readable description, if any.
func (a *ArrayAccessor) Description() string {
	return a.description
}

// At constructs the register for element i, named "name[i]", at
// base + i*stride. Indexes outside [0, Len()) fail with OutOfRangeError.
func (a *ArrayAccessor) At(i int) (*Register, error) {
	if i < 0 || i >= a.count {
		return nil, &OutOfRangeError{Array: a.name, Index: i, Count: a.count}
	}
	offset := a.base + uint32(i)*a.stride
	return NewRegister(
		fmt.Sprintf("%s[%d]", a.name, i),
		offset,
		a.bus,
		a.template,
		WithRegisterDescription(a.description),
	)
}

// Info returns the array geometry.
func (a *ArrayAccessor) Info() ArrayInfo {
	total := uint32(a.count) * a.stride
	return ArrayInfo{
		Name:      a.name,
		Base:      a.base,
		Count:     a.count,
		Stride:    a.stride,
		TotalSize: total,
		AddrFirst: a.base,
		AddrLast:  a.base + total - 1,
	}
}

// String renders the array header for diagnostics and tooling output.
func (a *ArrayAccessor) String() string {
	return fmt.Sprintf("%s[%d] @ 0x%08X stride %d", a.name, a.count, a.base, a.stride)
}
