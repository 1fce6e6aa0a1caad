package reg

import "fmt"

// BitField is a named, contiguous bit range within a 32-bit register. It is
// a value object: construction validates the geometry once, and extract and
// insert are pure functions of register words.
type BitField struct {
	name        string
	offset      int
	width       int
	access      Access
	reset       uint32
	description string
}

// FieldOption configures optional BitField attributes.
type FieldOption func(*BitField)

// WithReset sets the field's reset value. The value is validated against
// the field width during construction.
func WithReset(v uint32) FieldOption {
	return func(f *BitField) {
		f.reset = v
	}
}

// WithDescription attaches a human-readable description to the field.
func WithDescription(d string) FieldOption {
	return func(f *BitField) {
		f.description = d
	}
}

// NewBitField creates a bit field covering width bits starting at offset.
// It fails with a ConfigError when the range does not fit a 32-bit word or
// a supplied reset value does not fit the field.
func NewBitField(name string, offset, width int, access Access, opts ...FieldOption) (BitField, error) {
	f := BitField{
		name:   name,
		offset: offset,
		width:  width,
		access: access,
	}
	for _, opt := range opts {
		opt(&f)
	}

	if name == "" {
		return BitField{}, &ConfigError{Reason: "field name must not be empty"}
	}
	if width < 1 || width > 32 {
		return BitField{}, &ConfigError{
			Subject: name,
			Reason:  fmt.Sprintf("width %d outside [1, 32]", width),
		}
	}
	if offset < 0 {
		return BitField{}, &ConfigError{
			Subject: name,
			Reason:  fmt.Sprintf("offset %d is negative", offset),
		}
	}
	if offset+width > 32 {
		return BitField{}, &ConfigError{
			Subject: name,
			Reason: fmt.Sprintf("bits [%d:%d] exceed the 32-bit word",
				offset+width-1, offset),
		}
	}
	if access < ReadOnly || access > ReadWrite1Clear {
		return BitField{}, &ConfigError{
			Subject: name,
			Reason:  fmt.Sprintf("invalid access policy %d", int(access)),
		}
	}
	if f.reset > f.MaxValue() {
		return BitField{}, &ConfigError{
			Subject: name,
			Reason: fmt.Sprintf("reset value 0x%X exceeds field maximum 0x%X",
				f.reset, f.MaxValue()),
		}
	}
	return f, nil
}

// Name returns the field name, unique within its register.
func (f BitField) Name() string {
	return f.name
}

// Offset returns the bit position of the field's least significant bit.
func (f BitField) Offset() int {
	return f.offset
}

// Width returns the field width in bits.
func (f BitField) Width() int {
	return f.width
}

// Access returns the field's access policy.
func (f BitField) Access() Access {
	return f.access
}

// Description returns the human-readable description, if any.
func (f BitField) Description() string {
	return f.description
}

// ResetValue returns the field's reset value. Fields without an explicit
// reset value report 0.
func (f BitField) ResetValue() uint32 {
	return f.reset
}

// Mask returns the field's bit mask within the register word.
func (f BitField) Mask() uint32 {
	return f.MaxValue() << f.offset
}

// MaxValue returns the largest value the field can hold.
func (f BitField) MaxValue() uint32 {
	return uint32((uint64(1) << f.width) - 1)
}

// Extract returns the field value contained in regValue.
func (f BitField) Extract(regValue uint32) uint32 {
	return (regValue >> f.offset) & f.MaxValue()
}

// Insert returns regValue with the field set to fieldValue. Bits outside
// the field's mask are never perturbed. It fails when fieldValue exceeds
// the field maximum.
func (f BitField) Insert(regValue, fieldValue uint32) (uint32, error) {
	if fieldValue > f.MaxValue() {
		return 0, &AccessError{
			Field: f.name,
			Reason: fmt.Sprintf("value 0x%X exceeds field maximum 0x%X",
				fieldValue, f.MaxValue()),
		}
	}
	return (regValue &^ f.Mask()) | ((fieldValue << f.offset) & f.Mask()), nil
}

// String renders the field in "name[hi:lo] access" form for diagnostics and
// tooling output.
func (f BitField) String() string {
	if f.width == 1 {
		return fmt.Sprintf("%s[%d] %s", f.name, f.offset, f.access)
	}
	return fmt.Sprintf("%s[%d:%d] %s", f.name, f.offset+f.width-1, f.offset, f.access)
}
