package reg

import (
	"fmt"

	"github.com/sarchlab/regmap/bus"
)

// Provenance records where a flattened array element came from, so editors
// and code generators can group expanded registers back under their parent
// array.
type Provenance struct {
	// Array is the parent array name.
	Array string
	// Index is the element index within the array.
	Index int
	// Base is the parent array's base byte offset.
	Base uint32
	// Count is the parent array's element count.
	Count int
	// Stride is the byte distance between consecutive elements.
	Stride uint32
}

// Register is a 32-bit hardware register at a fixed bus address, owning a
// non-overlapping set of named bit fields. It holds no cached state: every
// operation is a fresh bus transaction, because device state changes
// independently of this model.
//
// The field layout is validated once, at construction. After that the only
// mutation paths are AddField and RemoveField, which re-run the same
// checks; interactive editors use them, everything else treats the layout
// as fixed.
type Register struct {
	name        string
	offset      uint32
	bus         bus.Bus
	fields      map[string]BitField
	order       []string
	resetSeed   uint32
	description string
	provenance  *Provenance
}

// FieldWrite is one entry of a multi-field write, applied in slice order.
type FieldWrite struct {
	Name  string
	Value uint32
}

// RegisterOption configures optional Register attributes.
type RegisterOption func(*Register)

// WithRegisterDescription attaches a human-readable description.
func WithRegisterDescription(d string) RegisterOption {
	return func(r *Register) {
		r.description = d
	}
}

// WithResetSeed sets the base word Reset starts from before folding in the
// per-field reset values. Registers without fields reset to exactly this
// word.
func WithResetSeed(v uint32) RegisterOption {
	return func(r *Register) {
		r.resetSeed = v
	}
}

// WithProvenance marks the register as a flattened element of a register
// array.
func WithProvenance(p Provenance) RegisterOption {
	return func(r *Register) {
		r.provenance = &p
	}
}

// NewRegister creates a register at the given byte offset, bound to b. The
// field set is checked for duplicate names and bit overlaps before
// returning; on failure no register is returned and the bus is never
// touched.
func NewRegister(name string, offset uint32, b bus.Bus, fields []BitField, opts ...RegisterOption) (*Register, error) {
	if name == "" {
		return nil, &ConfigError{Reason: "register name must not be empty"}
	}
	if b == nil {
		return nil, &ConfigError{Subject: name, Reason: "nil bus"}
	}
	if err := checkFieldSet(name, fields); err != nil {
		return nil, err
	}

	r := &Register{
		name:   name,
		offset: offset,
		bus:    b,
		fields: make(map[string]BitField, len(fields)),
	}
	for _, f := range fields {
		r.fields[f.Name()] = f
		r.order = append(r.order, f.Name())
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// checkFieldSet runs the 32-position occupancy check and the duplicate-name
// check over a candidate field set.
func checkFieldSet(regName string, fields []BitField) error {
	var occupant [32]string
	seen := make(map[string]bool, len(fields))

	for _, f := range fields {
		if seen[f.Name()] {
			return &DuplicateFieldError{Register: regName, Field: f.Name()}
		}
		seen[f.Name()] = true

		for bit := f.Offset(); bit < f.Offset()+f.Width(); bit++ {
			if occupant[bit] != "" {
				return &OverlapError{
					Register: regName,
					Bit:      bit,
					First:    occupant[bit],
					Second:   f.Name(),
				}
			}
			occupant[bit] = f.Name()
		}
	}
	return nil
}

// Name returns the register name.
func (r *Register) Name() string {
	return r.name
}

// Offset returns the register's byte offset on the bus.
func (r *Register) Offset() uint32 {
	return r.offset
}

// Description returns the human-readable description, if any.
func (r *Register) Description() string {
	return r.description
}

// Provenance returns array-expansion metadata for flattened array elements,
// or nil for ordinary registers.
func (r *Register) Provenance() *Provenance {
	return r.provenance
}

// Read returns the current 32-bit register word from the bus.
func (r *Register) Read() (uint32, error) {
	return r.bus.ReadWord(r.offset)
}

// Write stores a full 32-bit word to the register, ignoring field access
// policies. Field-level policy enforcement happens in WriteField; Write is
// the raw word path that drivers and reset logic use.
func (r *Register) Write(value uint32) error {
	return r.bus.WriteWord(r.offset, value)
}

// Fields returns the field names in definition order.
func (r *Register) Fields() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Field returns the named field's definition.
func (r *Register) Field(name string) (BitField, error) {
	f, ok := r.fields[name]
	if !ok {
		return BitField{}, &UnknownFieldError{Register: r.name, Field: name}
	}
	return f, nil
}

// ReadField reads the register and extracts the named field. It fails
// without touching the bus for unknown names and write-only fields.
func (r *Register) ReadField(name string) (uint32, error) {
	f, ok := r.fields[name]
	if !ok {
		return 0, &UnknownFieldError{Register: r.name, Field: name}
	}
	if !f.Access().Readable() {
		return 0, &AccessError{
			Register: r.name,
			Field:    name,
			Reason:   "field is write-only",
		}
	}
	word, err := r.Read()
	if err != nil {
		return 0, err
	}
	return f.Extract(word), nil
}

// WriteField writes one field according to its access policy.
//
// Read-write fields get a standard read-modify-write. Write-only fields
// compose the word from zero, skipping the read. For write-1-to-clear
// fields the value is a clear mask: the word written carries 1s only at the
// requested bit positions, so unrelated status bits are never cleared by
// accident.
//
// All validation happens before any bus access, so a rejected call leaves
// device state untouched.
func (r *Register) WriteField(name string, value uint32) error {
	f, ok := r.fields[name]
	if !ok {
		return &UnknownFieldError{Register: r.name, Field: name}
	}
	if !f.Access().Writable() {
		return &AccessError{
			Register: r.name,
			Field:    name,
			Reason:   "field is read-only",
		}
	}
	if value > f.MaxValue() {
		return &AccessError{
			Register: r.name,
			Field:    name,
			Reason: fmt.Sprintf("value 0x%X exceeds field maximum 0x%X",
				value, f.MaxValue()),
		}
	}

	switch f.Access() {
	case ReadWrite1Clear:
		// Clear mask: only the bits to clear are written as 1.
		word := (value << f.Offset()) & f.Mask()
		return r.Write(word)
	case WriteOnly:
		word, err := f.Insert(0, value)
		if err != nil {
			return err
		}
		return r.Write(word)
	default:
		current, err := r.Read()
		if err != nil {
			return err
		}
		word, err := f.Insert(current, value)
		if err != nil {
			return err
		}
		return r.Write(word)
	}
}

// WriteFields applies several field writes as one bus transaction pair:
// every entry is validated first, then at most one read seeds the
// accumulator (only when some entry needs current state), each transform is
// applied in entry order, and exactly one word write goes out.
func (r *Register) WriteFields(entries []FieldWrite) error {
	needRead := false
	for _, e := range entries {
		f, ok := r.fields[e.Name]
		if !ok {
			return &UnknownFieldError{Register: r.name, Field: e.Name}
		}
		if !f.Access().Writable() {
			return &AccessError{
				Register: r.name,
				Field:    e.Name,
				Reason:   "field is read-only",
			}
		}
		if e.Value > f.MaxValue() {
			return &AccessError{
				Register: r.name,
				Field:    e.Name,
				Reason: fmt.Sprintf("value 0x%X exceeds field maximum 0x%X",
					e.Value, f.MaxValue()),
			}
		}
		if f.Access() == ReadWrite || f.Access() == ReadWrite1Clear {
			needRead = true
		}
	}

	var acc uint32
	if needRead {
		word, err := r.Read()
		if err != nil {
			return err
		}
		acc = word
	}
	for _, e := range entries {
		f := r.fields[e.Name]
		word, err := f.Insert(acc, e.Value)
		if err != nil {
			return err
		}
		acc = word
	}
	return r.Write(acc)
}

// ReadAllFields reads the register once and extracts every readable field.
// Write-only fields are omitted from the result.
func (r *Register) ReadAllFields() (map[string]uint32, error) {
	word, err := r.Read()
	if err != nil {
		return nil, err
	}
	values := make(map[string]uint32, len(r.fields))
	for name, f := range r.fields {
		if f.Access().Readable() {
			values[name] = f.Extract(word)
		}
	}
	return values, nil
}

// ResetValue returns the word Reset would write: the reset seed with every
// writable field's reset value folded in. Read-only fields are skipped, so
// their documented reset values never leak into the written word.
func (r *Register) ResetValue() uint32 {
	acc := r.resetSeed
	for _, name := range r.order {
		f := r.fields[name]
		if f.Access() == ReadOnly {
			continue
		}
		// Reset values are validated against the field width at
		// construction, so Insert cannot fail here.
		acc, _ = f.Insert(acc, f.ResetValue())
	}
	return acc
}

// Reset writes the register's reset value as a single word write.
func (r *Register) Reset() error {
	return r.Write(r.ResetValue())
}

// AddField extends the register's field layout. The combined set is
// re-checked for duplicates and overlaps; on failure the layout is left
// unchanged. This is the controlled mutation path interactive editors use.
func (r *Register) AddField(f BitField) error {
	candidate := make([]BitField, 0, len(r.order)+1)
	for _, name := range r.order {
		candidate = append(candidate, r.fields[name])
	}
	candidate = append(candidate, f)
	if err := checkFieldSet(r.name, candidate); err != nil {
		return err
	}
	r.fields[f.Name()] = f
	r.order = append(r.order, f.Name())
	return nil
}

// RemoveField deletes a field from the layout.
func (r *Register) RemoveField(name string) error {
	if _, ok := r.fields[name]; !ok {
		return &UnknownFieldError{Register: r.name, Field: name}
	}
	delete(r.fields, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// String renders the register header for diagnostics and tooling output.
func (r *Register) String() string {
	return fmt.Sprintf("%s @ 0x%08X (%d fields)", r.name, r.offset, len(r.fields))
}
