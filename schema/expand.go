package schema

import (
	"fmt"
	"strings"

	"github.com/sarchlab/regmap/reg"
)

// Expand turns a parsed document into its concrete memory map: templates
// are instantiated, reserved entries advance the offset cursor, counted
// register groups are flattened with provenance, and counted registers
// without children become array descriptors. Imports must already be
// merged; the loader handles that before calling Expand.
func Expand(doc *Document) (*MemoryMap, error) {
	m := &MemoryMap{
		Name:        doc.Name,
		Description: doc.Description,
	}
	for _, bd := range doc.AddressBlocks {
		block, err := expandBlock(doc, bd)
		if err != nil {
			return nil, fmt.Errorf("address block %s: %w", bd.Name, err)
		}
		m.Blocks = append(m.Blocks, *block)
	}
	return m, nil
}

// expandBlock walks a block's register list in document order, maintaining
// the auto-offset cursor.
func expandBlock(doc *Document, bd BlockDef) (*Block, error) {
	block := &Block{
		Name:        bd.Name,
		BaseAddress: bd.BaseAddress,
		Range:       bd.Range,
		Usage:       bd.Usage,
		Description: bd.Description,
	}

	cursor := uint32(0)
	for _, def := range bd.Registers {
		switch {
		case def.Reserved > 0:
			if def.Name != "" || def.Count > 0 || def.Generate != nil {
				return nil, &reg.ConfigError{
					Subject: def.Name,
					Reason:  "reserved entry must carry nothing but the byte count",
				}
			}
			cursor += uint32(def.Reserved)

		case def.Generate != nil:
			if def.Name != "" || def.Count > 0 || len(def.Fields) > 0 {
				return nil, &reg.ConfigError{
					Reason: "generate entry must carry nothing but the generate clause",
				}
			}
			tmpl, ok := doc.Templates[def.Generate.Template]
			if !ok {
				return nil, &reg.ConfigError{
					Subject: def.Generate.Name,
					Reason:  fmt.Sprintf("unknown template %q", def.Generate.Template),
				}
			}
			regs, next, err := ExpandTemplate(def.Generate.Name, def.Generate.Count, tmpl, cursor)
			if err != nil {
				return nil, err
			}
			block.Registers = append(block.Registers, regs...)
			cursor = next

		case def.Count > 0 && len(def.Registers) > 0:
			base := resolveOffset(def, &cursor)
			regs, stride, err := FlattenArray(def, base)
			if err != nil {
				return nil, err
			}
			block.Registers = append(block.Registers, regs...)
			cursor = base + uint32(def.Count)*stride

		case def.Count > 0:
			base := resolveOffset(def, &cursor)
			ad, err := expandArray(def, base)
			if err != nil {
				return nil, err
			}
			block.Arrays = append(block.Arrays, *ad)
			cursor = ad.End()

		case len(def.Registers) > 0:
			base := resolveOffset(def, &cursor)
			regs, size, err := expandGroup(def, base)
			if err != nil {
				return nil, err
			}
			block.Registers = append(block.Registers, regs...)
			cursor = base + size

		default:
			offset := resolveOffset(def, &cursor)
			rd, err := expandRegister(def, def.Name, offset)
			if err != nil {
				return nil, err
			}
			block.Registers = append(block.Registers, *rd)
			cursor = rd.End()
		}
	}
	return block, nil
}

// resolveOffset returns the entry's byte offset: explicit if given,
// otherwise the current cursor. An explicit offset repositions the cursor
// so subsequent auto-assigned entries follow it.
func resolveOffset(def RegisterDef, cursor *uint32) uint32 {
	if def.Offset != nil {
		*cursor = *def.Offset
	}
	return *cursor
}

// ExpandTemplate instantiates a named template count times starting at
// base, assigning offsets sequentially by register size. Template register
// names with a leading underscore receive the 1-based instance number:
// "_CTRL" under prefix TIMER becomes TIMER1_CTRL, TIMER2_CTRL, ... It is a
// pure function of its arguments and returns the cursor position past the
// expansion.
func ExpandTemplate(prefix string, count int, tmpl []RegisterDef, base uint32) ([]RegisterDescriptor, uint32, error) {
	if count < 1 {
		return nil, 0, &reg.ConfigError{
			Subject: prefix,
			Reason:  fmt.Sprintf("generate count %d must be at least 1", count),
		}
	}

	var out []RegisterDescriptor
	cursor := base
	for instance := 1; instance <= count; instance++ {
		for _, tdef := range tmpl {
			if tdef.Count > 0 || len(tdef.Registers) > 0 || tdef.Reserved > 0 || tdef.Generate != nil {
				return nil, 0, &reg.ConfigError{
					Subject: tdef.Name,
					Reason:  "template entries must be plain registers",
				}
			}
			name := tdef.Name
			if strings.HasPrefix(name, "_") {
				name = fmt.Sprintf("%s%d%s", prefix, instance, name)
			}
			rd, err := expandRegister(tdef, name, cursor)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, *rd)
			cursor = rd.End()
		}
	}
	return out, cursor, nil
}

// FlattenArray expands a counted register group into individually named
// registers "parent[i].child", each carrying provenance back to the parent
// array. It returns the flattened registers and the element stride.
func FlattenArray(def RegisterDef, base uint32) ([]RegisterDescriptor, uint32, error) {
	elemSize, err := groupSize(def)
	if err != nil {
		return nil, 0, err
	}
	stride := def.Stride
	if stride == 0 {
		stride = wordAlign(elemSize)
	}

	var out []RegisterDescriptor
	for i := 0; i < def.Count; i++ {
		prov := &reg.Provenance{
			Array:  def.Name,
			Index:  i,
			Base:   base,
			Count:  def.Count,
			Stride: stride,
		}
		elemBase := base + uint32(i)*stride
		inner := elemBase
		for _, child := range def.Registers {
			name := fmt.Sprintf("%s[%d].%s", def.Name, i, child.Name)
			rd, err := expandChild(child, name, &inner)
			if err != nil {
				return nil, 0, err
			}
			rd.Provenance = prov
			out = append(out, *rd)
		}
	}
	return out, stride, nil
}

// expandGroup flattens an uncounted register group into "parent.child"
// names. It returns the flattened registers and the group's total size.
func expandGroup(def RegisterDef, base uint32) ([]RegisterDescriptor, uint32, error) {
	var out []RegisterDescriptor
	cursor := base
	for _, child := range def.Registers {
		name := fmt.Sprintf("%s.%s", def.Name, child.Name)
		rd, err := expandChild(child, name, &cursor)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rd)
	}
	return out, cursor - base, nil
}

// expandChild expands one plain child register at the cursor, advancing it.
func expandChild(child RegisterDef, name string, cursor *uint32) (*RegisterDescriptor, error) {
	if child.Count > 0 || len(child.Registers) > 0 || child.Reserved > 0 || child.Generate != nil {
		return nil, &reg.ConfigError{
			Subject: child.Name,
			Reason:  "nested registers must be plain registers",
		}
	}
	if child.Offset != nil {
		*cursor = *child.Offset
	}
	rd, err := expandRegister(child, name, *cursor)
	if err != nil {
		return nil, err
	}
	*cursor = rd.End()
	return rd, nil
}

// groupSize computes the packed byte size of a group element.
func groupSize(def RegisterDef) (uint32, error) {
	size := uint32(0)
	for _, child := range def.Registers {
		bytes, err := sizeBytes(child)
		if err != nil {
			return 0, err
		}
		size += bytes
	}
	return size, nil
}

// expandArray turns a counted, childless register into an array
// descriptor. The stride defaults to the register size.
func expandArray(def RegisterDef, base uint32) (*ArrayDescriptor, error) {
	bytes, err := sizeBytes(def)
	if err != nil {
		return nil, err
	}
	stride := def.Stride
	if stride == 0 {
		stride = wordAlign(bytes)
	}
	fields, err := expandFieldDefs(def)
	if err != nil {
		return nil, err
	}
	return &ArrayDescriptor{
		Name:        def.Name,
		Base:        base,
		Count:       def.Count,
		Stride:      stride,
		Description: def.Description,
		Fields:      fields,
	}, nil
}

// expandRegister turns one plain register definition into a descriptor at
// the given offset, applying the grammar defaults (size 32, access rw).
func expandRegister(def RegisterDef, name string, offset uint32) (*RegisterDescriptor, error) {
	if name == "" {
		return nil, &reg.ConfigError{Reason: "register entry is missing a name"}
	}
	if _, err := sizeBytes(def); err != nil {
		return nil, err
	}
	access, err := registerAccess(def)
	if err != nil {
		return nil, err
	}
	fields, err := expandFieldDefs(def)
	if err != nil {
		return nil, err
	}

	rd := &RegisterDescriptor{
		Name:        name,
		Offset:      offset,
		Size:        registerSize(def),
		Access:      access,
		Description: def.Description,
		Fields:      fields,
	}
	if def.ResetValue != nil {
		rd.HasReset = true
		rd.ResetValue = *def.ResetValue
	}
	return rd, nil
}

// expandFieldDefs resolves a register's field list: bit positions, access
// normalization (defaulting to the register's access), reset values.
func expandFieldDefs(def RegisterDef) ([]FieldDescriptor, error) {
	defaultAccess := def.Access
	if defaultAccess == "" {
		defaultAccess = "rw"
	}

	fields := make([]FieldDescriptor, 0, len(def.Fields))
	for _, fd := range def.Fields {
		if fd.Name == "" {
			return nil, &reg.ConfigError{
				Subject: def.Name,
				Reason:  "field entry is missing a name",
			}
		}
		offset, width, err := fieldPosition(fd)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", def.Name, err)
		}
		accessStr := fd.Access
		if accessStr == "" {
			accessStr = defaultAccess
		}
		access, err := reg.ParseAccess(accessStr)
		if err != nil {
			return nil, fmt.Errorf("register %s, field %s: %w", def.Name, fd.Name, err)
		}
		desc := FieldDescriptor{
			Name:        fd.Name,
			Offset:      offset,
			Width:       width,
			Access:      access,
			Description: fd.Description,
		}
		if fd.Reset != nil {
			desc.Reset = *fd.Reset
		}
		fields = append(fields, desc)
	}
	return fields, nil
}

func registerSize(def RegisterDef) int {
	if def.Size == 0 {
		return 32
	}
	return def.Size
}

func registerAccess(def RegisterDef) (reg.Access, error) {
	if def.Access == "" {
		return reg.ReadWrite, nil
	}
	access, err := reg.ParseAccess(def.Access)
	if err != nil {
		return 0, fmt.Errorf("register %s: %w", def.Name, err)
	}
	return access, nil
}

func sizeBytes(def RegisterDef) (uint32, error) {
	size := registerSize(def)
	switch size {
	case 8, 16, 32:
		return uint32(size / 8), nil
	}
	return 0, &reg.ConfigError{
		Subject: def.Name,
		Reason:  fmt.Sprintf("register size %d is not one of 8, 16, 32", size),
	}
}

func wordAlign(n uint32) uint32 {
	if n == 0 {
		return 4
	}
	return (n + 3) &^ 3
}
