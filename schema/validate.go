package schema

import (
	"fmt"

	"github.com/sarchlab/regmap/reg"
)

// Diagnostic is one structural finding from Validate. Diagnostics are
// values, never errors: the import/codegen path treats a non-empty list as
// fatal, interactive editors display it and keep going.
type Diagnostic struct {
	// Block, Register and Field locate the finding; inner ones may be
	// empty for map- or block-level findings.
	Block    string
	Register string
	Field    string
	Message  string
}

// String renders the diagnostic with its location prefix.
func (d Diagnostic) String() string {
	loc := d.Block
	if d.Register != "" {
		loc += "/" + d.Register
	}
	if d.Field != "" {
		loc += "/" + d.Field
	}
	if loc == "" {
		return d.Message
	}
	return loc + ": " + d.Message
}

// Validate structurally checks an expanded memory map. All checks are
// accumulated; the validator never short-circuits, so one run reports
// everything a document has wrong.
func Validate(m *MemoryMap) []Diagnostic {
	var diags []Diagnostic

	diags = append(diags, checkBlockOverlaps(m)...)
	for _, block := range m.Blocks {
		diags = append(diags, checkBlock(block)...)
	}
	return diags
}

// checkBlockOverlaps reports address blocks whose [base, base+range)
// regions intersect.
func checkBlockOverlaps(m *MemoryMap) []Diagnostic {
	var diags []Diagnostic
	for i := 0; i < len(m.Blocks); i++ {
		for j := i + 1; j < len(m.Blocks); j++ {
			a, b := m.Blocks[i], m.Blocks[j]
			if a.BaseAddress < b.BaseAddress+b.Range &&
				b.BaseAddress < a.BaseAddress+a.Range {
				diags = append(diags, Diagnostic{
					Block: a.Name,
					Message: fmt.Sprintf(
						"address range [0x%X, 0x%X) overlaps block %s [0x%X, 0x%X)",
						a.BaseAddress, a.BaseAddress+a.Range,
						b.Name, b.BaseAddress, b.BaseAddress+b.Range),
				})
			}
		}
	}
	return diags
}

func checkBlock(block Block) []Diagnostic {
	var diags []Diagnostic

	seen := make(map[string]bool)
	claim := func(name string) {
		if seen[name] {
			diags = append(diags, Diagnostic{
				Block:    block.Name,
				Register: name,
				Message:  "duplicate register name within block",
			})
		}
		seen[name] = true
	}

	for _, rd := range block.Registers {
		claim(rd.Name)
		diags = append(diags, checkFields(block.Name, rd.Name, rd.Fields)...)
		if block.Range > 0 && uint64(rd.End()) > block.Range {
			diags = append(diags, Diagnostic{
				Block:    block.Name,
				Register: rd.Name,
				Message: fmt.Sprintf("register end 0x%X exceeds block range 0x%X",
					rd.End(), block.Range),
			})
		}
	}

	for _, ad := range block.Arrays {
		claim(ad.Name)
		diags = append(diags, checkFields(block.Name, ad.Name, ad.Fields)...)
		if ad.Count < 1 {
			diags = append(diags, Diagnostic{
				Block:    block.Name,
				Register: ad.Name,
				Message:  fmt.Sprintf("array count %d must be at least 1", ad.Count),
			})
		}
		if ad.Stride == 0 || ad.Stride%4 != 0 {
			diags = append(diags, Diagnostic{
				Block:    block.Name,
				Register: ad.Name,
				Message:  fmt.Sprintf("array stride %d is not word-aligned", ad.Stride),
			})
		}
		if block.Range > 0 && uint64(ad.End()) > block.Range {
			diags = append(diags, Diagnostic{
				Block:    block.Name,
				Register: ad.Name,
				Message: fmt.Sprintf("array end 0x%X exceeds block range 0x%X",
					ad.End(), block.Range),
			})
		}
	}

	return diags
}

// checkFields runs the per-register field checks: name uniqueness,
// geometry, access validity and the 32-position occupancy check. Overlap
// findings name the offending bit and both fields.
func checkFields(blockName, regName string, fields []FieldDescriptor) []Diagnostic {
	var diags []Diagnostic
	var occupant [32]string
	seen := make(map[string]bool)

	for _, fd := range fields {
		if seen[fd.Name] {
			diags = append(diags, Diagnostic{
				Block:    blockName,
				Register: regName,
				Field:    fd.Name,
				Message:  "duplicate field name within register",
			})
		}
		seen[fd.Name] = true

		if fd.Access < reg.ReadOnly || fd.Access > reg.ReadWrite1Clear {
			diags = append(diags, Diagnostic{
				Block:    blockName,
				Register: regName,
				Field:    fd.Name,
				Message:  fmt.Sprintf("invalid access policy %d", int(fd.Access)),
			})
		}

		if fd.Offset < 0 || fd.Width < 1 || fd.Offset+fd.Width > 32 {
			diags = append(diags, Diagnostic{
				Block:    blockName,
				Register: regName,
				Field:    fd.Name,
				Message: fmt.Sprintf("bits [%d:%d] do not fit a 32-bit register",
					fd.Offset+fd.Width-1, fd.Offset),
			})
			// Geometry is broken; skip the occupancy walk for this field.
			continue
		}

		for bit := fd.Offset; bit < fd.Offset+fd.Width; bit++ {
			if occupant[bit] != "" && occupant[bit] != fd.Name {
				diags = append(diags, Diagnostic{
					Block:    blockName,
					Register: regName,
					Field:    fd.Name,
					Message: fmt.Sprintf("bit %d already claimed by field %s",
						bit, occupant[bit]),
				})
				break
			}
			occupant[bit] = fd.Name
		}
	}
	return diags
}
