// Package schema defines the declarative memory-map document format and
// turns it into a validated in-memory model.
//
// Processing is two distinct passes: Parse produces a raw Document, Expand
// turns it into an immutable MemoryMap (resolving templates, reserved gaps
// and register arrays), and Validate checks the result structurally.
// Keeping the passes separate lets interactive editors re-validate an
// edited model without re-parsing the document.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Document is the raw parsed form of a memory-map file, before template
// expansion and validation. Field values are kept as written; defaults
// (size 32, access rw) apply during expansion.
type Document struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Imports lists other memory-map files whose templates and address
	// blocks are merged into this document. The loader resolves them with a
	// path-keyed cache.
	Imports []string `yaml:"imports,omitempty" json:"imports,omitempty"`

	// Templates holds named register sequences for generate entries.
	Templates map[string][]RegisterDef `yaml:"templates,omitempty" json:"templates,omitempty"`

	AddressBlocks []BlockDef `yaml:"address_blocks" json:"address_blocks"`
}

// BlockDef is one contiguous address-space region of related registers.
type BlockDef struct {
	Name        string        `yaml:"name" json:"name"`
	BaseAddress uint64        `yaml:"base_address" json:"base_address"`
	Range       uint64        `yaml:"range" json:"range"`
	Usage       string        `yaml:"usage,omitempty" json:"usage,omitempty"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Registers   []RegisterDef `yaml:"registers" json:"registers"`
}

// RegisterDef is one entry of a block's register list. Exactly one of four
// shapes applies:
//
//   - a plain register (Name set, no Count, no children)
//   - a register array (Name and Count set; with children it is flattened,
//     without children it becomes an on-demand accessor)
//   - a reserved gap (Reserved set, nothing else)
//   - a generate entry (Generate set, nothing else)
type RegisterDef struct {
	Name        string  `yaml:"name,omitempty" json:"name,omitempty"`
	Offset      *uint32 `yaml:"offset,omitempty" json:"offset,omitempty"`
	Size        int     `yaml:"size,omitempty" json:"size,omitempty"`
	Access      string  `yaml:"access,omitempty" json:"access,omitempty"`
	ResetValue  *uint32 `yaml:"reset_value,omitempty" json:"reset_value,omitempty"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`

	Fields []FieldDef `yaml:"fields,omitempty" json:"fields,omitempty"`

	// Registers nests children under this register for grouping; with
	// Count set the whole group repeats.
	Registers []RegisterDef `yaml:"registers,omitempty" json:"registers,omitempty"`

	Count  int    `yaml:"count,omitempty" json:"count,omitempty"`
	Stride uint32 `yaml:"stride,omitempty" json:"stride,omitempty"`

	// Reserved advances the auto-offset cursor by N bytes without emitting
	// a register.
	Reserved int `yaml:"reserved,omitempty" json:"reserved,omitempty"`

	// Generate expands a named template.
	Generate *GenerateDef `yaml:"generate,omitempty" json:"generate,omitempty"`
}

// GenerateDef expands a named template Count times. Template register names
// with a leading underscore get the instance number substituted in:
// template "_CTRL" under {Name: TIMER, Count: 3} yields TIMER1_CTRL,
// TIMER2_CTRL and TIMER3_CTRL.
type GenerateDef struct {
	Name     string `yaml:"name" json:"name"`
	Count    int    `yaml:"count" json:"count"`
	Template string `yaml:"template" json:"template"`
}

// FieldDef is one bit field of a register. Either Bit (a single bit
// position) or Bits (a "[hi:lo]" range or a bare bit number) locates it.
type FieldDef struct {
	Name        string  `yaml:"name" json:"name"`
	Bit         *int    `yaml:"bit,omitempty" json:"bit,omitempty"`
	Bits        string  `yaml:"bits,omitempty" json:"bits,omitempty"`
	Access      string  `yaml:"access,omitempty" json:"access,omitempty"`
	Reset       *uint32 `yaml:"reset,omitempty" json:"reset,omitempty"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
}

// Parse decodes a YAML memory-map document.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse memory map document: %w", err)
	}
	return doc, nil
}

// ParseJSON decodes a JSON memory-map document.
func ParseJSON(data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse memory map document: %w", err)
	}
	return doc, nil
}

// ParseFile reads and decodes a memory-map file, choosing the format by
// extension: .json is JSON, everything else is YAML.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data)
	}
	return Parse(data)
}

// Clone returns a deep copy of the document, so editors can mutate a copy
// and re-validate without disturbing the original.
func (d *Document) Clone() *Document {
	c := &Document{
		Name:        d.Name,
		Description: d.Description,
		Imports:     append([]string(nil), d.Imports...),
	}
	if d.Templates != nil {
		c.Templates = make(map[string][]RegisterDef, len(d.Templates))
		for name, regs := range d.Templates {
			c.Templates[name] = cloneRegisterDefs(regs)
		}
	}
	for _, b := range d.AddressBlocks {
		cb := b
		cb.Registers = cloneRegisterDefs(b.Registers)
		c.AddressBlocks = append(c.AddressBlocks, cb)
	}
	return c
}

func cloneRegisterDefs(defs []RegisterDef) []RegisterDef {
	if defs == nil {
		return nil
	}
	out := make([]RegisterDef, len(defs))
	for i, def := range defs {
		out[i] = def
		if def.Offset != nil {
			v := *def.Offset
			out[i].Offset = &v
		}
		if def.ResetValue != nil {
			v := *def.ResetValue
			out[i].ResetValue = &v
		}
		if def.Generate != nil {
			g := *def.Generate
			out[i].Generate = &g
		}
		out[i].Fields = cloneFieldDefs(def.Fields)
		out[i].Registers = cloneRegisterDefs(def.Registers)
	}
	return out
}

func cloneFieldDefs(defs []FieldDef) []FieldDef {
	if defs == nil {
		return nil
	}
	out := make([]FieldDef, len(defs))
	for i, def := range defs {
		out[i] = def
		if def.Bit != nil {
			v := *def.Bit
			out[i].Bit = &v
		}
		if def.Reset != nil {
			v := *def.Reset
			out[i].Reset = &v
		}
	}
	return out
}
