package loader

import (
	"fmt"

	"github.com/sarchlab/regmap/reg"
	"github.com/sarchlab/regmap/schema"
)

// RegisterMap is the constructed register graph: every block's registers
// and array accessors, bound to one bus and ready to drive. Downstream
// editors and code generators work through this surface and never touch
// the bus directly.
type RegisterMap struct {
	name        string
	description string
	blocks      map[string]*BlockView
	order       []string
}

// BlockView holds the constructed registers and arrays of one address
// block, in document order.
type BlockView struct {
	name        string
	baseAddress uint64
	addrRange   uint64
	usage       string
	registers   map[string]*reg.Register
	regOrder    []string
	arrays      map[string]*reg.ArrayAccessor
	arrOrder    []string
}

func newRegisterMap(name, description string) *RegisterMap {
	return &RegisterMap{
		name:        name,
		description: description,
		blocks:      make(map[string]*BlockView),
	}
}

func newBlockView(blk schema.Block) *BlockView {
	return &BlockView{
		name:        blk.Name,
		baseAddress: blk.BaseAddress,
		addrRange:   blk.Range,
		usage:       blk.Usage,
		registers:   make(map[string]*reg.Register),
		arrays:      make(map[string]*reg.ArrayAccessor),
	}
}

func (m *RegisterMap) addBlock(v *BlockView) {
	if _, ok := m.blocks[v.name]; !ok {
		m.order = append(m.order, v.name)
	}
	m.blocks[v.name] = v
}

func (v *BlockView) addRegister(r *reg.Register) {
	if _, ok := v.registers[r.Name()]; !ok {
		v.regOrder = append(v.regOrder, r.Name())
	}
	v.registers[r.Name()] = r
}

func (v *BlockView) addArray(a *reg.ArrayAccessor) {
	if _, ok := v.arrays[a.Name()]; !ok {
		v.arrOrder = append(v.arrOrder, a.Name())
	}
	v.arrays[a.Name()] = a
}

// Name returns the memory map name.
func (m *RegisterMap) Name() string {
	return m.name
}

// Description returns the memory map description.
func (m *RegisterMap) Description() string {
	return m.description
}

// Blocks returns the block names in document order.
func (m *RegisterMap) Blocks() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Block returns the named block view.
func (m *RegisterMap) Block(name string) (*BlockView, error) {
	v, ok := m.blocks[name]
	if !ok {
		return nil, fmt.Errorf("memory map %s: no block named %s", m.name, name)
	}
	return v, nil
}

// Name returns the block name.
func (v *BlockView) Name() string {
	return v.name
}

// BaseAddress returns the block's bus base address.
func (v *BlockView) BaseAddress() uint64 {
	return v.baseAddress
}

// Range returns the block's address range in bytes.
func (v *BlockView) Range() uint64 {
	return v.addrRange
}

// Usage returns the block's declared usage, if any.
func (v *BlockView) Usage() string {
	return v.usage
}

// Registers returns the register names in document order.
func (v *BlockView) Registers() []string {
	out := make([]string, len(v.regOrder))
	copy(out, v.regOrder)
	return out
}

// Register returns the named register.
func (v *BlockView) Register(name string) (*reg.Register, error) {
	r, ok := v.registers[name]
	if !ok {
		return nil, fmt.Errorf("block %s: no register named %s", v.name, name)
	}
	return r, nil
}

// Arrays returns the array names in document order.
func (v *BlockView) Arrays() []string {
	out := make([]string, len(v.arrOrder))
	copy(out, v.arrOrder)
	return out
}

// Array returns the named array accessor.
func (v *BlockView) Array(name string) (*reg.ArrayAccessor, error) {
	a, ok := v.arrays[name]
	if !ok {
		return nil, fmt.Errorf("block %s: no array named %s", v.name, name)
	}
	return a, nil
}

// Summary reads every register in the block once and returns the current
// word values keyed by register name. Device state is touched exactly once
// per register.
func (v *BlockView) Summary() (map[string]uint32, error) {
	out := make(map[string]uint32, len(v.regOrder))
	for _, name := range v.regOrder {
		word, err := v.registers[name].Read()
		if err != nil {
			return nil, err
		}
		out[name] = word
	}
	return out, nil
}
