package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// MemoryBus is a simulation bus backed by an Akita storage. It gives tools
// and tests a device-less address space with real bus semantics: every
// ReadWord and WriteWord is a fresh transaction against the storage.
//
// Words are little-endian in the backing store, matching the byte order the
// rest of the toolchain uses for memory images.
type MemoryBus struct {
	storage *mem.Storage
}

// NewMemoryBus creates a MemoryBus covering capacity bytes starting at
// address zero.
func NewMemoryBus(capacity uint64) *MemoryBus {
	return &MemoryBus{
		storage: mem.NewStorage(capacity),
	}
}

// ReadWord returns the 32-bit word at addr.
func (b *MemoryBus) ReadWord(addr uint32) (uint32, error) {
	data, err := b.storage.Read(uint64(addr), 4)
	if err != nil {
		return 0, fmt.Errorf("memory bus read at 0x%08X: %w", addr, err)
	}
	return binary.LittleEndian.Uint32(data), nil
}

// WriteWord stores a 32-bit word at addr.
func (b *MemoryBus) WriteWord(addr uint32, data uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, data)
	if err := b.storage.Write(uint64(addr), buf); err != nil {
		return fmt.Errorf("memory bus write at 0x%08X: %w", addr, err)
	}
	return nil
}

// Preload seeds device state before a tool or test starts driving the
// register model. It is a plain word write under a name that makes the
// intent explicit.
func (b *MemoryBus) Preload(addr uint32, data uint32) error {
	return b.WriteWord(addr, data)
}
