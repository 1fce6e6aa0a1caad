// Package bus defines the word-access capability that the register model
// drives, plus an in-memory simulation backend.
//
// The register model never owns a bus. Registers hold a borrowed handle and
// issue single 32-bit word transactions through it; transport errors pass
// through to the caller unmodified. Concrete transports (JTAG, UART,
// AXI-Lite masters) live outside this module and only need to satisfy Bus.
package bus

// Bus is the minimal capability a register needs: word-granularity access
// to a 32-bit address space. Implementations are expected to be driven from
// a single logical thread; the register model adds no locking of its own.
type Bus interface {
	// ReadWord returns the 32-bit word at addr.
	ReadWord(addr uint32) (uint32, error)

	// WriteWord stores a 32-bit word at addr.
	WriteWord(addr uint32, data uint32) error
}
