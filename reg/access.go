// Package reg models memory-mapped hardware registers: named bit fields
// inside 32-bit words, access policies including write-1-to-clear, and
// indexed register arrays. All device traffic goes through a bus.Bus
// handle; the model caches nothing, so every read and write reflects live
// device state.
package reg

import (
	"fmt"
	"strings"
)

// Access is the access policy of a bit field.
type Access int

const (
	// ReadOnly fields reflect hardware state and reject writes.
	ReadOnly Access = iota

	// WriteOnly fields accept writes but cannot be read back.
	WriteOnly

	// ReadWrite fields support normal read-modify-write access.
	ReadWrite

	// ReadWrite1Clear fields are interrupt-status style: writing 1 to a bit
	// clears it in hardware, writing 0 leaves it unchanged.
	ReadWrite1Clear
)

// String returns the canonical short form of the access policy.
func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "ro"
	case WriteOnly:
		return "wo"
	case ReadWrite:
		return "rw"
	case ReadWrite1Clear:
		return "rw1c"
	}
	return fmt.Sprintf("access(%d)", int(a))
}

// Readable reports whether the policy allows reading the field value.
func (a Access) Readable() bool {
	return a != WriteOnly
}

// Writable reports whether the policy allows writing the field.
func (a Access) Writable() bool {
	return a != ReadOnly
}

// ParseAccess normalizes an access string to its canonical policy. Both the
// short forms (ro, wo, rw, rw1c) and the long forms (read-only, write-only,
// read-write, write-1-to-clear) are accepted, case-insensitively.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ro", "read-only":
		return ReadOnly, nil
	case "wo", "write-only":
		return WriteOnly, nil
	case "rw", "read-write":
		return ReadWrite, nil
	case "rw1c", "write-1-to-clear":
		return ReadWrite1Clear, nil
	}
	return 0, &ConfigError{
		Reason: fmt.Sprintf("unknown access string %q", s),
	}
}
