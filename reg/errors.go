package reg

import "fmt"

// ConfigError reports an invalid field or array definition: a width or
// offset outside the 32-bit word, an unknown access string, or a reset
// value that does not fit the field.
type ConfigError struct {
	// Subject names the field or array being defined.
	Subject string
	// Reason describes what was wrong with the definition.
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Subject == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Subject, e.Reason)
}

// DuplicateFieldError reports two fields of one register sharing a name.
// It fails the whole register construction.
type DuplicateFieldError struct {
	Register string
	Field    string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("register %s: duplicate field %s", e.Register, e.Field)
}

// OverlapError reports two fields of one register claiming the same bit
// position. It fails the whole register construction.
type OverlapError struct {
	Register string
	Bit      int
	// First and Second are the two fields claiming the bit, in definition
	// order.
	First  string
	Second string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("register %s: bit %d claimed by both %s and %s",
		e.Register, e.Bit, e.First, e.Second)
}

// AccessError reports a field operation the access policy forbids: writing
// a read-only field, reading a write-only field, or a value wider than the
// field. It is raised before any bus write, so device state is never
// touched by a rejected call.
type AccessError struct {
	Register string
	Field    string
	Reason   string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("register %s, field %s: %s", e.Register, e.Field, e.Reason)
}

// UnknownFieldError reports a field name the register does not define.
type UnknownFieldError struct {
	Register string
	Field    string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("register %s: no field named %s", e.Register, e.Field)
}

// OutOfRangeError reports an array index outside [0, count).
type OutOfRangeError struct {
	Array string
	Index int
	Count int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("array %s: index %d out of range [0, %d)",
		e.Array, e.Index, e.Count)
}
