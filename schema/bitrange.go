package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/regmap/reg"
)

// ParseBitRange parses a bit-range string into (offset, width). Two forms
// are accepted: "[hi:lo]" covers bits lo through hi inclusive, and a bare
// integer names a single bit. hi < lo is a format error.
func ParseBitRange(s string) (offset, width int, err error) {
	trimmed := strings.TrimSpace(s)

	if strings.HasPrefix(trimmed, "[") {
		if !strings.HasSuffix(trimmed, "]") {
			return 0, 0, &reg.ConfigError{
				Reason: fmt.Sprintf("bit range %q is missing the closing bracket", s),
			}
		}
		inner := trimmed[1 : len(trimmed)-1]
		parts := strings.Split(inner, ":")
		if len(parts) != 2 {
			return 0, 0, &reg.ConfigError{
				Reason: fmt.Sprintf("bit range %q is not of the form [hi:lo]", s),
			}
		}
		hi, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return 0, 0, &reg.ConfigError{
				Reason: fmt.Sprintf("bit range %q has a non-numeric high bit", s),
			}
		}
		lo, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, &reg.ConfigError{
				Reason: fmt.Sprintf("bit range %q has a non-numeric low bit", s),
			}
		}
		if hi < lo {
			return 0, 0, &reg.ConfigError{
				Reason: fmt.Sprintf("bit range %q is descending: high bit %d below low bit %d", s, hi, lo),
			}
		}
		return lo, hi - lo + 1, nil
	}

	bit, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, 0, &reg.ConfigError{
			Reason: fmt.Sprintf("bit position %q is not a number", s),
		}
	}
	return bit, 1, nil
}

// fieldPosition resolves a field definition's bit location from whichever
// of bit/bits is present. A definition carrying neither, or both, is a
// config error.
func fieldPosition(def FieldDef) (offset, width int, err error) {
	switch {
	case def.Bit != nil && def.Bits != "":
		return 0, 0, &reg.ConfigError{
			Subject: def.Name,
			Reason:  "field specifies both bit and bits",
		}
	case def.Bit != nil:
		return *def.Bit, 1, nil
	case def.Bits != "":
		return ParseBitRange(def.Bits)
	}
	return 0, 0, &reg.ConfigError{
		Subject: def.Name,
		Reason:  "field specifies neither bit nor bits",
	}
}
