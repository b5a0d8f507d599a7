package uplc

import (
	"fmt"
	"strings"
)

// Version selects the target instruction set.
type Version uint8

const (
	VersionUnknown Version = iota
	V1                     // original builtin set
	V2                     // adds serialiseData
	V3                     // adds constr/case terms and more builtins
	V4                     // adds case on builtin values and arrays
)

// DefaultVersion is used when neither flags nor the manifest pick one.
const DefaultVersion = V3

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case V3:
		return "v3"
	case V4:
		return "v4"
	default:
		return "unknown"
	}
}

// ParseVersion accepts "v1".."v4" (case-insensitive, the "v" is optional).
func ParseVersion(s string) (Version, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v") {
	case "1":
		return V1, nil
	case "2":
		return V2, nil
	case "3":
		return V3, nil
	case "4":
		return V4, nil
	default:
		return VersionUnknown, fmt.Errorf("invalid target version %q (expected v1|v2|v3|v4)", s)
	}
}

// HasSOP reports whether constr/case terms over constructor values exist.
func (v Version) HasSOP() bool { return v >= V3 }

// HasBuiltinCase reports whether `case` can scrutinise builtin values
// (bool, integer, list, pair, unit, data).
func (v Version) HasBuiltinCase() bool { return v >= V4 }

// LanguageVersion is the program header version for v.
func (v Version) LanguageVersion() string {
	if v.HasSOP() {
		return "1.1.0"
	}
	return "1.0.0"
}
