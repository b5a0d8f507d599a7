package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Input (SIR decoding / validation)
	IRInfo         Code = 1000
	IRDecodeFailed Code = 1001
	IRMalformed    Code = 1002
	IRUnknownDecl  Code = 1003

	// Lowering: fatal internal errors
	LowInfo               Code = 2000
	LowInternal           Code = 2001
	LowNoConversion       Code = 2002
	LowEmptyUpcast        Code = 2003
	LowUnboundVar         Code = 2004
	LowArmsNotUnifiable   Code = 2005
	LowUnsupportedBuiltin Code = 2006
	LowBadIR              Code = 2007

	// Lowering: warnings
	LowGenericCastFallback Code = 2100
	LowTypeVarErasure      Code = 2101
	LowDroppedBinding      Code = 2102
	LowUnreachableArm      Code = 2103

	// Driver / project
	DrvInfo          Code = 3000
	DrvIOError       Code = 3001
	DrvCacheCorrupt  Code = 3002
	DrvManifestError Code = 3003
)

var (
	codeDescription = map[Code]string{
		UnknownCode:            "Unknown error",
		IRInfo:                 "IR information",
		IRDecodeFailed:         "Cannot decode SIR unit",
		IRMalformed:            "Malformed SIR",
		IRUnknownDecl:          "Unknown data declaration",
		LowInfo:                "Lowering information",
		LowInternal:            "Internal lowering error",
		LowNoConversion:        "No conversion between representations",
		LowEmptyUpcast:         "Empty upcast chain",
		LowUnboundVar:          "Variable has no definition and no binding",
		LowArmsNotUnifiable:    "Case arms have unrelated types",
		LowUnsupportedBuiltin:  "Builtin not available for target",
		LowBadIR:               "Ill-typed SIR reached lowering",
		LowGenericCastFallback: "Generic cast used instead of a specific conversion",
		LowTypeVarErasure:      "Type variable representation erased",
		LowDroppedBinding:      "Unused binding dropped",
		LowUnreachableArm:      "Case arm is unreachable",
		DrvInfo:                "Driver information",
		DrvIOError:             "I/O error",
		DrvCacheCorrupt:        "Cache entry is corrupt",
		DrvManifestError:       "Invalid sirc.toml",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SIR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("DRV%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
