package uplc

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeName turns an arbitrary source identifier into a valid variable
// name: NFC-normalised, letters, digits, '_' and '\'' only, never starting
// with a digit or quote.
func SanitizeName(name string) string {
	name = norm.NFC.String(name)
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '_', r == '\'':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if out == "" {
		return "v"
	}
	if c := out[0]; c == '\'' || (c >= '0' && c <= '9') {
		out = "v" + out
	}
	return out
}
