package uplc

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// String renders t on a single line.
func (t *Term) String() string {
	var sb strings.Builder
	writeCompact(&sb, t)
	return sb.String()
}

func (p *Program) String() string {
	return "(program " + p.Version.LanguageVersion() + " " + p.Term.String() + ")"
}

func writeCompact(sb *strings.Builder, t *Term) {
	if t == nil {
		sb.WriteString("<nil>")
		return
	}
	switch t.Kind {
	case TermVar:
		sb.WriteString(t.Name)
	case TermLam:
		sb.WriteString("(lam ")
		sb.WriteString(t.Name)
		sb.WriteByte(' ')
		writeCompact(sb, t.Body)
		sb.WriteByte(')')
	case TermApply:
		head, args := spine(t)
		sb.WriteByte('[')
		writeCompact(sb, head)
		for _, a := range args {
			sb.WriteByte(' ')
			writeCompact(sb, a)
		}
		sb.WriteByte(']')
	case TermForce:
		sb.WriteString("(force ")
		writeCompact(sb, t.Body)
		sb.WriteByte(')')
	case TermDelay:
		sb.WriteString("(delay ")
		writeCompact(sb, t.Body)
		sb.WriteByte(')')
	case TermConst:
		sb.WriteString(t.Const.String())
	case TermBuiltin:
		sb.WriteString("(builtin ")
		sb.WriteString(t.Builtin.String())
		sb.WriteByte(')')
	case TermError:
		sb.WriteString("(error)")
	case TermConstr:
		sb.WriteString("(constr ")
		sb.WriteString(strconv.FormatUint(t.Tag, 10))
		for _, a := range t.Args {
			sb.WriteByte(' ')
			writeCompact(sb, a)
		}
		sb.WriteByte(')')
	case TermCase:
		sb.WriteString("(case ")
		writeCompact(sb, t.Scrutinee)
		for _, a := range t.Args {
			sb.WriteByte(' ')
			writeCompact(sb, a)
		}
		sb.WriteByte(')')
	}
}

// spine flattens left-nested applications.
func spine(t *Term) (*Term, []*Term) {
	var args []*Term
	for t.Kind == TermApply {
		args = append(args, t.Arg)
		t = t.Fun
	}
	for i, j := 0, len(args)-1; i < j; i, j = i+1, j-1 {
		args[i], args[j] = args[j], args[i]
	}
	return t, args
}

// Pretty renders t across lines so that no line exceeds width display
// columns where a break is possible.
func Pretty(t *Term, width int) string {
	if width <= 0 {
		width = 80
	}
	var sb strings.Builder
	writePretty(&sb, t, 0, width)
	return sb.String()
}

func writePretty(sb *strings.Builder, t *Term, indent, width int) {
	flat := t.String()
	if indent+runewidth.StringWidth(flat) <= width {
		sb.WriteString(flat)
		return
	}
	pad := strings.Repeat("  ", indent/2+1)
	child := func(c *Term) {
		sb.WriteByte('\n')
		sb.WriteString(pad)
		writePretty(sb, c, len(pad), width)
	}
	switch t.Kind {
	case TermLam:
		sb.WriteString("(lam ")
		sb.WriteString(t.Name)
		child(t.Body)
		sb.WriteByte(')')
	case TermApply:
		head, args := spine(t)
		sb.WriteByte('[')
		writePretty(sb, head, indent+1, width)
		for _, a := range args {
			child(a)
		}
		sb.WriteByte(']')
	case TermForce, TermDelay:
		sb.WriteString("(" + t.Kind.String())
		child(t.Body)
		sb.WriteByte(')')
	case TermConstr:
		sb.WriteString("(constr " + strconv.FormatUint(t.Tag, 10))
		for _, a := range t.Args {
			child(a)
		}
		sb.WriteByte(')')
	case TermCase:
		sb.WriteString("(case")
		child(t.Scrutinee)
		for _, a := range t.Args {
			child(a)
		}
		sb.WriteByte(')')
	default:
		sb.WriteString(flat)
	}
}
