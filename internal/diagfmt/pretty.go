package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"sirc/internal/diag"
	"sirc/internal/source"
)

type palette struct {
	sev      map[diag.Severity]*color.Color
	code     *color.Color
	location *color.Color
	gutter   *color.Color
	caret    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan),
		},
		code:     color.New(color.Bold),
		location: color.New(color.Faint),
		gutter:   color.New(color.FgBlue),
		caret:    color.New(color.FgGreen, color.Bold),
	}
	all := []*color.Color{p.code, p.location, p.gutter, p.caret}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty formats diagnostics for humans. It walks bag.Items() (call
// bag.Sort() first) and prints for each one
//
//	<path>:<line>:<col>: <sev> <CODE>: <message>
//
// followed by the source context with the span underlined ^~~~ when the
// file content is known, then the notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		writeDiagnostic(w, p, d, fs, opts)
	}
}

func location(fs *source.FileSet, sp source.Span, mode PathMode, base string) string {
	f := fs.Get(sp.File)
	if f == nil {
		return "<unit>"
	}
	path := formatPath(f, mode, base)
	start, _ := fs.Resolve(sp)
	if start.Line == 0 {
		if sp.Empty() && sp.Start == 0 {
			return path
		}
		return fmt.Sprintf("%s:@%d", path, sp.Start)
	}
	return fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
}

func sevColor(p palette, s diag.Severity) *color.Color {
	if c, ok := p.sev[s]; ok {
		return c
	}
	return p.code
}

func writeDiagnostic(w io.Writer, p palette, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	loc := location(fs, d.Primary, opts.PathMode, opts.BaseDir)
	sev := strings.ToLower(d.Severity.String())
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		p.location.Sprint(loc), sevColor(p, d.Severity).Sprint(sev), p.code.Sprint(d.Code.ID()), d.Message)
	writeContext(w, p, d.Primary, fs, opts)
	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		if n.Span != d.Primary && !n.Span.Empty() {
			fmt.Fprintf(w, "  %s %s: %s\n", p.gutter.Sprint("note"), location(fs, n.Span, opts.PathMode, opts.BaseDir), n.Msg)
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", p.gutter.Sprint("note"), n.Msg)
	}
}

func writeContext(w io.Writer, p palette, sp source.Span, fs *source.FileSet, opts PrettyOpts) {
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	if start.Line == 0 {
		return
	}
	if _, ok := lineText(f, start.Line); !ok {
		return
	}
	ctx := uint32(max(opts.Context, 0))
	first := start.Line - min(ctx, start.Line-1)
	for line := first; line <= start.Line+ctx; line++ {
		text, ok := lineText(f, line)
		if !ok {
			break
		}
		text = strings.ReplaceAll(text, "\t", "    ")
		if opts.Width > 0 {
			text = runewidth.Truncate(text, int(opts.Width), "...")
		}
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%5d |", line), text)
		if line != start.Line {
			continue
		}
		raw, _ := lineText(f, line)
		col := int(start.Col) - 1
		if col > len(raw) {
			col = len(raw)
		}
		stop := len(raw)
		if end.Line == start.Line {
			stop = min(int(end.Col)-1, len(raw))
		}
		pad := runewidth.StringWidth(strings.ReplaceAll(raw[:col], "\t", "    "))
		width := max(runewidth.StringWidth(raw[col:max(stop, col)]), 1)
		underline := "^" + strings.Repeat("~", width-1)
		fmt.Fprintf(w, "%s %s%s\n", p.gutter.Sprint("      |"), strings.Repeat(" ", pad), p.caret.Sprint(underline))
	}
}
