package diagfmt

import (
	"fmt"
	"path/filepath"

	"fortio.org/safecast"

	"sirc/internal/source"
)

func formatPath(f *source.File, mode PathMode, base string) string {
	if f == nil {
		return "<unknown>"
	}
	p := filepath.FromSlash(f.Path)
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	case PathModeRelative:
		if base != "" {
			if rel, err := filepath.Rel(base, p); err == nil {
				p = rel
			}
		}
	case PathModeBasename:
		p = filepath.Base(p)
	}
	return filepath.ToSlash(p)
}

func lineStartOffset(f *source.File, line uint32) uint32 {
	if line <= 1 {
		return 0
	}
	idx := line - 2
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx] + 1
	}
	return contentLen(f)
}

// lineEndOffset is the offset of the newline ending line (or EOF).
func lineEndOffset(f *source.File, line uint32) uint32 {
	if line == 0 {
		return 0
	}
	idx := line - 1
	if int(idx) < len(f.LineIdx) {
		return f.LineIdx[idx]
	}
	return contentLen(f)
}

func contentLen(f *source.File) uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return n
}

// lineText returns the text of a 1-based line without its newline.
func lineText(f *source.File, line uint32) (string, bool) {
	if f == nil || f.Flags&source.FileHasContent == 0 || line == 0 {
		return "", false
	}
	if int(line) > len(f.LineIdx)+1 {
		return "", false
	}
	start, end := lineStartOffset(f, line), lineEndOffset(f, line)
	if end < start {
		return "", false
	}
	return string(f.Content[start:end]), true
}
