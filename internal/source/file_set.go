package source

import (
	"fmt"
	"path/filepath"
	"sort"

	"fortio.org/safecast"
)

// FileSet registers the files a compilation unit refers to. Lowering never
// reads sources; contents are optional and only used to render line/column
// positions in diagnostics.
type FileSet struct {
	files []File
	index map[string]FileID
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0, 4),
		index: make(map[string]FileID),
	}
}

// AddPath registers a path without content. Registering the same path twice
// returns the existing id.
func (fs *FileSet) AddPath(path string) FileID {
	norm := filepath.ToSlash(path)
	if id, ok := fs.index[norm]; ok {
		return id
	}
	return fs.add(File{Path: norm, Flags: FileVirtual})
}

// Add registers a path together with its content.
func (fs *FileSet) Add(path string, content []byte) FileID {
	norm := filepath.ToSlash(path)
	f := File{Path: norm, Content: content, LineIdx: buildLineIndex(content), Flags: FileHasContent}
	if id, ok := fs.index[norm]; ok {
		f.ID = id
		fs.files[id] = f
		return id
	}
	return fs.add(f)
}

func (fs *FileSet) add(f File) FileID {
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	f.ID = FileID(n)
	fs.files = append(fs.files, f)
	fs.index[f.Path] = f.ID
	return f.ID
}

// Get returns the file for id, or nil when the id is unknown.
func (fs *FileSet) Get(id FileID) *File {
	if fs == nil || int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// Len returns the number of registered files.
func (fs *FileSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.files)
}

// Resolve converts a span into line and column positions. Files registered
// without content resolve to line 0 and the raw byte offsets as columns.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fs.Get(span.File)
	if f == nil || f.Flags&FileHasContent == 0 {
		return LineCol{Col: span.Start}, LineCol{Col: span.End}
	}
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// Format renders span as "path:line:col" (or "path:@offset" without content).
func (fs *FileSet) Format(span Span) string {
	f := fs.Get(span.File)
	if f == nil {
		return span.String()
	}
	start, _ := fs.Resolve(span)
	if start.Line == 0 {
		return fmt.Sprintf("%s:@%d", f.Path, span.Start)
	}
	return fmt.Sprintf("%s:%d:%d", f.Path, start.Line, start.Col)
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, 64)
	for i, b := range content {
		if b == '\n' {
			off, err := safecast.Conv[uint32](i)
			if err != nil {
				panic(fmt.Errorf("line offset overflow: %w", err))
			}
			out = append(out, off)
		}
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// lineIdx holds the offsets of '\n'; line k starts after lineIdx[k-2].
	line := sort.Search(len(lineIdx), func(i int) bool { return lineIdx[i] >= off })
	lineStart := uint32(0)
	if line > 0 {
		lineStart = lineIdx[line-1] + 1
	}
	l, err := safecast.Conv[uint32](line + 1)
	if err != nil {
		panic(fmt.Errorf("line number overflow: %w", err))
	}
	return LineCol{Line: l, Col: off - lineStart + 1}
}
