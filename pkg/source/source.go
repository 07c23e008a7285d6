// Package source holds the named, line-indexed source buffer shared by the
// lexer, parser, compiler diagnostics and VM backtraces.
package source

import "strings"

// File represents one unit of source text: a script file, a REPL line, or
// an eval() string. It is immutable once constructed.
type File struct {
	Name    string // display name, e.g. "script.xr", "<eval>", "<repl>"
	Path    string // filesystem path, empty for REPL/eval input
	Content string

	lines []string // split lazily on first Lines() call
}

// New creates a source file with an explicit display name and path.
func New(name, path, content string) *File {
	return &File{Name: name, Path: path, Content: content}
}

// FromFile creates a source file for a script read off disk.
func FromFile(path, content string) *File {
	return &File{Name: path, Path: path, Content: content}
}

// FromEval creates a source file for a one-off string passed to -e or eval.
func FromEval(content string) *File {
	return &File{Name: "<eval>", Content: content}
}

// FromRepl creates a source file for a single REPL line.
func FromRepl(content string) *File {
	return &File{Name: "<repl>", Content: content}
}

// Lines returns the source split on '\n', cached after the first call.
func (f *File) Lines() []string {
	if f.lines == nil {
		f.lines = strings.Split(f.Content, "\n")
	}
	return f.lines
}

// Line returns the 1-based source line n, or "" if out of range.
func (f *File) Line(n int) string {
	lines := f.Lines()
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}

// DisplayPath returns the best identifier to show a user: the path if the
// source came from a file, otherwise the synthetic name.
func (f *File) DisplayPath() string {
	if f.Path != "" {
		return f.Path
	}
	return f.Name
}
