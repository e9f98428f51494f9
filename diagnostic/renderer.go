// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const notePrefix = "   = note: "

// Renderer formats diagnostics as annotated source snippets.  A Renderer
// caches the source files it reads and is not safe for concurrent use.
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// Width wraps note text at the given column.  Zero disables wrapping.
	Width int

	// SourceReader reads source file contents. If nil, os.ReadFile is used.
	SourceReader func(string) ([]byte, error)

	sources map[string][]string
}

// Render writes a single diagnostic to w.
func (r *Renderer) Render(w io.Writer, d Diagnostic) error {
	p := choosePalette(r.Color, fileFromWriter(w))
	bw := bufio.NewWriter(w)
	ew := &errWriter{w: bw}

	r.writeHeader(ew, d, p)
	for _, span := range d.Spans {
		r.writeSpan(ew, span, p)
	}
	for _, note := range d.Notes {
		ew.printf("   %s note: %s\n", p.boldCyan("="), r.wrapNote(note))
	}

	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

// RenderAll writes all diagnostics to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, diags []Diagnostic) error {
	for i, d := range diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.Render(w, d); err != nil {
			return err
		}
	}
	return nil
}

// wrapNote word-wraps a note so that continuation lines align with the
// first line of text.
func (r *Renderer) wrapNote(note string) string {
	width := r.Width - len(notePrefix)
	if r.Width <= 0 || width < 20 {
		return note
	}
	wrapped := wordwrap.String(note, width)
	first, rest, found := strings.Cut(wrapped, "\n")
	if !found {
		return first
	}
	return first + "\n" + indent.String(rest, uint(len(notePrefix)))
}

// errWriter wraps a writer and captures the first error, short-circuiting
// subsequent writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, a...)
}

func (ew *errWriter) print(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (r *Renderer) writeHeader(ew *errWriter, d Diagnostic, p palette) {
	sevColor := p.boldRed
	switch d.Severity {
	case SeverityWarning:
		sevColor = p.yellow
	case SeverityNote:
		sevColor = p.boldCyan
	}
	sev := d.Severity.String()
	if d.Code != "" {
		sev += "[" + d.Code + "]"
	}
	ew.printf("%s: %s\n", sevColor(p.bold(sev)), p.bold(d.Message))
}

func (r *Renderer) writeSpan(ew *errWriter, span Span, p palette) {
	loc := span.File
	if span.Line > 0 {
		loc = fmt.Sprintf("%s:%d", span.File, span.Line)
		if span.Col > 0 {
			loc = fmt.Sprintf("%s:%d:%d", span.File, span.Line, span.Col)
		}
	}
	ew.printf("  %s %s\n", p.boldBlue("-->"), loc)

	source := r.readSourceLine(span.File, span.Line)
	if source == "" {
		ew.printf("   %s\n", p.boldBlue("|"))
		if span.Label != "" {
			ew.printf("   %s %s\n", p.boldBlue("="), span.Label)
		}
		return
	}

	lineStr := fmt.Sprintf("%d", span.Line)
	pad := strings.Repeat(" ", len(lineStr))
	gutter := p.boldBlue(pad + " |")

	ew.printf(" %s\n", gutter)
	displaySource := strings.ReplaceAll(source, "\t", "    ")
	ew.printf(" %s  %s\n", p.boldBlue(lineStr+" |"), displaySource)

	col := span.Col
	endCol := span.EndCol
	if col <= 0 {
		col = 1
	}
	if endCol <= 0 {
		endCol = r.detectEndCol(source, col)
	}
	if endCol > len(source) {
		// Spans covering several lines are cut at the end of the first.
		endCol = len(source)
	}
	if endCol < col {
		endCol = col
	}

	prefix := ""
	if col > 1 && col-1 <= len(source) {
		prefix = source[:col-1]
	}
	mark, style := "^", p.boldRed
	if span.Secondary {
		mark, style = "-", p.boldBlue
	}
	underline := strings.Repeat(" ", displayWidth(prefix)) + style(strings.Repeat(mark, endCol-col+1))
	ew.printf(" %s  %s", gutter, underline)
	if span.Label != "" {
		ew.printf(" %s", style(span.Label))
	}
	ew.print("\n")
	ew.printf(" %s\n", gutter)
}

// readSourceLine returns line (1-based) of file, or "" when the file has no
// readable source.  Files are read once per Renderer.
func (r *Renderer) readSourceLine(file string, line int) string {
	if line <= 0 || file == "" || strings.HasPrefix(file, "<") {
		return ""
	}
	lines, ok := r.sources[file]
	if !ok {
		lines = r.loadSource(file)
		if r.sources == nil {
			r.sources = make(map[string][]string)
		}
		r.sources[file] = lines
	}
	if line > len(lines) {
		return ""
	}
	return lines[line-1]
}

func (r *Renderer) loadSource(file string) []string {
	reader := r.SourceReader
	if reader == nil {
		reader = func(name string) ([]byte, error) {
			return os.ReadFile(name) //nolint:gosec // reads user-specified source files for display
		}
	}
	data, err := reader(file)
	if err != nil {
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// detectEndCol scans from col to find the end of the current token.
func (r *Renderer) detectEndCol(source string, col int) int {
	if col <= 0 || col > len(source) {
		return col
	}
	end := col - 1 // 0-based
	for end < len(source) {
		ch, size := utf8.DecodeRuneInString(source[end:])
		if strings.ContainsRune(" \t,()[]{}", ch) {
			break
		}
		end += size
	}
	if end == col-1 {
		return col // single character
	}
	return end
}

// displayWidth returns the display width of a string, expanding tabs to 4 spaces.
func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// fileFromWriter attempts to extract an *os.File from a writer for terminal
// detection. Returns nil if the writer is not backed by a file.
func fileFromWriter(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}
