// Copyright © 2024 The ELPS authors

// Package token describes source locations attached to forms by the reader.
package token

import "fmt"

// Location identifies a region of a source stream.
type Location struct {
	File string // a name representing the source stream
	Path string // a physical location which may differ from File
	Pos  int    // byte offset of the first character (negative when unknown)
	End  int    // byte offset just beyond the last character
	Line int    // line number (starting at 1 when tracked)
	Col  int    // line column number (starting at 1 when tracked)
}

func (loc *Location) String() string {
	if loc == nil {
		return "<unknown>"
	}
	switch {
	case loc.Pos < 0:
		return loc.File
	case loc.Line == 0:
		return fmt.Sprintf("%s[%d]", loc.File, loc.Pos)
	case loc.Col == 0:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col)
	}
}

// Known reports whether loc points into real source text.
func (loc *Location) Known() bool {
	return loc != nil && loc.Pos >= 0
}

// Native is the location given to forms constructed in Go rather than read
// from source text.
var Native = &Location{
	File: "<native code>",
	Pos:  -1,
	End:  -1,
}

type LocationError struct {
	Err    error
	Source *Location
}

func (err *LocationError) Error() string {
	return fmt.Sprintf("%s: %s", err.Source, err.Err)
}

func (err *LocationError) Unwrap() error {
	return err.Err
}
