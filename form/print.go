// Copyright © 2024 The ELPS authors

package form

import (
	"fmt"
	"strconv"
	"strings"
)

var charNames = map[rune]string{
	'\n': "newline",
	' ':  "space",
	'\t': "tab",
	'\r': "return",
}

// CharByName maps the names accepted after a backslash to their rune.
var CharByName = map[string]rune{
	"newline": '\n',
	"space":   ' ',
	"tab":     '\t',
	"return":  '\r',
}

func (f *Form) String() string {
	if f == nil {
		return "nil"
	}
	switch f.Type {
	case FNil:
		return "nil"
	case FBool:
		return strconv.FormatBool(f.Bool)
	case FInt:
		return strconv.Itoa(f.Int)
	case FFloat:
		s := strconv.FormatFloat(f.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			// Keep floats distinguishable from ints when read back.
			s += ".0"
		}
		return s
	case FChar:
		if name, ok := charNames[rune(f.Int)]; ok {
			return `\` + name
		}
		return `\` + string(rune(f.Int))
	case FString:
		return strconv.Quote(f.Str)
	case FSymbol:
		return f.Str
	case FKeyword:
		return ":" + f.Str
	case FList:
		return cellString(f.Cells, "(", ")", " ")
	case FVector:
		return cellString(f.Cells, "[", "]", " ")
	case FSet:
		return cellString(f.Cells, "#{", "}", " ")
	case FMap:
		var buf strings.Builder
		buf.WriteString("{")
		i := 0
		f.Pairs(func(k, v *Form) {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(k.String())
			buf.WriteString(" ")
			buf.WriteString(v.String())
			i++
		})
		buf.WriteString("}")
		return buf.String()
	case FNative:
		return fmt.Sprintf("#<native %T>", f.Native)
	default:
		return fmt.Sprintf("#<%s>", f.Type)
	}
}

func cellString(cells []*Form, left, right, sep string) string {
	var buf strings.Builder
	buf.WriteString(left)
	for i, c := range cells {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(c.String())
	}
	buf.WriteString(right)
	return buf.String()
}
