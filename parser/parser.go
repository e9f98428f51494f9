// Copyright © 2024 The ELPS authors

/*
Package parser reads source text into forms.

	form    := list | vector | map | set | quoted | varref | term
	list    := '(' form* ')'
	vector  := '[' form* ']'
	map     := '{' form* '}'        ; even number of forms
	set     := '#{' form* '}'
	quoted  := "'" form             ; (quote form)
	varref  := "#'" form            ; (var form)
	term    := string | number | char | keyword | symbol

Commas are whitespace and ';' starts a comment running to the end of the
line.  Every form returned by the reader carries its source location.
*/
package parser

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/luthersystems/lispc/form"
	"github.com/luthersystems/lispc/parser/token"
	parsec "github.com/prataprc/goparsec"
)

const (
	termIgnore  = "IGNORE"
	termString  = "STRING"
	termNumber  = "NUMBER"
	termChar    = "CHAR"
	termKeyword = "KEYWORD"
	termSymbol  = "SYMBOL"
)

// Reader parses source streams into forms.
type Reader struct {
	path string
}

// Option configures a Reader.
type Option func(*Reader)

// WithPath associates a physical location (e.g. filesystem path) with the
// locations produced by the reader.
func WithPath(path string) Option {
	return func(r *Reader) {
		r.path = path
	}
}

// NewReader returns a new Reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read parses every form in src.  The name is recorded as the file of each
// form's location.
func (r *Reader) Read(name string, src io.Reader) ([]*form.Form, error) {
	text, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(name, text)
}

// ReadBytes parses every form in text.
func (r *Reader) ReadBytes(name string, text []byte) ([]*form.Form, error) {
	b := &builder{
		file:  name,
		path:  r.path,
		lines: lineStarts(text),
	}
	var forms []*form.Form
	s := parsec.NewScanner(text)
	p := b.grammar()
	root, s := p(s)
	for root != nil {
		f, err := b.topLevel(root)
		if err != nil {
			return nil, err
		}
		if f != nil {
			forms = append(forms, f)
		}
		root, s = p(s)
	}
	_, s = s.SkipWS()
	if !s.Endof() {
		pos := s.GetCursor()
		garbage, _ := s.Match(`.{1,16}`)
		if len(garbage) > 15 {
			garbage = append(garbage[:15:15], []byte("...")...)
		}
		return nil, b.errorf(pos, "unexpected source text starting: %s", garbage)
	}
	return forms, nil
}

// ReadString is a convenience wrapper around NewReader().ReadBytes.
func ReadString(name, src string) ([]*form.Form, error) {
	return NewReader().ReadBytes(name, []byte(src))
}

// builder converts parsec nodes into forms, computing line and column
// numbers from byte offsets.
type builder struct {
	file  string
	path  string
	lines []int // byte offset of the first character of each line
}

func lineStarts(text []byte) []int {
	starts := []int{0}
	for i, c := range text {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (b *builder) loc(pos, end int) *token.Location {
	line := sort.Search(len(b.lines), func(i int) bool { return b.lines[i] > pos })
	return &token.Location{
		File: b.file,
		Path: b.path,
		Pos:  pos,
		End:  end,
		Line: line,
		Col:  pos - b.lines[line-1] + 1,
	}
}

func (b *builder) errorf(pos int, format string, v ...interface{}) error {
	return &token.LocationError{
		Err:    fmt.Errorf(format, v...),
		Source: b.loc(pos, pos),
	}
}

func (b *builder) grammar() parsec.Parser {
	openP := parsec.Atom("(", "OPENP")
	closeP := parsec.Atom(")", "CLOSEP")
	openB := parsec.Atom("[", "OPENB")
	closeB := parsec.Atom("]", "CLOSEB")
	openM := parsec.Atom("{", "OPENM")
	closeM := parsec.Atom("}", "CLOSEM")
	openS := parsec.Atom("#{", "OPENS")
	quote := parsec.Atom("'", "QUOTE")
	varQuote := parsec.Atom("#'", "VARQUOTE")

	ignore := parsec.Token(`(?:,|;[^\n]*)`, termIgnore)
	str := parsec.Token(`"(?:[^"\\]|\\.)*"`, termString)
	number := parsec.Token(`[+-]?[0-9]+(?:\.[0-9]+)?(?:[eE][+-]?[0-9]+)?`, termNumber)
	char := parsec.Token(`\\(?:newline|space|tab|return|.)`, termChar)
	keyword := parsec.Token(`:[^\s()\[\]{}"',;\\@^\x60~]+`, termKeyword)
	symbol := parsec.Token(`[^\s()\[\]{}"',;\\@^\x60~:#0-9][^\s()\[\]{}"',;\\@^\x60~]*`, termSymbol)

	term := parsec.OrdChoice(b.termNode,
		str,
		number,
		char,
		keyword,
		symbol, // symbol comes last because it swallows anything
	)

	var expr parsec.Parser // forward declaration allows for recursive parsing
	items := parsec.Kleene(nil, &expr)
	list := parsec.And(b.collNode(form.FList), openP, items, closeP)
	vector := parsec.And(b.collNode(form.FVector), openB, items, closeB)
	set := parsec.And(b.collNode(form.FSet), openS, items, closeM)
	dict := parsec.And(b.collNode(form.FMap), openM, items, closeM)
	quoted := parsec.And(b.wrapNode("quote"), quote, &expr)
	varRef := parsec.And(b.wrapNode("var"), varQuote, &expr)
	unmatched := parsec.And(b.unmatchedNode,
		parsec.OrdChoice(firstNode, openS, openP, openB, openM), items, parsec.End())

	expr = parsec.OrdChoice(firstNode,
		ignore,
		term,
		list,
		vector,
		set,
		dict,
		varRef,
		quoted,
		// Error matching cases come last because they have the lowest
		// precedence.
		unmatched,
	)
	return expr
}

// firstNode unwraps the single node matched by an ordered choice.
func firstNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	return nodes[0]
}

func (b *builder) topLevel(root parsec.ParsecNode) (*form.Form, error) {
	switch n := root.(type) {
	case *form.Form:
		return n, nil
	case error:
		return nil, n
	case *parsec.Terminal:
		if n.Name == termIgnore {
			return nil, nil
		}
		return nil, b.errorf(n.Position, "unexpected token: %s", n.Value)
	default:
		return nil, fmt.Errorf("unexpected parse node: %T", root)
	}
}

// children flattens the nodes produced by a Kleene repetition, dropping
// comments and surfacing the first nested error.
func (b *builder) children(node parsec.ParsecNode) ([]*form.Form, error) {
	var cells []*form.Form
	var walk func(parsec.ParsecNode) error
	walk = func(n parsec.ParsecNode) error {
		switch n := n.(type) {
		case *form.Form:
			cells = append(cells, n)
		case error:
			return n
		case *parsec.Terminal:
			if n.Name != termIgnore {
				return b.errorf(n.Position, "unexpected token: %s", n.Value)
			}
		case []parsec.ParsecNode:
			for _, c := range n {
				if err := walk(c); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(node); err != nil {
		return nil, err
	}
	return cells, nil
}

func (b *builder) collNode(typ form.Type) parsec.Nodify {
	return func(nodes []parsec.ParsecNode) parsec.ParsecNode {
		open := nodes[0].(*parsec.Terminal)
		end := open.Position + len(open.Value)
		if closing, ok := nodes[len(nodes)-1].(*parsec.Terminal); ok {
			end = closing.Position + len(closing.Value)
		}
		cells, err := b.children(nodes[1 : len(nodes)-1])
		if err != nil {
			return err
		}
		if typ == form.FMap && len(cells)%2 != 0 {
			return b.errorf(open.Position, "map literal must contain an even number of forms")
		}
		return &form.Form{
			Type:   typ,
			Cells:  cells,
			Source: b.loc(open.Position, end),
		}
	}
}

func (b *builder) wrapNode(head string) parsec.Nodify {
	return func(nodes []parsec.ParsecNode) parsec.ParsecNode {
		mark := nodes[0].(*parsec.Terminal)
		inner, ok := nodes[1].(*form.Form)
		if !ok {
			if err, isErr := nodes[1].(error); isErr {
				return err
			}
			return b.errorf(mark.Position, "nothing following %s", mark.Value)
		}
		loc := b.loc(mark.Position, inner.Source.End)
		return &form.Form{
			Type:   form.FList,
			Source: loc,
			Cells: []*form.Form{
				{Type: form.FSymbol, Str: head, Source: b.loc(mark.Position, mark.Position+len(mark.Value))},
				inner,
			},
		}
	}
}

func (b *builder) unmatchedNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	open := nodes[0].(*parsec.Terminal)
	return b.errorf(open.Position, "unmatched %q", open.Value)
}

func (b *builder) termNode(nodes []parsec.ParsecNode) parsec.ParsecNode {
	term := nodes[0].(*parsec.Terminal)
	loc := b.loc(term.Position, term.Position+len(term.Value))
	f, err := b.term(term)
	if err != nil {
		return &token.LocationError{Err: err, Source: loc}
	}
	f.Source = loc
	return f
}

func (b *builder) term(term *parsec.Terminal) (*form.Form, error) {
	text := term.Value
	switch term.Name {
	case termString:
		s, err := strconv.Unquote(text)
		if err != nil {
			return nil, fmt.Errorf("invalid string literal %s: %v", text, err)
		}
		return form.String(s), nil
	case termNumber:
		if strings.ContainsAny(text, ".eE") {
			x, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid float literal %s: %v", text, err)
			}
			return form.Float(x), nil
		}
		x, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("integer literal overflows int: %s", text)
		}
		return form.Int(x), nil
	case termChar:
		name := text[1:]
		if c, ok := form.CharByName[name]; ok {
			return form.Char(c), nil
		}
		c, _ := utf8.DecodeRuneInString(name)
		return form.Char(c), nil
	case termKeyword:
		return form.Keyword(text[1:]), nil
	case termSymbol:
		switch text {
		case "nil":
			return form.Nil(), nil
		case "true":
			return form.Bool(true), nil
		case "false":
			return form.Bool(false), nil
		}
		return form.Symbol(text), nil
	}
	return nil, fmt.Errorf("unknown terminal %s", term.Name)
}
