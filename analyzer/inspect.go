// Copyright © 2024 The ELPS authors

package analyzer

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/muesli/reflow/indent"
	"gopkg.in/yaml.v3"
)

// Record is a structured projection of an expression, frame or result used
// by tooling.  Values are scalars, Records or []interface{}.
type Record map[string]interface{}

func inspectAll(es []Expr) []interface{} {
	out := make([]interface{}, 0, len(es))
	for _, e := range es {
		out = append(out, Inspect(e))
	}
	return out
}

func bindingName(b *LocalBinding) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%s@%d:%d", b.Name, b.Ref.Frame, b.Ref.Slot)
}

func inspectBindings(bs []Binding) []interface{} {
	out := make([]interface{}, 0, len(bs))
	for _, b := range bs {
		out = append(out, Record{
			"binding": bindingName(b.Local),
			"init":    Inspect(b.Init),
		})
	}
	return out
}

// Inspect returns the fields of e as a Record.
func Inspect(e Expr) Record {
	if e == nil {
		return nil
	}
	r := Record{
		"kind":      e.Kind().String(),
		"position":  e.Position().String(),
		"needs-box": e.NeedsBox(),
		"frame":     int(e.Frame()),
	}
	if f := e.Form(); f != nil && f.Source.Known() {
		r["source"] = f.Source.String()
	}
	switch e := e.(type) {
	case *PrimitiveLiteral:
		r["value"] = e.Value.String()
		if e.Const != "" {
			r["const"] = e.Const
		}
	case *LocalReference:
		r["binding"] = bindingName(e.Binding)
		r["captured"] = e.Captured
	case *RecursionReference:
		r["binding"] = bindingName(e.Binding)
		r["fn"] = int(e.Fn)
		r["captured"] = e.Captured
	case *VarReference:
		r["var"] = e.Var.Qualified()
		r["lifted"] = e.Lifted
	case *VarDeref:
		r["var"] = e.Var.Qualified()
		r["lifted"] = e.Lifted
	case *Def:
		r["var"] = e.Var.Qualified()
		r["lifted"] = e.Lifted
		if e.Doc != "" {
			r["doc"] = e.Doc
		}
		if e.Init != nil {
			r["init"] = Inspect(e.Init)
		}
	case *Call:
		r["callee"] = Inspect(e.Callee)
		r["args"] = inspectAll(e.Args)
		r["recursive"] = e.Recursive
	case *NamedRecursion:
		r["binding"] = bindingName(e.Binding)
		r["fn"] = int(e.Fn)
		r["args"] = inspectAll(e.Args)
	case *If:
		r["test"] = Inspect(e.Test)
		r["then"] = Inspect(e.Then)
		if e.Else != nil {
			r["else"] = Inspect(e.Else)
		}
	case *Do:
		r["body"] = inspectAll(e.Body)
	case *Let:
		r["scope"] = int(e.Scope)
		r["loop"] = e.Loop
		r["bindings"] = inspectBindings(e.Bindings)
		r["body"] = Inspect(e.Body)
	case *LetFn:
		r["scope"] = int(e.Scope)
		r["bindings"] = inspectBindings(e.Bindings)
		r["body"] = Inspect(e.Body)
	case *Case:
		r["test"] = Inspect(e.Test)
		r["shift"] = e.Shift
		r["mask"] = e.Mask
		entries := make([]interface{}, 0, len(e.Entries))
		for _, ent := range e.Entries {
			entries = append(entries, Record{
				"key":      ent.Key.String(),
				"const":    ent.Const,
				"hash":     ent.Hash,
				"slot":     ent.Slot,
				"branch":   ent.Branch,
				"collided": ent.Collided,
			})
		}
		r["entries"] = entries
		r["branches"] = inspectAll(e.Branches)
		if e.Default != nil {
			r["default"] = Inspect(e.Default)
		}
		collided := make([]interface{}, 0, len(e.CollidedKeys))
		for _, k := range e.CollidedKeys {
			collided = append(collided, k.String())
		}
		r["collided-keys"] = collided
	case *Recur:
		r["target"] = int(e.Target)
		r["loop"] = e.Loop
		r["args"] = inspectAll(e.Args)
	case *Try:
		r["body"] = Inspect(e.Body)
		catches := make([]interface{}, 0, len(e.Catches))
		for _, c := range e.Catches {
			catches = append(catches, Record{
				"type":    c.Type.Name,
				"scope":   int(c.Scope),
				"binding": bindingName(c.Binding),
				"body":    Inspect(c.Body),
			})
		}
		r["catches"] = catches
		if e.Finally != nil {
			r["finally"] = Inspect(e.Finally)
		}
	case *Throw:
		r["exception"] = Inspect(e.Exception)
	case *Vector:
		r["items"] = inspectAll(e.Items)
	case *Set:
		r["items"] = inspectAll(e.Items)
	case *Map:
		entries := make([]interface{}, 0, len(e.Keys))
		for i := range e.Keys {
			entries = append(entries, Record{
				"key": Inspect(e.Keys[i]),
				"val": Inspect(e.Vals[i]),
			})
		}
		r["entries"] = entries
	case *Fn:
		if e.Name != "" {
			r["name"] = e.Name
		}
		arities := make([]interface{}, 0, len(e.Arities))
		for _, a := range e.Arities {
			params := make([]interface{}, 0, len(a.Params))
			for _, p := range a.Params {
				params = append(params, bindingName(p))
			}
			ar := Record{
				"scope":    int(a.Scope),
				"params":   params,
				"variadic": a.Variadic,
				"body":     Inspect(a.Body),
			}
			if a.Self != nil {
				ar["self"] = bindingName(a.Self)
			}
			arities = append(arities, ar)
		}
		r["arities"] = arities
	case *NativeNew:
		r["type"] = e.Type.Name
		r["args"] = inspectAll(e.Args)
	case *NativeCast:
		r["type"] = e.Type.Name
		r["value"] = Inspect(e.Value)
	case *NativeMemberCall:
		r["member"] = e.Member
		r["target"] = Inspect(e.Target)
		r["args"] = inspectAll(e.Args)
	case *NativeMemberAccess:
		r["field"] = e.Field
		r["target"] = Inspect(e.Target)
	case *NativeOperatorCall:
		r["op"] = e.Op
		r["args"] = inspectAll(e.Args)
	}
	return r
}

// InspectFrame returns the kind, locals and captures of f as a Record.
func InspectFrame(f *Frame) Record {
	locals := make([]interface{}, 0, len(f.Locals))
	for _, b := range f.Locals {
		locals = append(locals, Record{
			"binding": bindingName(b),
			"kind":    b.Kind.String(),
		})
	}
	captures := make([]interface{}, 0, len(f.Captures))
	for _, b := range f.Captures {
		captures = append(captures, bindingName(b))
	}
	return Record{
		"id":       int(f.ID),
		"kind":     f.Kind.String(),
		"parent":   int(f.Parent),
		"locals":   locals,
		"captures": captures,
	}
}

// InspectResult returns the expression tree, frames and lift tables of r as
// a Record.
func InspectResult(r *Result) Record {
	frames := make([]interface{}, 0, r.Frames.Len())
	for _, f := range r.Frames.All() {
		frames = append(frames, InspectFrame(f))
	}
	constants := make([]interface{}, 0, len(r.Constants))
	for _, c := range r.Constants {
		constants = append(constants, Record{
			"name":  c.Name,
			"value": c.Value.String(),
		})
	}
	vars := make([]interface{}, 0, len(r.Vars))
	for _, v := range r.Vars {
		vars = append(vars, Record{
			"name": v.Name,
			"var":  v.Var.Qualified(),
		})
	}
	return Record{
		"id":        r.ID,
		"root":      Inspect(r.Root),
		"frames":    frames,
		"constants": constants,
		"vars":      vars,
	}
}

// Format selects the encoding used by Dump.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format: %q", s)
}

// Dump writes rec to w.
func Dump(w io.Writer, rec Record, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		_, err := io.WriteString(w, textTree(rec))
		return err
	}
	return fmt.Errorf("unknown output format: %q", format)
}

// header keys are folded into the first line of an expression record.
var headerKeys = map[string]bool{
	"kind":      true,
	"position":  true,
	"needs-box": true,
	"source":    true,
}

func textTree(rec Record) string {
	var buf strings.Builder
	if kind, ok := rec["kind"].(string); ok {
		if pos, isExpr := rec["position"].(string); isExpr {
			buf.WriteString(kind)
			buf.WriteString(" ")
			buf.WriteString(pos)
			if boxed, _ := rec["needs-box"].(bool); boxed {
				buf.WriteString(" boxed")
			}
			if src, ok := rec["source"].(string); ok {
				buf.WriteString(" ")
				buf.WriteString(src)
			}
			buf.WriteString("\n")
		}
	}
	keys := make([]string, 0, len(rec))
	for k := range rec {
		if _, isExpr := rec["position"]; isExpr && headerKeys[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeTextValue(&buf, k+":", rec[k])
	}
	return buf.String()
}

func writeTextValue(buf *strings.Builder, label string, v interface{}) {
	switch v := v.(type) {
	case Record:
		buf.WriteString(label)
		buf.WriteString("\n")
		buf.WriteString(indent.String(textTree(v), 2))
	case []interface{}:
		if len(v) == 0 {
			buf.WriteString(label)
			buf.WriteString(" []\n")
			return
		}
		buf.WriteString(label)
		buf.WriteString("\n")
		var items strings.Builder
		for _, item := range v {
			writeTextValue(&items, "-", item)
		}
		buf.WriteString(indent.String(items.String(), 2))
	default:
		fmt.Fprintf(buf, "%s %v\n", label, v)
	}
}
