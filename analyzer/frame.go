// Copyright © 2024 The ELPS authors

package analyzer

import (
	"github.com/luthersystems/lispc/form"
	"github.com/sirupsen/logrus"
)

// FrameID is the handle of a Frame within a Frames arena.
type FrameID int

const (
	// NoFrame is the parent of the root frame.
	NoFrame FrameID = -1
	// RootFrame is the handle of the first frame of every arena.
	RootFrame FrameID = 0
)

// FrameKind classifies the kind of lexical scope.
type FrameKind int

const (
	FrameRoot     FrameKind = iota // top-level form
	FrameFunction                  // one arity of a fn*
	FrameLet                       // let*, loop*, letfn* and catch bindings
)

func (k FrameKind) String() string {
	switch k {
	case FrameRoot:
		return "root"
	case FrameFunction:
		return "function"
	case FrameLet:
		return "let"
	default:
		return "unknown"
	}
}

// BindingKind describes the form that introduced a LocalBinding.
type BindingKind int

const (
	BindParam    BindingKind = iota // fn* parameter
	BindVariadic                    // fn* parameter following &
	BindSelf                        // a fn*'s own name
	BindLet                         // let* binding
	BindLoop                        // loop* binding
	BindLetFn                       // letfn* binding
	BindCatch                       // catch exception binding
)

func (k BindingKind) String() string {
	switch k {
	case BindParam:
		return "param"
	case BindVariadic:
		return "variadic"
	case BindSelf:
		return "self"
	case BindLet:
		return "let"
	case BindLoop:
		return "loop"
	case BindLetFn:
		return "letfn"
	case BindCatch:
		return "catch"
	default:
		return "unknown"
	}
}

// BindingRef identifies a LocalBinding by the frame that owns it and its
// slot within that frame.  Rebinding a name within one frame allocates a
// new slot, so a BindingRef never changes meaning.
type BindingRef struct {
	Frame FrameID
	Slot  int
}

// LocalBinding is a local variable or parameter.  It is owned by the frame
// that introduced it.
type LocalBinding struct {
	Name   string
	Symbol *form.Form
	Kind   BindingKind
	// Value is the initializer of let-style bindings.  It is nil for
	// parameters and catch bindings.
	Value Expr
	Ref   BindingRef
}

// Frame is one lexical scope.
type Frame struct {
	ID     FrameID
	Kind   FrameKind
	Parent FrameID
	// Form is the form that introduced the frame.
	Form *form.Form
	// Locals are the bindings introduced in this frame, indexed by slot.
	Locals []*LocalBinding
	// Captures are bindings owned by enclosing frames and referenced from
	// inside this function frame, in order of first capture.
	Captures []*LocalBinding

	locals   map[string]int
	captures map[string]int
}

// Define introduces a new binding named by sym in f.  A name already bound
// in f is shadowed by the new slot.
func (f *Frame) Define(sym *form.Form, kind BindingKind) *LocalBinding {
	b := &LocalBinding{
		Name:   sym.Str,
		Symbol: sym,
		Kind:   kind,
		Ref:    BindingRef{Frame: f.ID, Slot: len(f.Locals)},
	}
	f.Locals = append(f.Locals, b)
	f.locals[b.Name] = b.Ref.Slot
	return b
}

// Local returns the binding currently visible under name in f, ignoring
// enclosing frames.
func (f *Frame) Local(name string) (*LocalBinding, bool) {
	slot, ok := f.locals[name]
	if !ok {
		return nil, false
	}
	return f.Locals[slot], true
}

// Captured returns the captured binding recorded under name.
func (f *Frame) Captured(name string) (*LocalBinding, bool) {
	i, ok := f.captures[name]
	if !ok {
		return nil, false
	}
	return f.Captures[i], true
}

// FindResult is a successful resolution of a symbol against a scope chain.
type FindResult struct {
	Binding *LocalBinding
	// Crossed lists the function frames between the reference and the
	// binding's owner, nearest first.  The owner is never included.
	Crossed []FrameID
}

// Frames is the arena holding every frame created while analyzing one
// top-level form.
type Frames struct {
	frames []*Frame
	log    *logrus.Entry
}

// NewFrames returns an arena containing only the root frame.
func NewFrames(log *logrus.Entry) *Frames {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	fs := &Frames{log: log}
	fs.New(FrameRoot, NoFrame, nil)
	return fs
}

// New allocates a frame of the given kind.
func (fs *Frames) New(kind FrameKind, parent FrameID, f *form.Form) *Frame {
	if kind == FrameRoot && len(fs.frames) != 0 {
		fs.log.Panicf("root frame allocated twice")
	}
	if kind != FrameRoot && fs.Get(parent) == nil {
		fs.log.Panicf("%s frame allocated without a parent", kind)
	}
	frame := &Frame{
		ID:       FrameID(len(fs.frames)),
		Kind:     kind,
		Parent:   parent,
		Form:     f,
		locals:   make(map[string]int),
		captures: make(map[string]int),
	}
	fs.frames = append(fs.frames, frame)
	return frame
}

// Get returns the frame with the given handle, or nil.
func (fs *Frames) Get(id FrameID) *Frame {
	if id < 0 || int(id) >= len(fs.frames) {
		return nil
	}
	return fs.frames[id]
}

// Len returns the number of frames in the arena.
func (fs *Frames) Len() int {
	return len(fs.frames)
}

// All returns every frame in allocation order.
func (fs *Frames) All() []*Frame {
	return fs.frames
}

// Binding dereferences ref.
func (fs *Frames) Binding(ref BindingRef) *LocalBinding {
	frame := fs.Get(ref.Frame)
	if frame == nil || ref.Slot < 0 || ref.Slot >= len(frame.Locals) {
		fs.log.Panicf("dangling binding reference %+v", ref)
	}
	return frame.Locals[ref.Slot]
}

// Resolve searches the scope chain starting at from for a binding named
// name.  The nearest enclosing binding wins.
func (fs *Frames) Resolve(from FrameID, name string) (FindResult, bool) {
	var crossed []FrameID
	for id := from; id != NoFrame; {
		frame := fs.Get(id)
		if frame == nil {
			fs.log.Panicf("scope chain broken at frame %d", id)
		}
		if b, ok := frame.Local(name); ok {
			return FindResult{Binding: b, Crossed: crossed}, true
		}
		if frame.Kind == FrameFunction {
			crossed = append(crossed, frame.ID)
		}
		id = frame.Parent
	}
	return FindResult{}, false
}

// RegisterCaptures records r's binding as captured by every function frame
// r crossed.
func (fs *Frames) RegisterCaptures(r FindResult) {
	for _, id := range r.Crossed {
		frame := fs.Get(id)
		if i, ok := frame.captures[r.Binding.Name]; ok {
			if frame.Captures[i] != r.Binding {
				fs.log.Panicf("frame %d captures %s from both %+v and %+v",
					id, r.Binding.Name, frame.Captures[i].Ref, r.Binding.Ref)
			}
			continue
		}
		frame.captures[r.Binding.Name] = len(frame.Captures)
		frame.Captures = append(frame.Captures, r.Binding)
	}
}

// Function returns the nearest function frame enclosing (or equal to) id,
// or nil when id is not inside a function.
func (fs *Frames) Function(id FrameID) *Frame {
	for frame := fs.Get(id); frame != nil; frame = fs.Get(frame.Parent) {
		if frame.Kind == FrameFunction {
			return frame
		}
	}
	return nil
}
