// Copyright © 2024 The ELPS authors

package form

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Equal reports whether a and b are structurally equal.  Lists and vectors
// with equal elements are equal to each other.  Integers and floats are
// distinct even when numerically equal.  Native forms are equal only when
// they wrap the identical host value.
func Equal(a, b *Form) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return a.IsNil() && b.IsNil()
	}
	if a.IsSeq() && b.IsSeq() {
		return equalCells(a.Cells, b.Cells)
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case FNil:
		return true
	case FBool:
		return a.Bool == b.Bool
	case FInt, FChar:
		return a.Int == b.Int
	case FFloat:
		return a.Float == b.Float
	case FString, FSymbol, FKeyword:
		return a.Str == b.Str
	case FMap:
		return equalMaps(a, b)
	case FSet:
		return equalSets(a, b)
	case FNative:
		return a.Native == b.Native
	}
	return false
}

func equalCells(a, b []*Form) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalMaps(a, b *Form) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i+1 < len(a.Cells); i += 2 {
		v, ok := b.MapGet(a.Cells[i])
		if !ok || !Equal(a.Cells[i+1], v) {
			return false
		}
	}
	return true
}

func equalSets(a, b *Form) bool {
	if len(a.Cells) != len(b.Cells) {
		return false
	}
	for _, m := range a.Cells {
		if !b.Contains(m) {
			return false
		}
	}
	return true
}

// MapGet returns the value stored under key k in a map form.
func (f *Form) MapGet(k *Form) (*Form, bool) {
	for i := 0; i+1 < len(f.Cells); i += 2 {
		if Equal(f.Cells[i], k) {
			return f.Cells[i+1], true
		}
	}
	return nil, false
}

// Contains reports whether a set (or any collection) has a member equal to m.
func (f *Form) Contains(m *Form) bool {
	for _, c := range f.Cells {
		if Equal(c, m) {
			return true
		}
	}
	return false
}

// Hash returns a 32-bit hash consistent with Equal: forms that are Equal
// have the same hash.  Integers hash to themselves (folded to 32 bits) so
// that small dense integer keys produce small dense hashes.
func (f *Form) Hash() uint32 {
	if f == nil {
		return 0
	}
	switch f.Type {
	case FNil:
		return 0
	case FBool:
		if f.Bool {
			return 1231
		}
		return 1237
	case FInt:
		x := uint64(f.Int)
		return uint32(x ^ (x >> 32))
	case FChar:
		return uint32(f.Int)
	case FFloat:
		x := f.Float
		if x == 0 {
			x = 0 // -0 == +0
		}
		bits := math.Float64bits(x)
		return uint32(bits ^ (bits >> 32))
	case FString, FSymbol, FKeyword:
		return hashText(f.Type, f.Str)
	case FList, FVector:
		h := uint32(1)
		for _, c := range f.Cells {
			h = 31*h + c.Hash()
		}
		return h
	case FMap:
		var h uint32
		f.Pairs(func(k, v *Form) {
			h += k.Hash() ^ v.Hash()
		})
		return h
	case FSet:
		var h uint32
		for _, c := range f.Cells {
			h += c.Hash()
		}
		return h
	case FNative:
		return hashText(FNative, fmt.Sprintf("%T", f.Native))
	}
	return 0
}

func hashText(t Type, s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte{byte(t)})
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
