// Copyright © 2024 The ELPS authors

package analyzer

import (
	"github.com/luthersystems/lispc/form"
)

const (
	// DefaultMaxMaskBits bounds the dispatch table of a case* at 8192
	// slots.
	DefaultMaxMaskBits = 13
	maxShift           = 31
)

// CaseOptions tune the case* shift/mask search.
type CaseOptions struct {
	// CollisionThreshold is the number of avoidable collisions accepted
	// before a wider mask is tried.
	CollisionThreshold int
	// MaxMaskBits is the widest mask considered.
	MaxMaskBits int
}

// DefaultCaseOptions returns the options used when none are configured.
func DefaultCaseOptions() CaseOptions {
	return CaseOptions{
		CollisionThreshold: 0,
		MaxMaskBits:        DefaultMaxMaskBits,
	}
}

// CaseMap is the result of compiling a set of case* keys.  Slots and
// Collided are indexed like the keys passed to CompileCase.
type CaseMap struct {
	Shift uint
	Mask  uint32
	Slots []int
	// Collided is set for keys whose slot holds more than one key.
	Collided []bool
	// Collisions counts keys that share a slot with a key of a different
	// hash.
	Collisions int
}

// Slot returns the dispatch slot of a value hashing to h.
func (m CaseMap) Slot(h uint32) int {
	return int((h >> m.Shift) & m.Mask)
}

// CompileCase chooses a shift and mask for keys.  Mask widths are tried
// from narrowest to widest and, for each width, shifts from smallest to
// largest.  The first configuration with at most opts.CollisionThreshold
// avoidable collisions is chosen.  Keys with identical hashes can never be
// separated and are not counted.  When no configuration meets the
// threshold the one with the fewest collisions is chosen.
func CompileCase(keys []*form.Form, opts CaseOptions) CaseMap {
	if opts.MaxMaskBits < 0 {
		opts.MaxMaskBits = 0
	}
	if opts.MaxMaskBits > 32 {
		opts.MaxMaskBits = 32
	}
	hashes := make([]uint32, len(keys))
	for i, k := range keys {
		hashes[i] = k.Hash()
	}
	best := CaseMap{Collisions: -1}
	for bits := 0; bits <= opts.MaxMaskBits; bits++ {
		mask := uint32(uint64(1)<<uint(bits) - 1)
		for shift := uint(0); shift <= maxShift; shift++ {
			collisions := countCollisions(hashes, shift, mask)
			if best.Collisions < 0 || collisions < best.Collisions {
				best = CaseMap{Shift: shift, Mask: mask, Collisions: collisions}
			}
			if collisions <= opts.CollisionThreshold {
				return finishCaseMap(hashes, shift, mask, collisions)
			}
			if mask == 0 {
				// Every shift is equivalent for an empty mask.
				break
			}
		}
	}
	return finishCaseMap(hashes, best.Shift, best.Mask, best.Collisions)
}

// countCollisions counts, for each slot, the distinct hashes beyond the
// first.
func countCollisions(hashes []uint32, shift uint, mask uint32) int {
	seen := make(map[uint32][]uint32, len(hashes))
	collisions := 0
	for _, h := range hashes {
		slot := (h >> shift) & mask
		distinct := true
		for _, other := range seen[slot] {
			if other == h {
				distinct = false
				break
			}
		}
		if !distinct {
			continue
		}
		if len(seen[slot]) > 0 {
			collisions++
		}
		seen[slot] = append(seen[slot], h)
	}
	return collisions
}

func finishCaseMap(hashes []uint32, shift uint, mask uint32, collisions int) CaseMap {
	m := CaseMap{
		Shift:      shift,
		Mask:       mask,
		Slots:      make([]int, len(hashes)),
		Collided:   make([]bool, len(hashes)),
		Collisions: collisions,
	}
	count := make(map[int]int, len(hashes))
	for i, h := range hashes {
		m.Slots[i] = m.Slot(h)
		count[m.Slots[i]]++
	}
	for i := range hashes {
		m.Collided[i] = count[m.Slots[i]] > 1
	}
	return m
}

// Select returns the branch a Case takes when its test evaluates to v.  It
// follows the generated dispatch: v is mapped to a slot and compared for
// equality against the keys in that slot.
func (c *Case) Select(v *form.Form) Expr {
	slot := int((v.Hash() >> c.Shift) & c.Mask)
	for _, e := range c.Entries {
		if e.Slot == slot && form.Equal(e.Key, v) {
			return c.Branches[e.Branch]
		}
	}
	return c.Default
}
