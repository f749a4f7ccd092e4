package blockdev

// Path is one resolved device stack, ordered base first. A Path is
// never empty once constructed; the head is a raw base device and the
// tail is the current top. Nodes are owned by value, so shared prefixes
// across paths are copies, never aliases.
type Path []BlockDev

// Top returns the current top node. ok is false on an empty path.
func (p Path) Top() (BlockDev, bool) {
	if len(p) == 0 {
		return BlockDev{}, false
	}
	return p[len(p)-1], true
}

// Base returns the bottom node. ok is false on an empty path.
func (p Path) Base() (BlockDev, bool) {
	if len(p) == 0 {
		return BlockDev{}, false
	}
	return p[0], true
}

// Push appends d as the new top.
func (p *Path) Push(d BlockDev) {
	*p = append(*p, d)
}

// PopBack removes and returns the top node.
func (p *Path) PopBack() (BlockDev, bool) {
	old := *p
	if len(old) == 0 {
		return BlockDev{}, false
	}
	d := old[len(old)-1]
	*p = old[:len(old)-1]
	return d, true
}

// Clone returns a copy sharing no storage with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Equal reports elementwise equality.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Stacked reports whether every consecutive pair of nodes respects the
// layering rules, and that p is non-empty.
func (p Path) Stacked() bool {
	if len(p) == 0 {
		return false
	}
	for i := 1; i < len(p); i++ {
		if !CanStack(p[i-1].Type, p[i].Type) {
			return false
		}
	}
	return true
}

// Paths is the stack store: the growing, unordered collection of
// resolved paths built up during validation. A single physical device
// may head several paths (a partition feeding a PV in a VG with two LVs
// yields two paths with a shared prefix).
type Paths []Path

// Append adds a resolved path to the store.
func (ps *Paths) Append(p Path) {
	*ps = append(*ps, p)
}

// FindByTop returns the index of the first path whose top device path
// is device, or -1. Callers that must visit every match (LV and LUKS
// fan-out) iterate the store directly instead.
func (ps Paths) FindByTop(device string) int {
	for i := range ps {
		top, ok := ps[i].Top()
		if !ok {
			continue
		}
		if top.Device == device {
			return i
		}
	}
	return -1
}

// Clone deep-copies the store.
func (ps Paths) Clone() Paths {
	if ps == nil {
		return nil
	}
	out := make(Paths, len(ps))
	for i := range ps {
		out[i] = ps[i].Clone()
	}
	return out
}

// EqualSets reports whether a and b hold the same paths regardless of
// order. Duplicates must match pairwise.
func EqualSets(a, b Paths) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for i := range a {
		for j := range b {
			if used[j] {
				continue
			}
			if a[i].Equal(b[j]) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}
