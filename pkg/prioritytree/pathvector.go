package prioritytree

// PathVector is the fixed-width lexicographic comparison key derived from a
// matched path. Slot i holds the 1-based branch index chosen at tree level
// i; unused trailing slots are 0.
type PathVector [MaxDepth]int

// sentinelSlot is the value every slot holds in the "no match" sentinel.
const sentinelSlot = 999

// Unmatched is the sentinel vector denoting "no match — lowest priority".
var Unmatched = PathVector{
	sentinelSlot, sentinelSlot, sentinelSlot, sentinelSlot, sentinelSlot,
	sentinelSlot, sentinelSlot, sentinelSlot, sentinelSlot, sentinelSlot,
}

// NewPathVector builds a PathVector from a matched root-to-leaf path.
func NewPathVector(path []MatchedStep) PathVector {
	var v PathVector
	for depth, step := range path {
		if depth >= MaxDepth {
			break
		}
		v[depth] = step.BranchIndex
	}
	return v
}

// Compare returns -1, 0, or 1 as a sorts before, equal to, or after b,
// lexicographically — lower wins at the first differing index.
func (a PathVector) Compare(b PathVector) int {
	for i := 0; i < MaxDepth; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether a sorts strictly before b (a is higher priority).
func (a PathVector) Less(b PathVector) bool { return a.Compare(b) < 0 }
