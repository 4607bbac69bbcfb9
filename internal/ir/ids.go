package ir

import "strconv"

// NodeID names one logical node. Identities are totally ordered by their
// numeric value and are never recycled within a running engine.
type NodeID uint64

// String returns the decimal form of the identity.
func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Compare orders identities numerically. It has the signature expected by
// slices.SortFunc and slices.BinarySearchFunc.
func Compare(a, b NodeID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
