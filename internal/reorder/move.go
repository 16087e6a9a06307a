package reorder

import "slices"

// Move returns a copy of s with the element at from removed and reinserted at
// index to of the result. Elements between the two positions shift by one slot
// toward the vacated one; it is not a swap. s is left untouched.
//
// Move panics if from or to is out of range, like the slices package does.
func Move[T any](s []T, from, to int) []T {
	if from < 0 || from >= len(s) || to < 0 || to >= len(s) {
		panic("reorder: move index out of range")
	}
	v := s[from]
	out := slices.Delete(slices.Clone(s), from, from+1)
	return slices.Insert(out, to, v)
}
