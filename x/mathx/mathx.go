package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WrapMod returns v modulo m adjusted into [0, m). The result is
// non-negative for any v, unlike the builtin % operator.
func WrapMod[T constraints.Signed](v, m T) T {
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}
