// Package either provides a two-case tagged union used by connector
// pipelines to tell "answered already" (Left) apart from "keep going" (Right).
package either

// Either holds exactly one of a Left or a Right value. The zero value is a
// Left carrying the zero L.
type Either[L, R any] struct {
	left    L
	right   R
	isRight bool
}

// Left returns an Either holding l.
func Left[L, R any](l L) Either[L, R] {
	return Either[L, R]{left: l}
}

// Right returns an Either holding r.
func Right[L, R any](r R) Either[L, R] {
	return Either[L, R]{right: r, isRight: true}
}

func (e Either[L, R]) IsLeft() bool  { return !e.isRight }
func (e Either[L, R]) IsRight() bool { return e.isRight }

// GetLeft returns the Left value and true, or the zero L and false.
func (e Either[L, R]) GetLeft() (L, bool) {
	if e.isRight {
		var zero L
		return zero, false
	}
	return e.left, true
}

// GetRight returns the Right value and true, or the zero R and false.
func (e Either[L, R]) GetRight() (R, bool) {
	if !e.isRight {
		var zero R
		return zero, false
	}
	return e.right, true
}

// Fold applies onLeft or onRight depending on which case e holds.
func Fold[L, R, A any](e Either[L, R], onLeft func(L) A, onRight func(R) A) A {
	if e.isRight {
		return onRight(e.right)
	}
	return onLeft(e.left)
}

// Map transforms the Right value. A Left is returned unchanged and f is not
// called.
func Map[L, R, R2 any](e Either[L, R], f func(R) R2) Either[L, R2] {
	if !e.isRight {
		return Left[L, R2](e.left)
	}
	return Right[L](f(e.right))
}

// FlatMap chains a step that may itself short-circuit. A Left is returned
// unchanged and f is not called.
func FlatMap[L, R, R2 any](e Either[L, R], f func(R) Either[L, R2]) Either[L, R2] {
	if !e.isRight {
		return Left[L, R2](e.left)
	}
	return f(e.right)
}

// MapLeft transforms the Left value. A Right is returned unchanged.
func MapLeft[L, R, L2 any](e Either[L, R], f func(L) L2) Either[L2, R] {
	if e.isRight {
		return Right[L2](e.right)
	}
	return Left[L2, R](f(e.left))
}

// Merge collapses an Either whose arms share a type.
func Merge[T any](e Either[T, T]) T {
	if e.isRight {
		return e.right
	}
	return e.left
}
