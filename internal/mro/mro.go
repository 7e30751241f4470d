// Package mro computes C3 linearizations over an abstract "direct bases"
// capability.
package mro

import (
	"errors"
	"fmt"
)

// ErrInconsistent is reported when no total order satisfies every local
// precedence constraint of the hierarchy.
var ErrInconsistent = errors.New("inconsistent hierarchy: cannot compute C3 linearization")

// ErrCycle is reported when a class is (transitively) its own base.
var ErrCycle = errors.New("inheritance cycle")

// Bases returns the direct bases of a class, in declaration order.
type Bases[T comparable] func(T) []T

// Linearize returns the total order of cls and its ancestors: cls itself
// first, then the merge of the bases' linearizations and the base list,
// using the classic C3 rule. Inconsistent hierarchies fail with an explicit
// error, never a silent truncation.
func Linearize[T comparable](cls T, bases Bases[T]) ([]T, error) {
	return linearize(cls, bases, make(map[T]bool))
}

func linearize[T comparable](cls T, bases Bases[T], active map[T]bool) ([]T, error) {
	if active[cls] {
		return nil, fmt.Errorf("%w through %v", ErrCycle, cls)
	}
	active[cls] = true
	defer delete(active, cls)

	result := []T{cls}
	direct := bases(cls)
	if len(direct) == 0 {
		return result, nil
	}

	seqs := make([][]T, 0, len(direct)+1)
	for _, b := range direct {
		sub, err := linearize(b, bases, active)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, sub)
	}
	// the base list itself preserves the local precedence order
	seqs = append(seqs, append([]T(nil), direct...))

	merged, err := merge(seqs)
	if err != nil {
		return nil, fmt.Errorf("%w for %v", err, cls)
	}
	return append(result, merged...), nil
}

// merge repeatedly takes the first head that does not occur in the tail of
// any sequence. When every sequence is non-empty and no head qualifies, the
// constraints are contradictory.
func merge[T comparable](seqs [][]T) ([]T, error) {
	var result []T
	for {
		exhausted := true
		for _, s := range seqs {
			if len(s) > 0 {
				exhausted = false
				break
			}
		}
		if exhausted {
			return result, nil
		}

		picked := false
		for _, s := range seqs {
			if len(s) == 0 {
				continue
			}
			head := s[0]
			if inAnyTail(seqs, head) {
				continue
			}
			result = append(result, head)
			for i, other := range seqs {
				if len(other) > 0 && other[0] == head {
					seqs[i] = other[1:]
				}
			}
			picked = true
			break
		}
		if !picked {
			return nil, ErrInconsistent
		}
	}
}

func inAnyTail[T comparable](seqs [][]T, item T) bool {
	for _, s := range seqs {
		for i := 1; i < len(s); i++ {
			if s[i] == item {
				return true
			}
		}
	}
	return false
}
