package model

import (
	"fmt"
	"strings"
)

// Unreachable is the marker identifier used for names that cannot be traced
// back to a declaration, e.g. "??.pickle" for values imported from opaque
// modules.
const Unreachable = "??"

// DottedName is an immutable sequence of identifiers separated by periods,
// naming a module, class, function or variable.
type DottedName struct {
	parts []string
}

func isIdentifier(s string) bool {
	if s == Unreachable {
		return true
	}
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			// identifiers starting with a digit are tolerated, the source
			// language allows them in mangled contexts
			_ = i
		default:
			return false
		}
	}
	return true
}

// NewDottedName builds a name from pieces. Each piece may itself contain
// dots and is split into identifiers. An error is returned when a piece is
// empty or contains a non-identifier segment.
func NewDottedName(pieces ...string) (DottedName, error) {
	if len(pieces) == 0 {
		return DottedName{}, fmt.Errorf("empty dotted name")
	}
	var parts []string
	for _, piece := range pieces {
		if piece == "" {
			return DottedName{}, fmt.Errorf("empty identifier in dotted name %q", strings.Join(pieces, "."))
		}
		for _, sub := range strings.Split(piece, ".") {
			if !isIdentifier(sub) {
				return DottedName{}, fmt.Errorf("bad identifier %q in dotted name", sub)
			}
			parts = append(parts, sub)
		}
	}
	return DottedName{parts: parts}, nil
}

// MustDottedName is NewDottedName for statically known-good names.
func MustDottedName(pieces ...string) DottedName {
	dn, err := NewDottedName(pieces...)
	if err != nil {
		panic(err)
	}
	return dn
}

func (d DottedName) String() string { return strings.Join(d.parts, ".") }

func (d DottedName) Len() int { return len(d.parts) }

// Part returns the identifier at index i.
func (d DottedName) Part(i int) string { return d.parts[i] }

// Parts returns a copy of the identifier sequence.
func (d DottedName) Parts() []string {
	out := make([]string, len(d.parts))
	copy(out, d.parts)
	return out
}

// Head returns the last identifier, the local name.
func (d DottedName) Head() string {
	if len(d.parts) == 0 {
		return ""
	}
	return d.parts[len(d.parts)-1]
}

// Container returns the name with the last identifier removed, and false
// when there is nothing left to remove.
func (d DottedName) Container() (DottedName, bool) {
	if len(d.parts) <= 1 {
		return DottedName{}, false
	}
	return DottedName{parts: d.parts[:len(d.parts)-1]}, true
}

// Append returns a new name with extra identifiers appended.
func (d DottedName) Append(pieces ...string) (DottedName, error) {
	combined := make([]string, 0, len(d.parts)+len(pieces))
	combined = append(combined, d.parts...)
	combined = append(combined, pieces...)
	return NewDottedName(combined...)
}

// Contains reports whether other is d itself or is dominated by it, i.e. d
// is a proper dotted prefix of other.
func (d DottedName) Contains(other DottedName) bool {
	if len(d.parts) > len(other.parts) {
		return false
	}
	for i, p := range d.parts {
		if other.parts[i] != p {
			return false
		}
	}
	return true
}

// Equal reports identifier-wise equality.
func (d DottedName) Equal(other DottedName) bool {
	return len(d.parts) == len(other.parts) && d.Contains(other)
}
