// Package domain holds the numeric type policy shared by every part of the
// lowering: which declared type names exist, how an integer and a
// floating-point operand combine, and when a value may be stored into a slot
// of a given type.
package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/llir/llvm/ir/types"
	"github.com/pkg/errors"
)

type Domain int

const (
	Unknown Domain = iota
	Int
	Double
	Void
)

// ErrMismatch is returned (wrapped) whenever a value of one domain is used
// where another is required.
var ErrMismatch = errors.New("type-domain mismatch")

func (d Domain) String() string {
	switch d {
	case Int:
		return "int"
	case Double:
		return "double"
	case Void:
		return "void"
	}
	return "unknown"
}

func (d Domain) IsNumeric() bool {
	return d == Int || d == Double
}

// Resolve maps a declared type name onto its domain. Anything that is not a
// known type name, the empty string included, resolves to Unknown.
func Resolve(name string) Domain {
	switch name {
	case "int":
		return Int
	case "double":
		return Double
	case "void":
		return Void
	}
	return Unknown
}

// Promote returns the domain a binary arithmetic or comparison operator is
// evaluated in: floating point as soon as either side is floating point.
func Promote(a, b Domain) Domain {
	if a == Double || b == Double {
		return Double
	}
	return Int
}

// Storable reports whether a value of domain value may be written into a
// slot (variable, parameter, return value or phi) of domain slot. Storing
// never promotes.
func Storable(value, slot Domain) error {
	if value == slot {
		return nil
	}
	return errors.Wrapf(ErrMismatch, "cannot use %s value as %s", value, slot)
}

func LLVM(d Domain) types.Type {
	switch d {
	case Int:
		return types.I64
	case Double:
		return types.Double
	case Void:
		return types.Void
	}
	panic(fmt.Sprintf("internal error: no LLVM type for domain %s", d))
}

// Of classifies an LLVM type. Booleans (i1) produced by comparisons count as
// integers since they are widened before being used as numbers.
func Of(t types.Type) Domain {
	switch t := t.(type) {
	case *types.IntType:
		return Int
	case *types.FloatType:
		if t.Kind == types.FloatKindDouble {
			return Double
		}
	case *types.VoidType:
		return Void
	}
	return Unknown
}

// FormatDouble renders a double so that it always reads as floating point:
// 3 becomes "3.0" while 4.5 stays "4.5".
func FormatDouble(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
