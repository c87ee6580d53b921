// Package tagquery defines the predicate language used to search wallet
// records by their tags, and compiles it into backend-specific query
// forms: parameterized SQL for the relational backend, and a query-string
// subset for the remote backend.
package tagquery

import "bytes"

// Op identifies an atom's comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNeq
	OpGt
	OpGte
	OpLt
	OpLte
	OpLike
	OpIn
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "$eq"
	case OpNeq:
		return "$neq"
	case OpGt:
		return "$gt"
	case OpGte:
		return "$gte"
	case OpLt:
		return "$lt"
	case OpLte:
		return "$lte"
	case OpLike:
		return "$like"
	case OpIn:
		return "$in"
	default:
		return "$unknown"
	}
}

// stringOps are valid only on plain-text tags.
func (o Op) isStringOp() bool {
	switch o {
	case OpGt, OpGte, OpLt, OpLte, OpLike:
		return true
	default:
		return false
	}
}

// Node is any predicate: an Atom or a boolean connective over child
// nodes. The zero set of implementations is closed: Atom, And, Or, Not.
type Node interface {
	node()
}

// Atom compares a single tag name against a value (or, for OpIn, a set
// of values). Name carries the caller's raw tag name, marker included;
// use IsPlainName/StrippedName to classify and strip it.
type Atom struct {
	Name   []byte
	Op     Op
	Value  []byte
	Values [][]byte
}

func (Atom) node() {}

// And requires every child to hold.
type And struct {
	Children []Node
}

func (And) node() {}

// Or requires at least one child to hold.
type Or struct {
	Children []Node
}

func (Or) node() {}

// Not requires its child not to hold.
type Not struct {
	Child Node
}

func (Not) node() {}

// plainMarker is the ASCII character that, as a name prefix, denotes a
// plain-text tag. It is stripped before lookup.
const plainMarker = '~'

// IsPlainName reports whether name addresses a plain-text tag.
func IsPlainName(name []byte) bool {
	return len(name) > 0 && name[0] == plainMarker
}

// StrippedName removes the plain-text marker, if present.
func StrippedName(name []byte) []byte {
	if IsPlainName(name) {
		return name[1:]
	}
	return name
}

// Eq builds an equality atom.
func Eq(name, value []byte) Atom { return Atom{Name: name, Op: OpEq, Value: value} }

// Neq builds an inequality atom.
func Neq(name, value []byte) Atom { return Atom{Name: name, Op: OpNeq, Value: value} }

// Gt, Gte, Lt, Lte build string-comparison atoms, valid only on
// plain-text tag names.
func Gt(name, value []byte) Atom  { return Atom{Name: name, Op: OpGt, Value: value} }
func Gte(name, value []byte) Atom { return Atom{Name: name, Op: OpGte, Value: value} }
func Lt(name, value []byte) Atom  { return Atom{Name: name, Op: OpLt, Value: value} }
func Lte(name, value []byte) Atom { return Atom{Name: name, Op: OpLte, Value: value} }

// Like builds a LIKE atom (prefix/glob via % and _), valid only on
// plain-text tag names.
func Like(name, pattern []byte) Atom { return Atom{Name: name, Op: OpLike, Value: pattern} }

// In builds a set-membership atom.
func In(name []byte, values [][]byte) Atom { return Atom{Name: name, Op: OpIn, Values: values} }

// Equal reports deep equality of two atoms' operands, used by tests.
func (a Atom) Equal(b Atom) bool {
	if !bytes.Equal(a.Name, b.Name) || a.Op != b.Op || !bytes.Equal(a.Value, b.Value) {
		return false
	}
	if len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if !bytes.Equal(a.Values[i], b.Values[i]) {
			return false
		}
	}
	return true
}
