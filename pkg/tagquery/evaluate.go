package tagquery

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/cuemby/walletstore/pkg/record"
)

// Evaluate reports whether tags satisfy ast, used by backends (the local
// file backend) that hold every tag in memory instead of compiling to a
// query language. It returns a CompileError under the same conditions
// CompileWhere does, so both backends reject the same malformed
// predicates.
func Evaluate(ast Node, tags []record.Tag) (bool, error) {
	if ast == nil {
		return true, nil
	}
	return evalNode(ast, tags)
}

func evalNode(n Node, tags []record.Tag) (bool, error) {
	switch v := n.(type) {
	case Atom:
		return evalAtom(v, tags)
	case And:
		if len(v.Children) == 0 {
			return false, errEmptyGroup("AND")
		}
		for _, c := range v.Children {
			ok, err := evalNode(c, tags)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case Or:
		if len(v.Children) == 0 {
			return false, errEmptyGroup("OR")
		}
		for _, c := range v.Children {
			ok, err := evalNode(c, tags)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Not:
		ok, err := evalNode(v.Child, tags)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, &CompileError{Reason: "unsupported node type"}
	}
}

func evalAtom(a Atom, tags []record.Tag) (bool, error) {
	plain := IsPlainName(a.Name)
	if !plain && a.Op.isStringOp() {
		return false, errStringOpOnEncrypted(a.Name, a.Op)
	}
	if a.Op == OpIn && len(a.Values) == 0 {
		return false, errEmptyIn(a.Name)
	}

	name := StrippedName(a.Name)
	wantKind := record.TagEncrypted
	if plain {
		wantKind = record.TagPlaintext
	}

	for _, t := range tags {
		if t.Kind != wantKind || !bytes.Equal(t.Name, name) {
			continue
		}
		if matchOne(a, t, plain) {
			return true, nil
		}
	}
	return false, nil
}

func matchOne(a Atom, t record.Tag, plain bool) bool {
	if a.Op == OpIn {
		for _, v := range a.Values {
			if tagValueEqual(t, v, plain) {
				return true
			}
		}
		return false
	}

	if !plain {
		switch a.Op {
		case OpEq:
			return bytes.Equal(t.Value, a.Value)
		case OpNeq:
			return !bytes.Equal(t.Value, a.Value)
		}
		return false
	}

	tv, av := t.PlainValue, string(a.Value)
	switch a.Op {
	case OpEq:
		return tv == av
	case OpNeq:
		return tv != av
	case OpGt:
		return tv > av
	case OpGte:
		return tv >= av
	case OpLt:
		return tv < av
	case OpLte:
		return tv <= av
	case OpLike:
		return likeMatch(av, tv)
	}
	return false
}

func tagValueEqual(t record.Tag, v []byte, plain bool) bool {
	if plain {
		return t.PlainValue == string(v)
	}
	return bytes.Equal(t.Value, v)
}

// likeMatch implements SQL LIKE semantics (% = any run, _ = one rune)
// by translating the pattern into an anchored regular expression in which
// every other character matches only itself.
func likeMatch(pattern, value string) bool {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	ok, err := regexp.MatchString(b.String(), value)
	return err == nil && ok
}
