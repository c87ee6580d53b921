package remotewallet

import (
	"net/url"
	"strings"

	"github.com/cuemby/walletstore/pkg/storage"
	"github.com/cuemby/walletstore/pkg/tagquery"
)

// compileURLQuery lowers a tag-query AST into query-string parameters
// attached to a keyval list request (SPEC_FULL §4.2 "URL-form
// compiler"). Only two shapes are supported: equality on a single
// plain-text tag, and a prefix pattern (a LIKE value ending in a single
// trailing "%") on a single plain-text tag — the remote API has no
// general predicate evaluator. Anything else is rejected, naming the
// unsupported node, rather than silently dropping part of the query: the
// caller in wallet.go still re-checks every candidate against the full
// AST with tagquery.Evaluate, so a query string a real server ignores
// never produces a wrong answer, only a less efficient one.
func compileURLQuery(ast tagquery.Node) (url.Values, error) {
	if ast == nil {
		return nil, nil
	}
	atom, ok := ast.(tagquery.Atom)
	if !ok {
		return nil, storage.Newf(storage.InvalidStructure, "remote list query supports only a single tag atom, got %T", ast)
	}
	if !tagquery.IsPlainName(atom.Name) {
		return nil, storage.Newf(storage.InvalidStructure, "remote list query supports only plain-text tags, got %q", atom.Name)
	}
	name := string(tagquery.StrippedName(atom.Name))

	values := url.Values{}
	switch atom.Op {
	case tagquery.OpEq:
		values.Set("tag_"+name, string(atom.Value))
	case tagquery.OpLike:
		pattern := string(atom.Value)
		body := strings.TrimSuffix(pattern, "%")
		if !strings.HasSuffix(pattern, "%") || strings.ContainsAny(body, "%_") {
			return nil, storage.Newf(storage.InvalidStructure, "remote list query supports only a prefix LIKE pattern, got %q", pattern)
		}
		values.Set("tag_"+name+"_prefix", body)
	default:
		return nil, storage.Newf(storage.InvalidStructure, "remote list query does not support operator %s", atom.Op)
	}
	return values, nil
}
