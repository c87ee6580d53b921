package tagquery

import (
	"fmt"
	"strings"
)

// SQLSchema names the tables and columns the compiler targets. The
// defaults match the relational backend's schema (spec §4.4).
type SQLSchema struct {
	ItemsTable      string
	ItemsIDColumn   string
	ItemsTypeColumn string
	EncryptedTable  string
	PlaintextTable  string
}

// DefaultSQLSchema returns the schema used by pkg/pgwallet.
func DefaultSQLSchema() SQLSchema {
	return SQLSchema{
		ItemsTable:      "items",
		ItemsIDColumn:   "id",
		ItemsTypeColumn: "type",
		EncryptedTable:  "tags_encrypted",
		PlaintextTable:  "tags_plaintext",
	}
}

type sqlBuilder struct {
	schema SQLSchema
	params []any
}

func (b *sqlBuilder) bind(v any) string {
	b.params = append(b.params, v)
	return fmt.Sprintf("$%d", len(b.params))
}

// CompileWhere lowers ast into a parameterized WHERE clause (without the
// "WHERE" keyword) scoped to records of the given type. typeFilter is
// always the first bound parameter, per spec §4.2. A nil ast compiles to
// just the type filter.
//
// Every user-supplied byte reaches the output only as a bound parameter;
// the returned string never contains data from ast or typeFilter.
func CompileWhere(ast Node, typeFilter []byte, schema SQLSchema) (string, []any, error) {
	b := &sqlBuilder{schema: schema}
	typePH := b.bind(typeFilter)
	clause := fmt.Sprintf("%s.%s = %s", schema.ItemsTable, schema.ItemsTypeColumn, typePH)

	if ast != nil {
		predicate, err := b.compileNode(ast)
		if err != nil {
			return "", nil, err
		}
		clause = clause + " AND (" + predicate + ")"
	}
	return clause, b.params, nil
}

// BuildSearchQuery wraps CompileWhere into a full SELECT with the given
// column projection (e.g. "items.id, items.name, items.value, items.key,
// items.type" for search, "COUNT(*)" for a total-count query, per
// spec §4.2 "Result projection is fixed by the call site").
func BuildSearchQuery(ast Node, typeFilter []byte, schema SQLSchema, projection string) (string, []any, error) {
	where, params, err := CompileWhere(ast, typeFilter, schema)
	if err != nil {
		return "", nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", projection, schema.ItemsTable, where)
	return query, params, nil
}

func (b *sqlBuilder) compileNode(n Node) (string, error) {
	switch v := n.(type) {
	case Atom:
		return b.compileAtom(v)
	case And:
		return b.compileGroup("AND", v.Children)
	case Or:
		return b.compileGroup("OR", v.Children)
	case Not:
		inner, err := b.compileNode(v.Child)
		if err != nil {
			return "", err
		}
		return "NOT " + inner, nil
	default:
		return "", &CompileError{Reason: fmt.Sprintf("unsupported node type %T", n)}
	}
}

func (b *sqlBuilder) compileGroup(keyword string, children []Node) (string, error) {
	if len(children) == 0 {
		return "", errEmptyGroup(keyword)
	}
	parts := make([]string, len(children))
	for i, c := range children {
		p, err := b.compileNode(c)
		if err != nil {
			return "", err
		}
		parts[i] = p
	}
	return "(" + strings.Join(parts, " "+keyword+" ") + ")", nil
}

func (b *sqlBuilder) compileAtom(a Atom) (string, error) {
	plain := IsPlainName(a.Name)
	if !plain && a.Op.isStringOp() {
		return "", errStringOpOnEncrypted(a.Name, a.Op)
	}

	table := b.schema.EncryptedTable
	if plain {
		table = b.schema.PlaintextTable
	}

	namePH := b.bind(StrippedName(a.Name))

	if a.Op == OpIn {
		if len(a.Values) == 0 {
			return "", errEmptyIn(a.Name)
		}
		phs := make([]string, len(a.Values))
		for i, v := range a.Values {
			phs[i] = b.bind(valueOperand(v, plain))
		}
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s t WHERE t.item_id = %s.%s AND t.name = %s AND t.value IN (%s))",
			table, b.schema.ItemsTable, b.schema.ItemsIDColumn, namePH, strings.Join(phs, ", "),
		), nil
	}

	valPH := b.bind(valueOperand(a.Value, plain))
	operator, err := sqlOperator(a.Op)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %s t WHERE t.item_id = %s.%s AND t.name = %s AND t.value %s %s)",
		table, b.schema.ItemsTable, b.schema.ItemsIDColumn, namePH, operator, valPH,
	), nil
}

func sqlOperator(op Op) (string, error) {
	switch op {
	case OpEq:
		return "=", nil
	case OpNeq:
		return "<>", nil
	case OpGt:
		return ">", nil
	case OpGte:
		return ">=", nil
	case OpLt:
		return "<", nil
	case OpLte:
		return "<=", nil
	case OpLike:
		return "LIKE", nil
	default:
		return "", &CompileError{Reason: fmt.Sprintf("unsupported operator %s", op)}
	}
}

// valueOperand decides the Go type a bound tag *value* travels as:
// tags_plaintext.value is TEXT, so plain values bind as string;
// tags_encrypted.value is BYTEA, so encrypted values bind as raw bytes.
// The name column is BYTEA in both tables (pkg/pgwallet/schema.go), so
// tag names always bind as raw bytes regardless of plain.
func valueOperand(v []byte, plain bool) any {
	if plain {
		return string(v)
	}
	return v
}
