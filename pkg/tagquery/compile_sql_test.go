package tagquery

import (
	"strings"
	"testing"
)

func TestCompileWhereTypeOnly(t *testing.T) {
	where, params, err := CompileWhere(nil, []byte{1, 2, 3}, DefaultSQLSchema())
	if err != nil {
		t.Fatalf("CompileWhere() error = %v", err)
	}
	if where != "items.type = $1" {
		t.Errorf("where = %q", where)
	}
	if len(params) != 1 {
		t.Fatalf("params = %v", params)
	}
}

func TestCompileWhereEqAtoms(t *testing.T) {
	ast := And{Children: []Node{
		Eq([]byte("~name1"), []byte("value1")),
		Eq([]byte("name2"), []byte{9, 9, 9}),
	}}
	where, params, err := CompileWhere(ast, []byte{1}, DefaultSQLSchema())
	if err != nil {
		t.Fatalf("CompileWhere() error = %v", err)
	}
	if !strings.Contains(where, "tags_plaintext") || !strings.Contains(where, "tags_encrypted") {
		t.Errorf("where does not reference both tag tables: %q", where)
	}
	// type param + 2 names + 2 values
	if len(params) != 5 {
		t.Fatalf("params = %v, len=%d", params, len(params))
	}
	// No literal byte value leaked into the query text itself.
	if strings.Contains(where, "value1") || strings.Contains(where, "9") {
		t.Errorf("literal value leaked into SQL text: %q", where)
	}
}

func TestCompileStringOpOnEncryptedFails(t *testing.T) {
	_, _, err := CompileWhere(Gt([]byte("secret"), []byte("x")), []byte{1}, DefaultSQLSchema())
	var ce *CompileError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asCompileError(err, &ce) {
		t.Fatalf("expected *CompileError, got %T", err)
	}
}

func TestCompileEmptyGroupFails(t *testing.T) {
	for _, ast := range []Node{And{}, Or{}} {
		if _, _, err := CompileWhere(ast, []byte{1}, DefaultSQLSchema()); err == nil {
			t.Errorf("expected error for empty group %#v", ast)
		}
	}
}

func TestCompileEmptyInFails(t *testing.T) {
	if _, _, err := CompileWhere(In([]byte("~n"), nil), []byte{1}, DefaultSQLSchema()); err == nil {
		t.Fatal("expected error for empty IN")
	}
}

func TestCompileNot(t *testing.T) {
	where, _, err := CompileWhere(Not{Child: Eq([]byte("~n"), []byte("v"))}, []byte{1}, DefaultSQLSchema())
	if err != nil {
		t.Fatalf("CompileWhere() error = %v", err)
	}
	if !strings.Contains(where, "NOT EXISTS") {
		t.Errorf("expected NOT EXISTS in %q", where)
	}
}

func TestBuildSearchQueryProjection(t *testing.T) {
	query, _, err := BuildSearchQuery(nil, []byte{1}, DefaultSQLSchema(), "items.id, items.name, items.value, items.key, items.type")
	if err != nil {
		t.Fatalf("BuildSearchQuery() error = %v", err)
	}
	if !strings.HasPrefix(query, "SELECT items.id") {
		t.Errorf("query = %q", query)
	}
}

func asCompileError(err error, target **CompileError) bool {
	ce, ok := err.(*CompileError)
	if ok {
		*target = ce
	}
	return ok
}
