package tagquery

import "testing"

func TestParseWireEq(t *testing.T) {
	n, err := ParseWire([]byte(`{"~name": "value"}`))
	if err != nil {
		t.Fatalf("ParseWire() error = %v", err)
	}
	a, ok := n.(Atom)
	if !ok {
		t.Fatalf("expected Atom, got %T", n)
	}
	if a.Op != OpEq || string(a.Name) != "~name" || string(a.Value) != "value" {
		t.Errorf("got %+v", a)
	}
}

func TestParseWireOperators(t *testing.T) {
	cases := map[string]Op{
		`{"~n": {"$neq": "v"}}`:  OpNeq,
		`{"~n": {"$gt": "v"}}`:   OpGt,
		`{"~n": {"$gte": "v"}}`:  OpGte,
		`{"~n": {"$lt": "v"}}`:   OpLt,
		`{"~n": {"$lte": "v"}}`:  OpLte,
		`{"~n": {"$like": "v"}}`: OpLike,
	}
	for wire, wantOp := range cases {
		n, err := ParseWire([]byte(wire))
		if err != nil {
			t.Fatalf("ParseWire(%s) error = %v", wire, err)
		}
		a, ok := n.(Atom)
		if !ok || a.Op != wantOp {
			t.Errorf("ParseWire(%s) = %+v, want op %s", wire, n, wantOp)
		}
	}
}

func TestParseWireIn(t *testing.T) {
	n, err := ParseWire([]byte(`{"~n": {"$in": ["a", "b", "c"]}}`))
	if err != nil {
		t.Fatalf("ParseWire() error = %v", err)
	}
	a, ok := n.(Atom)
	if !ok || a.Op != OpIn || len(a.Values) != 3 {
		t.Fatalf("got %+v", n)
	}
}

func TestParseWireAndOrNot(t *testing.T) {
	n, err := ParseWire([]byte(`{"$and": [{"~a": "1"}, {"$or": [{"~b": "2"}, {"$not": {"~c": "3"}}]}]}`))
	if err != nil {
		t.Fatalf("ParseWire() error = %v", err)
	}
	and, ok := n.(And)
	if !ok || len(and.Children) != 2 {
		t.Fatalf("got %+v", n)
	}
	or, ok := and.Children[1].(Or)
	if !ok || len(or.Children) != 2 {
		t.Fatalf("expected nested Or, got %+v", and.Children[1])
	}
	if _, ok := or.Children[1].(Not); !ok {
		t.Fatalf("expected Not, got %+v", or.Children[1])
	}
}

func TestParseWireMalformed(t *testing.T) {
	cases := []string{
		`not json`,
		`{"~n": {"$bogus": "v"}}`,
		`{"$and": "not-an-array"}`,
		`{}`,
		`{"a": 1, "b": 2}`,
	}
	for _, wire := range cases {
		if _, err := ParseWire([]byte(wire)); err == nil {
			t.Errorf("ParseWire(%s): expected error", wire)
		}
	}
}
