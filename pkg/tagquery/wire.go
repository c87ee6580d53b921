package tagquery

import (
	"encoding/json"
	"fmt"
)

// ParseWire decodes the recursive JSON tag-query wire format (spec §6)
// into a Node: {"$and": [...]}, {"$or": [...]}, {"$not": {...}}, and
// per-name maps {"name": "value"} or
// {"name": {"$neq": ... | "$gt": ... | "$gte": ... | "$lt": ... |
// "$lte": ... | "$like": ... | "$in": [...]}}.
func ParseWire(data []byte) (Node, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &CompileError{Reason: fmt.Sprintf("malformed query JSON: %v", err)}
	}
	return parseObject(raw)
}

func parseObject(raw map[string]json.RawMessage) (Node, error) {
	if len(raw) != 1 {
		return nil, &CompileError{Reason: fmt.Sprintf("query object must have exactly one key, got %d", len(raw))}
	}
	for key, val := range raw {
		switch key {
		case "$and":
			children, err := parseNodeList(val)
			if err != nil {
				return nil, err
			}
			return And{Children: children}, nil
		case "$or":
			children, err := parseNodeList(val)
			if err != nil {
				return nil, err
			}
			return Or{Children: children}, nil
		case "$not":
			var childRaw map[string]json.RawMessage
			if err := json.Unmarshal(val, &childRaw); err != nil {
				return nil, &CompileError{Reason: fmt.Sprintf("malformed $not body: %v", err)}
			}
			child, err := parseObject(childRaw)
			if err != nil {
				return nil, err
			}
			return Not{Child: child}, nil
		default:
			return parseAtom([]byte(key), val)
		}
	}
	panic("unreachable")
}

func parseNodeList(val json.RawMessage) ([]Node, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(val, &items); err != nil {
		return nil, &CompileError{Reason: fmt.Sprintf("malformed group body: %v", err)}
	}
	nodes := make([]Node, 0, len(items))
	for _, item := range items {
		var childRaw map[string]json.RawMessage
		if err := json.Unmarshal(item, &childRaw); err != nil {
			return nil, &CompileError{Reason: fmt.Sprintf("malformed group child: %v", err)}
		}
		child, err := parseObject(childRaw)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, child)
	}
	return nodes, nil
}

func parseAtom(name []byte, val json.RawMessage) (Node, error) {
	// {"name": "value"} - plain equality.
	var plain string
	if err := json.Unmarshal(val, &plain); err == nil {
		return Eq(name, []byte(plain)), nil
	}

	// {"name": {"$op": ...}}
	var ops map[string]json.RawMessage
	if err := json.Unmarshal(val, &ops); err != nil {
		return nil, &CompileError{Reason: fmt.Sprintf("malformed value for tag %q", name), Name: name}
	}
	if len(ops) != 1 {
		return nil, &CompileError{Reason: fmt.Sprintf("operator object must have exactly one key, got %d", len(ops)), Name: name}
	}
	for op, raw := range ops {
		switch op {
		case "$neq":
			return Neq(name, rawString(raw)), nil
		case "$gt":
			return Gt(name, rawString(raw)), nil
		case "$gte":
			return Gte(name, rawString(raw)), nil
		case "$lt":
			return Lt(name, rawString(raw)), nil
		case "$lte":
			return Lte(name, rawString(raw)), nil
		case "$like":
			return Like(name, rawString(raw)), nil
		case "$in":
			var values []string
			if err := json.Unmarshal(raw, &values); err != nil {
				return nil, &CompileError{Reason: fmt.Sprintf("malformed $in value for tag %q", name), Name: name}
			}
			bs := make([][]byte, len(values))
			for i, v := range values {
				bs[i] = []byte(v)
			}
			return In(name, bs), nil
		default:
			return nil, &CompileError{Reason: fmt.Sprintf("unknown operator %q", op), Name: name}
		}
	}
	panic("unreachable")
}

func rawString(raw json.RawMessage) []byte {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	return []byte(s)
}
